package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gops "github.com/mitchellh/go-ps"

	"github.com/nce-project/nce/internal/common"
	"github.com/nce-project/nce/internal/memocache"
	"github.com/nce-project/nce/internal/pathlib"
	"github.com/nce-project/nce/launcherr"
)

// confirmedPresent memoizes "target directory already exists" across
// this process's lifetime: a manifest whose files dedup to a shared
// content hash would otherwise stat the same already-populated cache
// directory once per reference.
var confirmedPresent = memocache.NewPresenceCache()

// lockWaitWarningThreshold is how long AtomicDirectory will wait on a
// contended lock before looking up and logging the competing holder's
// process name, a diagnostic aid grounded on the teacher's own
// process-inspection usage pattern for stuck-lock situations.
const lockWaitWarningThreshold = 3 * time.Second

// AtomicDirectory creates target exactly once under concurrent
// contention, per spec.md §4.7:
//  1. if target already exists, return success;
//  2. open (creating) a `target.lck` lock file;
//  3. acquire an exclusive lock on it;
//  4. re-check existence (double-checked);
//  5. run work against a `target.work` scratch directory;
//  6. atomically rename `target.work` -> target;
//  7. release the lock.
//
// work's scratch directory is removed if work fails, per spec.md §5's
// "implementations SHOULD clean T.work on failure".
func AtomicDirectory(target string, work func(workDir string) error) error {
	if !filepath.IsAbs(target) {
		return launcherr.New(launcherr.ExtractionFailure, "atomic directory target must be absolute, got %q", target)
	}
	if confirmedPresent.Seen(target) {
		return nil
	}
	if pathlib.Exists(target) {
		confirmedPresent.MarkSeen(target)
		return nil
	}

	if _, err := pathlib.EnsureParentDirectory(target); err != nil {
		return launcherr.Wrap(launcherr.IOError, err, "failed to create parent directory for %q", target)
	}

	lockFile := target + ".lck"
	workDir := target + ".work"

	releaser, err := acquireWithDiagnostics(lockFile)
	if err != nil {
		return launcherr.Wrap(launcherr.IOError, err, "failed to acquire lock %q", lockFile)
	}
	defer releaser.Release()

	if pathlib.Exists(target) {
		confirmedPresent.MarkSeen(target)
		return nil
	}

	os.RemoveAll(workDir)
	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return launcherr.Wrap(launcherr.IOError, err, "failed to create staging directory %q", workDir)
	}

	if err := work(workDir); err != nil {
		os.RemoveAll(workDir)
		return launcherr.Wrap(launcherr.ExtractionFailure, err,
			"failed to establish atomic directory %q: population of work directory failed", target)
	}

	if err := pathlib.TryRename("atomic-directory", workDir, target); err != nil {
		return launcherr.Wrap(launcherr.ExtractionFailure, err,
			"failed to establish atomic directory %q: rename of work directory failed", target)
	}
	confirmedPresent.MarkSeen(target)
	return nil
}

func acquireWithDiagnostics(lockFile string) (pathlib.Releaser, error) {
	start := time.Now()
	done := make(chan struct{})
	var releaser pathlib.Releaser
	var lockErr error
	go func() {
		releaser, lockErr = pathlib.Locker(lockFile)
		close(done)
	}()

	select {
	case <-done:
		return releaser, lockErr
	case <-time.After(lockWaitWarningThreshold):
		logCompetingHolder(lockFile)
		<-done
		common.Trace("acquired lock %q after %s", lockFile, time.Since(start))
		return releaser, lockErr
	}
}

// logCompetingHolder makes a best-effort attempt to name the process
// that might be holding lockFile, purely diagnostic: lock files carry
// no owner-pid metadata, so this reports the most plausible holder by
// scanning for other live processes, the same soft "who might be doing
// this" guess the teacher's tooling surfaces for stuck-lock situations.
func logCompetingHolder(lockFile string) {
	procs, err := gops.Processes()
	if err != nil {
		common.Trace("waiting on contended lock %q (process listing unavailable: %v)", lockFile, err)
		return
	}
	var names []string
	self := os.Getpid()
	for _, p := range procs {
		if p.Pid() == self {
			continue
		}
		names = append(names, fmt.Sprintf("%s(%d)", p.Executable(), p.Pid()))
		if len(names) >= 5 {
			break
		}
	}
	common.Warning("still waiting on contended lock %q; candidate holders: %s",
		lockFile, strings.Join(names, ", ")+suffixIfTruncated(names))
}

func suffixIfTruncated(names []string) string {
	if len(names) >= 5 {
		return ", ..."
	}
	return ""
}
