package boot

import (
	"github.com/nce-project/nce/launcherr"
)

// Pack would re-stamp a stub with a freshly assembled lift manifest
// (the build-time packing step spec.md §1 treats as an external,
// out-of-scope tool). It is wired into the SCIE= dispatch so invoking
// it fails loudly with a clear diagnostic instead of silently doing
// nothing, matching the original launcher's own unfinished boot-pack.
func Pack(loaded *Loaded) error {
	return launcherr.New(launcherr.Unsupported,
		"boot-pack is not implemented for %s; packing a scie is a build-time step outside this launcher", loaded.Path)
}
