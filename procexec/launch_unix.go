//go:build !windows

package procexec

import (
	"golang.org/x/sys/unix"
)

// launch replaces the current process image via execve, per spec.md
// §4.8's "on POSIX, ... execve". On success this never returns; the
// int result only exists to satisfy the cross-platform signature and
// is unreachable.
func launch(d Descriptor, env []string) (int, error) {
	args := argv(d)
	err := unix.Exec(d.Exe, args, env)
	return 0, wrapLaunchError(err, d.Exe)
}
