//go:build windows

package pathlib

import (
	"os"

	"golang.org/x/sys/windows"
)

// Releaser releases a lock acquired by Locker.
type Releaser interface {
	Release() error
}

type locked struct {
	file *os.File
}

func (l *locked) Release() error {
	defer l.file.Close()
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, ol)
}

// Locker opens (creating if necessary) filename and blocks until an
// exclusive lock on it is acquired, the Windows analogue of the POSIX
// flock used elsewhere (spec.md §4.7 step 2-3).
func Locker(filename string) (Releaser, error) {
	if _, err := EnsureParentDirectory(filename); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, err
	}
	ol := new(windows.Overlapped)
	flags := uint32(windows.LOCKFILE_EXCLUSIVE_LOCK)
	if err := windows.LockFileEx(windows.Handle(file.Fd()), flags, 0, 1, 0, ol); err != nil {
		file.Close()
		return nil, err
	}
	return &locked{file: file}, nil
}
