//go:build !windows

package pathlib

import (
	"os"

	"golang.org/x/sys/unix"
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
	return unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
}

// Locker opens (creating if necessary) filename and blocks until an
// exclusive advisory lock on it is acquired, per spec.md §4.7 step 2-3.
func Locker(filename string) (Releaser, error) {
	if _, err := EnsureParentDirectory(filename); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		file.Close()
		return nil, err
	}
	return &locked{file: file}, nil
}
