// Package pathlib collects small filesystem helpers used by the
// extraction cache: directory existence checks, directory creation with
// parents, best-effort rename-with-retry, and (in the platform-specific
// lock_*.go files) an exclusive advisory file lock. Adapted from the
// teacher's pathlib package, trimmed to what the extraction cache needs.
package pathlib

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// IsDir reports whether pathname exists and is a directory.
func IsDir(pathname string) bool {
	stat, err := os.Stat(pathname)
	return err == nil && stat.IsDir()
}

// IsFile reports whether pathname exists and is not a directory.
func IsFile(pathname string) bool {
	stat, err := os.Stat(pathname)
	return err == nil && !stat.IsDir()
}

// Exists reports whether pathname exists at all (file, directory, or
// otherwise).
func Exists(pathname string) bool {
	_, err := os.Stat(pathname)
	return err == nil
}

// EnsureDirectory creates directory (and parents) if missing and
// returns its absolute path.
func EnsureDirectory(directory string) (string, error) {
	fullpath, err := filepath.Abs(directory)
	if err != nil {
		return "", err
	}
	if IsDir(fullpath) {
		return fullpath, nil
	}
	if err := os.MkdirAll(fullpath, 0o750); err != nil {
		return "", err
	}
	return fullpath, nil
}

// EnsureParentDirectory creates the parent directory of resource.
func EnsureParentDirectory(resource string) (string, error) {
	return EnsureDirectory(filepath.Dir(resource))
}

// Create opens filename for writing, creating its parent directories
// first.
func Create(filename string) (*os.File, error) {
	if _, err := EnsureParentDirectory(filename); err != nil {
		return nil, fmt.Errorf("failed to ensure parent directory for %q: %w", filename, err)
	}
	return os.Create(filename)
}

// TryRename retries os.Rename a few times before giving up, tolerating
// the brief window where an antivirus scanner or a sibling process has
// the source or destination transiently open. Falls back to a same
// source, differently-named sibling before the final retry burst, the
// same two-phase strategy the teacher's pathlib.TryRename uses.
func TryRename(context, source, target string) (err error) {
	for delay := 0; delay < 5; delay++ {
		time.Sleep(time.Duration(delay*20) * time.Millisecond)
		err = os.Rename(source, target)
		if err == nil {
			return nil
		}
	}
	intermediate := fmt.Sprintf("%s.%d_%x", source, os.Getpid(), rand.Intn(4096))
	if renameErr := os.Rename(source, intermediate); renameErr == nil {
		source = intermediate
	}
	for delay := 0; delay < 5; delay++ {
		time.Sleep(time.Duration(delay*20) * time.Millisecond)
		err = os.Rename(source, target)
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("rename failure [%s]: %w", context, err)
}

// ExpandUser expands a leading "~" component to the user's home
// directory, matching spec.md §3's "base may contain ~" rule. Only a
// leading ~ (as its own path component) is special; ~foo is left alone.
func ExpandUser(path string) (string, error) {
	if path != "~" && !hasLeadingTildeComponent(path) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand home dir in path %q: %w", path, err)
	}
	if path == "~" {
		return home, nil
	}
	rest := path[2:] // strip "~/" (hasLeadingTildeComponent guarantees the separator)
	return filepath.Join(home, rest), nil
}

func hasLeadingTildeComponent(path string) bool {
	if len(path) < 2 || path[0] != '~' {
		return false
	}
	return path[1] == '/' || path[1] == filepath.Separator
}
