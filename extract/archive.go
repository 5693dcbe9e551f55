package extract

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/nce-project/nce/launcherr"
	"github.com/nce-project/nce/lift"
)

// decodeArchive extracts an in-memory archive window into dir,
// dispatching on the closed set of archive types spec.md §3 and §4.7
// enumerate. Zip and tar permissions are preserved on POSIX; on Windows
// every extracted file is written with mode 0644.
func decodeArchive(at lift.ArchiveType, data []byte, dir string) error {
	switch at {
	case lift.ArchiveZip:
		return extractZip(bytes.NewReader(data), int64(len(data)), dir)
	case lift.ArchiveTar:
		return extractTar(bytes.NewReader(data), dir)
	case lift.ArchiveTarBz2:
		return extractTar(bzip2.NewReader(bytes.NewReader(data)), dir)
	case lift.ArchiveTarGz:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to open gzip stream")
		}
		defer gz.Close()
		return extractTar(gz, dir)
	case lift.ArchiveTarXz:
		xzReader, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to open xz stream")
		}
		return extractTar(xzReader, dir)
	case lift.ArchiveTarZ:
		zlibReader, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to open zlib stream")
		}
		defer zlibReader.Close()
		return extractTar(zlibReader, dir)
	case lift.ArchiveTarZst:
		zstdReader, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to open zstd stream")
		}
		defer zstdReader.Close()
		return extractTar(zstdReader, dir)
	default:
		return launcherr.New(launcherr.InvalidManifest, "unknown archive_type %q", at)
	}
}

func extractZip(r io.ReaderAt, size int64, dir string) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to open zip stream")
	}
	for _, entry := range zr.File {
		target, err := safeJoin(dir, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to create directory %q", target)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to create parent directory for %q", target)
		}
		mode := entry.Mode()
		if runtime.GOOS == "windows" {
			mode = 0o644
		}
		if err := copyZipEntry(entry, target, mode); err != nil {
			return err
		}
	}
	return nil
}

func copyZipEntry(entry *zip.File, target string, mode fs.FileMode) error {
	src, err := entry.Open()
	if err != nil {
		return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to open zip entry %q", entry.Name)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to create %q", target)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to write %q", target)
	}
	return nil
}

func extractTar(r io.Reader, dir string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to read tar stream")
		}
		target, err := safeJoin(dir, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to create directory %q", target)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to create parent directory for %q", target)
			}
			mode := fs.FileMode(header.Mode)
			if runtime.GOOS == "windows" {
				mode = 0o644
			}
			dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
			if err != nil {
				return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to create %q", target)
			}
			if _, err := io.Copy(dst, tr); err != nil {
				dst.Close()
				return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to write %q", target)
			}
			dst.Close()
		case tar.TypeSymlink:
			if runtime.GOOS != "windows" {
				if err := os.Symlink(header.Linkname, target); err != nil {
					return launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to create symlink %q", target)
				}
			}
		}
	}
}

// safeJoin joins dir and name with name re-rooted under dir: leading
// ".." components and a leading "/" are cleaned away, so the result
// stays inside dir. A result that still falls outside dir is rejected.
func safeJoin(dir, name string) (string, error) {
	cleaned := filepath.Clean("/" + name)
	target := filepath.Join(dir, cleaned)
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(filepath.Separator)) && target != filepath.Clean(dir) {
		return "", launcherr.New(launcherr.ExtractionFailure, "archive entry %q escapes its extraction directory", name)
	}
	return target, nil
}
