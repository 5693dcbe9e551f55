package boot

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"

	"github.com/nce-project/nce/extract"
	"github.com/nce-project/nce/internal/common"
	"github.com/nce-project/nce/launcherr"
	"github.com/nce-project/nce/lift"
)

// Split writes every piece of a concatenated scie back out to
// individual files under a target directory: the native stub, each
// payload file by name, and a lift.json a packer could reassemble
// from (spec.md §9 calls out Locator::Entry extraction as a case that
// must not be left half-built; split exercises that same trailing-zip
// read path as the ordinary boot extraction engine does).
//
// argv[1], if present, names the target directory; otherwise the
// current directory is used.
func Split(loaded *Loaded, argv []string) (int, error) {
	base := "."
	if len(argv) > 1 {
		base = argv[1]
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return 1, launcherr.Wrap(launcherr.IOError, err, "failed to create split target directory %q", base)
	}

	stubName := "scie-jump"
	if common.IsWindows() {
		stubName += ".exe"
	}
	stubPath := filepath.Join(base, stubName)
	jumpSize := int64(loaded.Manifest.Jump.Size)
	if jumpSize > int64(len(loaded.Bytes)) {
		return 1, launcherr.New(launcherr.InvalidLayout, "jump size %d exceeds the %d byte scie", jumpSize, len(loaded.Bytes))
	}
	if err := writeNewFile(stubPath, loaded.Bytes[:jumpSize], !common.IsWindows()); err != nil {
		return 1, err
	}

	location := jumpSize
	var entryFiles []lift.File
	for _, f := range loaded.Manifest.Lift.Files {
		if f.IsEntry() {
			entryFiles = append(entryFiles, f)
			continue
		}
		if f.Size == nil {
			return 1, launcherr.New(launcherr.InvalidManifest, "file %q has neither a size nor an entry locator", f.CacheName())
		}
		size := int64(*f.Size)
		start := location
		location += size

		window, err := extract.NewWindow(loaded.Bytes, start, size)
		if err != nil {
			return 1, err
		}
		if err := writeSplitFile(base, f, window.Bytes()); err != nil {
			return 1, err
		}
	}

	if len(entryFiles) > 0 {
		suffixLen := int64(len(loaded.Bytes)) - location
		if suffixLen <= 0 {
			return 1, launcherr.New(launcherr.InvalidLayout,
				"manifest declares entry-locator files but the scie has no trailing zip suffix")
		}
		suffix, err := extract.NewWindow(loaded.Bytes, location, suffixLen)
		if err != nil {
			return 1, err
		}
		zr, err := zip.NewReader(bytes.NewReader(suffix.Bytes()), suffix.Len())
		if err != nil {
			return 1, launcherr.Wrap(launcherr.InvalidLayout, err, "failed to open trailing zip suffix as an entry archive")
		}
		index := make(map[string]*zip.File, len(zr.File))
		for _, zf := range zr.File {
			index[zf.Name] = zf
		}
		for _, f := range entryFiles {
			zf, ok := index[*f.Entry]
			if !ok {
				return 1, launcherr.New(launcherr.MissingFile, "entry locator %q not found in the trailing zip suffix", *f.Entry)
			}
			src, err := zf.Open()
			if err != nil {
				return 1, launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to open entry %q", *f.Entry)
			}
			var buf bytes.Buffer
			_, copyErr := buf.ReadFrom(src)
			src.Close()
			if copyErr != nil {
				return 1, launcherr.Wrap(launcherr.ExtractionFailure, copyErr, "failed to read entry %q", *f.Entry)
			}
			if err := writeSplitFile(base, f, buf.Bytes()); err != nil {
				return 1, err
			}
		}
	}

	formatted, err := (&lift.Formatter{Pretty: true, TrailingNewline: true}).Format(loaded.Manifest)
	if err != nil {
		return 1, launcherr.Wrap(launcherr.InvalidManifest, err, "failed to serialize manifest for split")
	}
	if err := writeNewFile(filepath.Join(base, "lift.json"), formatted, false); err != nil {
		return 1, err
	}

	return 0, nil
}

func writeSplitFile(base string, f lift.File, data []byte) error {
	name := f.Name
	if name == "" {
		name = f.CacheName()
	}
	dst := filepath.Join(base, name)
	if parent := filepath.Dir(dst); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return launcherr.Wrap(launcherr.IOError, err, "failed to create parent directory for %q", dst)
		}
	}
	return writeNewFile(dst, data, false)
}

func writeNewFile(path string, data []byte, executable bool) error {
	mode := os.FileMode(0o640)
	if executable {
		mode = 0o755
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	file, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return launcherr.Wrap(launcherr.IOError, err, "failed to open %q for writing", path)
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		return launcherr.Wrap(launcherr.IOError, err, "failed to write %q", path)
	}
	return nil
}
