package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"

	"github.com/nce-project/nce/launcherr"
	"github.com/nce-project/nce/lift"
)

// Result maps each extracted file's reference (its name, or key when
// unnamed) to the absolute path its cache entry now lives at: the
// blob file itself, or the archive's extraction directory.
type Result map[string]string

// Run executes spec.md §4.7's extraction engine over payload (the
// current executable's bytes, unsliced) for manifest, writing under
// base (already home-directory-expanded). wanted is the to-extract
// set built by unioning a boot command's replacements with its
// additional_files; a nil wanted set means "extract every file that
// is marked always_extract and nothing else".
func Run(manifest *lift.Manifest, payload []byte, base string, wanted map[string]bool) (Result, error) {
	if manifest.Jump == nil {
		return nil, launcherr.New(launcherr.InvalidLayout, "manifest has no jump record; cannot locate payload offsets")
	}

	result := make(Result)
	location := int64(manifest.Jump.Size)
	var entryFiles []lift.File

	for _, f := range manifest.Lift.Files {
		if f.IsEntry() {
			entryFiles = append(entryFiles, f)
			continue
		}
		if f.Size == nil {
			return nil, launcherr.New(launcherr.InvalidManifest,
				"file %q has neither a size nor an entry locator", f.CacheName())
		}
		size := int64(*f.Size)
		start := location
		location += size

		if !wantsFile(f, wanted) {
			continue
		}
		cachePath, err := extractSized(f, payload, start, size, base)
		if err != nil {
			return nil, err
		}
		result[refKey(f)] = cachePath
	}

	if len(entryFiles) == 0 {
		return result, nil
	}

	suffixLen := int64(len(payload)) - location
	if suffixLen <= 0 {
		return nil, launcherr.New(launcherr.InvalidLayout,
			"manifest declares entry-locator files but the payload has no trailing zip suffix")
	}
	suffix, err := NewWindow(payload, location, suffixLen)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(suffix.Bytes()), suffix.Len())
	if err != nil {
		return nil, launcherr.Wrap(launcherr.InvalidLayout, err, "failed to open trailing zip suffix as an entry archive")
	}
	index := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		index[zf.Name] = zf
	}

	for _, f := range entryFiles {
		if !wantsFile(f, wanted) {
			continue
		}
		cachePath, err := extractEntry(f, index, base)
		if err != nil {
			return nil, err
		}
		result[refKey(f)] = cachePath
	}
	return result, nil
}

func wantsFile(f lift.File, wanted map[string]bool) bool {
	if f.AlwaysExtract {
		return true
	}
	if wanted == nil {
		return false
	}
	if f.Name != "" && wanted[f.Name] {
		return true
	}
	if f.Key != "" && wanted[f.Key] {
		return true
	}
	return false
}

func refKey(f lift.File) string {
	if f.Name != "" {
		return f.Name
	}
	return f.Key
}

func extractSized(f lift.File, payload []byte, start, size int64, base string) (string, error) {
	window, err := NewWindow(payload, start, size)
	if err != nil {
		return "", err
	}
	return materialize(f, window.Bytes(), base)
}

func extractEntry(f lift.File, index map[string]*zip.File, base string) (string, error) {
	entryPath := *f.Entry
	zf, ok := index[entryPath]
	if !ok {
		return "", launcherr.New(launcherr.MissingFile, "entry locator %q not found in the trailing zip suffix", entryPath)
	}
	src, err := zf.Open()
	if err != nil {
		return "", launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to open entry %q", entryPath)
	}
	defer src.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(src); err != nil {
		return "", launcherr.Wrap(launcherr.ExtractionFailure, err, "failed to read entry %q", entryPath)
	}
	return materialize(f, buf.Bytes(), base)
}

// materialize verifies f's declared hash against data and, if the
// cache target is missing, atomically populates it: a blob writes
// data verbatim under its cache file name; an archive decodes data
// into its cache directory per f.ArchiveType.
func materialize(f lift.File, data []byte, base string) (string, error) {
	if f.Hash != "" {
		if got := HashBytes(data); got != f.Hash {
			return "", launcherr.New(launcherr.IntegrityFailure,
				"hash mismatch for %q: manifest declares %s, payload window hashes to %s", f.CacheName(), f.Hash, got)
		}
	}

	cacheDir := filepath.Join(base, f.Hash)

	switch f.Type {
	case lift.FileTypeBlob:
		blobPath := filepath.Join(cacheDir, f.CacheName())
		err := AtomicDirectory(cacheDir, func(workDir string) error {
			dst := filepath.Join(workDir, f.CacheName())
			return os.WriteFile(dst, data, 0o640)
		})
		if err != nil {
			return "", err
		}
		return blobPath, nil
	case lift.FileTypeArchive:
		err := AtomicDirectory(cacheDir, func(workDir string) error {
			return decodeArchive(f.ArchiveType, data, workDir)
		})
		if err != nil {
			return "", err
		}
		return cacheDir, nil
	default:
		return "", launcherr.New(launcherr.InvalidManifest, "file %q has unknown type %q", f.CacheName(), f.Type)
	}
}
