package extract

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/nce-project/nce/lift"
)

func buildZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, contents := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create(%s): %v", name, err)
		}
		if _, err := w.Write([]byte(contents)); err != nil {
			t.Fatalf("zip Write(%s): %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	return buf.Bytes()
}

func buildTarGzBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, contents := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(contents))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar WriteHeader(%s): %v", name, err)
		}
		if _, err := tw.Write([]byte(contents)); err != nil {
			t.Fatalf("tar Write(%s): %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip Close: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeArchiveZip(t *testing.T) {
	data := buildZipBytes(t, map[string]string{
		"a.txt":        "hello",
		"nested/b.txt": "world",
	})
	dir := t.TempDir()
	if err := decodeArchive(lift.ArchiveZip, data, dir); err != nil {
		t.Fatalf("decodeArchive: %v", err)
	}
	assertFileContents(t, filepath.Join(dir, "a.txt"), "hello")
	assertFileContents(t, filepath.Join(dir, "nested", "b.txt"), "world")
}

func TestDecodeArchiveTarGz(t *testing.T) {
	data := buildTarGzBytes(t, map[string]string{"c.txt": "payload"})
	dir := t.TempDir()
	if err := decodeArchive(lift.ArchiveTarGz, data, dir); err != nil {
		t.Fatalf("decodeArchive: %v", err)
	}
	assertFileContents(t, filepath.Join(dir, "c.txt"), "payload")
}

func TestDecodeArchiveUnknownType(t *testing.T) {
	if err := decodeArchive(lift.ArchiveType("unknown"), nil, t.TempDir()); err == nil {
		t.Fatalf("expected an error for an unrecognized archive type")
	}
}

func TestSafeJoinNeutralizesTraversal(t *testing.T) {
	// Clean("/"+"../escape.txt") collapses to "/escape.txt", landing
	// inside base rather than above it.
	target, err := safeJoin("/base", "../escape.txt")
	if err != nil {
		t.Fatalf("safeJoin: %v", err)
	}
	if target != filepath.Join("/base", "escape.txt") {
		t.Fatalf("safeJoin traversal not neutralized: %s", target)
	}
}

func assertFileContents(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	if string(got) != want {
		t.Fatalf("%s contents = %q, want %q", path, got, want)
	}
}
