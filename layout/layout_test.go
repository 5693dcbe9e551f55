package layout

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildEOCD returns a minimal 22-byte EOCD record (no entries) with
// the given trailing comment.
func buildEOCD(comment []byte) []byte {
	buf := make([]byte, eocdMinSize)
	copy(buf[0:4], eocdSignature[:])
	binary.LittleEndian.PutUint16(buf[eocdMinSize-2:], uint16(len(comment)))
	return append(buf, comment...)
}

func TestEndOfZipFindsManifestStart(t *testing.T) {
	stub := bytes.Repeat([]byte{0xAA}, 100)
	stub = append(stub, buildEOCD(nil)...) // the stub's own inner zip EOCD

	payload := []byte("payload-bytes")
	outerEOCD := buildEOCD([]byte("hi"))
	manifest := []byte(`{"scie":{"lift":{}}}`)

	data := append([]byte{}, stub...)
	data = append(data, payload...)
	data = append(data, outerEOCD...)
	data = append(data, manifest...)

	manifestStart, err := EndOfZip(data, 0)
	if err != nil {
		t.Fatalf("EndOfZip: %v", err)
	}
	wantStart := len(stub) + len(payload) + len(outerEOCD)
	if manifestStart != wantStart {
		t.Fatalf("manifestStart = %d, want %d", manifestStart, wantStart)
	}
	if !bytes.Equal(data[manifestStart:], manifest) {
		t.Fatalf("manifest slice mismatch: %q", data[manifestStart:])
	}
}

func TestEndOfZipMissingSignature(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, 64)
	if _, err := EndOfZip(data, 0); err == nil {
		t.Fatalf("expected error when EOCD signature is absent")
	}
}

func TestReadTrailerAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stub")
	if err := os.WriteFile(path, []byte("not a stub trailer, just bytes"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	jump, err := ReadTrailer(path, "9.9.9")
	if err != nil {
		t.Fatalf("ReadTrailer: %v", err)
	}
	if jump != nil {
		t.Fatalf("expected nil Jump for a file with no trailer magic, got %+v", jump)
	}
}

func TestReadTrailerV2(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stub")
	body := []byte("stub-body-bytes")
	version := "1.2.3"

	var buf bytes.Buffer
	buf.Write(body)
	buf.WriteByte(byte(len(version)))
	buf.WriteString(version)

	var sizeField [4]byte
	totalSize := uint32(buf.Len() + 4 + 4) // + size field + magic field
	binary.LittleEndian.PutUint32(sizeField[:], totalSize)
	buf.Write(sizeField[:])

	var magicField [4]byte
	binary.LittleEndian.PutUint32(magicField[:], magicV2)
	buf.Write(magicField[:])

	if err := os.WriteFile(path, buf.Bytes(), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	jump, err := ReadTrailer(path, "9.9.9")
	if err != nil {
		t.Fatalf("ReadTrailer: %v", err)
	}
	if jump == nil {
		t.Fatalf("expected a Jump trailer to be recognized")
	}
	if jump.Version != version {
		t.Fatalf("version = %q, want %q", jump.Version, version)
	}
	if jump.Size != totalSize {
		t.Fatalf("size = %d, want %d", jump.Size, totalSize)
	}
}

func TestReadTrailerV2SizeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stub")
	var buf bytes.Buffer
	buf.WriteString("body")
	buf.WriteByte(1)
	buf.WriteString("x")
	var sizeField [4]byte
	binary.LittleEndian.PutUint32(sizeField[:], 99999) // wrong on purpose
	buf.Write(sizeField[:])
	var magicField [4]byte
	binary.LittleEndian.PutUint32(magicField[:], magicV2)
	buf.Write(magicField[:])
	if err := os.WriteFile(path, buf.Bytes(), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadTrailer(path, "9.9.9"); err == nil {
		t.Fatalf("expected InvalidLayout error for size mismatch")
	}
}
