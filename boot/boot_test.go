package boot

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/nce-project/nce/extract"
	"github.com/nce-project/nce/lift"
)

// buildEOCD returns a minimal 22-byte ZIP end-of-central-directory
// record with no entries, mirroring package layout's own test helper.
func buildEOCD() []byte {
	const eocdMinSize = 22
	buf := make([]byte, eocdMinSize)
	copy(buf[0:4], []byte{0x50, 0x4b, 0x05, 0x06})
	binary.LittleEndian.PutUint16(buf[eocdMinSize-2:], 0)
	return buf
}

// testManifest builds a manifest describing a single 5-byte blob file
// ("hello") and a "run" boot command, with jump.size set to stubSize.
// Base is pinned to a scratch directory so a test that reaches the
// extraction cache never touches the real user cache directory.
func testManifest(t *testing.T, stubSize int) *lift.Manifest {
	t.Helper()
	size := uint64(5)
	return &lift.Manifest{
		Jump: &lift.Jump{Size: uint32(stubSize)},
		Lift: lift.Lift{
			Name: "app",
			Base: t.TempDir(),
			Files: []lift.File{
				{Type: lift.FileTypeBlob, Name: "payload.bin", Hash: extract.HashBytes([]byte("hello")), Locator: lift.Locator{Size: &size}},
			},
			Boot: lift.Boot{
				Commands: map[string]lift.Cmd{
					"run": {Exe: "{payload.bin}"},
				},
			},
		},
	}
}

// writeTestScie assembles [stub][payload][EOCD][manifest] on disk, the
// layout spec.md §4.1 describes, and returns its path.
func writeTestScie(t *testing.T, stub []byte, payload []byte, manifest *lift.Manifest) string {
	t.Helper()
	body, err := (&lift.Formatter{}).Format(manifest)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	path := filepath.Join(t.TempDir(), "app")
	data := append(append([]byte{}, stub...), payload...)
	data = append(data, buildEOCD()...)
	data = append(data, body...)
	if err := os.WriteFile(path, data, 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFindsManifestAndPayload(t *testing.T) {
	stub := []byte("nativestub")
	manifest := testManifest(t, len(stub))
	path := writeTestScie(t, stub, []byte("hello"), manifest)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Manifest == nil {
		t.Fatalf("expected a parsed manifest for a concatenated scie")
	}
	if loaded.Manifest.Lift.Name != "app" {
		t.Fatalf("Manifest.Lift.Name = %q, want app", loaded.Manifest.Lift.Name)
	}
	if int(loaded.Manifest.Jump.Size) != len(stub) {
		t.Fatalf("Jump.Size = %d, want %d", loaded.Manifest.Jump.Size, len(stub))
	}
	payloadStart := loaded.Manifest.Jump.Size
	if got := string(loaded.Bytes[payloadStart : payloadStart+5]); got != "hello" {
		t.Fatalf("payload bytes = %q, want %q", got, "hello")
	}
}

func TestHelpListsBootCommandsWithoutError(t *testing.T) {
	manifest := testManifest(t, 0)
	loaded := &Loaded{Path: "/opt/bin/app", Manifest: manifest}
	code, err := Help(loaded)
	if err != nil {
		t.Fatalf("Help: %v", err)
	}
	if code != 0 {
		t.Fatalf("Help exit code = %d, want 0", code)
	}
}

func TestRunWithUnknownSCIEValuePrintsHelpAndFails(t *testing.T) {
	stub := []byte("nativestub")
	manifest := testManifest(t, len(stub))
	path := writeTestScie(t, stub, []byte("hello"), manifest)

	t.Setenv("SCIE", filepath.Join(t.TempDir(), "does-not-exist"))
	code, err := Run(path, []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 1 {
		t.Fatalf("Run exit code = %d, want 1", code)
	}
}

// An existing path in SCIE must route to the normal boot path, not to
// Help's "unknown value" diagnostic: this scie's single file is a sized
// blob of plain data, so selection and extraction succeed and the
// launch step is expected to fail because the extracted blob is not an
// executable program — differently from the unknown-value case, which
// fails with no error at all (code 1, err nil).
func TestRunWithSCIEPathRunsNormalBoot(t *testing.T) {
	stub := []byte("nativestub")
	manifest := testManifest(t, len(stub))
	path := writeTestScie(t, stub, []byte("hello"), manifest)

	t.Setenv("SCIE", path)
	_, err := Run(path, []string{path, "run"})
	if err == nil {
		t.Fatalf("Run: expected the normal boot path to surface an error in this fixture, got nil")
	}
}

func TestSplitAndInspectRoundTrip(t *testing.T) {
	stub := []byte("nativestub")
	manifest := testManifest(t, len(stub))
	path := writeTestScie(t, stub, []byte("hello"), manifest)
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	target := t.TempDir()
	if code, err := Split(loaded, []string{path, target}); err != nil || code != 0 {
		t.Fatalf("Split: code=%d err=%v", code, err)
	}
	payload, err := os.ReadFile(filepath.Join(target, "payload.bin"))
	if err != nil {
		t.Fatalf("reading split payload.bin: %v", err)
	}
	if !bytes.Equal(payload, []byte("hello")) {
		t.Fatalf("split payload.bin = %q, want %q", payload, "hello")
	}
	if _, err := os.Stat(filepath.Join(target, "lift.json")); err != nil {
		t.Fatalf("expected lift.json to be written: %v", err)
	}

	if code, err := Inspect(loaded); err != nil || code != 0 {
		t.Fatalf("Inspect: code=%d err=%v", code, err)
	}
}
