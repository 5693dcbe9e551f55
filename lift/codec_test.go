package lift

import (
	"encoding/json"
	"testing"
)

func TestParseMinimalManifest(t *testing.T) {
	raw := []byte(`{
		"scie": {
			"lift": {
				"name": "demo",
				"files": [
					{"type": "blob", "name": "python", "size": 128, "hash": "abc123"}
				],
				"boot": {
					"commands": {"": {"exe": "{python}/bin/python3"}}
				},
				"size": 64,
				"hash": "deadbeef"
			}
		}
	}`)
	manifest, err := Parse(raw, "/opt/app")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if manifest.Lift.Name != "demo" {
		t.Fatalf("name = %q, want demo", manifest.Lift.Name)
	}
	if manifest.Path != "/opt/app" {
		t.Fatalf("path = %q, want /opt/app", manifest.Path)
	}
	if len(manifest.Lift.Files) != 1 || manifest.Lift.Files[0].Type != FileTypeBlob {
		t.Fatalf("files = %+v", manifest.Lift.Files)
	}
	cmd, ok := manifest.Lift.Boot.Commands[""]
	if !ok {
		t.Fatalf("missing default boot command")
	}
	if cmd.Exe != "{python}/bin/python3" {
		t.Fatalf("exe = %q", cmd.Exe)
	}
}

func TestArchiveTypeAliases(t *testing.T) {
	cases := map[string]ArchiveType{
		"tar.gz": ArchiveTarGz, "tgz": ArchiveTarGz,
		"tar.bz2": ArchiveTarBz2, "tbz2": ArchiveTarBz2,
		"tar.xz": ArchiveTarXz, "tar.lzma": ArchiveTarXz, "tlz": ArchiveTarXz,
		"tar.zst": ArchiveTarZst, "tzst": ArchiveTarZst,
		"tar.Z": ArchiveTarZ, "tar": ArchiveTar, "zip": ArchiveZip,
	}
	for alias, want := range cases {
		got, err := parseArchiveType(alias)
		if err != nil {
			t.Fatalf("parseArchiveType(%q): %v", alias, err)
		}
		if got != want {
			t.Fatalf("parseArchiveType(%q) = %v, want %v", alias, got, want)
		}
	}
	if _, err := parseArchiveType("rar"); err == nil {
		t.Fatalf("expected error for unknown archive type")
	}
}

func TestEnvVarWireConvention(t *testing.T) {
	raw := []byte(`{
		"scie": {
			"lift": {
				"name": "demo",
				"files": [],
				"boot": {
					"commands": {
						"run": {
							"exe": "foo",
							"env": {"PATH": "a", "=HOME": "/root"}
						}
					}
				},
				"size": 1,
				"hash": "x"
			}
		}
	}`)
	manifest, err := Parse(raw, "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cmd := manifest.Lift.Boot.Commands["run"]
	kinds := map[string]EnvKind{}
	for _, ev := range cmd.Env {
		kinds[ev.Name] = ev.Kind
	}
	if kinds["PATH"] != EnvDefault {
		t.Fatalf("PATH kind = %v, want Default", kinds["PATH"])
	}
	if kinds["HOME"] != EnvReplace {
		t.Fatalf("HOME kind = %v, want Replace", kinds["HOME"])
	}
}

func TestRoundTrip(t *testing.T) {
	value := "bar"
	manifest := &Manifest{
		Lift: Lift{
			Name: "demo",
			Files: []File{
				{Type: FileTypeBlob, Name: "a", Hash: "h1", Locator: Locator{Size: uint64Ptr(10)}},
				{Type: FileTypeArchive, Name: "b", Hash: "h2", ArchiveType: ArchiveTarGz, Locator: Locator{Size: uint64Ptr(20)}},
			},
			Boot: Boot{
				Commands: map[string]Cmd{
					"": {
						Exe:  "{a}",
						Args: []string{"--flag"},
						Env:  []EnvVar{{Kind: EnvReplace, Name: "FOO", Value: &value}},
					},
				},
			},
			Size: 5,
			Hash: "deadbeef",
		},
	}
	body, err := Formatter{}.Format(manifest)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	round, err := Parse(body, "")
	if err != nil {
		t.Fatalf("Parse round-trip: %v", err)
	}
	if round.Lift.Name != "demo" || len(round.Lift.Files) != 2 {
		t.Fatalf("round trip mismatch: %+v", round.Lift)
	}
	if round.Lift.Files[1].ArchiveType != ArchiveTarGz {
		t.Fatalf("archive type lost: %+v", round.Lift.Files[1])
	}
	cmd := round.Lift.Boot.Commands[""]
	if len(cmd.Env) != 1 || cmd.Env[0].Kind != EnvReplace || cmd.Env[0].Name != "FOO" || *cmd.Env[0].Value != "bar" {
		t.Fatalf("env round trip mismatch: %+v", cmd.Env)
	}
}

func TestFormatterNewlines(t *testing.T) {
	manifest := &Manifest{Lift: Lift{Name: "demo", Boot: Boot{}}}
	body, err := Formatter{LeadingNewline: true, TrailingNewline: true}.Format(manifest)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if body[0] != '\n' || body[len(body)-1] != '\n' {
		t.Fatalf("expected leading/trailing newline, got %q", body)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		t.Fatalf("inner document not valid JSON: %v", err)
	}
}

func uint64Ptr(v uint64) *uint64 { return &v }
