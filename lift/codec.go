package lift

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/nce-project/nce/launcherr"
)

// scieDocument is the on-wire root shape: {"scie": {"lift": ..., "jump"?: ...}}
// (spec.md §6).
type scieDocument struct {
	Scie struct {
		Lift json.RawMessage `json:"lift"`
		Jump json.RawMessage `json:"jump,omitempty"`
	} `json:"scie"`
}

// Parse decodes raw manifest JSON bytes into a Manifest. path is the
// absolute path of the current executable, stamped onto the transient
// Manifest.Path field.
func Parse(raw []byte, path string) (*Manifest, error) {
	var doc scieDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, launcherr.Wrap(launcherr.InvalidManifest, err, "failed to parse manifest JSON")
	}
	if len(doc.Scie.Lift) == 0 {
		return nil, launcherr.New(launcherr.InvalidManifest, "manifest is missing its \"scie.lift\" key")
	}
	var wireLift wireLift
	if err := json.Unmarshal(doc.Scie.Lift, &wireLift); err != nil {
		return nil, launcherr.Wrap(launcherr.InvalidManifest, err, "failed to parse lift payload")
	}
	lift, err := wireLift.toLift()
	if err != nil {
		return nil, err
	}
	manifest := &Manifest{Lift: lift, Path: path}
	if len(doc.Scie.Jump) > 0 {
		var jump Jump
		if err := json.Unmarshal(doc.Scie.Jump, &jump); err != nil {
			return nil, launcherr.Wrap(launcherr.InvalidManifest, err, "failed to parse jump stanza")
		}
		manifest.Jump = &jump
	}
	return manifest, nil
}

// Formatter controls the serializer's whitespace conventions (spec.md
// §4.2): pretty vs. compact, and optional leading/trailing newlines.
type Formatter struct {
	Pretty          bool
	LeadingNewline  bool
	TrailingNewline bool
}

// Format serializes manifest according to f.
func (f Formatter) Format(manifest *Manifest) ([]byte, error) {
	wire, err := fromManifest(manifest)
	if err != nil {
		return nil, err
	}
	var body []byte
	if f.Pretty {
		body, err = json.MarshalIndent(wire, "", "  ")
	} else {
		body, err = json.Marshal(wire)
	}
	if err != nil {
		return nil, launcherr.Wrap(launcherr.InvalidManifest, err, "failed to serialize manifest")
	}
	var buf bytes.Buffer
	if f.LeadingNewline {
		buf.WriteByte('\n')
	}
	buf.Write(body)
	if f.TrailingNewline {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// HashAndSize computes the size and SHA-256 hash of a formatted
// manifest, the values the packer stamps into Lift.Size / Lift.Hash
// (spec.md §3).
func HashAndSize(body []byte) (size uint32, hash string) {
	sum := sha256.Sum256(body)
	return uint32(len(body)), hex.EncodeToString(sum[:])
}

func fromManifest(manifest *Manifest) (scieDocumentOut, error) {
	var out scieDocumentOut
	wl, err := fromLift(manifest.Lift)
	if err != nil {
		return out, err
	}
	out.Scie.Lift = wl
	out.Scie.Jump = manifest.Jump
	return out, nil
}

type scieDocumentOut struct {
	Scie struct {
		Lift wireLift `json:"lift"`
		Jump *Jump    `json:"jump,omitempty"`
	} `json:"scie"`
}

// wireLift/wireFile/wireEnvVar mirror Lift/File/EnvVar but with the
// non-trivial tagged-union encodings spelled out explicitly (spec.md
// §4.2), rather than leaning on encoding/json's limited struct tags.
type wireLift struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Base        string     `json:"base,omitempty"`
	Files       []wireFile `json:"files"`
	Boot        wireBoot   `json:"boot"`
	Size        uint32     `json:"size"`
	Hash        string     `json:"hash"`
}

type wireFile struct {
	Type          string  `json:"type"`
	Name          string  `json:"name,omitempty"`
	Key           string  `json:"key,omitempty"`
	Size          *uint64 `json:"size,omitempty"`
	Entry         *string `json:"entry,omitempty"`
	Hash          string  `json:"hash,omitempty"`
	AlwaysExtract bool    `json:"always_extract,omitempty"`
	ArchiveType   string  `json:"archive_type,omitempty"`
}

type wireBoot struct {
	Commands map[string]wireCmd `json:"commands,omitempty"`
	Bindings map[string]wireCmd `json:"bindings,omitempty"`
}

type wireCmd struct {
	Exe             string          `json:"exe"`
	Args            []string        `json:"args,omitempty"`
	Env             []string        `json:"env,omitempty"`
	AdditionalFiles []string        `json:"additional_files,omitempty"`
	Description     string          `json:"description,omitempty"`
	envValues       map[string]*string
}

// MarshalJSON encodes Cmd.Env as an object (since order within a
// command's env is not semantically significant — §4.4 treats cmd_env
// as a map) using the Default/"=Replace" name convention.
func (c wireCmd) MarshalJSON() ([]byte, error) {
	envObj := make(map[string]*string, len(c.Env))
	for _, key := range c.Env {
		name := strings.TrimPrefix(key, "=")
		envObj[key] = c.envValues[name]
	}
	raw := struct {
		Exe             string             `json:"exe"`
		Args            []string           `json:"args,omitempty"`
		Env             map[string]*string `json:"env,omitempty"`
		AdditionalFiles []string           `json:"additional_files,omitempty"`
		Description     string             `json:"description,omitempty"`
	}{c.Exe, c.Args, envObj, c.AdditionalFiles, c.Description}
	return json.Marshal(raw)
}

func (c *wireCmd) UnmarshalJSON(data []byte) error {
	raw := struct {
		Exe             string             `json:"exe"`
		Args            []string           `json:"args,omitempty"`
		Env             map[string]*string `json:"env,omitempty"`
		AdditionalFiles []string           `json:"additional_files,omitempty"`
		Description     string             `json:"description,omitempty"`
	}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Exe = raw.Exe
	c.Args = raw.Args
	c.AdditionalFiles = raw.AdditionalFiles
	c.Description = raw.Description
	c.envValues = make(map[string]*string, len(raw.Env))
	for key, value := range raw.Env {
		name := strings.TrimPrefix(key, "=")
		c.Env = append(c.Env, key)
		c.envValues[name] = value
	}
	return nil
}

func parseArchiveType(s string) (ArchiveType, error) {
	at, ok := canonicalArchiveTypes[s]
	if !ok {
		return "", launcherr.New(launcherr.InvalidManifest, "unknown archive_type %q", s)
	}
	return at, nil
}

func parseEnvVar(wireKey string, value *string) EnvVar {
	if strings.HasPrefix(wireKey, "=") {
		return EnvVar{Kind: EnvReplace, Name: wireKey[1:], Value: value}
	}
	return EnvVar{Kind: EnvDefault, Name: wireKey, Value: value}
}

func toCmd(wc wireCmd) Cmd {
	cmd := Cmd{
		Exe:             wc.Exe,
		Args:            wc.Args,
		AdditionalFiles: wc.AdditionalFiles,
		Description:     wc.Description,
	}
	for _, key := range wc.Env {
		name := strings.TrimPrefix(key, "=")
		cmd.Env = append(cmd.Env, parseEnvVar(key, wc.envValues[name]))
	}
	return cmd
}

func fromCmd(cmd Cmd) wireCmd {
	wc := wireCmd{
		Exe:             cmd.Exe,
		Args:            cmd.Args,
		AdditionalFiles: cmd.AdditionalFiles,
		Description:     cmd.Description,
		envValues:       make(map[string]*string, len(cmd.Env)),
	}
	for _, ev := range cmd.Env {
		wc.Env = append(wc.Env, ev.String())
		wc.envValues[ev.Name] = ev.Value
	}
	return wc
}

func (wl wireLift) toLift() (Lift, error) {
	lift := Lift{
		Name:        wl.Name,
		Description: wl.Description,
		Base:        wl.Base,
		Size:        wl.Size,
		Hash:        wl.Hash,
		Boot: Boot{
			Commands: make(map[string]Cmd, len(wl.Boot.Commands)),
			Bindings: make(map[string]Cmd, len(wl.Boot.Bindings)),
		},
	}
	for name, wc := range wl.Boot.Commands {
		lift.Boot.Commands[name] = toCmd(wc)
	}
	for name, wc := range wl.Boot.Bindings {
		lift.Boot.Bindings[name] = toCmd(wc)
	}
	for _, wf := range wl.Files {
		file, err := wf.toFile()
		if err != nil {
			return Lift{}, err
		}
		lift.Files = append(lift.Files, file)
	}
	return lift, nil
}

func fromLift(lift Lift) (wireLift, error) {
	wl := wireLift{
		Name:        lift.Name,
		Description: lift.Description,
		Base:        lift.Base,
		Size:        lift.Size,
		Hash:        lift.Hash,
		Boot: wireBoot{
			Commands: make(map[string]wireCmd, len(lift.Boot.Commands)),
			Bindings: make(map[string]wireCmd, len(lift.Boot.Bindings)),
		},
	}
	for name, cmd := range lift.Boot.Commands {
		wl.Boot.Commands[name] = fromCmd(cmd)
	}
	for name, cmd := range lift.Boot.Bindings {
		wl.Boot.Bindings[name] = fromCmd(cmd)
	}
	for _, file := range lift.Files {
		wf, err := fromFile(file)
		if err != nil {
			return wireLift{}, err
		}
		wl.Files = append(wl.Files, wf)
	}
	return wl, nil
}

func (wf wireFile) toFile() (File, error) {
	file := File{
		Name:          wf.Name,
		Key:           wf.Key,
		Hash:          wf.Hash,
		AlwaysExtract: wf.AlwaysExtract,
		Locator:       Locator{Size: wf.Size, Entry: wf.Entry},
	}
	switch wf.Type {
	case string(FileTypeBlob):
		file.Type = FileTypeBlob
	case string(FileTypeArchive):
		file.Type = FileTypeArchive
		at, err := parseArchiveType(wf.ArchiveType)
		if err != nil {
			return File{}, err
		}
		file.ArchiveType = at
	default:
		return File{}, launcherr.New(launcherr.InvalidManifest, "file %q has unknown type %q", wf.Name, wf.Type)
	}
	return file, nil
}

func fromFile(file File) (wireFile, error) {
	wf := wireFile{
		Name:          file.Name,
		Key:           file.Key,
		Hash:          file.Hash,
		AlwaysExtract: file.AlwaysExtract,
		Size:          file.Locator.Size,
		Entry:         file.Locator.Entry,
		Type:          string(file.Type),
	}
	if file.Type == FileTypeArchive {
		wf.ArchiveType = string(file.ArchiveType)
	}
	return wf, nil
}
