// Package lift holds the manifest data model (spec.md §3) and its JSON
// codec (spec.md §4.2): the root "scie" document, the lift payload
// description, tagged-union files, boot commands, and the env-var and
// locator encodings the packer and launcher agree on.
package lift

// DefaultBase is substituted for Lift.Base when the manifest omits it
// (spec.md §4.2).
const DefaultBase = "~/.nce"

// Jump describes the stub prefix: its on-disk size and the launcher
// version that produced it.
type Jump struct {
	Size    uint32 `json:"size"`
	Version string `json:"version"`
}

// Manifest is the parsed root document. Path is transient: it is never
// read from or written to JSON, only filled in by the loader with the
// absolute path of the current executable (spec.md §3).
type Manifest struct {
	Jump *Jump  `json:"jump,omitempty"`
	Lift Lift   `json:"lift"`
	Path string `json:"-"`
}

// Lift is the payload description (spec.md §3).
type Lift struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Base        string `json:"base,omitempty"`
	Files       []File `json:"files"`
	Boot        Boot   `json:"boot"`
	Size        uint32 `json:"size"`
	Hash        string `json:"hash"`
}

// ExpandedBase returns l.Base with any DefaultBase substitution and
// leading "~" applied, via the supplied home-directory expander.
func (l Lift) ExpandedBase(expandUser func(string) (string, error)) (string, error) {
	base := l.Base
	if base == "" {
		base = DefaultBase
	}
	return expandUser(base)
}

// FileType distinguishes the two File shapes (spec.md §3).
type FileType string

const (
	FileTypeBlob    FileType = "blob"
	FileTypeArchive FileType = "archive"
)

// ArchiveType is the closed set of archive decoders the extraction
// engine dispatches to (spec.md §3, §4.2).
type ArchiveType string

const (
	ArchiveZip    ArchiveType = "zip"
	ArchiveTar    ArchiveType = "tar"
	ArchiveTarBz2 ArchiveType = "tar.bz2"
	ArchiveTarGz  ArchiveType = "tar.gz"
	ArchiveTarXz  ArchiveType = "tar.xz"
	ArchiveTarZ   ArchiveType = "tar.Z"
	ArchiveTarZst ArchiveType = "tar.zst"
)

// canonicalArchiveTypes maps every accepted spelling (canonical and
// alias) to its canonical form, per spec.md §4.2's alias list.
var canonicalArchiveTypes = map[string]ArchiveType{
	"zip":       ArchiveZip,
	"tar":       ArchiveTar,
	"tar.bz2":   ArchiveTarBz2,
	"tbz2":      ArchiveTarBz2,
	"tar.gz":    ArchiveTarGz,
	"tgz":       ArchiveTarGz,
	"tar.xz":    ArchiveTarXz,
	"tar.lzma":  ArchiveTarXz,
	"tlz":       ArchiveTarXz,
	"tar.Z":     ArchiveTarZ,
	"tar.zst":   ArchiveTarZst,
	"tzst":      ArchiveTarZst,
}

// Locator is either a sized, payload-embedded file or a path inside
// the trailing zip entry (spec.md §3, §4.7).
type Locator struct {
	Size  *uint64 `json:"size,omitempty"`
	Entry *string `json:"entry,omitempty"`
}

// IsEntry reports whether this locator addresses a zip-entry file
// rather than a sized payload window.
func (l Locator) IsEntry() bool {
	return l.Entry != nil
}

// File is the tagged union of Blob and Archive (spec.md §3).
type File struct {
	Type          FileType    `json:"type"`
	Name          string      `json:"name,omitempty"`
	Key           string      `json:"key,omitempty"`
	Hash          string      `json:"hash,omitempty"`
	AlwaysExtract bool        `json:"always_extract,omitempty"`
	ArchiveType   ArchiveType `json:"archive_type,omitempty"`
	Locator
}

// MatchesRef reports whether ref names this file either by its full
// name or by its shorter key, per spec.md §3's "lookups by {scie.files.X}
// match either" rule.
func (f File) MatchesRef(ref string) bool {
	return (f.Name != "" && f.Name == ref) || (f.Key != "" && f.Key == ref)
}

// CacheName is the name component used to build this file's cache
// path (name if set, else key — archives may omit name per spec.md §3).
func (f File) CacheName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Key
}

// Cmd is a boot command (spec.md §3).
type Cmd struct {
	Exe             string   `json:"exe"`
	Args            []string `json:"args,omitempty"`
	Env             []EnvVar `json:"env,omitempty"`
	AdditionalFiles []string `json:"additional_files,omitempty"`
	Description     string   `json:"description,omitempty"`
}

// Boot hosts the user-selectable and binding-only command sets
// (spec.md §3).
type Boot struct {
	Commands map[string]Cmd `json:"commands,omitempty"`
	Bindings map[string]Cmd `json:"bindings,omitempty"`
}

// EnvKind distinguishes Default(NAME) from Replace(NAME) (spec.md §3,
// §4.4).
type EnvKind int

const (
	EnvDefault EnvKind = iota
	EnvReplace
)

// EnvVar is one entry of a Cmd's declared environment: a name tagged
// Default or Replace, with its (possibly placeholder-bearing, possibly
// absent) value string.
type EnvVar struct {
	Kind  EnvKind
	Name  string
	Value *string
}

func (e EnvVar) String() string {
	if e.Kind == EnvReplace {
		return "=" + e.Name
	}
	return e.Name
}
