// Package launchctx holds the per-launch Context (spec.md §4.5, §4.6):
// the loaded manifest indexed by file name, the expanded cache base,
// the replacements set a command's placeholders accumulate, and boot
// command selection.
package launchctx

import (
	"os"
	"path/filepath"

	"github.com/nce-project/nce/cmdenv"
	"github.com/nce-project/nce/extract"
	"github.com/nce-project/nce/internal/common"
	"github.com/nce-project/nce/internal/pathlib"
	"github.com/nce-project/nce/launcherr"
	"github.com/nce-project/nce/lift"
	"github.com/nce-project/nce/placeholders"
)

// Boot names one of the manifest's user-selectable commands, for
// reporting to the user when no command could be selected (spec.md
// §4.6, step 5).
type Boot struct {
	Name        string
	Description string
}

// Context is built once per launch from the parsed manifest.
type Context struct {
	scie         string
	commands     map[string]lift.Cmd
	bindings     map[string]lift.Cmd
	base         string
	filesByName  map[string]lift.File
	filesByKey   map[string]lift.File
	jumpSize     uint32
	configSize   uint32
	files        []lift.File
	replacements map[string]lift.File
	liftJSON     []byte
	liftPath     string
}

// New builds a Context from manifest, whose Path field must already
// hold the absolute current-executable path and whose Jump must be
// non-nil (the manifest was found attached to a real stub).
func New(manifest *lift.Manifest) (*Context, error) {
	if manifest.Jump == nil {
		return nil, launcherr.New(launcherr.InvalidLayout, "cannot build a launch context without a jump record")
	}
	base, err := manifest.Lift.ExpandedBase(pathlib.ExpandUser)
	if err != nil {
		return nil, launcherr.Wrap(launcherr.InvalidLayout, err, "failed to expand cache base directory")
	}

	filesByName := make(map[string]lift.File, len(manifest.Lift.Files))
	filesByKey := make(map[string]lift.File, len(manifest.Lift.Files))
	for _, f := range manifest.Lift.Files {
		if f.Name != "" {
			filesByName[f.Name] = f
		}
		if f.Key != "" {
			filesByKey[f.Key] = f
		}
	}

	return &Context{
		scie:         manifest.Path,
		commands:     manifest.Lift.Boot.Commands,
		bindings:     manifest.Lift.Boot.Bindings,
		base:         base,
		filesByName:  filesByName,
		filesByKey:   filesByKey,
		jumpSize:     manifest.Jump.Size,
		configSize:   manifest.Lift.Size,
		files:        manifest.Lift.Files,
		replacements: make(map[string]lift.File),
	}, nil
}

// Base returns the expanded cache base directory.
func (c *Context) Base() string { return c.base }

// Scie returns the absolute path of the current executable.
func (c *Context) Scie() string { return c.scie }

// Replacements returns the set of files placeholder reification has
// referenced so far, keyed by cache name.
func (c *Context) Replacements() map[string]lift.File {
	return c.replacements
}

// ToExtractSet adapts Replacements to the shape package extract's Run
// wants (spec.md §4.7, step 1: "union replacements with additional_files").
func (c *Context) ToExtractSet() map[string]bool {
	set := make(map[string]bool, len(c.replacements))
	for name := range c.replacements {
		set[name] = true
	}
	return set
}

// Boots lists the manifest's user-selectable commands for reporting
// to the user when boot selection fails (spec.md §4.6, step 5).
func (c *Context) Boots() []Boot {
	boots := make([]Boot, 0, len(c.commands))
	for name, cmd := range c.commands {
		boots = append(boots, Boot{Name: name, Description: cmd.Description})
	}
	return boots
}

// getFile looks up ref by either its name or its key, per spec.md §3:
// "each file is indexed by both name and optional key; lookups by
// {scie.files.X} match either."
func (c *Context) getFile(ref string) (lift.File, bool) {
	if f, ok := c.filesByName[ref]; ok {
		return f, ok
	}
	f, ok := c.filesByKey[ref]
	return f, ok
}

// cachePath is the on-disk location spec.md §3 and §4.7 assign a file:
// `<base>/<hash>/<name>` for a blob, `<base>/<hash>/` for an archive.
func (c *Context) cachePath(f lift.File) string {
	dir := filepath.Join(c.base, f.Hash)
	if f.Type == lift.FileTypeBlob {
		return filepath.Join(dir, f.CacheName())
	}
	return dir
}

// ensureLiftPath materializes a canonical copy of the manifest's JSON
// under the cache, content-addressed the same way a regular file is,
// so {scie.lift} resolves to a stable path the selected command can
// read at runtime.
func (c *Context) ensureLiftPath(manifest *lift.Manifest) (string, error) {
	if c.liftPath != "" {
		return c.liftPath, nil
	}
	body, err := (&lift.Formatter{Pretty: true, TrailingNewline: true}).Format(manifest)
	if err != nil {
		return "", launcherr.Wrap(launcherr.InvalidManifest, err, "failed to re-serialize the manifest for {scie.lift}")
	}
	hash := extract.HashBytes(body)
	dir := filepath.Join(c.base, hash)
	path := filepath.Join(dir, "lift.json")

	if err := extract.AtomicDirectory(dir, func(workDir string) error {
		return os.WriteFile(filepath.Join(workDir, "lift.json"), body, 0o640)
	}); err != nil {
		return "", err
	}
	c.liftPath = path
	return path, nil
}

// ReifyString walks value's placeholder grammar and substitutes every
// recognized placeholder per spec.md §4.5. ambientEnv is consulted for
// {scie.env.NAME} (ambient only, per §4.5's explicit rule against
// re-entering §4.4's fuller resolution). manifest is needed only to
// materialize {scie.lift} lazily.
func (c *Context) ReifyString(manifest *lift.Manifest, ambientEnv map[string]string, value string) (string, error) {
	items, err := placeholders.Parse(value)
	if err != nil {
		return "", launcherr.Wrap(launcherr.BadPlaceholder, err, "failed to parse placeholders in %q", value)
	}

	var out []byte
	for _, item := range items {
		switch item.Kind {
		case placeholders.LeftBrace:
			out = append(out, '{')
		case placeholders.Text:
			out = append(out, item.Text...)
		case placeholders.PlaceholderItem:
			rendered, err := c.reifyPlaceholder(manifest, ambientEnv, item.Placeholder)
			if err != nil {
				return "", err
			}
			out = append(out, rendered...)
		}
	}
	return string(out), nil
}

func (c *Context) reifyPlaceholder(manifest *lift.Manifest, ambientEnv map[string]string, ph placeholders.Placeholder) (string, error) {
	switch ph.Kind {
	case placeholders.Scie:
		return c.scie, nil
	case placeholders.ScieBase:
		return c.base, nil
	case placeholders.ScieLift:
		return c.ensureLiftPath(manifest)
	case placeholders.SciePlatform:
		return common.Platform(), nil
	case placeholders.SciePlatformArch:
		return common.PlatformArch(), nil
	case placeholders.SciePlatformOs:
		return common.PlatformOS(), nil
	case placeholders.Env:
		// Spec.md §4.5: within exe/args, {scie.env.NAME} consults only
		// the ambient environment, never cmd_env, to avoid re-entering
		// §4.4's fuller resolution.
		ref, err := cmdenv.ParseEnvRef(ph.Name)
		if err != nil {
			return "", err
		}
		if value, ok := ambientEnv[ref.Name]; ok {
			return value, nil
		}
		if ref.Default != nil {
			return *ref.Default, nil
		}
		return "", nil
	case placeholders.UserCacheDir:
		dir, err := os.UserCacheDir()
		if err != nil {
			if ph.Name != "" {
				return ph.Name, nil
			}
			return "", launcherr.Wrap(launcherr.IOError, err, "failed to determine the OS user cache directory")
		}
		return dir, nil
	case placeholders.FileName:
		f, ok := c.getFile(ph.Name)
		if !ok {
			return "", launcherr.New(launcherr.MissingFile, "no file named %q is stored in this scie", ph.Name)
		}
		c.replacements[f.CacheName()] = f
		return c.cachePath(f), nil
	case placeholders.FileHash:
		f, ok := c.getFile(ph.Name)
		if !ok {
			return "", launcherr.New(launcherr.MissingFile, "no file named %q is stored in this scie", ph.Name)
		}
		return f.Hash, nil
	case placeholders.ScieBindings, placeholders.ScieBindingCmd, placeholders.ScieBindingEnv:
		return "", launcherr.New(launcherr.Unsupported, "the {scie.bindings...} placeholder family is not implemented")
	default:
		return "", launcherr.New(launcherr.BadPlaceholder, "unrecognized placeholder kind %v", ph.Kind)
	}
}
