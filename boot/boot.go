// Package boot ties the other packages together into the launcher's
// entry points (spec.md §4.6, §9): the implicit boot-command path a
// packed scie runs on every invocation, plus the SCIE= developer
// sub-commands (pack/split/inspect/help) a stub or a scie answers to
// when asked.
package boot

import (
	"os"

	"github.com/nce-project/nce/extract"
	"github.com/nce-project/nce/internal/common"
	"github.com/nce-project/nce/launchctx"
	"github.com/nce-project/nce/launcherr"
	"github.com/nce-project/nce/layout"
	"github.com/nce-project/nce/lift"
	"github.com/nce-project/nce/procexec"
)

// Loaded bundles the pieces read off the current executable: its
// path, raw bytes, and the manifest parsed out of the trailing
// payload window (spec.md §4.1, §4.2). Manifest is nil when the
// current executable is a bare, unpacked stub (its own V1/V2 trailer
// is present but it carries no concatenated payload or manifest yet);
// that case is only ever routed to Pack.
type Loaded struct {
	Path     string
	Bytes    []byte
	Trailer  *layout.Jump
	Manifest *lift.Manifest
}

// Load reads the executable at path and classifies it per spec.md
// §4.1: a V1/V2 self-identification trailer means this is a bare
// stub awaiting packing, so no manifest is parsed. Otherwise the
// binary is a fully concatenated scie; its manifest boundary is
// recovered by scanning backward for the outer ZIP EOCD, and
// Manifest.Jump (the embedded `jump` stanza, mandatory on this path)
// supplies jump.size for everything downstream.
func Load(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, launcherr.Wrap(launcherr.IOError, err, "failed to read %q", path)
	}

	trailer, err := layout.ReadTrailer(path, common.Version)
	if err != nil {
		return nil, err
	}
	if trailer != nil {
		return &Loaded{Path: path, Bytes: data, Trailer: trailer}, nil
	}

	manifestStart, err := layout.EndOfZip(data, layout.MaximumConfigSize)
	if err != nil {
		return nil, err
	}

	manifest, err := lift.Parse(data[manifestStart:], path)
	if err != nil {
		return nil, err
	}
	if manifest.Jump == nil {
		return nil, launcherr.New(launcherr.InvalidManifest,
			"manifest at %s is missing its \"jump\" stanza; cannot locate the payload", path)
	}

	return &Loaded{Path: path, Bytes: data, Manifest: manifest}, nil
}

// ambientEnviron turns os.Environ() into a name->value map, the shape
// every downstream consumer (cmdenv, launchctx) expects.
func ambientEnviron() map[string]string {
	env := os.Environ()
	out := make(map[string]string, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}

// Run is the entry point cmd/nce calls on every invocation. It
// dispatches on the ambient SCIE environment variable to one of the
// developer sub-commands (spec.md §4.6's "boot commands with names
// starting with a special prefix are reserved"), falling through to
// the normal boot path when SCIE is unset or names an existing path.
// Any other SCIE value prints Help and reports exit code 1.
func Run(path string, argv []string) (int, error) {
	loaded, err := Load(path)
	if err != nil {
		return 1, err
	}

	// A bare stub trailer, with no concatenated payload, always means
	// pack mode: spec.md §9 scopes packing itself out, but detection
	// still takes priority over every other dispatch, matching the
	// original launcher's own jump::load-then-Action::BootPack order.
	if loaded.Manifest == nil {
		return 1, Pack(loaded)
	}

	switch value := os.Getenv("SCIE"); value {
	case "boot-pack":
		return 1, Pack(loaded)
	case "inspect":
		return Inspect(loaded)
	case "split":
		return Split(loaded, argv)
	case "help":
		return Help(loaded)
	case "":
		return boot(loaded, argv)
	default:
		// SCIE names neither a sub-command above nor an existing
		// path: spec.md §4.6, §6 call for help plus a non-zero exit
		// rather than silently falling through to a normal boot,
		// matching the original launcher's own trailing `else if
		// !PathBuf::from(&value).exists()` branch.
		if _, err := os.Stat(value); err == nil {
			return boot(loaded, argv)
		}
		if _, err := Help(loaded); err != nil {
			return 1, err
		}
		return 1, nil
	}
}

// boot runs spec.md §4.6 through §4.8 in sequence: select a command,
// reify it, extract the files it needs, build its environment, and
// launch it.
func boot(loaded *Loaded, argv []string) (int, error) {
	ambient := ambientEnviron()

	ctx, err := launchctx.New(loaded.Manifest)
	if err != nil {
		return 1, err
	}

	selected, err := ctx.Select(ambient, argv)
	if err != nil {
		return 1, err
	}

	trailing := argv[1:]
	if selected.Argv1Consumed && len(trailing) > 0 {
		trailing = trailing[1:]
	}

	descriptor, err := ctx.ReifyCommand(loaded.Manifest, ambient, selected.Cmd, trailing)
	if err != nil {
		return 1, err
	}

	if _, err := extract.Run(loaded.Manifest, loaded.Bytes, ctx.Base(), ctx.ToExtractSet()); err != nil {
		return 1, err
	}

	env := procexec.BuildEnv(os.Environ(), descriptor.Env, ctx.Scie())
	common.WaitLogs()
	return procexec.Launch(descriptor, env)
}
