// Package procexec constructs the final child process environment and
// launches the selected boot command: exec-replace on POSIX, spawn-and-
// wait elsewhere (spec.md §4.8).
package procexec

import (
	"os"

	"github.com/nce-project/nce/launcherr"
	"github.com/nce-project/nce/lift"
)

// Descriptor is the fully-reified process invocation built by package
// launchctx: an absolute exe path, already-reified args, and an
// ordered env-var list still carrying Default/Replace tags.
type Descriptor struct {
	Exe      string
	Args     []string
	Env      []EnvPair
	Trailing []string
}

// EnvPair is one already-value-reified entry of a boot command's
// declared environment, still tagged Default or Replace so BuildEnv
// can apply ambient-merge precedence.
type EnvPair struct {
	Kind  lift.EnvKind
	Name  string
	Value string
}

// BuildEnv merges d's declared environment into ambient (a "NAME=value"
// slice, normally os.Environ()) honouring spec.md §4.8's precedence:
// Replace always overwrites; Default only fills in a name ambient does
// not already define. SCIE is then unconditionally set to currentExe,
// regardless of anything the command declared for that name.
func BuildEnv(ambient []string, pairs []EnvPair, currentExe string) []string {
	index := make(map[string]int, len(ambient))
	merged := make([]string, len(ambient))
	copy(merged, ambient)
	for i, kv := range merged {
		if name, _, ok := splitEnv(kv); ok {
			index[name] = i
		}
	}

	set := func(name, value string) {
		entry := name + "=" + value
		if i, ok := index[name]; ok {
			merged[i] = entry
			return
		}
		index[name] = len(merged)
		merged = append(merged, entry)
	}

	for _, p := range pairs {
		if p.Kind == lift.EnvDefault {
			if _, exists := index[p.Name]; exists {
				continue
			}
		}
		set(p.Name, p.Value)
	}

	set("SCIE", currentExe)
	return merged
}

func splitEnv(kv string) (name, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}

// Launch runs d: on POSIX it replaces the current process image via
// exec and never returns on success; on platforms without exec it
// spawns a child, waits for it, and returns its exit status so the
// caller can os.Exit with it.
func Launch(d Descriptor, env []string) (int, error) {
	return launch(d, env)
}

// argv builds the argv slice passed to exec/spawn: exe, then d's
// reified args, then any trailing CLI arguments the boot selector
// left unconsumed (spec.md §4.8's "append os.Args skipping argv_skip").
func argv(d Descriptor) []string {
	out := make([]string, 0, len(d.Args)+len(d.Trailing)+1)
	out = append(out, d.Exe)
	out = append(out, d.Args...)
	out = append(out, d.Trailing...)
	return out
}

func wrapLaunchError(err error, exe string) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return launcherr.Wrap(launcherr.MissingFile, err, "boot command exe %q does not exist", exe)
	}
	return launcherr.Wrap(launcherr.IOError, err, "failed to launch %q", exe)
}
