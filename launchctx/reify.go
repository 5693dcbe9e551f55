package launchctx

import (
	"github.com/nce-project/nce/cmdenv"
	"github.com/nce-project/nce/launcherr"
	"github.com/nce-project/nce/lift"
	"github.com/nce-project/nce/procexec"
)

// ReifyCommand runs spec.md §4.4 (environment reification) followed by
// §4.5 (context reification) over the selected command's env, exe, and
// args, and unions additional_files into the replacements set (the
// first half of §4.7, step 1). trailing is the CLI argv left over
// after boot selection: argv without argv[0], and also without argv[1]
// when selection consumed it.
func (c *Context) ReifyCommand(manifest *lift.Manifest, ambientEnv map[string]string, cmd lift.Cmd, trailing []string) (procexec.Descriptor, error) {
	kindByName := make(map[string]lift.EnvKind, len(cmd.Env))
	for _, ev := range cmd.Env {
		kindByName[ev.Name] = ev.Kind
	}

	pairs, err := cmdenv.NewEnvParser(cmd.Env, ambientEnv).ParseEnv()
	if err != nil {
		return procexec.Descriptor{}, launcherr.Wrap(launcherr.BadPlaceholder, err, "failed to reify command environment")
	}

	envPairs := make([]procexec.EnvPair, 0, len(pairs))
	for _, p := range pairs {
		value, err := c.ReifyString(manifest, ambientEnv, p.Value)
		if err != nil {
			return procexec.Descriptor{}, err
		}
		envPairs = append(envPairs, procexec.EnvPair{Kind: kindByName[p.Name], Name: p.Name, Value: value})
	}

	exe, err := c.ReifyString(manifest, ambientEnv, cmd.Exe)
	if err != nil {
		return procexec.Descriptor{}, err
	}

	args := make([]string, len(cmd.Args))
	for i, a := range cmd.Args {
		reified, err := c.ReifyString(manifest, ambientEnv, a)
		if err != nil {
			return procexec.Descriptor{}, err
		}
		args[i] = reified
	}

	for _, name := range cmd.AdditionalFiles {
		f, ok := c.getFile(name)
		if !ok {
			return procexec.Descriptor{}, launcherr.New(launcherr.MissingFile,
				"additional_files references unknown file %q", name)
		}
		c.replacements[f.CacheName()] = f
	}

	return procexec.Descriptor{
		Exe:      exe,
		Args:     args,
		Env:      envPairs,
		Trailing: trailing,
	}, nil
}
