package launchctx

import (
	"path/filepath"
	"strings"

	"github.com/nce-project/nce/internal/common"
	"github.com/nce-project/nce/launcherr"
	"github.com/nce-project/nce/lift"
)

// Selected is the boot command Select chose, plus whether the first
// positional CLI argument was consumed to select it (spec.md §4.6,
// step 4) — the caller must then exclude that argument when building
// the child's trailing argv (spec.md §4.8).
type Selected struct {
	Name          string
	Cmd           lift.Cmd
	Argv1Consumed bool
}

// Select implements spec.md §4.6's boot selection order: SCIE_BOOT
// exact match, then the empty-string default key, then the current
// executable's basename/stem, then the first positional argv entry.
// argv is the full os.Args slice (argv[0] is the executable path).
func (c *Context) Select(ambientEnv map[string]string, argv []string) (Selected, error) {
	if bootName, ok := ambientEnv["SCIE_BOOT"]; ok {
		cmd, known := c.commands[bootName]
		if !known {
			return Selected{}, launcherr.New(launcherr.UnknownBoot,
				"SCIE_BOOT names unknown boot command %q; available: %s", bootName, c.describeBoots())
		}
		return Selected{Name: bootName, Cmd: cmd}, nil
	}

	if cmd, ok := c.commands[""]; ok {
		return Selected{Name: "", Cmd: cmd}, nil
	}

	if basename := c.basename(); basename != "" {
		if cmd, ok := c.commands[basename]; ok {
			return Selected{Name: basename, Cmd: cmd}, nil
		}
	}

	if len(argv) > 1 {
		if cmd, ok := c.commands[argv[1]]; ok {
			return Selected{Name: argv[1], Cmd: cmd, Argv1Consumed: true}, nil
		}
	}

	return Selected{}, launcherr.New(launcherr.UnknownBoot,
		"no boot command could be selected; available: %s", c.describeBoots())
}

func (c *Context) basename() string {
	if c.scie == "" {
		return ""
	}
	if common.IsWindows() {
		base := filepath.Base(c.scie)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Base(c.scie)
}

func (c *Context) describeBoots() string {
	boots := c.Boots()
	if len(boots) == 0 {
		return "(none declared)"
	}
	parts := make([]string, 0, len(boots))
	for _, b := range boots {
		if b.Description != "" {
			parts = append(parts, b.Name+" - "+b.Description)
		} else {
			parts = append(parts, b.Name)
		}
	}
	return strings.Join(parts, ", ")
}
