// Package cmdenv implements environment reification (spec.md §4.4):
// turning a boot command's declared Default/Replace environment
// entries into a final ordered sequence of (name, value) pairs, with
// cycle-safe recursive `{scie.env.NAME}` resolution and ambient-
// environment fallback.
package cmdenv

import (
	"strings"

	"github.com/nce-project/nce/launcherr"
	"github.com/nce-project/nce/lift"
	"github.com/nce-project/nce/placeholders"
)

// maxReifyDepth bounds the recursive reification chain so a
// pathological dynamic-name construction fails fast with a
// BadPlaceholder error instead of recursing forever (spec.md §4.4).
const maxReifyDepth = 64

// Pair is one resolved (name, value) environment entry, in the order
// the command declared it.
type Pair struct {
	Name  string
	Value string
}

// ParsedEnvRef is `NAME[=DEFAULT]` as parsed from a reified
// `{scie.env.NAME}` placeholder body.
type ParsedEnvRef struct {
	Name    string
	Default *string
}

// ParseEnvRef splits a reified `{scie.env.NAME}` or `{scie.env.NAME=DEFAULT}`
// body into its name and optional default, shared with package
// launchctx's ambient-only §4.5 env resolution.
func ParseEnvRef(body string) (ParsedEnvRef, error) {
	if body == "" {
		return ParsedEnvRef{}, launcherr.New(launcherr.BadPlaceholder,
			"expected {scie.env.<name>} <name> placeholder to be a non-empty string")
	}
	name, def, hasDefault := strings.Cut(body, "=")
	if !hasDefault {
		return ParsedEnvRef{Name: name}, nil
	}
	return ParsedEnvRef{Name: name, Default: &def}, nil
}

func parseScieEnvRef(body string) (ParsedEnvRef, error) {
	return ParseEnvRef(body)
}

// EnvParser resolves one command's declared environment against an
// ambient environment snapshot.
type EnvParser struct {
	ambient  map[string]string
	env      map[string]string
	envOrder []string
	keyStack []string
	parsed   map[string]string
	depth    int
}

// NewEnvParser filters cmdEnv against ambient per spec.md §4.4:
// Default(N) entries are dropped if N already exists in ambient;
// Replace(N) entries always win.
func NewEnvParser(cmdEnv []lift.EnvVar, ambient map[string]string) *EnvParser {
	p := &EnvParser{
		ambient: ambient,
		env:     make(map[string]string, len(cmdEnv)),
		parsed:  make(map[string]string, len(cmdEnv)),
	}
	for _, ev := range cmdEnv {
		if ev.Value == nil {
			continue
		}
		switch ev.Kind {
		case lift.EnvDefault:
			if _, present := ambient[ev.Name]; present {
				continue
			}
			p.setEnv(ev.Name, *ev.Value)
		case lift.EnvReplace:
			p.setEnv(ev.Name, *ev.Value)
		}
	}
	return p
}

func (p *EnvParser) setEnv(name, value string) {
	if _, exists := p.env[name]; !exists {
		p.envOrder = append(p.envOrder, name)
	}
	p.env[name] = value
}

// ParseEnv reifies every declared env entry and returns the ordered
// (name, value) pairs a process launcher should export.
func (p *EnvParser) ParseEnv() ([]Pair, error) {
	for _, name := range p.envOrder {
		if err := p.parseEntry(name, p.env[name]); err != nil {
			return nil, err
		}
	}
	pairs := make([]Pair, 0, len(p.envOrder))
	for _, name := range p.envOrder {
		pairs = append(pairs, Pair{Name: name, Value: p.parsed[name]})
	}
	return pairs, nil
}

func (p *EnvParser) parseEntry(key, value string) error {
	if _, done := p.parsed[key]; done {
		return nil
	}
	p.keyStack = append(p.keyStack, key)
	reified, err := p.reifyEnv(value)
	p.keyStack = p.keyStack[:len(p.keyStack)-1]
	if err != nil {
		return err
	}
	p.parsed[key] = reified
	return nil
}

func (p *EnvParser) onKeyStack(name string) bool {
	for _, k := range p.keyStack {
		if k == name {
			return true
		}
	}
	return false
}

// reifyEnv walks value's placeholder tree, resolving Env placeholders
// recursively and re-serializing every other placeholder shape to its
// canonical form (spec.md §4.4: "other placeholders... preserved
// verbatim, re-serialised to their canonical form").
func (p *EnvParser) reifyEnv(value string) (string, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxReifyDepth {
		return "", launcherr.New(launcherr.BadPlaceholder,
			"cyclic dynamic env-var name resolution exceeded depth %d", maxReifyDepth)
	}

	items, err := placeholders.Parse(value)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, item := range items {
		switch item.Kind {
		case placeholders.Text:
			b.WriteString(item.Text)
		case placeholders.LeftBrace:
			b.WriteByte('{')
		case placeholders.PlaceholderItem:
			if item.Placeholder.Kind == placeholders.Env {
				reified, err := p.reifyEnvVar(item.Placeholder.Name)
				if err != nil {
					return "", err
				}
				b.WriteString(reified)
			} else {
				b.WriteString(placeholders.Render([]placeholders.Item{item}))
			}
		}
	}
	return b.String(), nil
}

// reifyEnvVar implements spec.md §4.4 steps 1-5 for a single
// `{scie.env.NAME}` reference.
func (p *EnvParser) reifyEnvVar(rawName string) (string, error) {
	reifiedName, err := p.reifyEnv(rawName)
	if err != nil {
		return "", err
	}
	ref, err := parseScieEnvRef(reifiedName)
	if err != nil {
		return "", err
	}

	fallback := func() string {
		if ref.Default != nil {
			return *ref.Default
		}
		return ""
	}

	var value string
	switch {
	case p.onKeyStack(ref.Name):
		if v, ok := p.ambient[ref.Name]; ok {
			value = v
		} else {
			value = fallback()
		}
	default:
		v, ok := p.env[ref.Name]
		if !ok {
			v, ok = p.ambient[ref.Name]
		}
		if ok {
			// Memoize through the same parsed/key_stack bookkeeping used
			// for declared cmd_env entries, whether v came from cmd_env
			// or from the ambient environment (spec.md §4.4 step 4).
			if err := p.parseEntry(ref.Name, v); err != nil {
				return "", err
			}
			value = p.parsed[ref.Name]
		} else {
			value = fallback()
		}
	}
	return p.reifyEnv(value)
}
