// Package placeholders implements the brace-delimited templating
// grammar used in boot command exe/args and environment values
// (spec.md §4.3): literal text, escaped `{{` braces, and typed `{...}`
// placeholders, with explicit nesting depth tracking so a placeholder
// body may itself contain placeholders.
package placeholders

import (
	"strings"

	"github.com/nce-project/nce/launcherr"
)

// Kind discriminates the recognised placeholder shapes (spec.md §4.3).
type Kind int

const (
	Scie Kind = iota
	ScieBase
	ScieBindings
	ScieBindingCmd
	ScieBindingEnv
	Env
	FileName
	FileHash
	UserCacheDir
	ScieLift
	SciePlatform
	SciePlatformArch
	SciePlatformOs
)

// Placeholder is one parsed `{...}` unit. Name carries the single
// payload string for the single-argument kinds (Env's NAME[=DEFAULT],
// FileName/FileHash's file reference, ScieBindingCmd's binding name,
// UserCacheDir's fallback). Binding/Env carry the two parts of
// `{scie.bindings.NAME:ENV}`.
type Placeholder struct {
	Kind    Kind
	Name    string
	Binding string
	Env     string
}

// ItemKind discriminates a parsed template's sequence elements.
type ItemKind int

const (
	Text ItemKind = iota
	LeftBrace
	PlaceholderItem
)

// Item is one element of a parsed template: literal text, an escaped
// `{{` literal brace, or a typed placeholder.
type Item struct {
	Kind        ItemKind
	Text        string
	Placeholder Placeholder
}

// Parse tokenizes text into a sequence of Items (spec.md §4.3). A bare
// "{" and an empty "{}" placeholder are rejected with BadPlaceholder;
// an unmatched "}" outside any placeholder is literal text.
func Parse(text string) ([]Item, error) {
	if text == "{" {
		return nil, launcherr.New(launcherr.BadPlaceholder,
			"encountered text of '{'; if a literal '{' is intended, escape it like so: '{{'")
	}

	var items []Item
	depth := 0
	start := 0
	sawOpenBrace := false

	for index := 0; index < len(text); index++ {
		c := text[index]
		switch {
		case c == '{' && depth == 0:
			if index-start > 0 {
				items = append(items, Item{Kind: Text, Text: text[start:index]})
			}
			depth = 1
			sawOpenBrace = true
			start = index + 1
		case c == '{' && depth > 0 && sawOpenBrace && index == start:
			items = append(items, Item{Kind: LeftBrace})
			depth = 0
			sawOpenBrace = false
			start = index + 1
		case c == '{' && depth > 0:
			depth++
			sawOpenBrace = false
		case c == '}' && depth > 1:
			depth--
			sawOpenBrace = false
		case c == '}' && depth == 1:
			symbol := text[start:index]
			if symbol == "" {
				return nil, launcherr.New(launcherr.BadPlaceholder,
					"encountered placeholder '{}' at %d in %q; placeholders must have names", index-1, text)
			}
			ph, err := parseSymbol(symbol)
			if err != nil {
				return nil, err
			}
			items = append(items, Item{Kind: PlaceholderItem, Placeholder: ph})
			depth = 0
			sawOpenBrace = false
			start = index + 1
		default:
			sawOpenBrace = false
		}
	}

	if len(items) == 0 || len(text)-start > 0 {
		items = append(items, Item{Kind: Text, Text: text[start:]})
	}
	return items, nil
}

// parseSymbol dispatches the brace body (everything between the
// opening and closing brace) to one of the recognised shapes, falling
// back to the short-form file reference (spec.md §4.3's "first match
// wins" table).
func parseSymbol(symbol string) (Placeholder, error) {
	parts := strings.SplitN(symbol, ".", 3)
	if parts[0] != "scie" {
		return Placeholder{Kind: FileName, Name: symbol}, nil
	}
	switch len(parts) {
	case 1:
		return Placeholder{Kind: Scie}, nil
	case 2:
		switch parts[1] {
		case "base":
			return Placeholder{Kind: ScieBase}, nil
		case "bindings":
			return Placeholder{Kind: ScieBindings}, nil
		case "lift":
			return Placeholder{Kind: ScieLift}, nil
		case "platform":
			return Placeholder{Kind: SciePlatform}, nil
		default:
			return Placeholder{Kind: FileName, Name: symbol}, nil
		}
	case 3:
		switch parts[1] {
		case "bindings":
			binding := parts[2]
			bindParts := strings.SplitN(binding, ":", 2)
			if len(bindParts) == 2 {
				return Placeholder{Kind: ScieBindingEnv, Binding: bindParts[0], Env: bindParts[1]}, nil
			}
			return Placeholder{Kind: ScieBindingCmd, Name: binding}, nil
		case "env":
			return Placeholder{Kind: Env, Name: parts[2]}, nil
		case "files":
			return Placeholder{Kind: FileName, Name: parts[2]}, nil
		case "files:hash":
			return Placeholder{Kind: FileHash, Name: parts[2]}, nil
		case "user":
			cacheDir := parts[2]
			userParts := strings.SplitN(cacheDir, "=", 2)
			switch {
			case len(userParts) == 2 && userParts[0] == "cache_dir":
				return Placeholder{Kind: UserCacheDir, Name: userParts[1]}, nil
			case len(userParts) == 1 && userParts[0] == "cache_dir":
				return Placeholder{}, launcherr.New(launcherr.BadPlaceholder,
					"{scie.user.cache_dir} requires a fallback value; e.g.: {scie.user.cache_dir=~/.cache}")
			default:
				return Placeholder{}, launcherr.New(launcherr.BadPlaceholder,
					"unrecognized placeholder in the {scie.user.*} namespace: {scie.user.%s}", cacheDir)
			}
		case "platform":
			switch parts[2] {
			case "arch":
				return Placeholder{Kind: SciePlatformArch}, nil
			case "os":
				return Placeholder{Kind: SciePlatformOs}, nil
			default:
				return Placeholder{Kind: FileName, Name: symbol}, nil
			}
		default:
			return Placeholder{Kind: FileName, Name: symbol}, nil
		}
	default:
		return Placeholder{Kind: FileName, Name: symbol}, nil
	}
}

// Render re-serializes items back to their canonical template form,
// used when a value containing non-Env placeholders must be preserved
// verbatim but re-written to canonical spelling (spec.md §4.4).
func Render(items []Item) string {
	var b strings.Builder
	for _, item := range items {
		switch item.Kind {
		case Text:
			b.WriteString(item.Text)
		case LeftBrace:
			b.WriteString("{")
		case PlaceholderItem:
			b.WriteString(renderPlaceholder(item.Placeholder))
		}
	}
	return b.String()
}

func renderPlaceholder(ph Placeholder) string {
	switch ph.Kind {
	case Scie:
		return "{scie}"
	case ScieBase:
		return "{scie.base}"
	case ScieBindings:
		return "{scie.bindings}"
	case ScieBindingCmd:
		return "{scie.bindings." + ph.Name + "}"
	case ScieBindingEnv:
		return "{scie.bindings." + ph.Binding + ":" + ph.Env + "}"
	case Env:
		return "{scie.env." + ph.Name + "}"
	case FileName:
		return "{scie.files." + ph.Name + "}"
	case FileHash:
		return "{scie.files:hash." + ph.Name + "}"
	case UserCacheDir:
		return "{scie.user.cache_dir=" + ph.Name + "}"
	case ScieLift:
		return "{scie.lift}"
	case SciePlatform:
		return "{scie.platform}"
	case SciePlatformArch:
		return "{scie.platform.arch}"
	case SciePlatformOs:
		return "{scie.platform.os}"
	default:
		return ""
	}
}
