package boot

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const defaultHelpWidth = 80

// Help lists a scie's boot commands and their descriptions, the same
// information spec.md §4.6 step 5 renders when selection fails, but on
// request rather than on failure. Column widths are aligned with
// go-runewidth so multi-byte command names still line up, and long
// descriptions are wrapped to the terminal width when stdout is a tty.
func Help(loaded *Loaded) (int, error) {
	names := make([]string, 0, len(loaded.Manifest.Lift.Boot.Commands))
	for name := range loaded.Manifest.Lift.Boot.Commands {
		names = append(names, name)
	}

	width := helpWidth()
	nameWidth := 0
	for _, name := range names {
		label := displayName(name)
		if w := runewidth.StringWidth(label); w > nameWidth {
			nameWidth = w
		}
	}

	fmt.Fprintf(os.Stdout, "%s\n\n", loaded.Manifest.Lift.Name)
	if len(names) == 0 {
		fmt.Fprintln(os.Stdout, "(no boot commands declared)")
		return 0, nil
	}
	fmt.Fprintln(os.Stdout, "Available boot commands:")
	for _, name := range sortedNames(names) {
		cmd := loaded.Manifest.Lift.Boot.Commands[name]
		label := displayName(name)
		padded := label + strings.Repeat(" ", nameWidth-runewidth.StringWidth(label))
		description := wrapDescription(cmd.Description, width-nameWidth-4)
		fmt.Fprintf(os.Stdout, "  %s  %s\n", padded, description)
	}
	return 0, nil
}

func displayName(name string) string {
	if name == "" {
		return "(default)"
	}
	return name
}

func helpWidth() int {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return defaultHelpWidth
}

func wrapDescription(description string, width int) string {
	if description == "" {
		return "(no description)"
	}
	if width <= 0 || runewidth.StringWidth(description) <= width {
		return description
	}
	words := strings.Fields(description)
	var lines []string
	var line string
	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if runewidth.StringWidth(candidate) > width && line != "" {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func sortedNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
