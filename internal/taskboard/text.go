// Help and quickstart rendering. Both texts are embedded; {{MARKER}} tokens
// become ANSI codes on a terminal and disappear otherwise. The status section
// of the help is generated from the state machine so it cannot drift.
package taskboard

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
)

//go:embed help.txt
var helpTextRaw string

//go:embed quickstart.txt
var quickstartTextRaw string

func UsageText(color bool) string {
	return renderDoc(helpTextRaw, color)
}

func QuickstartText(color bool) string {
	return renderDoc(quickstartTextRaw, color)
}

func RunQuickstart(args []string) error {
	if len(args) != 0 {
		return errors.New("usage: taskboard quickstart")
	}
	fmt.Println(QuickstartText(stdoutIsTTY()))
	return nil
}

func renderDoc(text string, color bool) string {
	text = strings.ReplaceAll(text, "{{TRANSITIONS}}", transitionTable())
	return strings.TrimSuffix(docReplacer(color).Replace(text), "\n")
}

func docReplacer(color bool) *strings.Replacer {
	if !color {
		return strings.NewReplacer(
			"{{BOLD}}", "", "{{CYAN}}", "", "{{DIM}}", "", "{{GREEN}}", "",
			"{{RESET}}", "", "{{HEADER}}", "",
			"{{CMD}}", "  $ ", "{{COMMENT}}", "    # ",
		)
	}
	return strings.NewReplacer(
		"{{BOLD}}", ansiBold, "{{CYAN}}", ansiCyan, "{{DIM}}", ansiDim, "{{GREEN}}", ansiGreen,
		"{{RESET}}", ansiReset, "{{HEADER}}", ansiBold+ansiCyan,
		"{{CMD}}", "  "+ansiGreen+"$"+ansiReset+" ", "{{COMMENT}}", "    "+ansiDim+"# ",
	)
}

// transitionTable lists each status with its allowed next statuses, one line
// per status in workflow order, e.g. "  complete → in_progress".
func transitionTable() string {
	var b strings.Builder
	for _, from := range AllStatuses {
		next := NextStatuses(from)
		names := make([]string, len(next))
		for i, s := range next {
			names[i] = string(s)
		}
		fmt.Fprintf(&b, "  %s → %s\n", from, strings.Join(names, " | "))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
