// Grouped list rendering for human-friendly `list` output.
package taskboard

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// getTerminalWidth returns the terminal width, or a default if unavailable.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

const (
	// Layout contract: ids end idRightMargin columns before the terminal edge,
	// with at least idMinGap columns between content and id.
	idMinGap      = 2
	idRightMargin = 2
)

// statusIcons and statusLabels cover every Status (model_test checks).
var statusIcons = map[Status]string{
	StatusPending:    "…",
	StatusBlocked:    "·",
	StatusTodo:       "○",
	StatusInProgress: "◐",
	StatusComplete:   "✓",
	StatusCancelled:  "✗",
}

var statusLabels = map[Status]string{
	StatusPending:    "Backlog",
	StatusBlocked:    "Blocked",
	StatusTodo:       "Todo",
	StatusInProgress: "In progress",
	StatusComplete:   "Done",
	StatusCancelled:  "Cancelled",
}

func statusColor(s Status) string {
	switch s {
	case StatusTodo:
		return ansiYellow
	case StatusInProgress:
		return ansiCyan
	case StatusComplete:
		return ansiGreen
	case StatusBlocked:
		return ansiRed
	case StatusPending:
		return ansiBlue
	default:
		return ansiDim
	}
}

type listView struct {
	store    *Store
	useColor bool
	width    int
	now      time.Time
}

// renderListView prints tasks grouped by status in workflow order, then a
// summary line. tasks are expected pre-sorted.
func renderListView(w io.Writer, store *Store, tasks []*Task, useColor bool, width int, now time.Time) {
	v := listView{store: store, useColor: useColor, width: width, now: now}
	groups := make(map[Status][]*Task, len(AllStatuses))
	for _, task := range tasks {
		groups[task.Status] = append(groups[task.Status], task)
	}
	first := true
	for _, status := range AllStatuses {
		group := groups[status]
		if len(group) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false
		fmt.Fprintln(w, v.paint(ansiBold, fmt.Sprintf("%s (%d)", statusLabels[status], len(group))))
		for _, task := range group {
			fmt.Fprintln(w, v.line(task))
		}
	}
	renderSummary(w, tasks, useColor)
}

func (v listView) paint(color, s string) string {
	if !v.useColor || s == "" {
		return s
	}
	return color + s + ansiReset
}

func (v listView) annotations(task *Task) []string {
	var out []string
	if task.Agent != "" {
		out = append(out, v.paint(ansiDim, "@"+task.Agent))
	}
	switch task.Priority {
	case PriorityCritical:
		out = append(out, v.paint(ansiRed, "!!"))
	case PriorityHigh:
		out = append(out, v.paint(ansiYellow, "!"))
	}
	if task.Overdue(v.now) {
		out = append(out, v.paint(ansiRed, "overdue"))
	}
	if task.Status == StatusBlocked {
		if blockers := v.store.BlockedBy(task.ID); len(blockers) > 0 {
			out = append(out, v.paint(ansiDim, "⧗ "+strings.Join(blockers, ", ")))
		}
	}
	return out
}

// line renders "  <icon> <title>  <annotations>      <id>".
func (v listView) line(task *Task) string {
	id := task.ID
	idStart := v.width - idRightMargin - runewidth.StringWidth(id)
	if idStart < 0 {
		idStart = 0
	}

	base := "  " + v.paint(statusColor(task.Status), statusIcons[task.Status]) + " "
	title := task.Title
	annotationStr := ""
	if ann := v.annotations(task); len(ann) > 0 {
		annotationStr = "  " + strings.Join(ann, "  ")
	}

	maxContent := idStart - idMinGap - visibleLen(base)
	if maxContent < 0 {
		maxContent = 0
	}
	if visibleLen(title)+visibleLen(annotationStr) > maxContent {
		maxAnnotation := maxContent - visibleLen(title)
		if maxAnnotation > 0 && annotationStr != "" {
			annotationStr = truncateToWidth(annotationStr, maxAnnotation)
		} else {
			annotationStr = ""
		}
		if visibleLen(title) > maxContent {
			title = truncateToWidth(title, maxContent)
		}
	}

	left := base + title + annotationStr
	if v.useColor && strings.Contains(annotationStr, "\033") {
		left += ansiReset
	}
	pad := idStart - visibleLen(left)
	if pad < idMinGap {
		pad = idMinGap
	}
	return left + strings.Repeat(" ", pad) + v.paint(ansiDim, id)
}

func renderSummary(w io.Writer, tasks []*Task, useColor bool) {
	if len(tasks) == 0 {
		return
	}
	counts := make(map[Status]int, len(AllStatuses))
	for _, task := range tasks {
		counts[task.Status]++
	}
	fmt.Fprintln(w)

	var parts []string
	add := func(status Status, label string) {
		if counts[status] == 0 {
			return
		}
		part := fmt.Sprintf("%d %s", counts[status], label)
		if useColor {
			part = statusColor(status) + part + ansiReset
		}
		parts = append(parts, part)
	}
	add(StatusTodo, "ready")
	add(StatusInProgress, "in progress")
	add(StatusBlocked, "blocked")
	add(StatusPending, "backlog")
	add(StatusComplete, "done")
	add(StatusCancelled, "cancelled")
	fmt.Fprintln(w, strings.Join(parts, " · "))
}

func visibleLen(s string) int {
	return runewidth.StringWidth(stripANSICodes(s))
}

func stripANSICodes(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncateToWidth truncates to maxWidth visible columns, ending in "…".
// Escape sequences are copied through without counting.
func truncateToWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if maxWidth <= 1 {
		return "…"
	}
	if visibleLen(s) <= maxWidth {
		return s
	}
	targetWidth := maxWidth - runewidth.RuneWidth('…')
	var result []rune
	width := 0
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			result = append(result, r)
			continue
		}
		if inEscape {
			result = append(result, r)
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		rw := runewidth.RuneWidth(r)
		if width+rw > targetWidth {
			break
		}
		result = append(result, r)
		width += rw
	}
	return string(result) + "…"
}
