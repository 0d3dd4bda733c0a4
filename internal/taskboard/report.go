// Human renderers for validation reports, duplicate matches, merge previews
// and analytics. Colors are applied only when writing to a terminal.
package taskboard

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#94e2d5"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type renderer struct {
	w        io.Writer
	useColor bool
}

func (r renderer) style(s lipgloss.Style, text string) string {
	if !r.useColor {
		return text
	}
	return s.Render(text)
}

func (r renderer) header(text string) {
	fmt.Fprintln(r.w, r.style(headerStyle, text))
}

var severityStyles = map[Severity]lipgloss.Style{
	SeverityError:   errorStyle,
	SeverityWarning: warningStyle,
	SeverityInfo:    infoStyle,
}

func (r renderer) issue(issue ValidationError) {
	label := r.style(severityStyles[issue.Severity], strings.ToUpper(string(issue.Severity)))
	where := issue.Field
	if issue.TaskID != "" {
		where = issue.TaskID + " " + issue.Field
	}
	fmt.Fprintf(r.w, "  %s %s: %s\n", label, where, issue.Message)
	if issue.Suggestion != "" {
		fmt.Fprintf(r.w, "      %s\n", r.style(mutedStyle, "→ "+issue.Suggestion))
	}
}

func renderReport(w io.Writer, report Report, useColor bool) {
	r := renderer{w: w, useColor: useColor}
	if report.Total() == 0 {
		fmt.Fprintln(w, r.style(okStyle, "✓ no issues found"))
		return
	}
	for _, section := range []struct {
		title  string
		issues []ValidationError
	}{
		{"Errors", report.Errors},
		{"Warnings", report.Warnings},
		{"Info", report.Info},
	} {
		if len(section.issues) == 0 {
			continue
		}
		r.header(fmt.Sprintf("%s (%d)", section.title, len(section.issues)))
		for _, issue := range section.issues {
			r.issue(issue)
		}
	}
	fmt.Fprintf(w, "\n%d errors · %d warnings · %d info\n", len(report.Errors), len(report.Warnings), len(report.Info))
}

var confidenceStyles = map[Confidence]lipgloss.Style{
	ConfidenceHigh:   errorStyle,
	ConfidenceMedium: warningStyle,
	ConfidenceLow:    mutedStyle,
}

func renderMatches(w io.Writer, store *Store, matches []Match, stats DuplicateStats, useColor bool) {
	r := renderer{w: w, useColor: useColor}
	if len(matches) == 0 {
		fmt.Fprintln(w, r.style(okStyle, "✓ no duplicates found"))
		return
	}
	r.header(fmt.Sprintf("Possible duplicates (%d)", len(matches)))
	for _, m := range matches {
		conf := r.style(confidenceStyles[m.Confidence], fmt.Sprintf("%-6s", m.Confidence))
		auto := ""
		if m.AutoMergeable {
			auto = " " + r.style(okStyle, "auto")
		}
		fmt.Fprintf(w, "  %s %.2f  %s ~ %s%s\n", conf, m.Score, m.FirstID, m.SecondID, auto)
		for _, id := range []string{m.FirstID, m.SecondID} {
			if task := store.Get(id); task != nil {
				fmt.Fprintf(w, "      %s %s\n", r.style(mutedStyle, id), task.Title)
			}
		}
		fmt.Fprintf(w, "      %s\n", r.style(mutedStyle, "matched on "+strings.Join(m.Criteria, ", ")))
	}
	fmt.Fprintf(w, "\n%d high · %d medium · %d low · %d auto-mergeable\n", stats.High, stats.Medium, stats.Low, stats.AutoMergeable)
}

func renderPreview(w io.Writer, preview MergePreview, useColor bool) {
	r := renderer{w: w, useColor: useColor}
	r.header(fmt.Sprintf("Merge %s into %s", preview.Remove.ID, preview.Keep.ID))
	fmt.Fprintf(w, "  keep:   %s  %s\n", preview.Keep.ID, preview.Keep.Title)
	fmt.Fprintf(w, "  remove: %s  %s\n", preview.Remove.ID, preview.Remove.Title)
	if len(preview.Conflicts) == 0 {
		fmt.Fprintln(w, r.style(okStyle, "  no conflicting fields"))
	} else {
		fmt.Fprintln(w)
		r.header("Conflicts")
		for _, c := range preview.Conflicts {
			if c.Field == "tags" {
				fmt.Fprintf(w, "  tags: keep-only [%s] remove-only [%s]\n", strings.Join(c.KeepOnly, ", "), strings.Join(c.RemoveOnly, ", "))
				continue
			}
			fmt.Fprintf(w, "  %s: %q vs %q\n", c.Field, c.KeepValue, c.RemoveValue)
		}
	}
	fmt.Fprintln(w)
	r.header("Suggested strategy")
	fmt.Fprintf(w, "  keep %s, remove %s\n", preview.Suggested.KeepID, preview.Suggested.RemoveID)
	for _, field := range sortedKeys(preview.Suggested.FieldSources) {
		fmt.Fprintf(w, "  %-16s ← %s\n", field, preview.Suggested.FieldSources[field])
	}
}

func renderStats(w io.Writer, stats statsOutput, useColor bool) {
	r := renderer{w: w, useColor: useColor}
	s := stats.Summary
	r.header("Summary")
	fmt.Fprintf(w, "  %d tasks · %.0f%% complete · %d blocked · %d overdue\n", s.Total, s.CompletionRate*100, s.Blocked, s.Overdue)
	if s.AvgCycleHours > 0 {
		fmt.Fprintf(w, "  average cycle time %.1fh\n", s.AvgCycleHours)
	}
	for _, status := range AllStatuses {
		fmt.Fprintf(w, "  %-12s %d\n", statusLabels[status], s.ByStatus[string(status)])
	}
	if len(s.DependencyViolations) > 0 {
		fmt.Fprintf(w, "  %s %s\n", r.style(warningStyle, "dependency violations:"), strings.Join(s.DependencyViolations, ", "))
	}

	if len(stats.Agents) > 0 {
		fmt.Fprintln(w)
		r.header("Agents")
		for _, a := range stats.Agents {
			name := a.Agent
			if name == "" {
				name = "(unassigned)"
			}
			fmt.Fprintf(w, "  %-20s %3d tasks  %3d active  %3.0f%% done  %.1fh est / %.1fh actual\n",
				name, a.Total, a.Active, a.CompletionRate*100, a.EstimatedHours, a.ActualHours)
		}
	}

	v := stats.Velocity
	fmt.Fprintln(w)
	r.header("Velocity")
	fmt.Fprintf(w, "  %.1f completed/week over the last %d weeks · %s", v.AvgWeeklyCompletion, min(4, len(v.Weeks)), v.Trajectory)
	if v.Trend != 0 {
		fmt.Fprintf(w, " (%+.0f%%)", v.Trend*100)
	}
	fmt.Fprintln(w)
	for _, week := range v.Weeks {
		if week.Completed == 0 && week.Created == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s  %3d done  %3d new  %.1fh\n", week.WeekStart[:10], week.Completed, week.Created, week.CompletedHours)
	}

	d := stats.Dependencies
	if d.TotalDependencies > 0 {
		fmt.Fprintln(w)
		r.header("Dependencies")
		fmt.Fprintf(w, "  %d edges · %.1f per task · max depth %d · avg depth %.1f\n", d.TotalDependencies, d.AvgPerTask, d.MaxDepth, d.AvgDepth)
		for _, dc := range d.MostDependedOn {
			fmt.Fprintf(w, "  %s has %d dependents\n", dc.ID, dc.Dependents)
		}
		for _, f := range d.Risks {
			fmt.Fprintf(w, "  %s %s\n", r.style(warningStyle, strings.ToUpper(f.Severity)), f.Description)
		}
	}

	b := stats.Bottlenecks
	if len(b.TopBlocking) == 0 && len(b.Findings) == 0 {
		return
	}
	fmt.Fprintln(w)
	r.header("Bottlenecks")
	for _, bt := range b.TopBlocking {
		fmt.Fprintf(w, "  %s blocks %d tasks\n", bt.ID, bt.Blocked)
	}
	for _, f := range b.Findings {
		style := warningStyle
		if f.Severity == "high" {
			style = errorStyle
		}
		fmt.Fprintf(w, "  %s %s\n", r.style(style, strings.ToUpper(f.Severity)), f.Description)
	}
}

func renderTemplates(w io.Writer, templates []Template, useColor bool) {
	r := renderer{w: w, useColor: useColor}
	for i, tmpl := range templates {
		if i > 0 {
			fmt.Fprintln(w)
		}
		r.header(tmpl.ID)
		fmt.Fprintf(w, "  %s · @%s · %s", tmpl.Name, tmpl.Agent, tmpl.Priority)
		if tmpl.EstimatedHours != nil {
			fmt.Fprintf(w, " · %gh", *tmpl.EstimatedHours)
		}
		fmt.Fprintln(w)
		if len(tmpl.Tags) > 0 {
			fmt.Fprintf(w, "  %s\n", r.style(mutedStyle, "tags: "+strings.Join(tmpl.Tags, ", ")))
		}
		if vars := templateVars(tmpl); len(vars) > 0 {
			fmt.Fprintf(w, "  %s\n", r.style(mutedStyle, "vars: "+strings.Join(vars, ", ")))
		}
	}
}
