// Aggregate views over a task snapshot. Pure functions; callers pass
// Store.All() (or any slice) and a reference time.
package taskboard

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// overloadThreshold is the active-task count above which an agent is
// reported as overloaded.
const overloadThreshold = 10

type Summary struct {
	Total                int            `json:"total"`
	ByStatus             map[string]int `json:"by_status"`
	ByPriority           map[string]int `json:"by_priority"`
	ByAgent              map[string]int `json:"by_agent"`
	Blocked              int            `json:"blocked"`
	Overdue              int            `json:"overdue"`
	CompletionRate       float64        `json:"completion_rate"`
	AvgCycleHours        float64        `json:"avg_cycle_hours"`
	DependencyViolations []string       `json:"dependency_violations"`
}

// Summarize counts tasks by status, priority and agent. Cycle time is
// updated_at − created_at of complete tasks. A dependency violation is an
// active task with a dependency that is not complete.
func Summarize(tasks []*Task, now time.Time) Summary {
	s := Summary{
		Total:                len(tasks),
		ByStatus:             make(map[string]int, len(AllStatuses)),
		ByPriority:           make(map[string]int, len(AllPriorities)),
		ByAgent:              make(map[string]int),
		DependencyViolations: []string{},
	}
	for _, status := range AllStatuses {
		s.ByStatus[string(status)] = 0
	}
	for _, p := range AllPriorities {
		s.ByPriority[string(p)] = 0
	}
	byID := indexTasks(tasks)
	completed := 0
	cycleHours := 0.0
	for _, t := range tasks {
		s.ByStatus[string(t.Status)]++
		s.ByPriority[string(t.Priority)]++
		s.ByAgent[t.Agent]++
		if t.Status == StatusBlocked {
			s.Blocked++
		}
		if t.Overdue(now) {
			s.Overdue++
		}
		if t.Status == StatusComplete {
			completed++
			cycleHours += t.UpdatedAt.Sub(t.CreatedAt).Hours()
		}
		if t.Status.Active() {
			for _, depID := range t.Dependencies {
				if dep := byID[depID]; dep == nil || dep.Status != StatusComplete {
					s.DependencyViolations = append(s.DependencyViolations, t.ID)
					break
				}
			}
		}
	}
	if s.Total > 0 {
		s.CompletionRate = float64(completed) / float64(s.Total)
	}
	if completed > 0 {
		s.AvgCycleHours = cycleHours / float64(completed)
	}
	sort.Strings(s.DependencyViolations)
	return s
}

type AgentStats struct {
	Agent          string  `json:"agent"`
	Total          int     `json:"total"`
	Complete       int     `json:"complete"`
	Active         int     `json:"active"`
	CompletionRate float64 `json:"completion_rate"`
	EstimatedHours float64 `json:"estimated_hours"`
	ActualHours    float64 `json:"actual_hours"`
}

// AgentPerformance returns one row per agent, sorted by agent name.
func AgentPerformance(tasks []*Task) []AgentStats {
	rows := make(map[string]*AgentStats)
	for _, t := range tasks {
		row := rows[t.Agent]
		if row == nil {
			row = &AgentStats{Agent: t.Agent}
			rows[t.Agent] = row
		}
		row.Total++
		if t.Status == StatusComplete {
			row.Complete++
		}
		if t.Status.Active() {
			row.Active++
		}
		if t.EstimatedHours != nil {
			row.EstimatedHours += *t.EstimatedHours
		}
		if t.ActualHours != nil {
			row.ActualHours += *t.ActualHours
		}
	}
	out := make([]AgentStats, 0, len(rows))
	for _, agent := range sortedKeys(rows) {
		row := rows[agent]
		row.CompletionRate = float64(row.Complete) / float64(row.Total)
		out = append(out, *row)
	}
	return out
}

type BlockingTask struct {
	ID      string `json:"id"`
	Blocked int    `json:"blocked"`
}

type Finding struct {
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

type BottleneckReport struct {
	TopBlocking      []BlockingTask `json:"top_blocking"`
	OverloadedAgents []string       `json:"overloaded_agents"`
	Findings         []Finding      `json:"findings"`
}

// Bottlenecks finds the incomplete tasks holding up the most blocked tasks
// (top 5), overloaded agents, and the headline findings.
func Bottlenecks(tasks []*Task, now time.Time) BottleneckReport {
	byID := indexTasks(tasks)
	blocking := make(map[string]int)
	blocked := 0
	active := make(map[string]int)
	overdue := 0
	for _, t := range tasks {
		if t.Status == StatusBlocked {
			blocked++
			for _, depID := range dedupeStrings(t.Dependencies) {
				if dep := byID[depID]; dep != nil && dep.Status != StatusComplete {
					blocking[depID]++
				}
			}
		}
		if t.Status.Active() {
			active[t.Agent]++
		}
		if t.Overdue(now) {
			overdue++
		}
	}

	report := BottleneckReport{TopBlocking: []BlockingTask{}, OverloadedAgents: []string{}, Findings: []Finding{}}
	for id, count := range blocking {
		report.TopBlocking = append(report.TopBlocking, BlockingTask{ID: id, Blocked: count})
	}
	sort.Slice(report.TopBlocking, func(i, j int) bool {
		a, b := report.TopBlocking[i], report.TopBlocking[j]
		if a.Blocked != b.Blocked {
			return a.Blocked > b.Blocked
		}
		return a.ID < b.ID
	})
	if len(report.TopBlocking) > 5 {
		report.TopBlocking = report.TopBlocking[:5]
	}
	for _, agent := range sortedKeys(active) {
		if active[agent] > overloadThreshold {
			report.OverloadedAgents = append(report.OverloadedAgents, agent)
		}
	}

	if len(tasks) > 0 && float64(blocked) > float64(len(tasks))*0.1 {
		report.Findings = append(report.Findings, Finding{
			Kind:        "high_blocked_ratio",
			Severity:    "high",
			Description: fmt.Sprintf("%d tasks blocked (%.1f%%)", blocked, float64(blocked)/float64(len(tasks))*100),
		})
	}
	if len(report.OverloadedAgents) > 0 {
		report.Findings = append(report.Findings, Finding{
			Kind:        "agent_overload",
			Severity:    "medium",
			Description: "agents overloaded: " + strings.Join(report.OverloadedAgents, ", "),
		})
	}
	if overdue > 0 {
		severity := "medium"
		if overdue > 5 {
			severity = "high"
		}
		report.Findings = append(report.Findings, Finding{
			Kind:        "overdue_tasks",
			Severity:    severity,
			Description: fmt.Sprintf("%d tasks overdue", overdue),
		})
	}
	return report
}

// defaultVelocityWeeks is the window `stats` reports when none is given.
const defaultVelocityWeeks = 12

type WeekVelocity struct {
	WeekStart      string  `json:"week_start"`
	WeekEnd        string  `json:"week_end"`
	Completed      int     `json:"completed"`
	Created        int     `json:"created"`
	CompletedHours float64 `json:"completed_hours"`
	AgentsActive   int     `json:"agents_active"`
}

type VelocityReport struct {
	Weeks               []WeekVelocity `json:"weeks"` // oldest first
	AvgWeeklyCompletion float64        `json:"avg_weekly_completion"`
	Trend               float64        `json:"trend"`
	Trajectory          string         `json:"trajectory"` // improving|declining|stable
}

// Velocity buckets completions and creations into 7-day windows ending at
// now. A complete task counts in the week of its updated_at. The trend
// compares the mean of the latest 4 weeks with the 4 before them; with fewer
// than 8 weeks there is nothing to compare against and the trend is 0.
func Velocity(tasks []*Task, now time.Time, weeks int) VelocityReport {
	if weeks <= 0 {
		weeks = defaultVelocityWeeks
	}
	const week = 7 * 24 * time.Hour
	recentFirst := make([]WeekVelocity, weeks)
	for i := range recentFirst {
		end := now.Add(-time.Duration(i) * week)
		start := end.Add(-week)
		w := WeekVelocity{WeekStart: formatTime(start), WeekEnd: formatTime(end)}
		agents := make(map[string]struct{})
		for _, t := range tasks {
			if t.Status == StatusComplete && inWindow(t.UpdatedAt, start, end) {
				w.Completed++
				if t.EstimatedHours != nil {
					w.CompletedHours += *t.EstimatedHours
				}
				agents[t.Agent] = struct{}{}
			}
			if inWindow(t.CreatedAt, start, end) {
				w.Created++
			}
		}
		w.AgentsActive = len(agents)
		recentFirst[i] = w
	}

	recent := meanCompleted(recentFirst[:min(4, weeks)])
	older := recent
	if weeks >= 8 {
		older = meanCompleted(recentFirst[4:8])
	}
	report := VelocityReport{
		Weeks:               make([]WeekVelocity, 0, weeks),
		AvgWeeklyCompletion: recent,
		Trajectory:          "stable",
	}
	for i := weeks - 1; i >= 0; i-- {
		report.Weeks = append(report.Weeks, recentFirst[i])
	}
	if older > 0 {
		report.Trend = (recent - older) / older
	}
	switch {
	case recent > older:
		report.Trajectory = "improving"
	case recent < older:
		report.Trajectory = "declining"
	}
	return report
}

func inWindow(t, start, end time.Time) bool {
	return !t.IsZero() && !t.Before(start) && t.Before(end)
}

func meanCompleted(weeks []WeekVelocity) float64 {
	if len(weeks) == 0 {
		return 0
	}
	total := 0
	for _, w := range weeks {
		total += w.Completed
	}
	return float64(total) / float64(len(weeks))
}

type DependentCount struct {
	ID         string `json:"id"`
	Dependents int    `json:"dependents"`
}

type DependencyReport struct {
	TotalDependencies     int              `json:"total_dependencies"`
	AvgPerTask            float64          `json:"avg_per_task"`
	MaxDependencies       int              `json:"max_dependencies"`
	WithoutDependencies   int              `json:"without_dependencies"`
	MostDependedOn        []DependentCount `json:"most_depended_on"`
	MaxDepth              int              `json:"max_depth"`
	AvgDepth              float64          `json:"avg_depth"`
	BlockedByDependencies int              `json:"blocked_by_dependencies"`
	Risks                 []Finding        `json:"risks"`
}

// DependencyAnalysis measures the shape of the dependency graph. Depth is the
// longest chain below a task (0 without dependencies, 1 when every
// dependency is missing or a leaf); an edge back into the current path ends
// the chain there, so cycles terminate. The three most depended-on
// tasks that exist and are neither complete nor in progress are reported as
// risks.
func DependencyAnalysis(tasks []*Task) DependencyReport {
	byID := indexTasks(tasks)
	report := DependencyReport{MostDependedOn: []DependentCount{}, Risks: []Finding{}}
	dependents := make(map[string]int)
	for _, t := range tasks {
		deps := dedupeStrings(t.Dependencies)
		report.TotalDependencies += len(deps)
		report.MaxDependencies = max(report.MaxDependencies, len(deps))
		if len(deps) == 0 {
			report.WithoutDependencies++
		} else if t.Status == StatusBlocked {
			report.BlockedByDependencies++
		}
		for _, dep := range deps {
			dependents[dep]++
		}
	}

	ranked := make([]DependentCount, 0, len(dependents))
	for id, n := range dependents {
		ranked = append(ranked, DependentCount{ID: id, Dependents: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Dependents != ranked[j].Dependents {
			return ranked[i].Dependents > ranked[j].Dependents
		}
		return ranked[i].ID < ranked[j].ID
	})
	report.MostDependedOn = append(report.MostDependedOn, ranked[:min(5, len(ranked))]...)
	for _, dc := range ranked[:min(3, len(ranked))] {
		t := byID[dc.ID]
		if t == nil || t.Status == StatusComplete || t.Status == StatusInProgress {
			continue
		}
		report.Risks = append(report.Risks, Finding{
			Kind:        "critical_path_not_progressing",
			Severity:    "medium",
			Description: fmt.Sprintf("%s is %s and %d tasks depend on it", dc.ID, t.Status, dc.Dependents),
		})
	}

	depths := make(map[string]int, len(tasks))
	onPath := make(map[string]bool)
	var depth func(id string) int
	depth = func(id string) int {
		if d, ok := depths[id]; ok {
			return d
		}
		t := byID[id]
		if t == nil || onPath[id] {
			return 0
		}
		onPath[id] = true
		d := 0
		for _, dep := range t.Dependencies {
			below := 0
			if !onPath[dep] {
				below = depth(dep)
			}
			d = max(d, below+1)
		}
		delete(onPath, id)
		depths[id] = d
		return d
	}
	total := 0
	for _, t := range tasks {
		d := depth(t.ID)
		total += d
		report.MaxDepth = max(report.MaxDepth, d)
	}
	if len(tasks) > 0 {
		report.AvgDepth = float64(total) / float64(len(tasks))
		report.AvgPerTask = float64(report.TotalDependencies) / float64(len(tasks))
	}
	return report
}

func indexTasks(tasks []*Task) map[string]*Task {
	byID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return byID
}
