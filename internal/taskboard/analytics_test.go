package taskboard

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func analyticsFixture() []*Task {
	past := testNow.Add(-24 * time.Hour)
	est, actual := 4.0, 6.0
	return []*Task{
		{ID: "A", Agent: "DEVELOPER", Status: StatusComplete, Priority: PriorityHigh,
			CreatedAt: testNow.Add(-10 * time.Hour), UpdatedAt: testNow.Add(-4 * time.Hour), EstimatedHours: &est, ActualHours: &actual},
		{ID: "B", Agent: "DEVELOPER", Status: StatusTodo, Priority: PriorityMedium, Dependencies: []string{"C"}},
		{ID: "C", Agent: "TESTER", Status: StatusInProgress, Priority: PriorityMedium, DueDate: &past},
		{ID: "D", Agent: "TESTER", Status: StatusBlocked, Priority: PriorityLow, Dependencies: []string{"C", "C", "A"}},
		{ID: "E", Agent: "TESTER", Status: StatusBlocked, Priority: PriorityLow, Dependencies: []string{"C"}},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(analyticsFixture(), testNow)
	if s.Total != 5 || s.Blocked != 2 || s.Overdue != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.ByStatus["complete"] != 1 || s.ByStatus["pending"] != 0 || s.ByStatus["blocked"] != 2 {
		t.Fatalf("unexpected status counts: %v", s.ByStatus)
	}
	if s.ByPriority["critical"] != 0 || s.ByPriority["low"] != 2 {
		t.Fatalf("unexpected priority counts: %v", s.ByPriority)
	}
	if s.ByAgent["TESTER"] != 3 {
		t.Fatalf("unexpected agent counts: %v", s.ByAgent)
	}
	if math.Abs(s.CompletionRate-0.2) > 1e-9 || math.Abs(s.AvgCycleHours-6) > 1e-9 {
		t.Fatalf("expected rate 0.2 and cycle 6h, got %v %v", s.CompletionRate, s.AvgCycleHours)
	}
	if !reflect.DeepEqual(s.DependencyViolations, []string{"B"}) {
		t.Fatalf("expected B as the only violation, got %v", s.DependencyViolations)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, testNow)
	if s.Total != 0 || s.CompletionRate != 0 || s.DependencyViolations == nil {
		t.Fatalf("unexpected empty summary: %+v", s)
	}
}

func TestAgentPerformance(t *testing.T) {
	rows := AgentPerformance(analyticsFixture())
	if len(rows) != 2 || rows[0].Agent != "DEVELOPER" {
		t.Fatalf("expected rows sorted by agent, got %+v", rows)
	}
	dev := rows[0]
	if dev.Total != 2 || dev.Complete != 1 || dev.Active != 1 || dev.CompletionRate != 0.5 {
		t.Fatalf("unexpected DEVELOPER row: %+v", dev)
	}
	if dev.EstimatedHours != 4 || dev.ActualHours != 6 {
		t.Fatalf("unexpected hours: %+v", dev)
	}
}

func TestBottlenecks(t *testing.T) {
	r := Bottlenecks(analyticsFixture(), testNow)
	if !reflect.DeepEqual(r.TopBlocking, []BlockingTask{{ID: "C", Blocked: 2}}) {
		t.Fatalf("expected C blocking 2 tasks, got %+v", r.TopBlocking)
	}
	kinds := make(map[string]string)
	for _, f := range r.Findings {
		kinds[f.Kind] = f.Severity
	}
	if kinds["high_blocked_ratio"] != "high" || kinds["overdue_tasks"] != "medium" {
		t.Fatalf("unexpected findings: %+v", r.Findings)
	}
	if _, ok := kinds["agent_overload"]; ok || len(r.OverloadedAgents) != 0 {
		t.Fatalf("expected no overload, got %+v", r)
	}
}

func TestBottlenecks_Overload(t *testing.T) {
	var tasks []*Task
	for i := 0; i < overloadThreshold+1; i++ {
		tasks = append(tasks, &Task{ID: string(rune('a' + i)), Agent: "BUSY", Status: StatusTodo})
	}
	r := Bottlenecks(tasks, testNow)
	if !reflect.DeepEqual(r.OverloadedAgents, []string{"BUSY"}) {
		t.Fatalf("expected BUSY overloaded, got %v", r.OverloadedAgents)
	}
}

func completedAt(id string, ago time.Duration) *Task {
	est := 2.0
	at := testNow.Add(-ago)
	return &Task{ID: id, Agent: "DEVELOPER", Status: StatusComplete, CreatedAt: at, UpdatedAt: at, EstimatedHours: &est}
}

func TestVelocity_WeeklyBuckets(t *testing.T) {
	day := 24 * time.Hour
	tasks := []*Task{
		completedAt("A", day),
		completedAt("B", 8*day),
		completedAt("C", 9*day),
		{ID: "D", Status: StatusTodo, CreatedAt: testNow.Add(-2 * day)},
		completedAt("E", 100*day),
	}
	r := Velocity(tasks, testNow, 8)
	if len(r.Weeks) != 8 {
		t.Fatalf("expected 8 weeks, got %d", len(r.Weeks))
	}
	latest, previous := r.Weeks[7], r.Weeks[6]
	if latest.Completed != 1 || latest.Created != 2 || latest.CompletedHours != 2 || latest.AgentsActive != 1 {
		t.Fatalf("unexpected latest week: %+v", latest)
	}
	if previous.Completed != 2 {
		t.Fatalf("expected 2 completions the week before, got %+v", previous)
	}
	if latest.WeekEnd != formatTime(testNow) || r.Weeks[0].WeekStart != formatTime(testNow.Add(-56*day)) {
		t.Fatalf("unexpected window bounds: %s .. %s", r.Weeks[0].WeekStart, latest.WeekEnd)
	}
	if r.AvgWeeklyCompletion != 0.75 || r.Trend != 0 || r.Trajectory != "improving" {
		t.Fatalf("expected 0.75/week improving with no baseline trend, got %+v", r)
	}
}

func TestVelocity_Trend(t *testing.T) {
	day := 24 * time.Hour
	tasks := []*Task{completedAt("A", 10*day), completedAt("B", 36*day), completedAt("C", 37*day)}
	r := Velocity(tasks, testNow, 8)
	if r.AvgWeeklyCompletion != 0.25 || r.Trend != -0.5 || r.Trajectory != "declining" {
		t.Fatalf("expected a 50%% decline, got %+v", r)
	}

	short := Velocity(tasks, testNow, 2)
	if short.Trajectory != "stable" || short.Trend != 0 {
		t.Fatalf("expected a stable short window, got %+v", short)
	}
	if len(Velocity(nil, testNow, 0).Weeks) != defaultVelocityWeeks {
		t.Fatal("expected the default window for weeks <= 0")
	}
}

func TestDependencyAnalysis(t *testing.T) {
	r := DependencyAnalysis(analyticsFixture())
	if r.TotalDependencies != 4 || r.MaxDependencies != 2 || r.WithoutDependencies != 2 || r.BlockedByDependencies != 2 {
		t.Fatalf("unexpected counts: %+v", r)
	}
	if !reflect.DeepEqual(r.MostDependedOn, []DependentCount{{ID: "C", Dependents: 3}, {ID: "A", Dependents: 1}}) {
		t.Fatalf("unexpected ranking: %+v", r.MostDependedOn)
	}
	if r.MaxDepth != 1 || math.Abs(r.AvgDepth-0.6) > 1e-9 || math.Abs(r.AvgPerTask-0.8) > 1e-9 {
		t.Fatalf("unexpected depth: %+v", r)
	}
	if len(r.Risks) != 0 {
		t.Fatalf("expected no risks while C is in progress, got %+v", r.Risks)
	}
}

func TestDependencyAnalysis_CyclesTerminate(t *testing.T) {
	tasks := []*Task{
		{ID: "X", Status: StatusTodo, Dependencies: []string{"Y"}},
		{ID: "Y", Status: StatusTodo, Dependencies: []string{"Z"}},
		{ID: "Z", Status: StatusTodo, Dependencies: []string{"X"}},
		{ID: "W", Status: StatusTodo, Dependencies: []string{"X"}},
		{ID: "G", Status: StatusTodo, Dependencies: []string{"missing"}},
	}
	r := DependencyAnalysis(tasks)
	if r.MaxDepth != 4 {
		t.Fatalf("expected max depth 4, got %d", r.MaxDepth)
	}
	if len(r.Risks) != 3 || r.Risks[0].Description != "X is todo and 2 tasks depend on it" {
		t.Fatalf("unexpected risks: %+v", r.Risks)
	}
}
