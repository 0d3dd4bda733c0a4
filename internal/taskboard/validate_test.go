// Tests for per-task and system validation plus auto-fix.
package taskboard

import (
	"strings"
	"testing"
	"time"

	"github.com/sandover/taskboard/internal/config"
)

func newTestValidator(t *testing.T, s *Store) (*Validator, *Recorder) {
	t.Helper()
	cfg := config.DefaultConfig()
	rec := &Recorder{}
	return NewValidator(s, NewAgentRegistry(cfg), cfg, WithValidatorClock(fixedClock), WithValidatorNotifier(rec)), rec
}

func findIssue(issues []ValidationError, field, fragment string) *ValidationError {
	for i := range issues {
		if issues[i].Field == field && strings.Contains(issues[i].Message, fragment) {
			return &issues[i]
		}
	}
	return nil
}

func TestValidate_CleanTask(t *testing.T) {
	s, _, _ := newTestStore(t)
	task := mustCreate(t, s, TaskFields{ID: "A", Title: "Implement login", Description: "write the code", Agent: "DEVELOPER"})
	v, _ := newTestValidator(t, s)
	warnings, errs := v.Validate(task)
	if len(errs) != 0 || len(warnings) != 0 {
		t.Fatalf("expected no issues, got %v %v", warnings, errs)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	s, _, _ := newTestStore(t)
	v, _ := newTestValidator(t, s)
	_, errs := v.Validate(&Task{ID: "A", Status: StatusTodo})
	for _, field := range []string{"title", "description", "agent"} {
		if findIssue(errs, field, "required field") == nil {
			t.Errorf("expected required error for %s, got %v", field, errs)
		}
	}
	if findIssue(errs, "id", "required") != nil {
		t.Error("expected id to be present")
	}
}

func TestValidate_Findings(t *testing.T) {
	s, _, _ := newTestStore(t)
	v, _ := newTestValidator(t, s)
	past := testNow.Add(-48 * time.Hour)
	far := testNow.AddDate(2, 0, 0)
	est, actual := 1.0, 5.0

	tests := []struct {
		name     string
		task     Task
		severity Severity
		field    string
		fragment string
	}{
		{"unknown agent", Task{Agent: "SECSENTINEL"}, SeverityWarning, "agent", "suggested migration: 'SECURITY'"},
		{"agent mismatch", Task{Agent: "TESTER", Title: "Paint the shed"}, SeverityInfo, "agent", "may not match"},
		{"todo with deps", Task{Status: StatusTodo, Dependencies: []string{"B"}}, SeverityWarning, "status", "should be blocked or pending"},
		{"self dependency", Task{ID: "A", Dependencies: []string{"A"}}, SeverityError, "dependencies", "cannot depend on itself"},
		{"duplicate deps", Task{Dependencies: []string{"B", "B"}}, SeverityWarning, "dependencies", "duplicate"},
		{"bad dep id", Task{Dependencies: []string{"a b"}}, SeverityError, "dependencies", "invalid dependency id"},
		{"overdue", Task{Status: StatusTodo, DueDate: &past}, SeverityWarning, "due_date", "overdue"},
		{"far due date", Task{Status: StatusTodo, DueDate: &far}, SeverityInfo, "due_date", "more than 1 year"},
		{"critical without due", Task{Priority: PriorityCritical}, SeverityWarning, "due_date", "critical"},
		{"hours overrun", Task{EstimatedHours: &est, ActualHours: &actual}, SeverityInfo, "actual_hours", "exceed"},
		{"bad tag", Task{Tags: []string{"not-a-real-tag"}}, SeverityWarning, "tags", "invalid tag"},
		{"too many tags", Task{Tags: []string{"cli", "ux", "api", "git", "yaml", "ai"}}, SeverityWarning, "tags", "too many tags"},
		{"title too long", Task{Title: strings.Repeat("x", 101)}, SeverityWarning, "title", "maximum length"},
		{"future created", Task{CreatedAt: testNow.Add(time.Hour)}, SeverityError, "created_at", "future"},
		{"updated before created", Task{CreatedAt: testNow, UpdatedAt: testNow.Add(-time.Hour)}, SeverityError, "updated_at", "before created"},
		{"complete without updated", Task{Status: StatusComplete}, SeverityError, "updated_at", "completed tasks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.task
			if task.ID == "" {
				task.ID = "T"
			}
			if task.Status == "" {
				task.Status = StatusPending
			}
			warnings, errs := v.Validate(&task)
			pool := warnings
			if tt.severity == SeverityError {
				pool = errs
			}
			issue := findIssue(pool, tt.field, tt.fragment)
			if issue == nil {
				t.Fatalf("expected %s on %s containing %q, got warnings=%v errors=%v", tt.severity, tt.field, tt.fragment, warnings, errs)
			}
			if issue.Severity != tt.severity {
				t.Fatalf("expected severity %s, got %s", tt.severity, issue.Severity)
			}
		})
	}
}

func TestValidate_UnknownAgentSuggestion(t *testing.T) {
	s, _, _ := newTestStore(t)
	v, _ := newTestValidator(t, s)
	warnings, _ := v.Validate(&Task{ID: "A", Title: "x", Status: StatusTodo, Agent: "ResearchOracle"})
	issue := findIssue(warnings, "agent", "unknown agent")
	if issue == nil || issue.Suggestion != "RESEARCHER" {
		t.Fatalf("expected RESEARCHER suggestion, got %+v", issue)
	}
}

func TestValidateSystem_GraphAndConsistency(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreate(t, s, TaskFields{ID: "A", Title: "a", Status: StatusBlocked, Dependencies: []string{"B"}})
	mustCreate(t, s, TaskFields{ID: "B", Title: "b", Status: StatusBlocked, Dependencies: []string{"A", "ghost"}})
	mustCreate(t, s, TaskFields{ID: "C", Title: "c", Status: StatusBlocked})
	v, _ := newTestValidator(t, s)

	warnings, errs := v.ValidateSystem()
	if issue := findIssue(errs, "dependencies", "dependency 'ghost' does not exist"); issue == nil || issue.TaskID != "B" {
		t.Fatalf("expected missing dependency error on B, got %v", errs)
	}
	if issue := findIssue(errs, "dependencies", "circular dependency detected: A -> B -> A"); issue == nil || issue.TaskID != "A" {
		t.Fatalf("expected cycle error, got %v", errs)
	}
	if findIssue(warnings, "status", "blocked without dependencies: C") == nil {
		t.Fatalf("expected blocked-without-deps warning, got %v", warnings)
	}

	report := NewReport(warnings, errs)
	if !report.HasErrors() || report.Total() != len(warnings)+len(errs) {
		t.Fatalf("unexpected report totals: %+v", report)
	}
	for _, issue := range report.Info {
		if issue.Severity != SeverityInfo {
			t.Fatalf("expected only info in Info, got %s", issue.Severity)
		}
	}
}

func TestValidateSystem_Workload(t *testing.T) {
	s, _, _ := newTestStore(t)
	for i := 0; i < 11; i++ {
		mustCreate(t, s, TaskFields{Title: "build thing", Agent: "DEVELOPER"})
	}
	mustCreate(t, s, TaskFields{ID: "idle", Title: "done", Agent: "TESTER", Status: StatusComplete})
	v, _ := newTestValidator(t, s)
	warnings, _ := v.ValidateSystem()
	if findIssue(warnings, "agent", "'DEVELOPER' has 11 active tasks") == nil {
		t.Fatalf("expected overload warning, got %v", warnings)
	}
	if findIssue(warnings, "agent", "no active tasks: TESTER") == nil {
		t.Fatalf("expected idle agent info, got %v", warnings)
	}
}

func TestAutoFix_MigratesOnce(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreate(t, s, TaskFields{ID: "A", Title: "x", Agent: "BUILDFLOW"})
	mustCreate(t, s, TaskFields{ID: "B", Title: "Investigate options", Agent: "Mystery"})
	mustCreate(t, s, TaskFields{ID: "C", Title: "ok", Agent: "DEVELOPER"})
	v, rec := newTestValidator(t, s)

	planned, err := v.AutoFix(FixOptions{DryRun: true})
	if err != nil {
		t.Fatalf("AutoFix dry run: %v", err)
	}
	if len(planned) != 2 || s.Get("A").Agent != "BUILDFLOW" {
		t.Fatalf("expected 2 planned fixes and no changes, got %v", planned)
	}

	fixes, err := v.AutoFix(FixOptions{})
	if err != nil {
		t.Fatalf("AutoFix: %v", err)
	}
	if len(fixes) != 2 || fixes[0].String() != "A agent: BUILDFLOW -> DEVOPS" || fixes[1].To != "RESEARCHER" {
		t.Fatalf("unexpected fixes: %v", fixes)
	}
	if s.Get("A").Agent != "DEVOPS" || !strings.Contains(s.Get("A").Notes, "Agent migrated from BUILDFLOW to DEVOPS") {
		t.Fatalf("expected A migrated with a note, got %+v", s.Get("A"))
	}
	if len(rec.OfKind(EventAgentMigrated)) != 2 {
		t.Fatal("expected migration events")
	}

	again, err := v.AutoFix(FixOptions{})
	if err != nil || len(again) != 0 {
		t.Fatalf("expected second pass to be a no-op, got %v %v", again, err)
	}
}

func TestAutoFix_DependencyStatus(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreate(t, s, TaskFields{ID: "A", Title: "a"})
	mustCreate(t, s, TaskFields{ID: "B", Title: "b", Dependencies: []string{"A"}})
	v, _ := newTestValidator(t, s)

	if fixes, _ := v.AutoFix(FixOptions{}); len(fixes) != 0 {
		t.Fatalf("expected no status fixes without the option, got %v", fixes)
	}
	fixes, err := v.AutoFix(FixOptions{DependencyStatus: true})
	if err != nil {
		t.Fatalf("AutoFix: %v", err)
	}
	if len(fixes) != 1 || fixes[0].TaskID != "B" || fixes[0].To != string(StatusBlocked) {
		t.Fatalf("expected B moved to blocked, got %v", fixes)
	}
	if s.Get("B").Status != StatusBlocked {
		t.Fatalf("expected B blocked, got %s", s.Get("B").Status)
	}
	if again, _ := v.AutoFix(FixOptions{DependencyStatus: true}); len(again) != 0 {
		t.Fatalf("expected second pass to be a no-op, got %v", again)
	}
}
