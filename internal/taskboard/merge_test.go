// Tests for merge strategies, execution and reference repair.
package taskboard

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestStrategy_KeepsNewerThenMoreComplete(t *testing.T) {
	s, _, _ := newTestStore(t)
	d := newTestDeduplicator(s, &Recorder{})
	older := &Task{ID: "A", Title: "x", UpdatedAt: testNow.Add(-time.Hour), Description: "full", Assignee: "sam"}
	newer := &Task{ID: "B", Title: "x", UpdatedAt: testNow}

	st := d.Strategy(older, newer)
	if st.KeepID != "B" || st.RemoveID != "A" {
		t.Fatalf("expected newer B kept, got %+v", st)
	}
	if st.FieldSources["description"] != "A" || st.FieldSources["assignee"] != "A" || st.FieldSources["title"] != "B" {
		t.Fatalf("expected empty fields sourced from A, got %v", st.FieldSources)
	}

	tied := &Task{ID: "C", Title: "x", UpdatedAt: testNow, Description: "more"}
	if st := d.Strategy(newer, tied); st.KeepID != "C" {
		t.Fatalf("expected more complete C kept on a tie, got %s", st.KeepID)
	}
	twin := &Task{ID: "0", Title: "x", UpdatedAt: testNow}
	if st := d.Strategy(newer, twin); st.KeepID != "0" {
		t.Fatalf("expected smaller id kept on a full tie, got %s", st.KeepID)
	}
}

func TestManualStrategy(t *testing.T) {
	st, err := ManualStrategy("A", "B", []string{"title", "due_date"})
	if err != nil {
		t.Fatalf("ManualStrategy: %v", err)
	}
	if st.FieldSources["title"] != "B" || st.FieldSources["agent"] != "A" || st.FieldSources["due_date"] != "B" {
		t.Fatalf("unexpected sources: %v", st.FieldSources)
	}
	var merr *MergeError
	if _, err := ManualStrategy("A", "B", []string{"status"}); !errors.As(err, &merr) {
		t.Fatalf("expected MergeError for status, got %v", err)
	}
}

func TestExecute_MergesAndRewritesReferences(t *testing.T) {
	s, p, _ := newTestStore(t)
	rec := &Recorder{}
	actual := 2.0
	mustCreate(t, s, TaskFields{ID: "KEEP", Title: "Ship docs", Agent: "DOCUMENTER", Tags: []string{"docs"}, Dependencies: []string{"X"}})
	mustCreate(t, s, TaskFields{ID: "DROP", Title: "Ship the docs", Agent: "DOCUMENTER", Description: "longer text",
		Tags: []string{"docs", "release"}, Dependencies: []string{"Y", "KEEP"}, Notes: "old note", ActualHours: &actual})
	mustCreate(t, s, TaskFields{ID: "X", Title: "x"})
	mustCreate(t, s, TaskFields{ID: "Y", Title: "y", Dependencies: []string{"DROP"}})
	mustCreate(t, s, TaskFields{ID: "Z", Title: "z", Status: StatusBlocked, Dependencies: []string{"DROP", "KEEP"}})
	d := newTestDeduplicator(s, rec)

	strategy, err := ManualStrategy("KEEP", "DROP", []string{"description"})
	if err != nil {
		t.Fatalf("ManualStrategy: %v", err)
	}
	merged, err := d.ManualMerge(strategy)
	if err != nil {
		t.Fatalf("ManualMerge: %v", err)
	}

	if merged.Title != "Ship docs" || merged.Description != "longer text" {
		t.Fatalf("unexpected merged text: %q %q", merged.Title, merged.Description)
	}
	if !reflect.DeepEqual(merged.Tags, []string{"docs", "release"}) {
		t.Fatalf("expected tag union, got %v", merged.Tags)
	}
	if !reflect.DeepEqual(merged.Dependencies, []string{"X", "Y"}) {
		t.Fatalf("expected dependency union without self refs, got %v", merged.Dependencies)
	}
	if !strings.Contains(merged.Notes, "Merged from task DROP: old note") {
		t.Fatalf("expected merged note, got %q", merged.Notes)
	}
	if merged.ActualHours == nil || *merged.ActualHours != 2 {
		t.Fatalf("expected actual hours carried over, got %v", merged.ActualHours)
	}

	if s.Exists("DROP") || p.saved["DROP"] != nil {
		t.Fatal("expected removed task to be deleted")
	}
	// Y now depends on KEEP, which depends on Y; the cycle is reported later, not repaired.
	if got := s.Get("Y").Dependencies; !reflect.DeepEqual(got, []string{"KEEP"}) {
		t.Fatalf("expected Y → [KEEP], got %v", got)
	}
	if got := s.Get("Z").Dependencies; !reflect.DeepEqual(got, []string{"KEEP"}) {
		t.Fatalf("expected Z deps deduplicated to [KEEP], got %v", got)
	}
	for _, task := range s.All() {
		if containsString(task.Dependencies, "DROP") {
			t.Fatalf("task %s still references DROP", task.ID)
		}
	}
	if len(rec.OfKind(EventReferenceRewrite)) != 2 || len(rec.OfKind(EventMerged)) != 1 {
		t.Fatal("expected rewrite and merge events")
	}
}

func TestExecute_Errors(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreate(t, s, TaskFields{ID: "A", Title: "a"})
	d := newTestDeduplicator(s, &Recorder{})

	tests := []struct {
		name     string
		strategy MergeStrategy
	}{
		{"self", MergeStrategy{KeepID: "A", RemoveID: "A"}},
		{"missing keep", MergeStrategy{KeepID: "nope", RemoveID: "A"}},
		{"missing remove", MergeStrategy{KeepID: "A", RemoveID: "nope"}},
	}
	for _, tt := range tests {
		var merr *MergeError
		if _, err := d.Execute(tt.strategy); !errors.As(err, &merr) {
			t.Errorf("%s: expected MergeError, got %v", tt.name, err)
		}
	}
	if s.Len() != 1 {
		t.Fatal("expected failed merges to leave the store alone")
	}
}

func TestExecute_RejectsUnknownField(t *testing.T) {
	s, p, _ := newTestStore(t)
	mustCreate(t, s, TaskFields{ID: "A", Title: "a"})
	mustCreate(t, s, TaskFields{ID: "B", Title: "b", Tags: []string{"x"}})
	d := newTestDeduplicator(s, &Recorder{})
	saves := len(p.saved)

	for _, field := range []string{"tags", "status", "bogus"} {
		var merr *MergeError
		_, err := d.Execute(MergeStrategy{KeepID: "A", RemoveID: "B", FieldSources: map[string]string{field: "B"}})
		if !errors.As(err, &merr) {
			t.Fatalf("%s: expected MergeError, got %v", field, err)
		}
		if !strings.Contains(merr.Reason, "unknown merge field") {
			t.Errorf("%s: expected unknown field reason, got %q", field, merr.Reason)
		}
	}
	if !s.Exists("B") || len(p.saved) != saves || len(p.deleted) != 0 {
		t.Fatal("expected rejected strategies to write nothing")
	}
}

func TestExecute_DeleteFailureRollsBackAndRetries(t *testing.T) {
	s, p, _ := newTestStore(t)
	mustCreate(t, s, TaskFields{ID: "A", Title: "a", Notes: "keep note"})
	hours := 3.0
	mustCreate(t, s, TaskFields{ID: "R", Title: "r", Notes: "remove note", ActualHours: &hours})
	rec := &Recorder{}
	d := newTestDeduplicator(s, rec)
	strategy := MergeStrategy{KeepID: "A", RemoveID: "R"}

	p.failDelete["R"] = errors.New("disk full")
	var merr *MergeError
	if _, err := d.Execute(strategy); !errors.As(err, &merr) {
		t.Fatalf("expected MergeError, got %v", err)
	}
	kept := s.Get("A")
	if strings.Contains(kept.Notes, "Merged from task R") || kept.ActualHours != nil {
		t.Fatalf("expected kept task rolled back, got notes %q hours %v", kept.Notes, kept.ActualHours)
	}
	if strings.Contains(p.saved["A"].Notes, "Merged from task R") {
		t.Fatal("expected rollback persisted")
	}
	if !s.Exists("R") {
		t.Fatal("expected R to survive a failed delete")
	}
	if len(rec.OfKind(EventMergeFailed)) != 0 {
		t.Fatal("expected no merge failure event after a clean rollback")
	}

	delete(p.failDelete, "R")
	merged, err := d.Execute(strategy)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := strings.Count(merged.Notes, "Merged from task R"); got != 1 {
		t.Fatalf("expected one merge note, got %d in %q", got, merged.Notes)
	}
	if merged.ActualHours == nil || *merged.ActualHours != 3 {
		t.Fatalf("expected hours carried once, got %v", merged.ActualHours)
	}
}

func TestExecute_DoesNotRefoldInterruptedMerge(t *testing.T) {
	s, _, _ := newTestStore(t)
	hours := 5.0
	mustCreate(t, s, TaskFields{ID: "A", Title: "a", Notes: "[2024-05-01 10:00] Merged from task R: remove note", ActualHours: &hours})
	extra := 2.0
	mustCreate(t, s, TaskFields{ID: "R", Title: "r", Notes: "remove note", ActualHours: &extra})
	d := newTestDeduplicator(s, &Recorder{})

	merged, err := d.Execute(MergeStrategy{KeepID: "A", RemoveID: "R"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := strings.Count(merged.Notes, "Merged from task R"); got != 1 {
		t.Fatalf("expected the existing merge note only, got %d in %q", got, merged.Notes)
	}
	if *merged.ActualHours != 5 {
		t.Fatalf("expected hours left at 5, got %v", *merged.ActualHours)
	}
	if s.Exists("R") {
		t.Fatal("expected R deleted")
	}
}

func TestAutoMerge(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreate(t, s, TaskFields{ID: "A", Title: "Fix flaky test", Agent: "TESTER"})
	mustCreate(t, s, TaskFields{ID: "B", Title: "Fix flaky test", Agent: "TESTER", Description: "the retry one"})
	mustCreate(t, s, TaskFields{ID: "C", Title: "Fix flaky test", Agent: "TESTER"})
	mustCreate(t, s, TaskFields{ID: "D", Title: "Something else", Agent: "TESTER"})
	d := newTestDeduplicator(s, &Recorder{})

	planned, err := d.AutoMerge(true)
	if err != nil {
		t.Fatalf("AutoMerge dry run: %v", err)
	}
	if len(planned) != 1 || s.Len() != 4 {
		t.Fatalf("expected one planned merge and no writes, got %v", planned)
	}

	merged, err := d.AutoMerge(false)
	if err != nil {
		t.Fatalf("AutoMerge: %v", err)
	}
	if !reflect.DeepEqual(merged, planned) {
		t.Fatalf("expected the same merges as planned, got %v vs %v", merged, planned)
	}
	if s.Len() != 3 {
		t.Fatalf("expected one task removed, got %d", s.Len())
	}
}

func TestPreview_Conflicts(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreate(t, s, TaskFields{ID: "A", Title: "Same", Agent: "TESTER", Priority: PriorityHigh, Tags: []string{"api", "ui"}})
	mustCreate(t, s, TaskFields{ID: "B", Title: "Same", Agent: "DEVELOPER", Tags: []string{"api", "cli"}})
	d := newTestDeduplicator(s, &Recorder{})

	preview, err := d.Preview("A", "B")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	fields := make(map[string]Conflict)
	for _, c := range preview.Conflicts {
		fields[c.Field] = c
	}
	if _, ok := fields["title"]; ok {
		t.Fatal("expected equal titles not to conflict")
	}
	if c := fields["agent"]; c.KeepValue != "TESTER" || c.RemoveValue != "DEVELOPER" {
		t.Fatalf("unexpected agent conflict: %+v", c)
	}
	if _, ok := fields["priority"]; !ok {
		t.Fatal("expected priority conflict")
	}
	if c := fields["tags"]; !reflect.DeepEqual(c.KeepOnly, []string{"ui"}) || !reflect.DeepEqual(c.RemoveOnly, []string{"cli"}) {
		t.Fatalf("unexpected tag conflict: %+v", c)
	}

	var nf *NotFoundError
	if _, err := d.Preview("A", "ghost"); !errors.As(err, &nf) || nf.ID != "ghost" {
		t.Fatalf("expected NotFoundError for ghost, got %v", err)
	}
}
