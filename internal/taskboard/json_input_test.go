// Tests for stdin JSON parsing, schema checks and conversion to store inputs.
package taskboard

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseTaskInput_Valid(t *testing.T) {
	input, ierr := ParseTaskInput([]byte(`{"title":"Add exporter","tags":["api"],"estimated_hours":2,"due_date":"2024-07-01"}`))
	if ierr != nil {
		t.Fatalf("unexpected error: %+v", ierr)
	}
	if input.Title == nil || *input.Title != "Add exporter" {
		t.Fatalf("expected title, got %v", input.Title)
	}
	if input.Tags == nil || len(*input.Tags) != 1 {
		t.Fatalf("expected tags, got %v", input.Tags)
	}
	if input.Agent != nil {
		t.Fatal("expected absent agent to stay nil")
	}
	if !input.provided() {
		t.Fatal("expected provided() to be true")
	}
}

func TestParseTaskInput_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  string
		field string
	}{
		{"empty", "   ", "parse_error", ""},
		{"not json", "{title:", "parse_error", ""},
		{"unknown field", `{"title":"x","owner":"me"}`, "validation_failed", "input"},
		{"not an object", `["x"]`, "validation_failed", "input"},
		{"wrong type", `{"tags":"api"}`, "validation_failed", "tags"},
		{"wrong item type", `{"dependencies":["A", 3]}`, "validation_failed", "dependencies.1"},
		{"enum", `{"priority":"urgent"}`, "validation_failed", "priority"},
		{"minimum", `{"actual_hours":-2}`, "validation_failed", "actual_hours"},
		{"id pattern", `{"id":"a b"}`, "validation_failed", "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ierr := ParseTaskInput([]byte(tt.input))
			if ierr == nil {
				t.Fatal("expected error")
			}
			if ierr.Error != tt.kind {
				t.Fatalf("expected %s, got %s (%s)", tt.kind, ierr.Error, ierr.Message)
			}
			if tt.field != "" {
				if _, ok := ierr.Invalid[tt.field]; !ok {
					t.Fatalf("expected invalid field %q, got %v", tt.field, ierr.Invalid)
				}
			}
		})
	}
}

func TestInputError_Rendering(t *testing.T) {
	ierr := &InputError{Error: "validation_failed", Message: "invalid input", Missing: []string{"title"}, Invalid: map[string]string{"b": "bad", "a": "worse"}}
	expected := "invalid input; missing required: title; a: worse; b: bad"
	if got := ierr.GoError().Error(); got != expected {
		t.Fatalf("expected %q, got %q", expected, got)
	}

	var buf bytes.Buffer
	if err := ierr.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["error"] != "validation_failed" {
		t.Fatalf("expected error key, got %v", decoded)
	}
}

func TestTaskInput_Fields(t *testing.T) {
	input, _ := ParseTaskInput([]byte(`{"id":"A","title":"x","status":"done","priority":"high","due_date":"2024-07-01","dependencies":["B"]}`))
	fields, ierr := input.Fields()
	if ierr != nil {
		t.Fatalf("unexpected error: %+v", ierr)
	}
	if fields.ID != "A" || fields.Status != StatusComplete || fields.Priority != PriorityHigh {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if fields.DueDate == nil || !fields.DueDate.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date: %v", fields.DueDate)
	}
	if len(fields.Dependencies) != 1 {
		t.Fatalf("expected dependencies, got %v", fields.Dependencies)
	}

	input, _ = ParseTaskInput([]byte(`{"status":"finished","due_date":"soon"}`))
	_, ierr = input.Fields()
	if ierr == nil {
		t.Fatal("expected error")
	}
	if len(ierr.Missing) != 1 || ierr.Missing[0] != "title" {
		t.Fatalf("expected missing title, got %v", ierr.Missing)
	}
	for _, field := range []string{"status", "due_date"} {
		if _, ok := ierr.Invalid[field]; !ok {
			t.Errorf("expected invalid %s, got %v", field, ierr.Invalid)
		}
	}
}

func TestTaskInput_Patch(t *testing.T) {
	input, _ := ParseTaskInput([]byte(`{"priority":"low","due_date":"","status":"in-progress","estimated_hours":3}`))
	patch, status, ierr := input.Patch()
	if ierr != nil {
		t.Fatalf("unexpected error: %+v", ierr)
	}
	if patch.Priority == nil || *patch.Priority != PriorityLow {
		t.Fatalf("expected priority low, got %v", patch.Priority)
	}
	if patch.DueDate == nil || *patch.DueDate != nil {
		t.Fatal("expected an empty due_date to clear the date")
	}
	if patch.EstimatedHours == nil || **patch.EstimatedHours != 3 {
		t.Fatal("expected estimate 3")
	}
	if status == nil || *status != StatusInProgress {
		t.Fatalf("expected status in_progress, got %v", status)
	}
	if patch.Title != nil || patch.Tags != nil {
		t.Fatal("expected absent fields to stay nil")
	}

	input, _ = ParseTaskInput([]byte(`{"id":"B","notes":"x","title":" "}`))
	_, _, ierr = input.Patch()
	if ierr == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"id", "notes", "title"} {
		if _, ok := ierr.Invalid[field]; !ok {
			t.Errorf("expected invalid %s, got %v", field, ierr.Invalid)
		}
	}
	if !strings.Contains(ierr.Invalid["notes"], "taskboard note") {
		t.Fatalf("expected note hint, got %q", ierr.Invalid["notes"])
	}
}
