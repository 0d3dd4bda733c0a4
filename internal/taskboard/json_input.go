// JSON input parsing and validation for task creation and updates.
//
// Agents pipe JSON to stdin for mutations:
//
//	echo '{"title":"Wire the exporter","agent":"backend"}' | taskboard new
//	echo '{"priority":"high","tags":["api"]}' | taskboard set T-1a2b3c4d
//
// Input is checked against an embedded JSON Schema before decoding, so
// unknown keys and wrong types fail with a structured error instead of being
// silently dropped.
package taskboard

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed task_input.schema.json
var taskInputSchemaJSON string

const taskInputSchemaURL = "task_input.schema.json"

var (
	taskInputSchemaOnce sync.Once
	taskInputSchema     *jsonschema.Schema
	taskInputSchemaErr  error
)

func compiledTaskInputSchema() (*jsonschema.Schema, error) {
	taskInputSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(taskInputSchemaJSON))
		if err != nil {
			taskInputSchemaErr = fmt.Errorf("parse input schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(taskInputSchemaURL, doc); err != nil {
			taskInputSchemaErr = fmt.Errorf("add input schema: %w", err)
			return
		}
		taskInputSchema, taskInputSchemaErr = c.Compile(taskInputSchemaURL)
	})
	return taskInputSchema, taskInputSchemaErr
}

// TaskInput is the JSON shape for both `new` and `set`. Nil fields were not
// provided. For `set`, an empty due_date clears it.
type TaskInput struct {
	ID             *string   `json:"id,omitempty"`
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Agent          *string   `json:"agent,omitempty"`
	Status         *string   `json:"status,omitempty"`
	Priority       *string   `json:"priority,omitempty"`
	Dependencies   *[]string `json:"dependencies,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	DueDate        *string   `json:"due_date,omitempty"`
	EstimatedHours *float64  `json:"estimated_hours,omitempty"`
	ActualHours    *float64  `json:"actual_hours,omitempty"`
	Assignee       *string   `json:"assignee,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
}

// InputError is a structured error for JSON input validation.
// Written as JSON to stdout with --json (exit code 1).
type InputError struct {
	Error   string            `json:"error"` // "validation_failed", "parse_error" or "io_error"
	Message string            `json:"message"`
	Missing []string          `json:"missing,omitempty"`
	Invalid map[string]string `json:"invalid,omitempty"`
}

func (e *InputError) GoError() error {
	parts := []string{e.Message}
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required: %s", strings.Join(e.Missing, ", ")))
	}
	for _, field := range sortedKeys(e.Invalid) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Invalid[field]))
	}
	return errors.New(strings.Join(parts, "; "))
}

func (e *InputError) WriteJSON(w io.Writer) error {
	return writeJSON(w, e)
}

// readJSONFromStdin returns nil when stdin is a terminal.
func readJSONFromStdin() ([]byte, error) {
	if !stdinIsPiped() {
		return nil, nil
	}
	return io.ReadAll(os.Stdin)
}

// ParseTaskInput validates raw JSON against the input schema and decodes it.
func ParseTaskInput(data []byte) (*TaskInput, *InputError) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &InputError{Error: "parse_error", Message: "no input: pipe JSON to stdin"}
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, &InputError{Error: "parse_error", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	schema, err := compiledTaskInputSchema()
	if err != nil {
		return nil, &InputError{Error: "io_error", Message: err.Error()}
	}
	if err := schema.Validate(instance); err != nil {
		return nil, schemaInputError(err)
	}

	var input TaskInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, &InputError{Error: "parse_error", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return &input, nil
}

func schemaInputError(err error) *InputError {
	out := &InputError{Error: "validation_failed", Message: "invalid input", Invalid: map[string]string{}}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		out.Invalid["input"] = err.Error()
		return out
	}
	for _, leaf := range schemaLeaves(verr) {
		field := strings.Join(leaf.InstanceLocation, ".")
		if field == "" {
			field = "input"
		}
		if _, seen := out.Invalid[field]; !seen {
			out.Invalid[field] = schemaDetail(leaf.Error())
		}
	}
	return out
}

func schemaLeaves(verr *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(verr.Causes) == 0 {
		return []*jsonschema.ValidationError{verr}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range verr.Causes {
		out = append(out, schemaLeaves(cause)...)
	}
	return out
}

// schemaDetail keeps the reason from the last "- at '<loc>': <reason>" line.
func schemaDetail(msg string) string {
	lines := strings.Split(strings.TrimSpace(msg), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if i := strings.Index(last, "': "); i >= 0 && strings.HasPrefix(strings.TrimLeft(last, "- "), "at '") {
		return last[i+3:]
	}
	return last
}

func readTaskInput() (*TaskInput, *InputError) {
	data, err := readJSONFromStdin()
	if err != nil {
		return nil, &InputError{Error: "io_error", Message: fmt.Sprintf("failed to read stdin: %v", err)}
	}
	return ParseTaskInput(data)
}

func (t *TaskInput) provided() bool {
	return t.ID != nil || t.Title != nil || t.Description != nil || t.Agent != nil || t.Status != nil ||
		t.Priority != nil || t.Dependencies != nil || t.Tags != nil || t.DueDate != nil ||
		t.EstimatedHours != nil || t.ActualHours != nil || t.Assignee != nil || t.Notes != nil
}

// Fields converts input for `new`; title is required.
func (t *TaskInput) Fields() (TaskFields, *InputError) {
	return t.fields(true)
}

func (t *TaskInput) fields(requireTitle bool) (TaskFields, *InputError) {
	var fields TaskFields
	invalid := make(map[string]string)
	var missing []string

	switch {
	case t.Title != nil && strings.TrimSpace(*t.Title) != "":
		fields.Title = *t.Title
	case requireTitle:
		missing = append(missing, "title")
	}
	fields.ID = deref(t.ID)
	fields.Description = deref(t.Description)
	fields.Agent = deref(t.Agent)
	fields.Assignee = deref(t.Assignee)
	fields.Notes = deref(t.Notes)
	fields.EstimatedHours = t.EstimatedHours
	fields.ActualHours = t.ActualHours
	if t.Dependencies != nil {
		fields.Dependencies = *t.Dependencies
	}
	if t.Tags != nil {
		fields.Tags = *t.Tags
	}
	if t.Status != nil {
		status, err := ParseStatus(*t.Status)
		if err != nil {
			invalid["status"] = err.Error()
		}
		fields.Status = status
	}
	if t.Priority != nil {
		priority, err := ParsePriority(*t.Priority)
		if err != nil {
			invalid["priority"] = err.Error()
		}
		fields.Priority = priority
	}
	if t.DueDate != nil {
		due, err := parseDueDate(*t.DueDate)
		if err != nil {
			invalid["due_date"] = err.Error()
		}
		fields.DueDate = due
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return TaskFields{}, &InputError{Error: "validation_failed", Message: "invalid input", Missing: missing, Invalid: nilIfEmpty(invalid)}
	}
	return fields, nil
}

// Patch converts input for `set`. A status, when present, is returned
// separately so it goes through the state machine.
func (t *TaskInput) Patch() (TaskPatch, *Status, *InputError) {
	var patch TaskPatch
	invalid := make(map[string]string)

	if t.ID != nil {
		invalid["id"] = "cannot be changed"
	}
	if t.Title != nil {
		if strings.TrimSpace(*t.Title) == "" {
			invalid["title"] = "cannot be empty"
		}
		patch.Title = t.Title
	}
	patch.Description = t.Description
	patch.Agent = t.Agent
	patch.Assignee = t.Assignee
	patch.Dependencies = t.Dependencies
	patch.Tags = t.Tags
	if t.EstimatedHours != nil {
		patch.EstimatedHours = &t.EstimatedHours
	}
	if t.ActualHours != nil {
		patch.ActualHours = &t.ActualHours
	}
	if t.Notes != nil {
		invalid["notes"] = "use `taskboard note` to append notes"
	}
	if t.Priority != nil {
		priority, err := ParsePriority(*t.Priority)
		if err != nil {
			invalid["priority"] = err.Error()
		}
		patch.Priority = &priority
	}
	if t.DueDate != nil {
		due, err := parseDueDate(*t.DueDate)
		if err != nil {
			invalid["due_date"] = err.Error()
		}
		patch.DueDate = &due
	}
	var status *Status
	if t.Status != nil {
		s, err := ParseStatus(*t.Status)
		if err != nil {
			invalid["status"] = err.Error()
		}
		status = &s
	}

	if len(invalid) > 0 {
		return TaskPatch{}, nil, &InputError{Error: "validation_failed", Message: "invalid input", Invalid: invalid}
	}
	return patch, status, nil
}

func parseDueDate(value string) (*time.Time, error) {
	due, err := parseOptionalTime("due_date", value)
	if err != nil || due.IsZero() {
		return nil, err
	}
	return &due, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nilIfEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}
