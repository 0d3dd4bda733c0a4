package taskboard

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrNoTaskDir = errors.New("no .taskboard directory found")
	ErrLockBusy  = errors.New("lock busy")
)

// NotFoundError reports an unknown task id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown task id %s", e.ID)
}

// InvalidTransitionError reports a status edge missing from the state machine.
type InvalidTransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	next := NextStatuses(e.From)
	if len(next) == 0 {
		return fmt.Sprintf("task %s: invalid transition: %s → %s", e.ID, e.From, e.To)
	}
	return fmt.Sprintf("task %s: invalid transition: %s → %s (allowed: %s)", e.ID, e.From, e.To, joinStatuses(next))
}

// DependencyUnsatisfiedError reports a todo transition with incomplete deps.
type DependencyUnsatisfiedError struct {
	ID          string
	Unsatisfied []string
}

func (e *DependencyUnsatisfiedError) Error() string {
	return fmt.Sprintf("task %s: dependencies not complete: %s", e.ID, strings.Join(e.Unsatisfied, ", "))
}

// PersistenceError wraps a failed read or write of a task file.
type PersistenceError struct {
	Op   string // "load", "save", "delete"
	ID   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	switch {
	case e.ID != "" && e.Path != "":
		return fmt.Sprintf("%s %s [%s]: %v", e.Op, e.ID, e.Path, e.Err)
	case e.ID != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

var severityRank = map[Severity]int{
	SeverityError:   0,
	SeverityWarning: 1,
	SeverityInfo:    2,
}

// ValidationError is one finding of the validator. It doubles as the error
// returned for malformed Create/UpdateFields input.
type ValidationError struct {
	Severity   Severity `json:"severity"`
	TaskID     string   `json:"task_id,omitempty"`
	Field      string   `json:"field"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("%s [%s] %s: %s", e.Severity, e.TaskID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Severity, e.Field, e.Message)
}

func invalidField(id, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Severity: SeverityError,
		TaskID:   id,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	}
}

// MergeError reports a merge that cannot proceed.
type MergeError struct {
	KeepID   string
	RemoveID string
	Reason   string
	Err      error
}

func (e *MergeError) Error() string {
	msg := fmt.Sprintf("merge %s into %s: %s", e.RemoveID, e.KeepID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MergeError) Unwrap() error {
	return e.Err
}
