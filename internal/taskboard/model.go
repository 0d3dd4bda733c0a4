// Core domain types, constants, and parsing helpers for status/priority.
package taskboard

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusBlocked    Status = "blocked"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []Status{
	StatusPending,
	StatusBlocked,
	StatusTodo,
	StatusInProgress,
	StatusComplete,
	StatusCancelled,
}

// legacyBlockedBy is the status value later versions of the tracker wrote for
// "blocked by another task". It loads as StatusBlocked.
const legacyBlockedBy = "blocked_by"

// ParseStatus accepts the canonical values plus a few spellings found in
// hand-edited files (case-insensitive, '-' or ' ' for '_').
func ParseStatus(value string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(value))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "pending", "backlog":
		return StatusPending, nil
	case "blocked", legacyBlockedBy:
		return StatusBlocked, nil
	case "todo":
		return StatusTodo, nil
	case "in_progress", "inprogress", "doing":
		return StatusInProgress, nil
	case "complete", "completed", "done":
		return StatusComplete, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("invalid status %q (use %s)", value, joinStatuses(AllStatuses))
	}
}

// Terminal reports whether no further work is expected.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled
}

// Active reports whether the task is being worked or is ready to be.
func (s Status) Active() bool {
	return s == StatusTodo || s == StatusInProgress
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var AllPriorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// priorityRank orders priorities for sorting; higher sorts first.
var priorityRank = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return "", fmt.Errorf("invalid priority %q (use low, medium, high, or critical)", value)
	}
}

func (p Priority) Rank() int {
	return priorityRank[p]
}

// State machine: allowed status edges. Anything not listed is invalid,
// including a same-status "transition".
// - complete → in_progress reopens finished work
// - cancelled → pending|todo reactivates it
// - todo additionally requires every dependency complete (checked by the store)
var validTransitions = map[Status]map[Status]struct{}{
	StatusPending:    {StatusTodo: {}, StatusBlocked: {}, StatusCancelled: {}},
	StatusBlocked:    {StatusTodo: {}, StatusPending: {}, StatusCancelled: {}},
	StatusTodo:       {StatusInProgress: {}, StatusBlocked: {}, StatusCancelled: {}, StatusComplete: {}},
	StatusInProgress: {StatusComplete: {}, StatusTodo: {}, StatusBlocked: {}},
	StatusComplete:   {StatusInProgress: {}},
	StatusCancelled:  {StatusPending: {}, StatusTodo: {}},
}

// CanTransition reports whether from→to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// NextStatuses returns the statuses reachable from s in workflow order.
func NextStatuses(s Status) []Status {
	var out []Status
	for _, candidate := range AllStatuses {
		if CanTransition(s, candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidID reports whether id uses only the allowed charset.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

type Task struct {
	ID             string
	Title          string
	Description    string
	Agent          string
	Status         Status
	Priority       Priority
	Dependencies   []string
	Tags           []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DueDate        *time.Time
	Notes          string
	EstimatedHours *float64
	ActualHours    *float64
	Assignee       string
}

// Clone returns a deep copy; the store hands out clones so callers never
// alias cached records.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Dependencies = append([]string(nil), t.Dependencies...)
	c.Tags = append([]string(nil), t.Tags...)
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	if t.EstimatedHours != nil {
		v := *t.EstimatedHours
		c.EstimatedHours = &v
	}
	if t.ActualHours != nil {
		v := *t.ActualHours
		c.ActualHours = &v
	}
	return &c
}

// appendNote adds a timestamped entry to the notes log.
func (t *Task) appendNote(now time.Time, text string) {
	entry := fmt.Sprintf("[%s] %s", formatTime(now), strings.TrimSpace(text))
	if strings.TrimSpace(t.Notes) == "" {
		t.Notes = entry
		return
	}
	t.Notes = strings.TrimRight(t.Notes, "\n") + "\n" + entry
}

// Overdue reports whether the due date has passed on unfinished work.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Status.Terminal()
}

// TaskFields are the inputs to Store.Create.
type TaskFields struct {
	ID             string
	Title          string
	Description    string
	Agent          string
	Status         Status
	Priority       Priority
	Dependencies   []string
	Tags           []string
	DueDate        *time.Time
	Notes          string
	EstimatedHours *float64
	ActualHours    *float64
	Assignee       string
}

// TaskPatch carries optional field edits for Store.UpdateFields. Nil means
// "leave unchanged".
type TaskPatch struct {
	Title          *string
	Description    *string
	Agent          *string
	Priority       *Priority
	Dependencies   *[]string
	Tags           *[]string
	DueDate        **time.Time
	EstimatedHours **float64
	ActualHours    **float64
	Assignee       *string
}

func (p TaskPatch) empty() bool {
	return p.Title == nil && p.Description == nil && p.Agent == nil && p.Priority == nil &&
		p.Dependencies == nil && p.Tags == nil && p.DueDate == nil &&
		p.EstimatedHours == nil && p.ActualHours == nil && p.Assignee == nil
}

type GlobalOptions struct {
	StartDir   string
	ConfigPath string
	ReadOnly   bool
	Quiet      bool
	Verbose    bool
	JSON       bool
}

// sortTasks orders by priority (critical first), then creation time, then id.
func sortTasks(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func joinStatuses(statuses []Status) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
