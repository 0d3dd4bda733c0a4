// Purpose: Own the in-memory task cache and every mutation of it.
// Exports: Store, NewStore, OpenStore, StoreOption, WithNotifier, WithClock.
// Role: Authoritative view of all tasks between Load/Reload calls.
// Invariants: Each mutation persists first, then swaps the cached record;
// a failed persist leaves the cache untouched. Cascades carry a per-root
// visited set so cyclic graphs terminate.
// Notes: Callers receive clones; the cache is never aliased outside this file.
package taskboard

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	autoTransitionNote = "Auto-transitioned: dependencies satisfied"
	cascadeNoteFormat  = "Automatically moved to todo - dependency %s completed"
)

type Store struct {
	persister Persister
	notifier  Notifier
	clock     func() time.Time

	tasks map[string]*Task
	deps  map[string][]string
	paths map[string]string // id → file the record was loaded from
	// strays are extra files for an id already in the cache, found at load.
	strays []Record
}

type StoreOption func(*Store)

func WithNotifier(n Notifier) StoreOption {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.clock = now
		}
	}
}

func NewStore(p Persister, opts ...StoreOption) *Store {
	s := &Store{
		persister: p,
		notifier:  Discard,
		clock:     time.Now,
		tasks:     make(map[string]*Task),
		deps:      make(map[string][]string),
		paths:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenStore builds a store and loads it.
func OpenStore(p Persister, opts ...StoreOption) (*Store, error) {
	s := NewStore(p, opts...)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) now() time.Time {
	return s.clock().UTC().Truncate(time.Second)
}

func (s *Store) Load() error {
	return s.Reload()
}

// Reload rebuilds the cache from storage. Unparseable files are skipped with
// an EventLoadSkipped; the rest of the store still loads.
func (s *Store) Reload() error {
	records, err := s.persister.LoadAll()
	if err != nil {
		return err
	}
	now := s.now()
	tasks := make(map[string]*Task, len(records))
	chosen := make(map[string]Record, len(records))
	var strays []Record
	skipped := 0

	for _, rec := range records {
		if rec.Err != nil || rec.Task == nil {
			skipped++
			s.notifier.Notify(Event{Kind: EventLoadSkipped, Path: rec.Path, Err: rec.Err})
			continue
		}
		if fixed := normalizeTimestamps(rec.Task, now); fixed != "" {
			s.notifier.Notify(Event{Kind: EventTimestampFixed, TaskID: rec.Task.ID, Path: rec.Path, Message: fixed})
		}
		id := rec.Task.ID
		if prev, dup := chosen[id]; dup {
			keep, drop := pickCanonical(prev, rec)
			chosen[id] = keep
			strays = append(strays, drop)
			s.notifier.Notify(Event{Kind: EventDuplicateFile, TaskID: id, Path: drop.Path,
				Message: "duplicate file for task; keeping " + keep.Path})
			continue
		}
		chosen[id] = rec
	}

	deps := make(map[string][]string, len(chosen))
	paths := make(map[string]string, len(chosen))
	for id, rec := range chosen {
		tasks[id] = rec.Task
		deps[id] = append([]string(nil), rec.Task.Dependencies...)
		paths[id] = rec.Path
	}
	s.tasks, s.deps, s.paths, s.strays = tasks, deps, paths, strays
	s.notifier.Notify(Event{Kind: EventLoaded, Count: len(tasks), Message: fmt.Sprintf("loaded %d tasks (%d skipped)", len(tasks), skipped)})
	return nil
}

// pickCanonical chooses between two files claiming the same id: a file whose
// directory matches its status beats one that does not, then the newer
// updated_at wins, then the first seen.
func pickCanonical(a, b Record) (keep, drop Record) {
	aHome := a.Dir == a.Task.Status
	bHome := b.Dir == b.Task.Status
	if aHome != bHome {
		if aHome {
			return a, b
		}
		return b, a
	}
	if b.Task.UpdatedAt.After(a.Task.UpdatedAt) {
		return b, a
	}
	return a, b
}

// normalizeTimestamps fills missing timestamps, clamps future ones to now and
// keeps updated_at ≥ created_at. Returns a description of what changed.
func normalizeTimestamps(task *Task, now time.Time) string {
	var fixes []string
	if task.CreatedAt.IsZero() {
		task.CreatedAt = task.UpdatedAt
		if task.CreatedAt.IsZero() {
			task.CreatedAt = now
		}
		fixes = append(fixes, "created_at filled")
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
		fixes = append(fixes, "updated_at filled")
	}
	if task.CreatedAt.After(now) {
		task.CreatedAt = now
		fixes = append(fixes, "created_at in the future")
	}
	if task.UpdatedAt.After(now) {
		task.UpdatedAt = now
		fixes = append(fixes, "updated_at in the future")
	}
	if task.UpdatedAt.Before(task.CreatedAt) {
		task.UpdatedAt = task.CreatedAt
		fixes = append(fixes, "updated_at before created_at")
	}
	return strings.Join(fixes, "; ")
}

func (s *Store) persist(task *Task, previous Status) error {
	if err := s.persister.Save(task, previous); err != nil {
		var perr *PersistenceError
		if errors.As(err, &perr) {
			return err
		}
		return &PersistenceError{Op: "save", ID: task.ID, Err: err}
	}
	return nil
}

// commit swaps a persisted record into the cache.
func (s *Store) commit(task *Task) {
	s.tasks[task.ID] = task
	s.deps[task.ID] = append([]string(nil), task.Dependencies...)
	s.paths[task.ID] = storedPath(s.persister, task)
}

func storedPath(p Persister, task *Task) string {
	return filepath.Join(p.LocationFor(task.Status), task.ID+taskFileExt)
}

// Create persists a new task. Status defaults to todo, priority to medium,
// and an id is generated when none is given.
func (s *Store) Create(fields TaskFields) (*Task, error) {
	id := strings.TrimSpace(fields.ID)
	if id == "" {
		generated, err := newTaskID(func(candidate string) bool {
			_, exists := s.tasks[candidate]
			return exists
		})
		if err != nil {
			return nil, err
		}
		id = generated
	} else if !ValidID(id) {
		return nil, invalidField(id, "id", "id %q may only contain letters, digits, '-' and '_'", id)
	} else if _, exists := s.tasks[id]; exists {
		return nil, invalidField(id, "id", "task %s already exists", id)
	}

	title := strings.TrimSpace(fields.Title)
	if title == "" {
		return nil, invalidField(id, "title", "title cannot be empty")
	}
	status := fields.Status
	if status == "" {
		status = StatusTodo
	}
	if _, ok := statusDirs[status]; !ok {
		return nil, invalidField(id, "status", "unknown status %q", status)
	}
	priority := fields.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if _, ok := priorityRank[priority]; !ok {
		return nil, invalidField(id, "priority", "unknown priority %q", priority)
	}

	now := s.now()
	task := &Task{
		ID:             id,
		Title:          title,
		Description:    strings.TrimSpace(fields.Description),
		Agent:          strings.TrimSpace(fields.Agent),
		Status:         status,
		Priority:       priority,
		Dependencies:   cleanList(fields.Dependencies),
		Tags:           cleanList(fields.Tags),
		CreatedAt:      now,
		UpdatedAt:      now,
		DueDate:        fields.DueDate,
		Notes:          strings.TrimSpace(fields.Notes),
		EstimatedHours: fields.EstimatedHours,
		ActualHours:    fields.ActualHours,
		Assignee:       strings.TrimSpace(fields.Assignee),
	}
	task = task.Clone() // detach caller-owned pointers
	if err := s.persist(task, ""); err != nil {
		return nil, err
	}
	s.commit(task)
	s.notifier.Notify(Event{Kind: EventCreated, TaskID: id, To: status, Message: "created " + title})
	return task.Clone(), nil
}

// cleanList trims entries and drops empty ones. Duplicates and self
// references are preserved so the validator can report them.
func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// UpdateStatus moves a task along the state machine, then cascades to
// blocked dependents that became ready.
func (s *Store) UpdateStatus(id string, to Status, note string) error {
	if err := s.transition(id, to, note); err != nil {
		return err
	}
	s.cascade(id)
	return nil
}

func (s *Store) transition(id string, to Status, note string) error {
	current, ok := s.tasks[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	from := current.Status
	if !CanTransition(from, to) {
		return &InvalidTransitionError{ID: id, From: from, To: to}
	}
	if to == StatusTodo {
		if unmet := s.unsatisfied(id); len(unmet) > 0 {
			return &DependencyUnsatisfiedError{ID: id, Unsatisfied: unmet}
		}
	}

	now := s.now()
	next := current.Clone()
	next.Status = to
	next.UpdatedAt = now
	if note = strings.TrimSpace(note); note != "" {
		next.appendNote(now, fmt.Sprintf("Status changed from %s to %s: %s", from, to, note))
	}
	if err := s.persist(next, from); err != nil {
		return err
	}
	s.commit(next)
	s.notifier.Notify(Event{Kind: EventStatusChanged, TaskID: id, From: from, To: to})
	return nil
}

// cascade re-evaluates blocked dependents of a task that just completed.
func (s *Store) cascade(rootID string) {
	visited := map[string]struct{}{rootID: {}}
	s.cascadeFrom(rootID, visited)
}

func (s *Store) cascadeFrom(id string, visited map[string]struct{}) {
	task := s.tasks[id]
	if task == nil || task.Status != StatusComplete {
		return
	}
	for _, depID := range s.dependents(id) {
		if _, seen := visited[depID]; seen {
			continue
		}
		visited[depID] = struct{}{}
		dependent := s.tasks[depID]
		if dependent == nil || dependent.Status != StatusBlocked || !s.DependencySatisfied(depID) {
			continue
		}
		if err := s.transition(depID, StatusTodo, fmt.Sprintf(cascadeNoteFormat, id)); err != nil {
			s.notifier.Notify(Event{Kind: EventCascadeFailed, TaskID: depID, From: StatusBlocked, To: StatusTodo, Err: err})
			continue
		}
		s.notifier.Notify(Event{Kind: EventCascadeTransition, TaskID: depID, From: StatusBlocked, To: StatusTodo,
			Message: "unblocked by " + id})
		s.cascadeFrom(depID, visited)
	}
}

// AddNote appends a timestamped entry to a task's notes.
func (s *Store) AddNote(id, text string) error {
	current, ok := s.tasks[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if strings.TrimSpace(text) == "" {
		return invalidField(id, "notes", "note cannot be empty")
	}
	now := s.now()
	next := current.Clone()
	next.UpdatedAt = now
	next.appendNote(now, text)
	if err := s.persist(next, next.Status); err != nil {
		return err
	}
	s.commit(next)
	s.notifier.Notify(Event{Kind: EventNoteAdded, TaskID: id})
	return nil
}

// UpdateFields applies non-status edits. Status changes go through
// UpdateStatus so the state machine is never bypassed.
func (s *Store) UpdateFields(id string, patch TaskPatch) (*Task, error) {
	current, ok := s.tasks[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if patch.empty() {
		return current.Clone(), nil
	}
	next := current.Clone()
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, invalidField(id, "title", "title cannot be empty")
		}
		next.Title = title
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Agent != nil {
		next.Agent = strings.TrimSpace(*patch.Agent)
	}
	if patch.Priority != nil {
		if _, ok := priorityRank[*patch.Priority]; !ok {
			return nil, invalidField(id, "priority", "unknown priority %q", *patch.Priority)
		}
		next.Priority = *patch.Priority
	}
	if patch.Dependencies != nil {
		next.Dependencies = cleanList(*patch.Dependencies)
	}
	if patch.Tags != nil {
		next.Tags = cleanList(*patch.Tags)
	}
	if patch.DueDate != nil {
		next.DueDate = *patch.DueDate
	}
	if patch.EstimatedHours != nil {
		next.EstimatedHours = *patch.EstimatedHours
	}
	if patch.ActualHours != nil {
		next.ActualHours = *patch.ActualHours
	}
	if patch.Assignee != nil {
		next.Assignee = strings.TrimSpace(*patch.Assignee)
	}
	next.UpdatedAt = s.now()
	if err := s.persist(next, next.Status); err != nil {
		return nil, err
	}
	s.commit(next)
	s.notifier.Notify(Event{Kind: EventFieldsUpdated, TaskID: id})
	return next.Clone(), nil
}

// replace persists a fully edited record; used by the merger, which computes
// the whole record itself.
func (s *Store) replace(task *Task) error {
	current, ok := s.tasks[task.ID]
	if !ok {
		return &NotFoundError{ID: task.ID}
	}
	next := task.Clone()
	next.Status = current.Status
	if err := s.persist(next, current.Status); err != nil {
		return err
	}
	s.commit(next)
	return nil
}

// remove deletes a task's file and drops it from cache and graph.
func (s *Store) remove(id string) error {
	current, ok := s.tasks[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if err := s.persister.Delete(id, current.Status); err != nil {
		return err
	}
	delete(s.tasks, id)
	delete(s.deps, id)
	delete(s.paths, id)
	s.notifier.Notify(Event{Kind: EventDeleted, TaskID: id})
	return nil
}

// AutoTransitionReady moves every blocked task whose dependencies are all
// complete to todo. Returns the moved ids in sorted order.
func (s *Store) AutoTransitionReady() []string {
	var moved []string
	for _, id := range sortedKeys(s.tasks) {
		task := s.tasks[id]
		if task.Status != StatusBlocked || !s.DependencySatisfied(id) {
			continue
		}
		if err := s.UpdateStatus(id, StatusTodo, autoTransitionNote); err != nil {
			s.notifier.Notify(Event{Kind: EventCascadeFailed, TaskID: id, From: StatusBlocked, To: StatusTodo, Err: err})
			continue
		}
		moved = append(moved, id)
	}
	return moved
}

// CleanupReport describes what CleanupDuplicateFiles changed.
type CleanupReport struct {
	Removed   []string `json:"removed"`
	Relocated []string `json:"relocated"`
}

// CleanupDuplicateFiles deletes stray copies of tasks found at load time and
// moves canonical files that sit outside their status directory.
func (s *Store) CleanupDuplicateFiles() (CleanupReport, error) {
	var report CleanupReport
	for _, stray := range s.strays {
		if stray.Path == s.paths[stray.Task.ID] {
			continue
		}
		if err := s.persister.Remove(stray.Path); err != nil {
			return report, err
		}
		report.Removed = append(report.Removed, stray.Path)
		s.notifier.Notify(Event{Kind: EventFileRemoved, TaskID: stray.Task.ID, Path: stray.Path})
	}
	s.strays = nil

	for _, id := range sortedKeys(s.tasks) {
		task := s.tasks[id]
		loaded := s.paths[id]
		want := storedPath(s.persister, task)
		if loaded == "" || loaded == want {
			continue
		}
		if err := s.persist(task, ""); err != nil {
			return report, err
		}
		if err := s.persister.Remove(loaded); err != nil {
			return report, err
		}
		s.paths[id] = want
		report.Relocated = append(report.Relocated, id)
		s.notifier.Notify(Event{Kind: EventFileRemoved, TaskID: id, Path: loaded, Message: "relocated to " + want})
	}
	return report, nil
}

// Get returns a copy of the task, or nil.
func (s *Store) Get(id string) *Task {
	return s.tasks[id].Clone()
}

func (s *Store) Exists(id string) bool {
	_, ok := s.tasks[id]
	return ok
}

func (s *Store) Len() int {
	return len(s.tasks)
}

// All returns copies of every task sorted by priority, creation time, id.
func (s *Store) All() []*Task {
	return s.filter(func(*Task) bool { return true })
}

func (s *Store) ListByStatus(status Status) []*Task {
	return s.filter(func(t *Task) bool { return t.Status == status })
}

func (s *Store) ListByAgent(agent string) []*Task {
	return s.filter(func(t *Task) bool { return t.Agent == agent })
}

func (s *Store) filter(keep func(*Task) bool) []*Task {
	var out []*Task
	for _, task := range s.tasks {
		if keep(task) {
			out = append(out, task.Clone())
		}
	}
	sortTasks(out)
	return out
}

// Path returns the file a task was loaded from or last written to.
func (s *Store) Path(id string) string {
	return s.paths[id]
}

// StrayFiles lists duplicate files detected by the last load.
func (s *Store) StrayFiles() []string {
	out := make([]string, 0, len(s.strays))
	for _, rec := range s.strays {
		out = append(out, rec.Path)
	}
	sort.Strings(out)
	return out
}
