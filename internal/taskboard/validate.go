// Purpose: Per-task and system-wide consistency checks, plus the bounded auto-fix pass.
// Exports: Validator, NewValidator, ValidatorOption, WithValidatorClock, Fix, FixOptions, Report.
// Role: Read-only over the Store except for AutoFix, which goes through store mutations.
// Invariants: Every check always runs; results split into (warnings, errors) where
// warnings carry both warning and info severities.
// Notes: AutoFix only rewrites agents and, optionally, demotes todo tasks with open
// dependencies. Cycles and missing dependencies are reported, never repaired.
package taskboard

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sandover/taskboard/internal/config"
)

const futureTolerance = 5 * time.Second

type Validator struct {
	store    *Store
	agents   *AgentRegistry
	limits   config.LimitsConfig
	tags     map[string]struct{}
	notifier Notifier
	clock    func() time.Time
}

type ValidatorOption func(*Validator)

func WithValidatorClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if now != nil {
			v.clock = now
		}
	}
}

func WithValidatorNotifier(n Notifier) ValidatorOption {
	return func(v *Validator) {
		if n != nil {
			v.notifier = n
		}
	}
}

func NewValidator(store *Store, agents *AgentRegistry, cfg *config.Config, opts ...ValidatorOption) *Validator {
	v := &Validator{
		store:    store,
		agents:   agents,
		limits:   cfg.Limits,
		tags:     make(map[string]struct{}, len(cfg.Tags)),
		notifier: Discard,
		clock:    time.Now,
	}
	for _, tag := range cfg.Tags {
		v.tags[tag] = struct{}{}
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type collector struct {
	warnings []ValidationError
	errors   []ValidationError
}

func (c *collector) add(sev Severity, taskID, field, format string, args ...any) *ValidationError {
	issue := ValidationError{Severity: sev, TaskID: taskID, Field: field, Message: fmt.Sprintf(format, args...)}
	if sev == SeverityError {
		c.errors = append(c.errors, issue)
		return &c.errors[len(c.errors)-1]
	}
	c.warnings = append(c.warnings, issue)
	return &c.warnings[len(c.warnings)-1]
}

func (c *collector) merge(warnings, errors []ValidationError) {
	c.warnings = append(c.warnings, warnings...)
	c.errors = append(c.errors, errors...)
}

// Validate checks a single task in isolation.
func (v *Validator) Validate(task *Task) (warnings, errors []ValidationError) {
	var c collector
	now := v.clock().UTC()
	v.checkRequired(&c, task)
	v.checkFormats(&c, task)
	v.checkBusinessRules(&c, task)
	v.checkAgent(&c, task)
	v.checkDates(&c, task, now)
	v.checkDependencies(&c, task)
	return c.warnings, c.errors
}

func (v *Validator) checkRequired(c *collector, task *Task) {
	required := []struct {
		field string
		value string
	}{
		{"id", task.ID},
		{"title", task.Title},
		{"description", task.Description},
		{"agent", task.Agent},
		{"status", string(task.Status)},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			c.add(SeverityError, task.ID, r.field, "required field '%s' is missing or empty", r.field)
		}
	}
}

func (v *Validator) checkFormats(c *collector, task *Task) {
	if task.ID != "" && !ValidID(task.ID) {
		c.add(SeverityError, task.ID, "id", "task id must contain only letters, numbers, hyphens, and underscores")
	}
	if limit := v.limits.MaxTitleLength; limit > 0 && utf8.RuneCountInString(task.Title) > limit {
		c.add(SeverityWarning, task.ID, "title", "title exceeds maximum length of %d characters", limit)
	}
	if limit := v.limits.MaxDescriptionLength; limit > 0 && utf8.RuneCountInString(task.Description) > limit {
		c.add(SeverityWarning, task.ID, "description", "description exceeds maximum length of %d characters", limit)
	}
	if limit := v.limits.MaxDependencies; limit > 0 && len(task.Dependencies) > limit {
		c.add(SeverityWarning, task.ID, "dependencies", "task has too many dependencies (max: %d)", limit)
	}
	if limit := v.limits.MaxTags; limit > 0 && len(task.Tags) > limit {
		c.add(SeverityWarning, task.ID, "tags", "too many tags (max: %d)", limit)
	}
	if len(v.tags) > 0 {
		for _, tag := range task.Tags {
			if _, ok := v.tags[tag]; !ok {
				c.add(SeverityWarning, task.ID, "tags", "invalid tag: '%s'", tag)
			}
		}
	}
}

func (v *Validator) checkBusinessRules(c *collector, task *Task) {
	if task.Status == StatusTodo && len(task.Dependencies) > 0 {
		c.add(SeverityWarning, task.ID, "status", "tasks with dependencies should be blocked or pending, not todo")
	}
	if task.Status == StatusComplete && task.UpdatedAt.IsZero() {
		c.add(SeverityError, task.ID, "updated_at", "completed tasks must have an updated_at timestamp")
	}
	if task.Priority == PriorityCritical && task.DueDate == nil {
		c.add(SeverityWarning, task.ID, "due_date", "critical priority tasks should have a due date")
	}
	if task.ActualHours != nil && task.EstimatedHours != nil && *task.EstimatedHours > 0 &&
		*task.ActualHours > *task.EstimatedHours*2 {
		c.add(SeverityInfo, task.ID, "actual_hours", "actual hours significantly exceed estimated hours")
	}
}

func (v *Validator) checkAgent(c *collector, task *Task) {
	if task.Agent == "" {
		return
	}
	if !v.agents.Known(task.Agent) {
		suggestion := v.agents.Suggest(task.Agent, task)
		if suggestion == "" {
			c.add(SeverityError, task.ID, "agent", "unknown agent '%s' and no registered agents to migrate to", task.Agent)
			return
		}
		issue := c.add(SeverityWarning, task.ID, "agent", "unknown agent '%s'; suggested migration: '%s' (auto-fixable)", task.Agent, suggestion)
		issue.Suggestion = suggestion
		return
	}
	if !v.agents.Matches(task.Agent, task) {
		c.add(SeverityInfo, task.ID, "agent", "task content may not match agent capabilities (expected keywords: %s)",
			strings.Join(v.agents.Keywords(task.Agent), ", "))
	}
}

func (v *Validator) checkDates(c *collector, task *Task, now time.Time) {
	if !task.CreatedAt.IsZero() && task.CreatedAt.After(now.Add(futureTolerance)) {
		c.add(SeverityError, task.ID, "created_at", "created date cannot be in the future")
	}
	if !task.CreatedAt.IsZero() && !task.UpdatedAt.IsZero() && task.UpdatedAt.Before(task.CreatedAt) {
		c.add(SeverityError, task.ID, "updated_at", "updated date cannot be before created date")
	}
	if task.DueDate == nil {
		return
	}
	if task.DueDate.Before(now) && !task.Status.Terminal() {
		c.add(SeverityWarning, task.ID, "due_date", "task is overdue")
	}
	if task.DueDate.After(now.AddDate(1, 0, 0)) {
		c.add(SeverityInfo, task.ID, "due_date", "due date is more than 1 year away; consider splitting the task")
	}
}

func (v *Validator) checkDependencies(c *collector, task *Task) {
	if len(task.Dependencies) == 0 {
		return
	}
	if containsString(task.Dependencies, task.ID) {
		c.add(SeverityError, task.ID, "dependencies", "task cannot depend on itself")
	}
	if len(dedupeStrings(task.Dependencies)) != len(task.Dependencies) {
		c.add(SeverityWarning, task.ID, "dependencies", "duplicate dependencies found")
	}
	for _, depID := range task.Dependencies {
		if !ValidID(depID) {
			c.add(SeverityError, task.ID, "dependencies", "invalid dependency id format: '%s'", depID)
		}
	}
}

// ValidateSystem runs Validate over every task, then the cross-task checks.
func (v *Validator) ValidateSystem() (warnings, errors []ValidationError) {
	var c collector
	ids := sortedKeys(v.store.tasks)
	for _, id := range ids {
		c.merge(v.Validate(v.store.tasks[id]))
	}
	v.checkGraph(&c, ids)
	v.checkConsistency(&c, ids)
	v.checkWorkload(&c, ids)
	return c.warnings, c.errors
}

func (v *Validator) checkGraph(c *collector, ids []string) {
	missing := v.store.MissingDependencies()
	for _, id := range ids {
		for _, depID := range missing[id] {
			c.add(SeverityError, id, "dependencies", "dependency '%s' does not exist", depID)
		}
	}
	for _, cycle := range v.store.Cycles() {
		c.add(SeverityError, cycle[0], "dependencies", "circular dependency detected: %s", strings.Join(cycle, " -> "))
	}
}

func (v *Validator) checkConsistency(c *collector, ids []string) {
	referenced := make(map[string]struct{})
	for _, id := range ids {
		for _, depID := range v.store.deps[id] {
			referenced[depID] = struct{}{}
		}
	}
	orphans := 0
	var blockedWithoutDeps []string
	for _, id := range ids {
		task := v.store.tasks[id]
		_, hasDependents := referenced[id]
		if !hasDependents && !task.Status.Terminal() && len(task.Dependencies) == 0 {
			orphans++
		}
		if task.Status == StatusBlocked && len(task.Dependencies) == 0 {
			blockedWithoutDeps = append(blockedWithoutDeps, id)
		}
	}
	if len(ids) > 0 && float64(orphans) > float64(len(ids))*0.5 {
		c.add(SeverityInfo, "", "system", "high number of orphaned tasks (%d); consider reviewing task organization", orphans)
	}
	if len(blockedWithoutDeps) > 0 {
		c.add(SeverityWarning, "", "status", "tasks blocked without dependencies: %s", strings.Join(blockedWithoutDeps, ", "))
	}
}

func (v *Validator) checkWorkload(c *collector, ids []string) {
	active := make(map[string]int)
	seen := make(map[string]struct{})
	for _, id := range ids {
		task := v.store.tasks[id]
		seen[task.Agent] = struct{}{}
		if task.Status.Active() {
			active[task.Agent]++
		}
	}
	if limit := v.limits.MaxActivePerAgent; limit > 0 {
		for _, agent := range sortedKeys(active) {
			if count := active[agent]; count > limit {
				c.add(SeverityWarning, "", "agent", "agent '%s' has %d active tasks; consider redistributing workload", agent, count)
			}
		}
	}
	var idle []string
	for _, agent := range sortedKeys(seen) {
		if _, busy := active[agent]; !busy && agent != "" {
			idle = append(idle, agent)
		}
	}
	if len(idle) > 0 {
		c.add(SeverityInfo, "", "agent", "agents with no active tasks: %s", strings.Join(idle, ", "))
	}
}

// Fix describes one change made (or planned) by AutoFix.
type Fix struct {
	TaskID string `json:"task_id"`
	Field  string `json:"field"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (f Fix) String() string {
	return fmt.Sprintf("%s %s: %s -> %s", f.TaskID, f.Field, f.From, f.To)
}

type FixOptions struct {
	DryRun bool
	// DependencyStatus also moves todo tasks with incomplete dependencies to blocked.
	DependencyStatus bool
}

// AutoFix rewrites unknown agents to their suggested replacement. Running it
// twice applies nothing the second time.
func (v *Validator) AutoFix(opts FixOptions) ([]Fix, error) {
	var fixes []Fix
	for _, id := range sortedKeys(v.store.tasks) {
		task := v.store.tasks[id]
		if task.Agent == "" || v.agents.Known(task.Agent) {
			continue
		}
		suggestion := v.agents.Suggest(task.Agent, task)
		if suggestion == "" {
			continue
		}
		fix := Fix{TaskID: id, Field: "agent", From: task.Agent, To: suggestion}
		if !opts.DryRun {
			if _, err := v.store.UpdateFields(id, TaskPatch{Agent: &suggestion}); err != nil {
				return fixes, err
			}
			if err := v.store.AddNote(id, fmt.Sprintf("Agent migrated from %s to %s", fix.From, fix.To)); err != nil {
				return fixes, err
			}
			v.notifier.Notify(Event{Kind: EventAgentMigrated, TaskID: id, Message: fix.String()})
		}
		fixes = append(fixes, fix)
	}

	if !opts.DependencyStatus {
		return fixes, nil
	}
	for _, id := range sortedKeys(v.store.tasks) {
		task := v.store.tasks[id]
		if task.Status != StatusTodo {
			continue
		}
		unmet := v.store.unsatisfied(id)
		if len(unmet) == 0 {
			continue
		}
		fix := Fix{TaskID: id, Field: "status", From: string(StatusTodo), To: string(StatusBlocked)}
		if !opts.DryRun {
			note := "dependencies not complete: " + strings.Join(unmet, ", ")
			if err := v.store.UpdateStatus(id, StatusBlocked, note); err != nil {
				return fixes, err
			}
			v.notifier.Notify(Event{Kind: EventDependencyBlocked, TaskID: id, From: StatusTodo, To: StatusBlocked})
		}
		fixes = append(fixes, fix)
	}
	return fixes, nil
}

// Report groups validation results by severity.
type Report struct {
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Info     []ValidationError `json:"info"`
}

func NewReport(warnings, errors []ValidationError) Report {
	r := Report{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
		Info:     []ValidationError{},
	}
	all := append(append([]ValidationError(nil), errors...), warnings...)
	sort.SliceStable(all, func(i, j int) bool {
		return severityRank[all[i].Severity] < severityRank[all[j].Severity]
	})
	for _, issue := range all {
		switch issue.Severity {
		case SeverityError:
			r.Errors = append(r.Errors, issue)
		case SeverityWarning:
			r.Warnings = append(r.Warnings, issue)
		default:
			r.Info = append(r.Info, issue)
		}
	}
	return r
}

func (r Report) Total() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Info)
}

func (r Report) HasErrors() bool {
	return len(r.Errors) > 0
}
