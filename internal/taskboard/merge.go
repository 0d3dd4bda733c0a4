// Purpose: Collapse a duplicate pair into one task and repair references to the removed id.
// Exports: MergeStrategy, MergeFields, Conflict, MergePreview, and the Deduplicator merge methods.
// Role: The only writer in the dedup path; every write goes through Store.
// Invariants: After a successful merge no task lists the removed id as a dependency
// and the kept task never depends on itself or on the removed id.
// Notes: Field sources name the task id whose value wins for that field.
package taskboard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MergeFields are the scalar fields a strategy can source from either side.
var MergeFields = []string{"title", "description", "agent", "priority", "estimated_hours", "due_date", "assignee"}

// Fields compared by Preview; status is reported but never merged.
var conflictFields = []string{"title", "description", "agent", "priority", "estimated_hours", "due_date", "status"}

type MergeStrategy struct {
	KeepID       string            `json:"keep_id"`
	RemoveID     string            `json:"remove_id"`
	FieldSources map[string]string `json:"field_sources"`
}

// completeness counts populated fields, out of 10.
func completeness(t *Task) int {
	score := 0
	for _, populated := range []bool{
		t.Title != "",
		t.Description != "",
		t.Agent != "",
		t.EstimatedHours != nil && *t.EstimatedHours != 0,
		t.DueDate != nil,
		len(t.Tags) > 0,
		len(t.Dependencies) > 0,
		t.Notes != "",
		t.Assignee != "",
		t.Priority != PriorityMedium,
	} {
		if populated {
			score++
		}
	}
	return score
}

// Strategy picks the task to keep and where each field comes from: the newer
// task is kept (then the more complete, then the smaller id), and a field
// empty on one side is taken from the other.
func (d *Deduplicator) Strategy(a, b *Task) MergeStrategy {
	keep, remove := a, b
	switch {
	case b.UpdatedAt.After(a.UpdatedAt):
		keep, remove = b, a
	case a.UpdatedAt.After(b.UpdatedAt):
	case completeness(b) > completeness(a):
		keep, remove = b, a
	case completeness(b) == completeness(a) && b.ID < a.ID:
		keep, remove = b, a
	}

	sources := make(map[string]string, len(MergeFields))
	for _, field := range MergeFields {
		keepVal, removeVal := fieldValue(keep, field), fieldValue(remove, field)
		if keepVal == "" && removeVal != "" {
			sources[field] = remove.ID
		} else {
			sources[field] = keep.ID
		}
	}
	return MergeStrategy{KeepID: keep.ID, RemoveID: remove.ID, FieldSources: sources}
}

// ManualStrategy keeps keepID and takes the listed fields from removeID.
func ManualStrategy(keepID, removeID string, take []string) (MergeStrategy, error) {
	sources := make(map[string]string, len(MergeFields))
	for _, field := range MergeFields {
		sources[field] = keepID
	}
	for _, field := range take {
		if _, ok := sources[field]; !ok {
			return MergeStrategy{}, &MergeError{KeepID: keepID, RemoveID: removeID,
				Reason: fmt.Sprintf("unknown merge field %q (use %s)", field, strings.Join(MergeFields, ", "))}
		}
		sources[field] = removeID
	}
	return MergeStrategy{KeepID: keepID, RemoveID: removeID, FieldSources: sources}, nil
}

// fieldValue renders a mergeable field; "" means empty.
func fieldValue(t *Task, field string) string {
	switch field {
	case "title":
		return t.Title
	case "description":
		return t.Description
	case "agent":
		return t.Agent
	case "priority":
		return string(t.Priority)
	case "status":
		return string(t.Status)
	case "assignee":
		return t.Assignee
	case "estimated_hours":
		if t.EstimatedHours == nil || *t.EstimatedHours == 0 {
			return ""
		}
		return strconv.FormatFloat(*t.EstimatedHours, 'f', -1, 64)
	case "due_date":
		if t.DueDate == nil {
			return ""
		}
		return formatTime(*t.DueDate)
	}
	return ""
}

func copyField(dst, src *Task, field string) {
	switch field {
	case "title":
		dst.Title = src.Title
	case "description":
		dst.Description = src.Description
	case "agent":
		dst.Agent = src.Agent
	case "priority":
		dst.Priority = src.Priority
	case "assignee":
		dst.Assignee = src.Assignee
	case "estimated_hours":
		dst.EstimatedHours = src.Clone().EstimatedHours
	case "due_date":
		dst.DueDate = src.Clone().DueDate
	}
}

// Execute merges strategy.RemoveID into strategy.KeepID.
func (d *Deduplicator) Execute(strategy MergeStrategy) (*Task, error) {
	keepID, removeID := strategy.KeepID, strategy.RemoveID
	fail := func(reason string, err error) error {
		return &MergeError{KeepID: keepID, RemoveID: removeID, Reason: reason, Err: err}
	}
	if keepID == removeID {
		return nil, fail("cannot merge a task into itself", nil)
	}
	keep, remove := d.store.tasks[keepID], d.store.tasks[removeID]
	if keep == nil {
		return nil, fail("keep task not found", &NotFoundError{ID: keepID})
	}
	if remove == nil {
		return nil, fail("remove task not found", &NotFoundError{ID: removeID})
	}

	now := d.now()
	merged := keep.Clone()
	for _, field := range sortedKeys(strategy.FieldSources) {
		if !containsString(MergeFields, field) {
			return nil, fail(fmt.Sprintf("unknown merge field %q (use %s)", field, strings.Join(MergeFields, ", ")), nil)
		}
		switch strategy.FieldSources[field] {
		case keepID:
		case removeID:
			copyField(merged, remove, field)
		default:
			return nil, fail(fmt.Sprintf("field %s sourced from unrelated task %s", field, strategy.FieldSources[field]), nil)
		}
	}
	merged.Dependencies = dedupeStrings(append(append([]string(nil), keep.Dependencies...), remove.Dependencies...), keepID, removeID)
	merged.Tags = dedupeStrings(append(append([]string(nil), keep.Tags...), remove.Tags...))
	// A kept task already carrying the merge note is left over from an
	// interrupted merge; its note and hours were folded in then.
	marker := fmt.Sprintf("Merged from task %s: ", removeID)
	folded := strings.Contains(keep.Notes, marker)
	if remove.Notes != "" && !folded {
		merged.appendNote(now, marker+remove.Notes)
	}
	if remove.ActualHours != nil && !folded {
		total := *remove.ActualHours
		if merged.ActualHours != nil {
			total += *merged.ActualHours
		}
		merged.ActualHours = &total
	}
	merged.UpdatedAt = now

	if err := d.store.replace(merged); err != nil {
		return nil, fail("save kept task", err)
	}
	if err := d.store.remove(removeID); err != nil {
		if rbErr := d.store.replace(keep); rbErr != nil {
			d.notifier.Notify(Event{Kind: EventMergeFailed, TaskID: keepID, Message: "kept task holds merged fields but " + removeID + " still exists", Err: rbErr})
		}
		return nil, fail("delete removed task", err)
	}
	if err := d.rewriteReferences(removeID, keepID); err != nil {
		return nil, fail("rewrite references", err)
	}
	d.notifier.Notify(Event{Kind: EventMerged, TaskID: keepID, Message: removeID + " → " + keepID})
	return d.store.Get(keepID), nil
}

// rewriteReferences points every dependency on oldID at newID.
func (d *Deduplicator) rewriteReferences(oldID, newID string) error {
	for _, id := range d.store.dependents(oldID) {
		task := d.store.tasks[id]
		deps := make([]string, 0, len(task.Dependencies))
		for _, dep := range task.Dependencies {
			if dep == oldID {
				dep = newID
			}
			deps = append(deps, dep)
		}
		deps = dedupeStrings(deps, id)
		if _, err := d.store.UpdateFields(id, TaskPatch{Dependencies: &deps}); err != nil {
			return err
		}
		d.notifier.Notify(Event{Kind: EventReferenceRewrite, TaskID: id, Message: oldID + " → " + newID})
	}
	return nil
}

// ManualMerge runs a caller-built strategy through the same path as AutoMerge.
func (d *Deduplicator) ManualMerge(strategy MergeStrategy) (*Task, error) {
	return d.Execute(strategy)
}

// AutoMerge merges every auto-mergeable pair, in FindDuplicates order, skipping
// pairs that touch a task already merged in this pass. With dryRun nothing is
// written. Returns "<remove> → <keep>" for each merge.
func (d *Deduplicator) AutoMerge(dryRun bool) ([]string, error) {
	touched := make(map[string]struct{})
	var merged []string
	var firstErr error
	for _, m := range d.FindDuplicates(false) {
		if !m.AutoMergeable {
			continue
		}
		_, seenA := touched[m.FirstID]
		_, seenB := touched[m.SecondID]
		if seenA || seenB {
			continue
		}
		a, b := d.store.tasks[m.FirstID], d.store.tasks[m.SecondID]
		if a == nil || b == nil {
			continue
		}
		strategy := d.Strategy(a, b)
		if !dryRun {
			if _, err := d.Execute(strategy); err != nil {
				d.notifier.Notify(Event{Kind: EventMergeFailed, TaskID: strategy.KeepID, Message: strategy.RemoveID, Err: err})
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}
		touched[m.FirstID] = struct{}{}
		touched[m.SecondID] = struct{}{}
		merged = append(merged, strategy.RemoveID+" → "+strategy.KeepID)
	}
	return merged, firstErr
}

// Conflict is a field that differs between two tasks with both sides set.
// Tag conflicts list the tags unique to each side instead.
type Conflict struct {
	Field       string   `json:"field"`
	KeepValue   string   `json:"keep_value,omitempty"`
	RemoveValue string   `json:"remove_value,omitempty"`
	KeepOnly    []string `json:"keep_only,omitempty"`
	RemoveOnly  []string `json:"remove_only,omitempty"`
}

type MergePreview struct {
	Keep      *Task         `json:"-"`
	Remove    *Task         `json:"-"`
	Suggested MergeStrategy `json:"suggested"`
	Conflicts []Conflict    `json:"conflicts"`
}

// Preview reports what merging removeID into keepID would have to resolve.
func (d *Deduplicator) Preview(keepID, removeID string) (MergePreview, error) {
	keep, remove := d.store.tasks[keepID], d.store.tasks[removeID]
	if keep == nil || remove == nil {
		missing := keepID
		if keep != nil {
			missing = removeID
		}
		return MergePreview{}, &MergeError{KeepID: keepID, RemoveID: removeID, Reason: "task not found", Err: &NotFoundError{ID: missing}}
	}
	preview := MergePreview{
		Keep:      keep.Clone(),
		Remove:    remove.Clone(),
		Suggested: d.Strategy(keep, remove),
		Conflicts: []Conflict{},
	}
	for _, field := range conflictFields {
		kv, rv := fieldValue(keep, field), fieldValue(remove, field)
		if kv != "" && rv != "" && kv != rv {
			preview.Conflicts = append(preview.Conflicts, Conflict{Field: field, KeepValue: kv, RemoveValue: rv})
		}
	}
	if len(keep.Tags) > 0 && len(remove.Tags) > 0 {
		keepOnly, removeOnly := setDifference(keep.Tags, remove.Tags), setDifference(remove.Tags, keep.Tags)
		if len(keepOnly) > 0 || len(removeOnly) > 0 {
			preview.Conflicts = append(preview.Conflicts, Conflict{Field: "tags", KeepOnly: keepOnly, RemoveOnly: removeOnly})
		}
	}
	return preview, nil
}

func setDifference(a, b []string) []string {
	var out []string
	for _, item := range dedupeStrings(a) {
		if !containsString(b, item) {
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}
