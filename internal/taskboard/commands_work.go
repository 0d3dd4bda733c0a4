// Command handlers for day-to-day task work: list, show, set, status, note,
// deps, and ready.
package taskboard

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
)

type ListOptions struct {
	Status string
	Agent  string
	All    bool
}

func RunList(listOpts ListOptions, opts GlobalOptions) error {
	var status Status
	if listOpts.Status != "" {
		parsed, err := ParseStatus(listOpts.Status)
		if err != nil {
			return fmt.Errorf("usage: %w", err)
		}
		status = parsed
	}
	sess, err := openSession(opts)
	if err != nil {
		return err
	}

	var candidates []*Task
	switch {
	case status != "":
		candidates = sess.store.ListByStatus(status)
	case listOpts.Agent != "":
		candidates = sess.store.ListByAgent(listOpts.Agent)
	default:
		candidates = sess.store.All()
	}
	var tasks []*Task
	for _, task := range candidates {
		switch {
		case status == "" && !listOpts.All && task.Status.Terminal():
			continue
		case listOpts.Agent != "" && task.Agent != listOpts.Agent:
			continue
		}
		tasks = append(tasks, task)
	}

	now := time.Now()
	if opts.JSON {
		return writeJSON(os.Stdout, buildTaskOutputs(sess.store, tasks, now))
	}
	if len(tasks) == 0 {
		if !opts.Quiet {
			fmt.Fprintln(os.Stderr, "no tasks")
		}
		return nil
	}
	renderListView(os.Stdout, sess.store, tasks, stdoutIsTTY(), getTerminalWidth(), now)
	return nil
}

func RunShow(id string, opts GlobalOptions) error {
	if id == "" {
		return errors.New("usage: taskboard show <id> [--json]")
	}
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	task := sess.store.Get(id)
	if task == nil {
		return &NotFoundError{ID: id}
	}
	now := time.Now()
	if opts.JSON {
		return writeJSON(os.Stdout, buildTaskOutput(sess.store, task, now))
	}

	doc := taskMarkdown(sess.store, task, now)
	if stdoutIsTTY() {
		r, _ := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if r != nil {
			if out, err := r.Render(doc); err == nil {
				fmt.Print(out)
				return nil
			}
		}
	}
	fmt.Print(doc)
	return nil
}

// taskMarkdown renders a task as a Markdown document for `show`.
func taskMarkdown(store *Store, task *Task, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", task.Title)
	fmt.Fprintf(&b, "- **id:** `%s`\n", task.ID)
	fmt.Fprintf(&b, "- **status:** %s\n", task.Status)
	fmt.Fprintf(&b, "- **priority:** %s\n", task.Priority)
	if task.Agent != "" {
		fmt.Fprintf(&b, "- **agent:** %s\n", task.Agent)
	}
	if task.Assignee != "" {
		fmt.Fprintf(&b, "- **assignee:** %s\n", task.Assignee)
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(&b, "- **tags:** %s\n", strings.Join(task.Tags, ", "))
	}
	if task.DueDate != nil {
		due := formatTime(*task.DueDate)
		if task.Overdue(now) {
			due += " (overdue)"
		}
		fmt.Fprintf(&b, "- **due:** %s\n", due)
	}
	if task.EstimatedHours != nil || task.ActualHours != nil {
		fmt.Fprintf(&b, "- **hours:** %s estimated / %s actual\n", formatHours(task.EstimatedHours), formatHours(task.ActualHours))
	}
	fmt.Fprintf(&b, "- **created:** %s\n", formatTime(task.CreatedAt))
	fmt.Fprintf(&b, "- **updated:** %s\n", formatTime(task.UpdatedAt))

	if len(task.Dependencies) > 0 {
		fmt.Fprintf(&b, "\n## Dependencies\n\n")
		for _, dep := range task.Dependencies {
			mark := "x"
			if !store.Exists(dep) || store.Get(dep).Status != StatusComplete {
				mark = " "
			}
			fmt.Fprintf(&b, "- [%s] `%s`\n", mark, dep)
		}
	}
	if dependents := store.Dependents(task.ID); len(dependents) > 0 {
		fmt.Fprintf(&b, "\n## Blocks\n\n")
		for _, dep := range dependents {
			fmt.Fprintf(&b, "- `%s`\n", dep)
		}
	}
	if strings.TrimSpace(task.Description) != "" {
		fmt.Fprintf(&b, "\n## Description\n\n%s\n", strings.TrimSpace(task.Description))
	}
	if strings.TrimSpace(task.Notes) != "" {
		fmt.Fprintf(&b, "\n## Notes\n\n")
		for _, line := range strings.Split(strings.TrimSpace(task.Notes), "\n") {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return b.String()
}

func formatHours(h *float64) string {
	if h == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *h)
}

func RunSet(id string, opts GlobalOptions) error {
	if id == "" {
		return errors.New("usage: echo '{\"priority\":\"high\"}' | taskboard set <id>")
	}
	if err := requireWritable(opts, "set"); err != nil {
		return err
	}
	input, ierr := readTaskInput()
	if ierr != nil {
		return reportInputError(ierr, opts)
	}
	if !input.provided() {
		return errors.New("no fields to update")
	}
	patch, status, ierr := input.Patch()
	if ierr != nil {
		return reportInputError(ierr, opts)
	}

	return withWriteSession(opts, "set", func(sess *session) error {
		if !sess.store.Exists(id) {
			return &NotFoundError{ID: id}
		}
		if _, err := sess.store.UpdateFields(id, patch); err != nil {
			return err
		}
		if status != nil && *status != sess.store.Get(id).Status {
			if err := sess.store.UpdateStatus(id, *status, ""); err != nil {
				return err
			}
		}
		task := sess.store.Get(id)
		if opts.JSON {
			return writeJSON(os.Stdout, buildTaskOutput(sess.store, task, time.Now()))
		}
		fmt.Println(task.ID)
		return nil
	})
}

func RunStatus(id, value, note string, opts GlobalOptions) error {
	if id == "" || value == "" {
		return errors.New("usage: taskboard status <id> <status> [--note text]")
	}
	to, err := ParseStatus(value)
	if err != nil {
		return fmt.Errorf("usage: %w", err)
	}
	return withWriteSession(opts, "status", func(sess *session) error {
		blocked := make(map[string]struct{})
		for _, task := range sess.store.ListByStatus(StatusBlocked) {
			blocked[task.ID] = struct{}{}
		}
		if err := sess.store.UpdateStatus(id, to, note); err != nil {
			return err
		}
		unblocked := []string{}
		for _, candidate := range sortedKeys(blocked) {
			if task := sess.store.Get(candidate); task != nil && task.Status == StatusTodo {
				unblocked = append(unblocked, candidate)
			}
		}
		if opts.JSON {
			return writeJSON(os.Stdout, statusOutput{ID: id, Status: string(to), Unblocked: unblocked})
		}
		fmt.Printf("%s → %s\n", id, to)
		for _, u := range unblocked {
			sess.info("unblocked %s", u)
		}
		return nil
	})
}

func RunNote(id, text string, opts GlobalOptions) error {
	if id == "" || strings.TrimSpace(text) == "" {
		return errors.New("usage: taskboard note <id> <text>")
	}
	return withWriteSession(opts, "note", func(sess *session) error {
		if err := sess.store.AddNote(id, text); err != nil {
			return err
		}
		if opts.JSON {
			return writeJSON(os.Stdout, buildTaskOutput(sess.store, sess.store.Get(id), time.Now()))
		}
		sess.info("noted %s", id)
		return nil
	})
}

func RunDeps(id string, opts GlobalOptions) error {
	if id == "" {
		return errors.New("usage: taskboard deps <id>")
	}
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	if !sess.store.Exists(id) {
		return &NotFoundError{ID: id}
	}
	out := depsOutput{
		ID:         id,
		Chain:      nonNil(sess.store.DependencyChain(id)),
		BlockedBy:  nonNil(sess.store.BlockedBy(id)),
		Dependents: nonNil(sess.store.Dependents(id)),
		InCycle:    sess.store.InCycle(id),
	}
	if opts.JSON {
		return writeJSON(os.Stdout, out)
	}

	if len(out.Chain) == 0 {
		fmt.Printf("%s has no dependencies\n", id)
	} else {
		fmt.Printf("%s depends on (deepest first):\n", id)
		for _, dep := range out.Chain {
			state := "missing"
			if task := sess.store.Get(dep); task != nil {
				state = string(task.Status)
			}
			fmt.Printf("  %s  %s\n", dep, state)
		}
	}
	if len(out.BlockedBy) > 0 {
		fmt.Printf("blocked by: %s\n", strings.Join(out.BlockedBy, ", "))
	}
	if len(out.Dependents) > 0 {
		fmt.Printf("blocks: %s\n", strings.Join(out.Dependents, ", "))
	}
	if out.InCycle {
		fmt.Println("warning: task is part of a dependency cycle")
	}
	return nil
}

func RunReady(opts GlobalOptions) error {
	return withWriteSession(opts, "ready", func(sess *session) error {
		moved := nonNil(sess.store.AutoTransitionReady())
		if opts.JSON {
			return writeJSON(os.Stdout, moved)
		}
		for _, id := range moved {
			fmt.Println(id)
		}
		sess.info("%d tasks moved to todo", len(moved))
		return nil
	})
}
