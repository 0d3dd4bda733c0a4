// Command handlers for init, new, and where.
package taskboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sandover/taskboard/internal/config"
)

func RunInit(args []string, opts GlobalOptions) error {
	if len(args) > 1 {
		return errors.New("usage: taskboard init [dir]")
	}
	if err := requireWritable(opts, "init"); err != nil {
		return err
	}
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	target := filepath.Join(dir, dataDirName)
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return fmt.Errorf("%s exists but is not a directory", target)
	}
	files := NewFileStore(target)
	if err := files.EnsureLayout(); err != nil {
		return err
	}
	if err := config.WriteDefault(filepath.Join(target, config.FileName)); err != nil {
		return err
	}
	if err := ensureFileExists(filepath.Join(target, lockFileName), 0644); err != nil {
		return err
	}
	if opts.JSON {
		if err := writeJSON(os.Stdout, initOutput{TaskboardDir: target}); err != nil {
			return err
		}
	} else {
		fmt.Println(target)
	}
	if !opts.Quiet {
		fmt.Fprintln(os.Stderr, "Initialized taskboard at", target)
	}
	return nil
}

// NewOptions carries `new` flags. With no --title, JSON is read from stdin.
type NewOptions struct {
	ID             string
	Title          string
	Description    string
	Agent          string
	Status         string
	Priority       string
	Dependencies   []string
	Tags           []string
	Due            string
	EstimatedHours float64
	Assignee       string
	// Template names a configured template; Vars are its key=value inputs.
	Template string
	Vars     []string
}

func (o NewOptions) input() *TaskInput {
	in := &TaskInput{Title: &o.Title}
	for _, f := range []struct {
		value string
		dst   **string
	}{
		{o.ID, &in.ID},
		{o.Description, &in.Description},
		{o.Agent, &in.Agent},
		{o.Status, &in.Status},
		{o.Priority, &in.Priority},
		{o.Due, &in.DueDate},
		{o.Assignee, &in.Assignee},
	} {
		if f.value != "" {
			v := f.value
			*f.dst = &v
		}
	}
	if len(o.Dependencies) > 0 {
		deps := o.Dependencies
		in.Dependencies = &deps
	}
	if len(o.Tags) > 0 {
		tags := o.Tags
		in.Tags = &tags
	}
	if o.EstimatedHours > 0 {
		hours := o.EstimatedHours
		in.EstimatedHours = &hours
	}
	return in
}

func RunNew(flags NewOptions, opts GlobalOptions) error {
	if flags.Template != "" {
		return runNewFromTemplate(flags, opts)
	}
	if len(flags.Vars) > 0 {
		return errors.New("usage: taskboard new --template <id> [--var key=value]...")
	}
	var input *TaskInput
	if flags.Title != "" {
		input = flags.input()
	} else {
		var ierr *InputError
		input, ierr = readTaskInput()
		if ierr != nil {
			return reportInputError(ierr, opts)
		}
	}
	fields, ierr := input.Fields()
	if ierr != nil {
		return reportInputError(ierr, opts)
	}

	return withWriteSession(opts, "new", func(sess *session) error {
		return sess.createTask(fields)
	})
}

// runNewFromTemplate fills the template from --var and lets explicit flags
// override what it produced. Stdin is not read.
func runNewFromTemplate(flags NewOptions, opts GlobalOptions) error {
	vars, err := ParseTemplateVars(flags.Vars)
	if err != nil {
		return err
	}
	given, ierr := flags.input().fields(false)
	if ierr != nil {
		return reportInputError(ierr, opts)
	}
	return withWriteSession(opts, "new", func(sess *session) error {
		tmpl, err := findTemplate(sess.templates(), flags.Template)
		if err != nil {
			return err
		}
		sess.logger.Debug("creating from template", "template", tmpl.ID, "vars", len(vars))
		return sess.createTask(tmpl.Fields(vars).overlay(given))
	})
}

func (s *session) createTask(fields TaskFields) error {
	task, err := s.store.Create(fields)
	if err != nil {
		return err
	}
	s.logger.Debug("task created", "id", task.ID, "path", s.store.Path(task.ID))
	warnings, errs := s.validator().Validate(task)
	if !s.opts.Quiet {
		for _, issue := range append(errs, warnings...) {
			if issue.Severity != SeverityInfo {
				fmt.Fprintln(os.Stderr, issue.Error())
			}
		}
	}
	if s.opts.JSON {
		return writeJSON(os.Stdout, buildTaskOutput(s.store, task, time.Now()))
	}
	fmt.Println(task.ID)
	return nil
}

// RunTemplates lists configured templates, optionally filtered.
func RunTemplates(agent string, tags []string, opts GlobalOptions) error {
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	templates := FilterTemplates(sess.templates(), agent, tags)
	if opts.JSON {
		if templates == nil {
			templates = []Template{}
		}
		return writeJSON(os.Stdout, templates)
	}
	if len(templates) == 0 {
		if !opts.Quiet {
			fmt.Fprintln(os.Stderr, "no templates match")
		}
		return nil
	}
	renderTemplates(os.Stdout, templates, stdoutIsTTY())
	return nil
}

func reportInputError(ierr *InputError, opts GlobalOptions) error {
	if opts.JSON {
		if err := ierr.WriteJSON(os.Stdout); err != nil {
			return err
		}
	}
	return ierr.GoError()
}

func RunWhere(opts GlobalOptions) error {
	root, err := taskDir(opts)
	if err != nil {
		return err
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return err
	}
	if opts.JSON {
		return writeJSON(os.Stdout, whereOutput{TaskboardDir: root, ProjectDir: filepath.Dir(root)})
	}
	fmt.Println(root)
	return nil
}
