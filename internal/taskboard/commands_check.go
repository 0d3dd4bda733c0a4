// Command handlers for board health: validate, fix, cleanup, and watch.
package taskboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

func RunValidate(id string, opts GlobalOptions) error {
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	v := sess.validator()
	var warnings, errs []ValidationError
	if id != "" {
		task := sess.store.Get(id)
		if task == nil {
			return &NotFoundError{ID: id}
		}
		warnings, errs = v.Validate(task)
	} else {
		warnings, errs = v.ValidateSystem()
	}
	report := NewReport(warnings, errs)
	if opts.JSON {
		if err := writeJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		renderReport(os.Stdout, report, stdoutIsTTY())
	}
	if report.HasErrors() {
		return fmt.Errorf("validation failed: %d errors", len(report.Errors))
	}
	return nil
}

type FixCommandOptions struct {
	DryRun bool
	Deps   bool
}

func RunFix(fixOpts FixCommandOptions, opts GlobalOptions) error {
	run := func(sess *session) error {
		fixes, err := sess.validator().AutoFix(FixOptions{DryRun: fixOpts.DryRun, DependencyStatus: fixOpts.Deps})
		if opts.JSON {
			if werr := writeJSON(os.Stdout, nonNilFixes(fixes)); werr != nil {
				return werr
			}
		} else {
			for _, fix := range fixes {
				fmt.Println(fix.String())
			}
			verb := "applied"
			if fixOpts.DryRun {
				verb = "planned"
			}
			sess.info("%d fixes %s", len(fixes), verb)
		}
		return err
	}
	if fixOpts.DryRun {
		sess, err := openSession(opts)
		if err != nil {
			return err
		}
		return run(sess)
	}
	return withWriteSession(opts, "fix", run)
}

func nonNilFixes(fixes []Fix) []Fix {
	if fixes == nil {
		return []Fix{}
	}
	return fixes
}

func RunCleanup(opts GlobalOptions) error {
	return withWriteSession(opts, "cleanup", func(sess *session) error {
		report, err := sess.store.CleanupDuplicateFiles()
		if report.Removed == nil {
			report.Removed = []string{}
		}
		if report.Relocated == nil {
			report.Relocated = []string{}
		}
		if opts.JSON {
			if werr := writeJSON(os.Stdout, report); werr != nil {
				return werr
			}
		} else {
			for _, path := range report.Removed {
				fmt.Println("removed", path)
			}
			for _, id := range report.Relocated {
				fmt.Println("relocated", id)
			}
			sess.info("%d duplicates removed, %d files relocated", len(report.Removed), len(report.Relocated))
		}
		return err
	})
}

type watchOutput struct {
	Time     string   `json:"time"`
	Changed  []string `json:"changed"`
	Tasks    int      `json:"tasks"`
	Errors   int      `json:"errors"`
	Warnings int      `json:"warnings"`
	Info     int      `json:"info"`
}

// RunWatch revalidates the board after every burst of task-file changes
// until ctx is cancelled.
func RunWatch(ctx context.Context, opts GlobalOptions) error {
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	dirs := make([]string, 0, len(AllStatuses))
	for _, status := range AllStatuses {
		dirs = append(dirs, sess.files.LocationFor(status))
	}
	if !opts.ReadOnly {
		if err := sess.files.EnsureLayout(); err != nil {
			return err
		}
	}
	watcher := NewDirWatcher(dirs, sess.logger, defaultDebounce)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	sess.info("watching %s (ctrl-c to stop)", sess.root)
	if err := watchSummary(os.Stdout, sess, nil, opts.JSON); err != nil {
		return err
	}
	for batch := range watcher.Changes() {
		if err := sess.store.Reload(); err != nil {
			sess.logger.Error("reload failed", "error", err)
			continue
		}
		if err := watchSummary(os.Stdout, sess, batch, opts.JSON); err != nil {
			return err
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func watchSummary(w io.Writer, sess *session, changed []string, asJSON bool) error {
	report := NewReport(sess.validator().ValidateSystem())
	out := watchOutput{
		Time:     formatTime(time.Now()),
		Changed:  nonNil(changed),
		Tasks:    sess.store.Len(),
		Errors:   len(report.Errors),
		Warnings: len(report.Warnings),
		Info:     len(report.Info),
	}
	if asJSON {
		return writeJSON(w, out)
	}
	_, err := fmt.Fprintf(w, "[%s] %d changed · %d tasks · %d errors · %d warnings · %d info\n",
		time.Now().Format("15:04:05"), len(changed), out.Tasks, out.Errors, out.Warnings, out.Info)
	return err
}
