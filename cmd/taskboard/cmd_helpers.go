// Purpose: Provide CLI error formatting, hints, and version output.
// Exports: none (package-private helpers).
// Role: Shared error/exit utilities for the cmd package.
// Invariants: exitErr always exits with code 1 after printing.
// Notes: Hints depend on error classification and global options.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/sandover/taskboard/internal/taskboard"
)

func printVersion() {
	fmt.Println("taskboard " + version)
}

func exitErr(err error, opts *taskboard.GlobalOptions) {
	fmt.Fprintln(os.Stderr, "error:", err)
	if opts == nil || !opts.Quiet {
		fmt.Fprint(os.Stderr, hintFor(err))
	}
	os.Exit(1)
}

// hintFor returns a newline-terminated hint, or "".
func hintFor(err error) string {
	var (
		transition *taskboard.InvalidTransitionError
		unmet      *taskboard.DependencyUnsatisfiedError
		notFound   *taskboard.NotFoundError
	)
	switch {
	case strings.HasPrefix(err.Error(), "usage:"):
		return "hint: run `taskboard --help`\n"
	case errors.Is(err, taskboard.ErrNoTaskDir):
		return "hint: run `taskboard init` in your project\n"
	case isPermissionError(err):
		return "hint: permission error accessing .taskboard/; taskboard needs read/write\n"
	case strings.Contains(err.Error(), ".taskboard") && strings.Contains(err.Error(), "exists but is not a directory"):
		return "hint: .taskboard must be a directory; delete/rename the file and run `taskboard init`\n"
	case errors.Is(err, taskboard.ErrUnknownTemplate):
		return "hint: run `taskboard templates` to see template ids\n"
	case errors.Is(err, taskboard.ErrLockBusy):
		return "hint: another process is writing; retry\n"
	case errors.As(err, &unmet):
		return "hint: finish the dependencies first, or run `taskboard deps " + unmet.ID + "`\n"
	case errors.As(err, &transition):
		return "hint: run `taskboard show " + transition.ID + "` to check its current status\n"
	case errors.As(err, &notFound):
		return "hint: run `taskboard list --all` to see task ids\n"
	}
	return ""
}

func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if os.IsPermission(err) || errors.Is(err, os.ErrPermission) {
		return true
	}
	return errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES)
}
