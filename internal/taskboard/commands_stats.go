// Command handlers for stats and export.
package taskboard

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// RunStats reports the analytics summary. weeks sizes the velocity window;
// zero means the default.
func RunStats(weeks int, opts GlobalOptions) error {
	if weeks < 0 {
		return errors.New("usage: taskboard stats [--weeks n] (n must be positive)")
	}
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	stats := buildStats(sess.store.All(), time.Now(), weeks)
	if opts.JSON {
		return writeJSON(os.Stdout, stats)
	}
	renderStats(os.Stdout, stats, stdoutIsTTY())
	return nil
}

// RunExport writes every task plus analytics to path as JSON. The export is a
// snapshot; it is never read back.
func RunExport(path string, opts GlobalOptions) error {
	if path == "" {
		return errors.New("usage: taskboard export <file>")
	}
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	now := time.Now()
	tasks := sess.store.All()
	out := exportOutput{
		ExportedAt: formatTime(now),
		Tasks:      buildTaskOutputs(sess.store, tasks, now),
		Analytics:  buildStats(tasks, now, defaultVelocityWeeks),
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, out); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	sess.logger.Debug("export written", "path", path, "tasks", len(tasks))
	if opts.JSON {
		return writeJSON(os.Stdout, map[string]any{"path": path, "tasks": len(tasks)})
	}
	sess.info("exported %d tasks to %s", len(tasks), path)
	fmt.Println(path)
	return nil
}
