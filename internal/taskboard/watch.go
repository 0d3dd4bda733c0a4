package taskboard

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// DirWatcher reports task-file changes in a set of directories. Bursts of
// events inside the debounce window are delivered as one batch of paths.
type DirWatcher struct {
	dirs     []string
	logger   *slog.Logger
	debounce time.Duration
	changes  chan []string
}

func NewDirWatcher(dirs []string, logger *slog.Logger, debounce time.Duration) *DirWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &DirWatcher{
		dirs:     dirs,
		logger:   logger,
		debounce: debounce,
		changes:  make(chan []string, 4),
	}
}

// Changes is closed when the watcher stops.
func (w *DirWatcher) Changes() <-chan []string {
	return w.changes
}

func (w *DirWatcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return &PersistenceError{Op: "watch", Path: dir, Err: err}
		}
	}

	go func() {
		defer fsw.Close()
		defer close(w.changes)

		pending := make(map[string]struct{})
		timer := time.NewTimer(w.debounce)
		if !timer.Stop() {
			<-timer.C
		}
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !isTaskFile(ev.Name) {
					continue
				}
				w.logger.Debug("task file changed", "path", ev.Name, "op", ev.Op.String())
				if len(pending) == 0 {
					timer.Reset(w.debounce)
				}
				pending[ev.Name] = struct{}{}
			case <-timer.C:
				batch := make([]string, 0, len(pending))
				for path := range pending {
					batch = append(batch, path)
				}
				sort.Strings(batch)
				pending = make(map[string]struct{})
				select {
				case w.changes <- batch:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("watcher error", "error", err)
			}
		}
	}()
	return nil
}

func isTaskFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, taskFileExt) && !strings.HasPrefix(base, ".")
}
