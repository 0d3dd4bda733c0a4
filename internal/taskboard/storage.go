// Data directory discovery and task file persistence.
//
// Key responsibilities:
// - `.taskboard/` discovery (`resolveTaskDir`, `taskDir`)
// - status → directory mapping (`statusDirs`, `LocationFor`)
// - one Markdown file per task (`FileStore.LoadAll`, `Save`, `Delete`)
//
// Resilience:
// - `LoadAll` reports per-file parse failures in Record.Err and keeps going.
// - Writes go to a temp file in the target directory and are renamed into place.
// - A status change writes the new file first, then deletes the old one.
package taskboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	dataDirName  = ".taskboard"
	taskFileExt  = ".md"
	lockFileName = "lock"
)

// statusDirs is the fixed status → directory table. Every Status must have an
// entry and names must be unique (model_test checks both).
var statusDirs = map[Status]string{
	StatusPending:    "backlog",
	StatusBlocked:    "blocked",
	StatusTodo:       "todo",
	StatusInProgress: "in-progress",
	StatusComplete:   "done",
	StatusCancelled:  "cancelled",
}

// Record is one parsed file from LoadAll. Err is set when the file could not
// be parsed; Task is nil in that case.
type Record struct {
	Task *Task
	Path string
	Dir  Status // status implied by the directory the file sits in
	Err  error
}

// Persister is the storage contract the Store depends on.
type Persister interface {
	LoadAll() ([]Record, error)
	// Save writes task at the location for task.Status. previous is the status
	// the task was stored under before ("" for a new task); when it differs,
	// the old file is removed.
	Save(task *Task, previous Status) error
	Delete(id string, status Status) error
	// Remove deletes one specific file, for stray copies found by LoadAll.
	Remove(path string) error
	LocationFor(status Status) string
}

// FileStore persists tasks as <root>/<status dir>/<id>.md.
type FileStore struct {
	Root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root}
}

// EnsureLayout creates the root and every status directory.
func (fs *FileStore) EnsureLayout() error {
	for _, status := range AllStatuses {
		if err := os.MkdirAll(fs.LocationFor(status), 0755); err != nil {
			return &PersistenceError{Op: "init", Path: fs.LocationFor(status), Err: err}
		}
	}
	return nil
}

func (fs *FileStore) LocationFor(status Status) string {
	return filepath.Join(fs.Root, statusDirs[status])
}

func (fs *FileStore) pathFor(id string, status Status) string {
	return filepath.Join(fs.LocationFor(status), id+taskFileExt)
}

// LoadAll reads every *.md file in every status directory, in workflow order
// and then by file name. A missing status directory is treated as empty.
func (fs *FileStore) LoadAll() ([]Record, error) {
	var records []Record
	for _, status := range AllStatuses {
		dir := fs.LocationFor(status)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, &PersistenceError{Op: "load", Path: dir, Err: err}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), taskFileExt) || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			records = append(records, fs.loadFile(path, status))
		}
	}
	return records, nil
}

func (fs *FileStore) loadFile(path string, dirStatus Status) Record {
	rec := Record{Path: path, Dir: dirStatus}
	data, err := os.ReadFile(path)
	if err != nil {
		rec.Err = err
		return rec
	}
	task, err := decodeTask(data)
	if err != nil {
		rec.Err = err
		return rec
	}
	if task.ID == "" {
		task.ID = strings.TrimSuffix(filepath.Base(path), taskFileExt)
	}
	if task.Status == "" {
		task.Status = dirStatus
	}
	rec.Task = task
	return rec
}

func (fs *FileStore) Save(task *Task, previous Status) error {
	if _, ok := statusDirs[task.Status]; !ok {
		return &PersistenceError{Op: "save", ID: task.ID, Err: fmt.Errorf("unknown status %q", task.Status)}
	}
	data, err := encodeTask(task)
	if err != nil {
		return &PersistenceError{Op: "save", ID: task.ID, Err: err}
	}
	target := fs.pathFor(task.ID, task.Status)
	if err := writeFileAtomic(target, data); err != nil {
		return &PersistenceError{Op: "save", ID: task.ID, Path: target, Err: err}
	}
	if previous == "" || previous == task.Status {
		return nil
	}
	old := fs.pathFor(task.ID, previous)
	if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
		// Roll the new file back so exactly one file represents the task.
		_ = os.Remove(target)
		return &PersistenceError{Op: "save", ID: task.ID, Path: old, Err: err}
	}
	return nil
}

func (fs *FileStore) Delete(id string, status Status) error {
	path := fs.pathFor(id, status)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &PersistenceError{Op: "delete", ID: id, Path: path, Err: err}
	}
	return nil
}

func (fs *FileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &PersistenceError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if err := writeAll(tmp, append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func writeAll(w *os.File, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func resolveTaskDir(start string) (string, error) {
	current := start
	for {
		candidate := filepath.Join(current, dataDirName)
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return candidate, nil
			}
			return "", fmt.Errorf("%s exists but is not a directory", candidate)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		if current == filepath.Dir(current) {
			break
		}
		current = filepath.Dir(current)
	}

	if filepath.Base(start) == dataDirName {
		if info, err := os.Stat(start); err == nil && info.IsDir() {
			return start, nil
		}
	}

	return "", fmt.Errorf("%w (run taskboard init)", ErrNoTaskDir)
}

func taskDir(opts GlobalOptions) (string, error) {
	start := opts.StartDir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = wd
	}
	return resolveTaskDir(start)
}
