// Purpose: Structured notifications emitted by the store, validator and merger.
// Exports: Event, EventKind, Notifier, LogNotifier, Recorder, Discard, NewLogger.
// Role: The only channel by which core logic reports side information.
// Invariants: Core code calls Notify unconditionally; rendering is the notifier's job.
// Notes: LogNotifier maps kinds to slog levels; Recorder is for tests.
package taskboard

import (
	"io"
	"log/slog"
	"strings"
	"sync"
)

type EventKind string

const (
	EventLoaded            EventKind = "store.loaded"
	EventLoadSkipped       EventKind = "store.load_skipped"
	EventDuplicateFile     EventKind = "store.duplicate_file"
	EventTimestampFixed    EventKind = "store.timestamp_fixed"
	EventCreated           EventKind = "task.created"
	EventStatusChanged     EventKind = "task.status_changed"
	EventCascadeTransition EventKind = "task.cascade_transition"
	EventCascadeFailed     EventKind = "task.cascade_failed"
	EventNoteAdded         EventKind = "task.note_added"
	EventFieldsUpdated     EventKind = "task.fields_updated"
	EventDeleted           EventKind = "task.deleted"
	EventMerged            EventKind = "merge.completed"
	EventReferenceRewrite  EventKind = "merge.reference_rewritten"
	EventMergeFailed       EventKind = "merge.failed"
	EventAgentMigrated     EventKind = "fix.agent_migrated"
	EventDependencyBlocked EventKind = "fix.dependency_blocked"
	EventFileRemoved       EventKind = "cleanup.file_removed"
)

// Event is a single notification. Fields not relevant to a kind stay zero.
type Event struct {
	Kind    EventKind
	TaskID  string
	From    Status
	To      Status
	Path    string
	Message string
	Err     error
	Count   int
}

// Notifier receives core events.
type Notifier interface {
	Notify(Event)
}

type discardNotifier struct{}

func (discardNotifier) Notify(Event) {}

// Discard drops every event.
var Discard Notifier = discardNotifier{}

// LogNotifier renders events as slog records.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ev Event) {
	if n.Logger == nil {
		return
	}
	attrs := []any{"event", string(ev.Kind)}
	if ev.TaskID != "" {
		attrs = append(attrs, "task", ev.TaskID)
	}
	if ev.From != "" {
		attrs = append(attrs, "from", string(ev.From))
	}
	if ev.To != "" {
		attrs = append(attrs, "to", string(ev.To))
	}
	if ev.Path != "" {
		attrs = append(attrs, "path", ev.Path)
	}
	if ev.Count != 0 {
		attrs = append(attrs, "count", ev.Count)
	}
	if ev.Err != nil {
		attrs = append(attrs, "err", ev.Err.Error())
	}
	msg := ev.Message
	if msg == "" {
		msg = string(ev.Kind)
	}

	switch ev.Kind {
	case EventLoadSkipped, EventCascadeFailed, EventDuplicateFile, EventMergeFailed:
		n.Logger.Warn(msg, attrs...)
	case EventStatusChanged, EventCascadeTransition, EventMerged, EventAgentMigrated,
		EventDependencyBlocked, EventFileRemoved, EventCreated, EventDeleted:
		n.Logger.Info(msg, attrs...)
	default:
		n.Logger.Debug(msg, attrs...)
	}
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfKind returns recorded events with the given kind.
func (r *Recorder) OfKind(kind EventKind) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// NewLogger builds the stderr logger used by the CLI.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
