// Purpose: Shared command plumbing: options, terminal detection, sessions, write lock.
// Exports: none (package-internal helpers).
// Role: Every RunX handler opens a session here instead of wiring store/config itself.
// Invariants: Mutating commands hold the exclusive lock for their whole
// read-modify-write cycle and reload the store after acquiring it.
// Notes: The logger level follows --verbose/--quiet over config.
package taskboard

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/sandover/taskboard/internal/config"
)

func requireWritable(opts GlobalOptions, what string) error {
	if opts.ReadOnly {
		return fmt.Errorf("readonly: %s", what)
	}
	return nil
}

// stdinIsPiped returns true if stdin has piped input (not a terminal).
func stdinIsPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) == 0
}

// stdoutIsTTY returns true if stdout is a terminal.
func stdoutIsTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// session is one command's view of a data directory.
type session struct {
	opts   GlobalOptions
	root   string
	cfg    *config.Config
	logger *slog.Logger
	files  *FileStore
	store  *Store
	agents *AgentRegistry
}

func loadConfig(root string, opts GlobalOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = filepath.Join(root, config.FileName)
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config, opts GlobalOptions) *slog.Logger {
	level := cfg.Log.Level
	switch {
	case opts.Verbose:
		level = "debug"
	case opts.Quiet:
		level = "error"
	}
	return NewLogger(os.Stderr, level, cfg.Log.Format)
}

func openSessionAt(root string, opts GlobalOptions) (*session, error) {
	cfg, err := loadConfig(root, opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, opts)
	files := NewFileStore(root)
	store, err := OpenStore(files, WithNotifier(LogNotifier{Logger: logger}))
	if err != nil {
		return nil, err
	}
	logger.Debug("session opened", "root", root, "tasks", store.Len())
	return &session{
		opts:   opts,
		root:   root,
		cfg:    cfg,
		logger: logger,
		files:  files,
		store:  store,
		agents: NewAgentRegistry(cfg),
	}, nil
}

// openSession is the read path: no lock.
func openSession(opts GlobalOptions) (*session, error) {
	root, err := taskDir(opts)
	if err != nil {
		return nil, err
	}
	return openSessionAt(root, opts)
}

// withWriteSession runs fn under the exclusive data-directory lock.
func withWriteSession(opts GlobalOptions, what string, fn func(*session) error) error {
	if err := requireWritable(opts, what); err != nil {
		return err
	}
	root, err := taskDir(opts)
	if err != nil {
		return err
	}
	return withLock(filepath.Join(root, lockFileName), syscall.LOCK_EX, func() error {
		sess, err := openSessionAt(root, opts)
		if err != nil {
			return err
		}
		return fn(sess)
	})
}

func (s *session) notifier() Notifier {
	return LogNotifier{Logger: s.logger}
}

func (s *session) templates() []Template {
	return TemplatesFromConfig(s.cfg)
}

func (s *session) validator() *Validator {
	return NewValidator(s.store, s.agents, s.cfg, WithValidatorNotifier(s.notifier()))
}

func (s *session) deduplicator() *Deduplicator {
	return NewDeduplicator(s.store, s.cfg.Dedup, WithDedupNotifier(s.notifier()))
}

// info prints a human status line to stderr unless --quiet.
func (s *session) info(format string, args ...any) {
	if s.opts.Quiet {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
