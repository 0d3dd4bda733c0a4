// Purpose: Provide shared helpers for IDs, locking, sets, and time formatting.
// Exports: none (package-internal helpers).
// Role: Low-level utility layer used across store, commands and storage.
// Invariants: Lock acquisition is non-blocking; generated IDs are T- plus 8 hex chars.
// Notes: Time formatting uses RFC3339 in UTC.
package taskboard

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

func sortedKeys[V any](items map[string]V) []string {
	if len(items) == 0 {
		return nil
	}
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// withLock runs fn while holding an advisory flock on path.
func withLock(path string, lockType int, fn func() error) error {
	fd, err := syscall.Open(path, syscall.O_RDONLY, 0)
	if err != nil && os.IsNotExist(err) {
		// The lock file carries no state; recreate it on demand.
		if err := ensureFileExists(path, 0644); err != nil {
			return err
		}
		fd, err = syscall.Open(path, syscall.O_RDONLY, 0)
	}
	if err != nil {
		return err
	}
	defer syscall.Close(fd)

	if err := syscall.Flock(fd, lockType|syscall.LOCK_NB); err != nil {
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			return ErrLockBusy
		}
		return err
	}
	defer func() {
		_ = syscall.Flock(fd, syscall.LOCK_UN)
	}()
	return fn()
}

func ensureFileExists(path string, mode os.FileMode) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.WriteFile(path, []byte{}, mode); err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	return nil
}

func newTaskID(exists func(string) bool) (string, error) {
	const maxAttempts = 64
	for i := 0; i < maxAttempts; i++ {
		raw, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		id := "T-" + strings.ReplaceAll(raw.String(), "-", "")[:8]
		if !exists(id) {
			return id, nil
		}
	}
	return "", errors.New("failed to generate unique id")
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}

// dedupeStrings keeps the first occurrence of each value, dropping any in skip.
func dedupeStrings(items []string, skip ...string) []string {
	if len(items) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		drop[s] = struct{}{}
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, skipIt := drop[item]; skipIt {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
