// Package store persists session state for the CLI: one JSON file guarded
// by an inter-process lock file next to it.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nightlyone/lockfile"
)

// DefaultPath is the state file used when none is configured.
const DefaultPath = ".codeblur/state.json"

// ErrLocked is returned by Open when another live process holds the lock.
var ErrLocked = errors.New("store: state is locked by another process")

// Store is an open, locked state file.
type Store struct {
	path string
	lock lockfile.Lockfile
}

// Open locks the state file at path, creating its directory if needed. The
// file itself may not exist yet.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("store: resolve %q: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	lock, err := lockfile.New(abs + ".lck")
	if err != nil {
		return nil, fmt.Errorf("store: lockfile: %w", err)
	}
	switch err := lock.TryLock(); {
	case errors.Is(err, lockfile.ErrBusy):
		return nil, fmt.Errorf("%w: %s", ErrLocked, abs)
	case err != nil:
		return nil, fmt.Errorf("store: lock %s: %w", abs, err)
	}
	return &Store{path: abs, lock: lock}, nil
}

// Path returns the absolute state file path.
func (s *Store) Path() string { return s.path }

// HistoryPath returns the path of the undo history kept beside the state.
func (s *Store) HistoryPath() string { return s.path + ".undo" }

// Read returns the stored bytes, or nil if nothing was saved yet.
func (s *Store) Read() ([]byte, error) { return readFile(s.path) }

// Write replaces the state file atomically.
func (s *Store) Write(data []byte) error { return s.writeFile(s.path, data) }

// ReadHistory returns the stored undo history, or nil if there is none.
func (s *Store) ReadHistory() ([]byte, error) { return readFile(s.HistoryPath()) }

// WriteHistory replaces the undo history atomically.
func (s *Store) WriteHistory(data []byte) error { return s.writeFile(s.HistoryPath(), data) }

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read: %w", err)
	}
	return data, nil
}

func (s *Store) writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("store: write: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}

// Remove deletes the state file and its history. Missing files are not an
// error.
func (s *Store) Remove() error {
	for _, p := range []string{s.path, s.HistoryPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("store: remove: %w", err)
		}
	}
	return nil
}

// Close releases the lock.
func (s *Store) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("store: unlock: %w", err)
	}
	return nil
}
