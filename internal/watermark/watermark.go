// Package watermark persists the single "last seen created timestamp" shared
// by the viewer and the alert pipeline.
//
// There is no locking or transactional protection: concurrent writers (for
// example a viewer running while the poller runs) race with last-write-wins
// semantics. The single-writer assumption is operational, not enforced.
package watermark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hsr-monitor/internal/apperr"
)

// Store reads and writes the watermark.
type Store interface {
	// Read returns the stored watermark and whether one exists. A missing
	// file is ("", false, nil). Unreadable or corrupt state returns a
	// *apperr.PersistenceError; callers normally treat it as absent.
	Read(ctx context.Context) (string, bool, error)

	// Write persists value. Empty values and values not greater than the
	// stored watermark are no-ops, so the watermark never moves backwards.
	Write(ctx context.Context, value string) error
}

// state is the on-disk document: {"last_created": "..."}.
type state struct {
	LastCreated string `json:"last_created"`
}

// FileStore keeps the watermark in a small JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Read implements Store.
func (s *FileStore) Read(_ context.Context) (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &apperr.PersistenceError{Op: "read", Path: s.path, Err: err}
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return "", false, &apperr.PersistenceError{Op: "read", Path: s.path, Err: fmt.Errorf("corrupt watermark file: %w", err)}
	}
	value := strings.TrimSpace(st.LastCreated)
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// Write implements Store. The document is written to a temp file and renamed
// into place so a crash mid-write leaves the previous value readable. An
// unreadable or corrupt file is replaced.
func (s *FileStore) Write(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if current, ok, err := s.Read(ctx); err == nil && ok && value <= current {
		return nil
	}

	data, err := json.Marshal(state{LastCreated: value})
	if err != nil {
		return &apperr.PersistenceError{Op: "write", Path: s.path, Err: err}
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &apperr.PersistenceError{Op: "write", Path: s.path, Err: err}
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &apperr.PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &apperr.PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

var _ Store = (*FileStore)(nil)
