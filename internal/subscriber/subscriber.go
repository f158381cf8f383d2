// Package subscriber manages the email subscriber list used for alert
// recipients. The list is append-only and deduplicated by lowercased email.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hsr-monitor/internal/apperr"
)

// ErrInvalidEmail is returned by Add for addresses that fail validation.
var ErrInvalidEmail = errors.New("invalid email address")

var errCorrupt = errors.New("corrupt subscribers file")

// Subscriber is one stored recipient.
type Subscriber struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created"` // RFC 3339, UTC
}

// Store lists and appends subscribers.
type Store interface {
	List(ctx context.Context) ([]Subscriber, error)
	// Add appends a subscriber and reports whether it was new. An address
	// already present (case-insensitive) is left unchanged.
	Add(ctx context.Context, email, name string) (bool, error)
}

// NormalizeEmail trims and lowercases an address for storage and dedup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail performs a basic shape check: one "@", a non-empty local
// part and a dotted domain.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	domain := email[at+1:]
	if strings.Contains(email[:at], "@") || !strings.Contains(domain, ".") ||
		strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if strings.ContainsAny(email, " \t\r\n,;") {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

// Emails returns the addresses of subs in order.
func Emails(subs []Subscriber) []string {
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		if s.Email != "" {
			out = append(out, s.Email)
		}
	}
	return out
}

// FileStore keeps subscribers in a JSON array file. Reads and writes are not
// synchronized across processes.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// List implements Store. A missing file yields an empty list. A malformed file
// yields an empty list and a *apperr.PersistenceError.
func (s *FileStore) List(_ context.Context) ([]Subscriber, error) {
	subs, err := s.load()
	if err != nil {
		return []Subscriber{}, err
	}
	return subs, nil
}

// Add implements Store. A malformed existing file is treated as empty.
func (s *FileStore) Add(_ context.Context, email, name string) (bool, error) {
	if err := ValidateEmail(email); err != nil {
		return false, err
	}
	normalized := NormalizeEmail(email)

	subs, err := s.load()
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			return false, err
		}
		slog.Warn("Subscribers file is malformed, starting from an empty list", "path", s.path, "error", err)
		subs = nil
	}

	for _, existing := range subs {
		if NormalizeEmail(existing.Email) == normalized {
			return false, nil
		}
	}

	subs = append(subs, Subscriber{
		Email:     normalized,
		Name:      strings.TrimSpace(name),
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err := s.save(subs); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) load() ([]Subscriber, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Subscriber{}, nil
	}
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "read", Path: s.path, Err: err}
	}
	if strings.TrimSpace(string(data)) == "" {
		return []Subscriber{}, nil
	}

	var subs []Subscriber
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, &apperr.PersistenceError{Op: "read", Path: s.path, Err: fmt.Errorf("%w: %v", errCorrupt, err)}
	}
	return subs, nil
}

func (s *FileStore) save(subs []Subscriber) error {
	data, err := json.MarshalIndent(subs, "", "  ")
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
