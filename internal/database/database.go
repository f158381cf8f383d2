// Package database provides a PostgreSQL-backed subscriber store, selected
// when a subscribers DSN is configured in place of the JSON file.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"hsr-monitor/internal/apperr"
	"hsr-monitor/internal/subscriber"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS hsr_subscribers (
	email      TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`

// DB wraps a database connection and provides subscriber operations.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// NewDB opens a connection using dsn and verifies it with a ping.
func NewDB(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn cannot be empty")
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Successfully connected to PostgreSQL database")
	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		slog.Info("Closing database connection")
		return db.conn.Close()
	}
	return nil
}

// EnsureSchema creates the subscribers table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create subscribers table: %w", err)
	}
	return nil
}

// List implements subscriber.Store, ordered by insertion time.
func (db *DB) List(ctx context.Context) ([]subscriber.Subscriber, error) {
	query := `
		SELECT email, name, created_at
		FROM hsr_subscribers
		ORDER BY created_at, email
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return []subscriber.Subscriber{}, &apperr.PersistenceError{Op: "read", Path: "postgres:hsr_subscribers", Err: err}
	}
	defer rows.Close()

	subs := make([]subscriber.Subscriber, 0)
	for rows.Next() {
		var s subscriber.Subscriber
		var createdAt time.Time
		if err := rows.Scan(&s.Email, &s.Name, &createdAt); err != nil {
			return []subscriber.Subscriber{}, &apperr.PersistenceError{Op: "read", Path: "postgres:hsr_subscribers", Err: err}
		}
		s.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return []subscriber.Subscriber{}, &apperr.PersistenceError{Op: "read", Path: "postgres:hsr_subscribers", Err: err}
	}
	return subs, nil
}

// Add implements subscriber.Store. Emails are stored lowercased so the
// primary key enforces case-insensitive uniqueness.
func (db *DB) Add(ctx context.Context, email, name string) (bool, error) {
	if err := subscriber.ValidateEmail(email); err != nil {
		return false, err
	}

	query := `
		INSERT INTO hsr_subscribers (email, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
	`
	result, err := db.conn.ExecContext(ctx, query,
		subscriber.NormalizeEmail(email),
		strings.TrimSpace(name),
		db.now().UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return false, nil
		}
		return false, &apperr.PersistenceError{Op: "write", Path: "postgres:hsr_subscribers", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, &apperr.PersistenceError{Op: "write", Path: "postgres:hsr_subscribers", Err: err}
	}
	return affected > 0, nil
}

var _ subscriber.Store = (*DB)(nil)
