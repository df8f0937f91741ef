package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // The database driver
)

// Crawl tracking statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// ErrExternalIDConflict is returned when an incoming record carries an
// external id that differs from one already attached to the entity. The
// stored id is never overwritten; the record is rejected instead.
var ErrExternalIDConflict = errors.New("conflicting external id for existing entity")

// Store owns all database access. It is acquired once in main and passed
// explicitly to the components that need it.
type Store struct {
	db *sqlx.DB
}

// Connect opens and pings a Postgres connection.
func Connect(dbURL string) (*Store, error) {
	conn, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: conn}, nil
}

// New wraps an existing handle. Used by tests with sqlmock.
func New(conn *sqlx.DB) *Store {
	return &Store{db: conn}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back on error. Every
// source-record resolution goes through here so a failure never leaves a
// half-applied entity behind.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// nullif maps the canonical records' empty-string "absent" convention onto
// SQL NULL so COALESCE merge rules apply.
func nullif(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
