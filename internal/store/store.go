// Package store provides typed, transaction-scoped access to the
// PostgreSQL-backed schema behind every domain entity and the durable job
// queue.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by single-row lookups that found nothing,
// distinguishing "not found" from an infrastructure failure per the
// component's stated contract.
var ErrNotFound = errors.New("store: not found")

// Store wraps the connection pool and exposes typed operations over every
// table. The embedded mutex guards in-process bookkeeping (none currently
// held across connections) and mirrors the defensive pattern used
// elsewhere in the corpus for stores that may later gain process-local
// caches.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	mu     sync.RWMutex
}

// Open connects to dsn, verifies the connection, and runs migrations.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info().Msg("store opened and migrated")
	return s, nil
}

// ConfigurePool applies connection pool limits. Only non-zero values take
// effect, leaving the driver's defaults in place otherwise.
func (s *Store) ConfigurePool(maxOpen, maxIdle int) {
	if maxOpen > 0 {
		s.db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		s.db.SetMaxIdleConns(maxIdle)
	}
}

// DB exposes the underlying pool for packages (jobqueue's LISTEN/NOTIFY
// listener, primarily) that need it directly.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on error or panic. Aggregate-root writes (session+turns,
// turn+content+artifacts+entities) use this to stay atomic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting every
// type-specific accessor method run either standalone or inside a
// WithTx closure.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return s.db
}
