// Package repository defines the score store interface and its backends.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/hiscore/internal/domain/model"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Store is the single write path for score entries.
type Store interface {
	// UpsertMax creates the entry for name or raises its score to
	// max(stored, score), atomically with respect to other writers of the
	// same name. A lower or equal score is a successful no-op.
	UpsertMax(ctx context.Context, name string, score int64) (model.SubmitResult, error)

	// TopN returns at most limit entries ordered by score desc, then
	// creation order asc.
	TopN(ctx context.Context, limit int) ([]model.ScoreEntry, error)

	// Count returns the number of distinct names.
	Count(ctx context.Context) (int, error)

	// Close releases the backend.
	Close() error
}

// Open builds the backend named by backend.
func Open(ctx context.Context, backend string, opts ...Option) (Store, error) {
	s := newSettings(opts...)
	switch backend {
	case "", BackendMemory:
		return NewTreapStore(ctx, opts...), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, s.sqlitePath, opts...)
	case BackendPostgres:
		return NewPostgresStore(ctx, s.postgresDSN, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// storageErr tags err as a storage failure so callers can retry.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrStorageFailure, op, err)
}
