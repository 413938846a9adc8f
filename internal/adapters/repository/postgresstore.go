package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/okian/hiscore/internal/domain/model"
	"github.com/okian/hiscore/pkg/logger"
	"github.com/okian/hiscore/pkg/metrics"
)

// ErrMissingDSN is returned when the postgres backend has no connection string.
var ErrMissingDSN = errors.New("postgres dsn is empty")

// Schema bootstrap. Tables created by earlier deployments may lack
// created_at and the uniqueness of name; duplicates are folded into the
// best row per name before the unique index is built.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS scores (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		score      BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`ALTER TABLE scores ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP`,
	`DELETE FROM scores a USING scores b
		WHERE a.name = b.name
		  AND (a.score < b.score OR (a.score = b.score AND a.id > b.id))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_scores_name ON scores (name)`,
}

const (
	pgInsertNew = `INSERT INTO scores (name, score, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, score, created_at`
	pgLockByName = `SELECT id, name, score, created_at FROM scores WHERE name = $1 FOR UPDATE`
	pgRaise      = `UPDATE scores SET score = $2 WHERE id = $1`
	pgTopN       = `SELECT id, name, score, created_at FROM scores ORDER BY score DESC, id ASC LIMIT $1`
	pgCount      = `SELECT COUNT(*) FROM scores`
)

// PostgresStore keeps the scores table in PostgreSQL.
//
// A merge is one transaction: insert-if-absent, otherwise lock the row and
// raise it. Writers of the same name serialize on the row lock; other names
// proceed in parallel.
type PostgresStore struct {
	db     *sqlx.DB
	now    func() time.Time
	logger logger.Logger
}

// NewPostgresStore connects to dsn and bootstraps the schema. An empty dsn
// falls back to DATABASE_URL.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	s := newSettings(opts...)
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, storageErr("connect postgres", ErrMissingDSN)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, storageErr("connect postgres", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)

	for _, stmt := range postgresSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, storageErr("migrate postgres", err)
		}
	}

	s.logger.Info(ctx, "postgres store ready")
	return &PostgresStore{db: db, now: s.now, logger: s.logger}, nil
}

// UpsertMax implements Store.UpsertMax.
func (s *PostgresStore) UpsertMax(ctx context.Context, name string, score int64) (model.SubmitResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency(BackendPostgres, "upsert", float64(time.Since(start).Microseconds())/1000)
	}()

	res, err := s.upsertMax(ctx, name, score)
	if err != nil {
		metrics.RecordStorageError(BackendPostgres, "upsert")
		return model.SubmitResult{}, storageErr("upsert", err)
	}
	if res.Created {
		if n, err := s.Count(ctx); err == nil {
			metrics.UpdateTotalPlayers(n)
		}
	}
	return res, nil
}

func (s *PostgresStore) upsertMax(ctx context.Context, name string, score int64) (model.SubmitResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("begin: %w", err)
	}

	var row scoreRow
	err = tx.GetContext(ctx, &row, pgInsertNew, name, score, s.now().UTC())
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return model.SubmitResult{}, fmt.Errorf("commit insert: %w", err)
		}
		return model.SubmitResult{Entry: row.entry(), Created: true, Updated: true}, nil
	case !errors.Is(err, sql.ErrNoRows):
		safeRollback(ctx, tx, s.logger)
		return model.SubmitResult{}, fmt.Errorf("insert: %w", err)
	}

	if err := tx.GetContext(ctx, &row, pgLockByName, name); err != nil {
		safeRollback(ctx, tx, s.logger)
		return model.SubmitResult{}, fmt.Errorf("lock %q: %w", name, err)
	}
	if score <= row.Score {
		safeRollback(ctx, tx, s.logger)
		return model.SubmitResult{Entry: row.entry()}, nil
	}
	if _, err := tx.ExecContext(ctx, pgRaise, row.ID, score); err != nil {
		safeRollback(ctx, tx, s.logger)
		return model.SubmitResult{}, fmt.Errorf("raise %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return model.SubmitResult{}, fmt.Errorf("commit raise: %w", err)
	}
	row.Score = score
	return model.SubmitResult{Entry: row.entry(), Updated: true}, nil
}

// safeRollback rolls back tx, logging failures other than an already
// finished transaction.
func safeRollback(ctx context.Context, tx *sqlx.Tx, l logger.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		l.Warn(ctx, "rollback failed", logger.Error(err))
	}
}

// TopN implements Store.TopN.
func (s *PostgresStore) TopN(ctx context.Context, limit int) ([]model.ScoreEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency(BackendPostgres, "top_n", float64(time.Since(start).Microseconds())/1000)
	}()

	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	var rows []scoreRow
	if err := s.db.SelectContext(ctx, &rows, pgTopN, limit); err != nil {
		metrics.RecordStorageError(BackendPostgres, "top_n")
		return nil, storageErr("top_n", err)
	}
	return rowsToEntries(rows), nil
}

// Count implements Store.Count.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, pgCount); err != nil {
		metrics.RecordStorageError(BackendPostgres, "count")
		return 0, storageErr("count", err)
	}
	return n, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
