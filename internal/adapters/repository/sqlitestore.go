package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/hiscore/internal/domain/model"
	"github.com/okian/hiscore/pkg/logger"
	"github.com/okian/hiscore/pkg/metrics"
)

// SQLiteStore keeps the scores table in a single database file.
//
// SQLite admits one writer at a time, so writes are serialized in-process
// and each merge runs read-compare-write inside one transaction. Every
// commit is fsynced (synchronous=FULL) before UpsertMax returns.
type SQLiteStore struct {
	db      *gorm.DB
	path    string
	writeMu sync.Mutex
	now     func() time.Time
	logger  logger.Logger
}

// NewSQLiteStore opens (creating if needed) the database file at path and
// ensures the scores table exists.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := newSettings(append([]Option{WithSQLitePath(path)}, opts...)...)

	db, err := gorm.Open(sqlite.Open(sqliteDSN(s.sqlitePath)), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: s.now,
	})
	if err != nil {
		return nil, storageErr("open sqlite", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, storageErr("open sqlite", err)
	}
	sqlDB.SetMaxOpenConns(s.maxOpenConns)

	if err := foldLegacySQLite(db.WithContext(ctx)); err != nil {
		_ = sqlDB.Close()
		return nil, storageErr("upgrade sqlite", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&scoreRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, storageErr("migrate sqlite", err)
	}

	s.logger.Info(ctx, "sqlite store ready", logger.String("path", s.sqlitePath))
	return &SQLiteStore{db: db, path: s.sqlitePath, now: s.now, logger: s.logger}, nil
}

// Files written before names were unique may hold several rows per name.
// Each name keeps its best row (highest score, then lowest id) so the
// unique index can be built.
const (
	sqliteFillCreatedAt = `UPDATE scores SET created_at = CURRENT_TIMESTAMP WHERE created_at IS NULL`
	sqliteFoldNames     = `DELETE FROM scores WHERE EXISTS (
		SELECT 1 FROM scores b
		WHERE b.name = scores.name
		  AND (b.score > scores.score OR (b.score = scores.score AND b.id < scores.id)))`
)

func foldLegacySQLite(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(&scoreRow{}) || m.HasIndex(&scoreRow{}, "idx_scores_name") {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(sqliteFillCreatedAt).Error; err != nil {
			return err
		}
		return tx.Exec(sqliteFoldNames).Error
	})
}

func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(FULL)")
	return fmt.Sprintf("file:%s?%s", path, q.Encode())
}

// UpsertMax implements Store.UpsertMax.
func (s *SQLiteStore) UpsertMax(ctx context.Context, name string, score int64) (model.SubmitResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency(BackendSQLite, "upsert", float64(time.Since(start).Microseconds())/1000)
	}()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var res model.SubmitResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row scoreRow
		err := tx.Where("name = ?", name).Take(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = scoreRow{Name: name, Score: score, CreatedAt: s.now()}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			res = model.SubmitResult{Entry: row.entry(), Created: true, Updated: true}
			return nil
		case err != nil:
			return err
		}

		if score <= row.Score {
			res = model.SubmitResult{Entry: row.entry()}
			return nil
		}
		if err := tx.Model(&row).Update("score", score).Error; err != nil {
			return err
		}
		row.Score = score
		res = model.SubmitResult{Entry: row.entry(), Updated: true}
		return nil
	})
	if err != nil {
		metrics.RecordStorageError(BackendSQLite, "upsert")
		return model.SubmitResult{}, storageErr("upsert", err)
	}

	if res.Created {
		if n, err := s.Count(ctx); err == nil {
			metrics.UpdateTotalPlayers(n)
		}
	}
	return res, nil
}

// TopN implements Store.TopN.
func (s *SQLiteStore) TopN(ctx context.Context, limit int) ([]model.ScoreEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency(BackendSQLite, "top_n", float64(time.Since(start).Microseconds())/1000)
	}()

	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	var rows []scoreRow
	err := s.db.WithContext(ctx).
		Order("score DESC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		metrics.RecordStorageError(BackendSQLite, "top_n")
		return nil, storageErr("top_n", err)
	}
	return rowsToEntries(rows), nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&scoreRow{}).Count(&n).Error; err != nil {
		metrics.RecordStorageError(BackendSQLite, "count")
		return 0, storageErr("count", err)
	}
	return int(n), nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
