package repository

import (
	"time"

	"github.com/okian/hiscore/pkg/logger"
)

const defaultSQLitePath = "data.sqlite"

type settings struct {
	sqlitePath   string
	postgresDSN  string
	maxOpenConns int
	now          func() time.Time
	logger       logger.Logger
}

func newSettings(opts ...Option) *settings {
	s := &settings{
		sqlitePath:   defaultSQLitePath,
		maxOpenConns: 10,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	return s
}

// Option applies a configuration option to a store.
type Option func(*settings)

// WithSQLitePath sets the database file of the sqlite backend.
func WithSQLitePath(path string) Option {
	return func(s *settings) {
		if path != "" {
			s.sqlitePath = path
		}
	}
}

// WithPostgresDSN sets the connection string of the postgres backend.
func WithPostgresDSN(dsn string) Option {
	return func(s *settings) {
		s.postgresDSN = dsn
	}
}

// WithMaxOpenConns bounds the SQL connection pool.
func WithMaxOpenConns(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
