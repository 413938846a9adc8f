// Package config defines service configuration structures and loading hooks.
//
// Values are layered: defaults from New, then an optional YAML file named by
// HISCORE_CONFIG, then HISCORE_* environment variables.
package config

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Accepted values for the enumerated settings.
var (
	StorageBackends   = []string{"memory", "sqlite", "postgres"}
	BroadcastPolicies = []string{"interval", "event"}
	LogFormats        = []string{"text", "json"}
	LogLevels         = []string{"debug", "info", "warn", "warning", "error"}
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":4000".
	Addr string `koanf:"addr"`

	// StorageBackend selects the score store: memory, sqlite or postgres.
	StorageBackend string `koanf:"storage_backend"`

	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// PostgresDSN is the connection string of the postgres backend. When
	// empty, DATABASE_URL is used.
	PostgresDSN string `koanf:"postgres_dsn"`

	// DefaultLimit is the leaderboard size when none is requested; it is
	// also the size of streamed snapshots.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLeaderboardLimit caps GET /api/leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// BroadcastPolicy selects when live views are pushed: interval or event.
	BroadcastPolicy string `koanf:"broadcast_policy"`

	// BroadcastIntervalMS is the push period of the interval policy.
	BroadcastIntervalMS int `koanf:"broadcast_interval_ms"`

	// QueueSize bounds the change queue of the event policy.
	QueueSize int `koanf:"queue_size"`

	// StreamWriteTimeoutMS bounds each write to a live-view client.
	StreamWriteTimeoutMS int `koanf:"stream_write_timeout_ms"`

	// MetricsEnabled turns prometheus collection on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshMS is the period of the runtime and service gauge refresh.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":4000",
		StorageBackend:       "memory",
		SQLitePath:           "data.sqlite",
		DefaultLimit:         10,
		MaxLeaderboardLimit:  100,
		BroadcastPolicy:      "interval",
		BroadcastIntervalMS:  3000,
		QueueSize:            1024,
		StreamWriteTimeoutMS: 10_000,
		MetricsEnabled:       true,
		MetricsRefreshMS:     10_000,
	}
}

// BroadcastInterval returns BroadcastIntervalMS as a duration.
func (c *Config) BroadcastInterval() time.Duration {
	return time.Duration(c.BroadcastIntervalMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// StreamWriteTimeout returns StreamWriteTimeoutMS as a duration.
func (c *Config) StreamWriteTimeout() time.Duration {
	return time.Duration(c.StreamWriteTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting as ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !oneOf(c.LogLevel, LogLevels):
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	case !oneOf(c.LogFormat, LogFormats):
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case !oneOf(c.StorageBackend, StorageBackends):
		return fmt.Errorf("%w: storage_backend %q", ErrInvalidConfig, c.StorageBackend)
	case c.StorageBackend == "sqlite" && c.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
	case !oneOf(c.BroadcastPolicy, BroadcastPolicies):
		return fmt.Errorf("%w: broadcast_policy %q", ErrInvalidConfig, c.BroadcastPolicy)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.DefaultLimit < 1 || c.DefaultLimit > c.MaxLeaderboardLimit:
		return fmt.Errorf("%w: default_limit must be within 1..%d", ErrInvalidConfig, c.MaxLeaderboardLimit)
	case c.BroadcastIntervalMS < 1:
		return fmt.Errorf("%w: broadcast_interval_ms must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.StreamWriteTimeoutMS < 1:
		return fmt.Errorf("%w: stream_write_timeout_ms must be positive", ErrInvalidConfig)
	case c.MetricsRefreshMS < 1:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	return slices.Contains(allowed, strings.ToLower(v))
}
