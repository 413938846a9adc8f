// Package loadgen drives a running leaderboard service with concurrent
// submissions and verifies the resulting ranking over HTTP.
package loadgen

import "time"

// Defaults used when a Config field is left zero.
const (
	DefaultBaseURL     = "http://localhost:4000"
	DefaultPlayers     = 100
	DefaultSubmissions = 1000
	DefaultWorkers     = 16
	DefaultTimeout     = 10 * time.Second
	DefaultTopN        = 10
	DefaultMaxScore    = 100000
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Players     int           // Number of distinct player names
	Submissions int           // Total score submissions across all players
	Workers     int           // Number of concurrent submitters
	Timeout     time.Duration // HTTP request timeout
	TopN        int           // Leaderboard size to verify
	MaxScore    int64         // Upper bound (exclusive) of generated scores
	CheckStream bool          // Read the first SSE snapshot as well
	ReportFile  string        // YAML report destination, empty to skip
	Verbose     bool          // Log every failed request
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Players <= 0 {
		out.Players = DefaultPlayers
	}
	if out.Submissions <= 0 {
		out.Submissions = DefaultSubmissions
	}
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.TopN <= 0 {
		out.TopN = DefaultTopN
	}
	if out.MaxScore <= 0 {
		out.MaxScore = DefaultMaxScore
	}
	return out
}

// Submission is one POST /api/score body.
type Submission struct {
	Name  string `json:"name"`
	Score int64  `json:"score"`
}

// Entry is one leaderboard row as returned by the service.
type Entry struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Score int64  `json:"score" yaml:"score"`
}

// Report summarizes a load run. It is written as YAML when ReportFile is set.
type Report struct {
	BaseURL     string        `yaml:"base_url"`
	Players     int           `yaml:"players"`
	Submitted   int           `yaml:"submitted"`
	Updated     int           `yaml:"updated"`
	Unchanged   int           `yaml:"unchanged"`
	Failed      int           `yaml:"failed"`
	Leaderboard []Entry       `yaml:"leaderboard"`
	StreamSeen  bool          `yaml:"stream_seen"`
	Mismatches  []string      `yaml:"mismatches,omitempty"`
	StartTime   time.Time     `yaml:"start_time"`
	EndTime     time.Time     `yaml:"end_time"`
	Duration    time.Duration `yaml:"duration"`
	Throughput  float64       `yaml:"throughput_per_sec"`
}

// OK reports whether the run saw no failures and no ranking mismatches.
func (r *Report) OK() bool {
	return r.Failed == 0 && len(r.Mismatches) == 0
}
