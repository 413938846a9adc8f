package loadgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/hiscore/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o640
)

// Run executes a complete load run against cfg.BaseURL. The returned report
// is populated even when verification fails.
func Run(ctx context.Context, config *Config) (*Report, error) {
	cfg := config.withDefaults()
	log := logger.Get()
	report := &Report{
		BaseURL:   cfg.BaseURL,
		Players:   cfg.Players,
		StartTime: time.Now(),
	}

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("submissions", cfg.Submissions),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("topN", cfg.TopN))

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return report, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and submit
	subs, expected := generateSubmissions(ctx, cfg)
	counts := submitAll(ctx, cfg, client, subs)
	report.Submitted = int(counts.submitted)
	report.Updated = int(counts.updated)
	report.Unchanged = int(counts.unchanged)
	report.Failed = int(counts.failed)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("submission interrupted: %w", err)
	}

	// Step 3: Leaderboard
	board, err := client.Leaderboard(ctx, cfg.TopN)
	if err != nil {
		return report, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	report.Leaderboard = board
	report.Mismatches = verifyLeaderboard(board, expected, cfg.TopN)

	// Step 4: Stream
	if cfg.CheckStream {
		sctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		first, err := client.FirstStreamSnapshot(sctx)
		cancel()
		if err != nil {
			report.Mismatches = append(report.Mismatches, fmt.Sprintf("stream: %v", err))
		} else {
			report.StreamSeen = true
			if len(first) > 0 && len(board) > 0 && first[0].Score != board[0].Score {
				report.Mismatches = append(report.Mismatches,
					fmt.Sprintf("stream top score %d, leaderboard top score %d", first[0].Score, board[0].Score))
			}
		}
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	if secs := report.Duration.Seconds(); secs > 0 {
		report.Throughput = float64(report.Submitted) / secs
	}

	if cfg.ReportFile != "" {
		if err := SaveReport(report, cfg.ReportFile); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		} else {
			log.Info(ctx, "report saved", logger.String("file", cfg.ReportFile))
		}
	}

	log.Info(ctx, "load run finished",
		logger.Int("submitted", report.Submitted),
		logger.Int("failed", report.Failed),
		logger.Int("mismatches", len(report.Mismatches)),
		logger.Duration("duration", report.Duration),
		logger.Float64("throughput", report.Throughput))

	if len(report.Mismatches) > 0 {
		for _, m := range report.Mismatches {
			log.Warn(ctx, "mismatch", logger.String("detail", m))
		}
		return report, fmt.Errorf("%w: %d mismatches", ErrVerification, len(report.Mismatches))
	}
	return report, nil
}

// SaveReport writes r as YAML, creating parent directories as needed.
func SaveReport(r *Report, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(path, data, filePermission)
}
