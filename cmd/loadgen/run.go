package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/hiscore/internal/loadgen"
	"github.com/okian/hiscore/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit scores and verify the leaderboard",
	Long: `Run a load test against a hiscore service.

The run will:
  - Check GET /healthz
  - POST the generated scores to /api/score from --workers goroutines
  - Fetch GET /api/leaderboard and compare it with the highest score sent per player
  - Optionally read the first snapshot from /api/leaderboard/stream

The service should not receive other writes during the run.`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("url", loadgen.DefaultBaseURL, "base URL of the service")
	f.Int("players", loadgen.DefaultPlayers, "number of distinct players")
	f.Int("submissions", loadgen.DefaultSubmissions, "total submissions")
	f.Int("workers", loadgen.DefaultWorkers, "concurrent submitters")
	f.Duration("timeout", loadgen.DefaultTimeout, "per-request timeout")
	f.Int("top", loadgen.DefaultTopN, "leaderboard size to verify")
	f.Int64("max-score", loadgen.DefaultMaxScore, "upper bound (exclusive) of generated scores")
	f.Bool("stream", false, "also check the first SSE snapshot")
	f.StringP("report", "o", "", "write a YAML report to this file")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.BoolP("verbose", "v", false, "log every failed request")
}

func runLoad(cmd *cobra.Command, args []string) error {
	if err := logger.InitWithWriter(cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	f := cmd.Flags()
	level, _ := f.GetString("log-level")
	if err := logger.SetLevelString(level); err != nil {
		return err
	}

	cfg := &loadgen.Config{}
	cfg.BaseURL, _ = f.GetString("url")
	cfg.Players, _ = f.GetInt("players")
	cfg.Submissions, _ = f.GetInt("submissions")
	cfg.Workers, _ = f.GetInt("workers")
	cfg.Timeout, _ = f.GetDuration("timeout")
	cfg.TopN, _ = f.GetInt("top")
	cfg.MaxScore, _ = f.GetInt64("max-score")
	cfg.CheckStream, _ = f.GetBool("stream")
	cfg.ReportFile, _ = f.GetString("report")
	cfg.Verbose, _ = f.GetBool("verbose")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := loadgen.Run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d submissions (%d updated, %d unchanged) in %s, %.0f/s\n",
		report.Submitted, report.Updated, report.Unchanged, report.Duration, report.Throughput)
	return nil
}

