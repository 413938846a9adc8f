package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/hiscore/pkg/logger"
)

// randInt returns a uniform integer in [0, n) using crypto/rand.
func randInt(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}

// playerNames returns count unique names.
func playerNames(count int) []string {
	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("player-%d-%s", i, uuid.NewString()[:8])
	}
	return names
}

// generateSubmissions spreads cfg.Submissions over the players and returns
// them with the highest score expected per name.
func generateSubmissions(ctx context.Context, cfg Config) ([]Submission, map[string]int64) {
	logger.Get().Info(ctx, "generating submissions",
		logger.Int("players", cfg.Players),
		logger.Int("submissions", cfg.Submissions))

	names := playerNames(cfg.Players)
	subs := make([]Submission, cfg.Submissions)
	expected := make(map[string]int64, cfg.Players)
	for i := range subs {
		// Every player is submitted at least once when Submissions >= Players.
		name := names[i%len(names)]
		score := randInt(cfg.MaxScore)
		subs[i] = Submission{Name: name, Score: score}
		if cur, ok := expected[name]; !ok || score > cur {
			expected[name] = score
		}
	}
	return subs, expected
}
