package loadgen

import (
	"fmt"
	"sort"
)

// expectedTop returns the top n names by expected score. Ties are left in
// name order since the service breaks them by arrival, which is not known here.
func expectedTop(expected map[string]int64, n int) []Entry {
	out := make([]Entry, 0, len(expected))
	for name, score := range expected {
		out = append(out, Entry{Name: name, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// verifyLeaderboard checks a fetched leaderboard against the highest score
// submitted per name. It assumes the run's players were the only writers.
func verifyLeaderboard(board []Entry, expected map[string]int64, n int) []string {
	var problems []string

	want := expectedTop(expected, n)
	if len(board) != len(want) {
		problems = append(problems, fmt.Sprintf("leaderboard has %d entries, expected %d", len(board), len(want)))
	}

	seen := make(map[string]bool, len(board))
	for i, e := range board {
		if i > 0 && e.Score > board[i-1].Score {
			problems = append(problems, fmt.Sprintf("entry %d (%d) ranks above entry %d (%d)", i, e.Score, i-1, board[i-1].Score))
		}
		if seen[e.Name] {
			problems = append(problems, fmt.Sprintf("name %q listed twice", e.Name))
		}
		seen[e.Name] = true

		best, ok := expected[e.Name]
		if !ok {
			problems = append(problems, fmt.Sprintf("unexpected name %q", e.Name))
			continue
		}
		if e.Score != best {
			problems = append(problems, fmt.Sprintf("%q has score %d, expected %d", e.Name, e.Score, best))
		}
	}

	// Position by position the scores must match even when tied names swap.
	for i := 0; i < len(board) && i < len(want); i++ {
		if board[i].Score != want[i].Score {
			problems = append(problems, fmt.Sprintf("rank %d score %d, expected %d", i+1, board[i].Score, want[i].Score))
		}
	}
	return problems
}
