// Package model holds the leaderboard domain types.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ScoreEntry is the best score recorded for a name.
//
// ID and CreatedAt are provenance: they only matter for breaking ties
// between equal scores, earlier entries ranking first.
type ScoreEntry struct {
	ID        int64
	Name      string
	Score     int64
	CreatedAt time.Time
}

// SubmitResult describes the outcome of a max-merge.
type SubmitResult struct {
	Entry ScoreEntry
	// Created is true when the name was seen for the first time.
	Created bool
	// Updated is true when the stored score changed (including creation).
	Updated bool
}

// ScoreChange announces a committed change to the top-N candidates.
type ScoreChange struct {
	Name  string
	Score int64
	At    time.Time
}

// ValidateName rejects empty or blank names. Names are case-sensitive and
// stored as given.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidInput)
	}
	return nil
}

// Ranks reports whether a ranks before b: higher score first, then the
// lower id. Every store assigns ids in creation order, so equal scores keep
// the earlier entry ahead regardless of timestamp resolution.
func Ranks(a, b ScoreEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}
