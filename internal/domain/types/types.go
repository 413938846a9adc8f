// Package types contains the wire shapes shared by the HTTP and stream transports.
package types

import (
	"time"

	"github.com/okian/hiscore/internal/domain/model"
)

// Entry is one leaderboard row as serialized to clients.
type Entry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// FromModel converts a domain entry to its wire shape.
func FromModel(e model.ScoreEntry) Entry {
	return Entry{ID: e.ID, Name: e.Name, Score: e.Score, CreatedAt: e.CreatedAt.UTC()}
}

// FromModels converts a ranked slice, never returning nil so it encodes as [].
func FromModels(entries []model.ScoreEntry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = FromModel(e)
	}
	return out
}
