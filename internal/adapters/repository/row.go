package repository

import (
	"time"

	"github.com/okian/hiscore/internal/domain/model"
)

// scoreRow maps the scores table for both SQL backends.
//
// Rows are ranked by score desc, id asc: ids are assigned in insertion
// order, so id order is creation order without depending on timestamp
// resolution.
type scoreRow struct {
	ID        int64     `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `db:"name" gorm:"column:name;type:text;not null;uniqueIndex:idx_scores_name"`
	Score     int64     `db:"score" gorm:"column:score;not null"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName pins the gorm table name.
func (scoreRow) TableName() string { return "scores" }

func (r scoreRow) entry() model.ScoreEntry {
	return model.ScoreEntry{ID: r.ID, Name: r.Name, Score: r.Score, CreatedAt: r.CreatedAt}
}

func rowsToEntries(rows []scoreRow) []model.ScoreEntry {
	out := make([]model.ScoreEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry()
	}
	return out
}
