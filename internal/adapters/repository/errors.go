package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrInvalidLimit   = errors.New("invalid leaderboard limit")
	ErrClosed         = errors.New("store closed")
	ErrUnknownBackend = errors.New("unknown storage backend")
)
