// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/hiscore/internal/domain/broadcast"
	"github.com/okian/hiscore/internal/domain/model"
	"github.com/okian/hiscore/internal/domain/types"
	"github.com/okian/hiscore/pkg/logger"
)

const defaultStreamWriteTimeout = 10 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreDependencies
	LeaderboardDependencies
	StreamDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoreHandler       *ScoreHandler
	leaderboardHandler *LeaderboardHandler
	streamHandler      *StreamHandler
}

// Option applies a configuration option to the Server.
type Option func(*serverSettings)

type serverSettings struct {
	logger       logger.Logger
	writeTimeout time.Duration
}

// WithLogger sets the logger used by the stream handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *serverSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStreamWriteTimeout bounds each write to a live-view client.
func WithStreamWriteTimeout(d time.Duration) Option {
	return func(s *serverSettings) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &serverSettings{logger: logger.Nop(), writeTimeout: defaultStreamWriteTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		scoreHandler:       NewScoreHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		streamHandler:      NewStreamHandler(deps, s.logger, s.writeTimeout),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/score", MetricsMiddleware(s.scoreHandler.HandlePostScore, "score"))
	mux.HandleFunc("/api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/api/leaderboard/stream", MetricsMiddleware(s.streamHandler.HandleSSE, "stream"))
	mux.HandleFunc("/api/leaderboard/ws", MetricsMiddleware(s.streamHandler.HandleWebSocket, "ws"))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeDomainError maps domain error kinds onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", Wrap(op, err))
	case errors.Is(err, model.ErrStorageFailure):
		writeError(w, http.StatusInternalServerError, "storage_failure", NewKind(op, model.ErrStorageFailure))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, errors.New("internal error")))
	}
}

// StreamDependencies is the observer registry seen by the live-view routes.
type StreamDependencies interface {
	Register(ctx context.Context) (*broadcast.Observer, error)
	Unregister(id string)
}
