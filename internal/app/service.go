// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/hiscore/internal/adapters/mq/queue"
	"github.com/okian/hiscore/internal/adapters/mq/worker"
	"github.com/okian/hiscore/internal/adapters/repository"
	"github.com/okian/hiscore/internal/domain/broadcast"
	"github.com/okian/hiscore/internal/domain/model"
	"github.com/okian/hiscore/internal/domain/types"
	"github.com/okian/hiscore/pkg/logger"
	"github.com/okian/hiscore/pkg/metrics"
)

const (
	defaultQueueSize    = 1024
	defaultLimit        = 10
	defaultMaxLimit     = 100
	stopDispatchTimeout = 5 * time.Second
)

// ErrNotStarted is returned by operations that need a started service.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	store       repository.Store
	backend     string
	broadcaster *broadcast.Broadcaster
	changes     *queue.InMemoryQueue
	dispatcher  *worker.Dispatcher

	queueSize    int
	defaultLimit int
	maxLimit     int

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:    defaultQueueSize,
		defaultLimit: defaultLimit,
		maxLimit:     defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// Start initializes missing components and, under the event policy, starts
// the change dispatcher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.store == nil {
		s.store = repository.NewTreapStore(ctx, repository.WithLogger(s.logger.Named("store")))
		s.backend = repository.BackendMemory
	}
	if s.broadcaster == nil {
		s.broadcaster = broadcast.New(s.store,
			broadcast.WithLimit(s.defaultLimit),
			broadcast.WithLogger(s.logger.Named("broadcast")),
		)
	}

	if s.broadcaster.Policy() == broadcast.PolicyEvent {
		s.changes = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
		s.dispatcher = worker.NewDispatcher(s.changes, s.broadcaster, worker.WithLogger(s.logger))
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.cancel = cancel
		go s.dispatcher.Run(runCtx)
	}

	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateTotalPlayers(n)
	}

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.String("backend", s.backend),
		logger.String("policy", string(s.broadcaster.Policy())),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop shuts down the dispatcher, the observers and the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard service...")

	if s.changes != nil {
		_ = s.changes.Close()
	}
	if s.dispatcher != nil {
		sctx, cancel := context.WithTimeout(ctx, stopDispatchTimeout)
		if err := s.dispatcher.Shutdown(sctx); err != nil {
			s.logger.Warn(ctx, "dispatcher shutdown", logger.Error(err))
		}
		cancel()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.broadcaster.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Submit validates the input, then raises the stored score for name to at
// least score. The result carries the stored, possibly unchanged, score.
func (s *Service) Submit(ctx context.Context, name string, score int64) (model.SubmitResult, error) {
	if err := model.ValidateName(name); err != nil {
		metrics.RecordSubmission(metrics.ResultInvalid)
		return model.SubmitResult{}, err
	}
	if !s.isStarted() {
		return model.SubmitResult{}, ErrNotStarted
	}

	res, err := s.store.UpsertMax(ctx, name, score)
	if err != nil {
		metrics.RecordSubmission(metrics.ResultFailed)
		s.logger.Error(ctx, "submit failed", logger.String("name", name), logger.Error(err))
		return model.SubmitResult{}, err
	}

	switch {
	case res.Created:
		metrics.RecordSubmission(metrics.ResultCreated)
	case res.Updated:
		metrics.RecordSubmission(metrics.ResultImproved)
	default:
		metrics.RecordSubmission(metrics.ResultUnchanged)
	}
	s.logger.Info(ctx, "saved score",
		logger.String("name", res.Entry.Name),
		logger.Int64("score", res.Entry.Score),
		logger.Bool("updated", res.Updated),
	)

	if res.Updated && s.changes != nil {
		change := model.ScoreChange{Name: res.Entry.Name, Score: res.Entry.Score, At: time.Now()}
		if err := s.changes.Enqueue(ctx, change); err != nil {
			s.logger.Warn(ctx, "change notification dropped", logger.String("name", name), logger.Error(err))
		}
	}
	return res, nil
}

// ClampLimit maps a requested leaderboard size onto [1, max]; n <= 0 means
// the default.
func (s *Service) ClampLimit(n int) int {
	switch {
	case n <= 0:
		return s.defaultLimit
	case n > s.maxLimit:
		return s.maxLimit
	default:
		return n
	}
}

// MaxLimit returns the largest leaderboard size a caller may request.
func (s *Service) MaxLimit() int { return s.maxLimit }

// TopN returns the top n leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	entries, err := s.store.TopN(ctx, s.ClampLimit(n))
	if err != nil {
		return nil, err
	}
	return types.FromModels(entries), nil
}

// Register adds a live-view observer.
func (s *Service) Register(ctx context.Context) (*broadcast.Observer, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.broadcaster.Register(ctx)
}

// Unregister removes a live-view observer.
func (s *Service) Unregister(id string) {
	if !s.isStarted() {
		return
	}
	s.broadcaster.Unregister(id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"backend":      s.backend,
		"queueSize":    s.queueSize,
		"defaultLimit": s.defaultLimit,
		"maxLimit":     s.maxLimit,
	}
	if !s.started {
		return stats
	}

	stats["policy"] = string(s.broadcaster.Policy())
	stats["observers"] = s.broadcaster.Count()
	if s.changes != nil {
		stats["queueLength"] = s.changes.Len()
	}
	if n, err := s.store.Count(context.Background()); err == nil {
		stats["players"] = n
		metrics.UpdateTotalPlayers(n)
	}
	return stats
}
