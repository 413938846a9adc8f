// Package worker runs the dispatcher that turns score changes into
// leaderboard snapshots.
package worker

import (
	"context"
	"fmt"

	"github.com/okian/hiscore/internal/adapters/mq/queue"
	"github.com/okian/hiscore/pkg/logger"
)

// Queue defines how the dispatcher receives changes.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Change
}

// Publisher pushes a fresh snapshot to every registered observer.
type Publisher interface {
	Publish(ctx context.Context) error
}

// Dispatcher drains the change queue and publishes one snapshot per batch.
//
// Changes that are already pending when a batch starts are folded into it,
// since every snapshot re-reads the full ranking. A single dispatcher keeps
// publishes ordered.
type Dispatcher struct {
	queue     Queue
	publisher Publisher
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher reading q and publishing through p.
func NewDispatcher(q Queue, p Publisher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:     q,
		publisher: p,
		name:      "dispatcher",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named(d.name)
	return d
}

// Run processes changes until ctx is canceled, Shutdown is called or the
// queue is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	changes := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			n := 1 + drain(changes)
			if err := d.publisher.Publish(ctx); err != nil {
				d.logger.Error(ctx, "publish failed",
					logger.String("name", c.Name),
					logger.Int("batch", n),
					logger.Error(err),
				)
				continue
			}
			d.logger.Debug(ctx, "published snapshot", logger.Int("batch", n))
		}
	}
}

// drain consumes every change that is ready without blocking.
func drain(changes <-chan queue.Change) int {
	n := 0
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

// Shutdown stops the dispatcher and waits for Run to return.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	select {
	case <-d.shutdown:
	default:
		close(d.shutdown)
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
