// Package broadcast keeps the registry of live leaderboard observers and
// pushes top-N snapshots to them.
//
// Two policies exist. Interval gives every observer its own ticker that
// re-reads the ranking each period. Event re-reads once per Publish call
// and offers the result to everyone. Either way delivery goes through the
// observer mailbox and never blocks the caller.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hiscore/internal/domain/model"
	"github.com/okian/hiscore/pkg/logger"
	"github.com/okian/hiscore/pkg/metrics"
)

// Source answers top-N reads.
type Source interface {
	TopN(ctx context.Context, limit int) ([]model.ScoreEntry, error)
}

// Snapshot is one materialized top-N view. Seq grows with every read, so a
// higher Seq is never older data.
type Snapshot struct {
	Seq     uint64
	At      time.Time
	Entries []model.ScoreEntry
}

// Broadcaster is the observer registry.
type Broadcaster struct {
	source   Source
	policy   Policy
	interval time.Duration
	limit    int
	logger   logger.Logger

	snapMu sync.Mutex
	seq    uint64

	mu        sync.RWMutex
	observers map[string]*Observer
	closed    bool
	wg        sync.WaitGroup
}

// New creates a broadcaster reading snapshots from source.
func New(source Source, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		source:    source,
		policy:    PolicyInterval,
		interval:  defaultInterval,
		limit:     defaultLimit,
		logger:    logger.Nop(),
		observers: make(map[string]*Observer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Policy returns the delivery policy in use.
func (b *Broadcaster) Policy() Policy { return b.policy }

// Snapshot reads the current top-N and stamps it with the next sequence
// number. Read and stamp happen under one lock.
func (b *Broadcaster) Snapshot(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	b.snapMu.Lock()
	defer b.snapMu.Unlock()

	entries, err := b.source.TopN(ctx, b.limit)
	if err != nil {
		return Snapshot{}, err
	}
	b.seq++
	s := Snapshot{Seq: b.seq, At: time.Now(), Entries: entries}
	metrics.RecordSnapshot(string(b.policy), float64(time.Since(start).Microseconds())/1000)
	return s, nil
}

// Register adds an observer whose mailbox already holds a fresh snapshot.
// The observer joins the registry before its first read, so a Publish racing
// with Register is either seen by that read or delivered to the observer.
// Under the interval policy the observer's ticker starts here.
func (b *Broadcaster) Register(ctx context.Context) (*Observer, error) {
	o := newObserver(uuid.NewString())

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		o.cancel()
		return nil, ErrClosed
	}
	b.observers[o.id] = o
	b.mu.Unlock()
	metrics.RecordObserverRegistered()

	snap, err := b.Snapshot(ctx)
	if err != nil {
		b.Unregister(o.id)
		return nil, err
	}
	o.offer(snap)

	b.mu.Lock()
	if _, ok := b.observers[o.id]; !ok {
		// Closed or unregistered while the first read ran.
		b.mu.Unlock()
		o.cancel()
		return nil, ErrClosed
	}
	count := len(b.observers)
	if b.policy == PolicyInterval {
		b.wg.Add(1)
		go b.tick(o)
	}
	b.mu.Unlock()

	metrics.UpdateObserversActive(count)
	b.logger.Debug(ctx, "observer registered", logger.String("observer", o.id), logger.Int("observers", count))
	return o, nil
}

// Unregister removes the observer and cancels its ticker. Nothing is offered
// to the observer once Unregister returns. Unknown ids are ignored.
func (b *Broadcaster) Unregister(id string) {
	b.mu.Lock()
	o, ok := b.observers[id]
	if ok {
		delete(b.observers, id)
	}
	count := len(b.observers)
	b.mu.Unlock()
	if !ok {
		return
	}

	o.cancel()
	metrics.RecordObserverUnregistered()
	metrics.UpdateObserversActive(count)
	b.logger.Debug(context.Background(), "observer unregistered", logger.String("observer", id), logger.Int("observers", count))
}

// Publish takes one snapshot and offers it to every observer.
func (b *Broadcaster) Publish(ctx context.Context) error {
	if b.isClosed() {
		return ErrClosed
	}
	snap, err := b.Snapshot(ctx)
	if err != nil {
		return err
	}

	b.mu.RLock()
	targets := make([]*Observer, 0, len(b.observers))
	for _, o := range b.observers {
		targets = append(targets, o)
	}
	b.mu.RUnlock()

	for _, o := range targets {
		o.offer(snap)
	}
	return nil
}

// Count returns the number of registered observers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Close unregisters every observer and waits for their tickers to stop.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	all := b.observers
	b.observers = make(map[string]*Observer)
	b.mu.Unlock()

	for _, o := range all {
		o.cancel()
		metrics.RecordObserverUnregistered()
	}
	metrics.UpdateObserversActive(0)
	b.wg.Wait()
}

func (b *Broadcaster) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func (b *Broadcaster) tick(o *Observer) {
	defer b.wg.Done()

	t := time.NewTicker(b.interval)
	defer t.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-t.C:
			snap, err := b.Snapshot(o.ctx)
			if err != nil {
				if o.ctx.Err() != nil {
					return
				}
				b.logger.Warn(o.ctx, "snapshot failed", logger.String("observer", o.id), logger.Error(err))
				continue
			}
			o.offer(snap)
		}
	}
}
