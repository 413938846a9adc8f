package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/hiscore/internal/domain/model"
	"github.com/okian/hiscore/pkg/metrics"
)

// Observer is one registered live-view client.
//
// Its mailbox holds at most one snapshot. A new offer replaces an unread
// one, so a slow consumer skips intermediate views instead of queuing them,
// and offers carrying an older sequence than the last one are dropped.
type Observer struct {
	id      string
	mailbox chan Snapshot

	mu      sync.Mutex
	lastSeq uint64

	ctx    context.Context
	cancel context.CancelFunc
}

func newObserver(id string) *Observer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Observer{
		id:      id,
		mailbox: make(chan Snapshot, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ID returns the registry key of the observer.
func (o *Observer) ID() string { return o.id }

// Updates yields the latest undelivered snapshot.
func (o *Observer) Updates() <-chan Snapshot { return o.mailbox }

// Done is closed once the observer is unregistered.
func (o *Observer) Done() <-chan struct{} { return o.ctx.Done() }

// offer stores s unless a fresher or equal snapshot was already offered.
// It never blocks.
func (o *Observer) offer(s Snapshot) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctx.Err() != nil || s.Seq <= o.lastSeq {
		return false
	}
	o.lastSeq = s.Seq

	select {
	case <-o.mailbox:
		metrics.RecordMailboxReplaced()
	default:
	}
	// Only offer writes, under mu, so the slot is free here.
	o.mailbox <- s
	return true
}

// Stream hands each snapshot to send until ctx ends, the observer is
// unregistered, or send fails. A send failure is returned wrapped in
// model.ErrObserverDelivery.
func (o *Observer) Stream(ctx context.Context, send func(Snapshot) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.Done():
			return nil
		case s := <-o.mailbox:
			if err := send(s); err != nil {
				return fmt.Errorf("%w: observer %s: %w", model.ErrObserverDelivery, o.id, err)
			}
		}
	}
}
