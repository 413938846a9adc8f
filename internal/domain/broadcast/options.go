package broadcast

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/hiscore/pkg/logger"
)

// Policy selects when observers receive snapshots.
type Policy string

const (
	// PolicyInterval pushes a snapshot to each observer on a fixed period.
	PolicyInterval Policy = "interval"
	// PolicyEvent pushes a snapshot after each committed score change.
	PolicyEvent Policy = "event"
)

const (
	defaultInterval = 3 * time.Second
	defaultLimit    = 10
)

// ParsePolicy maps a config value to a Policy. Empty means interval.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyInterval:
		return PolicyInterval, nil
	case PolicyEvent:
		return PolicyEvent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Option applies a configuration option to the Broadcaster.
type Option func(*Broadcaster)

// WithPolicy sets the delivery policy.
func WithPolicy(p Policy) Option {
	return func(b *Broadcaster) {
		if p != "" {
			b.policy = p
		}
	}
}

// WithInterval sets the push period of the interval policy.
func WithInterval(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithLimit sets how many entries a snapshot carries.
func WithLimit(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.limit = n
		}
	}
}

// WithLogger sets the broadcaster logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Broadcaster) {
		if l != nil {
			b.logger = l
		}
	}
}
