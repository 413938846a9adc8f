package loadgen

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hiscore/pkg/logger"
)

const progressInterval = time.Second

type submitCounts struct {
	submitted int64
	updated   int64
	unchanged int64
	failed    int64
}

// submitAll posts subs with cfg.Workers concurrent workers.
func submitAll(ctx context.Context, cfg Config, client *Client, subs []Submission) submitCounts {
	log := logger.Get()
	log.Info(ctx, "submitting scores",
		logger.Int("submissions", len(subs)),
		logger.Int("workers", cfg.Workers))

	var counts submitCounts
	var lastReport atomic.Int64
	lastReport.Store(time.Now().UnixNano())

	jobs := make(chan Submission, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				if ctx.Err() != nil {
					return
				}
				updated, err := client.Submit(ctx, s)
				atomic.AddInt64(&counts.submitted, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&counts.failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "submission failed", logger.String("name", s.Name), logger.Error(err))
					}
				case updated:
					atomic.AddInt64(&counts.updated, 1)
				default:
					atomic.AddInt64(&counts.unchanged, 1)
				}

				last := lastReport.Load()
				if time.Since(time.Unix(0, last)) >= progressInterval &&
					lastReport.CompareAndSwap(last, time.Now().UnixNano()) {
					log.Info(ctx, "progress",
						logger.Int64("submitted", atomic.LoadInt64(&counts.submitted)),
						logger.Int("total", len(subs)),
						logger.Int64("failed", atomic.LoadInt64(&counts.failed)))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, s := range subs {
			select {
			case <-ctx.Done():
				return
			case jobs <- s:
			}
		}
	}()

	wg.Wait()

	log.Info(ctx, "submission completed",
		logger.Int64("updated", counts.updated),
		logger.Int64("unchanged", counts.unchanged),
		logger.Int64("failed", counts.failed))
	return counts
}
