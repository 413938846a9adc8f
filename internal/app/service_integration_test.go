package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/hiscore/internal/app"
	"github.com/okian/hiscore/internal/adapters/repository"
	"github.com/okian/hiscore/internal/domain/broadcast"
)

func nextSnapshot(o *broadcast.Observer, within time.Duration) (broadcast.Snapshot, bool) {
	select {
	case s := <-o.Updates():
		return s, true
	default:
	}
	select {
	case s := <-o.Updates():
		return s, true
	case <-time.After(within):
		return broadcast.Snapshot{}, false
	}
}

func TestServiceIntegration_EventPolicy(t *testing.T) {
	Convey("Given a service publishing on every change", t, func() {
		ctx := context.Background()
		store := repository.NewTreapStore(ctx)
		b := broadcast.New(store, broadcast.WithPolicy(broadcast.PolicyEvent))
		svc := startedService(service.WithStore(store, repository.BackendMemory), service.WithBroadcaster(b))
		defer svc.Stop()

		_, err := svc.Submit(ctx, "A", 10)
		So(err, ShouldBeNil)

		o, err := svc.Register(ctx)
		So(err, ShouldBeNil)
		defer svc.Unregister(o.ID())

		Convey("When an observer connects", func() {
			Convey("Then it immediately holds the current ranking", func() {
				s, ok := nextSnapshot(o, 0)
				So(ok, ShouldBeTrue)
				So(s.Entries, ShouldHaveLength, 1)
				So(s.Entries[0].Name, ShouldEqual, "A")
			})
		})

		Convey("When a submission changes the ranking", func() {
			first, ok := nextSnapshot(o, time.Second)
			So(ok, ShouldBeTrue)
			_, err := svc.Submit(ctx, "B", 20)
			So(err, ShouldBeNil)

			Convey("Then a newer snapshot with B on top arrives", func() {
				last := first
				for last.Entries[0].Name != "B" {
					s, ok := nextSnapshot(o, time.Second)
					So(ok, ShouldBeTrue)
					So(s.Seq, ShouldBeGreaterThan, last.Seq)
					last = s
				}
				So(last.Entries, ShouldHaveLength, 2)
				So(svc.GetStats()["observers"], ShouldEqual, 1)
			})
		})

		Convey("When an observer unregisters", func() {
			svc.Unregister(o.ID())

			Convey("Then the observer count drops to zero", func() {
				So(svc.GetStats()["observers"], ShouldEqual, 0)
			})
		})
	})
}

func TestServiceIntegration_ConcurrentSubmits(t *testing.T) {
	Convey("Given a service on a sqlite file", t, func() {
		ctx := context.Background()
		store, err := repository.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "scores.sqlite"))
		So(err, ShouldBeNil)
		svc := startedService(service.WithStore(store, repository.BackendSQLite))
		defer svc.Stop()

		Convey("When clients race on shared names", func() {
			var wg sync.WaitGroup
			for c := 0; c < 6; c++ {
				wg.Add(1)
				go func(c int) {
					defer wg.Done()
					for i := 0; i < 20; i++ {
						_, _ = svc.Submit(ctx, fmt.Sprintf("player-%d", i%4), int64(c*100+i))
					}
				}(c)
			}
			wg.Wait()

			Convey("Then each name keeps its maximum", func() {
				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 4)
				So(top[0].Name, ShouldEqual, "player-3")
				So(top[0].Score, ShouldEqual, 519)
				So(top[3].Name, ShouldEqual, "player-0")
				So(top[3].Score, ShouldEqual, 516)
			})
		})
	})
}
