package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/hiscore/internal/app"
	"github.com/okian/hiscore/internal/domain/model"
	"github.com/okian/hiscore/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type failingStore struct {
	upserts int
}

func (f *failingStore) UpsertMax(ctx context.Context, name string, score int64) (model.SubmitResult, error) {
	f.upserts++
	return model.SubmitResult{}, errors.Join(model.ErrStorageFailure, errors.New("disk on fire"))
}

func (f *failingStore) TopN(ctx context.Context, limit int) ([]model.ScoreEntry, error) {
	return nil, errors.Join(model.ErrStorageFailure, errors.New("disk on fire"))
}

func (f *failingStore) Count(ctx context.Context) (int, error) { return 0, nil }
func (f *failingStore) Close() error                           { return nil }

func startedService(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible limits", func() {
			So(svc.ClampLimit(0), ShouldEqual, 10)
			So(svc.ClampLimit(-3), ShouldEqual, 10)
			So(svc.ClampLimit(7), ShouldEqual, 7)
			So(svc.ClampLimit(1000), ShouldEqual, 100)
			So(svc.MaxLimit(), ShouldEqual, 100)
		})
	})

	Convey("Given a default limit above the maximum", t, func() {
		svc := service.New(service.WithDefaultLimit(50), service.WithMaxLimit(20))

		Convey("Then the default is capped", func() {
			So(svc.ClampLimit(0), ShouldEqual, 20)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When it is not started", func() {
			_, err := svc.Submit(context.Background(), "alice", 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When starting and stopping", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["backend"], ShouldEqual, "memory")
			So(stats["policy"], ShouldEqual, "interval")

			svc.Stop()
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a blank name is submitted", func() {
			_, err := svc.Submit(ctx, "   ", 5)

			Convey("Then it is rejected and nothing is stored", func() {
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldBeEmpty)
			})
		})

		Convey("When 5, 3 and 9 are submitted for A", func() {
			r1, err := svc.Submit(ctx, "A", 5)
			So(err, ShouldBeNil)
			So(r1.Updated, ShouldBeTrue)
			r2, err := svc.Submit(ctx, "A", 3)
			So(err, ShouldBeNil)
			So(r2.Updated, ShouldBeFalse)
			So(r2.Entry.Score, ShouldEqual, 5)
			r3, err := svc.Submit(ctx, "A", 9)
			So(err, ShouldBeNil)
			So(r3.Entry.Score, ShouldEqual, 9)

			Convey("Then A holds 9", func() {
				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)
				So(top[0].Name, ShouldEqual, "A")
				So(top[0].Score, ShouldEqual, 9)
			})
		})

		Convey("When names differ only by case", func() {
			_, err := svc.Submit(ctx, "bob", 1)
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, "Bob", 2)
			So(err, ShouldBeNil)

			Convey("Then they are distinct entries", func() {
				So(svc.GetStats()["players"], ShouldEqual, 2)
			})
		})

		Convey("When negative scores are submitted", func() {
			_, err := svc.Submit(ctx, "neg", -5)
			So(err, ShouldBeNil)
			res, err := svc.Submit(ctx, "neg", -1)
			So(err, ShouldBeNil)
			So(res.Entry.Score, ShouldEqual, -1)
		})
	})

	Convey("Given a service over a failing store", t, func() {
		store := &failingStore{}
		svc := startedService(service.WithStore(store, "broken"))
		defer svc.Stop()

		Convey("When a score is submitted", func() {
			_, err := svc.Submit(context.Background(), "alice", 1)

			Convey("Then the storage failure is surfaced", func() {
				So(errors.Is(err, model.ErrStorageFailure), ShouldBeTrue)
				So(store.upserts, ShouldEqual, 1)
			})
		})

		Convey("When the name is invalid", func() {
			_, err := svc.Submit(context.Background(), "", 1)

			Convey("Then the store is never touched", func() {
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
				So(store.upserts, ShouldEqual, 0)
			})
		})

		Convey("When the leaderboard is read", func() {
			_, err := svc.TopN(context.Background(), 5)
			So(errors.Is(err, model.ErrStorageFailure), ShouldBeTrue)
		})
	})
}

func TestService_TopN(t *testing.T) {
	Convey("Given a service with several players", t, func() {
		svc := startedService(service.WithMaxLimit(3))
		defer svc.Stop()
		ctx := context.Background()
		for i, name := range []string{"a", "b", "c", "d", "e"} {
			_, err := svc.Submit(ctx, name, int64(i))
			So(err, ShouldBeNil)
		}

		Convey("Then requests above the maximum are clamped", func() {
			top, err := svc.TopN(ctx, 50)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 3)
			So(top[0].Name, ShouldEqual, "e")
		})

		Convey("Then entries carry their creation time", func() {
			top, err := svc.TopN(ctx, 1)
			So(err, ShouldBeNil)
			So(top[0].CreatedAt.IsZero(), ShouldBeFalse)
			So(time.Since(top[0].CreatedAt), ShouldBeLessThan, time.Minute)
		})
	})
}
