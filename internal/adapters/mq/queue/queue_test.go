package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hiscore/internal/domain/model"
)

func change(name string, score int64) model.ScoreChange {
	return model.ScoreChange{Name: name, Score: score, At: time.Now()}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(2))

		Convey("When it is empty", func() {
			So(q.Len(), ShouldEqual, 0)
		})

		Convey("When changes are enqueued", func() {
			So(q.Enqueue(ctx, change("a", 1)), ShouldBeNil)
			So(q.Enqueue(ctx, change("b", 2)), ShouldBeNil)

			Convey("Then a third is refused without blocking", func() {
				So(errors.Is(q.Enqueue(ctx, change("c", 3)), ErrFull), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 2)
			})

			Convey("Then they are dequeued in order", func() {
				dctx, cancel := context.WithCancel(ctx)
				defer cancel()
				ch := q.Dequeue(dctx)
				So((<-ch).Name, ShouldEqual, "a")
				So((<-ch).Name, ShouldEqual, "b")
			})

			Convey("Then closing keeps pending changes readable", func() {
				So(q.Close(), ShouldBeNil)
				So(q.Close(), ShouldBeNil)
				So(errors.Is(q.Enqueue(ctx, change("c", 3)), ErrClosed), ShouldBeTrue)

				var got []string
				for c := range q.Dequeue(ctx) {
					got = append(got, c.Name)
				}
				So(got, ShouldResemble, []string{"a", "b"})
			})
		})

		Convey("When the enqueue context is done", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(errors.Is(q.Enqueue(cctx, change("a", 1)), context.Canceled), ShouldBeTrue)
		})

		Convey("When the dequeue context ends", func() {
			dctx, cancel := context.WithCancel(ctx)
			ch := q.Dequeue(dctx)
			cancel()

			Convey("Then the channel closes", func() {
				select {
				case _, ok := <-ch:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					So("dequeue channel still open", ShouldBeEmpty)
				}
			})
		})
	})
}
