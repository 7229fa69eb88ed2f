package queue_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/youthperformance/xlens/internal/adapters/mq/queue"
)

func TestEnqueueDequeue(t *testing.T) {
	Convey("Given a bounded queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		ctx := context.Background()

		Convey("When tasks fit the capacity", func() {
			So(q.Enqueue(ctx, queue.Task{JumpID: "j1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Task{JumpID: "j2"}), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			Convey("Then an overflowing task is shed", func() {
				So(q.Enqueue(ctx, queue.Task{JumpID: "j3"}), ShouldBeFalse)
			})

			Convey("And dequeue delivers in order", func() {
				So(q.Close(), ShouldBeNil)
				var got []string
				for task := range q.Dequeue(ctx) {
					got = append(got, task.JumpID)
				}
				So(got, ShouldResemble, []string{"j1", "j2"})
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Task{JumpID: "j1"}), ShouldBeFalse)

			Convey("Then closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}

func TestDequeueCancellation(t *testing.T) {
	Convey("Given a consumer with a cancelled context", t, func() {
		q := queue.NewInMemoryQueue()
		ctx, cancel := context.WithCancel(context.Background())

		ch := q.Dequeue(ctx)
		cancel()
		So(q.Enqueue(context.Background(), queue.Task{JumpID: "j1"}), ShouldBeTrue)

		Convey("Then the dequeue channel closes promptly", func() {
			select {
			case _, ok := <-ch:
				So(ok, ShouldBeFalse)
			case <-time.After(time.Second):
				So("timed out", ShouldBeEmpty)
			}
		})
	})
}
