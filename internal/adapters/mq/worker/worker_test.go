package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/youthperformance/xlens/internal/adapters/mq/queue"
	"github.com/youthperformance/xlens/internal/adapters/mq/worker"
)

type fakeProcessor struct {
	mu        sync.Mutex
	failures  int // number of initial attempts that fail
	processed []worker.Task
	abandoned []worker.Task
}

func (p *fakeProcessor) Process(_ context.Context, t worker.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, t)
	if len(p.processed) <= p.failures {
		return errors.New("transient analysis failure")
	}
	return nil
}

func (p *fakeProcessor) Abandon(_ context.Context, t worker.Task, _ error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abandoned = append(p.abandoned, t)
}

func (p *fakeProcessor) counts() (processed, abandoned int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.processed), len(p.abandoned)
}

func eventually(check func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestWorkerProcessing(t *testing.T) {
	Convey("Given a worker over a queue", t, func() {
		q := queue.NewInMemoryQueue()
		ctx, cancel := context.WithCancel(context.Background())
		Reset(cancel)

		Convey("When a task succeeds first try", func() {
			p := &fakeProcessor{}
			w := worker.NewMeasureWorker(q, p, q, worker.WithBackoffBase(time.Millisecond))
			go w.Run(ctx)

			So(q.Enqueue(ctx, worker.Task{JumpID: "j1"}), ShouldBeTrue)

			So(eventually(func() bool {
				done, _ := p.counts()
				return done == 1
			}), ShouldBeTrue)
			_, abandoned := p.counts()
			So(abandoned, ShouldEqual, 0)
			So(w.Shutdown(context.Background()), ShouldBeNil)
		})

		Convey("When a task fails once then succeeds", func() {
			p := &fakeProcessor{failures: 1}
			w := worker.NewMeasureWorker(q, p, q,
				worker.WithMaxAttempts(3),
				worker.WithBackoffBase(time.Millisecond),
			)
			go w.Run(ctx)

			So(q.Enqueue(ctx, worker.Task{JumpID: "j1"}), ShouldBeTrue)

			Convey("Then the retry carries an incremented attempt", func() {
				So(eventually(func() bool {
					done, _ := p.counts()
					return done == 2
				}), ShouldBeTrue)

				p.mu.Lock()
				So(p.processed[1].Attempt, ShouldEqual, 1)
				p.mu.Unlock()
				So(w.Shutdown(context.Background()), ShouldBeNil)
			})
		})

		Convey("When shutdown arrives mid-backoff", func() {
			p := &fakeProcessor{failures: 100}
			w := worker.NewMeasureWorker(q, p, q,
				worker.WithMaxAttempts(3),
				worker.WithBackoffBase(time.Hour),
			)
			go w.Run(ctx)

			So(q.Enqueue(ctx, worker.Task{JumpID: "j1"}), ShouldBeTrue)

			So(eventually(func() bool {
				done, _ := p.counts()
				return done == 1
			}), ShouldBeTrue)

			Convey("Then the worker stops without waiting out the backoff", func() {
				stopCtx, cancelStop := context.WithTimeout(context.Background(), time.Second)
				defer cancelStop()
				So(w.Shutdown(stopCtx), ShouldBeNil)
			})
		})

		Convey("When every attempt fails", func() {
			p := &fakeProcessor{failures: 100}
			w := worker.NewMeasureWorker(q, p, q,
				worker.WithMaxAttempts(2),
				worker.WithBackoffBase(time.Millisecond),
			)
			go w.Run(ctx)

			So(q.Enqueue(ctx, worker.Task{JumpID: "j1"}), ShouldBeTrue)

			Convey("Then the jump is abandoned after the final attempt", func() {
				So(eventually(func() bool {
					_, abandoned := p.counts()
					return abandoned == 1
				}), ShouldBeTrue)

				done, _ := p.counts()
				So(done, ShouldEqual, 2)
				So(w.Shutdown(context.Background()), ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of workers", t, func() {
		q := queue.NewInMemoryQueue()
		p := &fakeProcessor{}
		pool := worker.NewPool(4, q, p, q, worker.WithBackoffBase(time.Millisecond))
		ctx := context.Background()

		So(pool.Size(), ShouldEqual, 4)
		pool.Start(ctx)

		Convey("When tasks flow through", func() {
			for i := 0; i < 8; i++ {
				So(q.Enqueue(ctx, worker.Task{JumpID: "j"}), ShouldBeTrue)
			}

			So(eventually(func() bool {
				done, _ := p.counts()
				return done == 8
			}), ShouldBeTrue)

			Convey("Then shutdown drains and closes the queue", func() {
				So(pool.Shutdown(ctx), ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})
}
