package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/youthperformance/xlens/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeenAndRecord(t *testing.T) {
	Convey("Given a fresh deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		ctx := context.Background()

		Convey("When recording an id for the first time", func() {
			seen := d.SeenAndRecord(ctx, "jump-1")

			Convey("Then it reports unseen and records it", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a second record reports seen", func() {
				So(d.SeenAndRecord(ctx, "jump-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording after a rollback", func() {
			d.SeenAndRecord(ctx, "jump-2")
			d.Unrecord(ctx, "jump-2")

			Convey("Then the id can be recorded again", func() {
				So(d.SeenAndRecord(ctx, "jump-2"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown id", func() {
			d.Unrecord(ctx, "never-seen")
			So(d.Size(), ShouldEqual, 0)
		})
	})
}

func TestBoundedEviction(t *testing.T) {
	Convey("Given a deduper bounded to 3 entries", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		ctx := context.Background()

		Convey("When more than 3 ids are recorded", func() {
			for i := 0; i < 5; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("jump-%d", i))
			}

			Convey("Then the oldest ids are evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "jump-0"), ShouldBeFalse) // evicted, re-recordable
				So(d.SeenAndRecord(ctx, "jump-4"), ShouldBeTrue)  // still tracked
			})
		})
	})
}

func TestConcurrentRecord(t *testing.T) {
	Convey("Given many goroutines racing on the same id", t, func() {
		d := dedupe.NewInMemoryDeduper()
		ctx := context.Background()

		const racers = 32
		var unseen int64
		var mu sync.Mutex
		var wg sync.WaitGroup
		wg.Add(racers)
		for i := 0; i < racers; i++ {
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "contested") {
					mu.Lock()
					unseen++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one racer records it", func() {
			So(unseen, ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
