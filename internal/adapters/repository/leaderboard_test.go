package repository_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/youthperformance/xlens/internal/adapters/repository"
	"github.com/youthperformance/xlens/internal/athlete"
	"github.com/youthperformance/xlens/internal/domain/tier"
)

func entry(athleteID string, height float64) repository.Entry {
	return repository.Entry{
		AthleteID:   athleteID,
		DisplayName: athleteID,
		HeightIn:    height,
		Tier:        tier.Measured,
		AgeGroup:    athlete.AgeGroup15to16,
		Gender:      "female",
		Country:     "US",
		State:       "TX",
		City:        "Austin",
	}
}

func TestUpdateBest(t *testing.T) {
	Convey("Given an empty leaderboard", t, func() {
		l := repository.NewInMemoryLeaderboard()
		ctx := context.Background()

		Convey("When an athlete posts a first score", func() {
			updated, err := l.UpdateBest(ctx, entry("ath_1", 20))
			So(err, ShouldBeNil)
			So(updated, ShouldBeTrue)

			Convey("Then a higher score replaces it", func() {
				updated, err := l.UpdateBest(ctx, entry("ath_1", 22))
				So(err, ShouldBeNil)
				So(updated, ShouldBeTrue)
			})

			Convey("And an equal score keeps the incumbent", func() {
				updated, err := l.UpdateBest(ctx, entry("ath_1", 20))
				So(err, ShouldBeNil)
				So(updated, ShouldBeFalse)
			})

			Convey("And a lower score never downgrades", func() {
				updated, err := l.UpdateBest(ctx, entry("ath_1", 15))
				So(err, ShouldBeNil)
				So(updated, ShouldBeFalse)

				e, err := l.Rank(ctx, "ath_1")
				So(err, ShouldBeNil)
				So(e.HeightIn, ShouldEqual, 20)
			})
		})
	})
}

func TestTopNAndFilters(t *testing.T) {
	Convey("Given a board with mixed cohorts", t, func() {
		l := repository.NewInMemoryLeaderboard()
		ctx := context.Background()

		a := entry("ath_a", 24)
		b := entry("ath_b", 26)
		c := entry("ath_c", 22)
		c.AgeGroup = athlete.AgeGroup17to18
		c.Gender = "male"
		c.Country = "BR"
		d := entry("ath_d", 28)
		d.Tier = tier.Gold

		for _, e := range []repository.Entry{a, b, c, d} {
			_, err := l.UpdateBest(ctx, e)
			So(err, ShouldBeNil)
		}

		Convey("When querying the unfiltered top", func() {
			top, err := l.TopN(ctx, repository.Filter{}, 10)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 4)
			So(top[0].AthleteID, ShouldEqual, "ath_d")
			So(top[1].AthleteID, ShouldEqual, "ath_b")
		})

		Convey("When filtering by cohort", func() {
			top, err := l.TopN(ctx, repository.Filter{AgeGroup: athlete.AgeGroup15to16, Gender: "female"}, 10)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 3)
			for _, e := range top {
				So(e.AgeGroup, ShouldEqual, athlete.AgeGroup15to16)
			}
		})

		Convey("When filtering by minimum tier", func() {
			top, err := l.TopN(ctx, repository.Filter{MinTier: tier.Gold}, 10)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 1)
			So(top[0].AthleteID, ShouldEqual, "ath_d")
		})

		Convey("When the limit is invalid", func() {
			_, err := l.TopN(ctx, repository.Filter{}, 0)
			So(err, ShouldEqual, repository.ErrInvalidLimit)
		})

		Convey("When the limit exceeds the cap it is clamped", func() {
			small := repository.NewInMemoryLeaderboard(repository.WithMaxLimit(2))
			_, err := small.UpdateBest(ctx, a)
			So(err, ShouldBeNil)
			_, err = small.UpdateBest(ctx, b)
			So(err, ShouldBeNil)
			_, err = small.UpdateBest(ctx, d)
			So(err, ShouldBeNil)

			top, err := small.TopN(ctx, repository.Filter{}, 50)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 2)
		})
	})
}

func TestRanks(t *testing.T) {
	Convey("Given entries and a rank rebuild", t, func() {
		l := repository.NewInMemoryLeaderboard()
		ctx := context.Background()

		_, err := l.UpdateBest(ctx, entry("ath_a", 24))
		So(err, ShouldBeNil)
		_, err = l.UpdateBest(ctx, entry("ath_b", 26))
		So(err, ShouldBeNil)

		Convey("Before the rebuild the rank is unset", func() {
			e, err := l.Rank(ctx, "ath_a")
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 0)
		})

		Convey("After the rebuild ranks are dense and ordered", func() {
			l.RecomputeRanks(ctx)

			a, err := l.Rank(ctx, "ath_a")
			So(err, ShouldBeNil)
			b, err := l.Rank(ctx, "ath_b")
			So(err, ShouldBeNil)
			So(b.Rank, ShouldEqual, 1)
			So(a.Rank, ShouldEqual, 2)
		})

		Convey("Ties rank by earliest achievement", func() {
			tied := entry("ath_c", 26)
			tied.UpdatedAt = time.Now().Add(time.Hour)
			_, err := l.UpdateBest(ctx, tied)
			So(err, ShouldBeNil)
			l.RecomputeRanks(ctx)

			b, err := l.Rank(ctx, "ath_b")
			So(err, ShouldBeNil)
			c, err := l.Rank(ctx, "ath_c")
			So(err, ShouldBeNil)
			So(b.Rank, ShouldBeLessThan, c.Rank)
		})

		Convey("When an athlete is removed", func() {
			So(l.Remove(ctx, "ath_a"), ShouldBeNil)
			_, err := l.Rank(ctx, "ath_a")
			So(err, ShouldEqual, repository.ErrNotFound)
			So(l.Remove(ctx, "ath_a"), ShouldEqual, repository.ErrNotFound)
		})
	})
}
