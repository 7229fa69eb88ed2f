package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/youthperformance/xlens/internal/session"
)

func TestCreate(t *testing.T) {
	Convey("Given a session manager", t, func() {
		m := session.NewManager(session.WithTTL(2 * time.Minute))
		ctx := context.Background()

		Convey("When a session is created", func() {
			s, err := m.Create(ctx, "athlete-1", "dk_1")
			So(err, ShouldBeNil)

			Convey("Then it carries both nonces and a bounded window", func() {
				So(s.ID, ShouldStartWith, "cs_")
				So(s.SecretNonce, ShouldHaveLength, 64) // 32 bytes hex
				So(s.DisplayNonce, ShouldHaveLength, 6)
				So(s.ExpiresAt.Sub(s.CreatedAt), ShouldEqual, 2*time.Minute)
				So(s.Used(), ShouldBeFalse)
			})

			Convey("And two sessions never share nonces", func() {
				s2, err := m.Create(ctx, "athlete-1", "dk_1")
				So(err, ShouldBeNil)
				So(s2.SecretNonce, ShouldNotEqual, s.SecretNonce)
			})
		})
	})
}

func TestConsume(t *testing.T) {
	Convey("Given a live session", t, func() {
		now := time.Now()
		clock := &fakeClock{t: now}
		m := session.NewManager(session.WithTTL(2*time.Minute), session.WithClock(clock.Now))
		ctx := context.Background()

		s, err := m.Create(ctx, "athlete-1", "dk_1")
		So(err, ShouldBeNil)

		Convey("When consumed with the right nonce", func() {
			got, err := m.Consume(ctx, s.ID, s.SecretNonce, "jump-1")
			So(err, ShouldBeNil)
			So(got.Used(), ShouldBeTrue)
			So(got.UsedByJumpID, ShouldEqual, "jump-1")

			Convey("Then a second consumption is a replay", func() {
				_, err := m.Consume(ctx, s.ID, s.SecretNonce, "jump-2")
				So(err, ShouldEqual, session.ErrAlreadyUsed)
			})
		})

		Convey("When consumed with the wrong nonce", func() {
			_, err := m.Consume(ctx, s.ID, "wrong", "jump-1")
			So(err, ShouldEqual, session.ErrNonceMismatch)

			Convey("Then the session stays unused", func() {
				got, err := m.Get(ctx, s.ID)
				So(err, ShouldBeNil)
				So(got.Used(), ShouldBeFalse)
			})
		})

		Convey("When the window has passed", func() {
			clock.Advance(3 * time.Minute)
			_, err := m.Consume(ctx, s.ID, s.SecretNonce, "jump-1")
			So(err, ShouldEqual, session.ErrExpired)
		})

		Convey("When the session id is unknown", func() {
			_, err := m.Consume(ctx, "cs_missing", "n", "jump-1")
			So(err, ShouldEqual, session.ErrNotFound)
		})
	})
}

func TestConsumeRace(t *testing.T) {
	Convey("Given many submissions racing on one session", t, func() {
		m := session.NewManager()
		ctx := context.Background()
		s, err := m.Create(ctx, "athlete-1", "dk_1")
		So(err, ShouldBeNil)

		const racers = 16
		var wins int
		var mu sync.Mutex
		var wg sync.WaitGroup
		wg.Add(racers)
		for i := 0; i < racers; i++ {
			go func() {
				defer wg.Done()
				if _, err := m.Consume(ctx, s.ID, s.SecretNonce, "jump-r"); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one submission wins the session", func() {
			So(wins, ShouldEqual, 1)
		})
	})
}

func TestAgeFraction(t *testing.T) {
	Convey("Given a session with a 120s window", t, func() {
		now := time.Now()
		clock := &fakeClock{t: now}
		m := session.NewManager(session.WithTTL(120*time.Second), session.WithClock(clock.Now))
		s, err := m.Create(context.Background(), "athlete-1", "dk_1")
		So(err, ShouldBeNil)

		Convey("Then age fraction tracks elapsed lifetime", func() {
			So(s.AgeFraction(now), ShouldAlmostEqual, 0, 0.001)
			So(s.AgeFraction(now.Add(60*time.Second)), ShouldAlmostEqual, 0.5, 0.001)
			So(s.AgeFraction(now.Add(10*time.Minute)), ShouldEqual, 1)
		})
	})
}

func TestSweep(t *testing.T) {
	Convey("Given sessions past the retention window", t, func() {
		now := time.Now()
		clock := &fakeClock{t: now}
		m := session.NewManager(
			session.WithTTL(time.Minute),
			session.WithRetention(time.Hour),
			session.WithGCPeriod(time.Millisecond),
			session.WithClock(clock.Now),
		)
		ctx := context.Background()

		_, err := m.Create(ctx, "athlete-1", "dk_1")
		So(err, ShouldBeNil)
		So(m.Count(ctx), ShouldEqual, 1)

		Convey("When the collector sweeps after retention has passed", func() {
			clock.Advance(2 * time.Hour)
			m.StartGC(ctx)
			So(func() bool {
				deadline := time.Now().Add(time.Second)
				for time.Now().Before(deadline) {
					if m.Count(ctx) == 0 {
						return true
					}
					time.Sleep(5 * time.Millisecond)
				}
				return false
			}(), ShouldBeTrue)
			m.StopGC()
		})
	})
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
