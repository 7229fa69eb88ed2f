package physics_test

import (
	"testing"

	physics "github.com/youthperformance/xlens/internal/domain/physics"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHeightFromFlightTime(t *testing.T) {
	Convey("Given the chronometric formula h = g·t²/8", t, func() {
		Convey("When hang time is 400ms", func() {
			h := physics.HeightFromFlightTime(400)

			Convey("Then height is ~7.72 inches at standard gravity", func() {
				So(h, ShouldAlmostEqual, 7.7224, 0.01)
			})
		})

		Convey("When hang time is 600ms", func() {
			h := physics.HeightFromFlightTime(600)

			Convey("Then height scales with t squared", func() {
				So(h, ShouldAlmostEqual, physics.HeightFromFlightTime(300)*4, 0.001)
			})
		})

		Convey("When hang time is zero or negative", func() {
			So(physics.HeightFromFlightTime(0), ShouldEqual, 0)
			So(physics.HeightFromFlightTime(-100), ShouldEqual, 0)
		})
	})
}

func TestFlightTimeMs(t *testing.T) {
	Convey("Given oracle frame estimates", t, func() {
		Convey("When takeoff frame 30 and landing frame 60 at 30fps", func() {
			So(physics.FlightTimeMs(30, 60, 30), ShouldAlmostEqual, 1000)
		})

		Convey("When frames are reversed or fps invalid", func() {
			So(physics.FlightTimeMs(60, 30, 30), ShouldEqual, 0)
			So(physics.FlightTimeMs(30, 60, 0), ShouldEqual, 0)
		})
	})
}

func TestPlausibilityCredit(t *testing.T) {
	Convey("Given a flight time", t, func() {
		Convey("Then a typical jump gets full credit", func() {
			So(physics.PlausibilityCredit(400), ShouldEqual, 0.25)
		})

		Convey("Then an edge-case time gets partial credit", func() {
			So(physics.PlausibilityCredit(120), ShouldEqual, 0.1)
			So(physics.PlausibilityCredit(1150), ShouldEqual, 0.1)
		})

		Convey("Then an impossible time gets no credit", func() {
			So(physics.PlausibilityCredit(50), ShouldEqual, 0)
			So(physics.PlausibilityCredit(2000), ShouldEqual, 0)
		})
	})
}

func TestGateScore(t *testing.T) {
	Convey("Given gate score inputs", t, func() {
		Convey("When everything is consistent", func() {
			// 30fps camera, plausible flight, strong IMU correlation.
			score := physics.GateScore(0.95, 450, 30)

			Convey("Then the score is high", func() {
				So(score, ShouldBeGreaterThan, 0.9)
				So(score, ShouldBeLessThanOrEqualTo, 1.0)
			})
		})

		Convey("When the IMU trace does not correlate", func() {
			score := physics.GateScore(0.1, 450, 30)

			Convey("Then the score falls below the review floor", func() {
				So(score, ShouldBeLessThan, 0.6)
			})
		})

		Convey("When flight time is superhuman", func() {
			score := physics.GateScore(0.9, 1500, 30)

			Convey("Then plausibility credit is withheld", func() {
				So(score, ShouldBeLessThan, physics.GateScore(0.9, 450, 30))
			})
		})

		Convey("When correlation is out of range it is clamped", func() {
			So(physics.GateScore(5.0, 450, 30), ShouldBeLessThanOrEqualTo, 1.0)
			So(physics.GateScore(-1.0, 450, 30), ShouldBeGreaterThanOrEqualTo, 0)
		})
	})
}

func TestCompareMethods(t *testing.T) {
	Convey("Given chronometric and photogrammetric estimates", t, func() {
		Convey("When they agree within 20%", func() {
			cc, ok := physics.CompareMethods(20.0, 22.0)
			So(ok, ShouldBeTrue)
			So(cc.Agrees, ShouldBeTrue)
			So(cc.Deviation, ShouldAlmostEqual, 0.1)
		})

		Convey("When the photogrammetric estimate is inflated", func() {
			cc, ok := physics.CompareMethods(20.0, 30.0)
			So(ok, ShouldBeTrue)
			So(cc.Agrees, ShouldBeFalse)
		})

		Convey("When the cross-check is unavailable", func() {
			_, ok := physics.CompareMethods(20.0, 0)
			So(ok, ShouldBeFalse)
		})
	})
}
