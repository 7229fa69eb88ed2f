package tier_test

import (
	"testing"

	"github.com/youthperformance/xlens/internal/domain/model"
	tier "github.com/youthperformance/xlens/internal/domain/tier"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEnforcedPolicy(t *testing.T) {
	Convey("Given the enforced tier table", t, func() {
		p := tier.Enforced()

		Convey("When all gates are near perfect", func() {
			g := model.GateScores{Attestation: 0.95, CryptoValid: true, Liveness: 0.98, Physics: 0.95}

			Convey("Then the jump earns gold", func() {
				So(p.Evaluate(g), ShouldEqual, tier.Gold)
			})
		})

		Convey("When the signature is invalid", func() {
			g := model.GateScores{Attestation: 0.95, CryptoValid: false, Liveness: 0.98, Physics: 0.95}

			Convey("Then no crypto-requiring tier is reachable", func() {
				So(p.Evaluate(g), ShouldEqual, tier.Measured)
			})
		})

		Convey("When attestation is mid-range", func() {
			g := model.GateScores{Attestation: 0.75, CryptoValid: true, Liveness: 0.85, Physics: 0.85}

			Convey("Then the jump earns silver, not gold", func() {
				So(p.Evaluate(g), ShouldEqual, tier.Silver)
			})
		})

		Convey("When only the loosest thresholds are met", func() {
			g := model.GateScores{Attestation: 0.55, CryptoValid: true, Liveness: 0.65, Physics: 0.72}

			So(p.Evaluate(g), ShouldEqual, tier.Bronze)
		})

		Convey("When physics is weak", func() {
			g := model.GateScores{Attestation: 0.95, CryptoValid: true, Liveness: 0.98, Physics: 0.6}

			Convey("Then the jump falls through to measured", func() {
				So(p.Evaluate(g), ShouldEqual, tier.Measured)
			})
		})
	})
}

func TestLaunchPolicy(t *testing.T) {
	Convey("Given the launch-phase table", t, func() {
		p := tier.Launch()

		Convey("Then every passing submission maps to measured", func() {
			perfect := model.GateScores{Attestation: 1, CryptoValid: true, Liveness: 1, Physics: 1}
			weak := model.GateScores{Attestation: 0.5, CryptoValid: false, Liveness: 0.5, Physics: 0.55}

			So(p.Evaluate(perfect), ShouldEqual, tier.Measured)
			So(p.Evaluate(weak), ShouldEqual, tier.Measured)
		})
	})
}

func TestTierOrdering(t *testing.T) {
	Convey("Given the tier order rejected < measured < bronze < silver < gold", t, func() {
		So(tier.Gold.AtLeast(tier.Bronze), ShouldBeTrue)
		So(tier.Measured.AtLeast(tier.Bronze), ShouldBeFalse)
		So(tier.Rejected.AtLeast(tier.Measured), ShouldBeFalse)
		So(tier.Silver.AtLeast(tier.Silver), ShouldBeTrue)
	})

	Convey("Given tier name validation", t, func() {
		So(tier.Valid("gold"), ShouldBeTrue)
		So(tier.Valid("platinum"), ShouldBeFalse)
	})
}

func TestGatesPassed(t *testing.T) {
	Convey("Given gate scores straddling the pass thresholds", t, func() {
		g := model.GateScores{Attestation: 0.6, CryptoValid: true, Liveness: 0.5, Physics: 0.8}

		Convey("Then only clearing gates are listed, in stable order", func() {
			So(tier.GatesPassed(g), ShouldResemble, []string{"attestation", "crypto", "physics"})
		})
	})

	Convey("Given all-failing scores", t, func() {
		g := model.GateScores{}
		So(tier.GatesPassed(g), ShouldBeNil)
	})
}
