// Package physics derives jump heights from capture timing and scores the
// physical consistency of a submission. Everything here is a pure function of
// its inputs so it can be exercised without the rest of the pipeline.
package physics

import "math"

// Physical constants and plausibility bounds.
const (
	// GravityMS2 is standard gravity in m/s².
	GravityMS2 = 9.80665

	cmPerInch     = 2.54
	metersPerInch = 0.0254

	// Flight times inside the inner band get full plausibility credit; the
	// outer band is down-weighted, anything beyond is ignored. ~150ms is a
	// sub-6-inch hop, ~1100ms is already beyond elite.
	plausibleMinMs = 150
	plausibleMaxMs = 1100
	marginalMinMs  = 100
	marginalMaxMs  = 1200

	// Photogrammetric cross-check agreement band.
	crossCheckTolerance = 0.20

	// Gate score weights.
	imuWeight          = 0.5
	plausibleCredit    = 0.25
	marginalCredit     = 0.1
	frameTimingCredit  = 0.25
	frameTimingPartial = 0.15
)

// FlightTimeMs computes hang time in milliseconds from oracle frame estimates.
// Returns 0 when the inputs cannot describe a jump.
func FlightTimeMs(takeoffFrame, landingFrame int, fps float64) float64 {
	if fps <= 0 || landingFrame <= takeoffFrame {
		return 0
	}
	return float64(landingFrame-takeoffFrame) / fps * 1000
}

// HeightFromFlightTime applies the projectile-motion identity h = g·t²/8.
// Input is milliseconds, output inches. A 400ms hang time yields ~7.72in.
func HeightFromFlightTime(flightMs float64) float64 {
	if flightMs <= 0 {
		return 0
	}
	t := flightMs / 1000
	meters := GravityMS2 * t * t / 8
	return meters / metersPerInch
}

// InchesToCm converts a height for the metric half of results.
func InchesToCm(inches float64) float64 {
	return inches * cmPerInch
}

// PlausibilityCredit scores how believable a flight time is for a human jump.
func PlausibilityCredit(flightMs float64) float64 {
	switch {
	case flightMs > plausibleMinMs && flightMs < plausibleMaxMs:
		return plausibleCredit
	case flightMs > marginalMinMs && flightMs < marginalMaxMs:
		return marginalCredit
	default:
		return 0
	}
}

// FrameTimingCredit checks that the claimed capture duration and frame rate
// describe a real camera. 20-40fps maps to a 25-50ms frame interval.
func FrameTimingCredit(fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	intervalMs := 1000 / fps
	switch {
	case intervalMs > 25 && intervalMs < 50:
		return frameTimingCredit
	case intervalMs > 15 && intervalMs < 70:
		return frameTimingPartial
	default:
		return 0
	}
}

// GateScore fuses the inertial correlation with the plausibility and frame
// timing credits into the physics gate value. This is the signal a purely
// visual fabrication cannot satisfy: it requires a motion trace synchronized
// with the footage, not convincing pixels.
func GateScore(imuCorrelation, flightMs, fps float64) float64 {
	score := clamp01(imuCorrelation) * imuWeight
	score += PlausibilityCredit(flightMs)
	score += FrameTimingCredit(fps)
	return math.Min(1.0, score)
}

// CrossCheck compares the chronometric estimate against an independent
// photogrammetric one. The calibration height behind the photogrammetric
// estimate is self-reported and untrusted: agreement can only add confidence,
// disagreement records a flag and never replaces the chronometric value.
type CrossCheck struct {
	Agrees    bool
	Deviation float64 // |photo-chrono| / chrono
}

// CompareMethods cross-checks two height estimates in inches. A zero photo
// estimate means the check was unavailable.
func CompareMethods(chronoIn, photoIn float64) (CrossCheck, bool) {
	if chronoIn <= 0 || photoIn <= 0 {
		return CrossCheck{}, false
	}
	dev := math.Abs(photoIn-chronoIn) / chronoIn
	return CrossCheck{Agrees: dev <= crossCheckTolerance, Deviation: dev}, true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
