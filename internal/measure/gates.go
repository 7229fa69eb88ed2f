package measure

import (
	"context"
	"math"
	"time"

	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/internal/domain/physics"
	"github.com/youthperformance/xlens/internal/domain/tier"
	"github.com/youthperformance/xlens/internal/registry"
	"github.com/youthperformance/xlens/internal/session"
	"github.com/youthperformance/xlens/pkg/metrics"
)

// evaluate scores the four gates, computes the measurement, and decides the
// verdict. It never errors: by this point the recording was analyzable, so
// every outcome is a verdict, even a damning one.
func (e *Engine) evaluate(ctx context.Context, jump *model.Jump, analysis *model.OracleAnalysis) (*model.Jump, model.Status) {
	var issues []string
	issues = append(issues, analysis.Flags...)

	flightMs := physics.FlightTimeMs(analysis.TakeoffFrame, analysis.LandingFrame, analysis.FPS)
	heightIn := physics.HeightFromFlightTime(flightMs)

	gates := model.GateScores{
		Attestation: e.attestationScore(ctx, jump),
		CryptoValid: e.cryptoValid(ctx, jump),
		Liveness:    e.livenessScore(ctx, jump, analysis),
		Physics:     physics.GateScore(analysis.IMUCorrelation, flightMs, analysis.FPS),
	}
	metrics.RecordGateScore("attestation", gates.Attestation)
	metrics.RecordGateScore("liveness", gates.Liveness)
	metrics.RecordGateScore("physics", gates.Physics)

	confidence := analysis.Confidence
	if check, ok := physics.CompareMethods(heightIn, analysis.PhotoHeightIn); ok {
		if check.Agrees {
			confidence = math.Min(1, confidence+crossCheckBoost)
		} else {
			issues = append(issues, "method_disagreement")
		}
	}

	verdict := model.StatusComplete
	if gates.Physics < e.physicsFloor {
		issues = append(issues, "physics_implausible")
		verdict = model.StatusFlagged
	}
	if !analysis.NonceMatches {
		issues = append(issues, "nonce_mismatch")
		verdict = model.StatusFlagged
	}

	result := &model.Jump{
		HeightInches: heightIn,
		HeightCm:     physics.InchesToCm(heightIn),
		FlightTimeMs: flightMs,
		Confidence:   confidence,
		Gates:        &gates,
		Analysis:     analysis,
		Issues:       issues,
	}
	if verdict == model.StatusComplete {
		result.Tier = string(e.policy.Evaluate(gates))
	} else {
		result.Tier = string(tier.Rejected)
	}
	return result, verdict
}

// attestationScore weighs the device's hardware shielding by its current
// trust. A device that stopped validating since submission still gets a
// neutral half score: the capture predates the problem.
func (e *Engine) attestationScore(ctx context.Context, jump *model.Jump) float64 {
	v := e.deps.Registry.Validate(ctx, jump.Proof.Signature.KeyID)
	if !v.Valid {
		return invalidDeviceAttestation
	}
	mult, ok := hardwareMultiplier[v.HardwareLevel]
	if !ok {
		mult = hardwareMultiplier[model.HardwareSoftware]
	}
	return mult * v.TrustScore
}

// cryptoValid re-verifies the device signature over the proof payload.
func (e *Engine) cryptoValid(ctx context.Context, jump *model.Jump) bool {
	v := e.deps.Registry.Validate(ctx, jump.Proof.Signature.KeyID)
	if !v.Valid {
		metrics.RecordCryptoCheck("invalid")
		return false
	}
	message, err := signedMessage(jump.Proof)
	if err != nil {
		metrics.RecordCryptoCheck("invalid")
		return false
	}
	ok, err := registry.VerifyES256(v.PublicKey, message, jump.Proof.Signature.Value)
	if err != nil || !ok {
		metrics.RecordCryptoCheck("invalid")
		return false
	}
	_ = e.deps.Registry.TouchLastUsed(ctx, v.KeyID)
	metrics.RecordCryptoCheck("valid")
	return true
}

// livenessScore rewards fresh sessions and an on-camera nonce. The base
// decays with session age at the claimed capture start but never below the
// floor; the analysis credits reward the oracle actually seeing and matching
// the display nonce.
func (e *Engine) livenessScore(ctx context.Context, jump *model.Jump, analysis *model.OracleAnalysis) float64 {
	base := livenessBaseFloor
	if sess, err := e.deps.Sessions.Get(ctx, jump.SessionID); err == nil {
		base = math.Max(livenessBaseFloor, 1-sess.AgeFraction(captureStart(jump, sess)))
	}

	score := base
	if analysis.NonceMatches {
		score += nonceMatchCredit
	}
	if analysis.NonceVisible {
		score += nonceVisibleCredit
	}
	return math.Min(1, score)
}

// captureStart returns the claimed capture start time. Claims outside the
// session-to-submission window are untrustworthy, so freshness falls back to
// the submission time rather than rewarding a fabricated timestamp.
func captureStart(jump *model.Jump, sess *session.Session) time.Time {
	ms := jump.Proof.Capture.StartedAtMs
	if ms <= 0 {
		return jump.CreatedAt
	}
	at := time.UnixMilli(ms)
	if at.Before(sess.CreatedAt) || at.After(jump.CreatedAt) {
		return jump.CreatedAt
	}
	return at
}
