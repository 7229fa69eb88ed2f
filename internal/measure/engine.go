// Package measure runs one jump submission through the full verification
// pipeline: artifact analysis, the four trust gates, tier fusion, and the
// leaderboard proposal.
package measure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/youthperformance/xlens/internal/adapters/repository"
	"github.com/youthperformance/xlens/internal/athlete"
	"github.com/youthperformance/xlens/internal/blobstore"
	"github.com/youthperformance/xlens/internal/domain/dedupe"
	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/internal/domain/tier"
	"github.com/youthperformance/xlens/internal/oracle"
	"github.com/youthperformance/xlens/internal/registry"
	"github.com/youthperformance/xlens/internal/session"
	"github.com/youthperformance/xlens/pkg/logger"
	"github.com/youthperformance/xlens/pkg/metrics"
)

const (
	defaultPhysicsFloor = 0.5

	// attestation fallback when the device no longer validates
	invalidDeviceAttestation = 0.5

	// liveness composition
	livenessBaseFloor  = 0.6
	nonceMatchCredit   = 0.2
	nonceVisibleCredit = 0.1

	// confidence boost when chronometric and photogrammetric methods agree
	crossCheckBoost = 0.05
)

// hardware multipliers reflect how hard the signing key is to extract.
var hardwareMultiplier = map[model.HardwareLevel]float64{
	model.HardwareSecureElement: 1.0,
	model.HardwareTEE:           0.8,
	model.HardwareSoftware:      0.6,
}

// DeviceRegistry is the engine's view of the device key registry.
type DeviceRegistry interface {
	Validate(ctx context.Context, keyID string) registry.Validation
	TouchLastUsed(ctx context.Context, keyID string) error
}

// SessionSource resolves consumed sessions for liveness scoring.
type SessionSource interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
}

// AthleteSource resolves profiles and charges the daily cap.
type AthleteSource interface {
	Get(ctx context.Context, athleteID string) (*athlete.Profile, error)
	ChargeDailyCap(ctx context.Context, athleteID string) error
	RefundDailyCap(ctx context.Context, athleteID string)
}

// Deps bundles everything the engine reads and writes.
type Deps struct {
	Jumps       repository.JumpStore
	Leaderboard repository.LeaderboardStore
	Registry    DeviceRegistry
	Sessions    SessionSource
	Athletes    AthleteSource
	Analyzer    oracle.Analyzer
	Blobs       blobstore.Store
	Deduper     dedupe.Deduper
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPolicy sets the tier fusion policy.
func WithPolicy(p tier.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithPhysicsFloor sets the physics score below which a jump is flagged.
func WithPhysicsFloor(floor float64) Option {
	return func(e *Engine) {
		if floor > 0 && floor <= 1 {
			e.physicsFloor = floor
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine is the measurement pipeline.
type Engine struct {
	deps         Deps
	policy       tier.Policy
	physicsFloor float64
	now          func() time.Time
	logger       logger.Logger
}

// NewEngine constructs an Engine with default configuration.
func NewEngine(deps Deps, opts ...Option) *Engine {
	e := &Engine{
		deps:         deps,
		policy:       tier.Launch(),
		physicsFloor: defaultPhysicsFloor,
		now:          time.Now,
		logger:       logger.Get().Named("measure"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs one measurement attempt. A returned error means this attempt
// reached no verdict and the task may be retried; terminal verdicts
// (complete, flagged) return nil.
func (e *Engine) Process(ctx context.Context, task model.MeasurementTask) error {
	jump, err := e.deps.Jumps.Get(ctx, task.JumpID)
	if err != nil {
		return fmt.Errorf("loading jump %s: %w", task.JumpID, err)
	}

	switch jump.Status {
	case model.StatusUploading:
		if err := e.deps.Jumps.Transition(ctx, jump.ID, model.StatusUploading, model.StatusProcessing); err != nil {
			if errors.Is(err, repository.ErrInvalidTransition) {
				// lost the claim race; the winner owns the jump
				return nil
			}
			return fmt.Errorf("claiming jump %s: %w", jump.ID, err)
		}
	case model.StatusProcessing:
		// a retry of an attempt that died mid-flight
	default:
		// already terminal, nothing to do
		return nil
	}

	analysis, err := e.analyze(ctx, jump)
	if err != nil {
		return err
	}

	result, verdict := e.evaluate(ctx, jump, analysis)

	if err := e.deps.Jumps.SetResult(ctx, jump.ID, result); err != nil {
		return fmt.Errorf("persisting result for jump %s: %w", jump.ID, err)
	}
	if err := e.deps.Jumps.Transition(ctx, jump.ID, model.StatusProcessing, verdict); err != nil {
		return fmt.Errorf("finishing jump %s: %w", jump.ID, err)
	}

	switch verdict {
	case model.StatusComplete:
		metrics.RecordJumpCompleted()
		metrics.RecordTierAssigned(result.Tier)
		e.settle(ctx, jump, result)
	case model.StatusFlagged:
		reason := "suspicious"
		if len(result.Issues) > 0 {
			reason = result.Issues[0]
		}
		metrics.RecordJumpFlagged(reason)
	}

	e.logger.Info(ctx, "jump measured",
		logger.String("jumpID", jump.ID),
		logger.String("verdict", string(verdict)),
		logger.Float64("heightIn", result.HeightInches),
		logger.String("tier", result.Tier),
	)
	return nil
}

// Abandon marks a jump failed after retries are exhausted.
func (e *Engine) Abandon(ctx context.Context, task model.MeasurementTask, cause error) {
	jump, err := e.deps.Jumps.Get(ctx, task.JumpID)
	if err != nil {
		e.logger.Error(ctx, "abandoning unknown jump", logger.String("jumpID", task.JumpID), logger.Error(err))
		return
	}
	if jump.Status.Terminal() {
		return
	}
	if err := e.deps.Jumps.Transition(ctx, task.JumpID, jump.Status, model.StatusFailed); err != nil {
		e.logger.Error(ctx, "failing jump", logger.String("jumpID", task.JumpID), logger.Error(err))
		return
	}
	metrics.RecordJumpFailed()
	e.logger.Warn(ctx, "jump abandoned",
		logger.String("jumpID", task.JumpID),
		logger.Error(cause),
	)
}

// analyze resolves the stored artifacts and calls the vision service.
func (e *Engine) analyze(ctx context.Context, jump *model.Jump) (*model.OracleAnalysis, error) {
	videoURL, err := e.deps.Blobs.SignedURL(ctx, jump.VideoBlobID)
	if err != nil {
		return nil, fmt.Errorf("resolving video for jump %s: %w", jump.ID, err)
	}
	sensorURL, err := e.deps.Blobs.SignedURL(ctx, jump.SensorBlobID)
	if err != nil {
		return nil, fmt.Errorf("resolving sensor data for jump %s: %w", jump.ID, err)
	}

	var displayNonce string
	if sess, err := e.deps.Sessions.Get(ctx, jump.SessionID); err == nil {
		displayNonce = sess.DisplayNonce
	}
	var calibrationIn float64
	if profile, err := e.deps.Athletes.Get(ctx, jump.AthleteID); err == nil {
		calibrationIn = profile.StandingHeightIn
	}

	analysis, err := e.deps.Analyzer.Analyze(ctx, oracle.Request{
		JumpID:              jump.ID,
		VideoURL:            videoURL,
		SensorURL:           sensorURL,
		DisplayNonce:        displayNonce,
		FPS:                 jump.Proof.Capture.FPS,
		CalibrationHeightIn: calibrationIn,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing jump %s: %w", jump.ID, err)
	}
	for _, f := range analysis.Flags {
		if f == "analysis_unparseable" {
			return nil, fmt.Errorf("%w: jump %s", ErrUnreadableAnalysis, jump.ID)
		}
	}
	return analysis, nil
}

// settle runs the post-verdict side effects for a completed jump: daily cap
// charge and leaderboard proposal. The deduper keeps a reprocessed jump from
// charging or proposing twice.
func (e *Engine) settle(ctx context.Context, jump *model.Jump, result *model.Jump) {
	if jump.IsPractice {
		return
	}
	if e.deps.Deduper.SeenAndRecord(ctx, jump.ID) {
		metrics.RecordJumpDuplicate()
		return
	}

	if err := e.deps.Athletes.ChargeDailyCap(ctx, jump.AthleteID); err != nil {
		if errors.Is(err, athlete.ErrDailyCapReached) {
			e.logger.Info(ctx, "daily cap reached, jump not ranked",
				logger.String("jumpID", jump.ID),
				logger.String("athleteID", jump.AthleteID),
			)
			return
		}
		e.deps.Deduper.Unrecord(ctx, jump.ID)
		e.logger.Error(ctx, "daily cap charge failed", logger.String("jumpID", jump.ID), logger.Error(err))
		return
	}

	profile, err := e.deps.Athletes.Get(ctx, jump.AthleteID)
	if err != nil {
		e.logger.Error(ctx, "loading athlete for ranking", logger.String("jumpID", jump.ID), logger.Error(err))
		return
	}
	if profile.OptedOut {
		return
	}

	_, err = e.deps.Leaderboard.UpdateBest(ctx, repository.Entry{
		AthleteID:   profile.ID,
		DisplayName: profile.DisplayName,
		HeightIn:    result.HeightInches,
		Tier:        tier.Tier(result.Tier),
		JumpID:      jump.ID,
		AgeGroup:    profile.AgeGroupAt(e.now().UTC().Year()),
		Gender:      profile.Gender,
		Country:     profile.Country,
		State:       profile.State,
		City:        profile.City,
		UpdatedAt:   e.now(),
	})
	if err != nil {
		metrics.RecordLeaderboardError()
		e.logger.Error(ctx, "leaderboard proposal failed", logger.String("jumpID", jump.ID), logger.Error(err))
	}
}

// signedMessage rebuilds the exact bytes the device signed: the proof payload
// with the signature value blanked.
func signedMessage(p model.ProofPayload) ([]byte, error) {
	p.Signature.Value = ""
	return json.Marshal(p)
}
