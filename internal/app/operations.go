package app

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/google/uuid"

	taskqueue "github.com/youthperformance/xlens/internal/adapters/mq/queue"
	"github.com/youthperformance/xlens/internal/adapters/repository"
	"github.com/youthperformance/xlens/internal/athlete"
	"github.com/youthperformance/xlens/internal/blobstore"
	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/internal/registry"
	"github.com/youthperformance/xlens/internal/session"
	"github.com/youthperformance/xlens/internal/vpc"
	"github.com/youthperformance/xlens/pkg/logger"
	"github.com/youthperformance/xlens/pkg/metrics"
)

const jumpIDPrefix = "jmp_"

// ready reports whether Start has completed. Operations refuse to run on a
// stopped service rather than dereference half-built components.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// --- Athletes ---

// CreateAthlete registers an athlete profile.
func (s *Service) CreateAthlete(ctx context.Context, in athlete.CreateInput) (*athlete.Profile, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.athletes.Create(ctx, in)
}

// GetAthlete returns an athlete profile.
func (s *Service) GetAthlete(ctx context.Context, athleteID string) (*athlete.Profile, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.athletes.Get(ctx, athleteID)
}

// UpdateAthleteProfile applies partial edits to an athlete profile.
func (s *Service) UpdateAthleteProfile(ctx context.Context, athleteID string, in athlete.UpdateInput) (*athlete.Profile, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.athletes.UpdateProfile(ctx, athleteID, in)
}

// SetAthleteOptOut toggles leaderboard participation for an athlete. Opting
// out also drops any existing ranked entry.
func (s *Service) SetAthleteOptOut(ctx context.Context, athleteID string, optOut bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.athletes.SetOptOut(ctx, athleteID, optOut); err != nil {
		return err
	}
	if optOut {
		_ = s.leaderboard.Remove(ctx, athleteID)
	}
	return nil
}

// --- Devices ---

// RegisterDevice enrolls a device key for an athlete. Returns the key and
// whether it was newly created.
func (s *Service) RegisterDevice(ctx context.Context, in registry.RegisterInput) (*registry.DeviceKey, bool, error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	if _, err := s.athletes.Get(ctx, in.AthleteID); err != nil {
		return nil, false, err
	}
	return s.registry.Register(ctx, in)
}

// ListAthleteDevices returns the athlete's active device keys.
func (s *Service) ListAthleteDevices(ctx context.Context, athleteID string) ([]*registry.DeviceKey, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.athletes.Get(ctx, athleteID); err != nil {
		return nil, err
	}
	return s.registry.ListForAthlete(ctx, athleteID), nil
}

// RevokeDevice permanently retires a device key.
func (s *Service) RevokeDevice(ctx context.Context, keyID, reason string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.registry.Revoke(ctx, keyID, reason)
}

// DegradeDeviceTrust lowers a device key's trust score. Returns the
// resulting score.
func (s *Service) DegradeDeviceTrust(ctx context.Context, keyID string, proposed float64) (float64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.registry.DegradeTrust(ctx, keyID, proposed)
}

// GetDevice returns a device key.
func (s *Service) GetDevice(ctx context.Context, keyID string) (*registry.DeviceKey, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.registry.Get(ctx, keyID)
}

// --- Sessions ---

// CreateSession opens a capture session bound to an athlete and device key.
// The device must be valid for gate scoring; a revoked or untrusted device
// cannot open sessions.
func (s *Service) CreateSession(ctx context.Context, athleteID, deviceKeyID string) (*session.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.athletes.Get(ctx, athleteID); err != nil {
		return nil, err
	}
	if v := s.registry.Validate(ctx, deviceKeyID); !v.Valid {
		metrics.RecordSessionRejected("device_" + v.Reason)
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotUsable, v.Reason)
	}
	return s.sessions.Create(ctx, athleteID, deviceKeyID)
}

// --- Jumps ---

// SubmitInput carries everything a client sends to open a jump submission.
type SubmitInput struct {
	AthleteID  string
	IsPractice bool
	Proof      model.ProofPayload
}

// SubmitResult is the accepted submission with its upload grants.
type SubmitResult struct {
	Jump         *model.Jump
	VideoUpload  blobstore.Upload
	SensorUpload blobstore.Upload
}

// SubmitJump validates a submission, consumes its capture session, and
// records the jump in the uploading state. The session is consumed
// atomically: a second submission replaying the same session fails here
// regardless of outcome. Scored submissions are refused outright once the
// athlete's daily cap is spent; practice jumps are never capped.
func (s *Service) SubmitJump(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	profile, err := s.athletes.Get(ctx, in.AthleteID)
	if err != nil {
		return nil, err
	}
	if !in.IsPractice && s.athletes.RemainingToday(ctx, in.AthleteID) <= 0 {
		metrics.RecordDailyCapRejection()
		return nil, athlete.ErrDailyCapReached
	}

	jumpID := jumpIDPrefix + uuid.NewString()
	sess, err := s.sessions.Consume(ctx, in.Proof.SessionID, in.Proof.Nonce, jumpID)
	if err != nil {
		return nil, err
	}
	if sess.AthleteID != profile.ID {
		return nil, session.ErrNotFound
	}

	video, err := s.blobs.CreateUpload(ctx, jumpID, blobstore.KindVideo)
	if err != nil {
		return nil, fmt.Errorf("granting video upload: %w", err)
	}
	sensor, err := s.blobs.CreateUpload(ctx, jumpID, blobstore.KindSensor)
	if err != nil {
		return nil, fmt.Errorf("granting sensor upload: %w", err)
	}

	jump := &model.Jump{
		ID:           jumpID,
		AthleteID:    in.AthleteID,
		SessionID:    sess.ID,
		VideoBlobID:  video.BlobID,
		SensorBlobID: sensor.BlobID,
		Proof:        in.Proof,
		IsPractice:   in.IsPractice,
	}
	if err := s.jumps.Create(ctx, jump); err != nil {
		return nil, err
	}

	metrics.RecordJumpSubmitted()
	s.logger.Info(ctx, "jump submitted",
		logger.String("jumpID", jumpID),
		logger.String("athleteID", in.AthleteID),
		logger.Bool("practice", in.IsPractice),
	)

	stored, err := s.jumps.Get(ctx, jumpID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{
		Jump:         stored,
		VideoUpload:  video,
		SensorUpload: sensor,
	}, nil
}

// ConfirmUploaded signals that both artifacts are in place and enqueues the
// measurement task. The task deadline bounds the end-to-end measurement.
func (s *Service) ConfirmUploaded(ctx context.Context, jumpID string) error {
	if err := s.ready(); err != nil {
		return err
	}

	jump, err := s.jumps.Get(ctx, jumpID)
	if err != nil {
		return err
	}
	if jump.Status != model.StatusUploading {
		return repository.ErrInvalidTransition
	}

	deadline := time.Now().Add(time.Duration(s.cfg.MeasureDeadlineSeconds) * time.Second)
	if !s.queue.Enqueue(ctx, taskqueue.Task{JumpID: jumpID, Deadline: deadline}) {
		return ErrQueueFull
	}
	return nil
}

// GetJump returns a jump snapshot.
func (s *Service) GetJump(ctx context.Context, jumpID string) (*model.Jump, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.jumps.Get(ctx, jumpID)
}

// ListJumps returns an athlete's jumps, newest first.
func (s *Service) ListJumps(ctx context.Context, athleteID string) ([]*model.Jump, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.jumps.ListByAthlete(ctx, athleteID)
}

// --- Certificates ---

// IssueCertificate signs a certificate for a completed jump.
func (s *Service) IssueCertificate(ctx context.Context, jumpID string) (*vpc.Certificate, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.issuer.Issue(ctx, jumpID)
}

// VerifyCertificate checks a stored certificate's signature and returns its
// public claims.
func (s *Service) VerifyCertificate(ctx context.Context, certificateID string) (*vpc.Claims, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.issuer.Verify(ctx, certificateID)
}

// VerifySharedCertificate resolves a share token to its certificate claims.
func (s *Service) VerifySharedCertificate(ctx context.Context, token string) (*vpc.Claims, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	certificateID, err := s.issuer.ParseShareToken(token)
	if err != nil {
		return nil, err
	}
	return s.issuer.Verify(ctx, certificateID)
}

// ExportCertificate builds the portable, offline-verifiable form of a
// certificate.
func (s *Service) ExportCertificate(ctx context.Context, certificateID string) (*vpc.Portable, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.issuer.ExportPortable(ctx, certificateID, s.cfg.BaseURL)
}

// SigningPublicKey returns the certificate verification key.
func (s *Service) SigningPublicKey() ed25519.PublicKey {
	if err := s.ready(); err != nil {
		return nil
	}
	return s.issuer.PublicKey()
}

// --- Leaderboard ---

// TopN returns the leaderboard slice matching the filter.
func (s *Service) TopN(ctx context.Context, f repository.Filter, n int) ([]repository.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.leaderboard.TopN(ctx, f, n)
}

// Rank returns an athlete's ranked personal best.
func (s *Service) Rank(ctx context.Context, athleteID string) (repository.Entry, error) {
	if err := s.ready(); err != nil {
		return repository.Entry{}, err
	}
	return s.leaderboard.Rank(ctx, athleteID)
}
