// Package registry establishes and continuously adjudicates which physical
// devices are trustworthy signers of capture evidence.
//
// Trust is monotonic: it starts at 1.0 on first registration and can only
// move down. Revocation pins it to zero permanently. Both properties hold
// under concurrent writers via compare-and-only-lower updates inside the
// store lock.
package registry

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/pkg/logger"
	"github.com/youthperformance/xlens/pkg/metrics"
)

const (
	initialTrust    = 1.0
	defaultMinTrust = 0.5
	keyIDPrefix     = "dk_"
)

// DeviceKey is the public half of one hardware-attested signing key pair.
type DeviceKey struct {
	ID               string
	AthleteID        string
	PublicKey        string // base64 DER SubjectPublicKeyInfo
	Platform         model.Platform
	DeviceModel      string
	OSVersion        string
	HardwareLevel    model.HardwareLevel
	AttestationChain []string
	TrustScore       float64
	CreatedAt        time.Time
	LastUsedAt       time.Time
	RevokedAt        time.Time // zero while active
	RevocationReason string
}

// Revoked reports whether the key has been permanently retired.
func (k *DeviceKey) Revoked() bool {
	return !k.RevokedAt.IsZero()
}

// Validation is the gate-scoring view of a device key.
type Validation struct {
	Valid         bool
	Reason        string
	KeyID         string
	PublicKey     string
	HardwareLevel model.HardwareLevel
	TrustScore    float64
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithMinTrust sets the trust floor below which a key cannot participate in
// gate scoring.
func WithMinTrust(min float64) Option {
	return func(r *Registry) {
		if min >= 0 && min <= 1 {
			r.minTrust = min
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry is an in-memory device key store.
type Registry struct {
	mu       sync.RWMutex
	keys     map[string]*DeviceKey
	byPubKey map[string]string // publicKey -> key id
	minTrust float64
	now      func() time.Time
	logger   logger.Logger
}

// New constructs a Registry with default configuration.
func New(opts ...Option) *Registry {
	r := &Registry{
		keys:     make(map[string]*DeviceKey),
		byPubKey: make(map[string]string),
		minTrust: defaultMinTrust,
		now:      time.Now,
		logger:   logger.Get().Named("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterInput carries everything a client submits at key enrollment.
type RegisterInput struct {
	AthleteID        string
	PublicKey        string
	Platform         model.Platform
	DeviceModel      string
	OSVersion        string
	HardwareLevel    model.HardwareLevel
	AttestationChain []string
}

// Register enrolls a device key, or refreshes it when the public key is
// already known. Re-registration is an idempotent no-op that returns the
// existing key. Returns the key and whether it was newly created.
func (r *Registry) Register(ctx context.Context, in RegisterInput) (*DeviceKey, bool, error) {
	if in.PublicKey == "" {
		return nil, false, ErrMissingPublicKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if id, ok := r.byPubKey[in.PublicKey]; ok {
		existing := r.keys[id]
		existing.LastUsedAt = now
		return snapshot(existing), false, nil
	}

	key := &DeviceKey{
		ID:               keyIDPrefix + uuid.NewString(),
		AthleteID:        in.AthleteID,
		PublicKey:        in.PublicKey,
		Platform:         in.Platform,
		DeviceModel:      in.DeviceModel,
		OSVersion:        in.OSVersion,
		HardwareLevel:    in.HardwareLevel,
		AttestationChain: in.AttestationChain,
		TrustScore:       initialTrust,
		CreatedAt:        now,
		LastUsedAt:       now,
	}
	r.keys[key.ID] = key
	r.byPubKey[in.PublicKey] = key.ID

	metrics.RecordDeviceRegistered(string(in.HardwareLevel))
	r.logger.Info(ctx, "device key registered",
		logger.String("keyID", key.ID),
		logger.String("hardwareLevel", string(in.HardwareLevel)),
	)
	return snapshot(key), true, nil
}

// Revoke permanently retires a key: trust pinned to zero, revocation metadata
// stamped irreversibly. A second call fails with ErrAlreadyRevoked.
func (r *Registry) Revoke(ctx context.Context, keyID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[keyID]
	if !ok {
		return ErrKeyNotFound
	}
	if key.Revoked() {
		return ErrAlreadyRevoked
	}

	key.RevokedAt = r.now()
	key.RevocationReason = reason
	key.TrustScore = 0

	metrics.RecordDeviceRevoked()
	r.logger.Warn(ctx, "device key revoked",
		logger.String("keyID", keyID),
		logger.String("reason", reason),
	)
	return nil
}

// DegradeTrust lowers a key's trust to min(current, clamp(proposed, 0, 1)).
// Trust never moves upward short of a fresh registration under a new key.
// Returns the resulting score.
func (r *Registry) DegradeTrust(ctx context.Context, keyID string, proposed float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[keyID]
	if !ok {
		return 0, ErrKeyNotFound
	}

	clamped := math.Max(0, math.Min(1, proposed))
	if clamped < key.TrustScore {
		key.TrustScore = clamped
		r.logger.Warn(ctx, "device trust degraded",
			logger.String("keyID", keyID),
			logger.Float64("trust", clamped),
		)
	}
	return key.TrustScore, nil
}

// Validate returns the gate-scoring view of a key. Unknown, revoked, or
// sub-floor keys are reported not valid with a specific reason.
func (r *Registry) Validate(_ context.Context, keyID string) Validation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.keys[keyID]
	switch {
	case !ok:
		return Validation{Valid: false, Reason: "device key not found"}
	case key.Revoked():
		return Validation{Valid: false, Reason: "device key has been revoked"}
	case key.TrustScore < r.minTrust:
		return Validation{Valid: false, Reason: "device trust too low"}
	}

	return Validation{
		Valid:         true,
		KeyID:         key.ID,
		PublicKey:     key.PublicKey,
		HardwareLevel: key.HardwareLevel,
		TrustScore:    key.TrustScore,
	}
}

// TouchLastUsed stamps the key on each accepted submission.
func (r *Registry) TouchLastUsed(_ context.Context, keyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[keyID]
	if !ok {
		return ErrKeyNotFound
	}
	key.LastUsedAt = r.now()
	return nil
}

// Get returns a copy of the key.
func (r *Registry) Get(_ context.Context, keyID string) (*DeviceKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.keys[keyID]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return snapshot(key), nil
}

// ListForAthlete returns the athlete's active (non-revoked) keys.
func (r *Registry) ListForAthlete(_ context.Context, athleteID string) []*DeviceKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*DeviceKey
	for _, key := range r.keys {
		if key.AthleteID == athleteID && !key.Revoked() {
			out = append(out, snapshot(key))
		}
	}
	return out
}

// Count returns the number of registered keys.
func (r *Registry) Count(_ context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

func snapshot(k *DeviceKey) *DeviceKey {
	cp := *k
	return &cp
}
