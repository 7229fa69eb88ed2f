// Package vpc issues and verifies signed performance certificates.
//
// A certificate is a COSE Sign1 envelope over a canonical CBOR claim set,
// signed with the service's Ed25519 key. The claims are pseudonymous: each
// certificate carries a fresh opaque athlete reference, never the athlete's
// identity, so two certificates cannot be linked to the same person.
// Anyone holding the envelope and the service public key can verify it
// offline; the HTTP verify endpoint adds a liveness check against the issuer.
package vpc

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/veraison/go-cose"
	"github.com/youthperformance/xlens/internal/adapters/repository"
	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/internal/domain/tier"
	"github.com/youthperformance/xlens/pkg/logger"
	"github.com/youthperformance/xlens/pkg/metrics"
)

const certIDPrefix = "vpc_"

// Claims is the signed payload of a certificate, encoded as canonical CBOR.
type Claims struct {
	CertificateID string        `cbor:"1,keyasint"`
	AthleteRef    string        `cbor:"2,keyasint"` // pseudonymous, fresh per certificate
	TestType      string        `cbor:"3,keyasint"`
	HeightInches  float64       `cbor:"4,keyasint"`
	HeightCm      float64       `cbor:"5,keyasint"`
	FlightTimeMs  float64       `cbor:"6,keyasint"`
	Tier          string        `cbor:"7,keyasint"`
	GatesPassed   []string      `cbor:"8,keyasint"`
	Confidence    float64       `cbor:"9,keyasint"`
	MeasuredAt    int64         `cbor:"10,keyasint"` // unix seconds
	Issuer        string        `cbor:"11,keyasint"`
	Capture       Provenance    `cbor:"12,keyasint"`
	Hashes        ContentHashes `cbor:"13,keyasint"`
}

// Provenance records the capture context under the issuer signature.
type Provenance struct {
	Platform     string  `cbor:"1,keyasint"`
	DeviceModel  string  `cbor:"2,keyasint"`
	OSVersion    string  `cbor:"3,keyasint,omitempty"`
	AppVersion   string  `cbor:"4,keyasint,omitempty"`
	CapturedAtMs int64   `cbor:"5,keyasint"`
	FPS          float64 `cbor:"6,keyasint"`
}

// ContentHashes binds the certificate to the exact artifacts measured.
type ContentHashes struct {
	VideoSHA256  string `cbor:"1,keyasint"`
	SensorSHA256 string `cbor:"2,keyasint"`
}

// Certificate pairs the claims with their signed envelope.
type Certificate struct {
	ID       string
	JumpID   string
	Claims   Claims
	Envelope []byte // COSE Sign1, CBOR encoded
	IssuedAt time.Time
}

// Option applies a configuration option to the Issuer.
type Option func(*Issuer)

// WithIssuerName sets the issuer string embedded in every certificate.
func WithIssuerName(name string) Option {
	return func(i *Issuer) {
		if name != "" {
			i.issuerName = name
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// Issuer signs and stores certificates.
type Issuer struct {
	mu     sync.Mutex
	certs  map[string]*Certificate // certificate id -> cert
	byJump map[string]string       // jump id -> certificate id

	jumps      repository.JumpStore
	keyID      string
	priv       ed25519.PrivateKey
	pub        ed25519.PublicKey
	issuerName string
	now        func() time.Time
	logger     logger.Logger
}

// NewIssuer constructs an Issuer around a signing key.
func NewIssuer(jumps repository.JumpStore, priv ed25519.PrivateKey, keyID string, opts ...Option) (*Issuer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrBadSigningKey
	}
	i := &Issuer{
		certs:      make(map[string]*Certificate),
		byJump:     make(map[string]string),
		jumps:      jumps,
		keyID:      keyID,
		priv:       priv,
		pub:        priv.Public().(ed25519.PublicKey),
		issuerName: "youthperformance.com",
		now:        time.Now,
		logger:     logger.Get().Named("vpc"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// PublicKey returns the verification key for the issuer's signatures.
func (i *Issuer) PublicKey() ed25519.PublicKey {
	return i.pub
}

// Issue signs a certificate for a completed jump. Issuing twice for the same
// jump returns the original certificate.
func (i *Issuer) Issue(ctx context.Context, jumpID string) (*Certificate, error) {
	i.mu.Lock()
	if id, ok := i.byJump[jumpID]; ok {
		cert := i.certs[id]
		i.mu.Unlock()
		return cert, nil
	}
	i.mu.Unlock()

	jump, err := i.jumps.Get(ctx, jumpID)
	if err != nil {
		return nil, fmt.Errorf("loading jump %s: %w", jumpID, err)
	}
	if jump.Status != model.StatusComplete {
		return nil, ErrJumpNotVerified
	}

	claims := Claims{
		CertificateID: certIDPrefix + uuid.NewString(),
		AthleteRef:    uuid.NewString(), // fresh per certificate, unlinkable
		TestType:      jump.Proof.Capture.TestType,
		HeightInches:  jump.HeightInches,
		HeightCm:      jump.HeightCm,
		FlightTimeMs:  jump.FlightTimeMs,
		Tier:          jump.Tier,
		Confidence:    jump.Confidence,
		MeasuredAt:    jump.ProcessedAt.Unix(),
		Issuer:        i.issuerName,
		Capture: Provenance{
			Platform:     string(jump.Proof.Capture.Device.Platform),
			DeviceModel:  jump.Proof.Capture.Device.Model,
			OSVersion:    jump.Proof.Capture.Device.OSVersion,
			AppVersion:   jump.Proof.Capture.Device.AppVersion,
			CapturedAtMs: jump.Proof.Capture.StartedAtMs,
			FPS:          jump.Proof.Capture.FPS,
		},
		Hashes: ContentHashes{
			VideoSHA256:  jump.Proof.Hashes.VideoSHA256,
			SensorSHA256: jump.Proof.Hashes.SensorSHA256,
		},
	}
	if jump.Gates != nil {
		claims.GatesPassed = tier.GatesPassed(*jump.Gates)
	}

	envelope, err := i.sign(claims)
	if err != nil {
		return nil, fmt.Errorf("signing certificate for jump %s: %w", jumpID, err)
	}

	cert := &Certificate{
		ID:       claims.CertificateID,
		JumpID:   jumpID,
		Claims:   claims,
		Envelope: envelope,
		IssuedAt: i.now(),
	}

	i.mu.Lock()
	// a racing issue may have won; keep the first
	if id, ok := i.byJump[jumpID]; ok {
		existing := i.certs[id]
		i.mu.Unlock()
		return existing, nil
	}
	i.certs[cert.ID] = cert
	i.byJump[jumpID] = cert.ID
	i.mu.Unlock()

	if err := i.jumps.LinkCertificate(ctx, jumpID, cert.ID); err != nil {
		i.logger.Error(ctx, "linking certificate", logger.String("jumpID", jumpID), logger.Error(err))
	}

	metrics.RecordCertificateIssued()
	i.logger.Info(ctx, "certificate issued",
		logger.String("certificateID", cert.ID),
		logger.String("jumpID", jumpID),
		logger.String("tier", claims.Tier),
	)
	return cert, nil
}

// Get returns a stored certificate.
func (i *Issuer) Get(_ context.Context, certificateID string) (*Certificate, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	cert, ok := i.certs[certificateID]
	if !ok {
		return nil, ErrCertificateNotFound
	}
	return cert, nil
}

// Verify checks a certificate's signature and returns its public claims.
func (i *Issuer) Verify(ctx context.Context, certificateID string) (*Claims, error) {
	cert, err := i.Get(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if err := VerifyEnvelope(cert.Envelope, i.pub); err != nil {
		return nil, err
	}
	metrics.RecordCertificateVerify()
	return &cert.Claims, nil
}

// Count returns the number of issued certificates.
func (i *Issuer) Count(_ context.Context) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.certs)
}

// sign wraps canonical CBOR claims in a COSE Sign1 envelope.
func (i *Issuer) sign(claims Claims) ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("building canonical encoder: %w", err)
	}
	payload, err := em.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("encoding claims: %w", err)
	}

	signer, err := cose.NewSigner(cose.AlgorithmEdDSA, i.priv)
	if err != nil {
		return nil, fmt.Errorf("building signer: %w", err)
	}

	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelAlgorithm: cose.AlgorithmEdDSA,
				cose.HeaderLabelKeyID:     []byte(i.keyID),
			},
		},
		Payload: payload,
	}
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("signing envelope: %w", err)
	}
	return msg.MarshalCBOR()
}

// VerifyEnvelope checks a COSE Sign1 envelope against a public key. It is
// the offline half of certificate verification.
func VerifyEnvelope(envelope []byte, pub ed25519.PublicKey) error {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	verifier, err := cose.NewVerifier(cose.AlgorithmEdDSA, pub)
	if err != nil {
		return fmt.Errorf("building verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return nil
}

// DecodeClaims extracts the claim set from a verified envelope.
func DecodeClaims(envelope []byte) (*Claims, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	var claims Claims
	if err := cbor.Unmarshal(msg.Payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return &claims, nil
}
