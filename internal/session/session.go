// Package session issues short-lived capture sessions that bind a recording
// to a moment in time.
//
// Each session carries two nonces: a secret one the device echoes back inside
// the signed proof payload, and a short display nonce the athlete shows on
// camera. A session is single use. Consumption is atomic, so two submissions
// racing on the same session admit exactly one.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/youthperformance/xlens/pkg/logger"
	"github.com/youthperformance/xlens/pkg/metrics"
)

const (
	defaultTTL       = 120 * time.Second
	defaultRetention = 24 * time.Hour
	defaultGCPeriod  = time.Minute

	secretNonceBytes = 32
	displayNonceLen  = 6
	sessionIDPrefix  = "cs_"
)

// Display nonce alphabet omits easily confused glyphs (0/O, 1/I/L).
const displayAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// Session is one single-use capture window.
type Session struct {
	ID           string
	AthleteID    string
	DeviceKeyID  string
	SecretNonce  string // hex, echoed inside the signed payload
	DisplayNonce string // short code the athlete shows on camera
	TTL          time.Duration
	CreatedAt    time.Time
	ExpiresAt    time.Time
	UsedAt       time.Time // zero while unused
	UsedByJumpID string
}

// Used reports whether the session has been consumed.
func (s *Session) Used() bool {
	return !s.UsedAt.IsZero()
}

// AgeFraction returns elapsed lifetime as a fraction of the TTL at time at,
// clamped to [0, 1].
func (s *Session) AgeFraction(at time.Time) float64 {
	if s.TTL <= 0 {
		return 1
	}
	f := float64(at.Sub(s.CreatedAt)) / float64(s.TTL)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithTTL sets the capture window length.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithRetention sets how long expired sessions are kept for audit before the
// collector removes them.
func WithRetention(retention time.Duration) Option {
	return func(m *Manager) {
		if retention > 0 {
			m.retention = retention
		}
	}
}

// WithGCPeriod sets the collector sweep interval.
func WithGCPeriod(period time.Duration) Option {
	return func(m *Manager) {
		if period > 0 {
			m.gcPeriod = period
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager is an in-memory session store with background expiry collection.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	ttl       time.Duration
	retention time.Duration
	gcPeriod  time.Duration
	now       func() time.Time
	logger    logger.Logger

	gcCancel context.CancelFunc
	gcDone   chan struct{}
}

// NewManager constructs a Manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		ttl:       defaultTTL,
		retention: defaultRetention,
		gcPeriod:  defaultGCPeriod,
		now:       time.Now,
		logger:    logger.Get().Named("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create issues a fresh session bound to an athlete and device key.
func (m *Manager) Create(ctx context.Context, athleteID, deviceKeyID string) (*Session, error) {
	secret := make([]byte, secretNonceBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating session nonce: %w", err)
	}
	display, err := displayNonce()
	if err != nil {
		return nil, fmt.Errorf("generating display nonce: %w", err)
	}

	now := m.now()
	s := &Session{
		ID:           sessionIDPrefix + uuid.NewString(),
		AthleteID:    athleteID,
		DeviceKeyID:  deviceKeyID,
		SecretNonce:  hex.EncodeToString(secret),
		DisplayNonce: display,
		TTL:          m.ttl,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.RecordSessionCreated()
	m.logger.Debug(ctx, "capture session created",
		logger.String("sessionID", s.ID),
		logger.Duration("ttl", m.ttl),
	)
	return snapshot(s), nil
}

// Consume atomically validates and marks a session used. Validation order is
// existence, reuse, expiry, then nonce match, so the caller can distinguish a
// replay from a stale window. On success the returned snapshot reflects the
// session at consumption time.
func (m *Manager) Consume(ctx context.Context, sessionID, nonce, jumpID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		metrics.RecordSessionRejected("not_found")
		return nil, ErrNotFound
	}
	if s.Used() {
		metrics.RecordSessionRejected("already_used")
		return nil, ErrAlreadyUsed
	}
	now := m.now()
	if now.After(s.ExpiresAt) {
		metrics.RecordSessionRejected("expired")
		return nil, ErrExpired
	}
	if nonce != s.SecretNonce {
		metrics.RecordSessionRejected("nonce_mismatch")
		return nil, ErrNonceMismatch
	}

	s.UsedAt = now
	s.UsedByJumpID = jumpID

	metrics.RecordSessionConsumed()
	m.logger.Debug(ctx, "capture session consumed",
		logger.String("sessionID", sessionID),
		logger.String("jumpID", jumpID),
	)
	return snapshot(s), nil
}

// Get returns a copy of the session.
func (m *Manager) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(s), nil
}

// Count returns the number of sessions currently held.
func (m *Manager) Count(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartGC launches the background collector. Stop with StopGC.
func (m *Manager) StartGC(ctx context.Context) {
	gcCtx, cancel := context.WithCancel(ctx)
	m.gcCancel = cancel
	m.gcDone = make(chan struct{})

	go func() {
		defer close(m.gcDone)
		ticker := time.NewTicker(m.gcPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-gcCtx.Done():
				return
			case <-ticker.C:
				m.sweep(gcCtx)
			}
		}
	}()
}

// StopGC stops the background collector and waits for it to exit.
func (m *Manager) StopGC() {
	if m.gcCancel == nil {
		return
	}
	m.gcCancel()
	<-m.gcDone
}

// sweep removes sessions whose expiry is older than the retention window.
func (m *Manager) sweep(ctx context.Context) {
	cutoff := m.now().Add(-m.retention)

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Debug(ctx, "expired sessions collected", logger.Int("removed", removed))
	}
}

func displayNonce() (string, error) {
	out := make([]byte, displayNonceLen)
	max := big.NewInt(int64(len(displayAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = displayAlphabet[n.Int64()]
	}
	return string(out), nil
}

func snapshot(s *Session) *Session {
	cp := *s
	return &cp
}
