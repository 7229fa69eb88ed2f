package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/pkg/logger"
)

// allowed forward transitions of the jump lifecycle.
var transitions = map[model.Status][]model.Status{
	model.StatusUploading:  {model.StatusProcessing, model.StatusFailed},
	model.StatusProcessing: {model.StatusComplete, model.StatusFlagged, model.StatusFailed},
}

func transitionAllowed(from, to model.Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// InMemoryJumpStore implements JumpStore over a map with per-store locking.
type InMemoryJumpStore struct {
	mu     sync.RWMutex
	jumps  map[string]*model.Jump
	logger logger.Logger
}

// NewInMemoryJumpStore creates an empty jump store.
func NewInMemoryJumpStore() *InMemoryJumpStore {
	return &InMemoryJumpStore{
		jumps:  make(map[string]*model.Jump),
		logger: logger.Get().Named("jumpstore"),
	}
}

// Create persists a new jump in the uploading state.
func (s *InMemoryJumpStore) Create(_ context.Context, j *model.Jump) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jumps[j.ID]; ok {
		return ErrDuplicateJump
	}
	cp := cloneJump(j)
	if cp.Status == "" {
		cp.Status = model.StatusUploading
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.jumps[j.ID] = cp
	return nil
}

// Get returns a copy of the jump.
func (s *InMemoryJumpStore) Get(_ context.Context, jumpID string) (*model.Jump, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jumps[jumpID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJump(j), nil
}

// Transition moves a jump forward through its lifecycle. The from state is
// checked under the lock, so concurrent workers racing to claim a jump see
// exactly one winner.
func (s *InMemoryJumpStore) Transition(ctx context.Context, jumpID string, from, to model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jumps[jumpID]
	if !ok {
		return ErrNotFound
	}
	if j.Status != from || !transitionAllowed(from, to) {
		return ErrInvalidTransition
	}

	j.Status = to
	if to.Terminal() {
		j.ProcessedAt = time.Now()
	}
	s.logger.Debug(ctx, "jump transitioned",
		logger.String("jumpID", jumpID),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
	)
	return nil
}

// SetResult records measurement outcome fields. The jump must still be
// processing; results never overwrite a terminal record.
func (s *InMemoryJumpStore) SetResult(_ context.Context, jumpID string, result *model.Jump) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jumps[jumpID]
	if !ok {
		return ErrNotFound
	}
	if j.Status != model.StatusProcessing {
		return ErrInvalidTransition
	}

	j.HeightInches = result.HeightInches
	j.HeightCm = result.HeightCm
	j.FlightTimeMs = result.FlightTimeMs
	j.Confidence = result.Confidence
	j.Gates = cloneGates(result.Gates)
	j.Analysis = cloneAnalysis(result.Analysis)
	j.Tier = result.Tier
	j.Issues = append([]string(nil), result.Issues...)
	return nil
}

// LinkCertificate attaches an issued certificate to a completed jump.
func (s *InMemoryJumpStore) LinkCertificate(_ context.Context, jumpID, certificateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jumps[jumpID]
	if !ok {
		return ErrNotFound
	}
	if j.Status != model.StatusComplete {
		return ErrInvalidTransition
	}
	j.CertificateID = certificateID
	return nil
}

// ListByAthlete returns the athlete's jumps, newest first.
func (s *InMemoryJumpStore) ListByAthlete(_ context.Context, athleteID string) ([]*model.Jump, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Jump
	for _, j := range s.jumps {
		if j.AthleteID == athleteID {
			out = append(out, cloneJump(j))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out, nil
}

// Count returns the number of jumps stored.
func (s *InMemoryJumpStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jumps)
}

func cloneJump(j *model.Jump) *model.Jump {
	cp := *j
	cp.Gates = cloneGates(j.Gates)
	cp.Analysis = cloneAnalysis(j.Analysis)
	cp.Issues = append([]string(nil), j.Issues...)
	return &cp
}

func cloneGates(g *model.GateScores) *model.GateScores {
	if g == nil {
		return nil
	}
	cp := *g
	return &cp
}

func cloneAnalysis(a *model.OracleAnalysis) *model.OracleAnalysis {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Flags = append([]string(nil), a.Flags...)
	return &cp
}
