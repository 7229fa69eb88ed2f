// Package athlete manages athlete profiles, cohort placement, and the daily
// submission cap.
//
// The service serves youth athletes only: ages 13 through 22 inclusive at
// registration. Age group placement derives from birth year so cohorts roll
// forward each calendar year without profile edits.
package athlete

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/youthperformance/xlens/pkg/logger"
	"github.com/youthperformance/xlens/pkg/metrics"
)

const (
	minAge = 13
	maxAge = 22

	defaultDailyCap = 20

	athleteIDPrefix = "ath_"
)

// Profile is one athlete's identity and cohort attributes.
type Profile struct {
	ID          string
	DisplayName string
	BirthYear   int
	Gender      string
	Country     string
	State       string
	City        string
	// StandingHeightIn is self-reported and untrusted. It feeds the
	// photogrammetric cross-check only, never the measurement itself.
	StandingHeightIn float64
	OptedOut         bool // excluded from public leaderboards
	CreatedAt        time.Time
}

// AgeGroup buckets athletes for cohort leaderboards.
type AgeGroup string

const (
	AgeGroup13to14 AgeGroup = "13-14"
	AgeGroup15to16 AgeGroup = "15-16"
	AgeGroup17to18 AgeGroup = "17-18"
	AgeGroup19to22 AgeGroup = "19-22"
)

// AgeGroupFor places an age into its cohort bucket. Out-of-range ages return
// the empty group.
func AgeGroupFor(age int) AgeGroup {
	switch {
	case age >= 13 && age <= 14:
		return AgeGroup13to14
	case age >= 15 && age <= 16:
		return AgeGroup15to16
	case age >= 17 && age <= 18:
		return AgeGroup17to18
	case age >= 19 && age <= 22:
		return AgeGroup19to22
	default:
		return ""
	}
}

// AgeAt returns the athlete's age in the given year.
func (p *Profile) AgeAt(year int) int {
	return year - p.BirthYear
}

// AgeGroupAt returns the athlete's cohort bucket in the given year.
func (p *Profile) AgeGroupAt(year int) AgeGroup {
	return AgeGroupFor(p.AgeAt(year))
}

// capState tracks one athlete's rolling daily submission count.
type capState struct {
	day   string // UTC date, YYYY-MM-DD
	count int
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithDailyCap sets the per-athlete daily submission limit.
func WithDailyCap(cap int) Option {
	return func(s *Store) {
		if cap > 0 {
			s.dailyCap = cap
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is an in-memory athlete profile store.
type Store struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	caps     map[string]*capState
	dailyCap int
	now      func() time.Time
	logger   logger.Logger
}

// NewStore constructs a Store with default configuration.
func NewStore(opts ...Option) *Store {
	s := &Store{
		profiles: make(map[string]*Profile),
		caps:     make(map[string]*capState),
		dailyCap: defaultDailyCap,
		now:      time.Now,
		logger:   logger.Get().Named("athlete"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries profile registration fields.
type CreateInput struct {
	DisplayName      string
	BirthYear        int
	Gender           string
	Country          string
	State            string
	City             string
	StandingHeightIn float64
}

// Create registers a new athlete profile. Age is validated against the
// service's 13 to 22 range as of the current UTC year.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Profile, error) {
	if strings.TrimSpace(in.DisplayName) == "" {
		return nil, ErrMissingDisplayName
	}
	age := s.now().UTC().Year() - in.BirthYear
	if age < minAge || age > maxAge {
		return nil, ErrAgeOutOfRange
	}

	p := &Profile{
		ID:               athleteIDPrefix + uuid.NewString(),
		DisplayName:      strings.TrimSpace(in.DisplayName),
		BirthYear:        in.BirthYear,
		Gender:           strings.ToLower(strings.TrimSpace(in.Gender)),
		Country:          strings.ToUpper(strings.TrimSpace(in.Country)),
		State:            strings.TrimSpace(in.State),
		City:             strings.TrimSpace(in.City),
		StandingHeightIn: in.StandingHeightIn,
		CreatedAt:        s.now(),
	}

	s.mu.Lock()
	s.profiles[p.ID] = p
	s.mu.Unlock()

	s.logger.Info(ctx, "athlete registered",
		logger.String("athleteID", p.ID),
		logger.String("ageGroup", string(p.AgeGroupAt(s.now().UTC().Year()))),
	)
	return clone(p), nil
}

// Get returns a copy of the profile.
func (s *Store) Get(_ context.Context, athleteID string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[athleteID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

// UpdateInput carries optional profile edits. Nil fields are left unchanged.
type UpdateInput struct {
	DisplayName      *string
	Gender           *string
	Country          *string
	State            *string
	City             *string
	StandingHeightIn *float64
}

// UpdateProfile applies the non-nil fields of in to the profile. Birth year
// is immutable; cohort placement always derives from the registered value.
func (s *Store) UpdateProfile(ctx context.Context, athleteID string, in UpdateInput) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[athleteID]
	if !ok {
		return nil, ErrNotFound
	}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, ErrMissingDisplayName
		}
		p.DisplayName = name
	}
	if in.Gender != nil {
		p.Gender = strings.ToLower(strings.TrimSpace(*in.Gender))
	}
	if in.Country != nil {
		p.Country = strings.ToUpper(strings.TrimSpace(*in.Country))
	}
	if in.State != nil {
		p.State = strings.TrimSpace(*in.State)
	}
	if in.City != nil {
		p.City = strings.TrimSpace(*in.City)
	}
	if in.StandingHeightIn != nil {
		p.StandingHeightIn = *in.StandingHeightIn
	}

	s.logger.Info(ctx, "athlete profile updated", logger.String("athleteID", athleteID))
	return clone(p), nil
}

// SetOptOut toggles leaderboard visibility for an athlete.
func (s *Store) SetOptOut(ctx context.Context, athleteID string, optOut bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[athleteID]
	if !ok {
		return ErrNotFound
	}
	p.OptedOut = optOut
	s.logger.Info(ctx, "athlete visibility changed",
		logger.String("athleteID", athleteID),
		logger.Bool("optedOut", optOut),
	)
	return nil
}

// ChargeDailyCap consumes one verified-submission slot for the current UTC
// day. The count resets when the UTC date rolls over. Returns
// ErrDailyCapReached when the athlete is out of slots.
func (s *Store) ChargeDailyCap(_ context.Context, athleteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[athleteID]; !ok {
		return ErrNotFound
	}

	today := s.now().UTC().Format("2006-01-02")
	st, ok := s.caps[athleteID]
	if !ok || st.day != today {
		st = &capState{day: today}
		s.caps[athleteID] = st
	}
	if st.count >= s.dailyCap {
		metrics.RecordDailyCapRejection()
		return ErrDailyCapReached
	}
	st.count++
	return nil
}

// RefundDailyCap returns a slot after a charge whose side effect was rolled
// back. Refunds apply only within the same UTC day as the charge.
func (s *Store) RefundDailyCap(_ context.Context, athleteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().UTC().Format("2006-01-02")
	if st, ok := s.caps[athleteID]; ok && st.day == today && st.count > 0 {
		st.count--
	}
}

// RemainingToday reports how many submission slots the athlete has left.
func (s *Store) RemainingToday(_ context.Context, athleteID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().UTC().Format("2006-01-02")
	st, ok := s.caps[athleteID]
	if !ok || st.day != today {
		return s.dailyCap
	}
	if st.count >= s.dailyCap {
		return 0
	}
	return s.dailyCap - st.count
}

// Count returns the number of registered athletes.
func (s *Store) Count(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

func clone(p *Profile) *Profile {
	cp := *p
	return &cp
}
