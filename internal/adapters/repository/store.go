// Package repository defines the persistence interfaces for jumps and the
// cohort leaderboard, plus their in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/youthperformance/xlens/internal/athlete"
	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/internal/domain/tier"
)

// JumpStore provides read/write access to jump records.
type JumpStore interface {
	// Create persists a new jump in the uploading state.
	Create(ctx context.Context, j *model.Jump) error

	// Get returns a copy of the jump.
	Get(ctx context.Context, jumpID string) (*model.Jump, error)

	// Transition moves a jump from one lifecycle state to another. Only
	// forward transitions are legal; anything else returns
	// ErrInvalidTransition. Terminal states never transition again.
	Transition(ctx context.Context, jumpID string, from, to model.Status) error

	// SetResult records the measurement outcome fields on a jump. The jump
	// must be in the processing state.
	SetResult(ctx context.Context, jumpID string, result *model.Jump) error

	// LinkCertificate attaches an issued certificate to a completed jump.
	LinkCertificate(ctx context.Context, jumpID, certificateID string) error

	// ListByAthlete returns the athlete's jumps, newest first.
	ListByAthlete(ctx context.Context, athleteID string) ([]*model.Jump, error)

	// Count returns the number of jumps stored.
	Count(ctx context.Context) int
}

// Entry represents a leaderboard row.
type Entry struct {
	Rank        int
	AthleteID   string
	DisplayName string
	HeightIn    float64
	Tier        tier.Tier
	JumpID      string
	AgeGroup    athlete.AgeGroup
	Gender      string
	Country     string
	State       string
	City        string
	UpdatedAt   time.Time
}

// Filter narrows leaderboard queries to a cohort. Zero fields match all.
type Filter struct {
	AgeGroup athlete.AgeGroup
	Gender   string
	Country  string
	State    string
	City     string
	MinTier  tier.Tier
}

// LeaderboardStore provides read/write access to the ranking state.
type LeaderboardStore interface {
	// UpdateBest installs a new personal best if strictly higher than the
	// athlete's existing one. Returns true if the store updated the entry.
	UpdateBest(ctx context.Context, e Entry) (bool, error)

	// Rank returns the athlete's cached global rank and entry.
	// Returns ErrNotFound if the athlete holds no entry.
	Rank(ctx context.Context, athleteID string) (Entry, error)

	// TopN returns the top n entries of a cohort ordered by height desc.
	TopN(ctx context.Context, f Filter, n int) ([]Entry, error)

	// RecomputeRanks rebuilds the cached global ranks.
	RecomputeRanks(ctx context.Context)

	// Remove drops an athlete's entry, e.g. after an opt-out.
	Remove(ctx context.Context, athleteID string) error

	// Count returns the number of athletes holding an entry.
	Count(ctx context.Context) int
}
