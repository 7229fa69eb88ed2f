package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/youthperformance/xlens/pkg/logger"
	"github.com/youthperformance/xlens/pkg/metrics"
)

const defaultMaxLimit = 100

// Option applies a configuration option to the InMemoryLeaderboard.
type Option func(*InMemoryLeaderboard)

// WithMaxLimit bounds the page size of TopN queries.
func WithMaxLimit(limit int) Option {
	return func(l *InMemoryLeaderboard) {
		if limit > 0 {
			l.maxLimit = limit
		}
	}
}

// InMemoryLeaderboard implements LeaderboardStore. One entry per athlete
// holds the personal best; cohort views are filtered projections of the same
// entries, so an improved best updates every cohort at once. Global ranks
// are cached and rebuilt in batch rather than on every write.
type InMemoryLeaderboard struct {
	mu       sync.RWMutex
	entries  map[string]*Entry // athlete id -> personal best
	ranks    map[string]int    // athlete id -> cached global rank
	maxLimit int
	logger   logger.Logger
}

// NewInMemoryLeaderboard creates an empty leaderboard.
func NewInMemoryLeaderboard(opts ...Option) *InMemoryLeaderboard {
	l := &InMemoryLeaderboard{
		entries:  make(map[string]*Entry),
		ranks:    make(map[string]int),
		maxLimit: defaultMaxLimit,
		logger:   logger.Get().Named("leaderboard"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// UpdateBest installs e as the athlete's personal best if strictly higher
// than the current one. Equal heights keep the incumbent, so re-processing
// an already counted jump can never churn the board.
func (l *InMemoryLeaderboard) UpdateBest(ctx context.Context, e Entry) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.entries[e.AthleteID]
	if ok && e.HeightIn <= cur.HeightIn {
		return false, nil
	}

	cp := e
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	l.entries[e.AthleteID] = &cp

	metrics.RecordLeaderboardUpdate()
	l.logger.Info(ctx, "personal best updated",
		logger.String("athleteID", e.AthleteID),
		logger.Float64("heightIn", e.HeightIn),
	)
	return true, nil
}

// Rank returns the athlete's cached global rank and entry. Rank 0 means the
// cache has not been rebuilt since the entry appeared.
func (l *InMemoryLeaderboard) Rank(_ context.Context, athleteID string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[athleteID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	out := *e
	out.Rank = l.ranks[athleteID]
	return out, nil
}

// TopN returns the top n entries of a cohort ordered by height descending,
// ties broken by earliest achievement.
func (l *InMemoryLeaderboard) TopN(_ context.Context, f Filter, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	if n > l.maxLimit {
		n = l.maxLimit
	}

	l.mu.RLock()
	matched := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if f.matches(e) {
			cp := *e
			cp.Rank = l.ranks[e.AthleteID]
			matched = append(matched, cp)
		}
	}
	l.mu.RUnlock()

	sort.Slice(matched, func(i, k int) bool {
		if matched[i].HeightIn != matched[k].HeightIn {
			return matched[i].HeightIn > matched[k].HeightIn
		}
		return matched[i].UpdatedAt.Before(matched[k].UpdatedAt)
	})
	if len(matched) > n {
		matched = matched[:n]
	}
	return matched, nil
}

// RecomputeRanks rebuilds the cached global ranks in one pass.
func (l *InMemoryLeaderboard) RecomputeRanks(_ context.Context) {
	start := time.Now()

	l.mu.Lock()
	ordered := make([]*Entry, 0, len(l.entries))
	for _, e := range l.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, k int) bool {
		if ordered[i].HeightIn != ordered[k].HeightIn {
			return ordered[i].HeightIn > ordered[k].HeightIn
		}
		return ordered[i].UpdatedAt.Before(ordered[k].UpdatedAt)
	})
	ranks := make(map[string]int, len(ordered))
	for i, e := range ordered {
		ranks[e.AthleteID] = i + 1
	}
	l.ranks = ranks
	total := len(ordered)
	l.mu.Unlock()

	metrics.UpdateTotalRankedAthletes(total)
	metrics.RecordRankRecomputeLatency(float64(time.Since(start).Milliseconds()))
}

// Remove drops an athlete's entry.
func (l *InMemoryLeaderboard) Remove(_ context.Context, athleteID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[athleteID]; !ok {
		return ErrNotFound
	}
	delete(l.entries, athleteID)
	delete(l.ranks, athleteID)
	return nil
}

// Count returns the number of athletes holding an entry.
func (l *InMemoryLeaderboard) Count(_ context.Context) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (f Filter) matches(e *Entry) bool {
	if f.AgeGroup != "" && e.AgeGroup != f.AgeGroup {
		return false
	}
	if f.Gender != "" && e.Gender != f.Gender {
		return false
	}
	if f.Country != "" && e.Country != f.Country {
		return false
	}
	if f.State != "" && e.State != f.State {
		return false
	}
	if f.City != "" && e.City != f.City {
		return false
	}
	if f.MinTier != "" && !e.Tier.AtLeast(f.MinTier) {
		return false
	}
	return true
}
