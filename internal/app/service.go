// Package app provides the core verification service that implements the
// dependencies required by the HTTP API.
package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	taskqueue "github.com/youthperformance/xlens/internal/adapters/mq/queue"
	workerpool "github.com/youthperformance/xlens/internal/adapters/mq/worker"
	"github.com/youthperformance/xlens/internal/adapters/repository"
	"github.com/youthperformance/xlens/internal/athlete"
	"github.com/youthperformance/xlens/internal/blobstore"
	"github.com/youthperformance/xlens/internal/config"
	"github.com/youthperformance/xlens/internal/domain/dedupe"
	"github.com/youthperformance/xlens/internal/domain/tier"
	"github.com/youthperformance/xlens/internal/measure"
	"github.com/youthperformance/xlens/internal/oracle"
	"github.com/youthperformance/xlens/internal/registry"
	"github.com/youthperformance/xlens/internal/session"
	"github.com/youthperformance/xlens/internal/vpc"
	"github.com/youthperformance/xlens/pkg/logger"
	"github.com/youthperformance/xlens/pkg/metrics"
)

// Service wires the verification pipeline together and exposes the
// operations the HTTP API depends on.
type Service struct {
	mu sync.RWMutex

	// Core components
	athletes    *athlete.Store
	registry    *registry.Registry
	sessions    *session.Manager
	jumps       repository.JumpStore
	leaderboard repository.LeaderboardStore
	blobs       blobstore.Store
	issuer      *vpc.Issuer
	queue       taskqueue.Queue
	pool        *workerpool.Pool
	engine      *measure.Engine
	deduper     dedupe.Deduper
	analyzer    oracle.Analyzer

	// Configuration
	cfg        *config.Config
	signingKey ed25519.PrivateKey

	// State
	started  bool
	cancelBg context.CancelFunc
	bgDone   sync.WaitGroup

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	s.logger.Info(ctx, "starting verification service...")

	if s.signingKey == nil {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return fmt.Errorf("generating signing key: %w", err)
		}
		s.signingKey = priv
		s.logger.Warn(ctx, "no signing key configured, generated an ephemeral one")
	}

	s.athletes = athlete.NewStore(athlete.WithDailyCap(s.cfg.DailyJumpCap))
	s.registry = registry.New(registry.WithMinTrust(s.cfg.MinDeviceTrust))
	s.sessions = session.NewManager(
		session.WithTTL(time.Duration(s.cfg.SessionTTLSeconds)*time.Second),
		session.WithRetention(time.Duration(s.cfg.SessionRetentionHours)*time.Hour),
	)
	s.jumps = repository.NewInMemoryJumpStore()
	s.leaderboard = repository.NewInMemoryLeaderboard(repository.WithMaxLimit(s.cfg.MaxLeaderboardLimit))
	if s.blobs == nil {
		s.blobs = blobstore.NewInMemoryStore(s.cfg.BaseURL)
	}
	s.deduper = dedupe.NewInMemoryDeduper()

	if s.analyzer == nil {
		if s.cfg.OracleURL != "" {
			s.analyzer = oracle.NewHTTPAnalyzer(s.cfg.OracleURL,
				oracle.WithTimeout(time.Duration(s.cfg.OracleTimeoutSeconds)*time.Second),
			)
			s.logger.Info(ctx, "using external analysis service", logger.String("url", s.cfg.OracleURL))
		} else {
			s.analyzer = oracle.NewStubAnalyzer()
			s.logger.Info(ctx, "using stub analyzer")
		}
	}

	issuer, err := vpc.NewIssuer(s.jumps, s.signingKey, "xlens-signing-1")
	if err != nil {
		return fmt.Errorf("building certificate issuer: %w", err)
	}
	s.issuer = issuer

	s.engine = measure.NewEngine(measure.Deps{
		Jumps:       s.jumps,
		Leaderboard: s.leaderboard,
		Registry:    s.registry,
		Sessions:    s.sessions,
		Athletes:    s.athletes,
		Analyzer:    s.analyzer,
		Blobs:       s.blobs,
		Deduper:     s.deduper,
	},
		measure.WithPolicy(tier.ForPhase(s.cfg.TierPhase)),
		measure.WithPhysicsFloor(s.cfg.PhysicsFloor),
	)

	s.queue = taskqueue.NewInMemoryQueue(taskqueue.WithCapacity(s.cfg.TaskQueueSize))
	s.pool = workerpool.NewPool(s.cfg.WorkerCount, s.queue, s.engine, s.queue,
		workerpool.WithMaxAttempts(s.cfg.MaxMeasureAttempts),
	)
	s.pool.Start(ctx)

	bgCtx, cancel := context.WithCancel(context.Background())
	s.cancelBg = cancel
	s.sessions.StartGC(bgCtx)
	s.bgDone.Add(1)
	go s.rankRecomputeLoop(bgCtx)

	s.started = true
	s.logger.Info(ctx, "verification service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.cfg.TaskQueueSize),
		logger.String("tierPhase", s.cfg.TierPhase),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping verification service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if s.cancelBg != nil {
		s.cancelBg()
	}
	s.sessions.StopGC()
	s.bgDone.Wait()

	s.started = false
	s.logger.Info(ctx, "verification service stopped")
}

func (s *Service) rankRecomputeLoop(ctx context.Context) {
	defer s.bgDone.Done()

	interval := time.Duration(s.cfg.RankRecomputeSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.leaderboard.RecomputeRanks(ctx)
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   s.started,
		"tierPhase": s.cfg.TierPhase,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	queueLen := s.queue.Len(ctx)
	stats["queueLength"] = queueLen
	stats["workerCount"] = s.pool.Size()
	stats["athletes"] = s.athletes.Count(ctx)
	stats["devices"] = s.registry.Count(ctx)
	stats["sessions"] = s.sessions.Count(ctx)
	stats["jumps"] = s.jumps.Count(ctx)
	stats["rankedAthletes"] = s.leaderboard.Count(ctx)
	stats["certificates"] = s.issuer.Count(ctx)

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.pool.Size())
	metrics.UpdateTotalRankedAthletes(s.leaderboard.Count(ctx))
	return stats
}
