package oracle

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/pkg/metrics"
)

// Default stub configuration constants.
const (
	defaultStubMinLatency = 80 * time.Millisecond
	defaultStubMaxLatency = 150 * time.Millisecond
	stubFPS               = 30.0
)

// StubOption applies a configuration option to the StubAnalyzer.
type StubOption func(*StubAnalyzer)

// WithLatencyRange sets the simulated latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) StubOption {
	return func(s *StubAnalyzer) {
		if minLatency > 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// StubAnalyzer implements Analyzer with simulated vision analysis. The
// verdict is a pure function of the jump id, so the same submission always
// measures the same regardless of retries.
type StubAnalyzer struct {
	minLatency time.Duration
	maxLatency time.Duration
}

// NewStubAnalyzer creates a stub analyzer with configuration options.
func NewStubAnalyzer(opts ...StubOption) *StubAnalyzer {
	s := &StubAnalyzer{
		minLatency: defaultStubMinLatency,
		maxLatency: defaultStubMaxLatency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze fabricates a plausible analysis seeded by the jump id.
func (s *StubAnalyzer) Analyze(ctx context.Context, req Request) (*model.OracleAnalysis, error) {
	seed := fnv.New64a()
	seed.Write([]byte(req.JumpID))
	rng := rand.New(rand.NewSource(int64(seed.Sum64()))) //nolint:gosec // simulation, not crypto

	latency := s.minLatency + time.Duration(rng.Int63n(int64(s.maxLatency-s.minLatency)))
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(latency):
	}

	fps := req.FPS
	if fps <= 0 {
		fps = stubFPS
	}

	// Flight times land in the plausible 350 to 700 ms band.
	flightMs := 350 + rng.Float64()*350
	takeoff := 30 + rng.Intn(60)
	landing := takeoff + int(flightMs/1000*fps)

	analysis := &model.OracleAnalysis{
		TakeoffFrame:   takeoff,
		LandingFrame:   landing,
		FPS:            fps,
		NonceVisible:   true,
		NonceMatches:   true,
		IMUCorrelation: 0.8 + rng.Float64()*0.18,
		Confidence:     0.82 + rng.Float64()*0.15,
	}
	if req.CalibrationHeightIn > 0 {
		// Photogrammetric estimate tracks the chronometric one within a
		// few percent, as a calibrated frame analysis would.
		g := 9.80665
		t := flightMs / 1000
		chronoIn := g * t * t / 8 * 39.3700787
		analysis.PhotoHeightIn = chronoIn * (0.95 + rng.Float64()*0.1)
	}

	metrics.RecordOracleCall("ok")
	return analysis, nil
}
