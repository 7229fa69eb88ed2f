// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Scoring, capping, and session knobs are explicit values handed to the
//   components that need them; nothing reads ambient state.
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BaseURL is the public origin used in certificate verification links.
	BaseURL string `koanf:"base_url"`

	// TaskQueueSize bounds the in-memory measurement task queue.
	TaskQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of measurement workers.
	WorkerCount int `koanf:"worker_count"`

	// SessionTTLSeconds is the capture-session validity window.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// SessionRetention keeps expired sessions around for audit before purge.
	SessionRetentionHours int `koanf:"session_retention_hours"`

	// DailyJumpCap limits submissions per athlete per rolling UTC day.
	DailyJumpCap int `koanf:"daily_jump_cap"`

	// MaxMeasureAttempts bounds oracle retries before a jump fails.
	MaxMeasureAttempts int `koanf:"max_measure_attempts"`

	// MeasureDeadlineSeconds is the per-task processing deadline.
	MeasureDeadlineSeconds int `koanf:"measure_deadline_seconds"`

	// OracleURL points at the external video analysis service. Empty selects
	// the built-in stub analyzer.
	OracleURL string `koanf:"oracle_url"`

	// OracleTimeoutSeconds bounds a single oracle call.
	OracleTimeoutSeconds int `koanf:"oracle_timeout_seconds"`

	// TierPhase selects the tier fusion table: "launch" or "enforced".
	TierPhase string `koanf:"tier_phase"`

	// PhysicsFloor is the minimum physics gate score; below it a jump is
	// flagged for review rather than scored.
	PhysicsFloor float64 `koanf:"physics_floor"`

	// MinDeviceTrust is the floor for a device key to participate in gate
	// scoring at all.
	MinDeviceTrust float64 `koanf:"min_device_trust"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// RankRecomputeSeconds is the cached-rank refresh interval.
	RankRecomputeSeconds int `koanf:"rank_recompute_seconds"`
}

// New creates a Config populated with launch defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		BaseURL:               "https://youthperformance.com",
		TaskQueueSize:         10_000,
		WorkerCount:           runtime.NumCPU() * 2,
		SessionTTLSeconds:     120,
		SessionRetentionHours: 24,
		DailyJumpCap:          20,
		MaxMeasureAttempts:    3,
		MeasureDeadlineSeconds: 90,
		OracleURL:             "",
		OracleTimeoutSeconds:  30,
		TierPhase:             "launch",
		PhysicsFloor:          0.5,
		MinDeviceTrust:        0.5,
		MaxLeaderboardLimit:   100,
		RankRecomputeSeconds:  60,
	}
}
