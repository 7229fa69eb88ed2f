package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if XLENS_CONFIG is set
//  3. env (prefix XLENS_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("XLENS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: XLENS_ADDR, XLENS_DAILY_JUMP_CAP, ...
	// Map env keys like XLENS_QUEUE_SIZE -> queue_size (flat keys).
	envProvider := env.Provider("XLENS_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "xlens_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SessionTTLSeconds <= 0:
		return fmt.Errorf("%w: session_ttl_seconds must be positive", ErrInvalidConfig)
	case c.DailyJumpCap <= 0:
		return fmt.Errorf("%w: daily_jump_cap must be positive", ErrInvalidConfig)
	case c.MaxMeasureAttempts <= 0:
		return fmt.Errorf("%w: max_measure_attempts must be positive", ErrInvalidConfig)
	case c.PhysicsFloor < 0 || c.PhysicsFloor > 1:
		return fmt.Errorf("%w: physics_floor must be in [0,1]", ErrInvalidConfig)
	case c.MinDeviceTrust < 0 || c.MinDeviceTrust > 1:
		return fmt.Errorf("%w: min_device_trust must be in [0,1]", ErrInvalidConfig)
	case c.TierPhase != "launch" && c.TierPhase != "enforced":
		return fmt.Errorf("%w: tier_phase must be launch or enforced", ErrInvalidConfig)
	}
	return nil
}
