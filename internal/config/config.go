// Package config loads WARDEN configuration from defaults, config files,
// and environment variables.
package config

import (
	"time"

	"github.com/mrz1836/warden/internal/constants"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// Config is the resolved runtime configuration.
type Config struct {
	// Root is the governance root directory.
	Root string `mapstructure:"root"`

	// Strict aborts startup on any doctor failure instead of serving
	// read-only (fail-open).
	Strict bool `mapstructure:"strict"`

	// HeartbeatInterval is the default interval for packets that require
	// heartbeats but do not set their own.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// StallThreshold is the floor on the heartbeat stall window.
	StallThreshold time.Duration `mapstructure:"stall_threshold"`

	// PreflightTimeout returns a submitted preflight to pending when it
	// waits this long without supervisor action.
	PreflightTimeout time.Duration `mapstructure:"preflight_timeout"`
}

// Validate checks the configuration for coherent values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return wardenerrors.Wrap(wardenerrors.ErrEmptyValue, "config")
	}
	if cfg.Root == "" {
		return wardenerrors.Wrap(wardenerrors.ErrEmptyValue, "root directory")
	}
	if cfg.HeartbeatInterval < 0 || cfg.StallThreshold < 0 || cfg.PreflightTimeout < 0 {
		return wardenerrors.Wrap(wardenerrors.ErrUsage, "timing overrides must be non-negative")
	}
	return nil
}

// defaults returns the built-in configuration.
func defaults() Config {
	return Config{
		Root:              ".",
		HeartbeatInterval: constants.DefaultHeartbeatInterval,
		StallThreshold:    constants.DefaultStallThreshold,
		PreflightTimeout:  constants.DefaultPreflightTimeout,
	}
}
