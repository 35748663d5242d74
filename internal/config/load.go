package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/errors"
)

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (WARDEN_* prefix)
//  2. Project config (.warden/config.yaml in the working directory)
//  3. Global config (~/.warden/config.yaml)
//  4. Built-in defaults
//
// Missing config files are expected and skipped silently; only actual
// configuration problems return an error.
//
// The context parameter is accepted for API consistency; config reads are
// fast local I/O and are not canceled.
func Load(_ context.Context) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// setDefaults seeds the built-in defaults (lowest precedence).
func setDefaults(v *viper.Viper) {
	d := defaults()
	v.SetDefault("root", d.Root)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("heartbeat_interval", d.HeartbeatInterval)
	v.SetDefault("stall_threshold", d.StallThreshold)
	v.SetDefault("preflight_timeout", d.PreflightTimeout)
}

// loadGlobalConfig merges ~/.warden/config.yaml when present.
func loadGlobalConfig(v *viper.Viper) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil // no home directory, skip silently
	}
	return mergeConfigFile(v, filepath.Join(home, constants.WardenHome, constants.ConfigFileName))
}

// loadProjectConfig merges ./.warden/config.yaml when present.
func loadProjectConfig(v *viper.Viper) error {
	cwd, err := os.Getwd()
	if err != nil {
		return nil
	}
	return mergeConfigFile(v, filepath.Join(cwd, constants.WardenHome, constants.ConfigFileName))
}

// mergeConfigFile merges one config file into v, skipping missing files.
func mergeConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if stderrors.As(err, &notFound) {
			return nil
		}
		return errors.Wrapf(err, "failed to read config %s", path)
	}
	return nil
}

// viperDecoderOption builds the mapstructure hooks: duration strings like
// "30m" decode into time.Duration.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}
