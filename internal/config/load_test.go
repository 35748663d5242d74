package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/constants"
)

func TestLoad_Defaults(t *testing.T) {
	// Point HOME at an empty dir so no real user config leaks in.
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Root)
	assert.False(t, cfg.Strict)
	assert.Equal(t, constants.DefaultHeartbeatInterval, cfg.HeartbeatInterval)
	assert.Equal(t, constants.DefaultStallThreshold, cfg.StallThreshold)
	assert.Equal(t, constants.DefaultPreflightTimeout, cfg.PreflightTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("WARDEN_ROOT", "/var/governance")
	t.Setenv("WARDEN_STRICT", "true")
	t.Setenv("WARDEN_HEARTBEAT_INTERVAL", "2m")
	t.Setenv("WARDEN_STALL_THRESHOLD", "45m")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/var/governance", cfg.Root)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 2*time.Minute, cfg.HeartbeatInterval)
	assert.Equal(t, 45*time.Minute, cfg.StallThreshold)
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	assert.NoError(t, Validate(&cfg))

	bad := defaults()
	bad.Root = ""
	assert.Error(t, Validate(&bad))

	negative := defaults()
	negative.StallThreshold = -time.Second
	assert.Error(t, Validate(&negative))

	assert.Error(t, Validate(nil))
}
