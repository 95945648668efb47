package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	werrors "github.com/Brownie44l1/webby/internal/errors"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Address)
	assert.Equal(t, uint16(8080), cfg.Port)
	assert.Equal(t, 10000, cfg.Backlog)
	assert.Equal(t, 1024, cfg.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "stdout", cfg.AccessLog)
	assert.Equal(t, "stderr", cfg.ErrorLog)
	assert.False(t, cfg.ResolveHostnames)
	assert.Zero(t, cfg.RateLimit)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WEBBY_ADDRESS", "0.0.0.0")
	t.Setenv("WEBBY_PORT", "9090")
	t.Setenv("WEBBY_BACKLOG", "128")
	t.Setenv("WEBBY_READ_TIMEOUT", "5s")
	t.Setenv("WEBBY_DEBUG", "true")
	t.Setenv("WEBBY_RATE_LIMIT", "2.5")
	t.Setenv("WEBBY_MAX_CONNECTIONS", "not-a-number")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Address)
	assert.Equal(t, uint16(9090), cfg.Port)
	assert.Equal(t, 128, cfg.Backlog)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2.5, cfg.RateLimit)
	// Unparseable values fall back to the default
	assert.Equal(t, 1024, cfg.MaxConnections)
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("WEBBY_PORT", "70000")
	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, werrors.InvalidConfig))

	t.Setenv("WEBBY_PORT", "8080")
	t.Setenv("WEBBY_BACKLOG", "0")
	_, err = LoadFromEnv()
	require.Error(t, err)
	assert.True(t, werrors.IsConfiguration(err))
}

func TestBindFlags(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("webby", pflag.ContinueOnError)
	cfg.BindFlags(fs)

	require.NoError(t, fs.Parse([]string{"-p", "3000", "--read-timeout", "2s", "--debug", "--rate-limit", "10"}))
	assert.Equal(t, uint16(3000), cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 10.0, cfg.RateLimit)

	// Unset flags keep loaded values
	assert.Equal(t, "localhost", cfg.Address)
	assert.Equal(t, 10000, cfg.Backlog)
	assert.False(t, fs.Changed("address"))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.MaxConnections = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RateLimit = 5
	cfg.RateBurst = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.StaticRoot = filepath.Join(t.TempDir(), "missing")
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, werrors.InvalidConfig))

	cfg.StaticRoot = t.TempDir()
	assert.NoError(t, cfg.Validate())
}
