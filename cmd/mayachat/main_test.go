package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigAppliesFlagOverrides(t *testing.T) {
	t.Setenv("MAYACHAT_SERVER_URL", "")
	t.Setenv("MAYACHAT_TIMEOUT", "")

	origServer, origConfig, origTimeout := serverURL, configPath, timeout
	t.Cleanup(func() {
		serverURL, configPath, timeout = origServer, origConfig, origTimeout
	})

	// A missing config file falls back to defaults, so the flags are the
	// only source of the overridden values.
	configPath = filepath.Join(t.TempDir(), "nope.yaml")
	serverURL = "http://flags.example:9999"
	timeout = 5 * time.Second

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://flags.example:9999", cfg.Server.URL)
	assert.Equal(t, "5s", cfg.Server.Timeout)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout())
}

func TestLoadConfigKeepsDefaultsWithoutFlags(t *testing.T) {
	t.Setenv("MAYACHAT_SERVER_URL", "")
	t.Setenv("MAYACHAT_TIMEOUT", "")

	origServer, origConfig, origTimeout := serverURL, configPath, timeout
	t.Cleanup(func() {
		serverURL, configPath, timeout = origServer, origConfig, origTimeout
	})

	configPath = filepath.Join(t.TempDir(), "nope.yaml")
	serverURL = ""
	timeout = 0

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "30s", cfg.Server.Timeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
}
