package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Server.URL)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, 3, cfg.UI.PropertyPageSize)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  url: https://chat.vividrealty.example
  timeout: 10s
history:
  enabled: false
ui:
  theme: light
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://chat.vividrealty.example", cfg.Server.URL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "light", cfg.UI.Theme)
	// Untouched sections keep defaults.
	assert.Equal(t, ":8080", cfg.Serve.ListenAddr)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  url: http://file.example\n"), 0644))

	t.Setenv("MAYACHAT_SERVER_URL", "http://env.example")
	t.Setenv("MAYACHAT_HISTORY", "false")
	t.Setenv("MAYACHAT_THEME", "light")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example", cfg.Server.URL)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestRequestTimeoutFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Timeout = "not-a-duration"
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())

	cfg.Server.Timeout = "-5s"
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.URL = "http://saved.example"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://saved.example", loaded.Server.URL)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\n  theme: dark\n"), 0644))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, nil, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("ui:\n  theme: light\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "light", cfg.UI.Theme)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never reloaded")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\n  theme: dark\n"), 0644))

	reloaded := make(chan struct{}, 1)
	w, err := NewWatcher(path, nil, func(*Config) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0644))

	select {
	case <-reloaded:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(400 * time.Millisecond):
	}
}
