// Package config loads mayachat configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all mayachat configuration.
type Config struct {
	// Chat service connection
	Server ServerConfig `yaml:"server"`

	// Local conversation history
	History HistoryConfig `yaml:"history"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Demo server (serve subcommand)
	Serve ServeConfig `yaml:"serve"`
}

// ServerConfig configures the connection to the chat service.
type ServerConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// HistoryConfig configures local transcript persistence.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	Theme            string `yaml:"theme"` // dark, light
	PropertyPageSize int    `yaml:"property_page_size"`
}

// ServeConfig configures the built-in demo server.
type ServeConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	GeminiAPIKey   string   `yaml:"gemini_api_key"`
	GeminiModel    string   `yaml:"gemini_model"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     "http://localhost:8080",
			Timeout: "30s",
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: defaultDatabasePath(),
		},
		UI: UIConfig{
			Theme:            "dark",
			PropertyPageSize: 3,
		},
		Serve: ServeConfig{
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"*"},
			GeminiModel:    "gemini-2.0-flash",
		},
	}
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mayachat.db"
	}
	return filepath.Join(home, ".mayachat", "history.db")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mayachat.yaml"
	}
	return filepath.Join(home, ".mayachat", "config.yaml")
}

// Load reads configuration from the given path. A missing file yields the
// defaults. A .env file in the working directory and process environment
// variables override the file's values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides. A local .env
// file is loaded first so dev setups work without exporting anything.
func (c *Config) applyEnvOverrides() {
	_ = godotenv.Load()

	if url := os.Getenv("MAYACHAT_SERVER_URL"); url != "" {
		c.Server.URL = url
	}
	if timeout := os.Getenv("MAYACHAT_TIMEOUT"); timeout != "" {
		c.Server.Timeout = timeout
	}
	if path := os.Getenv("MAYACHAT_DB"); path != "" {
		c.History.DatabasePath = path
	}
	if v := os.Getenv("MAYACHAT_HISTORY"); v == "false" || v == "0" {
		c.History.Enabled = false
	}
	if theme := os.Getenv("MAYACHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if addr := os.Getenv("MAYACHAT_LISTEN_ADDR"); addr != "" {
		c.Serve.ListenAddr = addr
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Serve.GeminiAPIKey = key
	}
}

// RequestTimeout parses the server timeout, falling back to 30 seconds.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
