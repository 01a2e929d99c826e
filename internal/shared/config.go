package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API         APIConfig         `toml:"api"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Enforcement EnforcementConfig `toml:"enforcement"`
	Logging     LoggingConfig     `toml:"logging"`
}

// APIConfig contains backend connection and retry settings.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	RetryBackoffMS int    `toml:"retry_backoff_ms"`
}

// Timeout returns the per-request timeout as a [time.Duration].
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the base retry delay as a [time.Duration].
func (c APIConfig) RetryBackoff() time.Duration {
	if c.RetryBackoffMS <= 0 {
		return time.Second
	}
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// DatabaseConfig contains local cache database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the loopback OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedirectURI returns the callback URL registered with the backend during
// OAuth link initiation.
func (c ServerConfig) RedirectURI() string {
	return fmt.Sprintf("http://%s:%d/callback", c.Host, c.Port)
}

// EnforcementConfig contains default enforcement options and poll cadence.
type EnforcementConfig struct {
	Aggressiveness      string `toml:"aggressiveness"`
	BlockCollabs        bool   `toml:"block_collabs"`
	BlockFeaturing      bool   `toml:"block_featuring"`
	BlockSongwriterOnly bool   `toml:"block_songwriter_only"`
	PollIntervalMS      int    `toml:"poll_interval_ms"`
}

// PollInterval returns the batch progress poll cadence as a [time.Duration].
func (c EnforcementConfig) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration to the specified path as TOML.
func SaveConfig(config *Config, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
