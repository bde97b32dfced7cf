// Package config loads and validates the service configuration from YAML,
// with .env support and environment-variable overrides for deploy-specific
// values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/archivist/internal/retry"
)

// Config represents the application configuration
type Config struct {
	Google  GoogleConfig  `yaml:"google"`
	Store   StoreConfig   `yaml:"store"`
	Queue   QueueConfig   `yaml:"queue"`
	Updater UpdaterConfig `yaml:"updater"`
	Retry   RetryConfig   `yaml:"retry,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// GoogleConfig holds the Docs/Drive API settings.
type GoogleConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	DriveFolderID   string `yaml:"drive_folder_id,omitempty"`
}

// StoreConfig holds the local persistence settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// QueueConfig holds the NATS JetStream settings.
type QueueConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream,omitempty"`
	Subject string `yaml:"subject,omitempty"`
	Durable string `yaml:"durable,omitempty"`
}

// UpdaterConfig tunes the update cycle.
type UpdaterConfig struct {
	// CharThreshold is the accumulated character count that triggers a
	// document flush.
	CharThreshold int `yaml:"char_threshold,omitempty"`
	// MinChunk is the minimum trimmed segment length for a partial patch
	// operation; smaller changes fall back to full replacement.
	MinChunk int `yaml:"min_chunk,omitempty"`
	// SyncInterval is the period of the Drive-folder mapping sync job, in
	// time.ParseDuration syntax (e.g. "15m").
	SyncInterval string `yaml:"sync_interval,omitempty"`
}

// RetryConfig configures the whole-cycle retry policy. Durations use
// time.ParseDuration syntax.
type RetryConfig struct {
	BackoffMode string `yaml:"backoff_mode,omitempty"` // fixed|linear|exponential
	Initial     string `yaml:"initial,omitempty"`
	Max         string `yaml:"max,omitempty"`
	MaxRetries  int    `yaml:"max_retries,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug|info|warn|error
	Format string `yaml:"format,omitempty"` // text|json
}

// Defaults applied by Load when the file leaves a value unset.
const (
	DefaultCharThreshold = 10000
	DefaultMinChunk      = 5
	DefaultSyncInterval  = "15m"
	DefaultSubject       = "archivist.updates"
	DefaultStream        = "ARCHIVIST"
	DefaultDurable       = "archivist-updater"
	DefaultMetricsAddr   = ":9090"
	DefaultStorePath     = "archivist.db"
)

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// .env is optional; process environment always wins.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyEnvOverrides lets deploy environments override file values without
// editing the YAML.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GOOGLE_CREDENTIALS_PATH"); v != "" {
		c.Google.CredentialsPath = v
	}
	if v := os.Getenv("GOOGLE_DRIVE_FOLDER_ID"); v != "" {
		c.Google.DriveFolderID = v
	}
	if v := os.Getenv("ARCHIVIST_NATS_URL"); v != "" {
		c.Queue.URL = v
	}
	if v := os.Getenv("ARCHIVIST_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

func (c *Config) applyDefaults() {
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Queue.Subject == "" {
		c.Queue.Subject = DefaultSubject
	}
	if c.Queue.Stream == "" {
		c.Queue.Stream = DefaultStream
	}
	if c.Queue.Durable == "" {
		c.Queue.Durable = DefaultDurable
	}
	if c.Updater.CharThreshold == 0 {
		c.Updater.CharThreshold = DefaultCharThreshold
	}
	if c.Updater.MinChunk == 0 {
		c.Updater.MinChunk = DefaultMinChunk
	}
	if c.Updater.SyncInterval == "" {
		c.Updater.SyncInterval = DefaultSyncInterval
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks values that would only fail later at runtime.
func (c *Config) Validate() error {
	if c.Google.CredentialsPath == "" {
		return fmt.Errorf("google.credentials_path is required (or set GOOGLE_CREDENTIALS_PATH)")
	}
	if c.Updater.CharThreshold < 0 {
		return fmt.Errorf("updater.char_threshold cannot be negative")
	}
	if c.Updater.MinChunk < 0 {
		return fmt.Errorf("updater.min_chunk cannot be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug|info|warn|error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if _, err := c.SyncPeriod(); err != nil {
		return err
	}
	if _, err := c.RetryPolicy(); err != nil {
		return err
	}
	return nil
}

// SyncPeriod parses the folder-sync interval.
func (c *Config) SyncPeriod() (time.Duration, error) {
	d, err := time.ParseDuration(c.Updater.SyncInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid updater.sync_interval %q: %w", c.Updater.SyncInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("updater.sync_interval must be positive, got %q", c.Updater.SyncInterval)
	}
	return d, nil
}

// RetryPolicy converts the retry section into a policy, falling back to
// defaults for unset fields.
func (c *Config) RetryPolicy() (retry.Policy, error) {
	var initial, maxDur time.Duration
	var err error
	if c.Retry.Initial != "" {
		if initial, err = time.ParseDuration(c.Retry.Initial); err != nil {
			return retry.Policy{}, fmt.Errorf("invalid retry.initial %q: %w", c.Retry.Initial, err)
		}
	}
	if c.Retry.Max != "" {
		if maxDur, err = time.ParseDuration(c.Retry.Max); err != nil {
			return retry.Policy{}, fmt.Errorf("invalid retry.max %q: %w", c.Retry.Max, err)
		}
	}
	return retry.NewPolicy(retry.BackoffMode(c.Retry.BackoffMode), initial, maxDur, c.Retry.MaxRetries), nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Google: GoogleConfig{
			CredentialsPath: "${GOOGLE_CREDENTIALS_PATH}",
			DriveFolderID:   "${GOOGLE_DRIVE_FOLDER_ID}",
		},
		Store: StoreConfig{Path: DefaultStorePath},
		Queue: QueueConfig{
			URL:     "nats://localhost:4222",
			Stream:  DefaultStream,
			Subject: DefaultSubject,
			Durable: DefaultDurable,
		},
		Updater: UpdaterConfig{
			CharThreshold: DefaultCharThreshold,
			MinChunk:      DefaultMinChunk,
			SyncInterval:  DefaultSyncInterval,
		},
		Metrics: MetricsConfig{Enabled: true, Addr: DefaultMetricsAddr},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
