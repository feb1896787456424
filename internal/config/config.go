package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the well-known HTTP port; binding it usually needs privileges.
	DefaultPort = 80

	DefaultMinDelaySeconds = 0
	DefaultMaxDelaySeconds = 5

	defaultReadTimeout     = 15
	defaultWriteTimeout    = 30
	defaultIdleTimeout     = 60
	defaultShutdownTimeout = 10

	defaultRequestIDHeader = "X-Request-ID"

	// queueWaitMargin is kept free at the end of the write window for writing a reply.
	queueWaitMargin = 500 * time.Millisecond
)

// Config represents the main configuration structure for slowpoke
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Delay   DelayConfig   `yaml:"delay"`
	Limits  LimitsConfig  `yaml:"limits"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the listener configuration
type ServerConfig struct {
	Port     int            `yaml:"port"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
}

// TimeoutsConfig holds server timeouts in seconds
type TimeoutsConfig struct {
	Read     int `yaml:"read"`
	Write    int `yaml:"write"`
	Idle     int `yaml:"idle"`
	Shutdown int `yaml:"shutdown"`
}

// DelayConfig bounds the simulated latency, inclusive, in whole seconds.
type DelayConfig struct {
	MinSeconds int `yaml:"min_seconds"`
	MaxSeconds int `yaml:"max_seconds"`
}

// LimitsConfig caps concurrently running handlers. Zero means unbounded.
type LimitsConfig struct {
	MaxInFlight int `yaml:"max_in_flight"`
}

// LoggingConfig controls the zerolog base logger and request middleware.
type LoggingConfig struct {
	Level         string          `yaml:"level"`
	Format        string          `yaml:"format"`
	IncludeCaller bool            `yaml:"include_caller"`
	AccessLog     bool            `yaml:"access_log"`
	RequestID     RequestIDConfig `yaml:"request_id"`
}

// RequestIDConfig configures request id propagation.
type RequestIDConfig struct {
	Enabled bool   `yaml:"enabled"`
	Header  string `yaml:"header"`
}

// Default returns a configuration populated with every default.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{Port: DefaultPort},
		Delay: DelayConfig{
			MinSeconds: DefaultMinDelaySeconds,
			MaxSeconds: DefaultMaxDelaySeconds,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			AccessLog: true,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfig loads configuration from the specified YAML file.
// Keys absent from the file keep their default value.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filePath, err)
	}
	return cfg, nil
}

// LoadOptional loads filePath when it exists and falls back to Default otherwise.
func LoadOptional(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadConfig(filePath)
}

// ApplyDefaults fills timeouts and headers that were left unset.
func (c *Config) ApplyDefaults() {
	t := &c.Server.Timeouts
	if t.Read <= 0 {
		t.Read = defaultReadTimeout
	}
	if t.Write <= 0 {
		t.Write = defaultWriteTimeout
	}
	if t.Idle <= 0 {
		t.Idle = defaultIdleTimeout
	}
	if t.Shutdown <= 0 {
		t.Shutdown = defaultShutdownTimeout
	}
	if c.Logging.RequestID.Header == "" {
		c.Logging.RequestID.Header = defaultRequestIDHeader
	}
}

// Validate reports the first inconsistency found in the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 0-65535", c.Server.Port)
	}
	if c.Delay.MinSeconds < 0 || c.Delay.MaxSeconds < 0 {
		return fmt.Errorf("delay bounds must not be negative (min=%d, max=%d)", c.Delay.MinSeconds, c.Delay.MaxSeconds)
	}
	if c.Delay.MinSeconds > c.Delay.MaxSeconds {
		return fmt.Errorf("delay.min_seconds %d exceeds delay.max_seconds %d", c.Delay.MinSeconds, c.Delay.MaxSeconds)
	}
	if c.Limits.MaxInFlight < 0 {
		return fmt.Errorf("limits.max_in_flight must not be negative, got %d", c.Limits.MaxInFlight)
	}
	// A reply written after the write deadline is dropped by net/http. Queue
	// wait in the in-flight limiter is bounded separately by QueueWait.
	if c.Server.Timeouts.Write <= c.Delay.MaxSeconds {
		return fmt.Errorf("server.timeouts.write (%ds) must exceed delay.max_seconds (%ds)",
			c.Server.Timeouts.Write, c.Delay.MaxSeconds)
	}
	return nil
}

// QueueWait is how long a request may wait for an in-flight slot and still
// have its reply written within the write timeout after the longest delay.
func (c *Config) QueueWait() time.Duration {
	wait := time.Duration(c.Server.Timeouts.Write-c.Delay.MaxSeconds)*time.Second - queueWaitMargin
	if wait <= 0 {
		return time.Millisecond
	}
	return wait
}
