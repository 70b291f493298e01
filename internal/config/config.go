// Package config defines configuration for the live driver. Config is
// loaded from a YAML file with overrides via RECON_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level live-driver configuration, mapping directly to
// the YAML file structure.
type Config struct {
	Streams StreamsConfig `mapstructure:"streams"`
	Book    BookConfig    `mapstructure:"book"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StreamsConfig holds the three feed endpoints and their buffering/polling
// knobs.
type StreamsConfig struct {
	SnapshotURL   string        `mapstructure:"snapshot_url"`
	DepthURL      string        `mapstructure:"depth_url"`
	TradeURL      string        `mapstructure:"trade_url"`
	ChannelSize   int           `mapstructure:"channel_size"`
	FetchInterval time.Duration `mapstructure:"fetch_interval"`
}

// BookConfig tunes the order book's trade-reconciliation behavior.
type BookConfig struct {
	SkewToleranceMS int `mapstructure:"skew_tolerance_ms"`
}

// LoggingConfig selects the slog handler and level.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SkewTolerance returns the configured skew tolerance as a time.Duration.
func (b BookConfig) SkewTolerance() time.Duration {
	return time.Duration(b.SkewToleranceMS) * time.Millisecond
}

// Load reads config from a YAML file with RECON_* env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("streams.channel_size", 256)
	v.SetDefault("streams.fetch_interval", "5s")
	v.SetDefault("book.skew_tolerance_ms", 100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if url := os.Getenv("RECON_SNAPSHOT_URL"); url != "" {
		cfg.Streams.SnapshotURL = url
	}
	if url := os.Getenv("RECON_DEPTH_URL"); url != "" {
		cfg.Streams.DepthURL = url
	}
	if url := os.Getenv("RECON_TRADE_URL"); url != "" {
		cfg.Streams.TradeURL = url
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Streams.SnapshotURL == "" {
		return fmt.Errorf("streams.snapshot_url is required")
	}
	if c.Streams.DepthURL == "" {
		return fmt.Errorf("streams.depth_url is required")
	}
	if c.Streams.TradeURL == "" {
		return fmt.Errorf("streams.trade_url is required")
	}
	if c.Streams.ChannelSize <= 0 {
		return fmt.Errorf("streams.channel_size must be > 0")
	}
	if c.Streams.FetchInterval <= 0 {
		return fmt.Errorf("streams.fetch_interval must be > 0")
	}
	if c.Book.SkewToleranceMS < 0 {
		return fmt.Errorf("book.skew_tolerance_ms must be >= 0")
	}
	return nil
}
