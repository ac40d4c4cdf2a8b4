// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/keshon/taint-fm/internal/music/resolver"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Resolver backend names accepted in RESOLVERS
var knownResolvers = []string{"ytdlp", "youtube"}

type Config struct {
	DiscordToken    string        `env:"DISCORD_TOKEN"`
	CommandPrefix   string        `env:"COMMAND_PREFIX" envDefault:"!"`
	StoragePath     string        `env:"STORAGE_PATH" envDefault:"datastore.json"`
	ScratchDir      string        `env:"SCRATCH_DIR" envDefault:"/tmp/taint-fm"`
	PlaybackMode    string        `env:"PLAYBACK_MODE" envDefault:"download"`
	Resolvers       []string      `env:"RESOLVERS" envDefault:"ytdlp,youtube" envSeparator:","`
	DefaultVolume   float64       `env:"DEFAULT_VOLUME" envDefault:"0.5"`
	ResolveTimeout  time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"45s"`
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"5m"`
	ResolveAttempts int           `env:"RESOLVE_ATTEMPTS" envDefault:"2"`
	ResolveRate     float64       `env:"RESOLVE_RATE" envDefault:"2"`
	Proxy           string        `env:"PROXY"`
	FFmpegPath      string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile         string        `env:"LOG_FILE"`
}

// Load reads .env when present, then the environment. The result is validated.
func Load() (*Config, error) {
	// a missing .env is fine, the environment may hold everything
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	for i, r := range cfg.Resolvers {
		cfg.Resolvers[i] = strings.ToLower(strings.TrimSpace(r))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that every binary depends on
func (c *Config) Validate() error {
	var errs []error
	if c.DefaultVolume < 0 || c.DefaultVolume > 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_VOLUME must be within [0,1], got %v", c.DefaultVolume))
	}
	if _, err := resolver.ParseMode(c.PlaybackMode); err != nil {
		errs = append(errs, fmt.Errorf("PLAYBACK_MODE: %w", err))
	}
	if len(c.Resolvers) == 0 {
		errs = append(errs, errors.New("RESOLVERS must name at least one backend"))
	}
	for _, r := range c.Resolvers {
		if !slices.Contains(knownResolvers, r) {
			errs = append(errs, fmt.Errorf("RESOLVERS: unknown backend %q", r))
		}
	}
	if c.ResolveTimeout <= 0 || c.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("RESOLVE_TIMEOUT and DOWNLOAD_TIMEOUT must be positive"))
	}
	if c.ResolveAttempts <= 0 {
		errs = append(errs, fmt.Errorf("RESOLVE_ATTEMPTS must be positive, got %d", c.ResolveAttempts))
	}
	if c.ResolveRate <= 0 {
		errs = append(errs, fmt.Errorf("RESOLVE_RATE must be positive, got %v", c.ResolveRate))
	}
	if c.CommandPrefix == "" {
		errs = append(errs, errors.New("COMMAND_PREFIX must not be empty"))
	}
	return errors.Join(errs...)
}

// ValidateBot adds the checks needed by the Discord binary
func (c *Config) ValidateBot() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}
	return nil
}

// Mode returns the validated playback mode
func (c *Config) Mode() resolver.Mode {
	m, _ := resolver.ParseMode(c.PlaybackMode)
	return m
}
