package client

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "BOARD_"

// Config carries everything the orchestrator needs to talk to one game
// server. Defaults mirror the reference firmware timings.
type Config struct {
	ServerURL      string        `env:"SERVER_URL"      envDefault:"http://localhost:8000"`
	Username       string        `env:"USERNAME"        envDefault:""`
	Password       string        `env:"PASSWORD"        envDefault:""`
	PollInterval   time.Duration `env:"POLL_INTERVAL"   envDefault:"5s"`
	ReportInterval time.Duration `env:"REPORT_INTERVAL" envDefault:"3s"`
	SetupTimeout   time.Duration `env:"SETUP_TIMEOUT"   envDefault:"10s"`
}

func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server URL is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("server URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.ReportInterval <= 0 {
		return errors.New("report interval must be positive")
	}
	if c.SetupTimeout <= 0 {
		return errors.New("setup timeout must be positive")
	}

	return nil
}
