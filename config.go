package boardlink

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Config is the board's file configuration: which server to play against,
// who the board is, and how often it polls and reports. Intervals are in
// milliseconds to match the firmware heritage of the format.
type Config struct {
	Server ServerConfig `toml:"server"`
	Board  BoardConfig  `toml:"board"`
	Timing TimingConfig `toml:"timing"`
}

type ServerConfig struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type BoardConfig struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

type TimingConfig struct {
	PollIntervalMS   int64 `toml:"poll_interval_ms"`
	ReportIntervalMS int64 `toml:"report_interval_ms"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func SaveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

func (c Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server url is required")
	}
	if c.Server.Username == "" {
		return errors.New("server username is required")
	}
	if c.Server.Password == "" {
		return errors.New("server password is required")
	}

	return nil
}
