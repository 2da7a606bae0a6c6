package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the simulation configuration
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Queue      QueueConfig      `yaml:"queue"`
}

type SimulationConfig struct {
	Duration        time.Duration `yaml:"duration"`
	Seed            int64         `yaml:"seed"`
	Step            time.Duration `yaml:"step"`
	ConsoleInterval time.Duration `yaml:"console_interval"`
	RejectEvery     int           `yaml:"reject_every"`
}

type QueueConfig struct {
	Store          string        `yaml:"store"` // memory | pebble
	Path           string        `yaml:"path"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	ExecuteTimeout time.Duration `yaml:"execute_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()

	if cfg.Queue.Store != "memory" && cfg.Queue.Store != "pebble" {
		return nil, fmt.Errorf("unknown queue store %q", cfg.Queue.Store)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Simulation.Duration == 0 {
		c.Simulation.Duration = 5 * time.Minute
	}
	if c.Simulation.Step == 0 {
		c.Simulation.Step = time.Second
	}
	if c.Simulation.ConsoleInterval == 0 {
		c.Simulation.ConsoleInterval = 10 * time.Second
	}
	if c.Simulation.RejectEvery == 0 {
		c.Simulation.RejectEvery = 97
	}
	if c.Queue.Store == "" {
		c.Queue.Store = "memory"
	}
	if c.Queue.SettleDelay == 0 {
		c.Queue.SettleDelay = c.Simulation.Step
	}
	if c.Queue.ExecuteTimeout == 0 {
		c.Queue.ExecuteTimeout = c.Simulation.Step
	}
}
