// Package config loads the daemon's YAML configuration file and merges it
// with command-line flag overrides, the way a config file plus explicit
// flags compose in the wider example pack (flags win).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables a kipa-node process needs to start.
// Every field has a reference default applied by Default(); a loaded file
// only needs to set what it wants to change.
type Config struct {
	BindAddress string `yaml:"bind_address"`
	KeyDir      string `yaml:"key_dir"`

	BootstrapPeers  []string `yaml:"bootstrap_peers"`
	SecureTransport bool     `yaml:"secure_transport"`

	KeySpaceDimensions int     `yaml:"key_space_dimensions"`
	MaxNeighbours      int     `yaml:"max_neighbours"`
	Alpha              float64 `yaml:"alpha"`
	Beta               float64 `yaml:"beta"`

	ReplySize      int           `yaml:"reply_size"`
	SearchK        int           `yaml:"search_k"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	VerifyTimeout  time.Duration `yaml:"verify_timeout"`

	GCInterval    time.Duration `yaml:"gc_interval"`
	GCMaxFailures int           `yaml:"gc_max_failures"`

	OutstandingCapacity int `yaml:"outstanding_capacity"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the reference tunables used across the example
// scenarios, mirroring payload.DefaultConfig, neighbours.DefaultConfig,
// and gc.DefaultConfig so a bare `kipa-node serve` with no file at all
// still runs sensibly.
func Default() Config {
	return Config{
		BindAddress:         ":4884",
		KeyDir:              "",
		SecureTransport:     false,
		KeySpaceDimensions:  2,
		MaxNeighbours:       32,
		Alpha:               1.0,
		Beta:                1.0,
		ReplySize:           4,
		SearchK:             4,
		MaxConcurrency:      2,
		QueryTimeout:        5 * time.Second,
		VerifyTimeout:       5 * time.Second,
		GCInterval:          60 * time.Second,
		GCMaxFailures:       3,
		OutstandingCapacity: 4096,
		LogLevel:            "info",
	}
}

// Load reads a YAML file at path and applies it on top of Default(). A
// missing file is not an error: an unconfigured daemon just runs on
// defaults, matching how the CLI treats every flag as optional.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects a configuration that would make the daemon unable to
// function correctly, distinct from values that are merely unusual.
func (c Config) Validate() error {
	if c.KeySpaceDimensions <= 0 {
		return fmt.Errorf("config: key_space_dimensions must be positive, got %d", c.KeySpaceDimensions)
	}
	if c.MaxNeighbours <= 0 {
		return fmt.Errorf("config: max_neighbours must be positive, got %d", c.MaxNeighbours)
	}
	if c.KeyDir == "" {
		return fmt.Errorf("config: key_dir is required")
	}
	return nil
}
