// Package config loads fedicircle settings from an optional TOML file.
// Flags override file values; everything has a working default.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all tunable settings.
type Config struct {
	Weights Weights `toml:"weights"`
	Bands   Bands   `toml:"bands"`
}

// Weights are the per-interaction scores added for each discovered user.
type Weights struct {
	Reaction float64 `toml:"reaction"`
	Boost    float64 `toml:"boost"`
	Reply    float64 `toml:"reply"`
}

// Bands are the sizes of the concentric presentation rings, inside out.
type Bands struct {
	Inner  int `toml:"inner"`
	Middle int `toml:"middle"`
	Outer  int `toml:"outer"`
}

// Default returns the built-in configuration: boosts weigh more than
// replies, replies more than reactions, and the classic 8/15/26 circle.
func Default() Config {
	return Config{
		Weights: Weights{Reaction: 1.0, Boost: 1.3, Reply: 1.1},
		Bands:   Bands{Inner: 8, Middle: 15, Outer: 26},
	}
}

// Load reads the TOML file at path on top of the defaults. An empty path
// returns the defaults unchanged; a missing or malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Weights.Reaction < 0 || c.Weights.Boost < 0 || c.Weights.Reply < 0 {
		return fmt.Errorf("weights must not be negative")
	}
	if c.Bands.Inner <= 0 || c.Bands.Middle <= 0 || c.Bands.Outer <= 0 {
		return fmt.Errorf("band sizes must be positive")
	}
	return nil
}
