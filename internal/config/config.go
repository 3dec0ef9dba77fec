// Package config loads and validates the comparison configuration from YAML.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the complete comparison configuration.
type Config struct {
	Comparison ComparisonConfig `yaml:"comparison"`
	Smoothing  SmoothingConfig  `yaml:"smoothing"`
	Elevation  ElevationConfig  `yaml:"elevation"`
	Output     OutputConfig     `yaml:"output"`
}

// ComparisonConfig controls synchronization and tolerance matching.
type ComparisonConfig struct {
	ToleranceKm      float64 `yaml:"tolerance_km" validate:"gte=0"`
	Method           string  `yaml:"method" validate:"oneof=direct kdtree"`
	Sync             string  `yaml:"sync" validate:"oneof=elevation_sync start_sync interpolate_elevations align"`
	IncludeElevation bool    `yaml:"include_elevation"`
}

// SmoothingConfig selects an optional elevation smoother.
type SmoothingConfig struct {
	Kind string `yaml:"kind" validate:"oneof=none loess spline"`

	// LOESS parameters.
	Window     float64 `yaml:"window" validate:"gte=0,lte=1"`
	Iterations int     `yaml:"iterations" validate:"gte=0"`

	// Spline parameters.
	Knots int `yaml:"knots" validate:"gte=0"`
}

// ElevationConfig selects the elevation API used when the comparison track
// is API-backed.
type ElevationConfig struct {
	Provider string `yaml:"provider" validate:"oneof=open-elevation osm-height"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	// KMLPath, when set, is where the KML report is written.
	KMLPath string `yaml:"kml_path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Comparison: ComparisonConfig{
			ToleranceKm: 0.1,
			Method:      "direct",
			Sync:        "elevation_sync",
		},
		Smoothing: SmoothingConfig{
			Kind:       "none",
			Window:     0.1,
			Iterations: 2,
			Knots:      25,
		},
		Elevation: ElevationConfig{
			Provider: "open-elevation",
		},
	}
}

// Load reads a YAML configuration file, fills unset fields from the
// defaults, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
