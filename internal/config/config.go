// Package config loads run configuration for the dronepath CLI.
//
// The schema is flat and every field is optional: omitted fields fall back to
// the defaults returned by the Get* accessors, so partial files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdrpinto/dynastar"
	"github.com/pdrpinto/dynastar/internal/scenery"
	"github.com/pdrpinto/dynastar/internal/sim"
	"gopkg.in/yaml.v3"
)

// Defaults not covered by other packages.
const (
	DefaultSeed     = 42
	DefaultMaxSteps = 100_000
	DefaultTrials   = 100
	DefaultLogLevel = "info"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// CellConfig is a grid coordinate in config files.
type CellConfig struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// Config represents one run configuration.
type Config struct {
	Seed         *uint64     `json:"seed,omitempty" yaml:"seed,omitempty"`
	GridSize     *int        `json:"grid_size,omitempty" yaml:"grid_size,omitempty"`
	SensingRange *int        `json:"sensing_range,omitempty" yaml:"sensing_range,omitempty"`
	Start        *CellConfig `json:"start,omitempty" yaml:"start,omitempty"`
	Goal         *CellConfig `json:"goal,omitempty" yaml:"goal,omitempty"`

	// Sensing params
	SensingMode  *string  `json:"sensing_mode,omitempty" yaml:"sensing_mode,omitempty"`
	NumParticles *int     `json:"num_particles,omitempty" yaml:"num_particles,omitempty"`
	Threshold    *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	NoiseFloor   *float64 `json:"noise_floor,omitempty" yaml:"noise_floor,omitempty"`

	// Search params
	MaxSteps    *int  `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	KnownStatic *bool `json:"known_static,omitempty" yaml:"known_static,omitempty"`

	// Scenery params
	RoadProbability *float64 `json:"road_probability,omitempty" yaml:"road_probability,omitempty"`
	MinHouses       *int     `json:"min_houses,omitempty" yaml:"min_houses,omitempty"`
	MaxHouses       *int     `json:"max_houses,omitempty" yaml:"max_houses,omitempty"`
	MinTrees        *int     `json:"min_trees,omitempty" yaml:"min_trees,omitempty"`
	MaxTrees        *int     `json:"max_trees,omitempty" yaml:"max_trees,omitempty"`
	MinBirds        *int     `json:"min_birds,omitempty" yaml:"min_birds,omitempty"`
	MaxBirds        *int     `json:"max_birds,omitempty" yaml:"max_birds,omitempty"`

	// Batch params
	Trials  *int `json:"trials,omitempty" yaml:"trials,omitempty"`
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty"`

	LogLevel *string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// Load reads a Config from a .json, .yaml or .yml file and validates it.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.GridSize != nil && *c.GridSize <= 0 {
		return fmt.Errorf("grid_size must be positive, got %d", *c.GridSize)
	}
	if c.SensingRange != nil && *c.SensingRange < 0 {
		return fmt.Errorf("sensing_range must be non-negative, got %d", *c.SensingRange)
	}
	if c.GridSize != nil {
		for _, e := range []struct {
			name string
			cell *CellConfig
		}{{"start", c.Start}, {"goal", c.Goal}} {
			if e.cell != nil && !e.cell.Cell().InBounds(*c.GridSize) {
				return fmt.Errorf("%s (%d,%d) outside %dx%d grid", e.name, e.cell.Row, e.cell.Col, *c.GridSize, *c.GridSize)
			}
		}
	}
	if c.SensingMode != nil {
		if _, err := dynastar.ParseSensingMode(*c.SensingMode); err != nil {
			return err
		}
	}
	if c.NumParticles != nil && *c.NumParticles <= 0 {
		return fmt.Errorf("num_particles must be positive, got %d", *c.NumParticles)
	}
	if c.Threshold != nil && (*c.Threshold <= 0 || *c.Threshold >= 1) {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", *c.Threshold)
	}
	if c.NoiseFloor != nil && (*c.NoiseFloor < 0 || *c.NoiseFloor > 1) {
		return fmt.Errorf("noise_floor must be between 0 and 1, got %f", *c.NoiseFloor)
	}
	if c.MaxSteps != nil && *c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative, got %d", *c.MaxSteps)
	}
	if err := c.GetScenery().Validate(); err != nil {
		return err
	}
	if c.Trials != nil && *c.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", *c.Trials)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.LogLevel != nil {
		if _, err := ParseLogLevel(*c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Cell converts to a grid coordinate.
func (cc CellConfig) Cell() dynastar.Cell {
	return dynastar.Cell{Row: cc.Row, Col: cc.Col}
}

// GetSeed returns the seed or DefaultSeed.
func (c *Config) GetSeed() uint64 {
	if c.Seed == nil {
		return DefaultSeed
	}
	return *c.Seed
}

// GetMaxSteps returns the expansion cap or DefaultMaxSteps.
func (c *Config) GetMaxSteps() int {
	if c.MaxSteps == nil {
		return DefaultMaxSteps
	}
	return *c.MaxSteps
}

// GetTrials returns the batch size or DefaultTrials.
func (c *Config) GetTrials() int {
	if c.Trials == nil {
		return DefaultTrials
	}
	return *c.Trials
}

// GetWorkers returns the worker count; zero lets the pool pick.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetLogLevel returns the configured level or DefaultLogLevel.
func (c *Config) GetLogLevel() string {
	if c.LogLevel == nil {
		return DefaultLogLevel
	}
	return *c.LogLevel
}

// GetScenery overlays configured scenery fields on scenery.DefaultConfig.
func (c *Config) GetScenery() scenery.Config {
	s := scenery.DefaultConfig()
	if c.RoadProbability != nil {
		s.RoadProbability = *c.RoadProbability
	}
	if c.MinHouses != nil {
		s.MinHouses = *c.MinHouses
	}
	if c.MaxHouses != nil {
		s.MaxHouses = *c.MaxHouses
	}
	if c.MinTrees != nil {
		s.MinTrees = *c.MinTrees
	}
	if c.MaxTrees != nil {
		s.MaxTrees = *c.MaxTrees
	}
	if c.MinBirds != nil {
		s.MinBirds = *c.MinBirds
	}
	if c.MaxBirds != nil {
		s.MaxBirds = *c.MaxBirds
	}
	return s
}

// Params converts the configuration into mission parameters. The caller
// attaches logging, observers and the render flag.
func (c *Config) Params() (sim.Params, error) {
	mode := dynastar.ModeSample
	if c.SensingMode != nil {
		m, err := dynastar.ParseSensingMode(*c.SensingMode)
		if err != nil {
			return sim.Params{}, err
		}
		mode = m
	}

	p := sim.Params{
		Seed:         c.GetSeed(),
		SensingRange: c.SensingRange,
		Mode:         mode,
		Scenery:      c.GetScenery(),
		MaxSteps:     c.GetMaxSteps(),
	}
	if c.GridSize != nil {
		p.GridSize = *c.GridSize
	}
	if c.Start != nil {
		start := c.Start.Cell()
		p.Start = &start
	}
	if c.Goal != nil {
		goal := c.Goal.Cell()
		p.Goal = &goal
	}
	if c.NumParticles != nil {
		p.Sensor.NumParticles = *c.NumParticles
	}
	if c.Threshold != nil {
		p.Sensor.Threshold = *c.Threshold
	}
	if c.NoiseFloor != nil {
		p.Sensor.NoiseFloor = *c.NoiseFloor
	}
	if c.KnownStatic != nil {
		p.KnownStatic = *c.KnownStatic
	}
	return p, nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}
