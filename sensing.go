package dynastar

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Sensing defaults.
const (
	DefaultNumParticles = 25
	DefaultThreshold    = 0.5
	DefaultNoiseFloor   = 0.1
)

// ErrUnknownSensingMode is returned by ParseSensingMode and NewSensor.
var ErrUnknownSensingMode = errors.New("unknown sensing mode")

// SensingMode selects a Sensor strategy.
type SensingMode string

const (
	// ModeSample draws fresh uniform random offsets on every query.
	ModeSample SensingMode = "sample"
	// ModeGrid probes an evenly subsampled offset lattice with a noise floor.
	ModeGrid SensingMode = "grid"
	// ModePropagate keeps a persistent particle cloud per queried cell and
	// random-walks it once per search tick.
	ModePropagate SensingMode = "propagate"
)

// ParseSensingMode maps a name to a SensingMode. The empty string selects ModeSample.
func ParseSensingMode(s string) (SensingMode, error) {
	switch m := SensingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeSample, nil
	case ModeSample, ModeGrid, ModePropagate:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSensingMode, s)
	}
}

// SensorConfig parameterises every sensor strategy. Zero NumParticles and
// Threshold select the defaults; NoiseFloor is only read by ModeGrid.
type SensorConfig struct {
	Range        int
	NumParticles int
	Threshold    float64
	NoiseFloor   float64
}

func (c SensorConfig) withDefaults() SensorConfig {
	if c.NumParticles <= 0 {
		c.NumParticles = DefaultNumParticles
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	return c
}

// Reading is the outcome of one occupancy query.
type Reading struct {
	Query       Cell
	Samples     []Cell
	Probability float64
	Blocked     bool
}

// Sensor estimates whether a cell is occupied without assuming ground truth.
type Sensor interface {
	Sense(query Cell, env *Environment) Reading
}

// Propagator is implemented by sensors that carry belief across search ticks.
// The search calls Propagate right after the environment advances.
type Propagator interface {
	Propagate(env *Environment)
}

// DetectObstacle reports whether s considers query blocked.
func DetectObstacle(s Sensor, query Cell, env *Environment) bool {
	return s.Sense(query, env).Blocked
}

// NewSensor builds the strategy named by mode.
func NewSensor(mode SensingMode, cfg SensorConfig, rng *rand.Rand) (Sensor, error) {
	if cfg.Range < 0 {
		return nil, fmt.Errorf("sensing range must be non-negative, got %d", cfg.Range)
	}
	switch mode {
	case ModeSample, "":
		if rng == nil {
			return nil, errors.New("sample sensor requires a random source")
		}
		return NewSamplingSensor(cfg, rng), nil
	case ModeGrid:
		if cfg.NoiseFloor == 0 {
			cfg.NoiseFloor = DefaultNoiseFloor
		}
		return NewGridSensor(cfg), nil
	case ModePropagate:
		if rng == nil {
			return nil, errors.New("propagate sensor requires a random source")
		}
		return NewPropagatingSensor(cfg, rng), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSensingMode, mode)
	}
}

// SamplingSensor is a stateless Monte-Carlo occupancy estimator: every query
// draws NumParticles uniform offsets in [-Range, Range] around the query cell.
type SamplingSensor struct {
	cfg SensorConfig
	rng *rand.Rand
}

func NewSamplingSensor(cfg SensorConfig, rng *rand.Rand) *SamplingSensor {
	return &SamplingSensor{cfg: cfg.withDefaults(), rng: rng}
}

func (s *SamplingSensor) Sense(query Cell, env *Environment) Reading {
	samples := make([]Cell, 0, s.cfg.NumParticles)
	span := 2*s.cfg.Range + 1
	for range s.cfg.NumParticles {
		c := query.Add(s.rng.IntN(span)-s.cfg.Range, s.rng.IntN(span)-s.cfg.Range)
		if c.InBounds(env.Size()) {
			samples = append(samples, c)
		}
	}
	p := occupiedFraction(samples, env, 0)
	return Reading{Query: query, Samples: samples, Probability: p, Blocked: p > s.cfg.Threshold}
}

// GridSensor probes the (2r+1)^2 offset lattice around the query, evenly
// subsampled down to NumParticles. Clear samples contribute NoiseFloor rather
// than zero, so a fully clear neighbourhood still reads as slightly occupied.
type GridSensor struct {
	cfg     SensorConfig
	offsets []Cell
}

func NewGridSensor(cfg SensorConfig) *GridSensor {
	cfg = cfg.withDefaults()
	return &GridSensor{cfg: cfg, offsets: latticeOffsets(cfg.Range, cfg.NumParticles)}
}

func (s *GridSensor) Sense(query Cell, env *Environment) Reading {
	samples := make([]Cell, 0, len(s.offsets))
	for _, off := range s.offsets {
		c := query.Add(off.Row, off.Col)
		if c.InBounds(env.Size()) {
			samples = append(samples, c)
		}
	}
	p := occupiedFraction(samples, env, s.cfg.NoiseFloor)
	return Reading{Query: query, Samples: samples, Probability: p, Blocked: p > s.cfg.Threshold}
}

// latticeOffsets enumerates offsets row-major and keeps n evenly spaced ones
// (floor of i*(len-1)/(n-1)) when the lattice is larger than n.
func latticeOffsets(r, n int) []Cell {
	all := make([]Cell, 0, (2*r+1)*(2*r+1))
	for dr := -r; dr <= r; dr++ {
		for dc := -r; dc <= r; dc++ {
			all = append(all, Cell{Row: dr, Col: dc})
		}
	}
	if len(all) <= n {
		return all
	}
	if n == 1 {
		return all[:1]
	}
	picked := make([]Cell, n)
	last := float64(len(all) - 1)
	for i := range n {
		picked[i] = all[int(float64(i)*last/float64(n-1))]
	}
	return picked
}

// PropagatingSensor keeps one particle cloud per queried cell. A cloud is
// seeded on the first query of its cell and afterwards only moves through
// Propagate; Sense never regenerates it.
type PropagatingSensor struct {
	cfg    SensorConfig
	rng    *rand.Rand
	clouds map[Cell][]Cell
	// order keeps Propagate's draws reproducible.
	order []Cell
}

func NewPropagatingSensor(cfg SensorConfig, rng *rand.Rand) *PropagatingSensor {
	return &PropagatingSensor{
		cfg:    cfg.withDefaults(),
		rng:    rng,
		clouds: make(map[Cell][]Cell),
	}
}

func (s *PropagatingSensor) Sense(query Cell, env *Environment) Reading {
	cloud, ok := s.clouds[query]
	if !ok {
		cloud = s.seed(query, env.Size())
		s.clouds[query] = cloud
		s.order = append(s.order, query)
	}
	p := occupiedFraction(cloud, env, 0)
	return Reading{Query: query, Samples: slices.Clone(cloud), Probability: p, Blocked: p > s.cfg.Threshold}
}

// Propagate random-walks every particle with the obstacle motion model.
func (s *PropagatingSensor) Propagate(env *Environment) {
	for _, q := range s.order {
		cloud := s.clouds[q]
		for i, c := range cloud {
			cloud[i] = Cell{
				Row: clamp(c.Row+s.rng.IntN(3)-1, 0, env.Size()-1),
				Col: clamp(c.Col+s.rng.IntN(3)-1, 0, env.Size()-1),
			}
		}
	}
}

func (s *PropagatingSensor) seed(query Cell, size int) []Cell {
	cloud := make([]Cell, 0, s.cfg.NumParticles)
	span := 2*s.cfg.Range + 1
	for range s.cfg.NumParticles {
		c := query.Add(s.rng.IntN(span)-s.cfg.Range, s.rng.IntN(span)-s.cfg.Range)
		if c.InBounds(size) {
			cloud = append(cloud, c)
		}
	}
	return cloud
}

// occupiedFraction averages 1 for every occupied sample and floor for every
// clear one. No samples means no evidence.
func occupiedFraction(samples []Cell, env *Environment, floor float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	values := make([]float64, len(samples))
	for i, c := range samples {
		if env.IsOccupied(c) {
			values[i] = 1
		} else {
			values[i] = floor
		}
	}
	return stat.Mean(values, nil)
}
