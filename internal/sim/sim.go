package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/pdrpinto/dynastar"
	"github.com/pdrpinto/dynastar/internal/scenery"
)

// Ranges drawn when a mission leaves grid size or sensing range unset.
const (
	MinGridSize     = 10
	MaxGridSize     = 30
	MinSensingRange = 2
	MaxSensingRange = 5
)

// Params describes one mission. Zero GridSize and nil SensingRange, Start or
// Goal are drawn from the seeded source.
type Params struct {
	Seed         uint64
	GridSize     int
	SensingRange *int
	Start        *dynastar.Cell
	Goal         *dynastar.Cell
	Mode         dynastar.SensingMode
	Sensor       dynastar.SensorConfig
	Scenery      scenery.Config
	MaxSteps     int
	KnownStatic  bool
	// Render keeps the particle and obstacle history for a renderer.
	Render   bool
	Logger   *slog.Logger
	Observer dynastar.Observer
}

// Outcome is everything a caller needs to report or render a mission.
type Outcome struct {
	Mission Mission
	Range   int
	Layout  scenery.Layout
	Result  dynastar.Result
}

// NewRand returns the single random source a mission draws from.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Prepared holds a mission's environment and sensor before any search step.
type Prepared struct {
	Mission Mission
	Range   int
	Layout  scenery.Layout
	Env     *dynastar.Environment
	Sensor  dynastar.Sensor
}

// Prepare draws the mission, lays out the scenery and builds the sensor.
// Configuration errors surface here, before the search runs.
func Prepare(p Params) (Prepared, error) {
	rng := NewRand(p.Seed)

	size := p.GridSize
	if size == 0 {
		size = MinGridSize + rng.IntN(MaxGridSize-MinGridSize)
	}
	sensingRange := MinSensingRange + rng.IntN(MaxSensingRange-MinSensingRange)
	if p.SensingRange != nil {
		sensingRange = *p.SensingRange
	}

	mission, err := NewMission(size, p.Start, p.Goal, rng)
	if err != nil {
		return Prepared{}, err
	}

	sceneryCfg := p.Scenery
	if sceneryCfg == (scenery.Config{}) {
		sceneryCfg = scenery.DefaultConfig()
	}
	layout, err := scenery.Generate(size, sceneryCfg, rng, mission.Start, mission.Goal)
	if err != nil {
		return Prepared{}, fmt.Errorf("scenery: %w", err)
	}
	env, err := layout.Environment(rng)
	if err != nil {
		return Prepared{}, fmt.Errorf("environment: %w", err)
	}

	sensorCfg := p.Sensor
	sensorCfg.Range = sensingRange
	sensor, err := dynastar.NewSensor(p.Mode, sensorCfg, rng)
	if err != nil {
		return Prepared{}, fmt.Errorf("sensor: %w", err)
	}

	return Prepared{Mission: mission, Range: sensingRange, Layout: layout, Env: env, Sensor: sensor}, nil
}

// SearchOptions translates Params into dynastar options.
func (p Params) SearchOptions() []dynastar.Option {
	opts := []dynastar.Option{
		dynastar.WithMaxSteps(p.MaxSteps),
		dynastar.WithHistory(p.Render),
		dynastar.WithLogger(p.Logger),
		dynastar.WithObserver(p.Observer),
	}
	if p.KnownStatic {
		opts = append(opts, dynastar.WithKnownStatic())
	}
	return opts
}

// ComputePath plans one mission end to end. A mission with no route returns
// an Outcome whose Result.Found is false and a nil error.
func ComputePath(ctx context.Context, p Params) (Outcome, error) {
	prep, err := Prepare(p)
	if err != nil {
		return Outcome{}, err
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("mission prepared",
		"seed", p.Seed,
		"size", prep.Mission.Size,
		"range", prep.Range,
		"start", prep.Mission.Start.String(),
		"goal", prep.Mission.Goal.String(),
		"static", len(prep.Layout.Static()),
		"birds", len(prep.Layout.Birds),
	)

	res, err := dynastar.Search(ctx, prep.Env, prep.Sensor, prep.Mission.Start, prep.Mission.Goal, p.SearchOptions()...)
	return Outcome{Mission: prep.Mission, Range: prep.Range, Layout: prep.Layout, Result: res}, err
}
