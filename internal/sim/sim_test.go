package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pdrpinto/dynastar"
	"github.com/pdrpinto/dynastar/internal/scenery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cell(r, c int) *dynastar.Cell {
	return &dynastar.Cell{Row: r, Col: c}
}

func intPtr(v int) *int { return &v }

func TestNewMission(t *testing.T) {
	t.Parallel()

	m, err := NewMission(10, cell(1, 5), cell(8, 7), NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, dynastar.Cell{Row: 1, Col: 5}, m.Start)
	assert.Equal(t, dynastar.Cell{Row: 8, Col: 7}, m.Goal)

	for seed := uint64(0); seed < 20; seed++ {
		m, err := NewMission(7, nil, nil, NewRand(seed))
		require.NoError(t, err)
		assert.True(t, m.Start.InBounds(7))
		assert.True(t, m.Goal.InBounds(7))
	}

	_, err = NewMission(10, cell(10, 0), nil, NewRand(1))
	assert.ErrorIs(t, err, dynastar.ErrOutOfBounds)
	_, err = NewMission(10, nil, cell(0, -2), NewRand(1))
	assert.ErrorIs(t, err, dynastar.ErrOutOfBounds)
	_, err = NewMission(0, nil, nil, NewRand(1))
	assert.ErrorIs(t, err, dynastar.ErrInvalidGridSize)
}

func TestPrepareDrawsDefaults(t *testing.T) {
	t.Parallel()

	for seed := uint64(1); seed <= 10; seed++ {
		prep, err := Prepare(Params{Seed: seed})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, prep.Mission.Size, MinGridSize)
		assert.Less(t, prep.Mission.Size, MaxGridSize)
		assert.GreaterOrEqual(t, prep.Range, MinSensingRange)
		assert.Less(t, prep.Range, MaxSensingRange)
		assert.IsType(t, &dynastar.SamplingSensor{}, prep.Sensor)
		assert.False(t, prep.Env.IsBlockedStatic(prep.Mission.Start))
		assert.False(t, prep.Env.IsBlockedStatic(prep.Mission.Goal))
	}
}

func TestPrepareFailsFast(t *testing.T) {
	t.Parallel()

	_, err := Prepare(Params{GridSize: 8, Start: cell(9, 9)})
	assert.ErrorIs(t, err, dynastar.ErrOutOfBounds)

	_, err = Prepare(Params{GridSize: -1})
	assert.ErrorIs(t, err, dynastar.ErrInvalidGridSize)

	_, err = Prepare(Params{GridSize: 8, SensingRange: intPtr(-1)})
	assert.Error(t, err)

	_, err = Prepare(Params{GridSize: 8, Mode: "kalman"})
	assert.ErrorIs(t, err, dynastar.ErrUnknownSensingMode)
}

func TestComputePathReproducible(t *testing.T) {
	t.Parallel()

	p := Params{
		Seed:         42,
		GridSize:     30,
		SensingRange: intPtr(2),
		Start:        cell(1, 5),
		Goal:         cell(28, 27),
		MaxSteps:     20_000,
		Render:       true,
	}
	a, errA := ComputePath(context.Background(), p)
	b, errB := ComputePath(context.Background(), p)
	require.NoError(t, errA)
	require.NoError(t, errB)

	ignoreRunID := cmp.FilterPath(func(path cmp.Path) bool {
		return path.Last().String() == ".RunID"
	}, cmp.Ignore())
	if diff := cmp.Diff(a, b, ignoreRunID); diff != "" {
		t.Errorf("same seed, different outcome (-a +b):\n%s", diff)
	}
	if a.Result.Found {
		assert.Equal(t, dynastar.Cell{Row: 1, Col: 5}, a.Result.Path[0])
		assert.Equal(t, dynastar.Cell{Row: 28, Col: 27}, a.Result.Path[len(a.Result.Path)-1])
		require.NotNil(t, a.Result.History)
	}
}

func TestComputePathOpenField(t *testing.T) {
	t.Parallel()

	empty := scenery.Config{
		MinHouses: 0, MaxHouses: 1,
		MinHouseSide: 1, MaxHouseSide: 2,
		MinTrees: 0, MaxTrees: 1,
		MinBirds: 0, MaxBirds: 1,
	}
	out, err := ComputePath(context.Background(), Params{
		Seed:         3,
		GridSize:     5,
		SensingRange: intPtr(0),
		Start:        cell(1, 1),
		Goal:         cell(1, 1),
		Scenery:      empty,
	})
	require.NoError(t, err)
	assert.True(t, out.Result.Found)
	assert.Equal(t, []dynastar.Cell{{Row: 1, Col: 1}}, out.Result.Path)
	assert.Nil(t, out.Result.History, "history is only kept when rendering")
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	outcomes := []dynastar.TrialOutcome{
		{Result: dynastar.Result{Found: true, Path: make([]dynastar.Cell, 4), ExpandedNodes: 10}},
		{Result: dynastar.Result{Found: true, Path: make([]dynastar.Cell, 6), ExpandedNodes: 30}},
		{Result: dynastar.Result{Found: false}},
		{Err: errors.New("bad config")},
	}
	s := Summarize(outcomes)
	assert.Equal(t, 4, s.Trials)
	assert.Equal(t, 2, s.Found)
	assert.Equal(t, 1, s.NotFound)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 0.5, s.SuccessRate, 1e-12)
	assert.InDelta(t, 5.0, s.MeanPathLength, 1e-12)
	assert.InDelta(t, math.Sqrt2, s.StdPathLength, 1e-9)
	assert.InDelta(t, 20.0, s.MeanExpanded, 1e-12)

	none := Summarize(nil)
	assert.True(t, math.IsNaN(none.MeanPathLength))
	assert.Zero(t, none.SuccessRate)
}

func TestSimulate(t *testing.T) {
	t.Parallel()

	base := Params{Seed: 100, GridSize: 12, MaxSteps: 5_000}
	s, outcomes, err := Simulate(context.Background(), base, 8, 4)
	require.NoError(t, err)
	assert.Len(t, outcomes, 8)
	assert.Equal(t, 8, s.Trials)
	assert.Equal(t, 8, s.Found+s.NotFound+s.Failed)

	again, _, err := Simulate(context.Background(), base, 8, 1)
	require.NoError(t, err)
	assert.Equal(t, s.Found, again.Found)
	assert.Equal(t, s.NotFound, again.NotFound)
}
