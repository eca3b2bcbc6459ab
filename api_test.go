package dynastar

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exactSensor(seed uint64) Sensor {
	return NewSamplingSensor(SensorConfig{Range: 0}, newRNG(seed))
}

func TestSearchDiagonalScenario(t *testing.T) {
	t.Parallel()

	env := mustEnv(t, 5, nil, nil, 1)
	res, err := Search(context.Background(), env, exactSensor(1), Cell{1, 1}, Cell{3, 3})
	require.NoError(t, err)
	require.True(t, res.Found)

	want := []Cell{{1, 1}, {2, 2}, {3, 3}}
	if diff := cmp.Diff(want, res.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2.0, res.TotalCost)
	assert.Equal(t, 3, res.ExpandedNodes)
	assert.Equal(t, 13, res.SensingQueries)
	assert.NotEmpty(t, res.RunID)

	require.NotNil(t, res.History)
	assert.Equal(t, res.ExpandedNodes, res.History.Ticks(), "one tick per non-goal expansion plus the initial frame")
	assert.Len(t, res.History.Particles, 13)
}

func TestSearchStartEqualsGoal(t *testing.T) {
	t.Parallel()

	env := mustEnv(t, 4, nil, []Cell{{3, 3}}, 1)
	res, err := Search(context.Background(), env, exactSensor(1), Cell{0, 0}, Cell{0, 0})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, []Cell{{0, 0}}, res.Path)
	assert.Zero(t, res.TotalCost)
	assert.Len(t, env.ObstacleHistory(), 1, "no tick happens when the start is the goal")
}

func TestSearchNoPath(t *testing.T) {
	t.Parallel()

	start := Cell{2, 2}
	var walls []Cell
	for _, n := range Neighbors(start, 5) {
		if n != start {
			walls = append(walls, n)
		}
	}
	env := mustEnv(t, 5, walls, nil, 1)

	res, err := Search(context.Background(), env, exactSensor(1), start, Cell{4, 4})
	require.NoError(t, err, "an unreachable goal is not an error")
	assert.False(t, res.Found)
	assert.Nil(t, res.Path)
	assert.Equal(t, 1, res.ExpandedNodes)
	assert.Equal(t, 9, res.SensingQueries)
}

func TestSearchRejectsInvalidEndpoints(t *testing.T) {
	t.Parallel()

	env := mustEnv(t, 5, nil, []Cell{{1, 1}}, 1)
	_, err := Search(context.Background(), env, exactSensor(1), Cell{5, 0}, Cell{1, 1})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = Search(context.Background(), env, exactSensor(1), Cell{1, 1}, Cell{0, -1})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Len(t, env.ObstacleHistory(), 1, "validation happens before any step")

	_, err = Search(context.Background(), nil, exactSensor(1), Cell{}, Cell{})
	assert.Error(t, err)
	_, err = Search(context.Background(), env, nil, Cell{}, Cell{})
	assert.Error(t, err)
}

func TestSearchPathProperties(t *testing.T) {
	t.Parallel()

	static := []Cell{{3, 3}, {3, 4}, {4, 3}, {6, 7}, {7, 7}, {8, 2}, {2, 8}}
	dynamic := []Cell{{5, 5}, {9, 1}, {1, 9}}
	start, goal := Cell{1, 1}, Cell{10, 10}

	found := 0
	for seed := uint64(1); seed <= 10; seed++ {
		env := mustEnv(t, 12, static, dynamic, seed)
		res, err := Search(context.Background(), env, exactSensor(seed), start, goal, WithMaxSteps(10_000))
		require.NoError(t, err)
		if !res.Found {
			continue
		}
		found++
		require.NotEmpty(t, res.Path)
		assert.Equal(t, start, res.Path[0])
		assert.Equal(t, goal, res.Path[len(res.Path)-1])
		assert.Equal(t, float64(len(res.Path)-1), res.TotalCost)
		for i, c := range res.Path {
			assert.False(t, env.IsBlockedStatic(c), "seed %d: %v is static", seed, c)
			if i > 0 {
				prev := res.Path[i-1]
				assert.LessOrEqual(t, abs(c.Row-prev.Row), 1)
				assert.LessOrEqual(t, abs(c.Col-prev.Col), 1)
			}
		}
	}
	assert.Positive(t, found)
}

func TestSearchSamplingCanCrossStaticWall(t *testing.T) {
	t.Parallel()

	// A one-cell wall fills a fifth of a range-2 sample window, so sampling
	// reads it as clear. Row 0 is never a neighbor, so every route from
	// column 2 to column 8 has to step onto the wall.
	var wall []Cell
	for r := 1; r < 10; r++ {
		wall = append(wall, Cell{r, 5})
	}
	for seed := uint64(1); seed <= 5; seed++ {
		env := mustEnv(t, 10, wall, nil, seed)
		sensor := NewSamplingSensor(SensorConfig{Range: 2}, newRNG(seed))
		res, err := Search(context.Background(), env, sensor, Cell{4, 2}, Cell{4, 8}, WithMaxSteps(10_000))
		require.NoError(t, err)
		require.True(t, res.Found, "seed %d", seed)

		crossed := false
		for _, c := range res.Path {
			crossed = crossed || env.IsBlockedStatic(c)
		}
		assert.True(t, crossed, "seed %d: path %v avoided the wall", seed, res.Path)
	}
}

func TestSearchKnownStaticAvoidsWalls(t *testing.T) {
	t.Parallel()

	var wall []Cell
	for r := 1; r <= 7; r++ {
		wall = append(wall, Cell{r, 5})
	}
	env := mustEnv(t, 10, wall, nil, 3)
	sensor := NewSamplingSensor(SensorConfig{Range: 3}, newRNG(3))

	res, err := Search(context.Background(), env, sensor, Cell{1, 1}, Cell{8, 8}, WithKnownStatic())
	require.NoError(t, err)
	require.True(t, res.Found)
	for _, c := range res.Path {
		assert.False(t, env.IsBlockedStatic(c), "%v", c)
	}
}

func TestSearchIsDeterministic(t *testing.T) {
	t.Parallel()

	run := func() Result {
		env := mustEnv(t, 15, []Cell{{4, 4}, {5, 5}, {6, 6}}, []Cell{{7, 7}, {2, 9}, {12, 3}}, 99)
		sensor := NewSamplingSensor(SensorConfig{Range: 2}, newRNG(100))
		res, err := Search(context.Background(), env, sensor, Cell{1, 1}, Cell{13, 13}, WithRunID("fixed"))
		require.NoError(t, err)
		return res
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("repeated runs differ (-first +second):\n%s", diff)
	}
}

func TestSearchTieBreakIgnoresSeed(t *testing.T) {
	t.Parallel()

	var paths [][]Cell
	for _, seed := range []uint64{1, 2, 3} {
		env := mustEnv(t, 10, nil, nil, seed)
		sensor := NewSamplingSensor(SensorConfig{Range: 2}, newRNG(seed))
		res, err := Search(context.Background(), env, sensor, Cell{1, 2}, Cell{8, 5})
		require.NoError(t, err)
		require.True(t, res.Found)
		paths = append(paths, res.Path)
	}
	assert.Equal(t, paths[0], paths[1])
	assert.Equal(t, paths[0], paths[2])
}

func TestSearchWithoutHistoryBehavesIdentically(t *testing.T) {
	t.Parallel()

	run := func(record bool) Result {
		env := mustEnv(t, 12, []Cell{{5, 5}}, []Cell{{3, 8}, {8, 3}}, 21)
		sensor := NewSamplingSensor(SensorConfig{Range: 1}, newRNG(22))
		res, err := Search(context.Background(), env, sensor, Cell{1, 1}, Cell{10, 10}, WithHistory(record))
		require.NoError(t, err)
		return res
	}

	with, without := run(true), run(false)
	assert.NotNil(t, with.History)
	assert.Nil(t, without.History)
	assert.Equal(t, with.Path, without.Path)
	assert.Equal(t, with.ExpandedNodes, without.ExpandedNodes)
	assert.Equal(t, with.SensingQueries, without.SensingQueries)
}

func TestSearchStepLimit(t *testing.T) {
	t.Parallel()

	env := mustEnv(t, 20, nil, nil, 1)
	res, err := Search(context.Background(), env, exactSensor(1), Cell{1, 1}, Cell{18, 18}, WithMaxSteps(2))
	require.ErrorIs(t, err, ErrStepLimit)
	assert.False(t, res.Found)
	assert.Equal(t, 2, res.ExpandedNodes)
}

func TestSearchHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env := mustEnv(t, 10, nil, nil, 1)
	res, err := Search(ctx, env, exactSensor(1), Cell{1, 1}, Cell{8, 8})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.ExpandedNodes)
}

type countingObserver struct {
	expands  int
	senses   int
	finishes int
	last     Result
}

func (o *countingObserver) OnExpand(Cell, int) { o.expands++ }
func (o *countingObserver) OnSense(Reading)    { o.senses++ }
func (o *countingObserver) OnFinish(r Result, _ error) {
	o.finishes++
	o.last = r
}

func TestSearchNotifiesObserver(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	env := mustEnv(t, 8, []Cell{{3, 3}}, []Cell{{5, 2}}, 5)
	res, err := Search(context.Background(), env, exactSensor(5), Cell{1, 1}, Cell{6, 6}, WithObserver(obs))
	require.NoError(t, err)

	assert.Equal(t, res.ExpandedNodes, obs.expands)
	assert.Equal(t, res.SensingQueries, obs.senses)
	assert.Equal(t, 1, obs.finishes)
	assert.Equal(t, res.RunID, obs.last.RunID)
}

func TestSearchWithPropagatingSensor(t *testing.T) {
	t.Parallel()

	env := mustEnv(t, 10, []Cell{{4, 4}}, []Cell{{6, 6}}, 8)
	sensor, err := NewSensor(ModePropagate, SensorConfig{Range: 1}, newRNG(8))
	require.NoError(t, err)

	res, err := Search(context.Background(), env, sensor, Cell{1, 1}, Cell{8, 8}, WithMaxSteps(5_000))
	require.NoError(t, err)
	if res.Found {
		assert.Equal(t, Cell{1, 1}, res.Path[0])
		assert.Equal(t, Cell{8, 8}, res.Path[len(res.Path)-1])
	}
}
