package metrics

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/pdrpinto/dynastar"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCountsSearch(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := New(reg)

	rng := rand.New(rand.NewPCG(1, 1))
	env, err := dynastar.NewEnvironment(5, nil, nil, rng)
	require.NoError(t, err)
	sensor := dynastar.NewSamplingSensor(dynastar.SensorConfig{Range: 0}, rng)

	res, err := dynastar.Search(context.Background(), env, sensor,
		dynastar.Cell{Row: 1, Col: 1}, dynastar.Cell{Row: 3, Col: 3}, dynastar.WithObserver(c))
	require.NoError(t, err)

	assert.Equal(t, float64(res.ExpandedNodes), testutil.ToFloat64(c.expansions))
	assert.Equal(t, float64(res.SensingQueries), testutil.ToFloat64(c.queries))
	assert.Zero(t, testutil.ToFloat64(c.blocked))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searches.WithLabelValues(OutcomeFound)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.pathLength))
}

func TestCollectorOutcomes(t *testing.T) {
	t.Parallel()

	c := New(prometheus.NewRegistry())
	c.OnFinish(dynastar.Result{}, nil)
	c.OnFinish(dynastar.Result{}, errors.New("limit"))
	c.OnSense(dynastar.Reading{Probability: 0.9, Blocked: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.searches.WithLabelValues(OutcomeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searches.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.blocked))
}

func TestNewRegistersOnce(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
