package sim

import (
	"context"
	"math"

	"github.com/pdrpinto/dynastar"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a batch of independent missions.
type Summary struct {
	Trials         int
	Found          int
	NotFound       int
	Failed         int
	SuccessRate    float64
	MeanPathLength float64
	StdPathLength  float64
	MeanExpanded   float64
	StdExpanded    float64
}

// Simulate runs n missions derived from base, trial i using seed base.Seed+i,
// on a pool of workers goroutines (0 uses one per CPU). Each trial owns its random source,
// environment and sensor.
func Simulate(ctx context.Context, base Params, n, workers int) (Summary, []dynastar.TrialOutcome, error) {
	trial := func(ctx context.Context, i int) (dynastar.Result, error) {
		p := base
		p.Seed = base.Seed + uint64(i)
		p.Render = false
		out, err := ComputePath(ctx, p)
		return out.Result, err
	}

	var opts []dynastar.TrialOption
	if workers > 0 {
		opts = append(opts, dynastar.WithWorkers(workers))
	}
	outcomes, err := dynastar.RunTrials(ctx, n, trial, opts...)
	if err != nil {
		return Summary{}, outcomes, err
	}
	return Summarize(outcomes), outcomes, nil
}

// Summarize computes success counts and path statistics. Path statistics
// only cover trials that found a path; they are NaN when none did.
func Summarize(outcomes []dynastar.TrialOutcome) Summary {
	s := Summary{Trials: len(outcomes)}
	var lengths, expanded []float64
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			s.Failed++
		case o.Result.Found:
			s.Found++
			lengths = append(lengths, float64(len(o.Result.Path)))
			expanded = append(expanded, float64(o.Result.ExpandedNodes))
		default:
			s.NotFound++
		}
	}
	if s.Trials > 0 {
		s.SuccessRate = float64(s.Found) / float64(s.Trials)
	}
	s.MeanPathLength, s.StdPathLength = meanStd(lengths)
	s.MeanExpanded, s.StdExpanded = meanStd(expanded)
	return s
}

func meanStd(xs []float64) (float64, float64) {
	switch len(xs) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}
