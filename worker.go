package dynastar

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// TrialFunc runs one independent simulation. Each trial must build its own
// Environment, Sensor and random source; nothing may be shared across trials.
type TrialFunc func(ctx context.Context, index int) (Result, error)

// TrialOutcome pairs a trial's index with what it produced.
type TrialOutcome struct {
	Index  int
	Result Result
	Err    error
}

// RunTrials executes n trials on a pool of worker goroutines and returns the
// outcomes in index order. A failing trial does not stop the others; only
// cancellation of ctx does.
func RunTrials(ctx context.Context, n int, trial TrialFunc, options ...TrialOption) ([]TrialOutcome, error) {
	opts := trialOptions{NumberOfWorkers: runtime.NumCPU()}
	for _, o := range options {
		o(&opts)
	}
	if opts.NumberOfWorkers < 1 {
		opts.NumberOfWorkers = 1
	}

	outcomes := make([]TrialOutcome, n)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(opts.NumberOfWorkers)

	for i := range n {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, err := trial(groupCtx, i)
			outcomes[i] = TrialOutcome{Index: i, Result: result, Err: err}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

type trialOptions struct {
	NumberOfWorkers int
}

// TrialOption configures RunTrials.
type TrialOption func(*trialOptions)

// WithWorkers specifies how many trials run concurrently.
func WithWorkers(numberOfWorkers int) TrialOption {
	return func(options *trialOptions) { options.NumberOfWorkers = numberOfWorkers }
}
