package dynastar

import (
	"context"
	"errors"
	"log/slog"
)

// ErrStepLimit is returned when a search exceeds its WithMaxSteps cap.
var ErrStepLimit = errors.New("search step limit reached")

// Result contains the outcome of a search. Found=false with a nil Path means
// the frontier emptied before the goal was reached; it is not an error.
type Result struct {
	RunID          string
	Path           []Cell
	TotalCost      float64
	ExpandedNodes  int
	SensingQueries int
	Found          bool
	History        *History
}

// Observer receives search events. Implementations must not mutate the
// readings they are handed.
type Observer interface {
	OnExpand(cell Cell, step int)
	OnSense(reading Reading)
	OnFinish(result Result, err error)
}

type nopObserver struct{}

func (nopObserver) OnExpand(Cell, int)     {}
func (nopObserver) OnSense(Reading)        {}
func (nopObserver) OnFinish(Result, error) {}

// Options defines parameters for the search.
type Options struct {
	// MaxSteps caps node expansions; zero means unbounded.
	MaxSteps      int
	Heuristic     Heuristic
	RecordHistory bool

	// KnownStatic lets the planner reject static obstacles from the map
	// before sensing, instead of relying on the estimator to find them.
	KnownStatic bool
	Observer    Observer
	Logger      *slog.Logger
	RunID       string
}

// Option is a function that modifies Options.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Heuristic:     Manhattan,
		RecordHistory: true,
		Observer:      nopObserver{},
		Logger:        slog.New(slog.DiscardHandler),
	}
}

// WithMaxSteps bounds the number of expansions. The dynamic environment can
// keep reopening cells, so long-running callers should set a cap.
func WithMaxSteps(n int) Option {
	return func(options *Options) { options.MaxSteps = n }
}

// WithHeuristic replaces the Manhattan default.
func WithHeuristic(h Heuristic) Option {
	return func(options *Options) {
		if h != nil {
			options.Heuristic = h
		}
	}
}

// WithHistory toggles particle recording and the History attached to the
// Result. The search itself behaves identically either way.
func WithHistory(record bool) Option {
	return func(options *Options) { options.RecordHistory = record }
}

// WithKnownStatic skips statically blocked neighbors without a sensing query.
func WithKnownStatic() Option {
	return func(options *Options) { options.KnownStatic = true }
}

// WithObserver registers search event hooks.
func WithObserver(o Observer) Option {
	return func(options *Options) {
		if o != nil {
			options.Observer = o
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(options *Options) {
		if l != nil {
			options.Logger = l
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(options *Options) { options.RunID = id }
}

// Search runs the dynamic A* search to completion.
//
// Each expansion senses every candidate neighbor against the live environment,
// relaxes the clear ones at unit cost and then advances the dynamic obstacles
// by exactly one tick. The context is checked once per expansion.
func Search(
	contextObject context.Context,
	env *Environment,
	sensor Sensor,
	startNode Cell,
	goalNode Cell,
	options ...Option,
) (Result, error) {
	stepper, err := NewStepper(env, sensor, startNode, goalNode, options...)
	if err != nil {
		return Result{}, err
	}

	for !stepper.Done() {
		if err := contextObject.Err(); err != nil {
			return stepper.finish(err)
		}
		if _, err := stepper.advance(); err != nil {
			return stepper.finish(err)
		}
	}
	return stepper.finish(nil)
}

func (s *Stepper) finish(err error) (Result, error) {
	result := s.Result()
	s.opts.Observer.OnFinish(result, err)
	s.logger.Info("search finished",
		"found", result.Found,
		"expanded", result.ExpandedNodes,
		"queries", result.SensingQueries,
		"path_len", len(result.Path),
		"err", err,
	)
	return result, err
}
