package dynastar

import (
	"container/heap"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/pdrpinto/dynastar/internal"
	"github.com/zyedidia/generic/mapset"
)

// StepSnapshot exposes the per-iteration state of the search
type StepSnapshot struct {
	Current   Cell
	Open      []Cell
	Closed    []Cell
	CameFrom  map[Cell]Cell
	Obstacles []Cell
	// Samples holds the particles of every candidate sensed clear in this
	// step. It is empty when history recording is off.
	Samples   [][]Cell
	Done      bool
	Found     bool
	Path      []Cell
	StepIndex int
}

// Stepper runs the dynamic search one expansion at a time. It is not safe for
// concurrent use; the environment and sensor it drives must not be shared
// with another running search.
type Stepper struct {
	env       *Environment
	sensor    Sensor
	start     Cell
	goal      Cell
	heuristic Heuristic
	opts      Options
	logger    *slog.Logger

	openSet  PriorityQueue
	sequence uint64
	closed   mapset.Set[Cell]
	cameFrom map[Cell]Cell
	gScore   map[Cell]float64

	particles particleLog
	// stepSamples collects the current step's samples for snapshots.
	stepSamples [][]Cell

	stepCount int
	queries   int
	done      bool
	found     bool
	path      []Cell
	cost      float64
}

// NewStepper validates the endpoints and seeds the frontier with start.
func NewStepper(
	env *Environment,
	sensor Sensor,
	start Cell,
	goal Cell,
	options ...Option,
) (*Stepper, error) {
	if env == nil {
		return nil, errors.New("nil environment")
	}
	if sensor == nil {
		return nil, errors.New("nil sensor")
	}
	if !start.InBounds(env.Size()) {
		return nil, fmt.Errorf("start %v: %w", start, ErrOutOfBounds)
	}
	if !goal.InBounds(env.Size()) {
		return nil, fmt.Errorf("goal %v: %w", goal, ErrOutOfBounds)
	}

	opts := defaultOptions()
	for _, o := range options {
		o(&opts)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	s := &Stepper{
		env:       env,
		sensor:    sensor,
		start:     start,
		goal:      goal,
		heuristic: opts.Heuristic,
		opts:      opts,
		logger:    opts.Logger.With("run_id", opts.RunID),
		openSet:   make(PriorityQueue, 0),
		closed:    mapset.New[Cell](),
		cameFrom:  make(map[Cell]Cell),
		gScore:    map[Cell]float64{start: 0},
	}
	heap.Init(&s.openSet)
	s.push(start, 0, s.heuristic(start, goal))
	return s, nil
}

// RunID identifies this search in logs and results.
func (s *Stepper) RunID() string { return s.opts.RunID }

// Done reports whether the search has reached Success or Failure.
func (s *Stepper) Done() bool { return s.done }

// Step advances the search by one node expansion and returns a snapshot
func (s *Stepper) Step() (StepSnapshot, error) {
	current, err := s.advance()
	snap := StepSnapshot{
		Current:   current,
		Open:      s.openCells(),
		Closed:    s.closedCells(),
		CameFrom:  copyCameFrom(s.cameFrom),
		Obstacles: s.env.DynamicObstacles(),
		Samples:   s.stepSamples,
		Done:      s.done,
		Found:     s.found,
		StepIndex: s.stepCount,
	}
	if s.found {
		snap.Path = slices.Clone(s.path)
	}
	return snap, err
}

// Result summarises the search so far. History is attached when recording is enabled.
func (s *Stepper) Result() Result {
	r := Result{
		RunID:          s.opts.RunID,
		ExpandedNodes:  s.stepCount,
		SensingQueries: s.queries,
		Found:          s.found,
	}
	if s.found {
		r.Path = slices.Clone(s.path)
		r.TotalCost = s.cost
	}
	if s.opts.RecordHistory {
		r.History = s.particles.snapshot(s.env)
	}
	return r
}

// advance pops the best live frontier entry and expands it. Stale entries,
// whose g no longer matches the cost map, are discarded without a tick.
func (s *Stepper) advance() (Cell, error) {
	s.stepSamples = nil
	if s.done {
		return Cell{}, nil
	}
	if s.opts.MaxSteps > 0 && s.stepCount >= s.opts.MaxSteps {
		s.done = true
		return Cell{}, fmt.Errorf("%w: %d steps", ErrStepLimit, s.opts.MaxSteps)
	}

	var currentItem *PriorityQueueItem
	for s.openSet.Len() > 0 {
		item := heap.Pop(&s.openSet).(*PriorityQueueItem)
		if item.GScore > s.gScore[item.Node] {
			continue
		}
		currentItem = item
		break
	}
	if currentItem == nil {
		s.done = true
		s.logger.Debug("frontier exhausted", "expanded", s.stepCount)
		return Cell{}, nil
	}

	current := currentItem.Node
	s.stepCount++
	s.closed.Put(current)
	s.opts.Observer.OnExpand(current, s.stepCount)

	if current == s.goal {
		s.done = true
		s.found = true
		s.cost = currentItem.GScore
		s.path = internal.ReconstructPath(s.cameFrom, current, s.start)
		s.logger.Debug("goal reached", "steps", s.stepCount, "cost", s.cost, "path_len", len(s.path))
		return current, nil
	}

	for _, nb := range Neighbors(current, s.env.Size()) {
		if s.opts.KnownStatic && s.env.IsBlockedStatic(nb) {
			continue
		}
		reading := s.sensor.Sense(nb, s.env)
		s.queries++
		s.opts.Observer.OnSense(reading)
		if reading.Blocked {
			continue
		}
		if s.opts.RecordHistory {
			s.particles.add(s.stepCount, reading.Samples)
			s.stepSamples = append(s.stepSamples, slices.Clone(reading.Samples))
		}

		tentativeG := s.gScore[current] + 1
		if gPrev, ok := s.gScore[nb]; !ok || tentativeG < gPrev {
			s.gScore[nb] = tentativeG
			s.cameFrom[nb] = current
			s.push(nb, tentativeG, tentativeG+s.heuristic(nb, s.goal))
		}
	}

	s.env.AdvanceDynamicObstacles()
	if p, ok := s.sensor.(Propagator); ok {
		p.Propagate(s.env)
	}
	return current, nil
}

func (s *Stepper) push(c Cell, g, f float64) {
	heap.Push(&s.openSet, &PriorityQueueItem{Node: c, GScore: g, FCost: f, Sequence: s.sequence})
	s.sequence++
}

// openCells lists cells with a live frontier entry, row-major.
func (s *Stepper) openCells() []Cell {
	set := mapset.New[Cell]()
	for _, it := range s.openSet {
		if it.GScore <= s.gScore[it.Node] {
			set.Put(it.Node)
		}
	}
	return sortedCells(set)
}

func (s *Stepper) closedCells() []Cell {
	return sortedCells(s.closed)
}

func sortedCells(set mapset.Set[Cell]) []Cell {
	out := make([]Cell, 0, set.Size())
	set.Each(func(c Cell) {
		out = append(out, c)
	})
	slices.SortFunc(out, compareCells)
	return out
}

func copyCameFrom(m map[Cell]Cell) map[Cell]Cell {
	if m == nil {
		return nil
	}
	c := make(map[Cell]Cell, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
