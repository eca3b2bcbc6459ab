package dynastar

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/zyedidia/generic/mapset"
)

var (
	// ErrInvalidGridSize is returned when a grid size is not positive.
	ErrInvalidGridSize = errors.New("grid size must be positive")
	// ErrOutOfBounds is returned when a cell lies outside the grid.
	ErrOutOfBounds = errors.New("cell out of grid bounds")
)

// Environment owns the grid, its static obstacles and the dynamic obstacles
// that random-walk once per search step.
type Environment struct {
	size    int
	static  mapset.Set[Cell]
	dynamic []Cell
	// occupancy counts dynamic obstacles per cell; several may share one.
	occupancy map[Cell]int
	rng       *rand.Rand
	history   [][]Cell
}

// NewEnvironment validates the layout and returns an environment whose
// obstacle history starts with the initial dynamic obstacle positions.
func NewEnvironment(size int, static, dynamic []Cell, rng *rand.Rand) (*Environment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGridSize, size)
	}
	if rng == nil {
		return nil, errors.New("environment requires a random source")
	}

	set := mapset.New[Cell]()
	for _, c := range static {
		if !c.InBounds(size) {
			return nil, fmt.Errorf("static obstacle %v: %w", c, ErrOutOfBounds)
		}
		set.Put(c)
	}
	for _, c := range dynamic {
		if !c.InBounds(size) {
			return nil, fmt.Errorf("dynamic obstacle %v: %w", c, ErrOutOfBounds)
		}
	}

	env := &Environment{
		size:    size,
		static:  set,
		dynamic: slices.Clone(dynamic),
		rng:     rng,
	}
	env.reindex()
	env.history = append(env.history, slices.Clone(env.dynamic))
	return env, nil
}

// Size returns the grid edge length.
func (e *Environment) Size() int { return e.size }

// IsBlockedStatic reports whether c is a static obstacle.
func (e *Environment) IsBlockedStatic(c Cell) bool {
	return e.static.Has(c)
}

// IsOccupied reports whether c holds a static obstacle or, right now, a dynamic one.
func (e *Environment) IsOccupied(c Cell) bool {
	return e.static.Has(c) || e.occupancy[c] > 0
}

// DynamicObstacles returns the current dynamic obstacle positions. Index i
// always refers to the same obstacle.
func (e *Environment) DynamicObstacles() []Cell {
	return slices.Clone(e.dynamic)
}

// StaticObstacles returns the static obstacle set in row-major order.
func (e *Environment) StaticObstacles() []Cell {
	out := make([]Cell, 0, e.static.Size())
	e.static.Each(func(c Cell) {
		out = append(out, c)
	})
	slices.SortFunc(out, compareCells)
	return out
}

// AdvanceDynamicObstacles moves every dynamic obstacle by an independent
// displacement in {-1,0,1} on each axis, clamped to the grid.
func (e *Environment) AdvanceDynamicObstacles() {
	next := make([]Cell, len(e.dynamic))
	for i, c := range e.dynamic {
		next[i] = e.step(c)
	}
	e.dynamic = next
	e.reindex()
	e.history = append(e.history, slices.Clone(next))
}

// ObstacleHistory returns a copy of the dynamic obstacle positions after
// construction and after every advance.
func (e *Environment) ObstacleHistory() [][]Cell {
	out := make([][]Cell, len(e.history))
	for i, frame := range e.history {
		out[i] = slices.Clone(frame)
	}
	return out
}

// step applies the random-walk motion model to one cell.
func (e *Environment) step(c Cell) Cell {
	dr := e.rng.IntN(3) - 1
	dc := e.rng.IntN(3) - 1
	return Cell{
		Row: clamp(c.Row+dr, 0, e.size-1),
		Col: clamp(c.Col+dc, 0, e.size-1),
	}
}

func (e *Environment) reindex() {
	e.occupancy = make(map[Cell]int, len(e.dynamic))
	for _, c := range e.dynamic {
		e.occupancy[c]++
	}
}

func compareCells(a, b Cell) int {
	if a.Row != b.Row {
		return a.Row - b.Row
	}
	return a.Col - b.Col
}
