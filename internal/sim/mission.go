// Package sim wires scenery, sensing and search into complete drone missions.
package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/pdrpinto/dynastar"
)

// Mission is where the drone starts and where it must go.
type Mission struct {
	Size  int
	Start dynastar.Cell
	Goal  dynastar.Cell
}

// NewMission validates explicit endpoints or draws missing ones uniformly
// from the grid. Out-of-bounds endpoints are rejected, never clamped.
func NewMission(size int, start, goal *dynastar.Cell, rng *rand.Rand) (Mission, error) {
	if size <= 0 {
		return Mission{}, fmt.Errorf("%w: %d", dynastar.ErrInvalidGridSize, size)
	}
	m := Mission{Size: size}
	var err error
	if m.Start, err = pick(size, start, rng); err != nil {
		return Mission{}, fmt.Errorf("start: %w", err)
	}
	if m.Goal, err = pick(size, goal, rng); err != nil {
		return Mission{}, fmt.Errorf("goal: %w", err)
	}
	return m, nil
}

func pick(size int, explicit *dynastar.Cell, rng *rand.Rand) (dynastar.Cell, error) {
	if explicit != nil {
		if !explicit.InBounds(size) {
			return dynastar.Cell{}, fmt.Errorf("%v: %w", *explicit, dynastar.ErrOutOfBounds)
		}
		return *explicit, nil
	}
	return dynastar.Cell{Row: rng.IntN(size), Col: rng.IntN(size)}, nil
}
