package dynastar

import "fmt"

// Cell is a (row, column) grid coordinate.
type Cell struct {
	Row int
	Col int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// InBounds reports whether c lies inside a size x size grid.
func (c Cell) InBounds(size int) bool {
	return c.Row >= 0 && c.Row < size && c.Col >= 0 && c.Col < size
}

// Add returns c translated by (dr, dc).
func (c Cell) Add(dr, dc int) Cell {
	return Cell{Row: c.Row + dr, Col: c.Col + dc}
}

// Heuristic returns the estimated cost from node a to node b
type Heuristic func(from Cell, to Cell) float64

// Manhattan is |dr| + |dc|. With unit-cost diagonal moves it overestimates, so
// the search is not guaranteed to return a shortest path.
func Manhattan(from, to Cell) float64 {
	return float64(abs(from.Row-to.Row) + abs(from.Col-to.Col))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
