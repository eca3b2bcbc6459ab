// Package scenery lays out the town a drone flies over: roads, houses, trees
// and the birds that move between planning steps.
package scenery

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/pdrpinto/dynastar"
	"github.com/zyedidia/generic/mapset"
)

// Config bounds the random layout. Count ranges are half-open [Min, Max).
type Config struct {
	RoadProbability float64
	MinHouses       int
	MaxHouses       int
	MinHouseSide    int
	MaxHouseSide    int
	MinTrees        int
	MaxTrees        int
	MinBirds        int
	MaxBirds        int
}

// DefaultConfig matches the reference town: ~20% of rows and columns are
// roads, 8-14 houses of 2-4 cells a side, and a handful of trees and birds.
func DefaultConfig() Config {
	return Config{
		RoadProbability: 0.2,
		MinHouses:       8,
		MaxHouses:       15,
		MinHouseSide:    2,
		MaxHouseSide:    5,
		MinTrees:        10,
		MaxTrees:        15,
		MinBirds:        5,
		MaxBirds:        10,
	}
}

// Validate checks that every range is non-empty and non-negative.
func (c Config) Validate() error {
	if c.RoadProbability < 0 || c.RoadProbability > 1 {
		return fmt.Errorf("road probability must be between 0 and 1, got %f", c.RoadProbability)
	}
	for _, r := range []struct {
		name     string
		min, max int
	}{
		{"houses", c.MinHouses, c.MaxHouses},
		{"house side", c.MinHouseSide, c.MaxHouseSide},
		{"trees", c.MinTrees, c.MaxTrees},
		{"birds", c.MinBirds, c.MaxBirds},
	} {
		if r.min < 0 || r.max <= r.min {
			return fmt.Errorf("%s range [%d,%d) is empty or negative", r.name, r.min, r.max)
		}
	}
	return nil
}

// Layout is one generated town. Houses and trees are static obstacles, birds
// are dynamic obstacles and roads are free cells drawn for context.
type Layout struct {
	Size   int
	Roads  []dynastar.Cell
	Houses []dynastar.Cell
	Trees  []dynastar.Cell
	Birds  []dynastar.Cell
}

// Static returns the houses and trees.
func (l Layout) Static() []dynastar.Cell {
	return slices.Concat(l.Houses, l.Trees)
}

// Environment wraps the layout in a dynastar.Environment driven by rng.
func (l Layout) Environment(rng *rand.Rand) (*dynastar.Environment, error) {
	return dynastar.NewEnvironment(l.Size, l.Static(), l.Birds, rng)
}

// Generate builds a layout from rng. Reserved cells (typically the start and
// goal) never receive a house or tree.
func Generate(size int, cfg Config, rng *rand.Rand, reserved ...dynastar.Cell) (Layout, error) {
	if size <= 0 {
		return Layout{}, fmt.Errorf("%w: %d", dynastar.ErrInvalidGridSize, size)
	}
	if rng == nil {
		return Layout{}, errors.New("scenery requires a random source")
	}
	if err := cfg.Validate(); err != nil {
		return Layout{}, err
	}

	g := generator{
		size:     size,
		cfg:      cfg,
		rng:      rng,
		roads:    mapset.New[dynastar.Cell](),
		static:   mapset.New[dynastar.Cell](),
		reserved: mapset.New[dynastar.Cell](),
	}
	for _, c := range reserved {
		g.reserved.Put(c)
	}

	l := Layout{Size: size}
	l.Roads = g.roadCells()
	l.Houses = g.houseCells()
	l.Trees = g.treeCells()
	l.Birds = g.birdCells()
	return l, nil
}

type generator struct {
	size     int
	cfg      Config
	rng      *rand.Rand
	roads    mapset.Set[dynastar.Cell]
	static   mapset.Set[dynastar.Cell]
	reserved mapset.Set[dynastar.Cell]
}

func (g *generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo)
}

func (g *generator) randomCell() dynastar.Cell {
	return dynastar.Cell{Row: g.rng.IntN(g.size), Col: g.rng.IntN(g.size)}
}

// maxAttempts bounds rejection sampling on crowded grids.
func (g *generator) maxAttempts() int {
	return 10 * g.size * g.size
}

// roadCells turns whole rows and columns into road.
func (g *generator) roadCells() []dynastar.Cell {
	rows := make([]bool, g.size)
	cols := make([]bool, g.size)
	for i := range g.size {
		rows[i] = g.rng.Float64() < g.cfg.RoadProbability
	}
	for i := range g.size {
		cols[i] = g.rng.Float64() < g.cfg.RoadProbability
	}

	var out []dynastar.Cell
	for i := range g.size {
		for j := range g.size {
			c := dynastar.Cell{Row: i, Col: j}
			if (rows[i] || cols[j]) && !g.roads.Has(c) {
				g.roads.Put(c)
				out = append(out, c)
			}
		}
	}
	return out
}

// houseCells drops rectangles at random corners, clipped to the grid and to
// non-road cells. A rectangle touching an earlier house is discarded.
func (g *generator) houseCells() []dynastar.Cell {
	var out []dynastar.Cell
	n := g.between(g.cfg.MinHouses, g.cfg.MaxHouses)
	for range n {
		corner := g.randomCell()
		width := g.between(g.cfg.MinHouseSide, g.cfg.MaxHouseSide)
		height := g.between(g.cfg.MinHouseSide, g.cfg.MaxHouseSide)

		var house []dynastar.Cell
		overlaps := false
		for dr := range height {
			for dc := range width {
				c := corner.Add(dr, dc)
				if !c.InBounds(g.size) || g.roads.Has(c) || g.reserved.Has(c) {
					continue
				}
				if g.static.Has(c) {
					overlaps = true
				}
				house = append(house, c)
			}
		}
		if overlaps {
			continue
		}
		for _, c := range house {
			g.static.Put(c)
		}
		out = append(out, house...)
	}
	return out
}

// treeCells places single trees on free non-road cells. The drawn count is
// inclusive, so a draw of n yields n+1 trees when space allows.
func (g *generator) treeCells() []dynastar.Cell {
	var out []dynastar.Cell
	n := g.between(g.cfg.MinTrees, g.cfg.MaxTrees)
	for attempt := 0; len(out) <= n && attempt < g.maxAttempts(); attempt++ {
		c := g.randomCell()
		if g.roads.Has(c) || g.static.Has(c) || g.reserved.Has(c) {
			continue
		}
		g.static.Put(c)
		out = append(out, c)
	}
	return out
}

// birdCells places distinct starting cells for the dynamic obstacles. Birds
// fly, so they may start above roads, houses or trees.
func (g *generator) birdCells() []dynastar.Cell {
	seen := mapset.New[dynastar.Cell]()
	var out []dynastar.Cell
	n := g.between(g.cfg.MinBirds, g.cfg.MaxBirds)
	for attempt := 0; len(out) <= n && attempt < g.maxAttempts(); attempt++ {
		c := g.randomCell()
		if seen.Has(c) {
			continue
		}
		seen.Put(c)
		out = append(out, c)
	}
	return out
}
