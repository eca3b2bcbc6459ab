package dynastar

import "slices"

// History is a read-only record of one search, handed to renderers after the
// search finishes. Nothing in it aliases live search or environment state.
type History struct {
	// Obstacles[0] holds the dynamic obstacles before the first tick; each
	// later frame is the state after one more tick.
	Obstacles [][]Cell
	// Particles holds the samples of every sensing query that found its
	// candidate clear, in query order.
	Particles [][]Cell
	// ParticleSteps[i] is the expansion step during which Particles[i] was taken.
	ParticleSteps []int
}

// ObstaclesAt returns the obstacle frame for tick i, clamped to the recorded range.
func (h *History) ObstaclesAt(i int) []Cell {
	if h == nil || len(h.Obstacles) == 0 {
		return nil
	}
	return h.Obstacles[clamp(i, 0, len(h.Obstacles)-1)]
}

// ParticlesAtStep returns every sample recorded while expanding step.
func (h *History) ParticlesAtStep(step int) []Cell {
	if h == nil {
		return nil
	}
	var out []Cell
	for i, s := range h.ParticleSteps {
		if s == step {
			out = append(out, h.Particles[i]...)
		}
	}
	return out
}

// Ticks returns how many obstacle frames were recorded.
func (h *History) Ticks() int {
	if h == nil {
		return 0
	}
	return len(h.Obstacles)
}

type particleLog struct {
	frames [][]Cell
	steps  []int
}

func (l *particleLog) add(step int, samples []Cell) {
	l.frames = append(l.frames, slices.Clone(samples))
	l.steps = append(l.steps, step)
}

func (l *particleLog) snapshot(env *Environment) *History {
	h := &History{
		Obstacles:     env.ObstacleHistory(),
		Particles:     make([][]Cell, len(l.frames)),
		ParticleSteps: slices.Clone(l.steps),
	}
	for i, f := range l.frames {
		h.Particles[i] = slices.Clone(f)
	}
	return h
}
