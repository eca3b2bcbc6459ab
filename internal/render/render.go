// Package render draws a finished mission: a PNG frame through gonum/plot
// and an HTML replay of the obstacle and particle history through go-echarts.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/pdrpinto/dynastar"
	"github.com/pdrpinto/dynastar/internal/sim"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNoHistory is returned by the replay renderer when the run kept no history.
var ErrNoHistory = errors.New("run has no recorded history")

// Scene is everything a renderer draws. Cells are plotted with the column on
// the x axis and the row on the y axis.
type Scene struct {
	Title   string
	Size    int
	Start   dynastar.Cell
	Goal    dynastar.Cell
	Roads   []dynastar.Cell
	Static  []dynastar.Cell
	Path    []dynastar.Cell
	History *dynastar.History
}

// FromOutcome builds the scene of a finished mission.
func FromOutcome(o sim.Outcome) Scene {
	title := fmt.Sprintf("Drone path %v -> %v", o.Mission.Start, o.Mission.Goal)
	if !o.Result.Found {
		title += " (no path)"
	}
	return Scene{
		Title:   title,
		Size:    o.Mission.Size,
		Start:   o.Mission.Start,
		Goal:    o.Mission.Goal,
		Roads:   o.Layout.Roads,
		Static:  o.Layout.Static(),
		Path:    o.Result.Path,
		History: o.Result.History,
	}
}

var (
	roadColor     = color.RGBA{R: 0xbd, G: 0xbd, B: 0xbd, A: 255}
	staticColor   = color.RGBA{R: 0x6d, G: 0x4c, B: 0x41, A: 255}
	obstacleColor = color.RGBA{R: 0xff, G: 0x52, B: 0x52, A: 255}
	particleColor = color.RGBA{R: 0x42, G: 0xa5, B: 0xf5, A: 120}
	pathColor     = color.RGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 255}
	goalColor     = color.RGBA{R: 0xff, G: 0xb3, B: 0x00, A: 255}
)

func cellXYs(cells []dynastar.Cell) plotter.XYs {
	pts := make(plotter.XYs, 0, len(cells))
	for _, c := range cells {
		pts = append(pts, plotter.XY{X: float64(c.Col), Y: float64(c.Row)})
	}
	return pts
}

func flatten(frames [][]dynastar.Cell) []dynastar.Cell {
	var out []dynastar.Cell
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

// Plot builds the final frame: scenery, every recorded particle, the last
// obstacle positions and the path.
func Plot(s Scene) (*plot.Plot, error) {
	if s.Size <= 0 {
		return nil, fmt.Errorf("render: %w", dynastar.ErrInvalidGridSize)
	}

	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"
	p.X.Min, p.X.Max = -0.5, float64(s.Size)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(s.Size)-0.5
	p.Add(plotter.NewGrid())

	layers := []struct {
		name   string
		cells  []dynastar.Cell
		color  color.Color
		radius vg.Length
		shape  draw.GlyphDrawer
	}{
		{"road", s.Roads, roadColor, vg.Points(3), draw.BoxGlyph{}},
		{"particles", flatten(historyParticles(s.History)), particleColor, vg.Points(1.5), draw.CircleGlyph{}},
		{"static", s.Static, staticColor, vg.Points(4), draw.BoxGlyph{}},
		{"dynamic", lastObstacles(s.History), obstacleColor, vg.Points(3), draw.PyramidGlyph{}},
	}
	for _, l := range layers {
		if len(l.cells) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(cellXYs(l.cells))
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", l.name, err)
		}
		sc.GlyphStyle.Color = l.color
		sc.GlyphStyle.Radius = l.radius
		sc.GlyphStyle.Shape = l.shape
		p.Add(sc)
		p.Legend.Add(l.name, sc)
	}

	if len(s.Path) > 0 {
		line, err := plotter.NewLine(cellXYs(s.Path))
		if err != nil {
			return nil, fmt.Errorf("render path: %w", err)
		}
		line.Color = pathColor
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add("path", line)
	}

	goal, err := plotter.NewScatter(cellXYs([]dynastar.Cell{s.Goal}))
	if err != nil {
		return nil, fmt.Errorf("render goal: %w", err)
	}
	goal.GlyphStyle.Color = goalColor
	goal.GlyphStyle.Radius = vg.Points(5)
	goal.GlyphStyle.Shape = draw.CrossGlyph{}
	p.Add(goal)
	p.Legend.Add("goal", goal)

	return p, nil
}

// WritePNG renders the final frame as a PNG to w.
func WritePNG(w io.Writer, s Scene) error {
	p, err := Plot(s)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes the final frame to path.
func SavePNG(path string, s Scene) error {
	p, err := Plot(s)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// SaveReplayHTML writes the replay page to path.
func SaveReplayHTML(path string, s Scene, maxFrames int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteReplayHTML(f, s, maxFrames); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func historyParticles(h *dynastar.History) [][]dynastar.Cell {
	if h == nil {
		return nil
	}
	return h.Particles
}

func lastObstacles(h *dynastar.History) []dynastar.Cell {
	return h.ObstaclesAt(h.Ticks() - 1)
}
