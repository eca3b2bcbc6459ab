package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pdrpinto/dynastar"
)

// DefaultMaxFrames bounds the number of charts on a replay page.
const DefaultMaxFrames = 60

// frameIndices picks evenly strided ticks, at most maxFrames of them, and
// appends the last tick when the stride skips it, so the result can hold
// maxFrames+1 entries. maxFrames <= 0 keeps every tick.
func frameIndices(ticks, maxFrames int) []int {
	if ticks <= 0 {
		return nil
	}
	stride := 1
	if maxFrames > 0 && ticks > maxFrames {
		stride = (ticks + maxFrames - 1) / maxFrames
	}
	var out []int
	for i := 0; i < ticks; i += stride {
		out = append(out, i)
	}
	if out[len(out)-1] != ticks-1 {
		out = append(out, ticks-1)
	}
	return out
}

func scatterPoints(cells []dynastar.Cell) []opts.ScatterData {
	pts := make([]opts.ScatterData, 0, len(cells))
	for _, c := range cells {
		pts = append(pts, opts.ScatterData{Value: []interface{}{c.Col, c.Row}})
	}
	return pts
}

// droneAt returns where the drone stands at tick i of the replay.
func droneAt(path []dynastar.Cell, start dynastar.Cell, i int) dynastar.Cell {
	if len(path) == 0 {
		return start
	}
	if i >= len(path) {
		return path[len(path)-1]
	}
	return path[i]
}

// replayChart draws tick i: obstacles after i ticks, the particles sensed
// during the expansion that followed, and the drone's position on the path.
func replayChart(s Scene, i int) *charts.Scatter {
	h := s.History
	drone := droneAt(s.Path, s.Start, i)
	particles := h.ParticlesAtStep(i + 1)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "700px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s, tick %d of %d", s.Title, i, h.Ticks()-1),
			Subtitle: fmt.Sprintf("drone=%v obstacles=%d particles=%d", drone, len(h.ObstaclesAt(i)), len(particles)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -1, Max: s.Size, Name: "column", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: s.Size, Name: "row", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("static", scatterPoints(s.Static), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#6d4c41"}))
	scatter.AddSeries("particles", scatterPoints(particles), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#42a5f5"}))
	scatter.AddSeries("dynamic", scatterPoints(h.ObstaclesAt(i)), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))
	scatter.AddSeries("drone", scatterPoints([]dynastar.Cell{drone}), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#2e7d32"}))
	scatter.AddSeries("goal", scatterPoints([]dynastar.Cell{s.Goal}), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ffb300"}))
	return scatter
}

// WriteReplayHTML renders one chart per sampled tick of the run's history as
// a single HTML page.
func WriteReplayHTML(w io.Writer, s Scene, maxFrames int) error {
	if s.History.Ticks() == 0 {
		return ErrNoHistory
	}
	page := components.NewPage()
	page.PageTitle = s.Title
	for _, i := range frameIndices(s.History.Ticks(), maxFrames) {
		page.AddCharts(replayChart(s, i))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render replay: %w", err)
	}
	return nil
}
