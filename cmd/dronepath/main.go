// Command dronepath plans drone routes across a generated town whose birds
// move while the search runs.
//
//	dronepath run      [flags]   plan one mission and optionally render it
//	dronepath simulate [flags]   run a batch of missions and summarise them
//	dronepath serve    [flags]   step through a mission from the browser
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pdrpinto/dynastar"
	"github.com/pdrpinto/dynastar/internal/config"
	"github.com/pdrpinto/dynastar/internal/render"
	"github.com/pdrpinto/dynastar/internal/sim"
)

const usage = `usage: dronepath <command> [flags]

commands:
  run       plan one mission
  simulate  run a batch of missions
  serve     step through missions over HTTP
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches a subcommand and maps its outcome to an exit status: 0 when
// the command completed (including missions with no path), 1 on errors and
// 2 on usage errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "run":
		err = runMission(ctx, args[1:], stdout, stderr)
	case "simulate":
		err = runSimulate(ctx, args[1:], stdout, stderr)
	case "serve":
		err = runServe(ctx, args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		fmt.Fprintf(stderr, "dronepath: %v\n", err)
		return 1
	}
}

var errUsage = errors.New("usage error")

// missionFlags are shared by every subcommand. Flags override the config
// file only when set explicitly.
type missionFlags struct {
	config       string
	seed         uint64
	size         int
	sensingRange int
	start        string
	goal         string
	mode         string
	particles    int
	maxSteps     int
	knownStatic  bool
	logLevel     string
}

func (m *missionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&m.config, "config", "", "Path to a JSON or YAML run configuration")
	fs.Uint64Var(&m.seed, "seed", config.DefaultSeed, "Random seed")
	fs.IntVar(&m.size, "size", 0, "Grid size (0 draws from [10,30))")
	fs.IntVar(&m.sensingRange, "range", 0, "Sensing range in cells (unset draws from [2,5))")
	fs.StringVar(&m.start, "start", "", "Start cell as row,col (random when empty)")
	fs.StringVar(&m.goal, "goal", "", "Goal cell as row,col (random when empty)")
	fs.StringVar(&m.mode, "mode", string(dynastar.ModeSample), "Sensing mode: sample, grid or propagate")
	fs.IntVar(&m.particles, "particles", dynastar.DefaultNumParticles, "Particles per sensing query")
	fs.IntVar(&m.maxSteps, "max-steps", config.DefaultMaxSteps, "Expansion cap (0 disables)")
	fs.BoolVar(&m.knownStatic, "known-static", false, "Skip statically blocked cells before sensing")
	fs.StringVar(&m.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// resolve loads the config file and applies every flag the user set.
func (m *missionFlags) resolve(fs *flag.FlagSet, stderr io.Writer) (*config.Config, sim.Params, *slog.Logger, error) {
	cfg := &config.Config{}
	if m.config != "" {
		var err error
		if cfg, err = config.Load(m.config); err != nil {
			return nil, sim.Params{}, nil, err
		}
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["seed"] {
		cfg.Seed = &m.seed
	}
	// -size 0 keeps the configured size, or draws one when none is set.
	if set["size"] && m.size != 0 {
		cfg.GridSize = &m.size
	}
	if set["range"] {
		cfg.SensingRange = &m.sensingRange
	}
	if set["mode"] {
		cfg.SensingMode = &m.mode
	}
	if set["particles"] {
		cfg.NumParticles = &m.particles
	}
	if set["max-steps"] {
		cfg.MaxSteps = &m.maxSteps
	}
	if set["known-static"] {
		cfg.KnownStatic = &m.knownStatic
	}
	if set["log-level"] {
		cfg.LogLevel = &m.logLevel
	}
	for _, e := range []struct {
		name string
		raw  string
		dst  **config.CellConfig
	}{{"start", m.start, &cfg.Start}, {"goal", m.goal, &cfg.Goal}} {
		if !set[e.name] {
			continue
		}
		c, err := parseCell(e.raw)
		if err != nil {
			return nil, sim.Params{}, nil, fmt.Errorf("%w: -%s: %v", errUsage, e.name, err)
		}
		*e.dst = &config.CellConfig{Row: c.Row, Col: c.Col}
	}

	if err := cfg.Validate(); err != nil {
		return nil, sim.Params{}, nil, err
	}
	level, err := config.ParseLogLevel(cfg.GetLogLevel())
	if err != nil {
		return nil, sim.Params{}, nil, err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	p, err := cfg.Params()
	if err != nil {
		return nil, sim.Params{}, nil, err
	}
	p.Logger = logger
	return cfg, p, logger, nil
}

// parseCell reads "row,col".
func parseCell(s string) (dynastar.Cell, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return dynastar.Cell{}, fmt.Errorf("invalid cell %q, expected row,col", s)
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return dynastar.Cell{}, fmt.Errorf("invalid row in %q: %w", s, err)
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return dynastar.Cell{}, fmt.Errorf("invalid column in %q: %w", s, err)
	}
	return dynastar.Cell{Row: row, Col: col}, nil
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

func runMission(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var mf missionFlags
	mf.register(fs)
	pngPath := fs.String("png", "", "Write the final frame to this PNG file")
	htmlPath := fs.String("html", "", "Write the replay to this HTML file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	_, p, logger, err := mf.resolve(fs, stderr)
	if err != nil {
		return err
	}
	p.Render = *pngPath != "" || *htmlPath != ""

	out, err := sim.ComputePath(ctx, p)
	if err != nil {
		return err
	}
	res := out.Result
	fmt.Fprintf(stdout, "grid %dx%d, range %d, start %v, goal %v\n",
		out.Mission.Size, out.Mission.Size, out.Range, out.Mission.Start, out.Mission.Goal)
	if res.Found {
		fmt.Fprintf(stdout, "Path: %s\n", formatPath(res.Path))
		fmt.Fprintf(stdout, "cost %.0f, expanded %d, sensing queries %d\n", res.TotalCost, res.ExpandedNodes, res.SensingQueries)
	} else {
		fmt.Fprintln(stdout, "Path Not Found!")
	}

	scene := render.FromOutcome(out)
	if *pngPath != "" {
		if err := render.SavePNG(*pngPath, scene); err != nil {
			return err
		}
		logger.Info("wrote frame", "path", *pngPath)
	}
	if *htmlPath != "" {
		if err := render.SaveReplayHTML(*htmlPath, scene, render.DefaultMaxFrames); err != nil {
			return err
		}
		logger.Info("wrote replay", "path", *htmlPath)
	}
	return nil
}

func formatPath(path []dynastar.Cell) string {
	parts := make([]string, len(path))
	for i, c := range path {
		parts[i] = c.String()
	}
	return strings.Join(parts, " -> ")
}

func runSimulate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var mf missionFlags
	mf.register(fs)
	n := fs.Int("n", config.DefaultTrials, "Number of missions")
	workers := fs.Int("workers", 0, "Concurrent missions (0 uses one per CPU)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, p, logger, err := mf.resolve(fs, stderr)
	if err != nil {
		return err
	}
	trials, w := cfg.GetTrials(), cfg.GetWorkers()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "n":
			trials = *n
		case "workers":
			w = *workers
		}
	})
	if trials < 1 {
		return fmt.Errorf("%w: -n must be positive", errUsage)
	}

	logger.Info("simulating", "trials", trials, "workers", w, "base_seed", p.Seed)
	summary, outcomes, err := sim.Simulate(ctx, p, trials, w)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		if o.Err != nil {
			logger.Warn("trial failed", "trial", o.Index, "seed", p.Seed+uint64(o.Index), "error", o.Err)
		}
	}

	fmt.Fprintf(stdout, "Successful simulations: %d/%d (%.1f%%)\n", summary.Found, summary.Trials, 100*summary.SuccessRate)
	fmt.Fprintf(stdout, "No path: %d, failed: %d\n", summary.NotFound, summary.Failed)
	fmt.Fprintf(stdout, "Path length: mean %.2f, std %.2f\n", summary.MeanPathLength, summary.StdPathLength)
	fmt.Fprintf(stdout, "Expanded nodes: mean %.2f, std %.2f\n", summary.MeanExpanded, summary.StdExpanded)
	return nil
}
