package main

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pdrpinto/dynastar"
	"github.com/pdrpinto/dynastar/internal/metrics"
	"github.com/pdrpinto/dynastar/internal/render"
	"github.com/pdrpinto/dynastar/internal/sim"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed static/index.html
var indexHTML []byte

type point = [2]int

func toPoint(c dynastar.Cell) point { return point{c.Row, c.Col} }

func toPoints(cells []dynastar.Cell) []point {
	res := make([]point, 0, len(cells))
	for _, c := range cells {
		res = append(res, toPoint(c))
	}
	return res
}

type snapshot struct {
	RunID     string  `json:"run_id"`
	Step      int     `json:"step"`
	Size      int     `json:"size"`
	Static    []point `json:"static"`
	Obstacles []point `json:"obstacles"`
	Samples   []point `json:"samples,omitempty"`
	Open      []point `json:"open,omitempty"`
	Closed    []point `json:"closed,omitempty"`
	Current   point   `json:"current"`
	Start     point   `json:"start"`
	Goal      point   `json:"goal"`
	Done      bool    `json:"done"`
	Found     bool    `json:"found"`
	Path      []point `json:"path,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// server holds one interactive mission at a time. Finished missions are kept
// for /replay.
type server struct {
	base    sim.Params
	logger  *slog.Logger
	metrics *metrics.Collector
	reg     *prometheus.Registry

	mu      sync.Mutex
	prep    sim.Prepared
	stepper *dynastar.Stepper
	last    *render.Scene
}

func newServer(base sim.Params, logger *slog.Logger) *server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	base.Render = true
	return &server{
		base:    base,
		logger:  logger,
		metrics: metrics.New(reg),
		reg:     reg,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/init", s.handleInit)
	mux.HandleFunc("/next", s.handleNext)
	mux.HandleFunc("/replay", s.handleReplay)
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// handleInit starts a new mission. The query may override seed, size and
// mode; the rest comes from the command line.
func (s *server) handleInit(w http.ResponseWriter, r *http.Request) {
	p := s.base
	q := r.URL.Query()
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid seed %q", v))
			return
		}
		p.Seed = seed
	}
	if v := q.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid size %q", v))
			return
		}
		p.GridSize = size
		// A resized grid cannot keep configured endpoints.
		p.Start, p.Goal = nil, nil
	}
	if v := q.Get("mode"); v != "" {
		mode, err := dynastar.ParseSensingMode(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		p.Mode = mode
	}

	prep, err := sim.Prepare(p)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.Observer = s.metrics
	p.Logger = s.logger
	stepper, err := dynastar.NewStepper(prep.Env, prep.Sensor, prep.Mission.Start, prep.Mission.Goal, p.SearchOptions()...)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.prep = prep
	s.stepper = stepper
	s.mu.Unlock()

	s.logger.Info("mission initialised",
		"run_id", stepper.RunID(),
		"seed", p.Seed,
		"size", prep.Mission.Size,
		"range", prep.Range,
		"mode", string(p.Mode),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"run_id": stepper.RunID(),
		"size":   prep.Mission.Size,
		"range":  prep.Range,
		"start":  toPoint(prep.Mission.Start),
		"goal":   toPoint(prep.Mission.Goal),
	})
}

func (s *server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stepper == nil {
		writeJSONError(w, http.StatusBadRequest, "mission not initialised")
		return
	}

	wasDone := s.stepper.Done()
	st, stepErr := s.stepper.Step()
	snap := snapshot{
		RunID:     s.stepper.RunID(),
		Step:      st.StepIndex,
		Size:      s.prep.Mission.Size,
		Static:    toPoints(s.prep.Env.StaticObstacles()),
		Obstacles: toPoints(st.Obstacles),
		Open:      toPoints(st.Open),
		Closed:    toPoints(st.Closed),
		Current:   toPoint(st.Current),
		Start:     toPoint(s.prep.Mission.Start),
		Goal:      toPoint(s.prep.Mission.Goal),
		Done:      st.Done,
		Found:     st.Found,
		Path:      toPoints(st.Path),
	}
	for _, samples := range st.Samples {
		snap.Samples = append(snap.Samples, toPoints(samples)...)
	}
	if stepErr != nil {
		snap.Error = stepErr.Error()
	}

	if st.Done && !wasDone {
		res := s.stepper.Result()
		s.metrics.OnFinish(res, stepErr)
		scene := render.FromOutcome(sim.Outcome{
			Mission: s.prep.Mission,
			Range:   s.prep.Range,
			Layout:  s.prep.Layout,
			Result:  res,
		})
		s.last = &scene
		s.logger.Info("mission finished", "run_id", res.RunID, "found", res.Found, "expanded", res.ExpandedNodes)
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handleReplay(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	scene := s.last
	s.mu.Unlock()
	if scene == nil {
		writeJSONError(w, http.StatusNotFound, "no finished mission to replay")
		return
	}

	maxFrames := render.DefaultMaxFrames
	if v := r.URL.Query().Get("max_frames"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid max_frames %q", v))
			return
		}
		maxFrames = n
	}

	var buf bytes.Buffer
	if err := render.WriteReplayHTML(&buf, *scene, maxFrames); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render replay: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func runServe(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var mf missionFlags
	mf.register(fs)
	listen := fs.String("listen", ":8080", "Listen address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	_, p, logger, err := mf.resolve(fs, stderr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           newServer(p, logger).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "dronepath: http://%s\n", ln.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
