// Command fishery runs the spatial fish population and fleet simulation.
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
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/fishery/internal/api"
	"github.com/talgya/fishery/internal/config"
	"github.com/talgya/fishery/internal/engine"
	"github.com/talgya/fishery/internal/persistence"
	"github.com/talgya/fishery/internal/policy"
)

type options struct {
	configPath string
	preset     string
	seed       int64
	ticks      int
	report     int
	dbPath     string
	snapshot   string
	resume     string
	tickLog    string
	apiAddr    string
	check      bool
	verbose    bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", os.Getenv("FISHERY_CONFIG"), "scenario file (.yaml, .yml or .toml)")
	flag.StringVar(&o.preset, "preset", "reference", "built-in scenario the config file is layered over (reference, refined)")
	flag.Int64Var(&o.seed, "seed", 0, "random seed (0 = scenario seed, or random)")
	flag.IntVar(&o.ticks, "ticks", -1, "ticks to run (0 = until interrupted)")
	flag.IntVar(&o.report, "report", -1, "report every N ticks")
	flag.StringVar(&o.dbPath, "db", os.Getenv("FISHERY_DB"), "SQLite run history database")
	flag.StringVar(&o.snapshot, "snapshot", "", "snapshot directory")
	flag.StringVar(&o.resume, "resume", "", "snapshot file or directory to resume from")
	flag.StringVar(&o.tickLog, "ticklog", "", "directory for compressed per-tick logs")
	flag.StringVar(&o.apiAddr, "api", "", "serve the HTTP API on this address, e.g. :8080")
	flag.BoolVar(&o.check, "check", false, "validate invariants after every tick")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fishery: %v\n", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(opts, cfg); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig layers the config file and flags over the chosen preset.
func loadConfig(o options) (config.Config, error) {
	base, ok := config.Preset(o.preset)
	if !ok {
		return base, fmt.Errorf("unknown preset %q", o.preset)
	}
	cfg := base
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadOver(o.configPath, base); err != nil {
			return cfg, err
		}
	}

	if o.seed != 0 {
		cfg.Seed = o.seed
	}
	if o.ticks >= 0 {
		cfg.Run.Ticks = o.ticks
	}
	if o.report >= 0 {
		cfg.Run.ReportEvery = o.report
	}
	if o.dbPath != "" {
		cfg.Run.DBPath = o.dbPath
	}
	if o.snapshot != "" {
		cfg.Run.SnapshotDir = o.snapshot
	}
	if o.tickLog != "" {
		cfg.Run.TickLogDir = o.tickLog
	}
	if o.apiAddr != "" {
		cfg.Run.APIAddr = o.apiAddr
	}
	if o.check {
		cfg.Run.CheckInvariants = true
	}
	if key := os.Getenv("FISHERY_ADMIN_KEY"); key != "" {
		cfg.Run.AdminKey = key
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(opts options, cfg config.Config) error {
	// ── Simulation ────────────────────────────────────────────────────
	sim, resumedFrom, err := buildSimulation(cfg, opts.resume)
	if err != nil {
		return err
	}

	pol, closePolicy, err := policy.FromConfig(sim.Config)
	if err != nil {
		return err
	}
	defer closePolicy()
	sim.Policy = pol

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	var recorder *persistence.Recorder
	runID := ""
	if cfg.Run.DBPath != "" {
		db, err = persistence.Open(cfg.Run.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.Run.DBPath)

		if runID, err = db.StartRun(sim.Config); err != nil {
			return err
		}
		if resumedFrom != "" {
			if err := db.SaveMeta(runID, "resumed_from", resumedFrom); err != nil {
				slog.Error("save meta failed", "error", err)
			}
		}
		recorder = persistence.NewRecorder(db, runID, max(cfg.Run.ReportEvery, 1))
	}

	// ── Tick log ──────────────────────────────────────────────────────
	var tickLog *persistence.TickLog
	if cfg.Run.TickLogDir != "" {
		tickLog = persistence.NewTickLog(cfg.Run.TickLogDir, "ticks", sim.Config.Fish.YearLength)
		defer func() {
			if err := tickLog.Close(); err != nil {
				slog.Error("tick log close failed", "error", err)
			}
		}()
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(sim)
	hub := api.NewHub()
	report := newPeriodReport(os.Stdout, sim.CurrentStats(), sim.Config.Fish.YearLength)

	eng.OnTick = func(st engine.Stats) {
		report.observe(st)
		if recorder != nil {
			if err := recorder.Add(st); err != nil {
				slog.Error("record stats failed", "tick", st.Tick, "error", err)
			}
		}
		if tickLog != nil {
			if err := tickLog.Write(st); err != nil {
				slog.Error("tick log write failed", "tick", st.Tick, "error", err)
			}
		}
		if every := cfg.Run.SnapshotEvery; every > 0 && cfg.Run.SnapshotDir != "" && st.Tick%every == 0 {
			writeSnapshot(cfg.Run.SnapshotDir, runID, sim)
		}
	}
	eng.OnReport = func(st engine.Stats) {
		report.print(st)
		hub.Publish(st)
	}
	eng.OnYear = func(st engine.Stats) {
		slog.Info("year complete",
			"year", st.Tick/sim.Config.Fish.YearLength,
			"population", st.Population,
			"caught_total", st.CaughtTotal,
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Run.APIAddr != "" {
		if cfg.Run.AdminKey == "" {
			slog.Warn("FISHERY_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		server := &api.Server{
			Eng:         eng,
			DB:          db,
			RunID:       runID,
			SnapshotDir: cfg.Run.SnapshotDir,
			AdminKey:    cfg.Run.AdminKey,
			Addr:        cfg.Run.APIAddr,
			Hub:         hub,
		}
		go func() {
			if err := server.Serve(ctx); err != nil {
				slog.Error("HTTP server error", "error", err)
			}
		}()
	}

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Printf("\n%s: %s fish on a %d×%d ocean, %d boats, seed %d\n",
		sim.Config.Name, humanize.Comma(int64(sim.Stats.Population)),
		sim.Grid.Dim, sim.Grid.Dim, len(sim.Boats), sim.Config.Seed)
	if sim.Tick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", sim.Tick, engine.SimTime(sim.Tick, sim.Config.Fish.YearLength))
	}

	runErr := eng.Run(ctx)
	outcome := "completed"
	switch {
	case errors.Is(runErr, context.Canceled):
		outcome = "interrupted"
		runErr = nil
	case runErr != nil:
		outcome = "failed"
	case sim.Extinct():
		outcome = "extinct"
	}

	// ── Shutdown ──────────────────────────────────────────────────────
	if cfg.Run.SnapshotDir != "" {
		writeSnapshot(cfg.Run.SnapshotDir, runID, sim)
	}
	if db != nil {
		if err := recorder.Flush(); err != nil {
			slog.Error("final stats flush failed", "error", err)
		}
		if err := db.FinishRun(runID, sim.Tick, outcome); err != nil {
			slog.Error("finish run failed", "error", err)
		}
	}

	st := sim.CurrentStats()
	fmt.Printf("Run %s after %s ticks (%s): population %s, births %s, deaths %s, caught %s\n",
		outcome, humanize.Comma(int64(st.Tick)), engine.SimTime(st.Tick, sim.Config.Fish.YearLength),
		humanize.Comma(int64(st.Population)), humanize.Comma(int64(st.Births)),
		humanize.Comma(int64(st.Deaths)), humanize.Comma(int64(st.CaughtTotal)))
	return runErr
}

// buildSimulation resumes from a snapshot when asked, otherwise builds a
// fresh world. It returns the snapshot path it resumed from, if any.
func buildSimulation(cfg config.Config, resume string) (*engine.Simulation, string, error) {
	if resume == "" {
		sim, err := engine.NewSimulation(cfg)
		return sim, "", err
	}

	path := resume
	if info, err := os.Stat(resume); err == nil && info.IsDir() {
		latest, err := persistence.LatestSnapshot(resume)
		if err != nil {
			return nil, "", err
		}
		if latest == "" {
			return nil, "", fmt.Errorf("no snapshots in %s", resume)
		}
		path = latest
	}

	hdr, st, err := persistence.ReadSnapshot(path)
	if err != nil {
		return nil, "", fmt.Errorf("read snapshot %s: %w", path, err)
	}
	// Run settings come from this invocation; the model from the snapshot.
	st.Config.Run = cfg.Run
	st.Config.Logging = cfg.Logging
	sim, err := engine.Restore(st)
	if err != nil {
		return nil, "", err
	}
	slog.Info("world state restored",
		"snapshot", path,
		"run", hdr.RunID,
		"tick", sim.Tick,
		"fish", sim.Stats.Population,
	)
	return sim, path, nil
}

func writeSnapshot(dir, runID string, sim *engine.Simulation) {
	path := persistence.SnapshotPath(dir, sim.Tick)
	if err := persistence.WriteSnapshot(path, runID, sim.State()); err != nil {
		slog.Error("snapshot failed", "path", path, "error", err)
		return
	}
	size := ""
	if info, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	slog.Info("snapshot written", "path", path, "tick", sim.Tick, "size", size)
}

// periodReport prints per-period births, deaths and catches along with
// running averages over the ticks this process has stepped.
type periodReport struct {
	out        io.Writer
	yearLength int

	births, deaths, caught int // Cumulative counters at the last report
	startPop               int
	ticks                  int
	popSum                 float64
}

func newPeriodReport(out io.Writer, st engine.Stats, yearLength int) *periodReport {
	return &periodReport{
		out:        out,
		yearLength: yearLength,
		births:     st.Births,
		deaths:     st.Deaths,
		caught:     st.CaughtTotal,
		startPop:   st.Population,
	}
}

// observe integrates the population over every tick.
func (r *periodReport) observe(st engine.Stats) {
	r.ticks++
	r.popSum += float64(st.Population)
}

func (r *periodReport) print(st engine.Stats) {
	season := "off"
	if st.Season >= 0 {
		season = fmt.Sprintf("day %d", st.Season+1)
	}
	births, deaths, caught := st.Births-r.births, st.Deaths-r.deaths, st.CaughtTotal-r.caught
	r.births, r.deaths, r.caught = st.Births, st.Deaths, st.CaughtTotal

	var dpop, avgPop float64
	if r.ticks > 0 {
		dpop = float64(st.Population-r.startPop) / float64(r.ticks)
		avgPop = r.popSum / float64(r.ticks)
	}

	fmt.Fprintf(r.out, "%-18s pop %9s  mature %9s  births %7s  deaths %7s  caught %6s  moved %9s  resource %s  spawn %s  avg dpop/dt %+.3f  avg pop %s\n",
		engine.SimTime(st.Tick, r.yearLength),
		humanize.Comma(int64(st.Population)),
		humanize.Comma(int64(st.Mature)),
		humanize.Comma(int64(births)),
		humanize.Comma(int64(deaths)),
		humanize.Comma(int64(caught)),
		humanize.Comma(int64(st.Moved)),
		strings.TrimSpace(humanize.FormatFloat("#,###.##", st.Resource)),
		season,
		dpop,
		strings.TrimSpace(humanize.FormatFloat("#,###.#", avgPop)),
	)
}
