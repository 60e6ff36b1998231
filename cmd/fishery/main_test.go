package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/fishery/internal/config"
	"github.com/talgya/fishery/internal/engine"
	"github.com/talgya/fishery/internal/persistence"
)

func TestLoadConfigLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte("ocean_dim: 20\nrun:\n  ticks: 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(options{
		configPath: path,
		preset:     "refined",
		seed:       77,
		ticks:      -1,
		report:     5,
		check:      true,
	})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Name != "refined" || cfg.OceanDim != 20 {
		t.Fatalf("file not layered over preset: %+v", cfg)
	}
	if cfg.Seed != 77 || cfg.Run.Ticks != 50 || cfg.Run.ReportEvery != 5 || !cfg.Run.CheckInvariants {
		t.Fatalf("flags not applied: %+v", cfg.Run)
	}
}

func TestLoadConfigUnknownPreset(t *testing.T) {
	if _, err := loadConfig(options{preset: "nope", ticks: -1, report: -1}); err == nil {
		t.Fatal("expected error")
	}
}

func TestResumeFromDirectory(t *testing.T) {
	cfg := config.Default()
	cfg.OceanDim = 6
	cfg.InitialPopulation = 30
	cfg.Seed = 4
	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		sim.Step()
		if err := persistence.WriteSnapshot(persistence.SnapshotPath(dir, sim.Tick), "r", sim.State()); err != nil {
			t.Fatal(err)
		}
	}

	cfg.Run.Ticks = 9
	resumed, from, err := buildSimulation(cfg, dir)
	if err != nil {
		t.Fatalf("buildSimulation: %v", err)
	}
	if resumed.Tick != 3 || from != persistence.SnapshotPath(dir, 3) {
		t.Fatalf("resumed tick %d from %s", resumed.Tick, from)
	}
	if resumed.Config.Run.Ticks != 9 {
		t.Fatal("run settings should come from the invocation")
	}

	if _, _, err := buildSimulation(cfg, t.TempDir()); err == nil {
		t.Fatal("empty snapshot dir should fail")
	}
}

func TestPeriodReportDeltasAndAverages(t *testing.T) {
	var out bytes.Buffer
	r := newPeriodReport(&out, engine.Stats{Population: 100, Births: 40, Deaths: 10}, 365)

	for tick, pop := range []int{110, 120, 130, 140} {
		r.observe(engine.Stats{Tick: tick + 1, Population: pop})
	}
	r.print(engine.Stats{Tick: 4, Season: -1, Population: 140, Births: 90, Deaths: 20, CaughtTotal: 5})

	line := out.String()
	for _, want := range []string{"births      50", "deaths      10", "caught      5", "avg dpop/dt +10.000", "avg pop 125"} {
		if !strings.Contains(line, want) {
			t.Fatalf("report %q missing %q", line, want)
		}
	}

	out.Reset()
	r.observe(engine.Stats{Tick: 5, Population: 150})
	r.print(engine.Stats{Tick: 5, Season: -1, Population: 150, Births: 95, Deaths: 20, CaughtTotal: 5})
	if line := out.String(); !strings.Contains(line, "births       5") || !strings.Contains(line, "deaths       0") {
		t.Fatalf("second period not relative to the first: %q", line)
	}
}
