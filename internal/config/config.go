// Package config holds the scenario parameters consumed when a simulation
// is built: grid, initial population, species, resource and fleet constants,
// fishing policy and run settings. Scenarios load from YAML or TOML and are
// validated against an embedded JSON schema.
package config

import (
	"github.com/talgya/fishery/internal/fish"
	"github.com/talgya/fishery/internal/fleet"
	"github.com/talgya/fishery/internal/world"
)

// Config is a complete scenario.
type Config struct {
	Name              string `json:"name" yaml:"name" toml:"name"`
	OceanDim          int    `json:"ocean_dim" yaml:"ocean_dim" toml:"ocean_dim"`
	InitialPopulation int    `json:"initial_population" yaml:"initial_population" toml:"initial_population"`
	Seed              int64  `json:"seed" yaml:"seed" toml:"seed"` // 0 = random

	Resource world.ResourceParams `json:"resource" yaml:"resource" toml:"resource"`
	Fish     fish.Params          `json:"fish" yaml:"fish" toml:"fish"`
	Fleet    fleet.Params         `json:"fleet" yaml:"fleet" toml:"fleet"`
	Policy   PolicyConfig         `json:"policy" yaml:"policy" toml:"policy"`
	Run      RunConfig            `json:"run" yaml:"run" toml:"run"`
	Logging  LoggingConfig        `json:"logging" yaml:"logging" toml:"logging"`
}

// PolicyConfig controls when the fleet may go out.
type PolicyConfig struct {
	TransientDelay int    `json:"transient_delay" yaml:"transient_delay" toml:"transient_delay"` // Ticks before fishing opens
	ClosedSeason   bool   `json:"closed_season" yaml:"closed_season" toml:"closed_season"`       // No fishing during the spawn season
	Script         string `json:"script" yaml:"script" toml:"script"`                            // Optional Lua policy file
}

// RunConfig controls the driver loop and its outputs.
type RunConfig struct {
	Ticks            int    `json:"ticks" yaml:"ticks" toml:"ticks"`
	ReportEvery      int    `json:"report_every" yaml:"report_every" toml:"report_every"`
	StopOnExtinction bool   `json:"stop_on_extinction" yaml:"stop_on_extinction" toml:"stop_on_extinction"`
	IntervalMs       int    `json:"interval_ms" yaml:"interval_ms" toml:"interval_ms"` // Throttle for live viewing; 0 = flat out
	DBPath           string `json:"db_path" yaml:"db_path" toml:"db_path"`
	SnapshotDir      string `json:"snapshot_dir" yaml:"snapshot_dir" toml:"snapshot_dir"`
	SnapshotEvery    int    `json:"snapshot_every" yaml:"snapshot_every" toml:"snapshot_every"`
	TickLogDir       string `json:"tick_log_dir" yaml:"tick_log_dir" toml:"tick_log_dir"`
	APIAddr          string `json:"api_addr" yaml:"api_addr" toml:"api_addr"`
	AdminKey         string `json:"admin_key" yaml:"admin_key" toml:"admin_key"`
	CheckInvariants  bool   `json:"check_invariants" yaml:"check_invariants" toml:"check_invariants"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" toml:"level"` // debug, info, warn, error
}

// Default returns the reference scenario: a 50×50 ocean with 5000 fish,
// male-count spawning, a fixed five-move quota and no fleet.
func Default() Config {
	return Config{
		Name:              "reference",
		OceanDim:          50,
		InitialPopulation: 5000,
		Resource:          world.DefaultResourceParams(),
		Fish:              fish.DefaultParams(),
		Fleet:             fleet.DefaultParams(),
		Run: RunConfig{
			Ticks:            20 * 365,
			ReportEvery:      30,
			StopOnExtinction: true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Refined returns the most complete tuning of the same mechanism:
// male-ratio spawning calibrated to a season-long target, size-scaled move
// quota and minimum resource, patchy initial food, and a fleet that stays
// in harbor for the first two years and during spawning.
func Refined() Config {
	cfg := Default()
	cfg.Name = "refined"
	cfg.Resource.Capacity = 2.0
	cfg.Resource.Patchiness = 0.3
	cfg.Fish.SpawnModel = fish.SpawnMaleRatio
	cfg.Fish.SeasonConception = 0.9
	cfg.Fish.SaturationRatio = 0.5
	cfg.Fish.MoveQuotaScale = 0.1
	cfg.Fish.MinResourceFactor = 0.05
	cfg.Fleet.Boats = 10
	cfg.Policy.TransientDelay = 2 * 365
	cfg.Policy.ClosedSeason = true
	return cfg
}

// Preset returns a named built-in scenario.
func Preset(name string) (Config, bool) {
	switch name {
	case "", "reference", "default":
		return Default(), true
	case "refined":
		return Refined(), true
	}
	return Config{}, false
}
