package engine

import (
	"fmt"

	"github.com/talgya/fishery/internal/config"
	"github.com/talgya/fishery/internal/entropy"
	"github.com/talgya/fishery/internal/fish"
	"github.com/talgya/fishery/internal/fleet"
	"github.com/talgya/fishery/internal/world"
)

// StateVersion is bumped whenever State changes shape.
const StateVersion = 1

// State is a complete, serializable copy of a simulation.
type State struct {
	Version  int           `json:"version"`
	Config   config.Config `json:"config"`
	Tick     int           `json:"tick"`
	Season   int           `json:"season"`
	Stats    Stats         `json:"stats"`
	NextID   uint64        `json:"next_id"`
	Resource []float64     `json:"resource"` // Row-major
	Fish     []FishState   `json:"fish"`
	Boats    []BoatState   `json:"boats"`
}

// FishState is a fish plus the index of its patch.
type FishState struct {
	fish.Fish
	At int `json:"at"`
}

// BoatState is a boat plus the index of its current patch, or -1 in harbor.
type BoatState struct {
	fleet.Boat
	At int `json:"at"`
}

// State exports the world.
func (s *Simulation) State() *State {
	st := &State{
		Version:  StateVersion,
		Config:   s.Config,
		Tick:     s.Tick,
		Season:   s.Season,
		Stats:    s.Stats,
		NextID:   s.nextID,
		Resource: make([]float64, len(s.Grid.Patches)),
		Fish:     make([]FishState, 0, s.Stats.Population),
		Boats:    make([]BoatState, 0, len(s.Boats)),
	}
	for i, p := range s.Grid.Patches {
		st.Resource[i] = p.Resource
	}
	for i, list := range s.fishAt {
		for _, f := range list {
			st.Fish = append(st.Fish, FishState{Fish: *f, At: i})
		}
	}
	for _, b := range s.Boats {
		bs := BoatState{Boat: *b, At: -1}
		bs.Visited = append([]world.Coord(nil), b.Visited...)
		if b.Patch != nil {
			bs.At = b.Patch.Index
		}
		st.Boats = append(st.Boats, bs)
	}
	return st
}

// Restore rebuilds a simulation from an exported state. The random stream
// is re-derived from the seed and the tick, so a restored run is
// reproducible but does not replay the original stream.
func Restore(st *State) (*Simulation, error) {
	if st.Version != StateVersion {
		return nil, fmt.Errorf("state version %d, want %d", st.Version, StateVersion)
	}
	cfg := st.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("restored scenario: %w", err)
	}
	n := cfg.OceanDim * cfg.OceanDim
	if len(st.Resource) != n {
		return nil, fmt.Errorf("state has %d patches, want %d", len(st.Resource), n)
	}

	grid := world.NewGrid(cfg.OceanDim)
	for i, r := range st.Resource {
		grid.Patches[i].Resource = r
	}

	rng := entropy.NewSource(cfg.Seed).Derive(int64(st.Tick))
	s := newEmpty(cfg, grid, rng)
	s.Tick = st.Tick
	s.Season = st.Season

	for _, fs := range st.Fish {
		if fs.At < 0 || fs.At >= n {
			return nil, fmt.Errorf("fish %d at patch %d out of range", fs.ID, fs.At)
		}
		f := fs.Fish
		f.Patch = grid.Patches[fs.At]
		s.fishAt[fs.At] = append(s.fishAt[fs.At], &f)
	}
	for _, bs := range st.Boats {
		b := bs.Boat
		b.Patch = nil
		if bs.At >= 0 && bs.At < n {
			b.Patch = grid.Patches[bs.At]
		}
		s.Boats = append(s.Boats, &b)
	}

	s.nextID = st.NextID
	s.Stats = st.Stats
	s.Stats.Population = len(st.Fish)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("restored state: %w", err)
	}
	return s, nil
}
