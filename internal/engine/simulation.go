// Simulation ties the grid, the fish population and the fleet together and
// advances them one tick at a time.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/fishery/internal/config"
	"github.com/talgya/fishery/internal/entropy"
	"github.com/talgya/fishery/internal/fish"
	"github.com/talgya/fishery/internal/fleet"
	"github.com/talgya/fishery/internal/world"
)

// FleetPolicy decides whether boats may leave harbor on a given day.
type FleetPolicy interface {
	Open(day, season, population int) bool
}

// Simulation holds the complete world state.
type Simulation struct {
	Config config.Config
	Grid   *world.Grid
	Boats  []*fleet.Boat
	Policy FleetPolicy // nil = always open

	Tick   int // Completed steps
	Season int // -1 off-season, 0 first spawning day, >0 later days
	Stats  Stats

	rng    *entropy.Source
	fishAt [][]*fish.Fish // Population index by patch index; authoritative
	nextID uint64

	active []*fleet.Boat // Boats still fishing this tick
	order  []int         // Reused patch permutation
}

// NewSimulation builds the grid, stocks the initial population and
// launches the fleet.
func NewSimulation(cfg config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	rng := entropy.NewSource(cfg.Seed)
	cfg.Seed = rng.Seed()

	gen := world.DefaultGenConfig()
	gen.Dim = cfg.OceanDim
	gen.Seed = cfg.Seed
	gen.Capacity = cfg.Resource.Capacity
	gen.Patchiness = cfg.Resource.Patchiness

	s := newEmpty(cfg, world.Generate(gen), rng)
	s.Boats = fleet.NewFleet(cfg.Fleet, rng.Derive(1))

	for i := 0; i < cfg.InitialPopulation; i++ {
		p := s.Grid.Patches[rng.Intn(len(s.Grid.Patches))]
		f := fish.Stocked(p, randomSex(rng), rng.Intn(cfg.Fish.Longevity+1), &s.Config.Fish)
		s.insert(f)
		s.Stats.Stocked++
	}
	s.Stats.Resource = s.Grid.TotalResource()

	slog.Info("simulation built",
		"scenario", cfg.Name,
		"seed", cfg.Seed,
		"dim", cfg.OceanDim,
		"fish", s.Stats.Population,
		"boats", len(s.Boats),
	)
	return s, nil
}

func newEmpty(cfg config.Config, grid *world.Grid, rng *entropy.Source) *Simulation {
	return &Simulation{
		Config: cfg,
		Grid:   grid,
		Season: -1,
		rng:    rng,
		fishAt: make([][]*fish.Fish, len(grid.Patches)),
		order:  make([]int, len(grid.Patches)),
	}
}

func randomSex(rng *entropy.Source) fish.Sex {
	if rng.Float64() < 0.5 {
		return fish.Female
	}
	return fish.Male
}

// Step advances the world by one tick.
func (s *Simulation) Step() {
	day := s.Tick
	s.Tick++
	s.Stats.Tick = s.Tick
	s.Stats.Moved = 0
	s.Stats.Caught = 0

	s.advanceSeason(day)
	s.Stats.Season = s.Season
	s.launchFleet(day)

	// Regrow and diffuse are separate grid-wide passes.
	capacity, rate := s.Config.Resource.Capacity, s.Config.Resource.RegrowRate
	s.Stats.Grown = 0
	for _, i := range s.shuffledPatches() {
		p := s.Grid.Patches[i]
		p.Regrow(rate, capacity)
		s.Stats.Grown += p.Resource
	}
	diffusion := s.Config.Resource.DiffusionRate
	for _, i := range s.shuffledPatches() {
		p := s.Grid.Patches[i]
		p.Diffuse(diffusion, s.Grid.Neighbors(p.Coord))
	}

	for _, i := range s.shuffledPatches() {
		p := s.Grid.Patches[i]
		s.dispatchBoat()
		s.stepFishAt(p)
	}

	s.active = s.active[:0]
	s.Stats.Resource = s.Grid.TotalResource()
	s.Stats.Mature = s.MaturePopulation()
}

// stepFishAt steps a shuffled snapshot of the patch's occupants. Fish that
// died earlier in the pass or already stepped this tick are skipped.
func (s *Simulation) stepFishAt(p *world.Patch) {
	occupants := s.fishAt[p.Index]
	if len(occupants) == 0 {
		return
	}
	snapshot := append([]*fish.Fish(nil), occupants...)
	s.rng.Shuffle(len(snapshot), func(i, j int) { snapshot[i], snapshot[j] = snapshot[j], snapshot[i] })
	for _, f := range snapshot {
		if !f.Alive() || f.LastTick == s.Tick {
			continue
		}
		f.LastTick = s.Tick
		f.Step(s, &s.Config.Fish, s.Season)
	}
}

// launchFleet puts every boat on a random start patch, unless the policy
// keeps the fleet in harbor today.
func (s *Simulation) launchFleet(day int) {
	s.active = s.active[:0]
	if len(s.Boats) == 0 {
		return
	}
	if s.Policy != nil && !s.Policy.Open(day, s.Season, s.Stats.Population) {
		return
	}
	for _, b := range s.Boats {
		start := s.Grid.Patches[s.rng.Intn(len(s.Grid.Patches))]
		b.BeginStep(start, s)
		s.active = append(s.active, b)
	}
}

// dispatchBoat lets one random active boat act once. A boat that reports
// done leaves the active set for the rest of the tick.
func (s *Simulation) dispatchBoat() {
	if len(s.active) == 0 {
		return
	}
	i := s.rng.Intn(len(s.active))
	if s.active[i].Update(s) {
		last := len(s.active) - 1
		s.active[i] = s.active[last]
		s.active = s.active[:last]
	}
}

func (s *Simulation) shuffledPatches() []int {
	for i := range s.order {
		s.order[i] = i
	}
	s.rng.Shuffle(len(s.order), func(i, j int) { s.order[i], s.order[j] = s.order[j], s.order[i] })
	return s.order
}

// Extinct reports whether no fish are left.
func (s *Simulation) Extinct() bool {
	return s.Stats.Population == 0
}

// MaturePopulation counts fish at or past maturity age.
func (s *Simulation) MaturePopulation() int {
	n := 0
	for _, list := range s.fishAt {
		for _, f := range list {
			if f.Mature(&s.Config.Fish) {
				n++
			}
		}
	}
	return n
}

// CurrentStats returns a copy of the counters.
func (s *Simulation) CurrentStats() Stats {
	return s.Stats
}

// Validate checks the population index and resource invariants.
func (s *Simulation) Validate() error {
	total := 0
	for i, list := range s.fishAt {
		p := s.Grid.Patches[i]
		for _, f := range list {
			if f.Patch != p {
				return fmt.Errorf("fish %d indexed at %v but points at %v", f.ID, p.Coord, f.Patch)
			}
			if !f.Alive() {
				return fmt.Errorf("dead fish %d still indexed at %v", f.ID, p.Coord)
			}
		}
		total += len(list)
		if p.Resource < 0 {
			return fmt.Errorf("patch %v has negative resource %g", p.Coord, p.Resource)
		}
	}
	if total != s.Stats.Population {
		return fmt.Errorf("population counter %d, indexed fish %d", s.Stats.Population, total)
	}
	return nil
}

// Fish returns every living fish. The slice is freshly allocated.
func (s *Simulation) Fish() []*fish.Fish {
	out := make([]*fish.Fish, 0, s.Stats.Population)
	for _, list := range s.fishAt {
		out = append(out, list...)
	}
	return out
}
