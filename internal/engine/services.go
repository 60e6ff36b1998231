// Spatial and census services the fish and the boats call back into.
package engine

import (
	"github.com/talgya/fishery/internal/entropy"
	"github.com/talgya/fishery/internal/fish"
	"github.com/talgya/fishery/internal/world"
)

// Rand returns the simulation's ordering source.
func (s *Simulation) Rand() *entropy.Source { return s.rng }

// Dim returns the side of the grid.
func (s *Simulation) Dim() int { return s.Grid.Dim }

// Neighbors returns the eight toroidal neighbors of p in random order.
func (s *Simulation) Neighbors(p *world.Patch) []*world.Patch {
	ns := s.Grid.Neighbors(p.Coord)
	s.rng.Shuffle(len(ns), func(i, j int) { ns[i], ns[j] = ns[j], ns[i] })
	return ns
}

// CountMature counts mature fish of one sex at p.
func (s *Simulation) CountMature(p *world.Patch, sex fish.Sex) int {
	n := 0
	for _, f := range s.fishAt[p.Index] {
		if f.Sex == sex && f.Mature(&s.Config.Fish) {
			n++
		}
	}
	return n
}

// CountMatureAt counts mature fish of either sex at p.
func (s *Simulation) CountMatureAt(p *world.Patch) int {
	n := 0
	for _, f := range s.fishAt[p.Index] {
		if f.Mature(&s.Config.Fish) {
			n++
		}
	}
	return n
}

// MatureMaleRatio is the share of males among the mature fish at p, or 0
// when there are none.
func (s *Simulation) MatureMaleRatio(p *world.Patch) float64 {
	mature := s.CountMatureAt(p)
	if mature == 0 {
		return 0
	}
	return float64(s.CountMature(p, fish.Male)) / float64(mature)
}

// FishAt returns a snapshot of the fish at p.
func (s *Simulation) FishAt(p *world.Patch) []*fish.Fish {
	return append([]*fish.Fish(nil), s.fishAt[p.Index]...)
}

// MoveFish relocates f, keeping the index and the back-reference in step.
func (s *Simulation) MoveFish(f *fish.Fish, to *world.Patch) {
	if f.Patch == to {
		return
	}
	s.unlink(f)
	f.Patch = to
	s.fishAt[to.Index] = append(s.fishAt[to.Index], f)
	s.Stats.Moved++
}

// AddFish indexes a newborn at its patch. It is not stepped until the
// next tick.
func (s *Simulation) AddFish(f *fish.Fish) {
	f.LastTick = s.Tick
	s.insert(f)
	s.Stats.Births++
}

// RemoveDead drops a fish that died of age or starvation.
func (s *Simulation) RemoveDead(f *fish.Fish) {
	if s.unlink(f) {
		s.Stats.Population--
		s.Stats.Deaths++
	}
}

// Catch removes a fish taken by a boat.
func (s *Simulation) Catch(f *fish.Fish) {
	if !s.unlink(f) {
		return
	}
	f.Stage = fish.Transition(f.Stage, fish.EventDied)
	s.Stats.Population--
	s.Stats.Caught++
	s.Stats.CaughtTotal++
}

// RandomNeighbor returns one of p's neighbors uniformly at random.
func (s *Simulation) RandomNeighbor(p *world.Patch) *world.Patch {
	ns := s.Grid.Neighbors(p.Coord)
	return ns[s.rng.Intn(len(ns))]
}

// Distance is the toroidal king-move distance between two cells.
func (s *Simulation) Distance(a, b world.Coord) int {
	return s.Grid.Distance(a, b)
}

func (s *Simulation) insert(f *fish.Fish) {
	s.nextID++
	f.ID = s.nextID
	s.fishAt[f.Patch.Index] = append(s.fishAt[f.Patch.Index], f)
	s.Stats.Population++
}

// unlink removes f from its patch list. It reports false if f was not
// indexed there.
func (s *Simulation) unlink(f *fish.Fish) bool {
	list := s.fishAt[f.Patch.Index]
	for i, x := range list {
		if x == f {
			last := len(list) - 1
			list[i] = list[last]
			list[last] = nil
			s.fishAt[f.Patch.Index] = list[:last]
			return true
		}
	}
	return false
}

// Occupancy returns the number of fish on each patch, row-major.
func (s *Simulation) Occupancy() []int {
	out := make([]int, len(s.fishAt))
	for i, list := range s.fishAt {
		out[i] = len(list)
	}
	return out
}
