// Package fish provides the individual fish agent: its life-stage state
// machine, growth curve, foraging and mate-seeking movement, spawning and
// mortality. A fish never reaches into the ocean directly; every census,
// relocation, birth and death goes through the Ocean interface.
package fish

import (
	"math"

	"github.com/talgya/fishery/internal/entropy"
	"github.com/talgya/fishery/internal/world"
)

// Sex of a fish.
type Sex uint8

const (
	Female Sex = 0
	Male   Sex = 1
)

// Opposite returns the other sex.
func (s Sex) Opposite() Sex {
	if s == Female {
		return Male
	}
	return Female
}

func (s Sex) String() string {
	if s == Female {
		return "female"
	}
	return "male"
}

// MovesBlocked is the move-counter sentinel that suppresses any further
// movement for the rest of the tick.
const MovesBlocked = -1

// Fish is one individual of the population.
type Fish struct {
	ID     uint64  `json:"id"` // Monotonic per simulation; never used by the model
	Age    int     `json:"age"`
	Size   float64 `json:"size"`
	Sex    Sex     `json:"sex"`
	Health float64 `json:"health"` // 1.0 = fed; below DeathHealth = dead
	Stage  Stage   `json:"stage"`

	// Patch is a cached back-reference. The ocean's population index is
	// authoritative and keeps it in sync.
	Patch *world.Patch `json:"-"`

	Moves    int `json:"moves"`     // Moves this tick, or MovesBlocked
	LastTick int `json:"last_tick"` // Tick of the most recent Step
}

// Ocean is the narrow capability surface a fish needs from its world.
type Ocean interface {
	Rand() *entropy.Source
	Dim() int
	// Neighbors returns the eight toroidal neighbors of p in random order.
	Neighbors(p *world.Patch) []*world.Patch
	CountMature(p *world.Patch, sex Sex) int
	MatureMaleRatio(p *world.Patch) float64
	MoveFish(f *Fish, to *world.Patch)
	AddFish(f *Fish)
	RemoveDead(f *Fish)
}

// Newborn creates a fry at the given patch. The ocean assigns its ID when it
// is added.
func Newborn(p *world.Patch, sex Sex, params *Params) *Fish {
	return &Fish{
		Size:   params.FrySize,
		Sex:    sex,
		Health: 1,
		Stage:  StageJuvenile,
		Patch:  p,
	}
}

// Stocked creates a fish of the given age for seeding an initial population.
// Its size sits on the growth curve and its stage follows from its age.
func Stocked(p *world.Patch, sex Sex, age int, params *Params) *Fish {
	return &Fish{
		Age:    age,
		Size:   math.Max(params.FrySize, params.SizeAt(age)),
		Sex:    sex,
		Health: 1,
		Stage:  StageForAge(age, params.MatureAge),
		Patch:  p,
	}
}

// Mature reports whether the fish has reached maturity age.
func (f *Fish) Mature(params *Params) bool {
	return f.Age >= params.MatureAge
}

// Fertile reports whether the fish can conceive. Fertility latches for
// females at maturity and never applies to males.
func (f *Fish) Fertile() bool {
	return f.Sex == Female && (f.Stage == StageAdult || f.Stage == StageSpawning)
}

// Spawning reports seasonal spawning readiness.
func (f *Fish) Spawning() bool {
	return f.Stage == StageSpawning
}

// Alive reports whether the fish is still in the population.
func (f *Fish) Alive() bool {
	return f.Stage != StageDead
}

// CanMove reports whether the fish has move budget left under quota.
func (f *Fish) CanMove(quota int) bool {
	return f.Moves != MovesBlocked && f.Moves < quota
}
