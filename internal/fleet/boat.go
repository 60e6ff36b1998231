// Package fleet provides fishing boats: heterogeneous harvesting agents that
// leave a home harbor each day, haul fish from the patches they visit and
// return once they run out of range or hold space.
package fleet

import (
	"math"

	"github.com/talgya/fishery/internal/entropy"
	"github.com/talgya/fishery/internal/fish"
	"github.com/talgya/fishery/internal/world"
)

// Params holds fleet constants. Per-boat capabilities are drawn around the
// means with relative spread TechVariance.
type Params struct {
	Boats             int     `json:"boats" yaml:"boats" toml:"boats"`
	NetSize           float64 `json:"net_size" yaml:"net_size" toml:"net_size"`                         // Smallest fish the net retains
	MaxDistance       float64 `json:"max_distance" yaml:"max_distance" toml:"max_distance"`             // Mean daily range, in patches
	HoldCapacity      float64 `json:"hold_capacity" yaml:"hold_capacity" toml:"hold_capacity"`          // Mean daily biomass
	CaptureEfficiency float64 `json:"capture_efficiency" yaml:"capture_efficiency" toml:"capture_efficiency"`
	DetectionNoise    float64 `json:"detection_noise" yaml:"detection_noise" toml:"detection_noise"` // Upper bound of per-boat census noise
	TechVariance      float64 `json:"tech_variance" yaml:"tech_variance" toml:"tech_variance"`
	HomeX             int     `json:"home_x" yaml:"home_x" toml:"home_x"`
	HomeY             int     `json:"home_y" yaml:"home_y" toml:"home_y"`
}

// DefaultParams returns an empty fleet with usable means for when boats
// are switched on.
func DefaultParams() Params {
	return Params{
		Boats:             0,
		NetSize:           0.5,
		MaxDistance:       25,
		HoldCapacity:      20,
		CaptureEfficiency: 0.5,
		DetectionNoise:    0.3,
		TechVariance:      0.2,
	}
}

// Harbor is the capability surface a boat needs from the ocean.
type Harbor interface {
	Rand() *entropy.Source
	// FishAt returns a snapshot of the fish currently at p.
	FishAt(p *world.Patch) []*fish.Fish
	// Catch removes a fish from the ocean and counts it as caught.
	Catch(f *fish.Fish)
	CountMatureAt(p *world.Patch) int
	RandomNeighbor(p *world.Patch) *world.Patch
	Distance(a, b world.Coord) int
}

// Boat is one fishing vessel.
type Boat struct {
	ID   int         `json:"id"`
	Home world.Coord `json:"home"`

	// Capabilities, fixed at construction.
	MaxDistance       float64 `json:"max_distance"`
	HoldCapacity      float64 `json:"hold_capacity"`
	CaptureEfficiency float64 `json:"capture_efficiency"`
	DetectionNoise    float64 `json:"detection_noise"`
	NetSize           float64 `json:"net_size"`

	// Per-day state, reset by BeginStep.
	Patch    *world.Patch  `json:"-"`
	Distance int           `json:"distance"`
	Hold     float64       `json:"hold"`
	Catch    int           `json:"catch"`
	Visited  []world.Coord `json:"visited"`
	Done     bool          `json:"done"`
}

// NewBoat draws a boat's capabilities.
func NewBoat(id int, params Params, rng *entropy.Source) *Boat {
	sd := params.TechVariance
	return &Boat{
		ID:                id,
		Home:              world.Coord{X: params.HomeX, Y: params.HomeY},
		MaxDistance:       math.Max(1, params.MaxDistance*(1+sd*rng.NormFloat64())),
		HoldCapacity:      math.Max(1e-3, params.HoldCapacity*(1+sd*rng.NormFloat64())),
		CaptureEfficiency: clamp01(params.CaptureEfficiency + sd*rng.NormFloat64()),
		DetectionNoise:    params.DetectionNoise * rng.Float64(),
		NetSize:           params.NetSize,
	}
}

// NewFleet builds params.Boats boats.
func NewFleet(params Params, rng *entropy.Source) []*Boat {
	boats := make([]*Boat, 0, params.Boats)
	for i := 0; i < params.Boats; i++ {
		boats = append(boats, NewBoat(i+1, params, rng))
	}
	return boats
}

// BeginStep resets the day's state and puts the boat on its start patch.
// Steaming out from home counts against the daily range.
func (b *Boat) BeginStep(start *world.Patch, h Harbor) {
	b.Patch = start
	b.Distance = h.Distance(b.Home, start.Coord)
	b.Hold = 0
	b.Catch = 0
	b.Visited = append(b.Visited[:0], start.Coord)
	b.Done = false
}

// Update hauls at the current patch and, with room left and no fish
// detected, moves to a random adjacent patch and hauls again. It returns
// true once the boat is done for the day.
func (b *Boat) Update(h Harbor) bool {
	if b.Done || b.Patch == nil {
		return true
	}
	b.haul(h)
	if b.Hold < b.HoldCapacity && b.detect(h) < 1 {
		b.Patch = h.RandomNeighbor(b.Patch)
		b.Distance++
		b.Visited = append(b.Visited, b.Patch.Coord)
		b.haul(h)
	}
	b.Done = float64(b.Distance) > b.MaxDistance || b.Hold >= b.HoldCapacity
	return b.Done
}

// haul catches each fish above net size independently with probability
// CaptureEfficiency until the hold is full.
func (b *Boat) haul(h Harbor) {
	rng := h.Rand()
	for _, f := range h.FishAt(b.Patch) {
		if b.Hold >= b.HoldCapacity {
			return
		}
		if f.Size <= b.NetSize || !rng.Bernoulli(b.CaptureEfficiency) {
			continue
		}
		h.Catch(f)
		b.Hold += f.Size
		b.Catch++
	}
}

// detect is the boat's noisy estimate of mature fish at its patch, rounded
// to whole fish.
func (b *Boat) detect(h Harbor) float64 {
	n := float64(h.CountMatureAt(b.Patch))
	if n == 0 {
		return 0
	}
	est := n * (1 + b.DetectionNoise*h.Rand().NormFloat64())
	if est < 0 {
		return 0
	}
	return math.Round(est)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
