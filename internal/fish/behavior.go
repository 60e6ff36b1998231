// Per-tick fish behavior: aging, stage transitions, growth, foraging,
// mate seeking, spawning and mortality, in that fixed order.
package fish

import (
	"math"

	"github.com/talgya/fishery/internal/world"
)

// Step advances the fish by one tick. season is the ocean's spawn-season
// counter: -1 off-season, 0 on the first day, positive on later days.
// Step returns false if the fish died; a dead fish takes no further action.
func (f *Fish) Step(o Ocean, p *Params, season int) bool {
	if !f.Alive() {
		return false
	}

	// Staying alive costs energy even without moving.
	f.Age++
	f.Moves = 0
	f.Health -= p.MetabolicCost

	if f.Stage == StageJuvenile && f.Age >= p.MatureAge {
		f.Stage = Transition(f.Stage, EventMatured)
	}

	if season == 0 && f.Age >= p.MatureAge {
		f.Stage = Transition(f.Stage, EventSeasonOpen)
	} else if season < 0 || season > p.SpawnSeason {
		f.Stage = Transition(f.Stage, EventSeasonClose)
	}

	f.grow(p)

	quota := p.MoveQuota(o.Dim(), f.Size)
	f.forage(o, p, quota)

	for f.Spawning() && f.CanMove(quota) {
		f.moveOnce(o, p)
	}

	f.spawn(o, p)

	if f.Age > p.Longevity || f.Health < p.DeathHealth {
		f.Stage = Transition(f.Stage, EventDied)
		o.RemoveDead(f)
		return false
	}
	return true
}

// grow moves size along the growth curve and charges health for the
// relative size increase. Growth pauses on the day of maturity, and
// underfed adults do not grow.
func (f *Fish) grow(p *Params) {
	if f.Age == p.MatureAge || (f.Age > p.MatureAge && f.Health < 1) {
		return
	}
	old := f.Size
	f.Size = math.Max(old, p.SizeAt(f.Age))
	if sum := f.Size + old; sum > 0 {
		f.Health -= 2 * (f.Size - old) / sum
	}
}

// forage eats until fed or the patch is exhausted, then relocates and
// retries while move budget remains.
func (f *Fish) forage(o Ocean, p *Params, quota int) {
	for f.Health < 1 && f.CanMove(quota) {
		for f.Patch.Resource > p.MinResource(f.Size) && f.Health < 1 {
			f.eat(p)
		}
		if f.Health < 1 {
			f.moveOnce(o, p)
		}
	}
}

func (f *Fish) eat(p *Params) {
	amount := math.Min(p.BiteRate*f.Size, f.Patch.Resource)
	f.Patch.Lose(amount)
	f.Health += p.BiteGain
}

// moveOnce makes one move decision. Staying put blocks further movement
// this tick so the foraging and mate-seeking loops always terminate.
func (f *Fish) moveOnce(o Ocean, p *Params) {
	from := f.Patch
	if to := f.choosePatch(o, p); to != from {
		o.MoveFish(f, to)
		f.Health -= p.MoveCost
		f.Moves++
		return
	}
	f.Moves = MovesBlocked
}

// choosePatch scores the current patch and its neighbors by food and, while
// spawning, by the share of opposite-sex mature fish. The first best
// candidate in random order wins.
func (f *Fish) choosePatch(o Ocean, p *Params) *world.Patch {
	cands := append(o.Neighbors(f.Patch), f.Patch)
	rng := o.Rand()
	rng.Shuffle(len(cands), func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })

	hunger := 0.0
	if f.Health < 1 {
		hunger = 1 - f.Health
	}
	norm := 1.0
	if f.Patch.Resource > 0 {
		norm = f.Patch.Resource
	}

	scores := make([]float64, len(cands))
	for i, c := range cands {
		r := c.Resource
		if c != f.Patch {
			r -= p.NeighborDiscount
		}
		scores[i] = hunger * r / norm
	}

	if f.Spawning() {
		mates := make([]int, len(cands))
		total := 0
		for i, c := range cands {
			mates[i] = o.CountMature(c, f.Sex.Opposite())
			total += mates[i]
		}
		for i := range cands {
			if total > 0 {
				scores[i] += float64(mates[i]) / float64(total)
			} else {
				scores[i] += rng.Float64()
			}
		}
	}

	best := 0
	for i := 1; i < len(cands); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return cands[best]
}

// spawn attempts conception for a fertile, spawning female.
func (f *Fish) spawn(o Ocean, p *Params) {
	if !f.Fertile() || !f.Spawning() {
		return
	}
	prob := p.ConceptionProbability(o.CountMature(f.Patch, Male), o.MatureMaleRatio(f.Patch))
	rng := o.Rand()
	if !rng.Bernoulli(prob) {
		return
	}
	for i := 0; i < p.Brood; i++ {
		sex := Male
		if rng.Float64() < 0.5 {
			sex = Female
		}
		o.AddFish(Newborn(f.Patch, sex, p))
	}
	f.Stage = Transition(f.Stage, EventConceived)
}
