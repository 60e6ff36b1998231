package world

// Patch is one cell of the grid holding a renewable resource stock.
type Patch struct {
	Coord    Coord   `json:"coord"`
	Index    int     `json:"index"` // Row-major position in Grid.Patches
	Resource float64 `json:"resource"`
}

// ResourceParams holds the resource constants of a scenario.
type ResourceParams struct {
	Capacity      float64 `json:"capacity" yaml:"capacity" toml:"capacity"`                   // Carrying capacity per patch
	RegrowRate    float64 `json:"regrow_rate" yaml:"regrow_rate" toml:"regrow_rate"`          // Logistic r
	DiffusionRate float64 `json:"diffusion_rate" yaml:"diffusion_rate" toml:"diffusion_rate"` // Fraction exported per tick
	Patchiness    float64 `json:"patchiness" yaml:"patchiness" toml:"patchiness"`             // 0 = uniform initial stock
}

// DefaultResourceParams spreads resource evenly in all nine directions.
func DefaultResourceParams() ResourceParams {
	return ResourceParams{
		Capacity:      1.0,
		RegrowRate:    1.0,
		DiffusionRate: 8.0 / 9.0,
	}
}

// Regrow applies one step of logistic growth. A depleted or overdrawn patch
// snaps to exactly zero; logistic growth from a negative stock diverges.
func (p *Patch) Regrow(rate, capacity float64) {
	if p.Resource > 0 {
		p.Resource += rate * p.Resource * (1 - p.Resource/capacity)
		return
	}
	p.Resource = 0
}

// Diffuse exports rate*resource evenly to the given neighbors and removes
// the same total from this patch. Neighbors are expected to be the eight
// toroidal neighbors; the share per neighbor is always rate/8.
func (p *Patch) Diffuse(rate float64, neighbors []*Patch) {
	amount := rate * p.Resource / 8
	p.Resource *= 1 - rate
	for _, n := range neighbors {
		n.Resource += amount
	}
}

// Lose removes consumed resource. The stock never goes negative.
func (p *Patch) Lose(amount float64) {
	p.Resource -= amount
	if p.Resource < 0 {
		p.Resource = 0
	}
}
