// Initial resource field generation.
// A uniform field reproduces the reference ocean; patchiness blends in
// seamless simplex noise so that food starts unevenly distributed.
package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds grid generation parameters.
type GenConfig struct {
	Dim        int     // Grid side length
	Seed       int64   // Noise seed
	Capacity   float64 // Carrying capacity; a uniform field starts full
	Patchiness float64 // 0 = uniform, 1 = stock fully driven by noise
	Octaves    int     // Noise octaves (default 3)
	Frequency  float64 // Base noise frequency in cycles per grid (default 3)
}

// DefaultGenConfig returns the reference ocean: 50×50, full and uniform.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Dim:       50,
		Capacity:  1.0,
		Octaves:   3,
		Frequency: 3,
	}
}

// Generate creates a grid and fills its initial resource stock.
func Generate(cfg GenConfig) *Grid {
	g := NewGrid(cfg.Dim)

	if cfg.Patchiness <= 0 {
		for _, p := range g.Patches {
			p.Resource = cfg.Capacity
		}
		return g
	}

	octaves := cfg.Octaves
	if octaves <= 0 {
		octaves = 3
	}
	freq := cfg.Frequency
	if freq <= 0 {
		freq = 3
	}
	amp := math.Min(cfg.Patchiness, 1)
	noise := opensimplex.NewNormalized(cfg.Seed)

	for _, p := range g.Patches {
		n := torusNoise(noise, p.Coord, cfg.Dim, octaves, freq)
		p.Resource = cfg.Capacity * ((1 - amp) + amp*n)
	}
	return g
}

// torusNoise samples 4D noise on a Clifford torus so the field tiles
// seamlessly across both wrapped edges. Result is in [0, 1].
func torusNoise(noise opensimplex.Noise, c Coord, dim, octaves int, frequency float64) float64 {
	u := 2 * math.Pi * float64(c.X) / float64(dim)
	v := 2 * math.Pi * float64(c.Y) / float64(dim)
	r := frequency / (2 * math.Pi)

	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	scale := 1.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval4(
			r*scale*math.Cos(u), r*scale*math.Sin(u),
			r*scale*math.Cos(v), r*scale*math.Sin(v),
		) * amplitude
		maxVal += amplitude
		amplitude *= 0.5
		scale *= 2
	}
	n := total / maxVal
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}
