package fish

import "math"

// Spawn probability models.
const (
	SpawnMaleCount = "male_count" // p = 1 - exp(-MaleFactor × mature males)
	SpawnMaleRatio = "male_ratio" // calibrated to a season-long conception target
)

// Params holds the biological constants of a species.
type Params struct {
	FrySize         float64 `json:"fry_size" yaml:"fry_size" toml:"fry_size"`
	Longevity       int     `json:"longevity" yaml:"longevity" toml:"longevity"`    // Days
	MatureAge       int     `json:"mature_age" yaml:"mature_age" toml:"mature_age"` // Days
	MatureSize      float64 `json:"mature_size" yaml:"mature_size" toml:"mature_size"`
	GrowthConstants float64 `json:"growth_constants" yaml:"growth_constants" toml:"growth_constants"` // Time constants elapsed at MatureAge
	YearLength      int     `json:"year_length" yaml:"year_length" toml:"year_length"`
	SpawnSeason     int     `json:"spawn_season" yaml:"spawn_season" toml:"spawn_season"` // Days after season open
	Brood           int     `json:"brood" yaml:"brood" toml:"brood"`

	SpawnModel       string  `json:"spawn_model" yaml:"spawn_model" toml:"spawn_model"`
	MaleFactor       float64 `json:"male_factor" yaml:"male_factor" toml:"male_factor"`
	SeasonConception float64 `json:"season_conception" yaml:"season_conception" toml:"season_conception"`
	SaturationRatio  float64 `json:"saturation_ratio" yaml:"saturation_ratio" toml:"saturation_ratio"`

	MetabolicCost    float64 `json:"metabolic_cost" yaml:"metabolic_cost" toml:"metabolic_cost"`
	MoveCost         float64 `json:"move_cost" yaml:"move_cost" toml:"move_cost"`
	BiteRate         float64 `json:"bite_rate" yaml:"bite_rate" toml:"bite_rate"` // Fraction of body size eaten per bite
	BiteGain         float64 `json:"bite_gain" yaml:"bite_gain" toml:"bite_gain"` // Health per bite
	NeighborDiscount float64 `json:"neighbor_discount" yaml:"neighbor_discount" toml:"neighbor_discount"`
	DeathHealth      float64 `json:"death_health" yaml:"death_health" toml:"death_health"`

	MaxMoves          int     `json:"max_moves" yaml:"max_moves" toml:"max_moves"`
	MoveQuotaScale    float64 `json:"move_quota_scale" yaml:"move_quota_scale" toml:"move_quota_scale"`          // >0 scales quota by dim × size
	MinResourceFactor float64 `json:"min_resource_factor" yaml:"min_resource_factor" toml:"min_resource_factor"` // >0 makes min viable resource size-proportional
}

// DefaultParams returns the reference species: ten-year lifespan, mature
// at one year, a two-week spawning window and a 5% consumption rate.
func DefaultParams() Params {
	return Params{
		FrySize:          0.001,
		Longevity:        3650,
		MatureAge:        365,
		MatureSize:       1.0,
		GrowthConstants:  3, // ~95% of full size at maturity
		YearLength:       365,
		SpawnSeason:      14,
		Brood:            1,
		SpawnModel:       SpawnMaleCount,
		MaleFactor:       0.05,
		SeasonConception: 0.9,
		SaturationRatio:  0.5,
		MetabolicCost:    0.05,
		MoveCost:         0.05,
		BiteRate:         0.05,
		BiteGain:         0.05,
		NeighborDiscount: 0.05,
		DeathHealth:      0.01,
		MaxMoves:         5,
	}
}

// SizeAt returns the saturating growth curve MatureSize·(1 − e^(−age/τ)).
func (p *Params) SizeAt(age int) float64 {
	if p.MatureAge <= 0 || p.GrowthConstants <= 0 {
		return p.MatureSize
	}
	tau := float64(p.MatureAge) / p.GrowthConstants
	return p.MatureSize * (1 - math.Exp(-float64(age)/tau))
}

// SeasonDays is the number of days the spawn window stays open.
func (p *Params) SeasonDays() int {
	return p.SpawnSeason + 1
}

// MoveQuota returns the per-tick move budget for a fish of the given size.
func (p *Params) MoveQuota(dim int, size float64) int {
	q := p.MaxMoves
	if p.MoveQuotaScale > 0 {
		q = int(p.MoveQuotaScale * float64(dim) * size)
	}
	if q < 1 {
		return 1
	}
	return q
}

// MinResource is the stock below which a patch is treated as exhausted.
func (p *Params) MinResource(size float64) float64 {
	if p.MinResourceFactor > 0 {
		return p.MinResourceFactor * size
	}
	return 0
}

// ConceptionProbability returns the per-tick chance that a fertile,
// spawning female conceives given the local mature males.
func (p *Params) ConceptionProbability(males int, maleRatio float64) float64 {
	switch p.SpawnModel {
	case SpawnMaleRatio:
		if p.SeasonConception <= 0 || maleRatio <= 0 {
			return 0
		}
		target := math.Min(p.SeasonConception, 1-1e-9)
		hazard := -math.Log(1-target) / float64(p.SeasonDays())
		exposure := 1.0
		if p.SaturationRatio > 0 {
			exposure = math.Min(1, maleRatio/p.SaturationRatio)
		}
		return 1 - math.Exp(-hazard*exposure)
	default:
		return 1 - math.Exp(-float64(males)*p.MaleFactor)
	}
}
