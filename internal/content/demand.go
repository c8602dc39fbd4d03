package content

import (
	"math/rand"
)

// Diurnal demand as a fraction of fleet capacity, by period slot.
var demandShape = []float64{0.62, 0.80, 0.74, 0.50}

var demandSeason = map[string]float64{
	"summer": 1.05, "winter": 1.10, "spring": 0.95, "autumn": 0.95,
}

// Generator is the default DemandGenerator: demand tracks the fleet so the
// market is tight enough to teach scarcity without being unwinnable, shaped
// by time of day and season, scaled by scenario multipliers, with seeded
// variability on top.
type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

func (g *Generator) DemandFor(season string, periods int, variability float64, multipliers []float64, fleetCapacity map[int]float64, rng *rand.Rand) map[int]float64 {
	seasonFactor := seasonOr(demandSeason, season, 1.0)
	out := make(map[int]float64, periods)
	for p := 1; p <= periods; p++ {
		slot := (p - 1) % len(demandShape)
		demand := fleetCapacity[p] * demandShape[slot] * seasonFactor
		for _, m := range multipliers {
			demand *= m
		}
		if variability > 0 {
			demand *= 1 + variability*(rng.Float64()*2-1)
		}
		if demand < 0 {
			demand = 0
		}
		out[p] = demand
	}
	return out
}
