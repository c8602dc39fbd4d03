package content

import (
	"fmt"
	"math/rand"

	"gridlock/internal/game"
)

// Archetype is the static template one team instance is stamped from.
type Archetype struct {
	Type        game.AssetType `yaml:"type"`
	Name        string         `yaml:"name"`
	NameplateMW float64        `yaml:"nameplate_mw"`
	SRMC        float64        `yaml:"srmc"`
	MinStablePc float64        `yaml:"min_stable_pct"`
	RampMW      float64        `yaml:"ramp_mw_per_min"`
	StartupCost float64        `yaml:"startup_cost"`
	StorageMWh  float64        `yaml:"storage_mwh"`
	ChargeMW    float64        `yaml:"charge_mw"`
	UnlockRound int            `yaml:"unlock_round"`
}

var defaultArchetypes = []Archetype{
	{Type: game.AssetCoal, Name: "Coal Baseload", NameplateMW: 500, SRMC: 28, MinStablePc: 0.40, RampMW: 5, StartupCost: 25000, UnlockRound: 1},
	{Type: game.AssetCCGT, Name: "CCGT", NameplateMW: 300, SRMC: 55, MinStablePc: 0.30, RampMW: 15, StartupCost: 9000, UnlockRound: 1},
	{Type: game.AssetWind, Name: "Wind Farm", NameplateMW: 250, SRMC: 0, RampMW: 60, UnlockRound: 1},
	{Type: game.AssetOCGT, Name: "OCGT Peaker", NameplateMW: 120, SRMC: 110, MinStablePc: 0.15, RampMW: 40, StartupCost: 2500, UnlockRound: 2},
	{Type: game.AssetSolar, Name: "Solar Park", NameplateMW: 200, SRMC: 0, RampMW: 80, UnlockRound: 2},
	{Type: game.AssetHydro, Name: "Hydro Scheme", NameplateMW: 150, SRMC: 4, MinStablePc: 0.10, RampMW: 50, StartupCost: 500, UnlockRound: 3},
	{Type: game.AssetBattery, Name: "Grid Battery", NameplateMW: 100, SRMC: 8, RampMW: 100, StorageMWh: 200, ChargeMW: 80, UnlockRound: 3},
}

// jitterPct bounds the optional per-game capacity/cost variation.
const jitterPct = 0.10

// Catalog is the default AssetCatalog: one archetype of each kind per team,
// with optional seeded jitter and operator capacity overrides.
type Catalog struct {
	archetypes []Archetype
}

func NewCatalog(archetypes []Archetype) *Catalog {
	if len(archetypes) == 0 {
		archetypes = defaultArchetypes
	}
	return &Catalog{archetypes: archetypes}
}

func (c *Catalog) ArchetypesForTeam(teamIndex, teamCount int, overrides map[game.AssetType]float64, variation bool, rng *rand.Rand) []game.AssetDefinition {
	out := make([]game.AssetDefinition, 0, len(c.archetypes))
	for _, a := range c.archetypes {
		def := game.AssetDefinition{
			ID:           fmt.Sprintf("t%d-%s", teamIndex, a.Type),
			Type:         a.Type,
			Name:         a.Name,
			NameplateMW:  a.NameplateMW,
			SRMC:         a.SRMC,
			RampMWPerMin: a.RampMW,
			StartupCost:  a.StartupCost,
			MaxStorage:   a.StorageMWh,
			MaxChargeMW:  a.ChargeMW,
			UnlockRound:  a.UnlockRound,
		}
		if variation {
			def.NameplateMW *= 1 + jitterPct*(rng.Float64()*2-1)
			def.SRMC *= 1 + jitterPct*(rng.Float64()*2-1)
		}
		if mult, ok := overrides[a.Type]; ok && mult > 0 {
			def.NameplateMW *= mult
		}
		def.MinStableMW = def.NameplateMW * a.MinStablePc
		out = append(out, def)
	}
	return out
}

// AvailableArchetypes applies the unlock curriculum. A round config carrying
// an explicit Unlocked list wins outright; otherwise the intro mode staggers
// archetypes in by unlock round and the advanced mode hands out the full
// fleet from round one.
func (c *Catalog) AvailableArchetypes(all []game.AssetDefinition, rc game.RoundConfig, mode string) []game.AssetDefinition {
	if len(rc.Unlocked) > 0 {
		allowed := make(map[game.AssetType]bool, len(rc.Unlocked))
		for _, t := range rc.Unlocked {
			allowed[t] = true
		}
		out := make([]game.AssetDefinition, 0, len(all))
		for _, def := range all {
			if allowed[def.Type] {
				out = append(out, def)
			}
		}
		return out
	}
	if mode == ModeAdvanced {
		return all
	}
	out := make([]game.AssetDefinition, 0, len(all))
	for _, def := range all {
		if def.UnlockRound <= rc.Round {
			out = append(out, def)
		}
	}
	return out
}

// Diurnal availability shapes by period slot (periods cycle through these).
var solarShape = []float64{0.25, 0.90, 0.45, 0.0}
var windShape = []float64{0.40, 0.30, 0.45, 0.50}

var solarSeason = map[string]float64{
	"summer": 1.0, "spring": 0.8, "autumn": 0.7, "winter": 0.5,
}
var windSeason = map[string]float64{
	"summer": 0.8, "spring": 1.0, "autumn": 1.0, "winter": 1.0,
}

// FactorFor is the weather-dependent availability factor for one period.
// Non-weather types are always fully available.
func (c *Catalog) FactorFor(t game.AssetType, season string, period int) float64 {
	slot := (period - 1) % 4
	if slot < 0 {
		slot = 0
	}
	var f float64
	switch t {
	case game.AssetSolar:
		f = solarShape[slot] * seasonOr(solarSeason, season, 0.8)
	case game.AssetWind:
		f = windShape[slot] * seasonOr(windSeason, season, 1.0)
	default:
		return 1.0
	}
	if f > 1 {
		f = 1
	}
	if f < 0 {
		f = 0
	}
	return f
}

func seasonOr(m map[string]float64, season string, fallback float64) float64 {
	if v, ok := m[season]; ok {
		return v
	}
	return fallback
}
