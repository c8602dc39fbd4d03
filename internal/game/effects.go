package game

import (
	"log/slog"
	"sort"
)

const outageDerateFactor = 0.30

// EffectApplier resolves scenario/surprise ids to effect lists and applies
// them to the current game. Effects that touch AssetDefinition fields
// (modify_srmc, add_carbon_cost) ratchet: they mutate the session's
// definition repo and stay in force for the rest of the game. Availability
// and outage effects act on the round's instances and wash out with the next
// rebuild.
type EffectApplier struct {
	catalog ScenarioCatalog
	log     *slog.Logger
}

func NewEffectApplier(catalog ScenarioCatalog, logger *slog.Logger) *EffectApplier {
	if logger == nil {
		logger = slog.Default()
	}
	return &EffectApplier{catalog: catalog, log: logger}
}

// Apply resolves each id in order and applies its effects in order. Unknown
// ids are reported, known ones are applied even if an earlier id failed.
func (a *EffectApplier) Apply(g *Game, repo *DefinitionRepo, ids []string) error {
	var firstErr error
	for _, id := range ids {
		effects, ok := a.catalog.EffectsFor(id)
		if !ok {
			a.log.Warn("unknown scenario id", "game_id", g.ID, "scenario_id", id)
			if firstErr == nil {
				firstErr = ErrUnknownScenario
			}
			continue
		}
		for _, eff := range effects {
			a.applyOne(g, repo, eff)
		}
	}
	return firstErr
}

func (a *EffectApplier) applyOne(g *Game, repo *DefinitionRepo, eff Effect) {
	switch eff.Kind {
	case EffectAssetAvailability:
		for _, team := range targetTeams(g, eff) {
			for _, inst := range team.Assets {
				def, ok := repo.Get(inst.DefinitionID)
				if !ok || !matchesType(def.Type, eff.AssetType) {
					continue
				}
				inst.AvailableMW *= eff.Multiplier
				clampAvailability(inst, def)
			}
		}
	case EffectSRMC:
		for _, def := range repo.ByType(eff.AssetType) {
			def.SRMC *= eff.Multiplier
			if def.SRMC < 0 {
				def.SRMC = 0
			}
		}
	case EffectCarbonCost:
		for _, def := range repo.ByType(eff.AssetType) {
			def.SRMC += eff.Amount
			if def.SRMC < 0 {
				def.SRMC = 0
			}
		}
	case EffectForceOutage:
		for _, team := range targetTeams(g, eff) {
			forceOutage(team, repo, eff.AssetType)
		}
	case EffectDemand:
		g.DemandMultipliers = append(g.DemandMultipliers, eff.Multiplier)
	case EffectCapacityFactor:
		if eff.AssetType != "" {
			cur, ok := g.CapacityFactorMult[eff.AssetType]
			if !ok {
				cur = 1
			}
			g.CapacityFactorMult[eff.AssetType] = cur * eff.Multiplier
		}
	default:
		a.log.Warn("unknown effect kind", "game_id", g.ID, "kind", string(eff.Kind))
	}
}

// forceOutage derates one matching, not-already-outaged asset to 30% of
// nameplate and flags it. The largest available asset is chosen so the
// penalty is felt; ids break the tie for determinism.
func forceOutage(team *Team, repo *DefinitionRepo, t AssetType) {
	var victim *AssetInstance
	var victimDef *AssetDefinition
	ids := make([]string, 0, len(team.Assets))
	for id := range team.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		inst := team.Assets[id]
		if inst.ForcedOutage {
			continue
		}
		def, ok := repo.Get(id)
		if !ok || !matchesType(def.Type, t) {
			continue
		}
		if victim == nil || inst.AvailableMW > victim.AvailableMW {
			victim = inst
			victimDef = def
		}
	}
	if victim == nil {
		return
	}
	victim.AvailableMW = victimDef.NameplateMW * outageDerateFactor
	victim.ForcedOutage = true
}

func targetTeams(g *Game, eff Effect) []*Team {
	if len(eff.TeamIndexes) == 0 {
		return g.Teams
	}
	var out []*Team
	for _, idx := range eff.TeamIndexes {
		if idx >= 0 && idx < len(g.Teams) {
			out = append(out, g.Teams[idx])
		}
	}
	return out
}

func matchesType(have, want AssetType) bool {
	return want == "" || have == want
}

func clampAvailability(inst *AssetInstance, def *AssetDefinition) {
	if inst.AvailableMW < 0 {
		inst.AvailableMW = 0
	}
	if inst.AvailableMW > def.NameplateMW {
		inst.AvailableMW = def.NameplateMW
	}
}
