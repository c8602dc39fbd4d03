package game

import "math/rand"

// FleetManager rebuilds every team's asset instances at the start of a round
// and carries outage and storage state across the round boundary.
type FleetManager struct {
	catalog AssetCatalog
}

func NewFleetManager(catalog AssetCatalog) *FleetManager {
	return &FleetManager{catalog: catalog}
}

// Rebuild re-derives each team's instances for the round about to start.
// Definitions are registered once per game in repo; later rounds reuse the
// stored entries so scenario cost ratchets survive the rebuild.
//
// Outage penalties last exactly one round: an instance that finished the
// previous round in outage comes back at full nameplate with the flag
// cleared and storage reset to half of max.
func (f *FleetManager) Rebuild(g *Game, repo *DefinitionRepo, rc RoundConfig) {
	// The variation rng restarts from the game seed on every rebuild so each
	// team's jitter is identical round to round.
	rng := rand.New(rand.NewSource(g.VariationSeed))

	for i, team := range g.Teams {
		archetypes := f.catalog.ArchetypesForTeam(i, len(g.Teams), g.Config.Overrides, g.Config.Variation, rng)
		for ai := range archetypes {
			archetypes[ai].TeamID = team.ID
		}
		unlocked := f.catalog.AvailableArchetypes(archetypes, rc, g.Config.Mode)

		next := make(map[string]*AssetInstance, len(unlocked))
		for _, arch := range unlocked {
			def := repo.Ensure(arch)
			prior := team.Assets[def.ID]
			switch {
			case prior == nil:
				next[def.ID] = newInstance(def)
			case prior.ForcedOutage:
				next[def.ID] = newInstance(def)
			default:
				prior.AvailableMW = def.NameplateMW
				next[def.ID] = prior
			}
		}
		team.Assets = next
	}
}

func newInstance(def *AssetDefinition) *AssetInstance {
	return &AssetInstance{
		DefinitionID: def.ID,
		AvailableMW:  def.NameplateMW,
		StorageMWh:   def.MaxStorage / 2,
		MaxStorage:   def.MaxStorage,
	}
}
