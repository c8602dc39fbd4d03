package game

import "sort"

// DefinitionRepo holds one session's asset definitions. Each game owns its
// own repo so scenario-driven SRMC ratchets never leak into other sessions.
type DefinitionRepo struct {
	defs map[string]*AssetDefinition
}

func NewDefinitionRepo() *DefinitionRepo {
	return &DefinitionRepo{defs: make(map[string]*AssetDefinition)}
}

// Ensure registers def if no definition with the same id exists and returns
// the stored definition. Re-registering an id returns the existing entry,
// which preserves accumulated scenario mutations across round rebuilds.
func (r *DefinitionRepo) Ensure(def AssetDefinition) *AssetDefinition {
	if existing, ok := r.defs[def.ID]; ok {
		return existing
	}
	stored := def
	r.defs[def.ID] = &stored
	return &stored
}

func (r *DefinitionRepo) Get(id string) (*AssetDefinition, bool) {
	def, ok := r.defs[id]
	return def, ok
}

// ByType returns definitions of the given type in stable id order. An empty
// type matches everything.
func (r *DefinitionRepo) ByType(t AssetType) []*AssetDefinition {
	var out []*AssetDefinition
	for _, def := range r.defs {
		if t == "" || def.Type == t {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reset drops every definition. Used when a game is reset to the lobby.
func (r *DefinitionRepo) Reset() {
	r.defs = make(map[string]*AssetDefinition)
}
