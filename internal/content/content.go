package content

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gridlock/internal/game"
)

// Default returns the built-in catalogs wired into a game.Content bundle.
func Default() game.Content {
	return game.Content{
		Assets:     NewCatalog(nil),
		Scenarios:  NewEffectCatalog(defaultScenarios),
		Surprises:  NewEffectCatalog(defaultSurprises),
		Curriculum: NewCurriculumTable(defaultCurricula),
		Demand:     NewGenerator(),
	}
}

// fileOverride is the YAML shape of an operator content file. Each section
// is optional; omitted sections keep the built-in tables.
type fileOverride struct {
	Archetypes []Archetype                   `yaml:"archetypes"`
	Scenarios  map[string][]game.Effect      `yaml:"scenarios"`
	Surprises  map[string][]game.Effect      `yaml:"surprises"`
	Curricula  map[string][]game.RoundConfig `yaml:"curricula"`
}

// LoadFile layers a YAML override on top of the defaults.
func LoadFile(path string) (game.Content, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return game.Content{}, fmt.Errorf("read content file: %w", err)
	}
	var override fileOverride
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return game.Content{}, fmt.Errorf("parse content file: %w", err)
	}

	c := Default()
	if len(override.Archetypes) > 0 {
		c.Assets = NewCatalog(override.Archetypes)
	}
	if len(override.Scenarios) > 0 {
		c.Scenarios = NewEffectCatalog(override.Scenarios)
	}
	if len(override.Surprises) > 0 {
		c.Surprises = NewEffectCatalog(override.Surprises)
	}
	if len(override.Curricula) > 0 {
		c.Curriculum = NewCurriculumTable(override.Curricula)
	}
	return c, nil
}
