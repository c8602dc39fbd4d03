package content

import "gridlock/internal/game"

// Effects catalogs. Scenario ids hang off the curriculum; surprise ids are
// triggered live by the host during briefing.

var defaultScenarios = map[string][]game.Effect{
	"heatwave": {
		{Kind: game.EffectDemand, Multiplier: 1.25},
		{Kind: game.EffectAssetAvailability, AssetType: game.AssetCCGT, Multiplier: 0.92},
	},
	"carbon_price": {
		{Kind: game.EffectCarbonCost, AssetType: game.AssetCoal, Amount: 32},
		{Kind: game.EffectCarbonCost, AssetType: game.AssetCCGT, Amount: 14},
		{Kind: game.EffectCarbonCost, AssetType: game.AssetOCGT, Amount: 20},
	},
	"gas_shortage": {
		{Kind: game.EffectSRMC, AssetType: game.AssetCCGT, Multiplier: 1.5},
		{Kind: game.EffectSRMC, AssetType: game.AssetOCGT, Multiplier: 1.35},
	},
	"calm_week": {
		{Kind: game.EffectAssetAvailability, AssetType: game.AssetWind, Multiplier: 0.45},
		{Kind: game.EffectCapacityFactor, AssetType: game.AssetWind, Multiplier: 0.45},
	},
	"drought": {
		{Kind: game.EffectAssetAvailability, AssetType: game.AssetHydro, Multiplier: 0.6},
		{Kind: game.EffectSRMC, AssetType: game.AssetHydro, Multiplier: 2.0},
	},
}

var defaultSurprises = map[string][]game.Effect{
	"plant_trip": {
		{Kind: game.EffectForceOutage, AssetType: game.AssetCoal},
	},
	"cold_snap": {
		{Kind: game.EffectDemand, Multiplier: 1.3},
	},
	"fuel_spike": {
		{Kind: game.EffectSRMC, AssetType: game.AssetCCGT, Multiplier: 1.25},
	},
	"storm_front": {
		{Kind: game.EffectForceOutage, AssetType: game.AssetWind},
		{Kind: game.EffectCapacityFactor, AssetType: game.AssetSolar, Multiplier: 0.7},
	},
}

// EffectCatalog is a static id -> effect-list lookup.
type EffectCatalog struct {
	effects map[string][]game.Effect
}

func NewEffectCatalog(effects map[string][]game.Effect) *EffectCatalog {
	return &EffectCatalog{effects: effects}
}

func (c *EffectCatalog) EffectsFor(id string) ([]game.Effect, bool) {
	effects, ok := c.effects[id]
	return effects, ok
}
