package content

import "gridlock/internal/game"

const (
	ModeIntro    = "intro"
	ModeAdvanced = "advanced"
)

var defaultCurricula = map[string][]game.RoundConfig{
	ModeIntro: {
		{Round: 1, Season: "spring", Periods: 3, PeriodHours: 8, MaxBands: 1, BidSeconds: 180,
			Unlocked: []game.AssetType{game.AssetCoal, game.AssetCCGT, game.AssetWind}},
		{Round: 2, Season: "summer", Periods: 3, PeriodHours: 8, MaxBands: 3, BidSeconds: 180,
			Unlocked: []game.AssetType{game.AssetCoal, game.AssetCCGT, game.AssetWind, game.AssetOCGT, game.AssetSolar},
			ScenarioIDs: []string{"heatwave"}},
		{Round: 3, Season: "autumn", Periods: 4, PeriodHours: 6, MaxBands: 3, BidSeconds: 180,
			Unlocked: []game.AssetType{game.AssetCoal, game.AssetCCGT, game.AssetWind, game.AssetOCGT, game.AssetSolar, game.AssetHydro, game.AssetBattery},
			ScenarioIDs: []string{"carbon_price"}},
		{Round: 4, Season: "winter", Periods: 4, PeriodHours: 6, MaxBands: 5, BidSeconds: 180,
			Unlocked: []game.AssetType{game.AssetCoal, game.AssetCCGT, game.AssetWind, game.AssetOCGT, game.AssetSolar, game.AssetHydro, game.AssetBattery},
			ScenarioIDs: []string{"gas_shortage", "calm_week"}},
		{Round: 5, Season: "summer", Periods: 4, PeriodHours: 6, MaxBands: 5, BidSeconds: 180,
			Unlocked: []game.AssetType{game.AssetCoal, game.AssetCCGT, game.AssetWind, game.AssetOCGT, game.AssetSolar, game.AssetHydro, game.AssetBattery},
			ScenarioIDs: []string{"drought"}},
	},
	ModeAdvanced: {
		{Round: 1, Season: "summer", Periods: 4, PeriodHours: 6, MaxBands: 5, BidSeconds: 240},
		{Round: 2, Season: "autumn", Periods: 4, PeriodHours: 6, MaxBands: 5, BidSeconds: 240,
			ScenarioIDs: []string{"carbon_price"}},
		{Round: 3, Season: "winter", Periods: 4, PeriodHours: 6, MaxBands: 5, BidSeconds: 240,
			ScenarioIDs: []string{"gas_shortage"}},
		{Round: 4, Season: "winter", Periods: 4, PeriodHours: 6, MaxBands: 5, BidSeconds: 240,
			ScenarioIDs: []string{"calm_week"}},
		{Round: 5, Season: "spring", Periods: 4, PeriodHours: 6, MaxBands: 5, BidSeconds: 240,
			ScenarioIDs: []string{"drought"}},
		{Round: 6, Season: "summer", Periods: 4, PeriodHours: 6, MaxBands: 5, BidSeconds: 240,
			ScenarioIDs: []string{"heatwave"}},
	},
}

type CurriculumTable struct {
	curricula map[string][]game.RoundConfig
}

func NewCurriculumTable(curricula map[string][]game.RoundConfig) *CurriculumTable {
	return &CurriculumTable{curricula: curricula}
}

func (t *CurriculumTable) RoundsFor(mode string) ([]game.RoundConfig, bool) {
	rounds, ok := t.curricula[mode]
	if !ok {
		return nil, false
	}
	out := make([]game.RoundConfig, len(rounds))
	copy(out, rounds)
	return out, true
}
