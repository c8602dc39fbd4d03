package game

import (
	"errors"
	"math/rand"
	"time"
)

type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseBriefing    Phase = "briefing"
	PhaseBidding     Phase = "bidding"
	PhaseDispatching Phase = "dispatching"
	PhaseResults     Phase = "results"
	PhaseFinal       Phase = "final"
)

type AssetType string

const (
	AssetCoal    AssetType = "coal"
	AssetCCGT    AssetType = "ccgt"
	AssetOCGT    AssetType = "ocgt"
	AssetWind    AssetType = "wind"
	AssetSolar   AssetType = "solar"
	AssetHydro   AssetType = "hydro"
	AssetBattery AssetType = "battery"
)

// dispatchRank is a fixed total order over asset types used to break price
// ties in the merit order: weather-driven zero-marginal types first, then
// flexible storage, then thermal, ending with the peakers. Independent of
// price.
var dispatchRank = map[AssetType]int{
	AssetSolar:   0,
	AssetWind:    1,
	AssetHydro:   2,
	AssetBattery: 3,
	AssetCoal:    4,
	AssetCCGT:    5,
	AssetOCGT:    6,
}

var renewableTypes = map[AssetType]bool{
	AssetWind:  true,
	AssetSolar: true,
	AssetHydro: true,
}

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrTeamNotFound      = errors.New("team not found")
	ErrLobbyFull         = errors.New("lobby is full")
	ErrDuplicateTeamName = errors.New("team name already taken")
	ErrInvalidPhase      = errors.New("operation not valid in current phase")
	ErrRoundsExhausted   = errors.New("no rounds remaining")
	ErrUnknownMode       = errors.New("unknown game mode")
	ErrUnknownScenario   = errors.New("unknown scenario id")
	ErrBadBid            = errors.New("invalid bid")
	ErrBadTeamName       = errors.New("invalid team name")
)

// AssetDefinition holds the economic and physical parameters of one archetype
// owned by one team. SRMC mutations from scenario effects accumulate here for
// the remainder of the game.
type AssetDefinition struct {
	ID           string    `json:"id"`
	TeamID       string    `json:"team_id"`
	Type         AssetType `json:"type"`
	Name         string    `json:"name"`
	NameplateMW  float64   `json:"nameplate_mw"`
	SRMC         float64   `json:"srmc"` // $/MWh
	MinStableMW  float64   `json:"min_stable_mw"`
	RampMWPerMin float64   `json:"ramp_mw_per_min"`
	StartupCost  float64   `json:"startup_cost"`
	MaxStorage   float64   `json:"max_storage_mwh,omitempty"`
	MaxChargeMW  float64   `json:"max_charge_mw,omitempty"`
	UnlockRound  int       `json:"unlock_round"`
}

func (d *AssetDefinition) StorageCapable() bool { return d.MaxStorage > 0 }

// AssetInstance is the live per-round state of one definition.
type AssetInstance struct {
	DefinitionID string  `json:"definition_id"`
	AvailableMW  float64 `json:"available_mw"`
	ForcedOutage bool    `json:"forced_outage"`
	StorageMWh   float64 `json:"storage_mwh"`
	MaxStorage   float64 `json:"max_storage_mwh"`
}

// Band is one price/quantity step inside an offer.
type Band struct {
	Price      float64 `json:"price"`
	QuantityMW float64 `json:"quantity_mw"`
}

// Bid is one team's offer for one asset in one time period.
type Bid struct {
	AssetID     string    `json:"asset_id"`
	Period      int       `json:"period"`
	Bands       []Band    `json:"bands"`
	Charging    bool      `json:"charging,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (b Bid) TotalMW() float64 {
	var total float64
	for _, band := range b.Bands {
		total += band.QuantityMW
	}
	return total
}

// BandOffer is one flattened band entering the clearing engine, tagged with
// its origin.
type BandOffer struct {
	TeamID     string    `json:"team_id"`
	AssetID    string    `json:"asset_id"`
	Type       AssetType `json:"type"`
	Price      float64   `json:"price"`
	QuantityMW float64   `json:"quantity_mw"`
	Charging   bool      `json:"charging,omitempty"`
}

// DispatchedBand is a band accepted by the auction, possibly partially.
type DispatchedBand struct {
	BandOffer
	DispatchedMW float64 `json:"dispatched_mw"`
	Marginal     bool    `json:"marginal"`
}

// ChargeFlow is one asset's accepted charging draw for a period. The MW was
// added to the period's demand before clearing; settlement buys the energy
// back at the clearing price.
type ChargeFlow struct {
	TeamID   string  `json:"team_id"`
	AssetID  string  `json:"asset_id"`
	ChargeMW float64 `json:"charge_mw"`
}

// DispatchResult is the outcome of one period's clearing. Never mutated after
// creation.
type DispatchResult struct {
	Period            int              `json:"period"`
	DemandMW          float64          `json:"demand_mw"`
	ClearingPrice     float64          `json:"clearing_price"`
	TotalOfferedMW    float64          `json:"total_offered_mw"`
	TotalDispatchedMW float64          `json:"total_dispatched_mw"`
	Dispatched        []DispatchedBand `json:"dispatched"`
	Undispatched      []BandOffer      `json:"undispatched"`
	Charging          []ChargeFlow     `json:"charging,omitempty"`
	ExcessMW          float64          `json:"excess_mw"`
	ReserveMarginPct  float64          `json:"reserve_margin_pct"`
	Scarcity          bool             `json:"scarcity"`
}

// AssetPeriodResult is the settlement of one asset over one period. A charging
// asset settles as a separate entry with ChargeMW/ChargeCost set and no
// generation figures.
type AssetPeriodResult struct {
	AssetID       string  `json:"asset_id"`
	Period        int     `json:"period"`
	DispatchedMW  float64 `json:"dispatched_mw"`
	EnergyMWh     float64 `json:"energy_mwh"`
	ClearingPrice float64 `json:"clearing_price"`
	Revenue       float64 `json:"revenue"`
	VariableCost  float64 `json:"variable_cost"`
	StartupCost   float64 `json:"startup_cost"`
	ChargeMW      float64 `json:"charge_mw,omitempty"`
	ChargeCost    float64 `json:"charge_cost,omitempty"`
	Profit        float64 `json:"profit"`
}

// TeamRoundResult aggregates one team's settlement across a whole round.
type TeamRoundResult struct {
	TeamID       string              `json:"team_id"`
	Round        int                 `json:"round"`
	Revenue      float64             `json:"revenue"`
	VariableCost float64             `json:"variable_cost"`
	StartupCost  float64             `json:"startup_cost"`
	ChargeCost   float64             `json:"charge_cost"`
	Profit       float64             `json:"profit"`
	EnergyMWh    float64             `json:"energy_mwh"`
	AvgPriceMWh  float64             `json:"avg_price_mwh"`
	Assets       []AssetPeriodResult `json:"assets"`
}

// RoundDispatchResult is everything that came out of one round's dispatch.
type RoundDispatchResult struct {
	Round   int                         `json:"round"`
	Periods []DispatchResult            `json:"periods"`
	Teams   map[string]*TeamRoundResult `json:"teams"`
}

// RoundConfig describes one round of the curriculum.
type RoundConfig struct {
	Round       int         `json:"round" yaml:"round"`
	Season      string      `json:"season" yaml:"season"`
	Periods     int         `json:"periods" yaml:"periods"`
	PeriodHours float64     `json:"period_hours" yaml:"period_hours"`
	MaxBands    int         `json:"max_bands" yaml:"max_bands"`
	BidSeconds  int         `json:"bid_seconds" yaml:"bid_seconds"`
	Unlocked    []AssetType `json:"unlocked" yaml:"unlocked"`
	ScenarioIDs []string    `json:"scenario_ids" yaml:"scenario_ids"`
}

// GameConfig is fixed at game creation.
type GameConfig struct {
	Mode             string                `json:"mode"`
	MaxTeams         int                   `json:"max_teams"`
	PriceCap         float64               `json:"price_cap"`
	PriceFloor       float64               `json:"price_floor"`
	Rounds           []RoundConfig         `json:"rounds"`
	Variation        bool                  `json:"variation"`
	Variability      float64               `json:"variability"`
	BalancingTrigger float64               `json:"balancing_trigger"`
	Overrides        map[AssetType]float64 `json:"overrides,omitempty"`
}

type Team struct {
	ID               string                    `json:"id"`
	Name             string                    `json:"name"`
	Color            string                    `json:"color"`
	Connected        bool                      `json:"connected"`
	Assets           map[string]*AssetInstance `json:"assets"`
	CumulativeProfit float64                   `json:"cumulative_profit"`
	Results          []*TeamRoundResult        `json:"results"`
	Rank             int                       `json:"rank"`
	JoinedAt         time.Time                 `json:"joined_at"`
}

// Game is the full mutable state of one session. Lives only for the process
// lifetime; guarded by the owning Session's mutex.
type Game struct {
	ID                 string
	Config             GameConfig
	Phase              Phase
	Round              int // 1-based; 0 before the first round starts
	Teams              []*Team
	Results            []*RoundDispatchResult
	Bids               map[string][]Bid // team id -> this round's submission
	CountdownSec       int
	ActiveScenarios    []string
	ActiveSurprises    []string
	DemandMW           map[int]float64 // period -> MW, regenerated each round
	DemandMultipliers  []float64
	CapacityFactorMult map[AssetType]float64
	VariationSeed      int64
	CreatedAt          time.Time
}

func (g *Game) CurrentRoundConfig() (RoundConfig, bool) {
	if g.Round < 1 || g.Round > len(g.Config.Rounds) {
		return RoundConfig{}, false
	}
	return g.Config.Rounds[g.Round-1], true
}

func (g *Game) TeamByID(id string) (*Team, bool) {
	for _, t := range g.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Collaborator interfaces. Default implementations live in internal/content;
// the core depends only on these.

type AssetCatalog interface {
	// ArchetypesForTeam builds the full archetype set for one team,
	// deterministic per team index. When variation is enabled, rng supplies
	// the per-game jitter and must be seeded identically on every rebuild.
	ArchetypesForTeam(teamIndex, teamCount int, overrides map[AssetType]float64, variation bool, rng *rand.Rand) []AssetDefinition
	// AvailableArchetypes filters the set down to what is unlocked for the
	// given round. An explicit Unlocked list on the round config wins over
	// any per-archetype unlock schedule.
	AvailableArchetypes(all []AssetDefinition, rc RoundConfig, mode string) []AssetDefinition
	// FactorFor is the weather-dependent availability factor in [0,1].
	FactorFor(t AssetType, season string, period int) float64
}

type DemandGenerator interface {
	DemandFor(season string, periods int, variability float64, multipliers []float64, fleetCapacity map[int]float64, rng *rand.Rand) map[int]float64
}

type ScenarioCatalog interface {
	EffectsFor(id string) ([]Effect, bool)
}

type Curriculum interface {
	RoundsFor(mode string) ([]RoundConfig, bool)
}

// Content bundles the static, read-only collaborators shared by all sessions.
type Content struct {
	Assets     AssetCatalog
	Scenarios  ScenarioCatalog
	Surprises  ScenarioCatalog
	Curriculum Curriculum
	Demand     DemandGenerator
}

type EffectKind string

const (
	EffectAssetAvailability EffectKind = "modify_asset_availability"
	EffectSRMC              EffectKind = "modify_srmc"
	EffectCarbonCost        EffectKind = "add_carbon_cost"
	EffectForceOutage       EffectKind = "force_outage"
	EffectDemand            EffectKind = "modify_demand"
	EffectCapacityFactor    EffectKind = "modify_capacity_factor"
)

// Effect is one declarative scenario mutation. AssetType empty means all
// types; TeamIndexes empty means all teams.
type Effect struct {
	Kind        EffectKind `json:"kind" yaml:"kind"`
	AssetType   AssetType  `json:"asset_type,omitempty" yaml:"asset_type,omitempty"`
	Multiplier  float64    `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Amount      float64    `json:"amount,omitempty" yaml:"amount,omitempty"`
	TeamIndexes []int      `json:"team_indexes,omitempty" yaml:"team_indexes,omitempty"`
}
