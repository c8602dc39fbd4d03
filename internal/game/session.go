package game

import (
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var teamPalette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
}

// Session owns one game's state. Every operation takes the session mutex, so
// a game is mutated by one logical thread of control; distinct sessions are
// fully independent apart from the shared read-only content catalogs.
type Session struct {
	mu   sync.Mutex
	log  *slog.Logger
	rand *rand.Rand

	game       *Game
	repo       *DefinitionRepo
	fleet      *FleetManager
	scenarioFx *EffectApplier
	surpriseFx *EffectApplier
	content    Content
}

func NewSession(content Content, cfg GameConfig, logger *slog.Logger) *Session {
	return NewSessionWithSeed(content, cfg, logger, time.Now().UnixNano())
}

// NewSessionWithSeed fixes the session's randomness so clearing tie-breaks,
// demand variability, and balancing derates are reproducible. Test hook;
// production uses NewSession.
func NewSessionWithSeed(content Content, cfg GameConfig, logger *slog.Logger, seed int64) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Session{
		log:  logger,
		rand: rng,
		game: &Game{
			ID:                 uuid.NewString(),
			Config:             cfg,
			Phase:              PhaseLobby,
			Bids:               make(map[string][]Bid),
			DemandMW:           make(map[int]float64),
			CapacityFactorMult: make(map[AssetType]float64),
			VariationSeed:      rng.Int63(),
			CreatedAt:          time.Now(),
		},
		repo:       NewDefinitionRepo(),
		fleet:      NewFleetManager(content.Assets),
		scenarioFx: NewEffectApplier(content.Scenarios, logger),
		surpriseFx: NewEffectApplier(content.Surprises, logger),
		content:    content,
	}
}

func (s *Session) ID() string {
	return s.game.ID
}

// AddTeam joins a team in the lobby. Names are unique case-insensitively;
// colors are assigned round-robin from a fixed palette.
func (s *Session) AddTeam(name string) (TeamView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Phase != PhaseLobby {
		return TeamView{}, ErrInvalidPhase
	}
	if len(s.game.Teams) >= s.game.Config.MaxTeams {
		return TeamView{}, ErrLobbyFull
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return TeamView{}, ErrBadTeamName
	}
	for _, t := range s.game.Teams {
		if strings.EqualFold(t.Name, name) {
			return TeamView{}, ErrDuplicateTeamName
		}
	}

	team := &Team{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     teamPalette[len(s.game.Teams)%len(teamPalette)],
		Connected: true,
		Assets:    make(map[string]*AssetInstance),
		JoinedAt:  time.Now(),
	}
	s.game.Teams = append(s.game.Teams, team)
	s.log.Info("team joined", "game_id", s.game.ID, "team_id", team.ID, "name", team.Name)
	return teamView(team), nil
}

func (s *Session) SetConnected(teamID string, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, ok := s.game.TeamByID(teamID)
	if !ok {
		return ErrTeamNotFound
	}
	team.Connected = connected
	return nil
}

// StartRound advances into the briefing of the next round: bids and
// per-round markers reset, fleets rebuild, scenario effects apply, and the
// round's demand is generated from the post-effect fleet capacity.
func (s *Session) StartRound() (RoundConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.game
	if g.Phase != PhaseLobby && g.Phase != PhaseResults {
		return RoundConfig{}, ErrInvalidPhase
	}
	next := g.Round + 1
	if next > len(g.Config.Rounds) {
		return RoundConfig{}, ErrRoundsExhausted
	}
	rc := g.Config.Rounds[next-1]

	g.Phase = PhaseBriefing
	g.Round = next
	g.Bids = make(map[string][]Bid)
	g.CountdownSec = rc.BidSeconds
	g.ActiveScenarios = append([]string(nil), rc.ScenarioIDs...)
	g.ActiveSurprises = nil
	g.DemandMultipliers = nil
	g.CapacityFactorMult = make(map[AssetType]float64)

	s.fleet.Rebuild(g, s.repo, rc)
	if err := s.scenarioFx.Apply(g, s.repo, rc.ScenarioIDs); err != nil {
		s.log.Warn("scenario apply incomplete", "game_id", g.ID, "round", next, "err", err)
	}
	s.refreshDemand(rc)

	s.log.Info("round started", "game_id", g.ID, "round", next, "season", rc.Season, "periods", rc.Periods)
	return rc, nil
}

func (s *Session) StartBidding() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Phase != PhaseBriefing {
		return ErrInvalidPhase
	}
	s.game.Phase = PhaseBidding
	return nil
}

// SubmitBids records a team's offer for the round. The last submission per
// team wins outright; resubmitting before the window closes replaces the
// earlier set.
func (s *Session) SubmitBids(teamID string, bids []Bid) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.game
	if g.Phase != PhaseBidding {
		return false, ErrInvalidPhase
	}
	team, ok := g.TeamByID(teamID)
	if !ok {
		return false, ErrTeamNotFound
	}
	rc, _ := g.CurrentRoundConfig()
	if err := validateBids(bids, rc); err != nil {
		return false, err
	}

	now := time.Now()
	stamped := make([]Bid, len(bids))
	for i, b := range bids {
		b.SubmittedAt = now
		stamped[i] = b
	}
	g.Bids[team.ID] = stamped
	return true, nil
}

// Tick decrements the bidding countdown by one second, clamped at zero. It
// never transitions phase; dispatch is always triggered externally.
func (s *Session) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Phase != PhaseBidding {
		return s.game.CountdownSec
	}
	if s.game.CountdownSec > 0 {
		s.game.CountdownSec--
	}
	return s.game.CountdownSec
}

// RunDispatch closes the bidding window, fills in deterministic default bids
// for silent teams, clears each period, settles the round, and updates the
// leaderboard.
func (s *Session) RunDispatch() (*RoundDispatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.game
	if g.Phase != PhaseBidding {
		return nil, ErrInvalidPhase
	}
	rc, ok := g.CurrentRoundConfig()
	if !ok {
		return nil, ErrInvalidPhase
	}
	g.Phase = PhaseDispatching

	now := time.Now()
	for _, team := range g.Teams {
		if _, submitted := g.Bids[team.ID]; !submitted {
			g.Bids[team.ID] = defaultBidsFor(team, s.repo, rc, now)
		}
	}

	periods := make([]DispatchResult, 0, rc.Periods)
	for p := 1; p <= rc.Periods; p++ {
		offers, charges := s.collectOffers(p, rc)
		demand := g.DemandMW[p]
		for _, cf := range charges {
			demand += cf.ChargeMW
		}

		res := ClearMarket(offers, demand, g.Config.PriceCap, g.Config.PriceFloor, s.rand)
		res.Period = p
		res.Charging = charges
		s.applyStorageFlows(res, rc.PeriodHours)
		periods = append(periods, res)
	}

	teamResults := SettleRound(g.Round, periods, rc.PeriodHours, s.repo)
	for _, team := range g.Teams {
		tr, ok := teamResults[team.ID]
		if !ok {
			tr = &TeamRoundResult{TeamID: team.ID, Round: g.Round}
			teamResults[team.ID] = tr
		}
		team.Results = append(team.Results, tr)
		team.CumulativeProfit += tr.Profit
	}
	s.rerank()

	result := &RoundDispatchResult{Round: g.Round, Periods: periods, Teams: teamResults}
	g.Results = append(g.Results, result)
	g.Phase = PhaseResults

	s.log.Info("round dispatched", "game_id", g.ID, "round", g.Round, "periods", len(periods))
	return result, nil
}

// collectOffers flattens every team's bands for one period. Bids referencing
// unknown asset ids are skipped silently (stale client data contributes
// nothing). Charging bids are pulled out as ChargeFlows, clamped to the
// charge rate and remaining storage headroom; the caller adds their MW to
// demand and settlement charges the energy at the clearing price.
func (s *Session) collectOffers(period int, rc RoundConfig) ([]BandOffer, []ChargeFlow) {
	g := s.game
	var offers []BandOffer
	chargeIdx := make(map[string]*ChargeFlow)

	for _, team := range g.Teams {
		for _, bid := range g.Bids[team.ID] {
			if bid.Period != period {
				continue
			}
			def, ok := s.repo.Get(bid.AssetID)
			if !ok {
				continue
			}
			if bid.Charging {
				mw := bid.TotalMW()
				if def.MaxChargeMW > 0 && mw > def.MaxChargeMW {
					mw = def.MaxChargeMW
				}
				if inst := team.Assets[bid.AssetID]; inst != nil && rc.PeriodHours > 0 {
					if headroom := (inst.MaxStorage - inst.StorageMWh) / rc.PeriodHours; mw > headroom {
						mw = headroom
					}
				}
				if mw <= 0 {
					continue
				}
				if cf := chargeIdx[bid.AssetID]; cf != nil {
					cf.ChargeMW += mw
				} else {
					chargeIdx[bid.AssetID] = &ChargeFlow{TeamID: team.ID, AssetID: bid.AssetID, ChargeMW: mw}
				}
				continue
			}
			for _, band := range bid.Bands {
				offers = append(offers, BandOffer{
					TeamID:     team.ID,
					AssetID:    bid.AssetID,
					Type:       def.Type,
					Price:      band.Price,
					QuantityMW: band.QuantityMW,
				})
			}
		}
	}

	ids := make([]string, 0, len(chargeIdx))
	for id := range chargeIdx {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	charges := make([]ChargeFlow, 0, len(ids))
	for _, id := range ids {
		charges = append(charges, *chargeIdx[id])
	}
	return offers, charges
}

// applyStorageFlows moves energy in and out of storage-capable instances
// after a period clears. Any storage-capable definition depletes on
// dispatch, not just batteries.
func (s *Session) applyStorageFlows(res DispatchResult, hours float64) {
	for _, band := range res.Dispatched {
		def, ok := s.repo.Get(band.AssetID)
		if !ok || !def.StorageCapable() {
			continue
		}
		if inst := s.instanceFor(band.TeamID, band.AssetID); inst != nil {
			inst.StorageMWh -= band.DispatchedMW * hours
			if inst.StorageMWh < 0 {
				inst.StorageMWh = 0
			}
		}
	}
	for _, cf := range res.Charging {
		if inst := s.instanceFor(cf.TeamID, cf.AssetID); inst != nil {
			inst.StorageMWh += cf.ChargeMW * hours
			if inst.StorageMWh > inst.MaxStorage {
				inst.StorageMWh = inst.MaxStorage
			}
		}
	}
}

func (s *Session) instanceFor(teamID, assetID string) *AssetInstance {
	team, ok := s.game.TeamByID(teamID)
	if !ok {
		return nil
	}
	return team.Assets[assetID]
}

// ApplyBalancing derates the runaway leader, if there is one: when the top
// team's cumulative profit exceeds the field average by the configured
// trigger, its largest non-renewable, not-already-outaged asset loses a
// random 30-60% of capacity and is flagged as an outage for this round.
// Valid during briefing, alongside surprises, so the derate bites the round
// about to be played.
func (s *Session) ApplyBalancing() (BalancingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.game
	if g.Phase != PhaseBriefing {
		return BalancingResult{}, ErrInvalidPhase
	}
	if g.Config.BalancingTrigger <= 0 || len(g.Teams) < 2 {
		return BalancingResult{}, nil
	}

	var leader *Team
	var total float64
	for _, team := range g.Teams {
		total += team.CumulativeProfit
		if leader == nil || team.CumulativeProfit > leader.CumulativeProfit {
			leader = team
		}
	}
	avg := total / float64(len(g.Teams))
	if leader.CumulativeProfit-avg <= g.Config.BalancingTrigger {
		return BalancingResult{}, nil
	}

	var victim *AssetInstance
	var victimID string
	ids := make([]string, 0, len(leader.Assets))
	for id := range leader.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		inst := leader.Assets[id]
		if inst.ForcedOutage {
			continue
		}
		def, ok := s.repo.Get(id)
		if !ok || renewableTypes[def.Type] {
			continue
		}
		if victim == nil || inst.AvailableMW > victim.AvailableMW {
			victim = inst
			victimID = id
		}
	}
	if victim == nil {
		return BalancingResult{}, nil
	}

	factor := 0.30 + s.rand.Float64()*0.30
	victim.AvailableMW *= 1 - factor
	victim.ForcedOutage = true
	s.refreshDemandCurrent()

	s.log.Info("balancing derate applied", "game_id", g.ID, "team_id", leader.ID,
		"asset_id", victimID, "derate_pct", factor*100)
	return BalancingResult{Applied: true, TeamID: leader.ID, AssetID: victimID, DeratePct: factor * 100}, nil
}

type BalancingResult struct {
	Applied   bool    `json:"applied"`
	TeamID    string  `json:"team_id,omitempty"`
	AssetID   string  `json:"asset_id,omitempty"`
	DeratePct float64 `json:"derate_pct,omitempty"`
}

// ApplySurprise applies an operator-triggered surprise during briefing only.
func (s *Session) ApplySurprise(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.game
	if g.Phase != PhaseBriefing {
		return ErrInvalidPhase
	}
	if err := s.surpriseFx.Apply(g, s.repo, []string{id}); err != nil {
		return err
	}
	g.ActiveSurprises = append(g.ActiveSurprises, id)
	s.refreshDemandCurrent()
	return nil
}

// AdvancePhase moves results to final once the last configured round has
// been played. Mid-game rounds advance via StartRound instead.
func (s *Session) AdvancePhase() (Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.game
	if g.Phase != PhaseResults || g.Round != len(g.Config.Rounds) {
		return g.Phase, ErrInvalidPhase
	}
	g.Phase = PhaseFinal
	s.log.Info("game finished", "game_id", g.ID, "rounds", g.Round)
	return g.Phase, nil
}

// Reset returns the game to the lobby. Team identities survive; profits,
// assets, results, and every accumulated definition mutation are discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.game
	g.Phase = PhaseLobby
	g.Round = 0
	g.Results = nil
	g.Bids = make(map[string][]Bid)
	g.CountdownSec = 0
	g.ActiveScenarios = nil
	g.ActiveSurprises = nil
	g.DemandMW = make(map[int]float64)
	g.DemandMultipliers = nil
	g.CapacityFactorMult = make(map[AssetType]float64)
	s.repo.Reset()
	for _, team := range g.Teams {
		team.Assets = make(map[string]*AssetInstance)
		team.CumulativeProfit = 0
		team.Results = nil
		team.Rank = 0
	}
	s.log.Info("game reset", "game_id", g.ID)
}

// rerank orders teams by cumulative profit, descending, ties broken by the
// stable sort (join order).
func (s *Session) rerank() {
	ordered := make([]*Team, len(s.game.Teams))
	copy(ordered, s.game.Teams)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CumulativeProfit > ordered[j].CumulativeProfit
	})
	for i, team := range ordered {
		team.Rank = i + 1
	}
}

func (s *Session) refreshDemandCurrent() {
	if rc, ok := s.game.CurrentRoundConfig(); ok {
		s.refreshDemand(rc)
	}
}

// refreshDemand recomputes per-period fleet capacity (weather-adjusted and
// scenario-scaled) and regenerates the round's demand from it.
func (s *Session) refreshDemand(rc RoundConfig) {
	g := s.game
	capacity := make(map[int]float64, rc.Periods)
	for p := 1; p <= rc.Periods; p++ {
		var mw float64
		for _, team := range g.Teams {
			for id, inst := range team.Assets {
				def, ok := s.repo.Get(id)
				if !ok {
					continue
				}
				factor := s.content.Assets.FactorFor(def.Type, rc.Season, p)
				if mult, ok := g.CapacityFactorMult[def.Type]; ok {
					factor *= mult
				}
				mw += inst.AvailableMW * factor
			}
		}
		capacity[p] = mw
	}
	g.DemandMW = s.content.Demand.DemandFor(rc.Season, rc.Periods, g.Config.Variability, g.DemandMultipliers, capacity, s.rand)
}
