package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stubCatalog struct{}

func (stubCatalog) ArchetypesForTeam(teamIndex, teamCount int, overrides map[AssetType]float64, variation bool, rng *rand.Rand) []AssetDefinition {
	return []AssetDefinition{
		{ID: fmt.Sprintf("t%d-coal", teamIndex), Type: AssetCoal, Name: "Coal", NameplateMW: 300, SRMC: 30, StartupCost: 1000, UnlockRound: 1},
		{ID: fmt.Sprintf("t%d-wind", teamIndex), Type: AssetWind, Name: "Wind", NameplateMW: 100, SRMC: 0, UnlockRound: 1},
		{ID: fmt.Sprintf("t%d-battery", teamIndex), Type: AssetBattery, Name: "Battery", NameplateMW: 50, SRMC: 8, MaxStorage: 100, MaxChargeMW: 40, UnlockRound: 2},
	}
}

func (stubCatalog) AvailableArchetypes(all []AssetDefinition, rc RoundConfig, mode string) []AssetDefinition {
	var out []AssetDefinition
	for _, d := range all {
		if d.UnlockRound <= rc.Round {
			out = append(out, d)
		}
	}
	return out
}

func (stubCatalog) FactorFor(t AssetType, season string, period int) float64 { return 1 }

// stubPumpedCatalog hands out a single storage-capable non-battery asset.
type stubPumpedCatalog struct{ stubCatalog }

func (stubPumpedCatalog) ArchetypesForTeam(teamIndex, teamCount int, overrides map[AssetType]float64, variation bool, rng *rand.Rand) []AssetDefinition {
	return []AssetDefinition{
		{ID: fmt.Sprintf("t%d-hydro", teamIndex), Type: AssetHydro, Name: "Pumped Hydro", NameplateMW: 100, SRMC: 4, MaxStorage: 400, MaxChargeMW: 60, UnlockRound: 1},
	}
}

// stubDemand asks for half the fleet each period, scaled by multipliers.
type stubDemand struct{}

func (stubDemand) DemandFor(season string, periods int, variability float64, multipliers []float64, fleetCapacity map[int]float64, rng *rand.Rand) map[int]float64 {
	out := make(map[int]float64, periods)
	for p := 1; p <= periods; p++ {
		d := fleetCapacity[p] * 0.5
		for _, m := range multipliers {
			d *= m
		}
		out[p] = d
	}
	return out
}

type stubEffects map[string][]Effect

func (s stubEffects) EffectsFor(id string) ([]Effect, bool) {
	e, ok := s[id]
	return e, ok
}

type stubCurriculum map[string][]RoundConfig

func (s stubCurriculum) RoundsFor(mode string) ([]RoundConfig, bool) {
	r, ok := s[mode]
	return r, ok
}

func testRounds(n int) []RoundConfig {
	out := make([]RoundConfig, n)
	for i := range out {
		out[i] = RoundConfig{Round: i + 1, Season: "summer", Periods: 2, PeriodHours: 8, MaxBands: 3, BidSeconds: 60}
	}
	return out
}

func testContent(scenarios, surprises stubEffects) Content {
	return Content{
		Assets:     stubCatalog{},
		Scenarios:  scenarios,
		Surprises:  surprises,
		Curriculum: stubCurriculum{"test": testRounds(3)},
		Demand:     stubDemand{},
	}
}

func testSession(t *testing.T, teams int) *Session {
	t.Helper()
	cfg := GameConfig{
		Mode:     "test",
		MaxTeams: teams,
		PriceCap: 300, PriceFloor: -50,
		Rounds: testRounds(3),
	}
	sess := NewSessionWithSeed(testContent(stubEffects{}, stubEffects{}), cfg, nil, 7)
	for i := 0; i < teams; i++ {
		if _, err := sess.AddTeam(fmt.Sprintf("Team %d", i+1)); err != nil {
			t.Fatalf("add team: %v", err)
		}
	}
	return sess
}

func TestAddTeamValidation(t *testing.T) {
	sess := testSession(t, 2)
	if _, err := sess.AddTeam("TEAM 1"); !errors.Is(err, ErrDuplicateTeamName) {
		t.Fatalf("case-insensitive duplicate accepted: %v", err)
	}
	if _, err := sess.AddTeam("Third"); !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("expected full lobby, got %v", err)
	}
	if _, err := sess.AddTeam("  "); !errors.Is(err, ErrBadTeamName) {
		t.Fatalf("expected bad name, got %v", err)
	}
}

func TestPhaseMachine(t *testing.T) {
	sess := testSession(t, 2)

	if err := sess.StartBidding(); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("bidding from lobby should fail, got %v", err)
	}
	if _, err := sess.RunDispatch(); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("dispatch from lobby should fail, got %v", err)
	}

	if _, err := sess.StartRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if snap := sess.Snapshot(""); snap.Phase != PhaseBriefing || snap.Round != 1 {
		t.Fatalf("phase=%s round=%d after start", snap.Phase, snap.Round)
	}
	if _, err := sess.StartRound(); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("start round from briefing should fail, got %v", err)
	}

	if err := sess.StartBidding(); err != nil {
		t.Fatalf("start bidding: %v", err)
	}
	if _, err := sess.RunDispatch(); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if snap := sess.Snapshot(""); snap.Phase != PhaseResults {
		t.Fatalf("phase=%s after dispatch", snap.Phase)
	}

	// Not the last round yet.
	if _, err := sess.AdvancePhase(); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("advance to final mid-game should fail, got %v", err)
	}

	for round := 2; round <= 3; round++ {
		if _, err := sess.StartRound(); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if err := sess.StartBidding(); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if _, err := sess.RunDispatch(); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
	if _, err := sess.StartRound(); !errors.Is(err, ErrRoundsExhausted) {
		t.Fatalf("expected rounds exhausted, got %v", err)
	}
	phase, err := sess.AdvancePhase()
	if err != nil || phase != PhaseFinal {
		t.Fatalf("advance to final: phase=%s err=%v", phase, err)
	}
}

func TestTickClampsAtZero(t *testing.T) {
	sess := testSession(t, 1)
	if got := sess.Tick(); got != 0 {
		t.Fatalf("tick outside bidding = %d, want 0", got)
	}
	mustStartBidding(t, sess)
	for i := 0; i < 100; i++ {
		sess.Tick()
	}
	if got := sess.Tick(); got != 0 {
		t.Fatalf("countdown = %d, want clamped 0", got)
	}
	if snap := sess.Snapshot(""); snap.Phase != PhaseBidding {
		t.Fatalf("tick must not transition phase, got %s", snap.Phase)
	}
}

func TestSubmitBidsLastWins(t *testing.T) {
	sess := testSession(t, 2)
	mustStartBidding(t, sess)
	teamID := sess.Snapshot("").Teams[0].ID
	assetID := "t0-coal"

	first := []Bid{{AssetID: assetID, Period: 1, Bands: []Band{{Price: 10, QuantityMW: 300}}}}
	second := []Bid{{AssetID: assetID, Period: 1, Bands: []Band{{Price: 99, QuantityMW: 50}}}}
	if ok, err := sess.SubmitBids(teamID, first); !ok || err != nil {
		t.Fatalf("first submit: ok=%v err=%v", ok, err)
	}
	if ok, err := sess.SubmitBids(teamID, second); !ok || err != nil {
		t.Fatalf("resubmit: ok=%v err=%v", ok, err)
	}
	if got := sess.game.Bids[teamID]; len(got) != 1 || got[0].Bands[0].Price != 99 {
		t.Fatalf("last submission should win outright: %+v", got)
	}

	bad := []Bid{{AssetID: assetID, Period: 1, Bands: []Band{{Price: 1, QuantityMW: 1}, {Price: 2, QuantityMW: 1}, {Price: 3, QuantityMW: 1}, {Price: 4, QuantityMW: 1}}}}
	if _, err := sess.SubmitBids(teamID, bad); !errors.Is(err, ErrBadBid) {
		t.Fatalf("band limit not enforced: %v", err)
	}
	neg := []Bid{{AssetID: assetID, Period: 1, Bands: []Band{{Price: 1, QuantityMW: -5}}}}
	if _, err := sess.SubmitBids(teamID, neg); !errors.Is(err, ErrBadBid) {
		t.Fatalf("negative quantity not rejected: %v", err)
	}
}

func TestRunDispatchDefaultsAndStandings(t *testing.T) {
	sess := testSession(t, 2)
	mustStartBidding(t, sess)

	// Nobody submits: both teams fall back to SRMC/zero-price defaults.
	result, err := sess.RunDispatch()
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(result.Periods) != 2 {
		t.Fatalf("periods = %d, want 2", len(result.Periods))
	}
	// Fleet is 2 x (300 coal + 100 wind) = 800 MW; stub demand is half.
	for _, p := range result.Periods {
		if math.Abs(p.DemandMW-400) > 1e-9 {
			t.Fatalf("period %d demand = %v, want 400", p.Period, p.DemandMW)
		}
		if math.Abs(p.TotalDispatchedMW-400) > 1e-9 {
			t.Fatalf("period %d dispatched = %v, want 400", p.Period, p.TotalDispatchedMW)
		}
		if p.ClearingPrice != 30 {
			t.Fatalf("period %d price = %v, want coal SRMC 30", p.Period, p.ClearingPrice)
		}
	}
	if len(result.Teams) != 2 {
		t.Fatalf("team results = %d, want 2", len(result.Teams))
	}

	snap := sess.Snapshot("")
	var total float64
	for _, tr := range result.Teams {
		total += tr.Profit
	}
	var cumulative float64
	for _, row := range snap.Leaderboard {
		cumulative += row.CumulativeProfit
	}
	if math.Abs(total-cumulative) > 1e-6 {
		t.Fatalf("cumulative %v != round total %v", cumulative, total)
	}
	if snap.Leaderboard[0].Rank != 1 {
		t.Fatalf("leaderboard not ranked: %+v", snap.Leaderboard)
	}
}

func TestSnapshotIdempotentAndRedacted(t *testing.T) {
	sess := testSession(t, 2)
	sess.game.ActiveSurprises = []string{"secret"}

	a := sess.Snapshot("")
	b := sess.Snapshot("")
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("snapshot not idempotent (-first +second):\n%s", diff)
	}
	if len(a.ActiveSurprises) != 1 {
		t.Fatalf("host snapshot should list surprises: %+v", a.ActiveSurprises)
	}
	teamSnap := sess.Snapshot(a.Teams[0].ID)
	if len(teamSnap.ActiveSurprises) != 0 {
		t.Fatalf("team snapshot should redact surprises: %+v", teamSnap.ActiveSurprises)
	}
}

func TestResetKeepsIdentities(t *testing.T) {
	sess := testSession(t, 2)
	mustStartBidding(t, sess)
	if _, err := sess.RunDispatch(); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	before := sess.Snapshot("")
	sess.Reset()
	after := sess.Snapshot("")

	if after.Phase != PhaseLobby || after.Round != 0 || after.LastResult != nil {
		t.Fatalf("reset left state behind: %+v", after)
	}
	if len(after.Teams) != len(before.Teams) {
		t.Fatalf("reset dropped teams")
	}
	for i, team := range after.Teams {
		if team.ID != before.Teams[i].ID || team.Name != before.Teams[i].Name {
			t.Fatalf("team identity changed: %+v vs %+v", team, before.Teams[i])
		}
		if team.CumulativeProfit != 0 || team.AssetCount != 0 {
			t.Fatalf("team state not zeroed: %+v", team)
		}
	}
}

func TestBalancingDeratesRunawayLeader(t *testing.T) {
	cfg := GameConfig{
		Mode:     "test",
		MaxTeams: 2,
		PriceCap: 300, PriceFloor: -50,
		Rounds:           testRounds(3),
		BalancingTrigger: 1000,
	}
	sess := NewSessionWithSeed(testContent(stubEffects{}, stubEffects{}), cfg, nil, 7)
	leaderView, _ := sess.AddTeam("Leader")
	if _, err := sess.AddTeam("Trailer"); err != nil {
		t.Fatalf("add team: %v", err)
	}

	if _, err := sess.StartRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}
	leader, _ := sess.game.TeamByID(leaderView.ID)
	leader.CumulativeProfit = 50_000

	res, err := sess.ApplyBalancing()
	if err != nil {
		t.Fatalf("balancing: %v", err)
	}
	if !res.Applied || res.TeamID != leader.ID {
		t.Fatalf("expected leader derated: %+v", res)
	}
	inst := leader.Assets[res.AssetID]
	if inst == nil || !inst.ForcedOutage {
		t.Fatalf("derated asset not flagged: %+v", inst)
	}
	// 30-60% off the 300 MW coal unit.
	if inst.AvailableMW < 300*0.40-1e-9 || inst.AvailableMW > 300*0.70+1e-9 {
		t.Fatalf("derate out of range: %v MW", inst.AvailableMW)
	}
	def, _ := sess.repo.Get(res.AssetID)
	if renewableTypes[def.Type] {
		t.Fatalf("balancing hit a renewable: %s", def.Type)
	}

	// No runaway leader, no derate.
	leader.CumulativeProfit = 0
	res2, err := sess.ApplyBalancing()
	if err != nil || res2.Applied {
		t.Fatalf("balancing should be a no-op: %+v err=%v", res2, err)
	}
}

func TestSurpriseBriefingOnly(t *testing.T) {
	content := testContent(stubEffects{}, stubEffects{
		"cold_snap": {{Kind: EffectDemand, Multiplier: 2}},
	})
	cfg := GameConfig{Mode: "test", MaxTeams: 1, PriceCap: 300, PriceFloor: -50, Rounds: testRounds(3)}
	sess := NewSessionWithSeed(content, cfg, nil, 7)
	if _, err := sess.AddTeam("Solo"); err != nil {
		t.Fatalf("add team: %v", err)
	}

	if err := sess.ApplySurprise("cold_snap"); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("surprise outside briefing accepted: %v", err)
	}
	if _, err := sess.StartRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}
	baseline := sess.Snapshot("").DemandMW[1]
	if err := sess.ApplySurprise("cold_snap"); err != nil {
		t.Fatalf("surprise: %v", err)
	}
	doubled := sess.Snapshot("").DemandMW[1]
	if math.Abs(doubled-2*baseline) > 1e-6 {
		t.Fatalf("demand multiplier not applied: %v -> %v", baseline, doubled)
	}
	if err := sess.ApplySurprise("nope"); !errors.Is(err, ErrUnknownScenario) {
		t.Fatalf("unknown surprise accepted: %v", err)
	}
}

func TestChargingBidBuysEnergyAtClearingPrice(t *testing.T) {
	sess := testSession(t, 2)
	mustStartBidding(t, sess)
	if _, err := sess.RunDispatch(); err != nil {
		t.Fatalf("round 1 dispatch: %v", err)
	}
	// Battery unlocks in round 2.
	if _, err := sess.StartRound(); err != nil {
		t.Fatalf("round 2: %v", err)
	}
	if err := sess.StartBidding(); err != nil {
		t.Fatalf("round 2 bidding: %v", err)
	}

	teamID := sess.Snapshot("").Teams[0].ID
	charge := []Bid{{AssetID: "t0-battery", Period: 1, Charging: true, Bands: []Band{{QuantityMW: 40}}}}
	if ok, err := sess.SubmitBids(teamID, charge); !ok || err != nil {
		t.Fatalf("charge bid: ok=%v err=%v", ok, err)
	}

	result, err := sess.RunDispatch()
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// Storage starts at 50 of 100 MWh, so over 8h the draw is headroom-limited
	// to 6.25 MW regardless of the 40 MW asked for.
	p1 := result.Periods[0]
	if len(p1.Charging) != 1 || math.Abs(p1.Charging[0].ChargeMW-6.25) > 1e-9 {
		t.Fatalf("charge flow wrong: %+v", p1.Charging)
	}
	// Charging adds to demand. Fleet is 2 x 450 MW, stub demand is half.
	if math.Abs(p1.DemandMW-(450+6.25)) > 1e-9 {
		t.Fatalf("period 1 demand = %v, want 456.25", p1.DemandMW)
	}
	// The charging team withheld its generators, so the period is short and
	// clears at the cap; the charge is bought at that price, not for free.
	if !p1.Scarcity || p1.ClearingPrice != 300 {
		t.Fatalf("expected scarcity at the cap, got %+v", p1)
	}
	tr := result.Teams[teamID]
	wantCost := 6.25 * 8 * 300.0
	if math.Abs(tr.ChargeCost-wantCost) > 1e-9 {
		t.Fatalf("charge cost = %v, want %v", tr.ChargeCost, wantCost)
	}
	if math.Abs(tr.Profit-(-wantCost)) > 1e-9 {
		t.Fatalf("profit = %v, want %v", tr.Profit, -wantCost)
	}

	inst := sess.game.Teams[0].Assets["t0-battery"]
	if inst.StorageMWh != inst.MaxStorage {
		t.Fatalf("storage = %v, want clamped at max %v", inst.StorageMWh, inst.MaxStorage)
	}
}

func TestDispatchDepletesDischargedStorage(t *testing.T) {
	sess := testSession(t, 1)
	mustStartBidding(t, sess)
	if _, err := sess.RunDispatch(); err != nil {
		t.Fatalf("round 1 dispatch: %v", err)
	}
	if _, err := sess.StartRound(); err != nil {
		t.Fatalf("round 2: %v", err)
	}
	if err := sess.StartBidding(); err != nil {
		t.Fatalf("round 2 bidding: %v", err)
	}

	// Default bids discharge the battery; 6.25 MW over 8h drains all 50 MWh.
	if _, err := sess.RunDispatch(); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	inst := sess.game.Teams[0].Assets["t0-battery"]
	if inst.StorageMWh != 0 {
		t.Fatalf("storage = %v, want fully depleted", inst.StorageMWh)
	}
}

func TestStorageCapableNonBatteryDepletes(t *testing.T) {
	content := Content{
		Assets:     stubPumpedCatalog{},
		Scenarios:  stubEffects{},
		Surprises:  stubEffects{},
		Curriculum: stubCurriculum{"test": testRounds(3)},
		Demand:     stubDemand{},
	}
	cfg := GameConfig{Mode: "test", MaxTeams: 1, PriceCap: 300, PriceFloor: -50, Rounds: testRounds(3)}
	sess := NewSessionWithSeed(content, cfg, nil, 7)
	if _, err := sess.AddTeam("Solo"); err != nil {
		t.Fatalf("add team: %v", err)
	}
	mustStartBidding(t, sess)
	if _, err := sess.RunDispatch(); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// 100 MW fleet, demand is half: 50 MW x 8h x 2 periods against 200 MWh
	// stored. Depletion clamps at zero instead of going negative.
	inst := sess.game.Teams[0].Assets["t0-hydro"]
	if inst.StorageMWh != 0 {
		t.Fatalf("storage = %v, want 0 after discharge", inst.StorageMWh)
	}
}

func mustStartBidding(t *testing.T, sess *Session) {
	t.Helper()
	if _, err := sess.StartRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if err := sess.StartBidding(); err != nil {
		t.Fatalf("start bidding: %v", err)
	}
}
