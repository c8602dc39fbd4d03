package game

import "sort"

// TeamView is the public projection of one team.
type TeamView struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Color            string  `json:"color"`
	Connected        bool    `json:"connected"`
	Rank             int     `json:"rank"`
	CumulativeProfit float64 `json:"cumulative_profit"`
	AssetCount       int     `json:"asset_count"`
}

type LeaderboardRow struct {
	Rank             int     `json:"rank"`
	TeamID           string  `json:"team_id"`
	Name             string  `json:"name"`
	CumulativeProfit float64 `json:"cumulative_profit"`
}

// Snapshot is a read-only projection of game state. Building one never
// mutates the game, so two snapshots with no operation between them are
// identical.
type Snapshot struct {
	GameID          string               `json:"game_id"`
	Mode            string               `json:"mode"`
	Phase           Phase                `json:"phase"`
	Round           int                  `json:"round"`
	TotalRounds     int                  `json:"total_rounds"`
	CountdownSec    int                  `json:"countdown_sec"`
	Teams           []TeamView           `json:"teams"`
	BidStatus       map[string]bool      `json:"bid_status"`
	AllSubmitted    bool                 `json:"all_submitted"`
	Leaderboard     []LeaderboardRow     `json:"leaderboard"`
	DemandMW        map[int]float64      `json:"demand_mw,omitempty"`
	ActiveScenarios []string             `json:"active_scenarios,omitempty"`
	ActiveSurprises []string             `json:"active_surprises,omitempty"`
	LastResult      *RoundDispatchResult `json:"last_result,omitempty"`
}

// Snapshot builds the projection. A non-empty teamID marks the caller as a
// team rather than the host, and host-only fields (which surprise effects
// are live) are redacted.
func (s *Session) Snapshot(teamID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.game
	snap := Snapshot{
		GameID:          g.ID,
		Mode:            g.Config.Mode,
		Phase:           g.Phase,
		Round:           g.Round,
		TotalRounds:     len(g.Config.Rounds),
		CountdownSec:    g.CountdownSec,
		BidStatus:       make(map[string]bool, len(g.Teams)),
		ActiveScenarios: append([]string(nil), g.ActiveScenarios...),
	}

	allSubmitted := len(g.Teams) > 0
	for _, team := range g.Teams {
		snap.Teams = append(snap.Teams, teamView(team))
		_, submitted := g.Bids[team.ID]
		snap.BidStatus[team.ID] = submitted
		if !submitted {
			allSubmitted = false
		}
	}
	snap.AllSubmitted = allSubmitted && g.Phase == PhaseBidding

	if teamID == "" {
		snap.ActiveSurprises = append([]string(nil), g.ActiveSurprises...)
	}

	if len(g.DemandMW) > 0 {
		snap.DemandMW = make(map[int]float64, len(g.DemandMW))
		for p, mw := range g.DemandMW {
			snap.DemandMW[p] = mw
		}
	}

	ordered := make([]*Team, len(g.Teams))
	copy(ordered, g.Teams)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CumulativeProfit > ordered[j].CumulativeProfit
	})
	for i, team := range ordered {
		rank := team.Rank
		if rank == 0 {
			rank = i + 1
		}
		snap.Leaderboard = append(snap.Leaderboard, LeaderboardRow{
			Rank:             rank,
			TeamID:           team.ID,
			Name:             team.Name,
			CumulativeProfit: team.CumulativeProfit,
		})
	}

	if n := len(g.Results); n > 0 {
		snap.LastResult = g.Results[n-1]
	}
	return snap
}

// AssetViews lists a team's live instances with their definitions, for the
// bidding screen.
type AssetView struct {
	Definition AssetDefinition `json:"definition"`
	Instance   AssetInstance   `json:"instance"`
}

func (s *Session) AssetViews(teamID string) ([]AssetView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, ok := s.game.TeamByID(teamID)
	if !ok {
		return nil, ErrTeamNotFound
	}
	ids := make([]string, 0, len(team.Assets))
	for id := range team.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]AssetView, 0, len(ids))
	for _, id := range ids {
		def, ok := s.repo.Get(id)
		if !ok {
			continue
		}
		out = append(out, AssetView{Definition: *def, Instance: *team.Assets[id]})
	}
	return out, nil
}

func teamView(t *Team) TeamView {
	return TeamView{
		ID:               t.ID,
		Name:             t.Name,
		Color:            t.Color,
		Connected:        t.Connected,
		Rank:             t.Rank,
		CumulativeProfit: t.CumulativeProfit,
		AssetCount:       len(t.Assets),
	}
}
