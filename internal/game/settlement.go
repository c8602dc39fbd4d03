package game

import "sort"

// SettleRound turns a round's sequence of period dispatch results into
// per-team financial results. Startup costs hinge on dispatch continuity: an
// asset pays its startup cost in a period only when it is dispatched there
// and was idle in the immediately preceding period of the same round. The
// first period of a round never charges a startup cost. Charging flows buy
// their energy at the period's clearing price; a charging asset settles as
// its own cost-only entry and never counts as running.
func SettleRound(round int, periods []DispatchResult, periodHours float64, repo *DefinitionRepo) map[string]*TeamRoundResult {
	results := make(map[string]*TeamRoundResult)
	running := make(map[string]bool)

	for pi, period := range periods {
		dispatched := make(map[string]float64) // asset id -> MW this period
		owner := make(map[string]string)       // asset id -> team id
		for _, band := range period.Dispatched {
			dispatched[band.AssetID] += band.DispatchedMW
			owner[band.AssetID] = band.TeamID
		}

		assetIDs := make([]string, 0, len(dispatched))
		for id := range dispatched {
			assetIDs = append(assetIDs, id)
		}
		sort.Strings(assetIDs)

		nowRunning := make(map[string]bool, len(dispatched))
		for _, assetID := range assetIDs {
			mw := dispatched[assetID]
			if mw <= 0 {
				continue
			}
			nowRunning[assetID] = true

			def, ok := repo.Get(assetID)
			if !ok {
				continue
			}
			teamID := owner[assetID]
			tr, ok := results[teamID]
			if !ok {
				tr = &TeamRoundResult{TeamID: teamID, Round: round}
				results[teamID] = tr
			}

			energy := mw * periodHours
			revenue := energy * period.ClearingPrice
			variable := energy * def.SRMC
			var startup float64
			if pi > 0 && !running[assetID] {
				startup = def.StartupCost
			}

			ar := AssetPeriodResult{
				AssetID:       assetID,
				Period:        period.Period,
				DispatchedMW:  mw,
				EnergyMWh:     energy,
				ClearingPrice: period.ClearingPrice,
				Revenue:       revenue,
				VariableCost:  variable,
				StartupCost:   startup,
				Profit:        revenue - variable - startup,
			}
			tr.Assets = append(tr.Assets, ar)
			tr.Revenue += revenue
			tr.VariableCost += variable
			tr.StartupCost += startup
			tr.Profit += ar.Profit
			tr.EnergyMWh += energy
		}

		for _, cf := range period.Charging {
			if cf.ChargeMW <= 0 {
				continue
			}
			tr, ok := results[cf.TeamID]
			if !ok {
				tr = &TeamRoundResult{TeamID: cf.TeamID, Round: round}
				results[cf.TeamID] = tr
			}
			cost := cf.ChargeMW * periodHours * period.ClearingPrice
			tr.Assets = append(tr.Assets, AssetPeriodResult{
				AssetID:       cf.AssetID,
				Period:        period.Period,
				ClearingPrice: period.ClearingPrice,
				ChargeMW:      cf.ChargeMW,
				ChargeCost:    cost,
				Profit:        -cost,
			})
			tr.ChargeCost += cost
			tr.Profit -= cost
		}
		running = nowRunning
	}

	for _, tr := range results {
		if tr.EnergyMWh > 0 {
			tr.AvgPriceMWh = tr.Revenue / tr.EnergyMWh
		}
	}
	return results
}
