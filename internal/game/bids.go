package game

import (
	"fmt"
	"sort"
	"time"
)

// BidStrategy is the closed set of default-bid behaviors used for teams that
// never submit. Strategies are plain tags dispatched through defaultBandsFor;
// there is no registry of strategy functions.
type BidStrategy int

const (
	// StrategySRMC offers all available MW in one band priced at SRMC.
	StrategySRMC BidStrategy = iota
	// StrategyZeroPrice offers all available MW at $0 (zero-marginal types).
	StrategyZeroPrice
	// StrategyStorageDischarge offers what the stored energy can sustain for
	// the period, priced at SRMC.
	StrategyStorageDischarge
)

func strategyForType(t AssetType) BidStrategy {
	switch t {
	case AssetWind, AssetSolar, AssetHydro:
		return StrategyZeroPrice
	case AssetBattery:
		return StrategyStorageDischarge
	default:
		return StrategySRMC
	}
}

// defaultBandsFor produces the deterministic fallback offer for one asset in
// one period.
func defaultBandsFor(strategy BidStrategy, def *AssetDefinition, inst *AssetInstance, periodHours float64) []Band {
	switch strategy {
	case StrategyZeroPrice:
		return []Band{{Price: 0, QuantityMW: inst.AvailableMW}}
	case StrategyStorageDischarge:
		mw := inst.AvailableMW
		if periodHours > 0 {
			if sustainable := inst.StorageMWh / periodHours; sustainable < mw {
				mw = sustainable
			}
		}
		if mw <= 0 {
			return nil
		}
		return []Band{{Price: def.SRMC, QuantityMW: mw}}
	default:
		return []Band{{Price: def.SRMC, QuantityMW: inst.AvailableMW}}
	}
}

// defaultBidsFor builds one bid per asset per period for a silent team.
func defaultBidsFor(team *Team, repo *DefinitionRepo, rc RoundConfig, now time.Time) []Bid {
	ids := make([]string, 0, len(team.Assets))
	for id := range team.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var bids []Bid
	for period := 1; period <= rc.Periods; period++ {
		for _, id := range ids {
			inst := team.Assets[id]
			def, ok := repo.Get(id)
			if !ok || inst.AvailableMW <= 0 {
				continue
			}
			bands := defaultBandsFor(strategyForType(def.Type), def, inst, rc.PeriodHours)
			if len(bands) == 0 {
				continue
			}
			bids = append(bids, Bid{
				AssetID:     id,
				Period:      period,
				Bands:       bands,
				SubmittedAt: now,
			})
		}
	}
	return bids
}

// validateBids enforces the round's band limits. Quantities must be
// non-negative and each bid may carry at most the configured band count.
// Asset ids are not checked here: a stale id is skipped at clearing time.
func validateBids(bids []Bid, rc RoundConfig) error {
	for _, bid := range bids {
		if bid.Period < 1 || bid.Period > rc.Periods {
			return fmt.Errorf("%w: period %d out of range", ErrBadBid, bid.Period)
		}
		if rc.MaxBands > 0 && len(bid.Bands) > rc.MaxBands {
			return fmt.Errorf("%w: %d bands exceeds limit of %d", ErrBadBid, len(bid.Bands), rc.MaxBands)
		}
		for _, band := range bid.Bands {
			if band.QuantityMW < 0 {
				return fmt.Errorf("%w: negative quantity", ErrBadBid)
			}
		}
	}
	return nil
}
