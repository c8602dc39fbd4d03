package game

import (
	"math/rand"
	"sort"
)

const quantityEpsilon = 1e-6

// ClearMarket runs one period's multi-unit uniform-price auction. It stacks
// every offered band into a merit order and walks it against demandMW. Pure
// with respect to game state; rng only breaks residual ties in the sort, so a
// seeded rng makes the outcome reproducible.
//
// Ties at the same clamped price are broken by the fixed per-type dispatch
// rank, then by larger quantity. There is no pro-rata split of a tied
// marginal band: dispatch proceeds in tie-break order, which can fully serve
// one bidder and skip another at an identical price. That asymmetry is part
// of the game's observed behavior and is kept as-is.
func ClearMarket(offers []BandOffer, demandMW, priceCap, priceFloor float64, rng *rand.Rand) DispatchResult {
	type candidate struct {
		BandOffer
		jitter float64
	}

	candidates := make([]candidate, 0, len(offers))
	for _, offer := range offers {
		if offer.Charging {
			// Charging offers consume energy; they were already folded into
			// demand and never enter the supply stack.
			continue
		}
		if offer.QuantityMW <= 0 {
			continue
		}
		c := candidate{BandOffer: offer, jitter: rng.Float64()}
		if c.Price > priceCap {
			c.Price = priceCap
		}
		if c.Price < priceFloor {
			c.Price = priceFloor
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if dispatchRank[a.Type] != dispatchRank[b.Type] {
			return dispatchRank[a.Type] < dispatchRank[b.Type]
		}
		if a.QuantityMW != b.QuantityMW {
			return a.QuantityMW > b.QuantityMW
		}
		return a.jitter < b.jitter
	})

	res := DispatchResult{DemandMW: demandMW}
	remaining := demandMW
	for _, c := range candidates {
		res.TotalOfferedMW += c.QuantityMW
		switch {
		case remaining <= quantityEpsilon:
			res.Undispatched = append(res.Undispatched, c.BandOffer)
		case c.QuantityMW <= remaining+quantityEpsilon:
			res.Dispatched = append(res.Dispatched, DispatchedBand{
				BandOffer:    c.BandOffer,
				DispatchedMW: c.QuantityMW,
			})
			res.ClearingPrice = c.Price
			res.TotalDispatchedMW += c.QuantityMW
			remaining -= c.QuantityMW
		default:
			// First band that exceeds what is left sets the price and is
			// only partially dispatched.
			res.Dispatched = append(res.Dispatched, DispatchedBand{
				BandOffer:    c.BandOffer,
				DispatchedMW: remaining,
				Marginal:     true,
			})
			res.ClearingPrice = c.Price
			res.TotalDispatchedMW += remaining
			remaining = 0
		}
	}

	if remaining > quantityEpsilon && demandMW > 0 {
		// Scarcity: every offered megawatt runs and price pins to the cap.
		res.Scarcity = true
		res.ClearingPrice = priceCap
	}

	marked := false
	for i := range res.Dispatched {
		if res.Dispatched[i].Marginal {
			marked = true
			break
		}
	}
	if !marked && len(res.Dispatched) > 0 {
		res.Dispatched[len(res.Dispatched)-1].Marginal = true
	}

	res.ExcessMW = res.TotalOfferedMW - demandMW
	if res.ExcessMW < 0 {
		res.ExcessMW = 0
	}
	if demandMW > 0 {
		res.ReserveMarginPct = res.ExcessMW / demandMW * 100
	}
	return res
}
