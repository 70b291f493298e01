// Package book maintains the reconstructed limit order book for one
// trading pair and reconciles individual trades against the best-level
// volume deltas it observes.
package book

import (
	"log/slog"
	"time"

	"depthrecon/internal/model"
)

// defaultSkewTolerance bounds how far a level delta's event time may lead a
// trade's event time before that trade is declared unmatchable. Exposed as
// a configurable field on OrderBook rather than a fixed constant.
const defaultSkewTolerance = 100 * time.Millisecond

// MatchOutcome is the tagged result of MatchAndProcessTrade: exactly one of
// Retry, Stale, or Matched.
type MatchOutcome interface {
	isMatchOutcome()
}

// Retry means no level delta matched this trade yet; the caller should
// leave the trade queued and try again after the next diff apply.
type Retry struct{}

// Stale means a level delta arrived too far ahead of the trade's event time
// (beyond SkewTolerance) for it to ever match; the caller should drop the
// trade.
type Stale struct{}

// Matched means the trade was consumed by the level delta recorded at
// EventTime.
type Matched struct {
	EventTime uint64
}

func (Retry) isMatchOutcome()   {}
func (Stale) isMatchOutcome()   {}
func (Matched) isMatchOutcome() {}

// OrderBook holds the reconstructed bid/ask ladders plus the most recent
// best-level deltas produced by the last diff application.
type OrderBook struct {
	SkewTolerance time.Duration

	logger *slog.Logger

	lastUpdateID         uint64
	firstUpdateIDInEvent uint64
	finalUpdateIDInEvent uint64

	bids *ladder
	asks *ladder

	bestBidUpdated bool
	bestAskUpdated bool

	bestBidDeltas []model.LevelDelta
	bestAskDeltas []model.LevelDelta
}

// New builds an empty OrderBook. It will not apply diffs until a snapshot
// has been loaded via ApplySnapshot.
func New(logger *slog.Logger) *OrderBook {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderBook{
		SkewTolerance: defaultSkewTolerance,
		logger:        logger,
		bids:          newLadder(),
		asks:          newLadder(),
	}
}

// IsBestBidUpdated reports whether the last ApplyDiff touched the best bid.
func (ob *OrderBook) IsBestBidUpdated() bool { return ob.bestBidUpdated }

// IsBestAskUpdated reports whether the last ApplyDiff touched the best ask.
func (ob *OrderBook) IsBestAskUpdated() bool { return ob.bestAskUpdated }

// ApplySnapshot replaces the book wholesale with a full-depth snapshot.
func (ob *OrderBook) ApplySnapshot(snap model.SnapshotUpdate) {
	ob.logger.Debug("applying snapshot", "last_update_id", snap.LastUpdateID)
	ob.lastUpdateID = snap.LastUpdateID
	ob.bids.clear()
	ob.asks.clear()
	for _, pq := range snap.Bids {
		ob.bids.set(pq.Price, pq.Qty)
	}
	for _, pq := range snap.Asks {
		ob.asks.set(pq.Price, pq.Qty)
	}
}

// ApplyDiff applies one depth-diff frame, recomputing best-level deltas for
// whichever side(s) it touched. Diffs are ignored until a snapshot has been
// loaded, and stale/duplicate diffs (final_update_id <= last_update_id) are
// dropped.
func (ob *OrderBook) ApplyDiff(diff model.DepthUpdate) {
	if ob.lastUpdateID == 0 {
		ob.logger.Debug("dropping diff, no snapshot loaded yet")
		return
	}
	if diff.FinalUpdateID <= ob.lastUpdateID {
		ob.logger.Debug("dropping stale diff", "final_update_id", diff.FinalUpdateID, "last_update_id", ob.lastUpdateID)
		return
	}
	if ob.firstUpdateIDInEvent == 0 && diff.FirstUpdateID > ob.lastUpdateID+1 {
		ob.logger.Warn("snapshot is a little too old", "first_update_id", diff.FirstUpdateID, "last_update_id", ob.lastUpdateID)
	}
	if ob.firstUpdateIDInEvent != 0 && diff.FirstUpdateID != ob.finalUpdateIDInEvent+1 {
		ob.logger.Warn("update sequence gap", "first_update_id", diff.FirstUpdateID, "expected", ob.finalUpdateIDInEvent+1)
	}
	ob.firstUpdateIDInEvent = diff.FirstUpdateID
	ob.finalUpdateIDInEvent = diff.FinalUpdateID

	currentBestBid, hasBestBid := ob.bids.best(true)
	currentBestAsk, hasBestAsk := ob.asks.best(false)

	ob.bestBidUpdated = false
	ob.bestAskUpdated = false
	ob.bestBidDeltas = ob.bestBidDeltas[:0]
	ob.bestAskDeltas = ob.bestAskDeltas[:0]

	addNextBid := false
	for _, pq := range diff.Bids {
		touch := addNextBid || (hasBestBid && pq.Price.Equal(currentBestBid))
		if touch {
			if currentVolume, ok := ob.bids.get(pq.Price); ok {
				// Set on presence at a touched level, not on actual change.
				ob.bestBidUpdated = true
				delta := currentVolume.Sub(pq.Qty)
				ob.bestBidDeltas = append(ob.bestBidDeltas, model.LevelDelta{
					Price:     pq.Price,
					Volume:    delta,
					EventTime: diff.EventTime,
				})
				addNextBid = pq.Qty.IsZero()
			}
		}
		if pq.Qty.IsZero() {
			ob.bids.remove(pq.Price)
		} else {
			ob.bids.set(pq.Price, pq.Qty)
		}
	}

	addNextAsk := false
	for _, pq := range diff.Asks {
		touch := addNextAsk || (hasBestAsk && pq.Price.Equal(currentBestAsk))
		if touch {
			if currentVolume, ok := ob.asks.get(pq.Price); ok {
				ob.bestAskUpdated = true
				delta := currentVolume.Sub(pq.Qty)
				ob.bestAskDeltas = append(ob.bestAskDeltas, model.LevelDelta{
					Price:     pq.Price,
					Volume:    delta,
					EventTime: diff.EventTime,
				})
				addNextAsk = pq.Qty.IsZero()
			}
		}
		if pq.Qty.IsZero() {
			ob.asks.remove(pq.Price)
		} else {
			ob.asks.set(pq.Price, pq.Qty)
		}
	}
}

// MatchAndProcessTrade attempts to reconcile trade against the side's
// current best-level deltas. Deltas are walked in the order they were
// produced by ApplyDiff; a delta with negative volume (liquidity added
// rather than removed) is skipped. A match subtracts the trade's quantity
// from the delta, leaving it at zero.
func (ob *OrderBook) MatchAndProcessTrade(trade model.TradeUpdate, side model.Side) MatchOutcome {
	deltas := &ob.bestBidDeltas
	if side == model.Ask {
		deltas = &ob.bestAskDeltas
	}
	tolerance := ob.SkewTolerance
	if tolerance == 0 {
		tolerance = defaultSkewTolerance
	}
	boundary := trade.EventTime + uint64(tolerance.Milliseconds())

	for i := range *deltas {
		ld := &(*deltas)[i]
		if ld.Volume.IsNegative() {
			continue
		}
		if ld.EventTime > boundary {
			return Stale{}
		}
		if trade.Price.Equal(ld.Price) && trade.Quantity.Equal(ld.Volume) {
			ld.Volume = ld.Volume.Sub(trade.Quantity)
			return Matched{EventTime: ld.EventTime}
		}
	}
	return Retry{}
}

// TopLevels returns up to n levels from each side, best-first, for
// reporting.
func (ob *OrderBook) TopLevels(n int) (bids, asks []model.PriceQty) {
	for _, lv := range ob.bids.topN(n, true) {
		bids = append(bids, model.PriceQty{Price: lv.Price, Qty: lv.Qty})
	}
	for _, lv := range ob.asks.topN(n, false) {
		asks = append(asks, model.PriceQty{Price: lv.Price, Qty: lv.Qty})
	}
	return bids, asks
}

// Depth reports how many distinct price levels are currently held per side.
func (ob *OrderBook) Depth() (bidLevels, askLevels int) {
	return ob.bids.len(), ob.asks.len()
}
