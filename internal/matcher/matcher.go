// Package matcher holds one side's FIFO trade queue and reconciles it
// against an internal/book.OrderBook's best-level deltas, accumulating a
// result table of matched/dropped/purged trades.
package matcher

import (
	"log/slog"
	"sort"

	"depthrecon/internal/book"
	"depthrecon/internal/model"
)

// Outcome codes for a TradeResult: 1 and 2 are sentinels for dropped and
// purged trades; any other value is a matched level delta's event time.
const (
	OutcomeDropped uint64 = 1
	OutcomePurged  uint64 = 2
)

// TradeResult is one row of the matched-trade table.
type TradeResult struct {
	TradeID        string
	TradeEventTime uint64
	Outcome        uint64
}

// TradeMatcher owns one side's trade queue and result table.
type TradeMatcher struct {
	side   model.Side
	logger *slog.Logger

	queue   []model.TradeUpdate
	results []TradeResult
}

// New builds an empty TradeMatcher for the given side.
func New(side model.Side, logger *slog.Logger) *TradeMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TradeMatcher{side: side, logger: logger.With("side", side.String())}
}

// AddTrade enqueues a trade awaiting reconciliation.
func (m *TradeMatcher) AddTrade(trade model.TradeUpdate) {
	m.logger.Debug("added trade", "trade_id", trade.TradeID)
	m.queue = append(m.queue, trade)
}

// MatchTrades attempts to reconcile every queued trade against ob's current
// best-level deltas for this matcher's side. Matched and dropped trades are
// removed from the queue and recorded in the result table; retried trades
// stay queued. It returns the event times of every trade matched this pass.
func (m *TradeMatcher) MatchTrades(ob *book.OrderBook) []uint64 {
	var eventTimes []uint64
	var removeIdx []int
	type pending struct {
		ids            []string
		tradeEventTime uint64
		outcome        uint64
	}
	var toInsert []pending

	m.logger.Debug("reconciliation attempt", "queued", len(m.queue))

	for i, trade := range m.queue {
		outcome := ob.MatchAndProcessTrade(trade, m.side)
		switch o := outcome.(type) {
		case book.Stale:
			m.logger.Warn("dropped trade", "trade_id", trade.TradeID)
			removeIdx = append(removeIdx, i)
			toInsert = append(toInsert, pending{trade.IDs(), trade.EventTime, OutcomeDropped})
		case book.Matched:
			m.logger.Info("matched trade", "trade_id", trade.TradeID, "event_time", o.EventTime)
			removeIdx = append(removeIdx, i)
			eventTimes = append(eventTimes, o.EventTime)
			toInsert = append(toInsert, pending{trade.IDs(), trade.EventTime, o.EventTime})
		case book.Retry:
			// leave queued, try again after the next diff.
		}
	}

	for i := len(removeIdx) - 1; i >= 0; i-- {
		idx := removeIdx[i]
		m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
	}
	for _, p := range toInsert {
		m.insertTradeIDs(p.ids, p.tradeEventTime, p.outcome)
	}
	return eventTimes
}

// Purge drains every trade still queued at shutdown, recording each as
// OutcomePurged.
func (m *TradeMatcher) Purge() {
	for _, trade := range m.queue {
		m.logger.Info("purged trade", "trade_id", trade.TradeID)
		m.insertTradeIDs(trade.IDs(), trade.EventTime, OutcomePurged)
	}
	m.queue = nil
}

// NumberOfTimestamps counts runs of consecutive equal event times in the
// queue — not the count of distinct values, the count of transitions, so a
// queue of [5,5,7,7,7,9] reports 3. The zero-valued starting sentinel means
// a queue whose first trade has EventTime 0 undercounts by one; that case
// does not occur in practice since real event times are non-zero.
func (m *TradeMatcher) NumberOfTimestamps() int {
	n := 0
	var old uint64
	for _, trade := range m.queue {
		if old != trade.EventTime {
			n++
		}
		old = trade.EventTime
	}
	return n
}

// CleanTradeResults collapses the result table to one row per trade ID: a
// trade ID that only ever appears once is kept as-is; a trade ID that
// appears more than once drops every Dropped/Purged occurrence, then keeps
// the highest-outcome row among what remains. A repeated trade ID that was
// never matched therefore has no row at all.
func (m *TradeMatcher) CleanTradeResults() {
	counts := make(map[string]int, len(m.results))
	for _, r := range m.results {
		counts[r.TradeID]++
	}

	grouped := make(map[string][]TradeResult, len(counts))
	for _, r := range m.results {
		if counts[r.TradeID] == 1 || (r.Outcome != OutcomeDropped && r.Outcome != OutcomePurged) {
			grouped[r.TradeID] = append(grouped[r.TradeID], r)
		}
	}

	cleaned := make([]TradeResult, 0, len(grouped))
	for id, rows := range grouped {
		best := rows[0]
		for _, r := range rows[1:] {
			if r.Outcome > best.Outcome {
				best = r
			}
		}
		cleaned = append(cleaned, TradeResult{TradeID: id, TradeEventTime: best.TradeEventTime, Outcome: best.Outcome})
	}
	sort.Slice(cleaned, func(i, j int) bool {
		if cleaned[i].TradeID != cleaned[j].TradeID {
			return cleaned[i].TradeID < cleaned[j].TradeID
		}
		if cleaned[i].TradeEventTime != cleaned[j].TradeEventTime {
			return cleaned[i].TradeEventTime < cleaned[j].TradeEventTime
		}
		return cleaned[i].Outcome < cleaned[j].Outcome
	})
	m.results = cleaned
}

// Results returns the current result table.
func (m *TradeMatcher) Results() []TradeResult {
	return m.results
}

// Side reports which book side this matcher reconciles.
func (m *TradeMatcher) Side() model.Side {
	return m.side
}

func (m *TradeMatcher) insertTradeIDs(ids []string, tradeEventTime, outcome uint64) {
	for _, id := range ids {
		m.results = append(m.results, TradeResult{TradeID: id, TradeEventTime: tradeEventTime, Outcome: outcome})
	}
}
