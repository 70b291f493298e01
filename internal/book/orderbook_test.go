package book

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"depthrecon/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pq(price, qty string) model.PriceQty {
	return model.PriceQty{Price: d(price), Qty: d(qty)}
}

func TestApplyDiffIgnoredBeforeSnapshot(t *testing.T) {
	ob := New(testLogger())
	ob.ApplyDiff(model.DepthUpdate{FirstUpdateID: 1, FinalUpdateID: 2, Bids: []model.PriceQty{pq("10", "1")}})
	bids, _ := ob.TopLevels(5)
	if len(bids) != 0 {
		t.Errorf("bids = %v, want empty (diff before snapshot must be dropped)", bids)
	}
}

func TestApplyDiffDropsStaleFrame(t *testing.T) {
	ob := New(testLogger())
	ob.ApplySnapshot(model.SnapshotUpdate{LastUpdateID: 100, Bids: []model.PriceQty{pq("10", "1")}})
	ob.ApplyDiff(model.DepthUpdate{FirstUpdateID: 50, FinalUpdateID: 100, Bids: []model.PriceQty{pq("10", "5")}})
	bids, _ := ob.TopLevels(5)
	if len(bids) != 1 || !bids[0].Qty.Equal(d("1")) {
		t.Errorf("bids = %v, want unchanged [10,1] (diff at/before last_update_id must be dropped)", bids)
	}
}

func TestApplyDiffRemovesZeroQuantityLevel(t *testing.T) {
	ob := New(testLogger())
	ob.ApplySnapshot(model.SnapshotUpdate{
		LastUpdateID: 1,
		Bids:         []model.PriceQty{pq("10", "1"), pq("9", "2")},
		Asks:         []model.PriceQty{pq("11", "1")},
	})
	ob.ApplyDiff(model.DepthUpdate{FirstUpdateID: 2, FinalUpdateID: 3, EventTime: 500, Bids: []model.PriceQty{pq("10", "0")}})
	bids, _ := ob.TopLevels(5)
	if len(bids) != 1 || !bids[0].Price.Equal(d("9")) {
		t.Errorf("bids = %v, want only [9,2] after best bid emptied", bids)
	}
	if !ob.IsBestBidUpdated() {
		t.Error("best bid should be flagged updated")
	}
}

func TestApplyDiffCascadesThroughZeroedLevels(t *testing.T) {
	ob := New(testLogger())
	ob.ApplySnapshot(model.SnapshotUpdate{
		Asks:         []model.PriceQty{pq("10", "1"), pq("11", "1"), pq("12", "1")},
		LastUpdateID: 1,
	})
	ob.ApplyDiff(model.DepthUpdate{
		FirstUpdateID: 2, FinalUpdateID: 4, EventTime: 1000,
		Asks: []model.PriceQty{pq("10", "0"), pq("11", "0"), pq("12", "0.5")},
	})
	_, asks := ob.TopLevels(5)
	if len(asks) != 1 || !asks[0].Price.Equal(d("12")) || !asks[0].Qty.Equal(d("0.5")) {
		t.Errorf("asks = %v, want only [12,0.5] after 10 and 11 emptied", asks)
	}
}

func TestApplyDiffDoesNotTouchNonBestLevel(t *testing.T) {
	ob := New(testLogger())
	ob.ApplySnapshot(model.SnapshotUpdate{
		Bids:         []model.PriceQty{pq("10", "1"), pq("9", "2")},
		LastUpdateID: 1,
	})
	ob.ApplyDiff(model.DepthUpdate{FirstUpdateID: 2, FinalUpdateID: 3, EventTime: 1, Bids: []model.PriceQty{pq("9", "0")}})
	if ob.IsBestBidUpdated() {
		t.Error("best bid should not be flagged updated when only a non-touching level changed")
	}
	bids, _ := ob.TopLevels(5)
	if len(bids) != 1 || !bids[0].Price.Equal(d("10")) {
		t.Errorf("bids = %v, want [10,1] only (9 removed, not best)", bids)
	}
}

func TestMatchAndProcessTradeMatches(t *testing.T) {
	ob := New(testLogger())
	ob.ApplySnapshot(model.SnapshotUpdate{Bids: []model.PriceQty{pq("10", "5")}, LastUpdateID: 1})
	ob.ApplyDiff(model.DepthUpdate{FirstUpdateID: 2, FinalUpdateID: 3, EventTime: 1000, Bids: []model.PriceQty{pq("10", "3")}})

	trade := model.TradeUpdate{Price: d("10"), Quantity: d("2"), EventTime: 1000}
	outcome := ob.MatchAndProcessTrade(trade, model.Bid)
	matched, ok := outcome.(Matched)
	if !ok {
		t.Fatalf("outcome = %#v, want Matched", outcome)
	}
	if matched.EventTime != 1000 {
		t.Errorf("matched event time = %d, want 1000", matched.EventTime)
	}
}

func TestMatchAndProcessTradeRetriesWithoutMatch(t *testing.T) {
	ob := New(testLogger())
	ob.ApplySnapshot(model.SnapshotUpdate{Bids: []model.PriceQty{pq("10", "5")}, LastUpdateID: 1})
	ob.ApplyDiff(model.DepthUpdate{FirstUpdateID: 2, FinalUpdateID: 3, EventTime: 1000, Bids: []model.PriceQty{pq("10", "3")}})

	trade := model.TradeUpdate{Price: d("10"), Quantity: d("99"), EventTime: 1000}
	if _, ok := ob.MatchAndProcessTrade(trade, model.Bid).(Retry); !ok {
		t.Error("expected Retry for a trade that matches no delta")
	}
}

func TestMatchAndProcessTradeStaleBeyondSkew(t *testing.T) {
	ob := New(testLogger())
	ob.SkewTolerance = 100 * time.Millisecond
	ob.ApplySnapshot(model.SnapshotUpdate{Asks: []model.PriceQty{pq("10", "5")}, LastUpdateID: 1})
	ob.ApplyDiff(model.DepthUpdate{FirstUpdateID: 2, FinalUpdateID: 3, EventTime: 10_000, Asks: []model.PriceQty{pq("10", "3")}})

	trade := model.TradeUpdate{Price: d("10"), Quantity: d("2"), EventTime: 1000}
	if _, ok := ob.MatchAndProcessTrade(trade, model.Ask).(Stale); !ok {
		t.Error("expected Stale when the delta's event time is far ahead of the trade's")
	}
}
