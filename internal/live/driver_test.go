package live

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"depthrecon/internal/book"
	"depthrecon/internal/matcher"
	"depthrecon/internal/model"

	"github.com/shopspring/decimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// TestRunMatchesTradeThenShutsDownOnChannelClose exercises the full cycle:
// a snapshot, a bid trade routed by its maker flag, a depth diff that moves
// the best bid by the trade's quantity, and then every feed channel closing
// to end the run.
func TestRunMatchesTradeThenShutsDownOnChannelClose(t *testing.T) {
	snapshotCh := make(chan model.SnapshotUpdate, 1)
	depthCh := make(chan model.DepthUpdate, 1)
	tradeCh := make(chan model.TradeUpdate, 1)

	ob := book.New(testLogger())
	bidMatcher := matcher.New(model.Bid, testLogger())
	askMatcher := matcher.New(model.Ask, testLogger())
	drv := NewDriver(ob, bidMatcher, askMatcher, snapshotCh, depthCh, tradeCh, testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		drv.Run(ctx, cancel)
		close(done)
	}()

	// The driver selects across its channels in no fixed order, so each
	// message is sent only after the previous one has had a moment to be
	// consumed: the diff is dropped without a snapshot, and a trade queued
	// after its diff is never matched against it.
	snapshotCh <- model.SnapshotUpdate{
		LastUpdateID: 1,
		Bids:         []model.PriceQty{{Price: d("10"), Qty: d("5")}},
		Asks:         []model.PriceQty{{Price: d("11"), Qty: d("5")}},
	}
	time.Sleep(20 * time.Millisecond)
	tradeCh <- model.TradeUpdate{
		TradeID: "1", EventTime: 1000, Price: d("10"), Quantity: d("2"), IsMarketMaker: true,
	}
	time.Sleep(20 * time.Millisecond)
	depthCh <- model.DepthUpdate{
		EventTime: 1000, FirstUpdateID: 2, FinalUpdateID: 3,
		Bids: []model.PriceQty{{Price: d("10"), Qty: d("3")}},
	}

	// Give the driver a moment to apply the diff, then close every channel
	// to trigger shutdown.
	time.Sleep(20 * time.Millisecond)
	close(snapshotCh)
	close(depthCh)
	close(tradeCh)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not shut down after channels closed")
	}

	results := bidMatcher.Results()
	if len(results) != 1 || results[0].TradeID != "1" || results[0].Outcome != 1000 {
		t.Fatalf("bid matcher results = %+v, want one matched row at event time 1000", results)
	}
	if len(askMatcher.Results()) != 0 {
		t.Fatalf("ask matcher results = %+v, want none", askMatcher.Results())
	}
}

func TestRouteTradeUsesMakerFlagForSide(t *testing.T) {
	bidMatcher := matcher.New(model.Bid, testLogger())
	askMatcher := matcher.New(model.Ask, testLogger())
	drv := &Driver{bidMatcher: bidMatcher, askMatcher: askMatcher, logger: testLogger()}

	drv.routeTrade(model.TradeUpdate{TradeID: "bid-trade", IsMarketMaker: true})
	drv.routeTrade(model.TradeUpdate{TradeID: "ask-trade", IsMarketMaker: false})

	bidMatcher.Purge()
	askMatcher.Purge()

	if got := bidMatcher.Results(); len(got) != 1 || got[0].TradeID != "bid-trade" {
		t.Errorf("bid matcher purged = %+v, want one row for bid-trade", got)
	}
	if got := askMatcher.Results(); len(got) != 1 || got[0].TradeID != "ask-trade" {
		t.Errorf("ask matcher purged = %+v, want one row for ask-trade", got)
	}
}
