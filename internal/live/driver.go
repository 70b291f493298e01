// Package live wires the snapshot poller and the two WebSocket feeds into a
// single cooperative consumer that owns the order book and both trade
// matchers. Live trades carry no side marker of their own, so the driver
// classifies each one by its maker flag and routes it straight into the
// matching side's queue — there is no separate coalescing stage in this
// mode, unlike replay.
package live

import (
	"context"
	"log/slog"

	"depthrecon/internal/book"
	"depthrecon/internal/matcher"
	"depthrecon/internal/model"
	"depthrecon/internal/reconcile"
)

// Driver is the single-consumer multiplex over the three live feeds.
type Driver struct {
	book       *book.OrderBook
	bidMatcher *matcher.TradeMatcher
	askMatcher *matcher.TradeMatcher

	snapshotCh <-chan model.SnapshotUpdate
	depthCh    <-chan model.DepthUpdate
	tradeCh    <-chan model.TradeUpdate

	logger *slog.Logger
}

// NewDriver builds a Driver reading from the three given channels. The
// caller owns starting the producers that feed them.
func NewDriver(
	ob *book.OrderBook,
	bidMatcher, askMatcher *matcher.TradeMatcher,
	snapshotCh <-chan model.SnapshotUpdate,
	depthCh <-chan model.DepthUpdate,
	tradeCh <-chan model.TradeUpdate,
	logger *slog.Logger,
) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		book:       ob,
		bidMatcher: bidMatcher,
		askMatcher: askMatcher,
		snapshotCh: snapshotCh,
		depthCh:    depthCh,
		tradeCh:    tradeCh,
		logger:     logger.With("component", "live_driver"),
	}
}

// Run serves the main select loop until ctx is canceled or any feed channel
// closes unexpectedly, then calls cancel (idempotent) to make sure every
// producer is told to stop, drains whatever is left buffered on each
// channel, and logs the final book and result tables.
func (d *Driver) Run(ctx context.Context, cancel context.CancelFunc) {
	d.logger.Info("live driver started")

mainLoop:
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("received shutdown signal")
			break mainLoop
		case snap, ok := <-d.snapshotCh:
			if !ok {
				d.logger.Error("snapshot channel closed unexpectedly")
				cancel()
				break mainLoop
			}
			d.book.ApplySnapshot(snap)
		case diff, ok := <-d.depthCh:
			if !ok {
				d.logger.Error("depth channel closed unexpectedly")
				cancel()
				break mainLoop
			}
			d.applyDiff(diff)
		case trade, ok := <-d.tradeCh:
			if !ok {
				d.logger.Error("trade channel closed unexpectedly")
				cancel()
				break mainLoop
			}
			d.routeTrade(trade)
		}
	}

	cancel()
	d.logger.Info("draining feeds before shutdown")
	d.drain()
	d.finish()
}

func (d *Driver) applyDiff(diff model.DepthUpdate) {
	d.book.ApplyDiff(diff)
	if d.book.IsBestAskUpdated() {
		d.askMatcher.MatchTrades(d.book)
	}
	if d.book.IsBestBidUpdated() {
		d.bidMatcher.MatchTrades(d.book)
	}
}

func (d *Driver) routeTrade(trade model.TradeUpdate) {
	if trade.Side() == model.Bid {
		d.bidMatcher.AddTrade(trade)
	} else {
		d.askMatcher.AddTrade(trade)
	}
}

// drain reads whatever is left on each channel until it closes, applying
// messages the same way the main loop does so nothing buffered is lost.
func (d *Driver) drain() {
	for snap := range d.snapshotCh {
		d.book.ApplySnapshot(snap)
	}
	for diff := range d.depthCh {
		d.applyDiff(diff)
	}
	for trade := range d.tradeCh {
		d.routeTrade(trade)
	}
}

func (d *Driver) finish() {
	d.bidMatcher.Purge()
	d.askMatcher.Purge()
	d.bidMatcher.CleanTradeResults()
	d.askMatcher.CleanTradeResults()

	bids, asks := d.book.TopLevels(10)
	d.logger.Info(reconcile.FormatBook("Final order book", bids, asks))
	d.logger.Info(reconcile.FormatResults(model.Bid, d.bidMatcher.Results()))
	d.logger.Info(reconcile.FormatResults(model.Ask, d.askMatcher.Results()))
}
