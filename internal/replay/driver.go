// Package replay runs a fully synchronous, deterministic reconciliation
// over four NDJSON capture files — snapshot, depth diffs, and one trade
// file per side — with no concurrency at all.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"depthrecon/internal/book"
	"depthrecon/internal/matcher"
	"depthrecon/internal/model"
	"depthrecon/internal/reconcile"
)

// defaultTimestampGroups matches the only complete main-loop variant
// retrieved (shougoutaku.rs): preload until each side's matcher holds K
// distinct timestamp groups before starting the depth-driven loop, and
// again every time a match drains that side below it.
const defaultTimestampGroups = 5

// Driver replays a capture deterministically against an OrderBook and two
// TradeMatchers.
type Driver struct {
	TimestampGroups int

	book       *book.OrderBook
	bidMatcher *matcher.TradeMatcher
	askMatcher *matcher.TradeMatcher
	logger     *slog.Logger
}

// NewDriver builds a replay Driver. TimestampGroups defaults to 5 if left
// at zero.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		TimestampGroups: defaultTimestampGroups,
		book:            book.New(logger),
		bidMatcher:      matcher.New(model.Bid, logger),
		askMatcher:      matcher.New(model.Ask, logger),
		logger:          logger.With("component", "replay_driver"),
	}
}

// Paths names the four NDJSON capture files a replay run consumes.
type Paths struct {
	Snapshot string
	Depth    string
	BidTrade string
	AskTrade string
}

// Run loads the snapshot, preloads both trade files to TimestampGroups, then
// drives the depth file line by line, refilling each side's trade buffer
// whenever a match drains it. It returns the final cleaned result tables.
func (d *Driver) Run(paths Paths) (bidResults, askResults []matcher.TradeResult, err error) {
	if d.TimestampGroups <= 0 {
		d.TimestampGroups = defaultTimestampGroups
	}

	snap, err := loadSnapshot(paths.Snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	}
	d.book.ApplySnapshot(snap)

	bidFile, err := os.Open(paths.BidTrade)
	if err != nil {
		return nil, nil, fmt.Errorf("open bid trade file: %w", err)
	}
	defer bidFile.Close()
	askFile, err := os.Open(paths.AskTrade)
	if err != nil {
		return nil, nil, fmt.Errorf("open ask trade file: %w", err)
	}
	defer askFile.Close()
	depthFile, err := os.Open(paths.Depth)
	if err != nil {
		return nil, nil, fmt.Errorf("open depth file: %w", err)
	}
	defer depthFile.Close()

	bidScanner := bufio.NewScanner(bidFile)
	askScanner := bufio.NewScanner(askFile)
	depthScanner := bufio.NewScanner(depthFile)
	depthScanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	bidCoalescer := newTradeCoalescer()
	askCoalescer := newTradeCoalescer()

	d.preload(bidScanner, bidCoalescer, d.bidMatcher, "bid")
	d.preload(askScanner, askCoalescer, d.askMatcher, "ask")

	bids, asks := d.book.TopLevels(5)
	d.logger.Info(reconcile.FormatBook("Before run", bids, asks))

	nextBidTrade := false
	nextAskTrade := false

	for depthScanner.Scan() {
		line := depthScanner.Bytes()
		var diff model.DepthUpdate
		if err := json.Unmarshal(line, &diff); err != nil {
			d.logger.Error("dropping malformed depth line", "error", err)
			continue
		}

		if nextAskTrade {
			nextAskTrade = false
			d.preload(askScanner, askCoalescer, d.askMatcher, "ask")
		}
		if nextBidTrade {
			nextBidTrade = false
			d.preload(bidScanner, bidCoalescer, d.bidMatcher, "bid")
		}

		d.book.ApplyDiff(diff)
		if d.book.IsBestAskUpdated() {
			if times := d.askMatcher.MatchTrades(d.book); len(times) != 0 {
				nextAskTrade = true
			}
		}
		if d.book.IsBestBidUpdated() {
			if times := d.bidMatcher.MatchTrades(d.book); len(times) != 0 {
				nextBidTrade = true
			}
		}
	}
	if err := depthScanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read depth file: %w", err)
	}

	d.askMatcher.Purge()
	d.bidMatcher.Purge()

	bids, asks = d.book.TopLevels(5)
	d.logger.Info(reconcile.FormatBook("After run", bids, asks))

	d.askMatcher.CleanTradeResults()
	d.bidMatcher.CleanTradeResults()

	d.logger.Info(reconcile.FormatResults(model.Ask, d.askMatcher.Results()))
	d.logger.Info(reconcile.FormatResults(model.Bid, d.bidMatcher.Results()))

	return d.bidMatcher.Results(), d.askMatcher.Results(), nil
}

// preload reads trades from scanner through coalescer into m until m holds
// TimestampGroups distinct timestamp runs or the file is exhausted. A
// mid-file read or parse error stops this preload pass but does not fail
// the run — the trade queue simply stays shorter than TimestampGroups.
func (d *Driver) preload(scanner *bufio.Scanner, coalescer *tradeCoalescer, m *matcher.TradeMatcher, label string) {
	for m.NumberOfTimestamps() < d.TimestampGroups {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				d.logger.Error("error reading trade file", "side", label, "error", err)
			}
			return
		}
		var trade model.TradeUpdate
		if err := json.Unmarshal(scanner.Bytes(), &trade); err != nil {
			d.logger.Error("error reading trade", "side", label, "error", err)
			return
		}
		d.logger.Debug("trade", "side", label, "trade_id", trade.TradeID)
		trade = coalescer.next(trade)
		m.AddTrade(trade)
	}
}

func loadSnapshot(path string) (model.SnapshotUpdate, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.SnapshotUpdate{}, err
	}
	defer f.Close()
	var snap model.SnapshotUpdate
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return model.SnapshotUpdate{}, err
	}
	return snap, nil
}
