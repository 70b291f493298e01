// Command replay deterministically reconciles a capture of four NDJSON
// files — a snapshot, a depth-diff stream, and one trade stream per side —
// against each other, logging the final book state and matched-trade
// tables. There is no concurrency here: everything runs on one goroutine in
// file order.
package main

import (
	"flag"
	"log/slog"
	"os"

	"depthrecon/internal/replay"
)

var (
	snapshotPath    = flag.String("snapshot", "", "path to the snapshot NDJSON file (required)")
	depthPath       = flag.String("depth", "", "path to the depth-diff NDJSON file (required)")
	bidTradePath    = flag.String("bid_trade", "", "path to the bid-side trade NDJSON file (required)")
	askTradePath    = flag.String("ask_trade", "", "path to the ask-side trade NDJSON file (required)")
	timestampGroups = flag.Int("timestamp-groups", 5, "number of distinct trade timestamps to preload per side before starting the depth loop")
	logLevel        = flag.String("log-level", "info", "log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	if *snapshotPath == "" || *depthPath == "" || *bidTradePath == "" || *askTradePath == "" {
		slog.Error("missing required flags", "required", "-snapshot -depth -bid_trade -ask_trade")
		flag.Usage()
		os.Exit(1)
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(*logLevel)}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))

	d := replay.NewDriver(logger)
	d.TimestampGroups = *timestampGroups

	_, _, err := d.Run(replay.Paths{
		Snapshot: *snapshotPath,
		Depth:    *depthPath,
		BidTrade: *bidTradePath,
		AskTrade: *askTradePath,
	})
	if err != nil {
		logger.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
