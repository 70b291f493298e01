// Command live runs the reconciliation engine against a real snapshot
// endpoint and the two live WebSocket feeds, printing the final book and
// matched-trade tables on shutdown.
//
// Architecture:
//
//	main.go                 — entry point: loads config, starts feeds+driver, waits for SIGINT/SIGTERM
//	internal/config         — viper-backed configuration + validation
//	internal/stream         — snapshot poller (resty) + depth/trade feeds (gorilla/websocket)
//	internal/live           — single-consumer driver owning the book and matchers
//	internal/book           — price-indexed ladders, diff apply, best-level deltas
//	internal/matcher        — per-side FIFO trade queue and result table
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"depthrecon/internal/book"
	"depthrecon/internal/config"
	"depthrecon/internal/live"
	"depthrecon/internal/matcher"
	"depthrecon/internal/model"
	"depthrecon/internal/stream"
)

func main() {
	cfgPath := "configs/live.yaml"
	if p := os.Getenv("RECON_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	ob := book.New(logger)
	ob.SkewTolerance = cfg.Book.SkewTolerance()
	bidMatcher := matcher.New(model.Bid, logger)
	askMatcher := matcher.New(model.Ask, logger)

	snapshotPoller := stream.NewSnapshotPoller(cfg.Streams.SnapshotURL, cfg.Streams.FetchInterval, cfg.Streams.ChannelSize, logger)
	depthFeed := stream.NewFeed[model.DepthUpdate](cfg.Streams.DepthURL, "depth", cfg.Streams.ChannelSize, logger)
	tradeFeed := stream.NewFeed[model.TradeUpdate](cfg.Streams.TradeURL, "trade", cfg.Streams.ChannelSize, logger)

	driver := live.NewDriver(ob, bidMatcher, askMatcher, snapshotPoller.Updates(), depthFeed.Updates(), tradeFeed.Updates(), logger)

	ctx, cancel := context.WithCancel(context.Background())

	go snapshotPoller.Run(ctx)
	go depthFeed.Run(ctx)
	go tradeFeed.Run(ctx)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received OS signal", "signal", sig.String())
		cancel()
	}()

	logger.Info("live reconciliation driver started",
		"snapshot_url", cfg.Streams.SnapshotURL,
		"depth_url", cfg.Streams.DepthURL,
		"trade_url", cfg.Streams.TradeURL,
	)
	driver.Run(ctx, cancel)
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
