// Package stream provides the live driver's transport: two reconnecting
// WebSocket feeds (depth diffs, trades) and an HTTP snapshot poller, each
// forwarding decoded messages on a bounded channel and dropping on a full
// channel rather than blocking the network read loop. Feed is generic over
// its message type so one implementation serves both the depth and trade
// streams.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	initialReconnectWait = time.Second
	maxReconnectWait     = 30 * time.Second
	readTimeout          = 60 * time.Second
)

// Feed connects to a single-purpose WebSocket endpoint that emits one JSON
// message type per frame, reconnecting with exponential backoff on any
// read/dial error until ctx is canceled.
type Feed[T any] struct {
	url    string
	out    chan T
	logger *slog.Logger
}

// NewFeed builds a Feed with a channel buffered to bufSize. name is used
// only to label log lines (e.g. "depth", "trade").
func NewFeed[T any](url, name string, bufSize int, logger *slog.Logger) *Feed[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed[T]{
		url:    url,
		out:    make(chan T, bufSize),
		logger: logger.With("component", name+"_feed"),
	}
}

// Updates returns the channel decoded messages are sent on. It is closed
// once Run returns.
func (f *Feed[T]) Updates() <-chan T {
	return f.out
}

// Run dials, reads, and reconnects until ctx is canceled, then closes the
// output channel.
func (f *Feed[T]) Run(ctx context.Context) error {
	defer close(f.out)

	backoff := initialReconnectWait
	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (f *Feed[T]) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.url, err)
	}
	defer conn.Close()

	f.logger.Info("websocket connected", "url", f.url)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatch(msg)
	}
}

func (f *Feed[T]) dispatch(data []byte) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		f.logger.Error("dropping malformed message", "error", err)
		return
	}
	select {
	case f.out <- v:
	default:
		f.logger.Warn("channel full, dropping message")
	}
}
