package stream

import (
	"io"
	"log/slog"
	"testing"

	"depthrecon/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchDecodesAndForwards(t *testing.T) {
	f := NewFeed[model.TradeUpdate]("wss://example", "trade", 1, testLogger())
	f.dispatch([]byte(`{"e":"trade","E":1000,"s":"BTCUSDT","t":"1","p":"10","q":"2","b":1,"a":2,"T":1000,"m":true}`))

	select {
	case got := <-f.out:
		if got.TradeID != "1" || got.EventTime != 1000 {
			t.Errorf("dispatched trade = %+v, want trade 1 at event time 1000", got)
		}
	default:
		t.Fatal("expected a message on the output channel")
	}
}

func TestDispatchDropsMalformedMessage(t *testing.T) {
	f := NewFeed[model.TradeUpdate]("wss://example", "trade", 1, testLogger())
	f.dispatch([]byte(`not json`))

	select {
	case got := <-f.out:
		t.Fatalf("expected no message for malformed input, got %+v", got)
	default:
	}
}

func TestDispatchDropsWhenChannelFull(t *testing.T) {
	f := NewFeed[model.TradeUpdate]("wss://example", "trade", 1, testLogger())
	msg := []byte(`{"e":"trade","E":1,"s":"BTCUSDT","t":"1","p":"10","q":"2","b":1,"a":2,"T":1,"m":true}`)

	f.dispatch(msg)
	f.dispatch(msg) // channel already has one buffered slot filled, this one drops

	if len(f.out) != 1 {
		t.Fatalf("channel len = %d, want 1 (second dispatch should have been dropped)", len(f.out))
	}
}
