// Package model defines the wire and in-memory record types shared by the
// order book, trade matcher, and both drivers.
package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Side identifies which side of the book a trade consumed liquidity from.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "Bid"
	}
	return "Ask"
}

// PriceQty is a single price/quantity pair as it appears in depth and
// snapshot payloads: a two-element JSON array of quoted decimal strings,
// e.g. ["0.0024", "10"].
type PriceQty struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

func (p PriceQty) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Price.String(), p.Qty.String()})
}

func (p *PriceQty) UnmarshalJSON(data []byte) error {
	var raw [2]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("price/qty pair: %w", err)
	}
	price, err := decimal.NewFromString(raw[0])
	if err != nil {
		return fmt.Errorf("price/qty pair: price %q: %w", raw[0], err)
	}
	qty, err := decimal.NewFromString(raw[1])
	if err != nil {
		return fmt.Errorf("price/qty pair: quantity %q: %w", raw[1], err)
	}
	p.Price = price
	p.Qty = qty
	return nil
}

// DepthUpdate is one diff frame off the depth-diff stream.
type DepthUpdate struct {
	EventType     string     `json:"e"`
	EventTime     uint64     `json:"E"`
	Symbol        string     `json:"s"`
	FirstUpdateID uint64     `json:"U"`
	FinalUpdateID uint64     `json:"u"`
	Bids          []PriceQty `json:"b"`
	Asks          []PriceQty `json:"a"`
}

// SnapshotUpdate is the full-depth response from the snapshot endpoint.
type SnapshotUpdate struct {
	LastUpdateID uint64     `json:"lastUpdateId"`
	Bids         []PriceQty `json:"bids"`
	Asks         []PriceQty `json:"asks"`
}

// LevelDelta records the volume removed from a touched price level by one
// depth-diff application, carried forward for matching against trades.
type LevelDelta struct {
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	EventTime uint64          `json:"event_time"`
}

// TradeUpdate is one executed trade off the trade stream. TradeID is decoded
// from the wire's "t" field, which arrives as either a JSON string or a JSON
// number depending on exchange. TradeIDs is populated only by the replay
// driver's same-timestamp/same-price coalescing (see internal/replay); it is
// empty for every trade read off the live trade stream.
type TradeUpdate struct {
	EventType     string
	EventTime     uint64
	Symbol        string
	TradeID       string
	TradeIDs      []string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	BuyerOrderID  uint64
	SellerOrderID uint64
	TradeTime     uint64
	IsMarketMaker bool
}

// Side reports which book side this trade consumed, using the standard
// aggressor convention: IsMarketMaker true means the buyer was resting
// (maker) and the seller was the aggressor, so the trade ate into the bid;
// false means the trade ate into the ask.
func (t TradeUpdate) Side() Side {
	if t.IsMarketMaker {
		return Bid
	}
	return Ask
}

// IDs returns the trade's composite identity for result-table insertion:
// TradeIDs if coalescing populated it, otherwise just TradeID.
func (t TradeUpdate) IDs() []string {
	if len(t.TradeIDs) > 0 {
		return t.TradeIDs
	}
	return []string{t.TradeID}
}

type tradeUpdateWire struct {
	EventType     string          `json:"e"`
	EventTime     uint64          `json:"E"`
	Symbol        string          `json:"s"`
	TradeID       json.RawMessage `json:"t"`
	Price         decimal.Decimal `json:"p"`
	Quantity      decimal.Decimal `json:"q"`
	BuyerOrderID  uint64          `json:"b"`
	SellerOrderID uint64          `json:"a"`
	TradeTime     uint64          `json:"T"`
	IsMarketMaker bool            `json:"m"`
}

func (t *TradeUpdate) UnmarshalJSON(data []byte) error {
	var wire tradeUpdateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("trade update: %w", err)
	}
	id, err := decodeTradeID(wire.TradeID)
	if err != nil {
		return fmt.Errorf("trade update: %w", err)
	}
	*t = TradeUpdate{
		EventType:     wire.EventType,
		EventTime:     wire.EventTime,
		Symbol:        wire.Symbol,
		TradeID:       id,
		Price:         wire.Price,
		Quantity:      wire.Quantity,
		BuyerOrderID:  wire.BuyerOrderID,
		SellerOrderID: wire.SellerOrderID,
		TradeTime:     wire.TradeTime,
		IsMarketMaker: wire.IsMarketMaker,
	}
	return nil
}

func (t TradeUpdate) MarshalJSON() ([]byte, error) {
	return json.Marshal(tradeUpdateWire{
		EventType:     t.EventType,
		EventTime:     t.EventTime,
		Symbol:        t.Symbol,
		TradeID:       json.RawMessage(fmt.Sprintf("%q", t.TradeID)),
		Price:         t.Price,
		Quantity:      t.Quantity,
		BuyerOrderID:  t.BuyerOrderID,
		SellerOrderID: t.SellerOrderID,
		TradeTime:     t.TradeTime,
		IsMarketMaker: t.IsMarketMaker,
	})
}

func decodeTradeID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("trade_id: expected string or number, got %s", string(raw))
}
