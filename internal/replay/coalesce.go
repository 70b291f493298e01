package replay

import (
	"github.com/shopspring/decimal"

	"depthrecon/internal/model"
)

// tradeCoalescer merges consecutive trades sharing the same event time and
// price into one synthetic trade, the way a matching engine can report the
// same fill split across multiple messages. The merged trade keeps an
// ordered TradeIDs list, newest id first.
type tradeCoalescer struct {
	havePrev bool
	prevTime uint64
	prevPrice decimal.Decimal
	prevQty   decimal.Decimal
	prevIDs   []string
}

func newTradeCoalescer() *tradeCoalescer {
	return &tradeCoalescer{}
}

// next folds t into the running coalesced trade if it shares event time and
// price with the previous trade, returning the (possibly merged) trade.
func (c *tradeCoalescer) next(t model.TradeUpdate) model.TradeUpdate {
	if c.havePrev && t.EventTime == c.prevTime && t.Price.Equal(c.prevPrice) {
		t.Quantity = t.Quantity.Add(c.prevQty)
		t.TradeIDs = append([]string{t.TradeID}, c.prevIDs...)
	} else {
		t.TradeIDs = []string{t.TradeID}
	}
	c.havePrev = true
	c.prevTime = t.EventTime
	c.prevPrice = t.Price
	c.prevQty = t.Quantity
	c.prevIDs = t.TradeIDs
	return t
}
