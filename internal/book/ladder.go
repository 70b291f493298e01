package book

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ladder is a price-indexed side of the book. Prices are kept in a sorted
// slice so best-of-side and ranged reads are simple slice operations;
// quantities live in a map keyed by the price's canonical string form.
// This trades lookup/removal for being easy to reason about, which matches
// the scale this system runs at (dozens of touched levels per diff, not a
// matching-engine order book with millions of resting orders).
type ladder struct {
	prices []decimal.Decimal
	qty    map[string]decimal.Decimal
}

func newLadder() *ladder {
	return &ladder{qty: make(map[string]decimal.Decimal)}
}

func (l *ladder) get(price decimal.Decimal) (decimal.Decimal, bool) {
	q, ok := l.qty[price.String()]
	return q, ok
}

func (l *ladder) set(price, qty decimal.Decimal) {
	key := price.String()
	if _, exists := l.qty[key]; !exists {
		l.insertSorted(price)
	}
	l.qty[key] = qty
}

func (l *ladder) remove(price decimal.Decimal) {
	key := price.String()
	if _, exists := l.qty[key]; !exists {
		return
	}
	delete(l.qty, key)
	if idx := l.indexOf(price); idx >= 0 {
		l.prices = append(l.prices[:idx], l.prices[idx+1:]...)
	}
}

func (l *ladder) clear() {
	l.prices = l.prices[:0]
	l.qty = make(map[string]decimal.Decimal)
}

func (l *ladder) indexOf(price decimal.Decimal) int {
	for i, p := range l.prices {
		if p.Equal(price) {
			return i
		}
	}
	return -1
}

func (l *ladder) insertSorted(price decimal.Decimal) {
	idx := sort.Search(len(l.prices), func(i int) bool {
		return l.prices[i].GreaterThanOrEqual(price)
	})
	l.prices = append(l.prices, decimal.Decimal{})
	copy(l.prices[idx+1:], l.prices[idx:])
	l.prices[idx] = price
}

// best returns the highest price when highest is true (best bid), the
// lowest price otherwise (best ask).
func (l *ladder) best(highest bool) (decimal.Decimal, bool) {
	if len(l.prices) == 0 {
		return decimal.Decimal{}, false
	}
	if highest {
		return l.prices[len(l.prices)-1], true
	}
	return l.prices[0], true
}

func (l *ladder) len() int {
	return len(l.prices)
}

// topN returns up to n levels starting from the best, descending into the
// book (highest-first for bids, lowest-first for asks).
func (l *ladder) topN(n int, highest bool) []levelView {
	if n > len(l.prices) {
		n = len(l.prices)
	}
	out := make([]levelView, 0, n)
	if highest {
		for i := len(l.prices) - 1; i >= 0 && len(out) < n; i-- {
			p := l.prices[i]
			out = append(out, levelView{Price: p, Qty: l.qty[p.String()]})
		}
		return out
	}
	for i := 0; i < len(l.prices) && len(out) < n; i++ {
		p := l.prices[i]
		out = append(out, levelView{Price: p, Qty: l.qty[p.String()]})
	}
	return out
}

type levelView struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}
