package reconcile

import (
	"strings"
	"testing"

	"depthrecon/internal/matcher"
	"depthrecon/internal/model"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestFormatBookPadsUnevenSides(t *testing.T) {
	bids := []model.PriceQty{{Price: d("10"), Qty: d("5")}}
	asks := []model.PriceQty{{Price: d("11"), Qty: d("5")}, {Price: d("12"), Qty: d("3")}}

	out := FormatBook("Book", bids, asks)
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4 (title + column header + 2 rows):\n%s", len(lines), out)
	}
	if !strings.Contains(lines[2], "10 -- 5") || !strings.Contains(lines[2], "11 -- 5") {
		t.Errorf("first row = %q, want bid/ask columns", lines[2])
	}
	if !strings.Contains(lines[3], "12 -- 3") {
		t.Errorf("second row = %q, want the leftover ask level", lines[3])
	}
}

func TestFormatResultsListsEveryRow(t *testing.T) {
	results := []matcher.TradeResult{
		{TradeID: "1", TradeEventTime: 1000, Outcome: 1000},
		{TradeID: "2", TradeEventTime: 1000, Outcome: matcher.OutcomePurged},
	}
	out := FormatResults(model.Bid, results)
	if !strings.HasPrefix(out, "Bid - Matching output") {
		t.Errorf("missing side header: %q", out)
	}
	if !strings.Contains(out, "1\t1000\t1000") {
		t.Errorf("missing matched row: %q", out)
	}
	if !strings.Contains(out, "2\t1000\t2") {
		t.Errorf("missing purged row: %q", out)
	}
}
