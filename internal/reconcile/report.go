// Package reconcile formats order book snapshots and matcher result tables
// for logging, shared between the live and replay drivers so both print the
// same shape.
package reconcile

import (
	"fmt"
	"strings"

	"depthrecon/internal/matcher"
	"depthrecon/internal/model"
)

// FormatBook renders up to len(bids)/len(asks) rows of a two-column
// bid/ask table under title.
func FormatBook(title string, bids, asks []model.PriceQty) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\t\tBID\t\t\t\t\tASK\n", title)
	n := len(bids)
	if len(asks) > n {
		n = len(asks)
	}
	for i := 0; i < n; i++ {
		bidCol := ""
		if i < len(bids) {
			bidCol = fmt.Sprintf("%s -- %s", bids[i].Price, bids[i].Qty)
		}
		askCol := ""
		if i < len(asks) {
			askCol = fmt.Sprintf("%s -- %s", asks[i].Price, asks[i].Qty)
		}
		fmt.Fprintf(&b, "%-15s\t|\t%s\n", bidCol, askCol)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatResults renders a matcher's result table, labeled by side.
func FormatResults(side model.Side, results []matcher.TradeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - Matching output\n", side)
	fmt.Fprintf(&b, "\tTrade ID\tTrade Time\tOutcome\n")
	for _, r := range results {
		fmt.Fprintf(&b, "\t%s\t%d\t%d\n", r.TradeID, r.TradeEventTime, r.Outcome)
	}
	return strings.TrimRight(b.String(), "\n")
}
