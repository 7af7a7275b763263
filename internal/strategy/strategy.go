// Package strategy holds the entry decision rule: compare the entry-time
// quote of the reference instrument against its open-capture price and pick
// which instrument to buy.
package strategy

import (
	"github.com/shopspring/decimal"

	"daybot/internal/broker"
)

// Snapshot is the market state the decision is based on.
type Snapshot struct {
	OpenCapture decimal.Decimal
	Quote       decimal.Decimal
}

// TradeIntent is the chosen order: always a buy of one of the two routed
// instruments.
type TradeIntent struct {
	Symbol string
	Side   broker.Side
	Qty    int
	Reason string
}

// OpeningRange routes a quote strictly above the open to the long
// instrument and everything else, an exact tie included, to the short
// instrument. The tie-break is a fixed contract; do not "correct" it.
type OpeningRange struct {
	LongSymbol  string
	ShortSymbol string
	Qty         int
}

func (s OpeningRange) Decide(snapshot Snapshot) TradeIntent {
	if snapshot.Quote.GreaterThan(snapshot.OpenCapture) {
		return TradeIntent{
			Symbol: s.LongSymbol,
			Side:   broker.Buy,
			Qty:    s.Qty,
			Reason: "quote_above_open",
		}
	}
	return TradeIntent{
		Symbol: s.ShortSymbol,
		Side:   broker.Buy,
		Qty:    s.Qty,
		Reason: "quote_at_or_below_open",
	}
}
