// Package summary records the end-of-day aggregate: what was captured, what
// was decided, the fills, and realized P&L.
package summary

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"daybot/internal/broker"
)

// TradeRow is one executed order in the day's summary.
type TradeRow struct {
	Time     time.Time       `json:"time"`
	Symbol   string          `json:"symbol"`
	Side     broker.Side     `json:"side"`
	Qty      decimal.Decimal `json:"qty"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	OrderID  string          `json:"order_id"`
}

// DaySummary is the aggregate for one trading day.
type DaySummary struct {
	Day         string           `json:"day"`
	Outcome     string           `json:"outcome"`
	OpenCapture *decimal.Decimal `json:"open_capture,omitempty"`
	EntryQuote  *decimal.Decimal `json:"entry_quote,omitempty"`
	Decision    string           `json:"decision"`
	Symbol      string           `json:"symbol,omitempty"`
	Trades      []TradeRow       `json:"trades"`
	RealizedPnL decimal.Decimal  `json:"realized_pnl"`
	Equity      decimal.Decimal  `json:"equity"`
	BuyingPower decimal.Decimal  `json:"buying_power"`
}

// Recorder persists a day's summary. The backend is configuration.
type Recorder interface {
	Record(ctx context.Context, s DaySummary) error
}

// RealizedPnL computes (exit average - entry average) x exited quantity.
// Either fill missing means nothing was realized.
func RealizedPnL(entry, exit *broker.Fill) decimal.Decimal {
	if entry == nil || exit == nil {
		return decimal.Zero
	}
	return exit.AvgPrice.Sub(entry.AvgPrice).Mul(exit.Qty)
}

// Noop discards summaries; used when no backend is configured.
type Noop struct{}

func (Noop) Record(_ context.Context, _ DaySummary) error { return nil }
