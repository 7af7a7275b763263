// Package broker defines the gateway to the brokerage: quote reads, market
// order placement, order status polling, and live position queries. The
// Alpaca implementation is the production gateway; the Simulator backs tests
// and the validate-only mode.
package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Quote is a point-in-time quote for one symbol.
type Quote struct {
	Symbol    string
	AskPrice  decimal.Decimal
	BidPrice  decimal.Decimal
	Timestamp time.Time
}

// Price returns the quote's usable price: ask, falling back to bid when the
// ask is missing or zero.
func (q Quote) Price() decimal.Decimal {
	if q.AskPrice.IsPositive() {
		return q.AskPrice
	}
	return q.BidPrice
}

// OrderRequest describes one market order. ClientOrderID is the caller's
// idempotency token; the brokerage rejects a second submission carrying the
// same token.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Qty           decimal.Decimal
	ClientOrderID string
}

// OrderRef identifies a submitted order.
type OrderRef struct {
	ID            string
	ClientOrderID string
	Status        string
}

// Order status values as reported by the brokerage.
const (
	StatusNew      = "new"
	StatusAccepted = "accepted"
	StatusPartial  = "partially_filled"
	StatusFilled   = "filled"
	StatusRejected = "rejected"
	StatusCanceled = "canceled"
	StatusExpired  = "expired"
)

// OrderUpdate is a snapshot of an order's progress at the brokerage.
type OrderUpdate struct {
	Ref          OrderRef
	Symbol       string
	Side         Side
	FilledQty    decimal.Decimal
	AvgFillPrice decimal.Decimal
	Status       string
}

// Terminal reports whether the order can no longer change state.
func (u OrderUpdate) Terminal() bool {
	switch u.Status {
	case StatusFilled, StatusRejected, StatusCanceled, StatusExpired:
		return true
	}
	return false
}

// Fill is a confirmed execution.
type Fill struct {
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Qty           decimal.Decimal `json:"qty"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	BrokerOrderID string          `json:"broker_order_id"`
	ClientOrderID string          `json:"client_order_id"`
	FilledAt      time.Time       `json:"filled_at"`
}

// Account is a snapshot of the account's financial metrics.
type Account struct {
	Equity      decimal.Decimal
	BuyingPower decimal.Decimal
}

// Gateway abstracts the brokerage. Position returns zero, not an error, when
// the account holds nothing in the symbol.
type Gateway interface {
	LatestQuote(ctx context.Context, symbol string) (Quote, error)
	PlaceMarketOrder(ctx context.Context, req OrderRequest) (OrderRef, error)
	OrderStatus(ctx context.Context, brokerOrderID string) (OrderUpdate, error)
	OrderByClientID(ctx context.Context, clientOrderID string) (OrderUpdate, error)
	Position(ctx context.Context, symbol string) (decimal.Decimal, error)
	Account(ctx context.Context) (Account, error)
}
