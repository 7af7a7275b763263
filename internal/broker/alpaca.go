package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

var _ Gateway = (*AlpacaGateway)(nil)

// AlpacaGateway implements Gateway against the Alpaca trading and market
// data APIs.
type AlpacaGateway struct {
	trading *alpaca.Client
	data    *marketdata.Client
}

// NewAlpaca builds a gateway for the given credentials. baseURL selects
// paper or live trading.
func NewAlpaca(apiKey, apiSecret, baseURL string) *AlpacaGateway {
	return &AlpacaGateway{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
	}
}

// LatestQuote fetches the most recent NBBO quote for symbol.
func (g *AlpacaGateway) LatestQuote(_ context.Context, symbol string) (Quote, error) {
	q, err := g.data.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		slog.Error("fetch quote failed", "symbol", symbol, "error", err)
		return Quote{}, fmt.Errorf("latest quote %s: %w", symbol, err)
	}
	quote := Quote{
		Symbol:    symbol,
		AskPrice:  decimal.NewFromFloat(q.AskPrice),
		BidPrice:  decimal.NewFromFloat(q.BidPrice),
		Timestamp: q.Timestamp,
	}
	slog.Info("quote fetched", "symbol", symbol, "ask", q.AskPrice, "bid", q.BidPrice)
	return quote, nil
}

// PlaceMarketOrder submits a day market order.
func (g *AlpacaGateway) PlaceMarketOrder(_ context.Context, req OrderRequest) (OrderRef, error) {
	qty := req.Qty
	order, err := g.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          alpaca.Side(req.Side),
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		slog.Error("place order failed", "side", req.Side, "symbol", req.Symbol, "qty", req.Qty, "error", err)
		return OrderRef{}, fmt.Errorf("place order %s %s: %w", req.Side, req.Symbol, err)
	}
	slog.Info("place order success", "order_id", order.ID, "side", req.Side, "symbol", req.Symbol, "qty", req.Qty, "status", order.Status)
	return OrderRef{
		ID:            order.ID,
		ClientOrderID: order.ClientOrderID,
		Status:        string(order.Status),
	}, nil
}

// OrderStatus fetches the current state of an order by broker ID.
func (g *AlpacaGateway) OrderStatus(_ context.Context, brokerOrderID string) (OrderUpdate, error) {
	order, err := g.trading.GetOrder(brokerOrderID)
	if err != nil {
		return OrderUpdate{}, fmt.Errorf("get order %s: %w", brokerOrderID, err)
	}
	return updateFromOrder(order), nil
}

// OrderByClientID looks an order up by its idempotency token. Used to probe
// for a prior submission whose outcome is unknown.
func (g *AlpacaGateway) OrderByClientID(_ context.Context, clientOrderID string) (OrderUpdate, error) {
	order, err := g.trading.GetOrderByClientOrderID(clientOrderID)
	if err != nil {
		return OrderUpdate{}, fmt.Errorf("get order by client id %s: %w", clientOrderID, err)
	}
	return updateFromOrder(order), nil
}

// Position returns the held quantity for symbol. A 404 from the API means
// flat and maps to zero.
func (g *AlpacaGateway) Position(_ context.Context, symbol string) (decimal.Decimal, error) {
	pos, err := g.trading.GetPosition(symbol)
	if err != nil {
		if IsNotFound(err) {
			return decimal.Zero, nil
		}
		slog.Error("fetch position failed", "symbol", symbol, "error", err)
		return decimal.Zero, fmt.Errorf("get position %s: %w", symbol, err)
	}
	slog.Info("position fetched", "symbol", symbol, "qty", pos.Qty)
	return pos.Qty, nil
}

// Account returns equity and buying power.
func (g *AlpacaGateway) Account(_ context.Context) (Account, error) {
	acct, err := g.trading.GetAccount()
	if err != nil {
		slog.Error("fetch account failed", "error", err)
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return Account{Equity: acct.Equity, BuyingPower: acct.BuyingPower}, nil
}

func updateFromOrder(order *alpaca.Order) OrderUpdate {
	u := OrderUpdate{
		Ref: OrderRef{
			ID:            order.ID,
			ClientOrderID: order.ClientOrderID,
			Status:        string(order.Status),
		},
		Symbol:    order.Symbol,
		Side:      Side(order.Side),
		FilledQty: order.FilledQty,
		Status:    string(order.Status),
	}
	if order.FilledAvgPrice != nil {
		u.AvgFillPrice = *order.FilledAvgPrice
	}
	return u
}
