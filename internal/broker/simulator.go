package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Compile-time interface check.
var _ Gateway = (*Simulator)(nil)

// Simulator implements Gateway entirely in memory: orders fill immediately
// at the configured quote. It backs the validate-only mode and tests.
type Simulator struct {
	mu        sync.Mutex
	quotes    map[string]Quote
	orders    map[string]OrderUpdate // keyed by broker order ID
	byClient  map[string]string      // client order ID -> broker order ID
	positions map[string]decimal.Decimal
	seq       int
}

// NewSimulator creates an empty Simulator.
func NewSimulator() *Simulator {
	return &Simulator{
		quotes:    make(map[string]Quote),
		orders:    make(map[string]OrderUpdate),
		byClient:  make(map[string]string),
		positions: make(map[string]decimal.Decimal),
	}
}

// SetQuote installs the quote returned for symbol.
func (s *Simulator) SetQuote(symbol string, ask, bid decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[symbol] = Quote{Symbol: symbol, AskPrice: ask, BidPrice: bid, Timestamp: time.Now()}
}

// SetPosition overrides the simulated held quantity for symbol.
func (s *Simulator) SetPosition(symbol string, qty decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[symbol] = qty
}

func (s *Simulator) LatestQuote(_ context.Context, symbol string) (Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("simulator: no quote for %s", symbol)
	}
	return q, nil
}

// PlaceMarketOrder fills the order immediately at the current quote price.
// Reusing a client order ID returns the original order unchanged.
func (s *Simulator) PlaceMarketOrder(_ context.Context, req OrderRequest) (OrderRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byClient[req.ClientOrderID]; ok && req.ClientOrderID != "" {
		return s.orders[id].Ref, nil
	}
	q, ok := s.quotes[req.Symbol]
	if !ok {
		return OrderRef{}, fmt.Errorf("simulator: no quote for %s", req.Symbol)
	}

	s.seq++
	id := fmt.Sprintf("sim-%d", s.seq)
	ref := OrderRef{ID: id, ClientOrderID: req.ClientOrderID, Status: StatusFilled}
	s.orders[id] = OrderUpdate{
		Ref:          ref,
		Symbol:       req.Symbol,
		Side:         req.Side,
		FilledQty:    req.Qty,
		AvgFillPrice: q.Price(),
		Status:       StatusFilled,
	}
	if req.ClientOrderID != "" {
		s.byClient[req.ClientOrderID] = id
	}

	held := s.positions[req.Symbol]
	if req.Side == Buy {
		held = held.Add(req.Qty)
	} else {
		held = held.Sub(req.Qty)
	}
	s.positions[req.Symbol] = held
	return ref, nil
}

func (s *Simulator) OrderStatus(_ context.Context, brokerOrderID string) (OrderUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.orders[brokerOrderID]
	if !ok {
		return OrderUpdate{}, fmt.Errorf("simulator: unknown order %s", brokerOrderID)
	}
	return u, nil
}

func (s *Simulator) OrderByClientID(_ context.Context, clientOrderID string) (OrderUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byClient[clientOrderID]
	if !ok {
		return OrderUpdate{}, fmt.Errorf("simulator: unknown client order %s", clientOrderID)
	}
	return s.orders[id], nil
}

func (s *Simulator) Position(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[symbol], nil
}

func (s *Simulator) Account(_ context.Context) (Account, error) {
	return Account{
		Equity:      decimal.NewFromInt(100000),
		BuyingPower: decimal.NewFromInt(200000),
	}, nil
}
