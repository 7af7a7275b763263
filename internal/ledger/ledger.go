// Package ledger tracks what the bot believes it holds. The belief is
// updated optimistically from confirmed fills and overwritten by the
// brokerage's answer on every reconciliation: broker truth always wins.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"daybot/internal/broker"
)

// Ledger is the local position record for the managed symbols.
type Ledger struct {
	mu   sync.RWMutex
	gw   broker.Gateway
	held map[string]decimal.Decimal
}

func New(gw broker.Gateway) *Ledger {
	return &Ledger{
		gw:   gw,
		held: make(map[string]decimal.Decimal),
	}
}

// Held returns the locally believed quantity for symbol. No I/O.
func (l *Ledger) Held(symbol string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.held[symbol]
}

// RecordFill updates the local belief after a confirmed fill.
func (l *Ledger) RecordFill(fill broker.Fill) {
	l.mu.Lock()
	defer l.mu.Unlock()
	held := l.held[fill.Symbol]
	if fill.Side == broker.Buy {
		held = held.Add(fill.Qty)
	} else {
		held = held.Sub(fill.Qty)
	}
	l.held[fill.Symbol] = held
	slog.Info("ledger fill recorded", "symbol", fill.Symbol, "side", fill.Side, "qty", fill.Qty, "held", held)
}

// Reconcile reads the authoritative position from the brokerage and
// overwrites the local belief. A mismatch is logged, never reversed.
func (l *Ledger) Reconcile(ctx context.Context, symbol string) (decimal.Decimal, error) {
	qty, err := l.gw.Position(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reconcile %s: %w", symbol, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if believed := l.held[symbol]; !believed.Equal(qty) {
		slog.Warn("ledger mismatch, adopting broker position", "symbol", symbol, "believed", believed, "broker", qty)
	}
	l.held[symbol] = qty
	return qty, nil
}
