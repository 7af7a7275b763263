// Package risk is the pre-entry gate. It enforces the invariants an entry
// order must satisfy; the exit path deliberately bypasses it, since
// flattening must never be blocked.
package risk

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"daybot/internal/strategy"
)

// Context is the state the gate evaluates an intent against.
type Context struct {
	HeldQty       decimal.Decimal
	PendingOrders int
	KillSwitch    bool
	MaxQty        int
}

type Gate struct{}

// Evaluate returns nil when the entry intent may proceed.
func (g Gate) Evaluate(intent strategy.TradeIntent, ctx Context) error {
	slog.Info("risk evaluation", "symbol", intent.Symbol, "side", intent.Side, "qty", intent.Qty, "held", ctx.HeldQty)

	if ctx.KillSwitch {
		slog.Info("risk rejected", "reason", "kill_switch_enabled")
		return fmt.Errorf("kill_switch_enabled")
	}
	if ctx.PendingOrders > 0 {
		slog.Info("risk rejected", "reason", "open_order_exists", "count", ctx.PendingOrders)
		return fmt.Errorf("open_order_exists")
	}
	if intent.Qty <= 0 {
		slog.Info("risk rejected", "reason", "invalid_quantity", "qty", intent.Qty)
		return fmt.Errorf("invalid_quantity")
	}
	if intent.Qty > ctx.MaxQty {
		slog.Info("risk rejected", "reason", "max_position_exceeded", "qty", intent.Qty, "max", ctx.MaxQty)
		return fmt.Errorf("max_position_exceeded")
	}
	if ctx.HeldQty.IsPositive() {
		slog.Info("risk rejected", "reason", "position_already_open", "held", ctx.HeldQty)
		return fmt.Errorf("position_already_open")
	}

	slog.Info("risk approved", "symbol", intent.Symbol, "qty", intent.Qty, "reason", intent.Reason)
	return nil
}
