// Package engine owns the trading-window state machine. One Engine drives
// one TradingDay at a time through open capture, entry decision, and forced
// exit, serializing every transition behind a single mutex. A tick after a
// missed instant catches up using the current quote, so each day's entry
// logic runs at most once even across process restarts.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"daybot/internal/broker"
	"daybot/internal/calendar"
	"daybot/internal/event"
	"daybot/internal/executor"
	"daybot/internal/ledger"
	"daybot/internal/risk"
	"daybot/internal/state"
	"daybot/internal/strategy"
	"daybot/internal/summary"
)

// A trigger executed later than this past its instant is reported as missed.
const missedGrace = 2 * time.Minute

// Options wires an Engine.
type Options struct {
	Calendar *calendar.Calendar
	Triggers calendar.Triggers
	Gateway  broker.Gateway
	Executor *executor.Executor
	Ledger   *ledger.Ledger
	Bus      *event.Bus
	Recorder summary.Recorder
	Store    *state.Store

	ReferenceSymbol string
	LongSymbol      string
	ShortSymbol     string
	Quantity        int
	KillSwitch      bool
}

// Engine is the trade window controller.
type Engine struct {
	mu   sync.Mutex
	opts Options
	gate risk.Gate
	day  *state.TradingDay
}

func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Restore adopts a checkpoint from an earlier process on the same calendar
// day. Checkpoints from other days are discarded; an unresolved position in
// one is escalated before discarding.
func (e *Engine) Restore(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	day, err := e.opts.Store.Load()
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if day == nil {
		return nil
	}
	if day.Key != e.opts.Calendar.DayKey(now) {
		if day.EntryFill != nil && day.ExitFill == nil && !day.Done() {
			e.emit(day, event.TypeUnresolvedPosition, event.SeverityError, map[string]any{
				"symbol": day.Symbol,
				"phase":  string(day.Phase),
			})
			e.record(context.Background(), day, "unresolved_overnight")
		}
		return nil
	}
	e.day = day
	slog.Info("resumed trading day from checkpoint", "day", day.Key, "phase", day.Phase)
	return nil
}

// Day returns a copy of the current TradingDay, or nil before the first
// tick.
func (e *Engine) Day() *state.TradingDay {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.day == nil {
		return nil
	}
	copy := *e.day
	return &copy
}

// Tick advances the state machine to wherever the clock says it should be.
// It is the single entry point: the scheduler calls it at each trigger
// instant and on the periodic still-open check, and main calls it once at
// startup for catch-up. Transitions never run concurrently.
func (e *Engine) Tick(ctx context.Context, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rollDay(now)

	if !e.opts.Calendar.IsTradingDay(now) {
		return nil
	}

	for {
		progressed, err := e.step(ctx, now)
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// step performs at most one transition. Returning progressed=true makes
// Tick loop again, which is how a late start catches up through several
// triggers in one call.
func (e *Engine) step(ctx context.Context, now time.Time) (bool, error) {
	openAt := e.opts.Calendar.At(now, e.opts.Triggers.OpenCapture)
	entryAt := e.opts.Calendar.At(now, e.opts.Triggers.Entry)
	exitAt := e.opts.Calendar.At(now, e.opts.Triggers.Exit)

	switch e.day.Phase {
	case state.PhaseAwaitingOpenCapture:
		if !now.Before(exitAt) {
			// Started after the exit instant: nothing to capture or decide,
			// just make sure the book is flat and close the day.
			e.reportMissed(e.opts.Triggers.OpenCapture, openAt, now)
			e.reportMissed(e.opts.Triggers.Entry, entryAt, now)
			return true, e.transitionToExit(ctx, now)
		}
		if !now.Before(openAt) {
			e.reportMissed(e.opts.Triggers.OpenCapture, openAt, now)
			return true, e.captureOpen(ctx)
		}
		return false, nil

	case state.PhaseAwaitingEntryDecision:
		if !now.Before(exitAt) {
			e.reportMissed(e.opts.Triggers.Entry, entryAt, now)
			return true, e.transitionToExit(ctx, now)
		}
		if !now.Before(entryAt) {
			e.reportMissed(e.opts.Triggers.Entry, entryAt, now)
			return true, e.enter(ctx)
		}
		return false, nil

	case state.PhasePositionOpen, state.PhaseClosedFlat:
		if !now.Before(exitAt) {
			return true, e.transitionToExit(ctx, now)
		}
		return false, nil

	case state.PhaseAwaitingExit:
		// Retried on every tick until the book reads flat; a failed exit
		// never ends the day early.
		return false, e.exit(context.WithoutCancel(ctx))

	default: // PhaseClosed
		return false, nil
	}
}

// rollDay starts a fresh TradingDay when the market-local date changes. A
// day abandoned with a live position is escalated, never silently dropped.
func (e *Engine) rollDay(now time.Time) {
	key := e.opts.Calendar.DayKey(now)
	if e.day != nil && e.day.Key == key {
		return
	}
	if e.day != nil && !e.day.Done() {
		if e.day.EntryFill != nil && e.day.ExitFill == nil {
			e.emit(e.day, event.TypeUnresolvedPosition, event.SeverityError, map[string]any{
				"symbol": e.day.Symbol,
				"phase":  string(e.day.Phase),
			})
			e.record(context.Background(), e.day, "unresolved_overnight")
		}
	}
	e.day = &state.TradingDay{Key: key, Phase: state.PhaseAwaitingOpenCapture}
	e.checkpoint()
	slog.Info("trading day started", "day", key)
}

// captureOpen reads one reference quote and stores it as the day's open
// capture price. Skipped when a restart already captured it.
func (e *Engine) captureOpen(ctx context.Context) error {
	if e.day.OpenCapture == nil {
		quote, err := e.opts.Gateway.LatestQuote(ctx, e.opts.ReferenceSymbol)
		if err != nil {
			return fmt.Errorf("open capture quote: %w", err)
		}
		price := quote.Price()
		if !price.IsPositive() {
			return fmt.Errorf("open capture quote for %s is not positive: %s", e.opts.ReferenceSymbol, price)
		}
		e.day.OpenCapture = &price
	}
	e.day.Phase = state.PhaseAwaitingEntryDecision
	e.checkpoint()
	e.emit(e.day, event.TypeOpenCaptured, event.SeverityInfo, map[string]any{
		"symbol": e.opts.ReferenceSymbol,
		"price":  e.day.OpenCapture.String(),
	})
	return nil
}

// enter makes the once-per-day decision and places the entry order. The
// decision and the order's idempotency token are checkpointed before
// submission, so a crash between here and confirmation cannot double-buy.
func (e *Engine) enter(ctx context.Context) error {
	if e.day.Decision == state.DecisionUnset {
		quote, err := e.opts.Gateway.LatestQuote(ctx, e.opts.ReferenceSymbol)
		if err != nil {
			return fmt.Errorf("entry quote: %w", err)
		}
		price := quote.Price()
		e.day.EntryQuote = &price

		intent := strategy.OpeningRange{
			LongSymbol:  e.opts.LongSymbol,
			ShortSymbol: e.opts.ShortSymbol,
			Qty:         e.opts.Quantity,
		}.Decide(strategy.Snapshot{OpenCapture: *e.day.OpenCapture, Quote: price})

		if intent.Symbol == e.opts.LongSymbol {
			e.day.Decision = state.DecisionLong
		} else {
			e.day.Decision = state.DecisionShort
		}
		e.day.Symbol = intent.Symbol
		e.emit(e.day, event.TypeEntryDecision, event.SeverityInfo, map[string]any{
			"symbol":       intent.Symbol,
			"side":         string(intent.Side),
			"reason":       intent.Reason,
			"open_capture": e.day.OpenCapture.String(),
			"quote":        price.String(),
		})
	}

	intent := strategy.TradeIntent{
		Symbol: e.day.Symbol,
		Side:   broker.Buy,
		Qty:    e.opts.Quantity,
		Reason: "entry",
	}
	if err := e.gate.Evaluate(intent, risk.Context{
		HeldQty:    e.opts.Ledger.Held(intent.Symbol),
		KillSwitch: e.opts.KillSwitch,
		MaxQty:     e.opts.Quantity,
	}); err != nil {
		e.day.Phase = state.PhaseClosedFlat
		e.checkpoint()
		e.emit(e.day, event.TypeOrderFailed, event.SeverityWarning, map[string]any{
			"stage":  "entry",
			"reason": err.Error(),
		})
		return nil
	}

	if e.day.EntryOrderID == "" {
		e.day.EntryOrderID = uuid.NewString()
	}
	e.checkpoint()

	fill, err := e.opts.Executor.Submit(ctx, broker.OrderRequest{
		Symbol:        e.day.Symbol,
		Side:          broker.Buy,
		Qty:           decimal.NewFromInt(int64(e.opts.Quantity)),
		ClientOrderID: e.day.EntryOrderID,
	})
	if err != nil {
		// Terminal entry failure ends the position attempt for the day; the
		// exit trigger still reconciles in case the order filled unseen.
		e.day.Phase = state.PhaseClosedFlat
		e.checkpoint()
		e.emit(e.day, event.TypeOrderFailed, event.SeverityError, map[string]any{
			"stage":  "entry",
			"symbol": e.day.Symbol,
			"reason": err.Error(),
		})
		return nil
	}

	e.day.EntryFill = &fill
	e.opts.Ledger.RecordFill(fill)
	e.day.Phase = state.PhasePositionOpen
	e.checkpoint()
	e.emit(e.day, event.TypeOrderFilled, event.SeverityInfo, map[string]any{
		"stage":     "entry",
		"symbol":    fill.Symbol,
		"side":      string(fill.Side),
		"qty":       fill.Qty.String(),
		"avg_price": fill.AvgPrice.String(),
		"order_id":  fill.BrokerOrderID,
	})
	return nil
}

// transitionToExit enters AwaitingExit and runs the flatten immediately. A
// flatten in progress outlives shutdown: leaving a position open overnight
// is the one failure mode this bot must not have.
func (e *Engine) transitionToExit(ctx context.Context, now time.Time) error {
	exitAt := e.opts.Calendar.At(now, e.opts.Triggers.Exit)
	e.reportMissed(e.opts.Triggers.Exit, exitAt, now)
	e.day.Phase = state.PhaseAwaitingExit
	e.checkpoint()
	return e.exit(context.WithoutCancel(ctx))
}

// exit reconciles against the brokerage and flattens whatever is actually
// held. Both routed instruments are checked: after an unconfirmed entry the
// broker may hold a position the ledger does not know about.
func (e *Engine) exit(ctx context.Context) error {
	flat := true
	for _, symbol := range e.exitSymbols() {
		held, err := e.opts.Ledger.Reconcile(ctx, symbol)
		if err != nil {
			e.emit(e.day, event.TypeOrderFailed, event.SeverityError, map[string]any{
				"stage":  "exit_reconcile",
				"symbol": symbol,
				"reason": err.Error(),
			})
			flat = false
			continue
		}
		if !held.IsPositive() {
			continue
		}

		if e.day.ExitOrderIDs == nil {
			e.day.ExitOrderIDs = make(map[string]string)
		}
		if e.day.ExitOrderIDs[symbol] == "" {
			e.day.ExitOrderIDs[symbol] = uuid.NewString()
			e.checkpoint()
		}
		fill, err := e.opts.Executor.Submit(ctx, broker.OrderRequest{
			Symbol:        symbol,
			Side:          broker.Sell,
			Qty:           held,
			ClientOrderID: e.day.ExitOrderIDs[symbol],
		})
		if err != nil {
			if oe, ok := executor.AsOrderError(err); ok && oe.Kind == executor.KindRejected {
				// The token is burned on a dead order; next attempt needs a
				// fresh one.
				delete(e.day.ExitOrderIDs, symbol)
				e.checkpoint()
			}
			e.emit(e.day, event.TypeOrderFailed, event.SeverityError, map[string]any{
				"stage":  "exit",
				"symbol": symbol,
				"reason": err.Error(),
			})
			flat = false
			continue
		}

		e.opts.Ledger.RecordFill(fill)
		if e.day.ExitFill == nil {
			e.day.ExitFill = &fill
		}
		e.checkpoint()
		e.emit(e.day, event.TypePositionFlattened, event.SeverityInfo, map[string]any{
			"symbol":    fill.Symbol,
			"qty":       fill.Qty.String(),
			"avg_price": fill.AvgPrice.String(),
		})
	}

	if !flat {
		// Stay in AwaitingExit; the periodic check retries until flat or the
		// calendar date rolls over.
		return nil
	}

	e.day.Phase = state.PhaseClosed
	e.checkpoint()
	e.record(ctx, e.day, "closed")
	return nil
}

// exitSymbols returns the instruments the exit reconciliation must check.
func (e *Engine) exitSymbols() []string {
	if e.day.Symbol != "" && e.day.Symbol != e.opts.LongSymbol && e.day.Symbol != e.opts.ShortSymbol {
		return []string{e.day.Symbol, e.opts.LongSymbol, e.opts.ShortSymbol}
	}
	return []string{e.opts.LongSymbol, e.opts.ShortSymbol}
}

func (e *Engine) reportMissed(trigger calendar.ClockTime, at, now time.Time) {
	if now.Sub(at) <= missedGrace {
		return
	}
	e.emit(e.day, event.TypeMissedTrigger, event.SeverityWarning, map[string]any{
		"trigger":       trigger.String(),
		"scheduled_for": at.Format(time.RFC3339),
		"executed_at":   now.Format(time.RFC3339),
	})
}

// record builds and persists the day's summary and publishes it as an
// event. Summary failures are logged, never fatal.
func (e *Engine) record(ctx context.Context, day *state.TradingDay, outcome string) {
	s := summary.DaySummary{
		Day:         day.Key,
		Outcome:     outcome,
		OpenCapture: day.OpenCapture,
		EntryQuote:  day.EntryQuote,
		Decision:    string(day.Decision),
		Symbol:      day.Symbol,
		RealizedPnL: summary.RealizedPnL(day.EntryFill, day.ExitFill),
	}
	for _, fill := range []*broker.Fill{day.EntryFill, day.ExitFill} {
		if fill == nil {
			continue
		}
		s.Trades = append(s.Trades, summary.TradeRow{
			Time:     fill.FilledAt,
			Symbol:   fill.Symbol,
			Side:     fill.Side,
			Qty:      fill.Qty,
			AvgPrice: fill.AvgPrice,
			OrderID:  fill.BrokerOrderID,
		})
	}
	if acct, err := e.opts.Gateway.Account(ctx); err == nil {
		s.Equity = acct.Equity
		s.BuyingPower = acct.BuyingPower
	}

	if err := e.opts.Recorder.Record(ctx, s); err != nil {
		slog.Error("summary record failed", "day", s.Day, "error", err)
	}
	e.emit(day, event.TypeDailySummary, event.SeverityInfo, map[string]any{
		"outcome":      s.Outcome,
		"decision":     s.Decision,
		"trades":       len(s.Trades),
		"realized_pnl": s.RealizedPnL.String(),
	})
}

func (e *Engine) checkpoint() {
	if err := e.opts.Store.Save(e.day); err != nil {
		slog.Error("checkpoint save failed", "day", e.day.Key, "error", err)
	}
}

func (e *Engine) emit(day *state.TradingDay, t event.Type, sev event.Severity, fields map[string]any) {
	e.opts.Bus.Publish(event.Event{
		Type:     t,
		Severity: sev,
		Day:      day.Key,
		Fields:   fields,
	})
}
