// Package executor places one market order and drives it to a confirmed
// fill or a terminal failure. Submission is idempotent: every logical
// request carries a client-generated token, and an attempt whose outcome is
// unknown is probed at the brokerage before anything is resubmitted.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"daybot/internal/broker"
)

// ErrorKind classifies terminal executor failures.
type ErrorKind string

const (
	// KindRejected means the brokerage definitively refused or killed the
	// order (insufficient buying power, halted symbol, canceled, expired).
	KindRejected ErrorKind = "rejected"
	// KindUnconfirmed means the order could not be confirmed filled within
	// the polling ceiling, or submission kept failing transiently.
	KindUnconfirmed ErrorKind = "unconfirmed"
)

// OrderError is the terminal failure returned by Submit.
type OrderError struct {
	Kind ErrorKind
	Err  error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %s: %v", e.Kind, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

// Policy bounds the retry and polling schedule.
type Policy struct {
	SubmitAttempts int
	BackoffBase    time.Duration
	BackoffCeil    time.Duration
	PollInterval   time.Duration
	MaxPolls       int
}

func DefaultPolicy() Policy {
	return Policy{
		SubmitAttempts: 3,
		BackoffBase:    2 * time.Second,
		BackoffCeil:    10 * time.Second,
		PollInterval:   2 * time.Second,
		MaxPolls:       30,
	}
}

// Executor submits orders through a gateway under a bounded retry policy.
type Executor struct {
	gw     broker.Gateway
	policy Policy
}

func New(gw broker.Gateway, policy Policy) *Executor {
	return &Executor{gw: gw, policy: policy}
}

// Submit places the order and blocks until it is confirmed filled or
// terminally failed. A missing ClientOrderID is generated. Cancellation is
// honored only between attempts, never mid-request.
func (e *Executor) Submit(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	// A caller-supplied token means this logical request may already have
	// been submitted in an earlier process life; probe before placing.
	probeFirst := req.ClientOrderID != ""
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	ref, err := e.submit(ctx, req, probeFirst)
	if err != nil {
		return broker.Fill{}, err
	}
	return e.awaitFill(ctx, req, ref)
}

// submit retries transport failures with exponential backoff. Before any
// resubmission it asks the brokerage whether the token already produced an
// order, so a request whose first attempt silently succeeded is adopted
// rather than duplicated.
func (e *Executor) submit(ctx context.Context, req broker.OrderRequest, probeFirst bool) (broker.OrderRef, error) {
	delay := e.policy.BackoffBase
	var lastErr error

	for attempt := 1; attempt <= e.policy.SubmitAttempts; attempt++ {
		if attempt > 1 || probeFirst {
			if upd, err := e.gw.OrderByClientID(ctx, req.ClientOrderID); err == nil {
				// An order under this token must be the order we asked for.
				// Anything else means the token is stale or reused; adopting
				// it would fabricate a fill for the wrong instrument.
				if upd.Symbol != req.Symbol || upd.Side != req.Side {
					return broker.OrderRef{}, &OrderError{
						Kind: KindRejected,
						Err:  fmt.Errorf("client order id %s belongs to %s %s, not %s %s", req.ClientOrderID, upd.Side, upd.Symbol, req.Side, req.Symbol),
					}
				}
				slog.Info("prior submission found, adopting order", "client_order_id", req.ClientOrderID, "order_id", upd.Ref.ID, "status", upd.Status)
				return upd.Ref, nil
			} else if !broker.IsNotFound(err) && !broker.IsTransient(err) {
				return broker.OrderRef{}, &OrderError{Kind: KindRejected, Err: err}
			}
		}

		ref, err := e.gw.PlaceMarketOrder(ctx, req)
		if err == nil {
			return ref, nil
		}
		lastErr = err
		if !broker.IsTransient(err) {
			return broker.OrderRef{}, &OrderError{Kind: KindRejected, Err: err}
		}

		slog.Warn("order submission failed, will retry", "attempt", attempt, "max", e.policy.SubmitAttempts, "client_order_id", req.ClientOrderID, "error", err)
		if attempt < e.policy.SubmitAttempts {
			if err := sleep(ctx, delay); err != nil {
				return broker.OrderRef{}, &OrderError{Kind: KindUnconfirmed, Err: err}
			}
			delay *= 2
			if delay > e.policy.BackoffCeil {
				delay = e.policy.BackoffCeil
			}
		}
	}
	return broker.OrderRef{}, &OrderError{Kind: KindUnconfirmed, Err: lastErr}
}

// awaitFill polls order status on a fixed schedule until a terminal state
// or the ceiling.
func (e *Executor) awaitFill(ctx context.Context, req broker.OrderRequest, ref broker.OrderRef) (broker.Fill, error) {
	for poll := 0; poll < e.policy.MaxPolls; poll++ {
		upd, err := e.gw.OrderStatus(ctx, ref.ID)
		if err != nil {
			if !broker.IsTransient(err) {
				return broker.Fill{}, &OrderError{Kind: KindRejected, Err: err}
			}
			slog.Warn("order status poll failed", "order_id", ref.ID, "error", err)
		} else {
			switch upd.Status {
			case broker.StatusFilled:
				fill := broker.Fill{
					Symbol:        req.Symbol,
					Side:          req.Side,
					Qty:           upd.FilledQty,
					AvgPrice:      upd.AvgFillPrice,
					BrokerOrderID: ref.ID,
					ClientOrderID: req.ClientOrderID,
					FilledAt:      time.Now().UTC(),
				}
				slog.Info("order filled", "order_id", ref.ID, "symbol", fill.Symbol, "side", fill.Side, "qty", fill.Qty, "avg_price", fill.AvgPrice)
				return fill, nil
			case broker.StatusRejected, broker.StatusCanceled, broker.StatusExpired:
				return broker.Fill{}, &OrderError{Kind: KindRejected, Err: fmt.Errorf("order %s is %s", ref.ID, upd.Status)}
			}
		}

		if err := sleep(ctx, e.policy.PollInterval); err != nil {
			return broker.Fill{}, &OrderError{Kind: KindUnconfirmed, Err: err}
		}
	}
	return broker.Fill{}, &OrderError{Kind: KindUnconfirmed, Err: fmt.Errorf("order %s not confirmed after %d polls", ref.ID, e.policy.MaxPolls)}
}

// AsOrderError unwraps err into an *OrderError when possible.
func AsOrderError(err error) (*OrderError, bool) {
	var oe *OrderError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
