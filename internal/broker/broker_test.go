package broker

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuotePriceFallsBackToBid(t *testing.T) {
	q := Quote{AskPrice: decimal.Zero, BidPrice: decimal.NewFromFloat(49.95)}
	if !q.Price().Equal(decimal.NewFromFloat(49.95)) {
		t.Fatalf("expected bid fallback, got %s", q.Price())
	}

	q = Quote{AskPrice: decimal.NewFromFloat(50.01), BidPrice: decimal.NewFromFloat(49.95)}
	if !q.Price().Equal(decimal.NewFromFloat(50.01)) {
		t.Fatalf("expected ask, got %s", q.Price())
	}
}

func TestOrderUpdateTerminal(t *testing.T) {
	for _, status := range []string{StatusFilled, StatusRejected, StatusCanceled, StatusExpired} {
		if !(OrderUpdate{Status: status}).Terminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
	for _, status := range []string{StatusNew, StatusAccepted, StatusPartial} {
		if (OrderUpdate{Status: status}).Terminal() {
			t.Fatalf("expected %s to be non-terminal", status)
		}
	}
}

func TestSimulatorFillsAndTracksPosition(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	sim.SetQuote("TQQQ", decimal.NewFromFloat(50.01), decimal.NewFromFloat(49.99))

	ref, err := sim.PlaceMarketOrder(ctx, OrderRequest{
		Symbol: "TQQQ", Side: Buy, Qty: decimal.NewFromInt(2), ClientOrderID: "tok-1",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	upd, err := sim.OrderStatus(ctx, ref.ID)
	if err != nil {
		t.Fatalf("order status: %v", err)
	}
	if upd.Status != StatusFilled || !upd.AvgFillPrice.Equal(decimal.NewFromFloat(50.01)) {
		t.Fatalf("unexpected fill: %+v", upd)
	}

	held, err := sim.Position(ctx, "TQQQ")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if !held.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected held 2, got %s", held)
	}
}

func TestSimulatorIsIdempotentOnClientOrderID(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	sim.SetQuote("TQQQ", decimal.NewFromFloat(50), decimal.NewFromFloat(50))

	req := OrderRequest{Symbol: "TQQQ", Side: Buy, Qty: decimal.NewFromInt(1), ClientOrderID: "tok-1"}
	first, err := sim.PlaceMarketOrder(ctx, req)
	if err != nil {
		t.Fatalf("first place: %v", err)
	}
	second, err := sim.PlaceMarketOrder(ctx, req)
	if err != nil {
		t.Fatalf("second place: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same order, got %s and %s", first.ID, second.ID)
	}

	held, _ := sim.Position(ctx, "TQQQ")
	if !held.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected held 1 after duplicate submission, got %s", held)
	}

	upd, err := sim.OrderByClientID(ctx, "tok-1")
	if err != nil {
		t.Fatalf("order by client id: %v", err)
	}
	if upd.Ref.ID != first.ID {
		t.Fatalf("client id lookup mismatch")
	}
}
