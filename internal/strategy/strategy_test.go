package strategy

import (
	"testing"

	"github.com/shopspring/decimal"

	"daybot/internal/broker"
)

func openingRange() OpeningRange {
	return OpeningRange{LongSymbol: "TQQQ", ShortSymbol: "SQQQ", Qty: 1}
}

func TestDecideAboveOpenRoutesLong(t *testing.T) {
	intent := openingRange().Decide(Snapshot{
		OpenCapture: decimal.NewFromFloat(50.00),
		Quote:       decimal.NewFromFloat(50.01),
	})
	if intent.Symbol != "TQQQ" || intent.Side != broker.Buy {
		t.Fatalf("expected buy TQQQ, got %+v", intent)
	}
}

func TestDecideBelowOpenRoutesShort(t *testing.T) {
	intent := openingRange().Decide(Snapshot{
		OpenCapture: decimal.NewFromFloat(50.00),
		Quote:       decimal.NewFromFloat(49.99),
	})
	if intent.Symbol != "SQQQ" || intent.Side != broker.Buy {
		t.Fatalf("expected buy SQQQ, got %+v", intent)
	}
}

// An exact tie routes to the short instrument. This mirrors the strategy as
// originally written and is a fixed contract.
func TestDecideTieRoutesShort(t *testing.T) {
	intent := openingRange().Decide(Snapshot{
		OpenCapture: decimal.NewFromFloat(50.00),
		Quote:       decimal.NewFromFloat(50.00),
	})
	if intent.Symbol != "SQQQ" {
		t.Fatalf("expected tie to route to SQQQ, got %s", intent.Symbol)
	}
}
