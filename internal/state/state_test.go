package state

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"daybot/internal/broker"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "checkpoint.json"))

	price := decimal.NewFromFloat(50.25)
	day := &TradingDay{
		Key:          "2026-03-03",
		Phase:        PhasePositionOpen,
		OpenCapture:  &price,
		Decision:     DecisionLong,
		Symbol:       "TQQQ",
		EntryOrderID: "tok-entry",
		ExitOrderIDs: map[string]string{"TQQQ": "tok-exit"},
		EntryFill: &broker.Fill{
			Symbol: "TQQQ", Side: broker.Buy,
			Qty: decimal.NewFromInt(1), AvgPrice: decimal.NewFromFloat(50.30),
			BrokerOrderID: "ord-1",
		},
	}
	if err := store.Save(day); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatalf("expected checkpoint")
	}
	if loaded.Key != day.Key || loaded.Phase != day.Phase || loaded.Decision != day.Decision {
		t.Fatalf("mismatch: %+v", loaded)
	}
	if loaded.OpenCapture == nil || !loaded.OpenCapture.Equal(price) {
		t.Fatalf("open capture not preserved: %v", loaded.OpenCapture)
	}
	if loaded.EntryOrderID != "tok-entry" {
		t.Fatalf("entry order id not preserved: %q", loaded.EntryOrderID)
	}
	if loaded.ExitOrderIDs["TQQQ"] != "tok-exit" {
		t.Fatalf("exit order ids not preserved: %v", loaded.ExitOrderIDs)
	}
	if loaded.EntryFill == nil || loaded.EntryFill.BrokerOrderID != "ord-1" {
		t.Fatalf("entry fill not preserved: %+v", loaded.EntryFill)
	}
}

func TestLoadMissingCheckpointReturnsNil(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"))
	day, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if day != nil {
		t.Fatalf("expected nil, got %+v", day)
	}
}

func TestDone(t *testing.T) {
	if (&TradingDay{Phase: PhaseAwaitingExit}).Done() {
		t.Fatalf("awaiting exit is not done")
	}
	if !(&TradingDay{Phase: PhaseClosed}).Done() {
		t.Fatalf("closed is done")
	}
}
