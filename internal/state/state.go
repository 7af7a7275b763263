// Package state defines the TradingDay value, the single record of one
// day's run through the trading window, and a JSON checkpoint store that
// lets a restart on the same calendar day resume instead of re-executing.
package state

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"daybot/internal/broker"
)

// Phase is the trading-window position of a TradingDay.
type Phase string

const (
	PhaseAwaitingOpenCapture   Phase = "awaiting_open_capture"
	PhaseAwaitingEntryDecision Phase = "awaiting_entry_decision"
	PhasePositionOpen          Phase = "position_open"
	PhaseAwaitingExit          Phase = "awaiting_exit"
	PhaseClosed                Phase = "closed"
	// PhaseClosedFlat means the entry never produced a confirmed position.
	// The exit trigger still runs its reconciliation before the day ends.
	PhaseClosedFlat Phase = "closed_flat"
)

// Decision is the once-per-day entry choice.
type Decision string

const (
	DecisionUnset Decision = ""
	DecisionLong  Decision = "long"
	DecisionShort Decision = "short"
)

// TradingDay is created at the first tick of a calendar day and mutated only
// by the controller as triggers resolve.
type TradingDay struct {
	Key         string           `json:"key"`
	Phase       Phase            `json:"phase"`
	OpenCapture *decimal.Decimal `json:"open_capture,omitempty"`
	EntryQuote  *decimal.Decimal `json:"entry_quote,omitempty"`
	Decision    Decision         `json:"decision"`
	Symbol      string           `json:"symbol,omitempty"`
	EntryFill   *broker.Fill     `json:"entry_fill,omitempty"`
	ExitFill    *broker.Fill     `json:"exit_fill,omitempty"`

	// Idempotency tokens are checkpointed before submission, so a restart
	// resumes the same logical order instead of placing a second one. Exit
	// tokens are keyed by symbol: the flatten may have to sell both routed
	// instruments, and each sell is its own logical order.
	EntryOrderID string            `json:"entry_order_id,omitempty"`
	ExitOrderIDs map[string]string `json:"exit_order_ids,omitempty"`
}

// Done reports whether the day has fully resolved.
func (d *TradingDay) Done() bool {
	return d.Phase == PhaseClosed
}

// Store checkpoints the current TradingDay to a file after every
// transition.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Save(day *TradingDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(day, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Load returns the checkpointed day, or nil when no checkpoint exists.
func (s *Store) Load() (*TradingDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var day TradingDay
	if err := json.Unmarshal(data, &day); err != nil {
		return nil, err
	}
	return &day, nil
}
