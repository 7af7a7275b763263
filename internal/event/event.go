// Package event defines the structured events the trading core produces and
// a fanout bus that delivers them to any number of sinks. Sinks render or
// persist; the core never knows which sinks are attached.
package event

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

type Type string

const (
	TypeBotStarted         Type = "bot_started"
	TypeOpenCaptured       Type = "open_captured"
	TypeEntryDecision      Type = "entry_decision"
	TypeOrderFilled        Type = "order_filled"
	TypeOrderFailed        Type = "order_failed"
	TypePositionFlattened  Type = "position_flattened"
	TypeMissedTrigger      Type = "missed_trigger"
	TypeDailySummary       Type = "daily_summary"
	TypeUnresolvedPosition Type = "unresolved_position"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one structured notification.
type Event struct {
	Type     Type           `json:"type"`
	Time     time.Time      `json:"time"`
	Severity Severity       `json:"severity"`
	Day      string         `json:"day,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// Sink receives published events. Implementations must tolerate concurrent
// calls.
type Sink interface {
	Publish(Event) error
}

// Bus fans events out to all subscribed sinks. A failing sink is logged and
// never blocks the others.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish delivers ev to every sink, stamping the time and defaulting the
// severity when unset.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	if ev.Severity == "" {
		ev.Severity = SeverityInfo
	}

	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Publish(ev); err != nil {
			slog.Error("event sink failed", "type", ev.Type, "error", err)
		}
	}
}

// Close closes every sink that is an io.Closer.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Error("event sink close failed", "error", err)
			}
		}
	}
}
