package event

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Publish(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

type failingSink struct{}

func (failingSink) Publish(Event) error { return errors.New("sink down") }

func TestBusFansOutToAllSinks(t *testing.T) {
	bus := NewBus()
	a := &captureSink{}
	b := &captureSink{}
	bus.Subscribe(a)
	bus.Subscribe(b)

	bus.Publish(Event{Type: TypeOpenCaptured, Day: "2026-03-03"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both sinks to receive the event")
	}
	if a.events[0].Time.IsZero() {
		t.Fatalf("expected time to be stamped")
	}
	if a.events[0].Severity != SeverityInfo {
		t.Fatalf("expected default severity info, got %s", a.events[0].Severity)
	}
}

func TestBusSurvivesFailingSink(t *testing.T) {
	bus := NewBus()
	healthy := &captureSink{}
	bus.Subscribe(failingSink{})
	bus.Subscribe(healthy)

	bus.Publish(Event{Type: TypeOrderFilled})

	if len(healthy.events) != 1 {
		t.Fatalf("failing sink must not block delivery")
	}
}

func TestJournalWritesOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	journal, err := NewJournal(path)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}

	events := []Event{
		{Type: TypeOpenCaptured, Day: "2026-03-03", Fields: map[string]any{"price": "50.00"}},
		{Type: TypeEntryDecision, Day: "2026-03-03", Fields: map[string]any{"symbol": "SQQQ"}},
	}
	for _, ev := range events {
		if err := journal.Publish(ev); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if err := journal.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}
