// Package schedule wakes the engine at the three daily trigger instants and
// on a once-a-minute safety check, all in the market's timezone. The engine
// serializes its own transitions, so overlapping firings are harmless.
package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"daybot/internal/calendar"
)

// Tick is invoked with the wall-clock time of each firing.
type Tick func(now time.Time)

// Scheduler drives the engine's clock with cron entries.
type Scheduler struct {
	cron *cron.Cron
}

func New(loc *time.Location) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
	}
}

// Register installs one entry per trigger instant plus the periodic check.
// Weekday filtering happens in the calendar, not here, so holiday handling
// stays in one place.
func (s *Scheduler) Register(triggers calendar.Triggers, tick Tick) error {
	for _, ct := range []calendar.ClockTime{triggers.OpenCapture, triggers.Entry, triggers.Exit} {
		spec := fmt.Sprintf("0 %d %d * * MON-FRI", ct.Minute, ct.Hour)
		if _, err := s.cron.AddFunc(spec, func() { tick(time.Now()) }); err != nil {
			return fmt.Errorf("register trigger %s: %w", ct, err)
		}
	}
	// Still-open check: catches missed triggers and retries a failing exit.
	if _, err := s.cron.AddFunc("0 * * * * *", func() { tick(time.Now()) }); err != nil {
		return fmt.Errorf("register periodic check: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop waits for a running job to finish before returning.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}
