// Package calendar answers market-time questions: whether a date is a
// trading day, when the day's trigger instants fall, and what calendar date
// an instant belongs to. It is pure: the holiday table and timezone are
// injected, and no method performs I/O.
package calendar

import (
	"fmt"
	"time"
)

// ClockTime is a wall-clock time of day in the market's reference timezone.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM" into a ClockTime.
func ParseClockTime(s string) (ClockTime, error) {
	var ct ClockTime
	if _, err := fmt.Sscanf(s, "%d:%d", &ct.Hour, &ct.Minute); err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	if ct.Hour < 0 || ct.Hour > 23 || ct.Minute < 0 || ct.Minute > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q out of range", s)
	}
	return ct, nil
}

// Before reports whether ct is strictly earlier in the day than other.
func (ct ClockTime) Before(other ClockTime) bool {
	if ct.Hour != other.Hour {
		return ct.Hour < other.Hour
	}
	return ct.Minute < other.Minute
}

func (ct ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", ct.Hour, ct.Minute)
}

// Triggers are the three daily instants driving the trading window.
type Triggers struct {
	OpenCapture ClockTime
	Entry       ClockTime
	Exit        ClockTime
}

// Calendar provides trading-day and trigger-instant arithmetic for one
// market, identified by its reference timezone.
type Calendar struct {
	loc      *time.Location
	holidays map[string]bool
}

// New builds a Calendar for the given timezone. Holidays are "2006-01-02"
// dates in the market timezone; weekends are always excluded.
func New(loc *time.Location, holidays []string) (*Calendar, error) {
	table := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		if _, err := time.ParseInLocation("2006-01-02", h, loc); err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		table[h] = true
	}
	return &Calendar{loc: loc, holidays: table}, nil
}

// Location returns the market reference timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// MarketLocal converts an instant to market-local time.
func (c *Calendar) MarketLocal(t time.Time) time.Time {
	return t.In(c.loc)
}

// DayKey returns the market-local calendar date ("2006-01-02") that t falls
// on. The key identifies a TradingDay.
func (c *Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// IsTradingDay reports whether the market-local date of t is a weekday and
// not in the holiday table.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays[local.Format("2006-01-02")]
}

// At returns the instant of the given clock time on t's market-local date.
func (c *Calendar) At(t time.Time, ct ClockTime) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), ct.Hour, ct.Minute, 0, 0, c.loc)
}

// Until returns how long from now until the given clock time today. Negative
// when the instant has already passed.
func (c *Calendar) Until(now time.Time, ct ClockTime) time.Duration {
	return c.At(now, ct).Sub(now)
}
