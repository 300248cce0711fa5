// Package session maps a wall-clock instant onto the named segments of the
// America/Chicago trading day that the feature calculator and classifier
// key their behavior off of.
package session

import (
	"fmt"
	"time"
)

// Phase is one of the named session segments, or Extended outside all of them.
type Phase string

const (
	PreOpen       Phase = "pre_open"
	OpeningRange  Phase = "opening_range"
	MidMorning    Phase = "mid_morning"
	Lunch         Phase = "lunch"
	MidAfternoon  Phase = "mid_afternoon"
	PowerHour     Phase = "power_hour"
	Close         Phase = "close"
	Extended      Phase = "extended"
)

// chicago is loaded once; a missing tzdata entry is a deployment defect, so
// we fail fast at package init rather than silently falling back to UTC.
var chicago = mustLoadLocation("America/Chicago")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("session: failed to load timezone %q: %v", name, err))
	}
	return loc
}

type window struct {
	phase           Phase
	startMin, endMin int // minutes since local midnight, [start, end)
}

// windows is ordered; the first match wins. Anything unmatched is Extended.
var windows = []window{
	{PreOpen, 5 * 60, 8*60 + 30},
	{OpeningRange, 8*60 + 30, 9 * 60},
	{MidMorning, 9 * 60, 11*60 + 30},
	{Lunch, 11*60 + 30, 13 * 60},
	{MidAfternoon, 13 * 60, 15 * 60},
	{PowerHour, 15 * 60, 16 * 60},
	{Close, 16 * 60, 17 * 60},
}

// sessionOpenMinute is the regular-session open, 08:30 CT, in minutes since
// local midnight.
const sessionOpenMinute = 8*60 + 30

// PhaseAt returns the session phase for instant t, translated to
// America/Chicago local time. Boundaries are inclusive of the lower bound
// and exclusive of the upper bound.
func PhaseAt(t time.Time) Phase {
	local := t.In(chicago)
	minutes := local.Hour()*60 + local.Minute()
	for _, w := range windows {
		if minutes >= w.startMin && minutes < w.endMin {
			return w.phase
		}
	}
	return Extended
}

// MinutesSinceOpen returns minutes elapsed since the most recent 08:30 CT
// boundary on t's local date. If t is before 08:30 CT that same day, the
// result is negative (minutes until the next open).
func MinutesSinceOpen(t time.Time) int {
	local := t.In(chicago)
	minutes := local.Hour()*60 + local.Minute()
	return minutes - sessionOpenMinute
}

// IsRegularSession reports whether t falls within the regular trading
// session: opening_range through power_hour, inclusive.
func IsRegularSession(t time.Time) bool {
	switch PhaseAt(t) {
	case OpeningRange, MidMorning, Lunch, MidAfternoon, PowerHour:
		return true
	default:
		return false
	}
}

// LocalDate returns the America/Chicago calendar date for t, useful for
// grouping candles into session-to-date aggregates like VWAP.
func LocalDate(t time.Time) (year int, month time.Month, day int) {
	local := t.In(chicago)
	return local.Date()
}
