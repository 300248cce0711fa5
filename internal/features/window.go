package features

import (
	"sort"
	"time"

	"github.com/sawpanic/regimewatch/internal/candle"
	"github.com/sawpanic/regimewatch/internal/session"
)

// sessionToDateBars returns the 1-minute bars belonging to now's regular
// session, up to and including now.
func sessionToDateBars(bars []candle.Candle, now time.Time) []candle.Candle {
	year, month, day := session.LocalDate(now)
	out := make([]candle.Candle, 0, len(bars))
	for _, c := range bars {
		if c.Timestamp.After(now) {
			continue
		}
		y, m, d := session.LocalDate(c.Timestamp)
		if y != year || m != month || d != day {
			continue
		}
		if !session.IsRegularSession(c.Timestamp) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// openingRangeBars returns the 1-minute bars in now's opening range window
// (08:30-09:00 CT), up to and including now.
func openingRangeBars(bars []candle.Candle, now time.Time) []candle.Candle {
	year, month, day := session.LocalDate(now)
	out := make([]candle.Candle, 0, 30)
	for _, c := range bars {
		if c.Timestamp.After(now) {
			continue
		}
		y, m, d := session.LocalDate(c.Timestamp)
		if y != year || m != month || d != day {
			continue
		}
		if session.PhaseAt(c.Timestamp) != session.OpeningRange {
			continue
		}
		out = append(out, c)
	}
	return out
}

// priorSessionRanges groups 1-minute bars by America/Chicago calendar date,
// excluding now's own date, and returns each prior date's regular-session
// high-low range ordered oldest-to-newest, capped to the most recent 20.
func priorSessionRanges(bars []candle.Candle, now time.Time) []float64 {
	year, month, day := session.LocalDate(now)

	type key struct {
		y int
		m time.Month
		d int
	}
	ranges := map[key]*struct{ high, low float64 }{}
	var order []key

	for _, c := range bars {
		if !session.IsRegularSession(c.Timestamp) {
			continue
		}
		y, m, d := session.LocalDate(c.Timestamp)
		if y == year && m == month && d == day {
			continue
		}
		k := key{y, m, d}
		r, ok := ranges[k]
		if !ok {
			r = &struct{ high, low float64 }{high: c.High, low: c.Low}
			ranges[k] = r
			order = append(order, k)
		} else {
			if c.High > r.high {
				r.high = c.High
			}
			if c.Low < r.low {
				r.low = c.Low
			}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.y != b.y {
			return a.y < b.y
		}
		if a.m != b.m {
			return a.m < b.m
		}
		return a.d < b.d
	})

	out := make([]float64, 0, len(order))
	for _, k := range order {
		r := ranges[k]
		out = append(out, r.high-r.low)
	}
	if len(out) > 20 {
		out = out[len(out)-20:]
	}
	return out
}

func sumVolume(bars []candle.Candle) int64 {
	var total int64
	for _, c := range bars {
		total += c.Volume
	}
	return total
}

func closes(bars []candle.Candle) []float64 {
	out := make([]float64, len(bars))
	for i, c := range bars {
		out[i] = c.Close
	}
	return out
}
