// Package contract resolves the front-month symbol for an instrument at a
// given instant, applying the 10-day pre/post-expiration rollover rule
// against the quarterly H/M/U/Z cycle.
package contract

import (
	"fmt"
	"time"

	"github.com/sawpanic/regimewatch/internal/candle"
)

// quarterlyMonths are the contract months in the Mar/Jun/Sep/Dec cycle.
var quarterlyMonths = []time.Month{time.March, time.June, time.September, time.December}

var monthCode = map[time.Month]string{
	time.March:     "H",
	time.June:      "M",
	time.September: "U",
	time.December:  "Z",
}

const rolloverWindow = 10 * 24 * time.Hour

// Resolve computes the front-month Symbol for instrument at instant t.
// Returns *candle.InvalidInstrumentError if the instrument root is unknown.
func Resolve(instrument candle.Instrument, t time.Time) (candle.Symbol, error) {
	if err := instrument.Validate(); err != nil {
		return "", err
	}

	t = t.UTC()
	year, month := currentQuarterContract(t)
	expiration := thirdFridayUTC(year, month)

	if withinRolloverWindow(t, expiration) {
		year, month = nextQuarterContract(year, month)
	}

	code := monthCode[month]
	symbol := fmt.Sprintf("/%s%s%02d", instrument, code, year%100)
	return candle.Symbol(symbol), nil
}

// currentQuarterContract returns the quarterly contract (year, month) whose
// month is the smallest quarterly month >= t's month, within t's year.
func currentQuarterContract(t time.Time) (int, time.Month) {
	year := t.Year()
	for _, m := range quarterlyMonths {
		if m >= t.Month() {
			return year, m
		}
	}
	// Unreachable: December is always >= any month 1-12.
	return year, time.December
}

// nextQuarterContract returns the quarterly contract following (year, month).
// Advancing from December of year N lands on March of year N+1.
func nextQuarterContract(year int, month time.Month) (int, time.Month) {
	for i, m := range quarterlyMonths {
		if m == month {
			if i == len(quarterlyMonths)-1 {
				return year + 1, quarterlyMonths[0]
			}
			return year, quarterlyMonths[i+1]
		}
	}
	return year, month
}

// thirdFridayUTC returns 00:00 UTC on the third Friday of the given month.
func thirdFridayUTC(year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	firstFriday := first.AddDate(0, 0, offset)
	return firstFriday.AddDate(0, 0, 14)
}

// withinRolloverWindow reports whether t falls within 10 calendar days
// before or after expiration, inclusive.
func withinRolloverWindow(t, expiration time.Time) bool {
	diff := t.Sub(expiration)
	if diff < 0 {
		diff = -diff
	}
	return diff <= rolloverWindow
}

// Expiration returns the third-Friday UTC expiration for the quarterly
// contract of the given year and month, used by tests
// to verify the rollover invariant (spec.md §8 property 6).
func Expiration(year int, month time.Month) time.Time {
	return thirdFridayUTC(year, month)
}
