// Package ports declares the external collaborators the core depends on
// (spec.md §6): a candle data source, a clock, an event-window predicate,
// and the report sink the orchestrator hands finished reports to. The core
// itself never implements these; internal/adapters and cmd/regimewatch do.
package ports

import (
	"context"
	"time"

	"github.com/sawpanic/regimewatch/internal/candle"
	"github.com/sawpanic/regimewatch/internal/regime"
)

// CandleSource supplies historical candles for a symbol at a frequency.
// Implementations own all network I/O; the core never blocks internally.
type CandleSource interface {
	Fetch(ctx context.Context, symbol candle.Symbol, freq candle.Frequency, lookbackDays int) (candle.CandleSeries, error)
}

// Clock returns the current instant. Injected so tests can pin time without
// touching the process clock.
type Clock interface {
	Now() time.Time
}

// EventWindow reports whether a macro/economic event window is active at
// the given instant. If not supplied to the pipeline, treated as always false.
type EventWindow interface {
	IsEventActive(now time.Time) bool
}

// ReportSink persists a finished RegimeReport. The core makes no assumption
// about the sink beyond accepting the record.
type ReportSink interface {
	Store(ctx context.Context, report regime.RegimeReport) error
}

// SystemClock is the trivial Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NoEventWindow always reports no active event, the default per spec.md §6.
type NoEventWindow struct{}

func (NoEventWindow) IsEventActive(time.Time) bool { return false }

// NoOpSink discards reports, the default when no persistence DSN is configured.
type NoOpSink struct{}

func (NoOpSink) Store(context.Context, regime.RegimeReport) error { return nil }
