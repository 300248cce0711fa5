// Package pipeline wires a CandleSource through the Contract Resolver,
// Feature Calculator, and Regime Classifier to produce a RegimeReport, and
// tracks per-instrument regime stability across runs.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sawpanic/regimewatch/internal/calibration"
	"github.com/sawpanic/regimewatch/internal/candle"
	"github.com/sawpanic/regimewatch/internal/contract"
	"github.com/sawpanic/regimewatch/internal/features"
	"github.com/sawpanic/regimewatch/internal/ports"
	"github.com/sawpanic/regimewatch/internal/regime"
	"github.com/sawpanic/regimewatch/internal/session"
)

const defaultLookbackDays = 10

// RegimeChange records a transition for the stability tracker, grounded on
// the teacher's RegimeChange/changeHistory shape in internal/regime/detector.go.
type RegimeChange struct {
	Timestamp  time.Time
	From       regime.PrimaryRegime
	To         regime.PrimaryRegime
}

type instrumentHistory struct {
	mu            sync.Mutex
	lastReport    *regime.RegimeReport
	changeHistory []RegimeChange
}

// Orchestrator is the Pipeline Orchestrator (spec.md §2 item 6). It holds no
// mutable state relevant to classification correctness — only the
// supplemented stability tracker, keyed per instrument.
type Orchestrator struct {
	source  ports.CandleSource
	clock   ports.Clock
	events  ports.EventWindow
	sink    ports.ReportSink
	reg     *calibration.Registry

	historyMu sync.Mutex
	history   map[candle.Instrument]*instrumentHistory
}

// New builds an Orchestrator. events may be nil, which is treated per
// spec.md §6 as "no event window ever active"; sink may be nil, which
// disables persistence (the report is still returned to the caller).
func New(source ports.CandleSource, clock ports.Clock, events ports.EventWindow, sink ports.ReportSink, reg *calibration.Registry) *Orchestrator {
	if events == nil {
		events = ports.NoEventWindow{}
	}
	if sink == nil {
		sink = ports.NoOpSink{}
	}
	return &Orchestrator{
		source:  source,
		clock:   clock,
		events:  events,
		sink:    sink,
		reg:     reg,
		history: make(map[candle.Instrument]*instrumentHistory),
	}
}

// Run produces one RegimeReport for instrument, assigning it a correlation
// ID for cross-log tracing (not part of the report itself, returned
// separately so callers can tag their own logs).
func (o *Orchestrator) Run(ctx context.Context, instrument candle.Instrument) (regime.RegimeReport, string, error) {
	runID := uuid.New().String()

	if err := instrument.Validate(); err != nil {
		return regime.RegimeReport{}, runID, err
	}

	now := o.clock.Now()
	symbol, err := contract.Resolve(instrument, now)
	if err != nil {
		return regime.RegimeReport{}, runID, fmt.Errorf("pipeline[%s]: resolve contract: %w", runID, err)
	}

	oneMin, err := o.source.Fetch(ctx, symbol, candle.OneMinute, defaultLookbackDays)
	if err != nil {
		return regime.RegimeReport{}, runID, fmt.Errorf("pipeline[%s]: fetch 1m candles: %w", runID, err)
	}
	if err := oneMin.Validate(); err != nil {
		return regime.RegimeReport{}, runID, fmt.Errorf("pipeline[%s]: %w", runID, err)
	}

	fiveMin, err := o.source.Fetch(ctx, symbol, candle.FiveMinute, defaultLookbackDays)
	if err != nil {
		return regime.RegimeReport{}, runID, fmt.Errorf("pipeline[%s]: fetch 5m candles: %w", runID, err)
	}
	if err := fiveMin.Validate(); err != nil {
		return regime.RegimeReport{}, runID, fmt.Errorf("pipeline[%s]: %w", runID, err)
	}

	cal, err := o.reg.Get(instrument)
	if err != nil {
		return regime.RegimeReport{}, runID, err
	}

	feat, err := features.Compute(oneMin, fiveMin, cal, now)
	if err != nil {
		return regime.RegimeReport{}, runID, fmt.Errorf("pipeline[%s]: %w", runID, err)
	}

	phase := session.PhaseAt(now)
	eventActive := o.events.IsEventActive(now)

	report := regime.Classify(instrument, feat, cal, phase, eventActive, now)
	o.recordHistory(instrument, report)

	if err := o.sink.Store(ctx, report); err != nil {
		return report, runID, fmt.Errorf("pipeline[%s]: store report: %w", runID, err)
	}

	return report, runID, nil
}

// RunAll classifies ES and NQ concurrently; the core is re-entrant, so each
// run gets its own Calibration and candle slices (spec.md §5).
func (o *Orchestrator) RunAll(ctx context.Context) map[candle.Instrument]Result {
	instruments := []candle.Instrument{candle.ES, candle.NQ}
	results := make(map[candle.Instrument]Result, len(instruments))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, inst := range instruments {
		wg.Add(1)
		go func(inst candle.Instrument) {
			defer wg.Done()
			report, runID, err := o.Run(ctx, inst)
			mu.Lock()
			results[inst] = Result{Report: report, RunID: runID, Err: err}
			mu.Unlock()
		}(inst)
	}
	wg.Wait()
	return results
}

// Result bundles one instrument's classification outcome.
type Result struct {
	Report regime.RegimeReport
	RunID  string
	Err    error
}

func (o *Orchestrator) recordHistory(instrument candle.Instrument, report regime.RegimeReport) {
	o.historyMu.Lock()
	h, ok := o.history[instrument]
	if !ok {
		h = &instrumentHistory{}
		o.history[instrument] = h
	}
	o.historyMu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastReport != nil && h.lastReport.PrimaryRegime != report.PrimaryRegime {
		h.changeHistory = append(h.changeHistory, RegimeChange{
			Timestamp: report.Timestamp,
			From:      h.lastReport.PrimaryRegime,
			To:        report.PrimaryRegime,
		})
	}
	reportCopy := report
	h.lastReport = &reportCopy
}

// IsStable reports whether instrument's regime has not changed within the
// lookback window, mirroring the teacher's isRegimeStable 2-cycle rule
// (internal/regime/detector.go) generalized to a caller-supplied window.
func (o *Orchestrator) IsStable(instrument candle.Instrument, window time.Duration, asOf time.Time) bool {
	o.historyMu.Lock()
	h, ok := o.history[instrument]
	o.historyMu.Unlock()
	if !ok {
		return true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	cutoff := asOf.Add(-window)
	for _, change := range h.changeHistory {
		if change.Timestamp.After(cutoff) {
			return false
		}
	}
	return true
}

// ChangeHistory returns instrument's recorded regime transitions, oldest first.
func (o *Orchestrator) ChangeHistory(instrument candle.Instrument) []RegimeChange {
	o.historyMu.Lock()
	h, ok := o.history[instrument]
	o.historyMu.Unlock()
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RegimeChange, len(h.changeHistory))
	copy(out, h.changeHistory)
	return out
}
