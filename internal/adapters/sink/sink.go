// Package sink implements ports.ReportSink against Postgres via sqlx,
// grounded on internal/persistence/postgres/regime_repo.go's Upsert shape
// (parameterized INSERT ... ON CONFLICT ... DO UPDATE through a *sqlx.DB)
// and internal/infrastructure/db/connection.go's sqlx.Open("postgres", dsn)
// with the lib/pq driver blank-imported for its side effect of registering
// itself with database/sql.
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"

	"github.com/sawpanic/regimewatch/internal/regime"
)

// PostgresSink persists RegimeReports, upserted by (instrument, timestamp)
// so a re-run of the same classification overwrites rather than duplicates.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink opens a connection pool against dsn, verifies it with a
// ping, and ensures the schema exists.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: ping: %w", err)
	}
	s := &PostgresSink{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		create table if not exists regime_reports (
			instrument text not null,
			ts timestamptz not null,
			primary_regime text not null,
			confidence integer not null,
			report jsonb not null,
			primary key (instrument, ts)
		)`)
	if err != nil {
		return fmt.Errorf("sink: ensure schema: %w", err)
	}
	return nil
}

// Store implements ports.ReportSink.
func (s *PostgresSink) Store(ctx context.Context, report regime.RegimeReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("sink: marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into regime_reports (instrument, ts, primary_regime, confidence, report)
		values ($1, $2, $3, $4, $5)
		on conflict (instrument, ts) do update set
			primary_regime = excluded.primary_regime,
			confidence = excluded.confidence,
			report = excluded.report`,
		string(report.Instrument), report.Timestamp, string(report.PrimaryRegime), report.Confidence, raw,
	)
	if err != nil {
		return fmt.Errorf("sink: upsert report: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresSink) Close() error { return s.db.Close() }
