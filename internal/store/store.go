// Package store persists run outcomes to ClickHouse.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/clickhouse"
	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/harness"
	"github.com/ethpandaops/protobench/internal/migrations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	insertTrial = `INSERT INTO trial_results (
		run_id, started_at, backend, operation, total, successes, failures, error_rate, throughput,
		mean_ms, min_ms, max_ms, median_ms, p95_ms, p99_ms, elapsed_ms, unimplemented, partial
	)`

	insertRanking = `INSERT INTO backend_rankings (
		run_id, recorded_at, backend, latency_rank, throughput_rank, avg_latency_ms, avg_throughput
	)`
)

// New returns the ClickHouse store when enabled, or a no-op sink.
func New(log logrus.FieldLogger, opts config.StoreOptions) harness.Sink {
	if !opts.Enabled {
		return Noop{}
	}
	return NewClickHouse(log, opts)
}

// ClickHouse writes one row per trial and one row per ranked backend.
type ClickHouse struct {
	log  logrus.FieldLogger
	opts config.StoreOptions
	db   *sql.DB
}

// NewClickHouse creates the store. Nothing is opened until Start.
func NewClickHouse(log logrus.FieldLogger, opts config.StoreOptions) *ClickHouse {
	return &ClickHouse{
		log:  log.WithField("component", "result_store"),
		opts: opts,
	}
}

// Start creates the database, applies migrations and opens the connection.
func (s *ClickHouse) Start(ctx context.Context) error {
	s.log.Debug("starting result store")

	if !clickhouse.ValidDatabaseName(s.opts.ClickhouseDatabase) {
		return fmt.Errorf("%w: %q", clickhouse.ErrInvalidDatabaseName, s.opts.ClickhouseDatabase)
	}

	admin, err := clickhouse.Open(ctx, s.opts, "default")
	if err != nil {
		return fmt.Errorf("connecting to clickhouse: %w", err)
	}

	createErr := clickhouse.CreateDatabase(ctx, admin, s.opts.ClickhouseDatabase)
	_ = admin.Close()

	if createErr != nil {
		return createErr
	}

	if err := migrations.Up(s.log, s.opts); err != nil {
		return err
	}

	db, err := clickhouse.Open(ctx, s.opts, s.opts.ClickhouseDatabase)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", s.opts.ClickhouseDatabase, err)
	}

	s.db = db

	s.log.WithField("database", s.opts.ClickhouseDatabase).Info("result store started")

	return nil
}

// Stop closes the connection.
func (s *ClickHouse) Stop() error {
	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing clickhouse: %w", err)
	}

	s.db = nil

	return nil
}

// Save writes the outcome in one batch per table.
func (s *ClickHouse) Save(ctx context.Context, o *harness.Outcome) error {
	if s.db == nil {
		return fmt.Errorf("result store not started") //nolint:err113 // lifecycle misuse
	}

	trials := TrialRows(o)
	if err := s.batch(ctx, insertTrial, len(trials), func(stmt *sql.Stmt, i int) error {
		return trials[i].exec(ctx, stmt)
	}); err != nil {
		return fmt.Errorf("writing trial_results: %w", err)
	}

	rankings := RankingRows(o)
	if err := s.batch(ctx, insertRanking, len(rankings), func(stmt *sql.Stmt, i int) error {
		return rankings[i].exec(ctx, stmt)
	}); err != nil {
		return fmt.Errorf("writing backend_rankings: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"run_id":   o.RunID,
		"trials":   len(trials),
		"rankings": len(rankings),
	}).Info("saved outcome")

	return nil
}

// batch runs query once per row inside a transaction, which clickhouse-go
// sends as a single block.
func (s *ClickHouse) batch(ctx context.Context, query string, n int, row func(*sql.Stmt, int) error) error {
	if n == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("preparing batch: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < n; i++ {
		if err := row(stmt, i); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("appending row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sending batch: %w", err)
	}

	return nil
}

// TrialRow is one row of trial_results.
type TrialRow struct {
	RunID         uuid.UUID
	StartedAt     time.Time
	Backend       string
	Operation     string
	Total         uint32
	Successes     uint32
	Failures      uint32
	ErrorRate     float64
	Throughput    float64
	MeanMs        float64
	MinMs         float64
	MaxMs         float64
	MedianMs      float64
	P95Ms         float64
	P99Ms         float64
	ElapsedMs     float64
	Unimplemented bool
	Partial       bool
}

func (r TrialRow) exec(ctx context.Context, stmt *sql.Stmt) error {
	_, err := stmt.ExecContext(ctx,
		r.RunID, r.StartedAt, r.Backend, r.Operation, r.Total, r.Successes, r.Failures, r.ErrorRate, r.Throughput,
		r.MeanMs, r.MinMs, r.MaxMs, r.MedianMs, r.P95Ms, r.P99Ms, r.ElapsedMs, r.Unimplemented, r.Partial,
	)
	return err
}

// RankingRow is one row of backend_rankings.
type RankingRow struct {
	RunID          uuid.UUID
	RecordedAt     time.Time
	Backend        string
	LatencyRank    uint8
	ThroughputRank uint8
	AvgLatencyMs   float64
	AvgThroughput  float64
}

func (r RankingRow) exec(ctx context.Context, stmt *sql.Stmt) error {
	_, err := stmt.ExecContext(ctx,
		r.RunID, r.RecordedAt, r.Backend, r.LatencyRank, r.ThroughputRank, r.AvgLatencyMs, r.AvgThroughput,
	)
	return err
}

// TrialRows flattens the results of o in run order.
func TrialRows(o *harness.Outcome) []TrialRow {
	rows := make([]TrialRow, 0, len(o.Results))

	for _, r := range o.Results {
		rows = append(rows, TrialRow{
			RunID:         o.RunID,
			StartedAt:     r.StartedAt.UTC(),
			Backend:       string(r.Backend),
			Operation:     string(r.Operation),
			Total:         uint32(r.Total),     //nolint:gosec // bounded by iterations
			Successes:     uint32(r.Successes), //nolint:gosec // bounded by iterations
			Failures:      uint32(r.Failures),  //nolint:gosec // bounded by iterations
			ErrorRate:     r.ErrorRate,
			Throughput:    r.Throughput,
			MeanMs:        ms(r.Mean),
			MinMs:         ms(r.Min),
			MaxMs:         ms(r.Max),
			MedianMs:      ms(r.Median),
			P95Ms:         ms(r.P95),
			P99Ms:         ms(r.P99),
			ElapsedMs:     ms(r.Elapsed),
			Unimplemented: r.Unimplemented,
			Partial:       r.Partial,
		})
	}

	return rows
}

// RankingRows produces one row per backend in latency ranking order.
func RankingRows(o *harness.Outcome) []RankingRow {
	report := o.Report
	throughputRank := make(map[backend.ID]int, len(report.ThroughputRanking))

	for i, id := range report.ThroughputRanking {
		throughputRank[id] = i + 1
	}

	recorded := o.StartedAt.Add(o.Duration).UTC()
	rows := make([]RankingRow, 0, len(report.LatencyRanking))

	for i, id := range report.LatencyRanking {
		rows = append(rows, RankingRow{
			RunID:          o.RunID,
			RecordedAt:     recorded,
			Backend:        string(id),
			LatencyRank:    uint8(i + 1),              //nolint:gosec // at most four backends
			ThroughputRank: uint8(throughputRank[id]), //nolint:gosec // at most four backends
			AvgLatencyMs:   report.AvgLatency[id],
			AvgThroughput:  report.AvgThroughput[id],
		})
	}

	return rows
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Noop discards outcomes.
type Noop struct{}

// Start does nothing.
func (Noop) Start(context.Context) error { return nil }

// Stop does nothing.
func (Noop) Stop() error { return nil }

// Save does nothing.
func (Noop) Save(context.Context, *harness.Outcome) error { return nil }

var (
	_ harness.Sink = (*ClickHouse)(nil)
	_ harness.Sink = Noop{}
)
