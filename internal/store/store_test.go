package store

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/compare"
	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/harness"
	"github.com/ethpandaops/protobench/internal/loadtest"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testOutcome() *harness.Outcome {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	results := []*loadtest.Result{
		{
			Backend: backend.REST, Operation: backend.OpListTracks,
			Total: 10, Successes: 9, Failures: 1, ErrorRate: 0.1, Throughput: 50,
			Stats:     loadtest.Stats{Mean: 20 * time.Millisecond, P95: 30 * time.Millisecond},
			Elapsed:   200 * time.Millisecond,
			StartedAt: started,
		},
		{
			Backend: backend.GRPC, Operation: backend.OpListTracks,
			Total: 10, Successes: 10, Throughput: 400,
			Stats:     loadtest.Stats{Mean: 2500 * time.Microsecond},
			Elapsed:   25 * time.Millisecond,
			StartedAt: started.Add(time.Second),
		},
	}

	return &harness.Outcome{
		RunID:     uuid.MustParse("7b0d8c62-6f6e-4c4b-9a7d-0f3c1c1f2a10"),
		Results:   results,
		Report:    compare.Aggregate(results),
		StartedAt: started,
		Duration:  2 * time.Second,
	}
}

func TestTrialRows(t *testing.T) {
	t.Parallel()

	o := testOutcome()
	rows := TrialRows(o)

	require.Len(t, rows, 2)
	assert.Equal(t, o.RunID, rows[0].RunID)
	assert.Equal(t, "rest", rows[0].Backend)
	assert.Equal(t, "list_tracks", rows[0].Operation)
	assert.Equal(t, uint32(1), rows[0].Failures)
	assert.Equal(t, 20.0, rows[0].MeanMs)
	assert.Equal(t, 30.0, rows[0].P95Ms)
	assert.Equal(t, 2.5, rows[1].MeanMs)
}

func TestRankingRows(t *testing.T) {
	t.Parallel()

	rows := RankingRows(testOutcome())

	require.Len(t, rows, 2)
	assert.Equal(t, "grpc", rows[0].Backend)
	assert.Equal(t, uint8(1), rows[0].LatencyRank)
	assert.Equal(t, uint8(1), rows[0].ThroughputRank)
	assert.Equal(t, "rest", rows[1].Backend)
	assert.Equal(t, uint8(2), rows[1].ThroughputRank)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 2, 0, time.UTC), rows[0].RecordedAt)
}

func TestNew_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	sink := New(testLogger(), config.StoreOptions{Enabled: false})
	assert.IsType(t, Noop{}, sink)

	require.NoError(t, sink.Start(context.Background()))
	require.NoError(t, sink.Save(context.Background(), testOutcome()))
	require.NoError(t, sink.Stop())
}

func TestClickHouse_RejectsBadDatabaseName(t *testing.T) {
	t.Parallel()

	s := NewClickHouse(testLogger(), config.StoreOptions{Enabled: true, ClickhouseDatabase: "bad-name"})
	require.Error(t, s.Start(context.Background()))
}

func TestClickHouse_SaveBeforeStart(t *testing.T) {
	t.Parallel()

	s := NewClickHouse(testLogger(), config.StoreOptions{Enabled: true})
	require.Error(t, s.Save(context.Background(), testOutcome()))
	require.NoError(t, s.Stop())
}
