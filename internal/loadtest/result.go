package loadtest

import (
	"time"

	"github.com/ethpandaops/protobench/internal/backend"
)

// Result is the outcome of one (operation, backend) trial. It is not
// modified after Run returns it.
type Result struct {
	Backend   backend.ID
	Operation backend.Operation

	Total     int
	Successes int
	Failures  int

	// Latencies holds one entry per completed call in completion order.
	Latencies []time.Duration
	Stats

	// Throughput is calls per second of trial wall clock.
	Throughput float64
	// ErrorRate is Failures / Total, in [0, 1].
	ErrorRate float64

	Elapsed   time.Duration
	StartedAt time.Time
	Errors    map[backend.ErrorKind]int

	// Unimplemented marks an operation the backend declares absent.
	Unimplemented bool
	// Partial is set when the trial was cancelled before all calls ran.
	Partial bool
}

func newResult(trial Trial, started time.Time, elapsed time.Duration, c *collector, partial bool) *Result {
	latencies, successes, errs := c.snapshot()
	total := len(latencies)

	r := &Result{
		Backend:       trial.Backend,
		Operation:     trial.Operation,
		Total:         total,
		Successes:     successes,
		Failures:      total - successes,
		Latencies:     latencies,
		Stats:         ComputeStats(latencies),
		Elapsed:       elapsed,
		StartedAt:     started,
		Errors:        errs,
		Unimplemented: trial.Unimplemented,
		Partial:       partial,
	}

	if secs := elapsed.Seconds(); secs > 0 {
		r.Throughput = float64(total) / secs
	}

	if total > 0 {
		r.ErrorRate = float64(r.Failures) / float64(total)
	}

	return r
}

// MeanMs returns the mean latency in milliseconds.
func (r *Result) MeanMs() float64 {
	return durationMs(r.Mean)
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
