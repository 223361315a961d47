package loadtest

import (
	"sync"
	"time"

	"github.com/ethpandaops/protobench/internal/backend"
)

// sample is the outcome of a single call within a trial.
type sample struct {
	elapsed time.Duration
	err     error
}

// collector is the append-only sample buffer shared by the workers of one
// trial.
type collector struct {
	mu        sync.Mutex
	latencies []time.Duration
	successes int
	errors    map[backend.ErrorKind]int
}

func newCollector(capacity int) *collector {
	return &collector{
		latencies: make([]time.Duration, 0, capacity),
		errors:    make(map[backend.ErrorKind]int, 3),
	}
}

// record appends s and returns the number of samples held afterwards.
func (c *collector) record(s sample) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latencies = append(c.latencies, s.elapsed)

	if s.err == nil {
		c.successes++
	} else {
		c.errors[backend.KindOf(s.err)]++
	}

	return len(c.latencies)
}

// snapshot returns copies of the collected data.
func (c *collector) snapshot() ([]time.Duration, int, map[backend.ErrorKind]int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	latencies := make([]time.Duration, len(c.latencies))
	copy(latencies, c.latencies)

	errs := make(map[backend.ErrorKind]int, len(c.errors))
	for k, v := range c.errors {
		errs[k] = v
	}

	return latencies, c.successes, errs
}
