package loadtest

import (
	"slices"
	"time"
)

// Stats summarises a latency sequence. Every field is derived from the
// ascending-sorted copy of the input.
type Stats struct {
	Mean   time.Duration
	Min    time.Duration
	Max    time.Duration
	Median time.Duration
	P95    time.Duration
	P99    time.Duration
}

// ComputeStats returns the summary of latencies. It does not modify the
// input. An empty input yields zero stats.
func ComputeStats(latencies []time.Duration) Stats {
	n := len(latencies)
	if n == 0 {
		return Stats{}
	}

	sorted := make([]time.Duration, n)
	copy(sorted, latencies)
	slices.Sort(sorted)

	var total time.Duration
	for _, l := range sorted {
		total += l
	}

	return Stats{
		Mean:   total / time.Duration(n),
		Min:    sorted[0],
		Max:    sorted[n-1],
		Median: median(sorted),
		P95:    sorted[percentileIndex(n, 95)],
		P99:    sorted[percentileIndex(n, 99)],
	}
}

// percentileIndex is floor(n * pct / 100), clamped to the last index.
func percentileIndex(n, pct int) int {
	i := n * pct / 100
	if i >= n {
		i = n - 1
	}

	return i
}

// median expects a sorted, non-empty slice. Even lengths average the two
// middle values.
func median(sorted []time.Duration) time.Duration {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	lo, hi := sorted[n/2-1], sorted[n/2]

	return lo + (hi-lo)/2
}
