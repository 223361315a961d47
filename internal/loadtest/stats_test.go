package loadtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ms(v ...int) []time.Duration {
	out := make([]time.Duration, len(v))
	for i, n := range v {
		out[i] = time.Duration(n) * time.Millisecond
	}
	return out
}

func TestComputeStats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		latencies []time.Duration
		expected  Stats
	}{
		{
			name:      "empty",
			latencies: nil,
			expected:  Stats{},
		},
		{
			name:      "single",
			latencies: ms(7),
			expected:  Stats{Mean: 7 * time.Millisecond, Min: 7 * time.Millisecond, Max: 7 * time.Millisecond, Median: 7 * time.Millisecond, P95: 7 * time.Millisecond, P99: 7 * time.Millisecond},
		},
		{
			name:      "even count averages the middle pair",
			latencies: ms(4, 1, 3, 2),
			expected: Stats{
				Mean:   2500 * time.Microsecond,
				Min:    1 * time.Millisecond,
				Max:    4 * time.Millisecond,
				Median: 2500 * time.Microsecond,
				P95:    4 * time.Millisecond,
				P99:    4 * time.Millisecond,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeStats(tt.latencies))
		})
	}
}

func TestComputeStats_FractionalIndex(t *testing.T) {
	t.Parallel()

	latencies := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		latencies = append(latencies, time.Duration(i)*time.Millisecond)
	}

	s := ComputeStats(latencies)

	// floor(100*0.95) = 95 and floor(100*0.99) = 99 into the sorted 1..100.
	assert.Equal(t, 96*time.Millisecond, s.P95)
	assert.Equal(t, 100*time.Millisecond, s.P99)
	assert.Equal(t, 100*time.Millisecond, latencies[0], "input must not be reordered")
}

func TestPercentileIndex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, percentileIndex(1, 99))
	assert.Equal(t, 1, percentileIndex(2, 95))
	assert.Equal(t, 19, percentileIndex(20, 99))
	assert.Equal(t, 9, percentileIndex(10, 100))
}
