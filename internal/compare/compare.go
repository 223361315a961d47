// Package compare reduces trial results into a cross-backend ranking.
package compare

import (
	"slices"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/loadtest"
)

// Report ranks backends by their averaged trial results. It is derived from
// the results and never edited on its own.
type Report struct {
	// AvgLatency is the unweighted mean of per-trial mean latency, in ms.
	AvgLatency map[backend.ID]float64
	// AvgThroughput is the unweighted mean of per-trial throughput, in req/s.
	AvgThroughput map[backend.ID]float64

	LatencyRanking    []backend.ID
	ThroughputRanking []backend.ID

	TotalRequests  int
	TotalSuccesses int
	TotalFailures  int

	OverallAvgLatency    float64
	OverallAvgThroughput float64

	// Unimplemented lists, per backend, the declared-absent operations that
	// were exercised.
	Unimplemented map[backend.ID][]backend.Operation
}

// Group is the results of one backend in input order.
type Group struct {
	Backend backend.ID
	Results []*loadtest.Result
}

// GroupByBackend buckets results by backend. Groups come back in priority
// order and results keep their input order.
func GroupByBackend(results []*loadtest.Result) []Group {
	index := make(map[backend.ID]int)
	groups := make([]Group, 0, 4)

	for _, r := range results {
		if r == nil {
			continue
		}

		i, ok := index[r.Backend]
		if !ok {
			i = len(groups)
			index[r.Backend] = i
			groups = append(groups, Group{Backend: r.Backend})
		}

		groups[i].Results = append(groups[i].Results, r)
	}

	slices.SortStableFunc(groups, func(a, b Group) int {
		return comparePriority(a.Backend, b.Backend)
	})

	return groups
}

// Aggregate builds the report. It does not modify results and returns the
// same report for the same input.
func Aggregate(results []*loadtest.Result) Report {
	report := Report{
		AvgLatency:    make(map[backend.ID]float64),
		AvgThroughput: make(map[backend.ID]float64),
		Unimplemented: make(map[backend.ID][]backend.Operation),
	}

	var (
		latencySum    float64
		throughputSum float64
		counted       int
	)

	groups := GroupByBackend(results)
	order := make([]backend.ID, 0, len(groups))

	for _, g := range groups {
		var lat, tput float64

		for _, r := range g.Results {
			lat += r.MeanMs()
			tput += r.Throughput

			report.TotalRequests += r.Total
			report.TotalSuccesses += r.Successes
			report.TotalFailures += r.Failures

			if r.Unimplemented {
				report.Unimplemented[g.Backend] = append(report.Unimplemented[g.Backend], r.Operation)
			}
		}

		n := float64(len(g.Results))
		report.AvgLatency[g.Backend] = lat / n
		report.AvgThroughput[g.Backend] = tput / n
		order = append(order, g.Backend)

		latencySum += lat
		throughputSum += tput
		counted += len(g.Results)
	}

	if counted > 0 {
		report.OverallAvgLatency = latencySum / float64(counted)
		report.OverallAvgThroughput = throughputSum / float64(counted)
	}

	report.LatencyRanking = rank(order, report.AvgLatency, false)
	report.ThroughputRanking = rank(order, report.AvgThroughput, true)

	return report
}

// rank sorts ids by value, ascending unless desc is set. Equal values fall
// back to backend priority.
func rank(ids []backend.ID, values map[backend.ID]float64, desc bool) []backend.ID {
	out := slices.Clone(ids)

	slices.SortStableFunc(out, func(a, b backend.ID) int {
		va, vb := values[a], values[b]
		if desc {
			va, vb = vb, va
		}

		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		default:
			return comparePriority(a, b)
		}
	})

	return out
}

func comparePriority(a, b backend.ID) int {
	pa, pb := backend.Priority(a), backend.Priority(b)
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
