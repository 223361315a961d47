package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/compare"
	"github.com/ethpandaops/protobench/internal/loadtest"
	"github.com/olekukonko/tablewriter"
)

// BackendTable renders one backend's trials, one row per operation, with a
// footer holding the unweighted averages.
func BackendTable(r Renderer, c *ColorHelper, g compare.Group) string {
	var (
		headers = []string{"Operation", "Mean (ms)", "Median (ms)", "P95 (ms)", "P99 (ms)", "Req/s", "Success"}
		rows    = make([][]string, 0, len(g.Results))

		latencySum, throughputSum float64
	)

	for _, res := range g.Results {
		op := res.Operation.Title()
		if res.Unimplemented {
			op += " " + c.Muted("(unimplemented)")
		}

		if res.Partial {
			op += " " + c.Warning("(partial)")
		}

		rows = append(rows, []string{
			op,
			Millis(res.Mean),
			Millis(res.Median),
			Millis(res.P95),
			Millis(res.P99),
			Float(res.Throughput),
			c.FormatSuccessRate(res.ErrorRate),
		})

		latencySum += res.MeanMs()
		throughputSum += res.Throughput
	}

	var footer []string
	if n := float64(len(g.Results)); n > 0 {
		footer = []string{"Average", Float(latencySum / n), "", "", "", Float(throughputSum / n), ""}
	}

	return r.Render(Table{
		Title:   g.Backend.String(),
		Headers: headers,
		Rows:    rows,
		Footer:  footer,
		Align:   numericColumns(len(headers)),
	})
}

// RankingTable renders the latency ranking with each backend's averages.
func RankingTable(r Renderer, c *ColorHelper, report compare.Report) string {
	headers := []string{"Position", "Backend", "Avg Latency (ms)", "Avg Req/s", "Throughput Rank"}
	rows := make([][]string, 0, len(report.LatencyRanking))

	throughputPos := make(map[backend.ID]int, len(report.ThroughputRanking))
	for i, id := range report.ThroughputRanking {
		throughputPos[id] = i + 1
	}

	for i, id := range report.LatencyRanking {
		name := id.String()
		if i == 0 {
			name = c.Bold(name)
		}

		rows = append(rows, []string{
			c.FormatPosition(i + 1),
			name,
			Float(report.AvgLatency[id]),
			Float(report.AvgThroughput[id]),
			fmt.Sprintf("%d", throughputPos[id]),
		})
	}

	return r.Render(Table{
		Title:   "Ranking",
		Headers: headers,
		Rows:    rows,
		Align: []int{
			tablewriter.ALIGN_RIGHT,
			tablewriter.ALIGN_LEFT,
			tablewriter.ALIGN_RIGHT,
			tablewriter.ALIGN_RIGHT,
			tablewriter.ALIGN_RIGHT,
		},
	})
}

// GeneralTable renders run-wide totals.
func GeneralTable(r Renderer, c *ColorHelper, report compare.Report) string {
	failures := fmt.Sprintf("%d", report.TotalFailures)
	if report.TotalFailures > 0 {
		failures = c.Failure(failures)
	} else {
		failures = c.Success(failures)
	}

	var (
		headers = []string{"Metric", "Value"}
		rows    = [][]string{
			{"Total Requests", c.Bold(fmt.Sprintf("%d", report.TotalRequests))},
			{"Total Successes", fmt.Sprintf("%d", report.TotalSuccesses)},
			{"Total Failures", failures},
			{"Avg Latency (ms)", Float(report.OverallAvgLatency)},
			{"Avg Req/s", Float(report.OverallAvgThroughput)},
		}
	)

	return r.Render(Table{Title: "General Statistics", Headers: headers, Rows: rows})
}

// UnimplementedNote lists declared-absent operations, or returns "" if none
// were exercised.
func UnimplementedNote(c *ColorHelper, report compare.Report) string {
	if len(report.Unimplemented) == 0 {
		return ""
	}

	ids := make([]backend.ID, 0, len(report.Unimplemented))
	for id := range report.Unimplemented {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return backend.Priority(ids[i]) < backend.Priority(ids[j])
	})

	var sb strings.Builder

	sb.WriteString("\n")

	for _, id := range ids {
		names := make([]string, 0, len(report.Unimplemented[id]))
		for _, op := range report.Unimplemented[id] {
			names = append(names, string(op))
		}

		sb.WriteString(c.Muted(fmt.Sprintf("note: %s does not implement %s; those trials measure a local no-op\n",
			id, strings.Join(names, ", "))))
	}

	return sb.String()
}

// ErrorBreakdown summarises failure kinds of one trial, e.g.
// "timeout=3 call_failure=1". It returns "" for a clean trial.
func ErrorBreakdown(res *loadtest.Result) string {
	if len(res.Errors) == 0 {
		return ""
	}

	kinds := make([]string, 0, len(res.Errors))
	for kind := range res.Errors {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, res.Errors[backend.ErrorKind(k)]))
	}

	return strings.Join(parts, " ")
}
