// Package output renders trial progress and comparison reports for humans.
package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/compare"
	"github.com/ethpandaops/protobench/internal/harness"
	"github.com/ethpandaops/protobench/internal/loadtest"
	"github.com/fatih/color"
)

// Formatter provides clean, human-friendly output
type Formatter interface {
	PrintPhase(phase string)
	PrintProgress(id backend.ID, op backend.Operation, done, total int)
	PrintTrial(r *loadtest.Result)
	PrintOutcome(o *harness.Outcome)
	PrintHealth(health map[backend.ID]error)
	PrintSuccess(message string)
	PrintError(message string, err error)
}

type formatter struct {
	mu      sync.Mutex
	writer  io.Writer
	verbose bool

	renderer Renderer
	colors   *ColorHelper

	green *color.Color
	red   *color.Color
	blue  *color.Color
	gray  *color.Color
}

// NewFormatter creates a new output formatter. With verbose set, per-trial
// progress and percentile lines are printed.
func NewFormatter(writer io.Writer, verbose bool) Formatter {
	colors := NewColorHelper()

	return &formatter{
		writer:   writer,
		verbose:  verbose,
		renderer: NewRenderer(colors),
		colors:   colors,
		green:    color.New(color.FgGreen),
		red:      color.New(color.FgRed),
		blue:     color.New(color.FgBlue),
		gray:     color.New(color.FgHiBlack),
	}
}

// PrintPhase prints phase separator
func (f *formatter) PrintPhase(phase string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, _ = f.blue.Fprintf(f.writer, "\n▸ %s\n", phase)
}

// PrintProgress prints a progress tick. Non-verbose formatters print none.
func (f *formatter) PrintProgress(id backend.ID, op backend.Operation, done, total int) {
	if !f.verbose {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	_, _ = f.gray.Fprintf(f.writer, "  %-8s %-30s %d/%d\n", id, op, done, total)
}

// PrintTrial prints the one-line summary of a finished trial.
func (f *formatter) PrintTrial(r *loadtest.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()

	status := f.colors.Success("✓")
	if r.Failures > 0 {
		status = f.colors.Failure("✗")
	}

	_, _ = fmt.Fprintf(f.writer, "%s %-8s %-30s mean %sms | %s req/s | success %s (%d req, %s)\n",
		status,
		r.Backend,
		r.Operation,
		Millis(r.Mean),
		Float(r.Throughput),
		f.colors.FormatSuccessRate(r.ErrorRate),
		r.Total,
		Duration(r.Elapsed),
	)

	if f.verbose {
		_, _ = f.gray.Fprintf(f.writer, "    min %sms | max %sms | median %sms | p95 %sms | p99 %sms\n",
			Millis(r.Min), Millis(r.Max), Millis(r.Median), Millis(r.P95), Millis(r.P99))
	}

	if breakdown := ErrorBreakdown(r); breakdown != "" {
		_, _ = f.red.Fprintf(f.writer, "    errors: %s\n", breakdown)
	}
}

// PrintOutcome prints the per-backend tables, the ranking and the totals.
func (f *formatter) PrintOutcome(o *harness.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(o.Results) == 0 {
		_, _ = fmt.Fprintln(f.writer, f.colors.Warning("no trials completed"))
		return
	}

	for _, g := range compare.GroupByBackend(o.Results) {
		_, _ = fmt.Fprint(f.writer, BackendTable(f.renderer, f.colors, g))
	}

	_, _ = fmt.Fprint(f.writer, RankingTable(f.renderer, f.colors, o.Report))
	_, _ = fmt.Fprint(f.writer, GeneralTable(f.renderer, f.colors, o.Report))
	_, _ = fmt.Fprint(f.writer, UnimplementedNote(f.colors, o.Report))

	footer := fmt.Sprintf("\nrun %s finished in %s", o.RunID, Duration(o.Duration.Round(time.Millisecond)))
	if o.Partial {
		footer += " " + f.colors.Warning("(interrupted)")
	}

	_, _ = fmt.Fprintln(f.writer, f.colors.Muted(footer))
}

// PrintHealth prints one row per probed backend.
func (f *formatter) PrintHealth(health map[backend.ID]error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]backend.ID, 0, len(health))
	for id := range health {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return backend.Priority(ids[i]) < backend.Priority(ids[j])
	})

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		detail := ""
		if err := health[id]; err != nil {
			detail = err.Error()
		}

		rows = append(rows, []string{id.String(), f.colors.FormatHealth(health[id]), detail})
	}

	_, _ = fmt.Fprint(f.writer, f.renderer.Render(Table{
		Title:   "Health",
		Headers: []string{"Backend", "Status", "Detail"},
		Rows:    rows,
	}))
}

// PrintSuccess prints a green message.
func (f *formatter) PrintSuccess(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, _ = f.green.Fprintf(f.writer, "%s\n", message)
}

// PrintError prints a red message with error details.
func (f *formatter) PrintError(message string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, _ = f.red.Fprintf(f.writer, "%s", message)
	if err != nil {
		_, _ = f.red.Fprintf(f.writer, ": %v", err)
	}
	_, _ = fmt.Fprintf(f.writer, "\n")
}
