// Package actions contains the operations behind each command and menu entry.
package actions

import (
	"context"
	"fmt"
	"io"

	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/harness"
	"github.com/ethpandaops/protobench/internal/metrics"
	"github.com/ethpandaops/protobench/internal/output"
	"github.com/ethpandaops/protobench/internal/plan"
	"github.com/ethpandaops/protobench/internal/store"
	"github.com/sirupsen/logrus"
)

// CompareOptions selects what a comparison runs and where it reports.
type CompareOptions struct {
	Plan    plan.Plan
	Store   config.StoreOptions
	Verbose bool
	Out     io.Writer
}

// Compare runs the plan against the configured backends and prints the
// report. A cancelled run still prints the trials that completed.
func Compare(ctx context.Context, log logrus.FieldLogger, cfg *config.AppConfig, opts CompareOptions) (*harness.Outcome, error) {
	formatter := output.NewFormatter(opts.Out, opts.Verbose)

	recorder := metrics.NewRecorder(log, cfg.MetricsAddr)
	if err := recorder.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting metrics: %w", err)
	}
	defer func() {
		if err := recorder.Stop(); err != nil {
			log.WithError(err).Warn("failed to stop metrics server")
		}
	}()

	h := harness.New(&harness.Config{
		Logger:    log,
		Endpoints: cfg.Endpoints(),
		Observer:  recorder,
		Sink:      store.New(log, opts.Store),
		Progress:  formatter.PrintProgress,
		OnTrial:   formatter.PrintTrial,
	})

	if err := h.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting harness: %w", err)
	}
	defer func() {
		if err := h.Stop(); err != nil {
			log.WithError(err).Warn("failed to stop harness")
		}
	}()

	formatter.PrintPhase(fmt.Sprintf("Running %d operation(s) on %d backend(s), %d calls each",
		len(opts.Plan.Operations), len(opts.Plan.Backends), opts.Plan.Iterations))

	outcome, err := h.Run(ctx, opts.Plan)
	if outcome != nil {
		formatter.PrintOutcome(outcome)
	}

	return outcome, err
}
