// Package harness drives a full comparison: it resolves the requested
// trials, runs them one after another and reduces the results.
package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/compare"
	"github.com/ethpandaops/protobench/internal/loadtest"
	"github.com/ethpandaops/protobench/internal/plan"
	"github.com/ethpandaops/protobench/internal/registry"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	errNotStarted    = errors.New("harness not started")
	errNotConfigured = errors.New("backend not configured")
)

// Outcome is everything a run produced. It is the only value handed to
// output and storage.
type Outcome struct {
	RunID     uuid.UUID
	Plan      plan.Plan
	Results   []*loadtest.Result
	Report    compare.Report
	StartedAt time.Time
	Duration  time.Duration
	// Partial is set when the run was cancelled before every trial finished.
	Partial bool
}

// Sink persists outcomes.
type Sink interface {
	Start(ctx context.Context) error
	Stop() error
	Save(ctx context.Context, o *Outcome) error
}

// TrialProgressFunc reports progress inside the running trial.
type TrialProgressFunc func(id backend.ID, op backend.Operation, done, total int)

// Config wires a harness.
type Config struct {
	Logger logrus.FieldLogger
	// Endpoints builds one adapter per entry with an address.
	Endpoints map[backend.ID]backend.Endpoint
	// Adapters, when set, is used instead of Endpoints.
	Adapters map[backend.ID]backend.Adapter

	Observer loadtest.Observer
	Sink     Sink
	Progress TrialProgressFunc
	// OnTrial is called after each trial with its result.
	OnTrial func(r *loadtest.Result)
	// Clock replaces time.Now for every measurement.
	Clock func() time.Time
	// ProbeTimeout bounds each health call. Zero means
	// loadtest.DefaultCallTimeout.
	ProbeTimeout time.Duration
}

// Harness runs plans against a fixed set of backends.
type Harness struct {
	log       logrus.FieldLogger
	endpoints map[backend.ID]backend.Endpoint
	adapters  map[backend.ID]backend.Adapter
	observer  loadtest.Observer
	sink      Sink
	progress  TrialProgressFunc
	onTrial   func(r *loadtest.Result)
	now       func() time.Time

	probeTimeout time.Duration

	set *backend.Set
}

// New creates a harness. Nothing is opened until Start.
func New(cfg *Config) *Harness {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = loadtest.DefaultCallTimeout
	}

	return &Harness{
		log:       cfg.Logger.WithField("component", "harness"),
		endpoints: cfg.Endpoints,
		adapters:  cfg.Adapters,
		observer:  cfg.Observer,
		sink:      cfg.Sink,
		progress:  cfg.Progress,
		onTrial:   cfg.OnTrial,
		now:       now,

		probeTimeout: probeTimeout,
	}
}

// Start builds the adapters and starts the sink. Adapters connect lazily on
// first use.
func (h *Harness) Start(ctx context.Context) error {
	h.log.Debug("starting harness")

	if h.adapters != nil {
		h.set = backend.NewSetFrom(h.log, h.adapters)
	} else {
		set, err := backend.NewSet(h.log, h.endpoints)
		if err != nil {
			return fmt.Errorf("building adapters: %w", err)
		}
		h.set = set
	}

	if h.sink != nil {
		if err := h.sink.Start(ctx); err != nil {
			return fmt.Errorf("starting result store: %w", err)
		}
	}

	h.log.WithField("backends", h.set.IDs()).Debug("harness started")

	return nil
}

// Stop closes every backend connection and the sink.
func (h *Harness) Stop() error {
	h.log.Debug("stopping harness")

	var errs []error

	if h.set != nil {
		if err := h.set.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing adapters: %w", err))
		}
	}

	if h.sink != nil {
		if err := h.sink.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping result store: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors stopping harness: %v", errs) //nolint:err113 // Include error list for debugging
	}

	return nil
}

// Run executes every (operation, backend) trial of p, operation-major, and
// aggregates the results. Invalid plans and unbound pairs fail before any
// call is made. If ctx is cancelled the outcome holds the trials completed so
// far, including a partial last trial, and the context error is returned with
// it.
func (h *Harness) Run(ctx context.Context, p plan.Plan) (*Outcome, error) {
	if h.set == nil {
		return nil, errNotStarted
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	reg := registry.New(h.set.Adapters(), p.Sample)

	bindings, err := reg.Resolve(p.Operations, p.Backends)
	if err != nil {
		return nil, fmt.Errorf("resolving trials: %w", err)
	}

	outcome := &Outcome{
		RunID:     uuid.New(),
		Plan:      p,
		Results:   make([]*loadtest.Result, 0, len(bindings)),
		StartedAt: h.now(),
	}

	log := h.log.WithFields(logrus.Fields{
		"run_id":     outcome.RunID,
		"trials":     len(bindings),
		"iterations": p.Iterations,
	})
	log.Info("starting comparison")

	var runErr error

	for _, b := range bindings {
		result, err := h.runner(p, b).RunTrial(ctx, loadtest.TrialFromBinding(b), p.Iterations)
		if result != nil {
			outcome.Results = append(outcome.Results, result)

			if h.onTrial != nil {
				h.onTrial(result)
			}
		}

		if err != nil {
			runErr = fmt.Errorf("running %s on %s: %w", b.Operation, b.Backend, err)
			outcome.Partial = true
			break
		}
	}

	outcome.Report = compare.Aggregate(outcome.Results)
	outcome.Duration = h.now().Sub(outcome.StartedAt)

	if runErr != nil {
		log.WithError(runErr).WithField("completed", len(outcome.Results)).Warn("comparison interrupted")
		return outcome, runErr
	}

	log.WithFields(logrus.Fields{
		"duration": outcome.Duration,
		"requests": outcome.Report.TotalRequests,
		"failures": outcome.Report.TotalFailures,
	}).Info("comparison complete")

	if h.sink != nil {
		if err := h.sink.Save(ctx, outcome); err != nil {
			return outcome, fmt.Errorf("saving outcome: %w", err)
		}
	}

	return outcome, nil
}

func (h *Harness) runner(p plan.Plan, b registry.Binding) *loadtest.Runner {
	opts := []loadtest.Option{
		loadtest.WithWorkers(p.Workers),
		loadtest.WithCallTimeout(p.CallTimeout),
		loadtest.WithRateLimit(p.RateLimit),
		loadtest.WithClock(h.now),
	}

	if h.observer != nil {
		opts = append(opts, loadtest.WithObserver(h.observer))
	}

	if h.progress != nil {
		opts = append(opts, loadtest.WithProgress(func(done, total int) {
			h.progress(b.Backend, b.Operation, done, total)
		}))
	}

	return loadtest.NewRunner(h.log, opts...)
}

// Probe lists users once on each backend in ids and reports the error per
// backend, nil meaning healthy. An empty ids probes every configured backend.
func (h *Harness) Probe(ctx context.Context, ids []backend.ID) (map[backend.ID]error, error) {
	if h.set == nil {
		return nil, errNotStarted
	}

	if len(ids) == 0 {
		ids = h.set.IDs()
	}

	out := make(map[backend.ID]error, len(ids))

	for _, id := range ids {
		a, ok := h.set.Adapter(id)
		if !ok {
			out[id] = fmt.Errorf("%w: %s", errNotConfigured, id)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, h.probeTimeout)
		_, err := a.ListAllListeners(callCtx)
		cancel()

		out[id] = err

		h.log.WithFields(logrus.Fields{
			"backend": id,
			"healthy": err == nil,
		}).Debug("probed backend")
	}

	return out, nil
}
