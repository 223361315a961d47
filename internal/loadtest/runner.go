// Package loadtest drives repeated calls of one operation against one backend
// and reduces the samples into a Result.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/registry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrInvalidIterations is returned when a trial asks for fewer than one call.
var ErrInvalidIterations = errors.New("iterations must be at least 1")

// DefaultCallTimeout bounds a single call when no timeout is configured.
const DefaultCallTimeout = 5 * time.Second

// Trial identifies what a run exercises.
type Trial struct {
	Backend       backend.ID
	Operation     backend.Operation
	Call          registry.Thunk
	Unimplemented bool
}

// TrialFromBinding builds a trial from a registry binding.
func TrialFromBinding(b registry.Binding) Trial {
	return Trial{
		Backend:       b.Backend,
		Operation:     b.Operation,
		Call:          b.Call,
		Unimplemented: b.Unimplemented,
	}
}

// Observer receives every recorded sample and every finished trial.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveCall(id backend.ID, op backend.Operation, elapsed time.Duration, err error)
	ObserveTrial(r *Result)
}

// ProgressFunc is called with the number of completed calls. It may be
// called from several workers at once.
type ProgressFunc func(done, total int)

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the number of concurrent callers. Values below one mean
// a single sequential loop.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithCallTimeout sets the per-call budget.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// WithRateLimit caps calls per second across all workers. Zero disables it.
func WithRateLimit(perSecond float64) Option {
	return func(r *Runner) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithClock replaces the time source used for every measurement.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithObserver attaches an observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithProgress attaches a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// Runner executes trials.
type Runner struct {
	log         logrus.FieldLogger
	workers     int
	callTimeout time.Duration
	limiter     *rate.Limiter
	now         func() time.Time
	observer    Observer
	progress    ProgressFunc
}

// NewRunner creates a runner. Without options it runs sequentially with the
// default call timeout and the wall clock.
func NewRunner(log logrus.FieldLogger, opts ...Option) *Runner {
	r := &Runner{
		log:         log.WithField("component", "loadtest_runner"),
		workers:     1,
		callTimeout: DefaultCallTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run calls thunk iterations times against one backend.
func (r *Runner) Run(ctx context.Context, id backend.ID, op backend.Operation, thunk registry.Thunk, iterations int) (*Result, error) {
	return r.RunTrial(ctx, Trial{Backend: id, Operation: op, Call: thunk}, iterations)
}

// RunTrial executes the trial. A failing call never stops the run. If ctx is
// cancelled, in-flight calls are abandoned and the samples completed so far
// are returned as a partial result alongside the context error.
func (r *Runner) RunTrial(ctx context.Context, trial Trial, iterations int) (*Result, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIterations, iterations)
	}

	if trial.Call == nil {
		return nil, fmt.Errorf("trial %s/%s has no call", trial.Operation, trial.Backend) //nolint:err113 // includes pair
	}

	log := r.log.WithFields(logrus.Fields{
		"backend":   trial.Backend,
		"operation": trial.Operation,
	})

	var (
		samples = newCollector(iterations)
		step    = max(1, iterations/20)
		jobs    = make(chan struct{})
		started = r.now()
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)

		for i := 0; i < iterations; i++ {
			select {
			case jobs <- struct{}{}:
			case <-gCtx.Done():
				return nil
			}
		}

		return nil
	})

	workers := min(r.workers, iterations)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for range jobs {
				if r.limiter != nil {
					if err := r.limiter.Wait(gCtx); err != nil {
						return nil //nolint:nilerr // cancellation is reported by the caller's ctx
					}
				}

				s, ok := r.call(gCtx, trial)
				if !ok {
					continue
				}

				done := samples.record(s)

				if r.observer != nil {
					r.observer.ObserveCall(trial.Backend, trial.Operation, s.elapsed, s.err)
				}

				if r.progress != nil && (done%step == 0 || done == iterations) {
					r.progress(done, iterations)
				}
			}

			return nil
		})
	}

	_ = g.Wait()

	elapsed := r.now().Sub(started)

	if err := ctx.Err(); err != nil {
		result := newResult(trial, started, elapsed, samples, true)
		if result.Total == 0 {
			return nil, fmt.Errorf("trial cancelled before any call completed: %w", err)
		}

		log.WithField("completed", result.Total).Warn("trial cancelled, reporting partial result")

		return result, fmt.Errorf("trial cancelled: %w", err)
	}

	result := newResult(trial, started, elapsed, samples, false)

	if r.observer != nil {
		r.observer.ObserveTrial(result)
	}

	log.WithFields(logrus.Fields{
		"total":      result.Total,
		"failures":   result.Failures,
		"mean":       result.Mean,
		"throughput": fmt.Sprintf("%.2f", result.Throughput),
	}).Debug("trial complete")

	return result, nil
}

// call times a single invocation. It returns false when the parent context
// was cancelled while the call was in flight, in which case the sample is
// dropped.
func (r *Runner) call(ctx context.Context, trial Trial) (sample, bool) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	done := make(chan error, 1)
	start := r.now()

	go func() {
		_, err := trial.Call(callCtx)
		done <- err
	}()

	select {
	case err := <-done:
		elapsed := r.now().Sub(start)
		if ctx.Err() != nil {
			return sample{}, false
		}

		return sample{elapsed: elapsed, err: err}, true
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return sample{}, false
		}

		// The goroutine is abandoned; its result lands in the buffered channel.
		return sample{
			elapsed: r.callTimeout,
			err: &backend.Error{
				Backend:   trial.Backend,
				Operation: trial.Operation,
				Kind:      backend.KindTimeout,
				Err:       callCtx.Err(),
			},
		}, true
	}
}
