// Package metrics exposes call and trial measurements to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/loadtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "protobench"

// Recorder implements loadtest.Observer on a private registry and can serve
// it over HTTP.
type Recorder struct {
	log      logrus.FieldLogger
	registry *prometheus.Registry

	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	errorRate    *prometheus.GaugeVec
	throughput   *prometheus.GaugeVec

	addr     string
	server   *http.Server
	listener net.Listener
}

// NewRecorder creates a recorder. With an empty addr nothing is served.
func NewRecorder(log logrus.FieldLogger, addr string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		log:      log.WithField("component", "metrics"),
		registry: reg,
		addr:     addr,
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of backend calls made by trials.",
		}, []string{"backend", "operation", "result"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Latency distribution of backend calls.",
			Buckets: []float64{
				0.0005, 0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5,
			},
		}, []string{"backend", "operation"}),
		errorRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trial_error_rate",
			Help:      "Error rate of the last completed trial (0-1).",
		}, []string{"backend", "operation"}),
		throughput: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trial_throughput",
			Help:      "Requests per second of the last completed trial.",
		}, []string{"backend", "operation"}),
	}
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveCall records one call.
func (r *Recorder) ObserveCall(id backend.ID, op backend.Operation, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = string(backend.KindOf(err))
	}

	r.callsTotal.WithLabelValues(string(id), string(op), result).Inc()
	r.callDuration.WithLabelValues(string(id), string(op)).Observe(elapsed.Seconds())
}

// ObserveTrial records the summary of a finished trial.
func (r *Recorder) ObserveTrial(res *loadtest.Result) {
	r.errorRate.WithLabelValues(string(res.Backend), string(res.Operation)).Set(res.ErrorRate)
	r.throughput.WithLabelValues(string(res.Backend), string(res.Operation)).Set(res.Throughput)
}

// Start serves /metrics on the configured address, if any.
func (r *Recorder) Start(_ context.Context) error {
	if r.addr == "" {
		return nil
	}

	lis, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", r.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	r.listener = lis
	r.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := r.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.WithError(err).Error("metrics server stopped")
		}
	}()

	r.log.WithField("address", lis.Addr().String()).Info("serving metrics")

	return nil
}

// Addr returns the bound address, or "" when not serving.
func (r *Recorder) Addr() string {
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// Stop shuts the server down.
func (r *Recorder) Stop() error {
	if r.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down metrics server: %w", err)
	}

	return nil
}

var _ loadtest.Observer = (*Recorder)(nil)
