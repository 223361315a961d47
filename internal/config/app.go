// Package config resolves protobench settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/registry"
	"github.com/joho/godotenv"
)

// BackendOptions holds the endpoints of the four backends.
type BackendOptions struct {
	RESTBaseURL      string `env:"REST_BASE_URL" envDefault:"http://localhost:3000"`
	RESTTimeoutMs    int    `env:"REST_TIMEOUT_MS" envDefault:"5000"`
	GraphQLURL       string `env:"GRAPHQL_URL" envDefault:"http://localhost:3000/graphql"`
	GraphQLTimeoutMs int    `env:"GRAPHQL_TIMEOUT_MS" envDefault:"5000"`
	SOAPBaseURL      string `env:"SOAP_BASE_URL" envDefault:"http://localhost:8080"`
	SOAPTimeoutMs    int    `env:"SOAP_TIMEOUT_MS" envDefault:"5000"`
	GRPCAddr         string `env:"GRPC_ADDR" envDefault:"localhost:4000"`
	GRPCTimeoutMs    int    `env:"GRPC_TIMEOUT_MS" envDefault:"5000"`
}

// RunOptions holds the defaults for a load test run.
type RunOptions struct {
	CallTimeout        time.Duration `env:"CALL_TIMEOUT" envDefault:"5s"`
	Iterations         int           `env:"ITERATIONS" envDefault:"100"`
	Workers            int           `env:"WORKERS" envDefault:"1"`
	RateLimit          float64       `env:"RATE_LIMIT" envDefault:"0"`
	SampleListenerID   int64         `env:"SAMPLE_LISTENER_ID" envDefault:"1"`
	SampleCollectionID int64         `env:"SAMPLE_COLLECTION_ID" envDefault:"1"`
	SampleTrackID      int64         `env:"SAMPLE_TRACK_ID" envDefault:"1"`
}

// StoreOptions configures the optional ClickHouse result store.
type StoreOptions struct {
	Enabled              bool   `env:"RESULTS_STORE_ENABLED" envDefault:"false"`
	ClickhouseHost       string `env:"CLICKHOUSE_HOST" envDefault:"localhost"`
	ClickhouseNativePort int    `env:"CLICKHOUSE_NATIVE_PORT" envDefault:"9000"`
	ClickhouseUsername   string `env:"CLICKHOUSE_USERNAME" envDefault:"default"`
	ClickhousePassword   string `env:"CLICKHOUSE_PASSWORD"`
	ClickhouseDatabase   string `env:"CLICKHOUSE_DATABASE" envDefault:"protobench"`
}

// AppConfig holds the application configuration loaded from environment variables.
type AppConfig struct {
	Backends    BackendOptions
	Run         RunOptions
	Store       StoreOptions
	MetricsAddr string `env:"METRICS_ADDR"`
}

// Load reads configuration from environment variables and the .env file.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", EnvFile, err)
	}

	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values no run can use.
func (c *AppConfig) Validate() error {
	var problems []string

	if c.Run.Iterations < 1 {
		problems = append(problems, fmt.Sprintf("ITERATIONS must be >= 1, got %d", c.Run.Iterations))
	}

	if c.Run.Workers < 1 {
		problems = append(problems, fmt.Sprintf("WORKERS must be >= 1, got %d", c.Run.Workers))
	}

	if c.Run.RateLimit < 0 {
		problems = append(problems, fmt.Sprintf("RATE_LIMIT must be >= 0, got %g", c.Run.RateLimit))
	}

	if c.Run.CallTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("CALL_TIMEOUT must be positive, got %s", c.Run.CallTimeout))
	}

	if c.Run.SampleListenerID < 1 || c.Run.SampleCollectionID < 1 || c.Run.SampleTrackID < 1 {
		problems = append(problems, "SAMPLE_*_ID values must be >= 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; ")) //nolint:err113 // lists every problem
	}

	return nil
}

// Endpoints returns the backend endpoint table.
func (c *AppConfig) Endpoints() map[backend.ID]backend.Endpoint {
	b := c.Backends

	return map[backend.ID]backend.Endpoint{
		backend.REST:    {Address: b.RESTBaseURL, TimeoutMs: b.RESTTimeoutMs},
		backend.GraphQL: {Address: b.GraphQLURL, TimeoutMs: b.GraphQLTimeoutMs},
		backend.SOAP:    {Address: b.SOAPBaseURL, TimeoutMs: b.SOAPTimeoutMs},
		backend.GRPC:    {Address: b.GRPCAddr, TimeoutMs: b.GRPCTimeoutMs},
	}
}

// Sample returns the fixed ids passed to id-taking operations.
func (c *AppConfig) Sample() registry.Sample {
	return registry.Sample{
		ListenerID:   c.Run.SampleListenerID,
		CollectionID: c.Run.SampleCollectionID,
		TrackID:      c.Run.SampleTrackID,
	}
}

// String renders the config grouped by section with secrets masked.
func (c *AppConfig) String() string {
	var sb strings.Builder

	section := func(title string) {
		sb.WriteString("\n[" + title + "]\n")
	}
	line := func(key string, value any) {
		fmt.Fprintf(&sb, "  %-20s %v\n", key+":", value)
	}
	orElse := func(value, fallback string) string {
		if value == "" {
			return fallback
		}
		return value
	}

	rate := "(unlimited)"
	if c.Run.RateLimit > 0 {
		rate = fmt.Sprintf("%g req/s", c.Run.RateLimit)
	}

	password := "(not set)"
	if c.Store.ClickhousePassword != "" {
		password = "********"
	}

	section("backends")
	line("REST", fmt.Sprintf("%s (%dms)", c.Backends.RESTBaseURL, c.Backends.RESTTimeoutMs))
	line("GraphQL", fmt.Sprintf("%s (%dms)", c.Backends.GraphQLURL, c.Backends.GraphQLTimeoutMs))
	line("SOAP", fmt.Sprintf("%s (%dms)", c.Backends.SOAPBaseURL, c.Backends.SOAPTimeoutMs))
	line("gRPC", fmt.Sprintf("%s (%dms)", c.Backends.GRPCAddr, c.Backends.GRPCTimeoutMs))

	section("run")
	line("Iterations", c.Run.Iterations)
	line("Workers", c.Run.Workers)
	line("Call timeout", c.Run.CallTimeout)
	line("Rate limit", rate)
	line("Sample ids", fmt.Sprintf("listener=%d collection=%d track=%d",
		c.Run.SampleListenerID, c.Run.SampleCollectionID, c.Run.SampleTrackID))
	line("Metrics", orElse(c.MetricsAddr, "(disabled)"))

	section("store")
	line("Enabled", c.Store.Enabled)
	line("ClickHouse", fmt.Sprintf("%s:%d", c.Store.ClickhouseHost, c.Store.ClickhouseNativePort))
	line("Username", c.Store.ClickhouseUsername)
	line("Password", password)
	line("Database", c.Store.ClickhouseDatabase)

	return strings.TrimPrefix(sb.String(), "\n")
}
