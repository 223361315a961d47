package actions

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/plan"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func restServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"Ana","age":30}]`)
	})
	mux.HandleFunc("/music", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"Song","artist":"Band"}]`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func testConfig(restURL string) *config.AppConfig {
	return &config.AppConfig{
		Backends: config.BackendOptions{
			RESTBaseURL:   restURL,
			RESTTimeoutMs: 1000,
		},
	}
}

func TestCompare(t *testing.T) {
	color.NoColor = true

	srv := restServer(t)

	p := plan.Default()
	p.Iterations = 3
	p.Backends = []backend.ID{backend.REST}
	p.Operations = []backend.Operation{backend.OpListListeners, backend.OpListTracks}

	var out bytes.Buffer

	outcome, err := Compare(context.Background(), testLogger(), testConfig(srv.URL), CompareOptions{
		Plan: p,
		Out:  &out,
	})
	require.NoError(t, err)

	require.Len(t, outcome.Results, 2)
	assert.Equal(t, 6, outcome.Report.TotalRequests)
	assert.Zero(t, outcome.Report.TotalFailures)
	assert.Contains(t, out.String(), "▸ Ranking")
	assert.Contains(t, out.String(), "list_tracks")
}

func TestHealth(t *testing.T) {
	color.NoColor = true

	srv := restServer(t)

	var out bytes.Buffer

	health, err := Health(context.Background(), testLogger(), testConfig(srv.URL), []backend.ID{backend.REST}, &out)
	require.NoError(t, err)
	assert.NoError(t, health[backend.REST])
	assert.Contains(t, out.String(), "✓ OK")

	// GraphQL has no address, so it is not configured.
	health, err = Health(context.Background(), testLogger(), testConfig(srv.URL), []backend.ID{backend.GraphQL}, &out)
	require.ErrorIs(t, err, ErrUnhealthy)
	assert.Error(t, health[backend.GraphQL])
}
