package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/plan"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	runPlanFile = ""

	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.IntVar(&runIterations, "iterations", config.DefaultIterations, "")
	fs.StringSliceVar(&runOperations, "operations", nil, "")
	fs.StringSliceVar(&runBackends, "backends", nil, "")
	fs.IntVar(&runWorkers, "workers", 1, "")
	fs.DurationVar(&runCallTimeout, "call-timeout", 5*time.Second, "")
	fs.Float64Var(&runRate, "rate", 0, "")
	fs.StringVar(&runPlanFile, "plan", "", "")

	require.NoError(t, fs.Parse(args))

	return fs
}

func defaultConfig() *config.AppConfig {
	return &config.AppConfig{Run: config.RunOptions{
		CallTimeout:        5 * time.Second,
		Iterations:         100,
		Workers:            1,
		SampleListenerID:   1,
		SampleCollectionID: 1,
		SampleTrackID:      1,
	}}
}

func TestBuildPlan_Defaults(t *testing.T) {
	p, err := buildPlan(runFlags(t), defaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 100, p.Iterations)
	assert.Equal(t, backend.All(), p.Backends)
	assert.Equal(t, backend.Operations(), p.Operations)
}

func TestBuildPlan_FlagsOverridePlanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: 40\nworkers: 4\nbackends: [soap]\n"), 0o600))

	p, err := buildPlan(runFlags(t, "--plan", path, "--iterations", "7", "--operations", "list_tracks"), defaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 7, p.Iterations)
	assert.Equal(t, 4, p.Workers)
	assert.Equal(t, []backend.ID{backend.SOAP}, p.Backends)
	assert.Equal(t, []backend.Operation{backend.OpListTracks}, p.Operations)
}

func TestBuildPlan_Invalid(t *testing.T) {
	_, err := buildPlan(runFlags(t, "--iterations", "0"), defaultConfig())
	require.Error(t, err)
	assert.True(t, plan.IsInvalid(err))

	_, err = buildPlan(runFlags(t, "--backends", "corba"), defaultConfig())
	require.Error(t, err)
}
