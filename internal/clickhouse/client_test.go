package clickhouse

import (
	"testing"

	"github.com/ethpandaops/protobench/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	opts := Options(config.StoreOptions{
		ClickhouseHost:       "ch.local",
		ClickhouseNativePort: 9440,
		ClickhouseUsername:   "bench",
		ClickhousePassword:   "secret",
	}, "protobench")

	assert.Equal(t, []string{"ch.local:9440"}, opts.Addr)
	assert.Equal(t, "protobench", opts.Auth.Database)
	assert.Equal(t, "bench", opts.Auth.Username)
}

func TestValidDatabaseName(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidDatabaseName("protobench"))
	assert.True(t, ValidDatabaseName("_bench_2"))
	assert.False(t, ValidDatabaseName("2bench"))
	assert.False(t, ValidDatabaseName("bench`; DROP"))
	assert.False(t, ValidDatabaseName(""))
}
