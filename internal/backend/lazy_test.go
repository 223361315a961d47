package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazy_OpensOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	var opens atomic.Int32

	l := newLazy(func(_ context.Context) (int, error) {
		return int(opens.Add(1)), nil
	}, nil)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 1, v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), opens.Load())
}

func TestLazy_RetriesAfterFailure(t *testing.T) {
	t.Parallel()

	attempts := 0
	l := newLazy(func(_ context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("refused")
		}
		return "conn", nil
	}, nil)

	_, err := l.get(context.Background())
	require.Error(t, err)

	v, err := l.get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "conn", v)
	assert.Equal(t, 2, attempts)
}

func TestLazy_CloseResets(t *testing.T) {
	t.Parallel()

	var closed []string
	l := newLazy(func(_ context.Context) (string, error) {
		return "conn", nil
	}, func(v string) error {
		closed = append(closed, v)
		return nil
	})

	require.NoError(t, l.Close())
	assert.Empty(t, closed)

	_, err := l.get(context.Background())
	require.NoError(t, err)
	require.NoError(t, l.Close())
	assert.Equal(t, []string{"conn"}, closed)
	assert.False(t, l.ready)
}

func TestSet(t *testing.T) {
	t.Parallel()

	set, err := NewSet(testLogger(), map[ID]Endpoint{
		REST:    {Address: "http://localhost:3000"},
		GraphQL: {Address: ""},
		GRPC:    {Address: "localhost:4000"},
	})
	require.NoError(t, err)

	_, ok := set.Adapter(REST)
	assert.True(t, ok)

	_, ok = set.Adapter(GraphQL)
	assert.False(t, ok)

	assert.Len(t, set.Adapters(), 2)
	require.NoError(t, set.Close())
}
