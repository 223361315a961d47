package registry

import (
	"context"
	"testing"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingAdapter remembers the ids it was called with.
type recordingAdapter struct {
	calls map[string]int64
}

func newRecordingAdapter() *recordingAdapter {
	return &recordingAdapter{calls: make(map[string]int64)}
}

func (r *recordingAdapter) ListAllListeners(context.Context) ([]catalog.Listener, error) {
	r.calls["listeners"] = 0
	return []catalog.Listener{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, nil
}

func (r *recordingAdapter) ListAllTracks(context.Context) ([]catalog.Track, error) {
	r.calls["tracks"] = 0
	return nil, nil
}

func (r *recordingAdapter) ListCollectionsOfListener(_ context.Context, id int64) ([]catalog.Collection, error) {
	r.calls["collections_of_listener"] = id
	return nil, nil
}

func (r *recordingAdapter) ListTracksOfCollection(_ context.Context, id int64) ([]catalog.Track, error) {
	r.calls["tracks_of_collection"] = id
	return nil, nil
}

func (r *recordingAdapter) ListCollectionsContainingTrack(_ context.Context, id int64) ([]catalog.Collection, error) {
	r.calls["collections_containing_track"] = id
	return []catalog.Collection{}, nil
}

func allAdapters() map[backend.ID]backend.Adapter {
	out := make(map[backend.ID]backend.Adapter)
	for _, id := range backend.All() {
		out[id] = newRecordingAdapter()
	}
	return out
}

func TestNew_BindsEveryPair(t *testing.T) {
	t.Parallel()

	r := New(allAdapters(), DefaultSample())
	require.Equal(t, 20, r.Len())

	bindings, err := r.Resolve(backend.Operations(), backend.All())
	require.NoError(t, err)
	require.Len(t, bindings, 20)

	// Operation-major order.
	assert.Equal(t, backend.OpListListeners, bindings[0].Operation)
	assert.Equal(t, backend.REST, bindings[0].Backend)
	assert.Equal(t, backend.GRPC, bindings[3].Backend)
	assert.Equal(t, backend.OpListTracks, bindings[4].Operation)
}

func TestUnimplementedTag(t *testing.T) {
	t.Parallel()

	r := New(allAdapters(), DefaultSample())

	for _, op := range backend.Operations() {
		for _, id := range backend.All() {
			b, ok := r.Lookup(op, id)
			require.True(t, ok)

			want := op == backend.OpCollectionsContainingTrack && id == backend.GRPC
			assert.Equal(t, want, b.Unimplemented, "%s/%s", op, id)
		}
	}
}

func TestThunksCloseOverSample(t *testing.T) {
	t.Parallel()

	a := newRecordingAdapter()
	r := New(map[backend.ID]backend.Adapter{backend.SOAP: a}, Sample{ListenerID: 3, CollectionID: 5, TrackID: 7})

	for _, op := range backend.Operations() {
		b, ok := r.Lookup(op, backend.SOAP)
		require.True(t, ok)

		_, err := b.Call(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), a.calls["collections_of_listener"])
	assert.Equal(t, int64(5), a.calls["tracks_of_collection"])
	assert.Equal(t, int64(7), a.calls["collections_containing_track"])

	b, _ := r.Lookup(backend.OpListListeners, backend.SOAP)
	n, err := b.Call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestResolve_MissingBindingFailsFast(t *testing.T) {
	t.Parallel()

	r := New(map[backend.ID]backend.Adapter{backend.REST: newRecordingAdapter()}, DefaultSample())

	_, err := r.Resolve([]backend.Operation{backend.OpListTracks}, []backend.ID{backend.REST, backend.GraphQL})
	require.ErrorIs(t, err, ErrMissingBinding)
	assert.EqualError(t, err, `missing binding: list_tracks on "graphql"`)
}
