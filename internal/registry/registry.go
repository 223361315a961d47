// Package registry binds every (operation, backend) pair to a callable thunk.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/protobench/internal/backend"
)

// ErrMissingBinding is returned when a requested pair has no thunk.
var ErrMissingBinding = errors.New("missing binding")

// Thunk performs one call and reports how many entities came back.
type Thunk func(ctx context.Context) (int, error)

// Binding is one (operation, backend) entry of the table.
type Binding struct {
	Operation     backend.Operation
	Backend       backend.ID
	Call          Thunk
	Unimplemented bool
}

// Sample holds the fixed arguments passed to the id-taking operations. The
// same values are used for every backend.
type Sample struct {
	ListenerID   int64 `yaml:"listener_id" validate:"gt=0"`
	CollectionID int64 `yaml:"collection_id" validate:"gt=0"`
	TrackID      int64 `yaml:"track_id" validate:"gt=0"`
}

// DefaultSample returns the sample ids used when none are configured.
func DefaultSample() Sample {
	return Sample{ListenerID: 1, CollectionID: 1, TrackID: 1}
}

type key struct {
	op backend.Operation
	id backend.ID
}

// unimplemented lists operations a backend declares absent.
var unimplemented = map[key]bool{
	{op: backend.OpCollectionsContainingTrack, id: backend.GRPC}: true,
}

// IsUnimplemented reports whether id declares op absent.
func IsUnimplemented(op backend.Operation, id backend.ID) bool {
	return unimplemented[key{op: op, id: id}]
}

// Registry is the static binding table. It performs no I/O.
type Registry struct {
	bindings map[key]Binding
}

// New binds every operation for each adapter provided.
func New(adapters map[backend.ID]backend.Adapter, sample Sample) *Registry {
	r := &Registry{bindings: make(map[key]Binding, len(adapters)*len(backend.Operations()))}

	for _, id := range backend.All() {
		a, ok := adapters[id]
		if !ok || a == nil {
			continue
		}

		for _, op := range backend.Operations() {
			r.bindings[key{op: op, id: id}] = Binding{
				Operation:     op,
				Backend:       id,
				Call:          bind(a, op, sample),
				Unimplemented: IsUnimplemented(op, id),
			}
		}
	}

	return r
}

func bind(a backend.Adapter, op backend.Operation, s Sample) Thunk {
	switch op {
	case backend.OpListListeners:
		return func(ctx context.Context) (int, error) {
			out, err := a.ListAllListeners(ctx)
			return len(out), err
		}
	case backend.OpListTracks:
		return func(ctx context.Context) (int, error) {
			out, err := a.ListAllTracks(ctx)
			return len(out), err
		}
	case backend.OpCollectionsOfListener:
		return func(ctx context.Context) (int, error) {
			out, err := a.ListCollectionsOfListener(ctx, s.ListenerID)
			return len(out), err
		}
	case backend.OpTracksOfCollection:
		return func(ctx context.Context) (int, error) {
			out, err := a.ListTracksOfCollection(ctx, s.CollectionID)
			return len(out), err
		}
	case backend.OpCollectionsContainingTrack:
		return func(ctx context.Context) (int, error) {
			out, err := a.ListCollectionsContainingTrack(ctx, s.TrackID)
			return len(out), err
		}
	default:
		return nil
	}
}

// Lookup returns the binding for a pair.
func (r *Registry) Lookup(op backend.Operation, id backend.ID) (Binding, bool) {
	b, ok := r.bindings[key{op: op, id: id}]
	return b, ok
}

// Resolve returns the bindings for every requested pair, operation-major in
// the order given. Any missing pair fails the whole resolution.
func (r *Registry) Resolve(ops []backend.Operation, ids []backend.ID) ([]Binding, error) {
	out := make([]Binding, 0, len(ops)*len(ids))

	for _, op := range ops {
		for _, id := range ids {
			b, ok := r.Lookup(op, id)
			if !ok || b.Call == nil {
				return nil, fmt.Errorf("%w: %s on %q", ErrMissingBinding, op, string(id))
			}

			out = append(out, b)
		}
	}

	return out, nil
}

// Len returns the number of bound pairs.
func (r *Registry) Len() int {
	return len(r.bindings)
}
