// Package backend provides one catalog client per protocol variant behind a
// single Adapter capability.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/protobench/internal/catalog"
	"github.com/sirupsen/logrus"
)

// Adapter is the capability every backend variant implements.
type Adapter interface {
	ListAllListeners(ctx context.Context) ([]catalog.Listener, error)
	ListAllTracks(ctx context.Context) ([]catalog.Track, error)
	ListCollectionsOfListener(ctx context.Context, listenerID int64) ([]catalog.Collection, error)
	ListTracksOfCollection(ctx context.Context, collectionID int64) ([]catalog.Track, error)
	ListCollectionsContainingTrack(ctx context.Context, trackID int64) ([]catalog.Collection, error)
}

// Endpoint is the static address and timeout of one backend.
type Endpoint struct {
	Address   string
	TimeoutMs int
}

// Timeout returns the configured timeout, defaulting to five seconds.
func (e Endpoint) Timeout() time.Duration {
	if e.TimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

// closer is implemented by every adapter in this package.
type closer interface {
	Close() error
}

// Set owns one adapter per configured backend and tears them all down on Close.
type Set struct {
	log      logrus.FieldLogger
	adapters map[ID]Adapter
	order    []ID
}

// NewSet builds adapters for every backend that has an endpoint. No connection
// is opened until an adapter is first used.
func NewSet(log logrus.FieldLogger, endpoints map[ID]Endpoint) (*Set, error) {
	s := &Set{
		log:      log.WithField("component", "backend_set"),
		adapters: make(map[ID]Adapter, len(endpoints)),
	}

	for _, id := range All() {
		ep, ok := endpoints[id]
		if !ok || ep.Address == "" {
			continue
		}

		adapter, err := newAdapter(log, id, ep)
		if err != nil {
			return nil, fmt.Errorf("creating %s adapter: %w", id, err)
		}

		s.adapters[id] = adapter
		s.order = append(s.order, id)
	}

	return s, nil
}

// NewSetFrom wraps already constructed adapters. Adapters that implement
// Close are closed by Set.Close.
func NewSetFrom(log logrus.FieldLogger, adapters map[ID]Adapter) *Set {
	s := &Set{
		log:      log.WithField("component", "backend_set"),
		adapters: make(map[ID]Adapter, len(adapters)),
	}

	for _, id := range All() {
		if a, ok := adapters[id]; ok && a != nil {
			s.adapters[id] = a
			s.order = append(s.order, id)
		}
	}

	return s
}

// IDs returns the configured backends in priority order.
func (s *Set) IDs() []ID {
	out := make([]ID, len(s.order))
	copy(out, s.order)
	return out
}

func newAdapter(log logrus.FieldLogger, id ID, ep Endpoint) (Adapter, error) {
	switch id {
	case REST:
		return NewREST(log, ep), nil
	case GraphQL:
		return NewGraphQL(log, ep), nil
	case SOAP:
		return NewSOAP(log, ep), nil
	case GRPC:
		return NewGRPC(log, ep)
	default:
		return nil, fmt.Errorf("unknown backend %q", string(id)) //nolint:err113 // includes id
	}
}

// Adapter returns the adapter for id.
func (s *Set) Adapter(id ID) (Adapter, bool) {
	a, ok := s.adapters[id]
	return a, ok
}

// Adapters returns a copy of the adapter table.
func (s *Set) Adapters() map[ID]Adapter {
	out := make(map[ID]Adapter, len(s.adapters))
	for id, a := range s.adapters {
		out[id] = a
	}
	return out
}

// Close releases every cached connection.
func (s *Set) Close() error {
	var errs []error

	for _, id := range s.order {
		c, ok := s.adapters[id].(closer)
		if !ok {
			continue
		}

		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", id, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing adapters: %v", errs) //nolint:err113 // Include error list for debugging
	}

	s.log.Debug("closed backend adapters")

	return nil
}
