package backend

import (
	"context"
	"fmt"

	"github.com/ethpandaops/protobench/internal/catalog"
	"github.com/sirupsen/logrus"
)

// RESTAdapter talks to the resource-oriented JSON API.
type RESTAdapter struct {
	*httpSession
	log logrus.FieldLogger
}

// NewREST creates a REST adapter rooted at ep.Address.
func NewREST(log logrus.FieldLogger, ep Endpoint) *RESTAdapter {
	return &RESTAdapter{
		httpSession: newHTTPSession(REST, ep),
		log:         log.WithFields(logrus.Fields{"component": "backend", "backend": REST}),
	}
}

func (a *RESTAdapter) ListAllListeners(ctx context.Context) ([]catalog.Listener, error) {
	v, err := a.getJSON(ctx, OpListListeners, "/user")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Listeners(records(v))
	logDropped(a.log, OpListListeners, dropped)

	return out, nil
}

func (a *RESTAdapter) ListAllTracks(ctx context.Context) ([]catalog.Track, error) {
	v, err := a.getJSON(ctx, OpListTracks, "/music")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Tracks(records(v))
	logDropped(a.log, OpListTracks, dropped)

	return out, nil
}

func (a *RESTAdapter) ListCollectionsOfListener(ctx context.Context, listenerID int64) ([]catalog.Collection, error) {
	v, err := a.getJSON(ctx, OpCollectionsOfListener, fmt.Sprintf("/user/%d/playlists", listenerID))
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Collections(records(v))
	logDropped(a.log, OpCollectionsOfListener, dropped)

	return out, nil
}

func (a *RESTAdapter) ListTracksOfCollection(ctx context.Context, collectionID int64) ([]catalog.Track, error) {
	v, err := a.getJSON(ctx, OpTracksOfCollection, fmt.Sprintf("/playlist/%d/musics", collectionID))
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Tracks(records(v))
	logDropped(a.log, OpTracksOfCollection, dropped)

	return out, nil
}

func (a *RESTAdapter) ListCollectionsContainingTrack(ctx context.Context, trackID int64) ([]catalog.Collection, error) {
	v, err := a.getJSON(ctx, OpCollectionsContainingTrack, fmt.Sprintf("/music/%d/playlists", trackID))
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Collections(records(v))
	logDropped(a.log, OpCollectionsContainingTrack, dropped)

	return out, nil
}

func logDropped(log logrus.FieldLogger, op Operation, dropped int) {
	if dropped == 0 {
		return
	}

	log.WithFields(logrus.Fields{
		"operation": op,
		"dropped":   dropped,
	}).Debug("dropped records that could not be coerced")
}

var _ Adapter = (*RESTAdapter)(nil)
