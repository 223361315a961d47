package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/protobench/internal/catalog"
	"github.com/sirupsen/logrus"
)

var errGraphQL = errors.New("graphql error")

const (
	queryUsers = `query { users { id name age } }`

	queryMusics = `query { musics { id name artist } }`

	queryUserPlaylists = `query GetUserPlaylists($userId: Int!) {
  user(id: $userId) { id name playlists { id name } }
}`

	queryPlaylistMusics = `query GetPlaylistMusics($playlistId: Int!) {
  playlist(id: $playlistId) { id name musics { id name artist } }
}`

	queryMusicPlaylists = `query GetMusicPlaylists($musicId: Int!) {
  music(id: $musicId) { id name artist playlists { id name } }
}`
)

// GraphQLAdapter posts queries to a single GraphQL endpoint.
type GraphQLAdapter struct {
	*httpSession
	log logrus.FieldLogger
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// NewGraphQL creates a GraphQL adapter posting to ep.Address.
func NewGraphQL(log logrus.FieldLogger, ep Endpoint) *GraphQLAdapter {
	return &GraphQLAdapter{
		httpSession: newHTTPSession(GraphQL, ep),
		log:         log.WithFields(logrus.Fields{"component": "backend", "backend": GraphQL}),
	}
}

// query runs q and walks the data object along path, returning the list found
// at the end of it. A missing or null step yields an empty list.
func (a *GraphQLAdapter) query(ctx context.Context, op Operation, q string, vars map[string]any, path ...string) ([]catalog.Record, error) {
	if vars == nil {
		vars = map[string]any{}
	}

	v, err := a.postJSON(ctx, op, "", graphQLRequest{Query: q, Variables: vars})
	if err != nil {
		return nil, err
	}

	envelope, ok := v.(map[string]any)
	if !ok {
		return nil, newError(GraphQL, op, KindCallFailure, fmt.Errorf("%w: response is not an object", errGraphQL))
	}

	if msg, failed := graphQLErrorMessage(envelope["errors"]); failed {
		return nil, newError(GraphQL, op, KindCallFailure, fmt.Errorf("%w: %s", errGraphQL, msg))
	}

	var node any = envelope["data"]
	for _, key := range path {
		obj, ok := node.(map[string]any)
		if !ok {
			return []catalog.Record{}, nil
		}
		node = obj[key]
	}

	return records(node), nil
}

func graphQLErrorMessage(raw any) (string, bool) {
	errs, ok := raw.([]any)
	if !ok || len(errs) == 0 {
		return "", false
	}

	if first, ok := errs[0].(map[string]any); ok {
		if msg, ok := first["message"].(string); ok {
			return msg, true
		}
	}

	return "unknown error", true
}

func (a *GraphQLAdapter) ListAllListeners(ctx context.Context) ([]catalog.Listener, error) {
	recs, err := a.query(ctx, OpListListeners, queryUsers, nil, "users")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Listeners(recs)
	logDropped(a.log, OpListListeners, dropped)

	return out, nil
}

func (a *GraphQLAdapter) ListAllTracks(ctx context.Context) ([]catalog.Track, error) {
	recs, err := a.query(ctx, OpListTracks, queryMusics, nil, "musics")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Tracks(recs)
	logDropped(a.log, OpListTracks, dropped)

	return out, nil
}

func (a *GraphQLAdapter) ListCollectionsOfListener(ctx context.Context, listenerID int64) ([]catalog.Collection, error) {
	recs, err := a.query(ctx, OpCollectionsOfListener, queryUserPlaylists,
		map[string]any{"userId": listenerID}, "user", "playlists")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Collections(recs)
	logDropped(a.log, OpCollectionsOfListener, dropped)

	return out, nil
}

func (a *GraphQLAdapter) ListTracksOfCollection(ctx context.Context, collectionID int64) ([]catalog.Track, error) {
	recs, err := a.query(ctx, OpTracksOfCollection, queryPlaylistMusics,
		map[string]any{"playlistId": collectionID}, "playlist", "musics")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Tracks(recs)
	logDropped(a.log, OpTracksOfCollection, dropped)

	return out, nil
}

func (a *GraphQLAdapter) ListCollectionsContainingTrack(ctx context.Context, trackID int64) ([]catalog.Collection, error) {
	recs, err := a.query(ctx, OpCollectionsContainingTrack, queryMusicPlaylists,
		map[string]any{"musicId": trackID}, "music", "playlists")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Collections(recs)
	logDropped(a.log, OpCollectionsContainingTrack, dropped)

	return out, nil
}

var _ Adapter = (*GraphQLAdapter)(nil)
