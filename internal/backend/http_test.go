package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethpandaops/protobench/internal/catalog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestRESTAdapter(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"Ana","age":30},{"id":0,"name":"ghost","age":1},{"id":2,"name":"Bo","age":"41"}]`)
	})
	mux.HandleFunc("/music", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":7,"name":"Song","artist":"Band"},{"id":8,"name":"","artist":"Band"}]`)
	})
	mux.HandleFunc("/user/1/playlists", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":3,"name":"Mix"}]`)
	})
	mux.HandleFunc("/playlist/3/musics", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":7,"name":"Song","artist":"Band"}]`)
	})
	mux.HandleFunc("/music/7/playlists", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"not":"a list"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := NewREST(testLogger(), Endpoint{Address: srv.URL + "/"})
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()

	users, err := a.ListAllListeners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Listener{{ID: 1, Name: "Ana", Age: 30}, {ID: 2, Name: "Bo", Age: 41}}, users)

	tracks, err := a.ListAllTracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Track{{ID: 7, Name: "Song", Artist: "Band"}}, tracks)

	playlists, err := a.ListCollectionsOfListener(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Collection{{ID: 3, Name: "Mix"}}, playlists)

	musics, err := a.ListTracksOfCollection(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, musics, 1)

	containing, err := a.ListCollectionsContainingTrack(ctx, 7)
	require.NoError(t, err)
	assert.NotNil(t, containing)
	assert.Empty(t, containing)
}

func TestRESTAdapter_Errors(t *testing.T) {
	t.Parallel()

	t.Run("non-2xx is a call failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)

		_, err := NewREST(testLogger(), Endpoint{Address: srv.URL}).ListAllListeners(context.Background())
		require.Error(t, err)
		assert.Equal(t, KindCallFailure, KindOf(err))
	})

	t.Run("malformed body is a call failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "<html>")
		}))
		t.Cleanup(srv.Close)

		_, err := NewREST(testLogger(), Endpoint{Address: srv.URL}).ListAllTracks(context.Background())
		assert.Equal(t, KindCallFailure, KindOf(err))
	})

	t.Run("bad scheme is a connection init failure", func(t *testing.T) {
		t.Parallel()

		_, err := NewREST(testLogger(), Endpoint{Address: "ftp://example"}).ListAllTracks(context.Background())
		assert.Equal(t, KindConnectionInit, KindOf(err))
	})

	t.Run("slow server is a timeout", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(func() {
			close(release)
			srv.Close()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := NewREST(testLogger(), Endpoint{Address: srv.URL}).ListAllListeners(ctx)
		assert.Equal(t, KindTimeout, KindOf(err))
	})
}

func TestGraphQLAdapter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch {
		case strings.Contains(req.Query, "users"):
			_, _ = io.WriteString(w, `{"data":{"users":[{"id":1,"name":"Ana","age":30}]}}`)
		case strings.Contains(req.Query, "GetUserPlaylists"):
			if req.Variables["userId"] != float64(5) {
				http.Error(w, "bad variables", http.StatusBadRequest)
				return
			}
			_, _ = io.WriteString(w, `{"data":{"user":{"id":5,"name":"Ana","playlists":[{"id":9,"name":"Chill"}]}}}`)
		case strings.Contains(req.Query, "GetPlaylistMusics"):
			_, _ = io.WriteString(w, `{"data":{"playlist":null}}`)
		case strings.Contains(req.Query, "GetMusicPlaylists"):
			_, _ = io.WriteString(w, `{"data":null,"errors":[{"message":"music not found"}]}`)
		default:
			_, _ = io.WriteString(w, `{"data":{"musics":[{"id":2,"name":"Song","artist":"Band"}]}}`)
		}
	}))
	t.Cleanup(srv.Close)

	a := NewGraphQL(testLogger(), Endpoint{Address: srv.URL + "/graphql"})
	ctx := context.Background()

	users, err := a.ListAllListeners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Listener{{ID: 1, Name: "Ana", Age: 30}}, users)

	tracks, err := a.ListAllTracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Track{{ID: 2, Name: "Song", Artist: "Band"}}, tracks)

	playlists, err := a.ListCollectionsOfListener(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Collection{{ID: 9, Name: "Chill"}}, playlists)

	musics, err := a.ListTracksOfCollection(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, musics)

	_, err = a.ListCollectionsContainingTrack(ctx, 2)
	require.Error(t, err)
	assert.Equal(t, KindCallFailure, KindOf(err))
	assert.Contains(t, err.Error(), "music not found")
}

const soapUsersResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <FindAllUsersResponse xmlns="http://music.soap.manager/user">
      <users><id>1</id><name>Ana</name><age>30</age></users>
      <users><id>2</id><name> </name><age>3</age></users>
    </FindAllUsersResponse>
  </soap:Body>
</soap:Envelope>`

const soapFaultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault><faultcode>Client</faultcode><faultstring>Unknown operation</faultstring></soap:Fault>
  </soap:Body>
</soap:Envelope>`

func TestSOAPAdapter(t *testing.T) {
	t.Parallel()

	var wsdlFetches atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/user/wsdl", func(w http.ResponseWriter, _ *http.Request) {
		wsdlFetches.Add(1)
		_, _ = io.WriteString(w, "<definitions/>")
	})
	mux.HandleFunc("/music/wsdl", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<definitions/>")
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get("SOAPAction") != `"FindAll"` || !strings.Contains(string(body), "FindAllUsersRequest") {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, soapUsersResponse)
	})
	mux.HandleFunc("/music", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, soapFaultResponse)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := NewSOAP(testLogger(), Endpoint{Address: srv.URL})
	ctx := context.Background()

	for range 2 {
		users, err := a.ListAllListeners(ctx)
		require.NoError(t, err)
		assert.Equal(t, []catalog.Listener{{ID: 1, Name: "Ana", Age: 30}}, users)
	}
	assert.Equal(t, int32(1), wsdlFetches.Load())

	_, err := a.ListCollectionsContainingTrack(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, KindCallFailure, KindOf(err))
	assert.Contains(t, err.Error(), "Unknown operation")

	// No playlist WSDL is served, so the playlist service never initialises.
	_, err = a.ListTracksOfCollection(ctx, 1)
	assert.Equal(t, KindConnectionInit, KindOf(err))

	require.NoError(t, a.Close())
}

func TestSOAPEnvelope(t *testing.T) {
	t.Parallel()

	env := string(soapCall{
		service: soapPlaylist,
		action:  "FindMusics",
		request: "FindMusicsInPlaylistRequest",
		id:      12,
		hasID:   true,
	}.envelope())

	assert.Contains(t, env, `<FindMusicsInPlaylistRequest xmlns="http://music.soap.manager/playlist"><id>12</id></FindMusicsInPlaylistRequest>`)
	assert.Contains(t, env, "soapenv:Body")
}
