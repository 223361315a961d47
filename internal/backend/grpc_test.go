package backend

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ethpandaops/protobench/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// catalogServer answers every known method from the runtime schema.
type catalogServer struct {
	schema grpcSchema
}

func (s *catalogServer) handle(_ any, stream grpc.ServerStream) error {
	full, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "no method")
	}

	m, ok := s.schema[full[1:]]
	if !ok {
		return status.Errorf(codes.Unimplemented, "unknown method %s", full)
	}

	req := dynamicpb.NewMessage(m.input)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}

	resp := dynamicpb.NewMessage(m.output)

	switch full {
	case "/user.UserService/FindAll":
		appendItem(resp, "users", map[string]any{"id": int32(1), "name": "Ana", "age": int32(30)})
		appendItem(resp, "users", map[string]any{"id": int32(0), "name": "", "age": int32(0)})
	case "/music.MusicService/FindAll":
		appendItem(resp, "musics", map[string]any{"id": int32(4), "name": "Song", "artist": "Band"})
	case "/user.UserService/FindPlaylists":
		id := req.Get(m.input.Fields().ByName("id")).Int()
		if id == 404 {
			return status.Error(codes.NotFound, "user not found")
		}
		appendItem(resp, "playlists", map[string]any{"id": int32(id * 10), "name": "Mix"})
	case "/playlist.PlaylistService/FindMusics":
		time.Sleep(200 * time.Millisecond)
	}

	return stream.SendMsg(resp)
}

func appendItem(msg *dynamicpb.Message, list string, values map[string]any) {
	fd := msg.Descriptor().Fields().ByName(protoreflect.Name(list))
	items := msg.Mutable(fd).List()
	item := items.NewElement().Message()

	for name, v := range values {
		item.Set(item.Descriptor().Fields().ByName(protoreflect.Name(name)), protoreflect.ValueOf(v))
	}

	items.Append(protoreflect.ValueOfMessage(item))
}

func newBufconnAdapter(t *testing.T) *GRPCAdapter {
	t.Helper()

	schema, err := loadGRPCSchema()
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnknownServiceHandler((&catalogServer{schema: schema}).handle))

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	a, err := NewGRPC(testLogger(), Endpoint{Address: "passthrough:///bufnet", TimeoutMs: 2000},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return a
}

func TestGRPCAdapter(t *testing.T) {
	t.Parallel()

	a := newBufconnAdapter(t)
	ctx := context.Background()

	users, err := a.ListAllListeners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Listener{{ID: 1, Name: "Ana", Age: 30}}, users)

	tracks, err := a.ListAllTracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Track{{ID: 4, Name: "Song", Artist: "Band"}}, tracks)

	playlists, err := a.ListCollectionsOfListener(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Collection{{ID: 30, Name: "Mix"}}, playlists)

	_, err = a.ListCollectionsOfListener(ctx, 404)
	require.Error(t, err)
	assert.Equal(t, KindCallFailure, KindOf(err))

	callCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	_, err = a.ListTracksOfCollection(callCtx, 1)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestGRPCAdapter_CollectionsContainingTrackIsEmpty(t *testing.T) {
	t.Parallel()

	// No server is needed: the call never reaches the network.
	a, err := NewGRPC(testLogger(), Endpoint{Address: "localhost:1"})
	require.NoError(t, err)

	out, err := a.ListCollectionsContainingTrack(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestGRPCAdapter_UnreachableIsConnectionInit(t *testing.T) {
	t.Parallel()

	lis := bufconn.Listen(1 << 10)
	require.NoError(t, lis.Close())

	a, err := NewGRPC(testLogger(), Endpoint{Address: "passthrough:///closed", TimeoutMs: 100},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)

	_, err = a.ListAllListeners(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindConnectionInit, KindOf(err))
}

func TestGRPCSchema(t *testing.T) {
	t.Parallel()

	schema, err := loadGRPCSchema()
	require.NoError(t, err)

	for _, key := range []string{
		"user.UserService/FindAll",
		"user.UserService/FindPlaylists",
		"music.MusicService/FindAll",
		"playlist.PlaylistService/FindMusics",
	} {
		m, ok := schema[key]
		require.True(t, ok, key)
		assert.Equal(t, "/"+key, m.fullName)
	}
}
