package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethpandaops/protobench/internal/catalog"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

var (
	errChannelNotReady = errors.New("channel not ready")
	errIDOutOfRange    = errors.New("id out of int32 range")
	errUnknownMethod   = errors.New("unknown rpc method")
)

// GRPCAdapter calls the catalog RPC services over a single lazily opened
// channel. Messages are built from descriptors at runtime.
type GRPCAdapter struct {
	log     logrus.FieldLogger
	schema  grpcSchema
	conn    *lazy[*grpc.ClientConn]
	timeout time.Duration
}

// NewGRPC creates a gRPC adapter for ep.Address. Extra dial options are
// appended after the insecure transport credentials.
func NewGRPC(log logrus.FieldLogger, ep Endpoint, opts ...grpc.DialOption) (*GRPCAdapter, error) {
	schema, err := loadGRPCSchema()
	if err != nil {
		return nil, err
	}

	a := &GRPCAdapter{
		log:     log.WithFields(logrus.Fields{"component": "backend", "backend": GRPC}),
		schema:  schema,
		timeout: ep.Timeout(),
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	a.conn = newLazy(func(ctx context.Context) (*grpc.ClientConn, error) {
		return a.dial(ctx, ep.Address, dialOpts)
	}, func(conn *grpc.ClientConn) error {
		return conn.Close()
	})

	return a, nil
}

// dial opens the channel and waits until it is ready or the endpoint timeout
// elapses.
func (a *GRPCAdapter) dial(ctx context.Context, addr string, opts []grpc.DialOption) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating client for %s: %w", addr, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	conn.Connect()

	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			a.log.WithField("address", addr).Debug("grpc channel ready")
			return conn, nil
		}

		if !conn.WaitForStateChange(waitCtx, state) {
			_ = conn.Close()
			return nil, fmt.Errorf("%w: %s still %s", errChannelNotReady, addr, state)
		}
	}
}

// Close shuts the channel down if it was opened.
func (a *GRPCAdapter) Close() error {
	return a.conn.Close()
}

// call invokes service/method with an optional id argument and returns the
// messages in the named repeated field of the reply.
func (a *GRPCAdapter) call(ctx context.Context, op Operation, key string, id *int64, list string) ([]catalog.Record, error) {
	m, ok := a.schema[key]
	if !ok {
		return nil, newError(GRPC, op, KindCallFailure, fmt.Errorf("%w: %s", errUnknownMethod, key))
	}

	conn, err := a.conn.get(ctx)
	if err != nil {
		return nil, newError(GRPC, op, KindConnectionInit, err)
	}

	req := dynamicpb.NewMessage(m.input)
	if id != nil {
		if *id > math.MaxInt32 || *id < math.MinInt32 {
			return nil, newError(GRPC, op, KindCallFailure, fmt.Errorf("%w: %d", errIDOutOfRange, *id))
		}
		req.Set(m.input.Fields().ByName("id"), protoreflect.ValueOfInt32(int32(*id)))
	}

	resp := dynamicpb.NewMessage(m.output)
	if err := conn.Invoke(ctx, m.fullName, req, resp); err != nil {
		return nil, newError(GRPC, op, classifyStatus(err), err)
	}

	field := m.output.Fields().ByName(protoreflect.Name(list))
	if field == nil {
		return []catalog.Record{}, nil
	}

	items := resp.Get(field).List()
	out := make([]catalog.Record, 0, items.Len())

	for i := 0; i < items.Len(); i++ {
		out = append(out, messageRecord(items.Get(i).Message()))
	}

	return out, nil
}

// messageRecord flattens the scalar fields of msg. Unset proto3 scalars read
// as zero values, which coercion then rejects for ids and names.
func messageRecord(msg protoreflect.Message) catalog.Record {
	fields := msg.Descriptor().Fields()
	rec := make(catalog.Record, fields.Len())

	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		v := msg.Get(fd)

		switch fd.Kind() {
		case protoreflect.Int32Kind, protoreflect.Int64Kind, protoreflect.Sint32Kind, protoreflect.Sint64Kind:
			rec[string(fd.Name())] = v.Int()
		case protoreflect.StringKind:
			rec[string(fd.Name())] = v.String()
		}
	}

	return rec
}

func classifyStatus(err error) ErrorKind {
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return KindTimeout
	case codes.Unavailable:
		return KindConnectionInit
	default:
		return KindCallFailure
	}
}

func (a *GRPCAdapter) ListAllListeners(ctx context.Context) ([]catalog.Listener, error) {
	recs, err := a.call(ctx, OpListListeners, "user.UserService/FindAll", nil, "users")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Listeners(recs)
	logDropped(a.log, OpListListeners, dropped)

	return out, nil
}

func (a *GRPCAdapter) ListAllTracks(ctx context.Context) ([]catalog.Track, error) {
	recs, err := a.call(ctx, OpListTracks, "music.MusicService/FindAll", nil, "musics")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Tracks(recs)
	logDropped(a.log, OpListTracks, dropped)

	return out, nil
}

func (a *GRPCAdapter) ListCollectionsOfListener(ctx context.Context, listenerID int64) ([]catalog.Collection, error) {
	recs, err := a.call(ctx, OpCollectionsOfListener, "user.UserService/FindPlaylists", &listenerID, "playlists")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Collections(recs)
	logDropped(a.log, OpCollectionsOfListener, dropped)

	return out, nil
}

func (a *GRPCAdapter) ListTracksOfCollection(ctx context.Context, collectionID int64) ([]catalog.Track, error) {
	recs, err := a.call(ctx, OpTracksOfCollection, "playlist.PlaylistService/FindMusics", &collectionID, "musics")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Tracks(recs)
	logDropped(a.log, OpTracksOfCollection, dropped)

	return out, nil
}

// ListCollectionsContainingTrack is not served by the RPC backend. It returns
// an empty list without contacting the server.
func (a *GRPCAdapter) ListCollectionsContainingTrack(_ context.Context, _ int64) ([]catalog.Collection, error) {
	return []catalog.Collection{}, nil
}

var _ Adapter = (*GRPCAdapter)(nil)
