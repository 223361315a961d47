package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethpandaops/protobench/internal/catalog"
)

const maxResponseBytes = 32 << 20

var errUnexpectedStatus = errors.New("unexpected status")

// httpSession lazily builds the HTTP client shared by the HTTP-based variants.
type httpSession struct {
	id      ID
	base    *url.URL
	baseErr error
	client  *lazy[*http.Client]
}

func newHTTPSession(id ID, ep Endpoint) *httpSession {
	s := &httpSession{id: id}
	s.base, s.baseErr = url.Parse(strings.TrimRight(ep.Address, "/"))

	timeout := ep.Timeout()
	s.client = newLazy(func(_ context.Context) (*http.Client, error) {
		if s.baseErr != nil {
			return nil, fmt.Errorf("parsing endpoint: %w", s.baseErr)
		}

		if s.base.Scheme != "http" && s.base.Scheme != "https" {
			return nil, fmt.Errorf("endpoint %q: scheme must be http or https", s.base.String()) //nolint:err113 // includes endpoint
		}

		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 64,
			IdleConnTimeout:     90 * time.Second,
		}

		return &http.Client{Timeout: timeout, Transport: transport}, nil
	}, func(c *http.Client) error {
		c.CloseIdleConnections()
		return nil
	})

	return s
}

func (s *httpSession) Close() error {
	return s.client.Close()
}

func (s *httpSession) url(path string) string {
	if s.base == nil {
		return path
	}
	return s.base.String() + path
}

// do sends req and returns the response body. Non-2xx statuses are failures.
func (s *httpSession) do(ctx context.Context, op Operation, req *http.Request) ([]byte, error) {
	client, err := s.client.get(ctx)
	if err != nil {
		return nil, newError(s.id, op, KindConnectionInit, err)
	}

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, newError(s.id, op, classifyTransport(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, newError(s.id, op, KindCallFailure, fmt.Errorf("reading body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, newError(s.id, op, KindCallFailure, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode))
	}

	return body, nil
}

func (s *httpSession) getJSON(ctx context.Context, op Operation, path string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url(path), http.NoBody)
	if err != nil {
		return nil, newError(s.id, op, KindCallFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := s.do(ctx, op, req)
	if err != nil {
		return nil, err
	}

	return decodeJSON(s.id, op, body)
}

func (s *httpSession) postJSON(ctx context.Context, op Operation, path string, payload any) (any, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, newError(s.id, op, KindCallFailure, fmt.Errorf("encoding request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url(path), bytes.NewReader(encoded))
	if err != nil {
		return nil, newError(s.id, op, KindCallFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := s.do(ctx, op, req)
	if err != nil {
		return nil, err
	}

	return decodeJSON(s.id, op, body)
}

func decodeJSON(id ID, op Operation, body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, newError(id, op, KindCallFailure, fmt.Errorf("decoding response: %w", err))
	}

	return v, nil
}

// records converts a decoded JSON array into loose records. Anything other
// than an array yields no records; non-object elements are skipped.
func records(v any) []catalog.Record {
	items, ok := v.([]any)
	if !ok {
		return []catalog.Record{}
	}

	out := make([]catalog.Record, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, catalog.Record(obj))
		}
	}

	return out
}

// classifyTransport maps a transport error to a kind. Dial failures mean the
// backend is not reachable at all.
func classifyTransport(err error) ErrorKind {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindConnectionInit
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindCallFailure
}
