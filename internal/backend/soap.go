package backend

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethpandaops/protobench/internal/catalog"
	"github.com/sirupsen/logrus"
)

const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	soapServiceNS  = "http://music.soap.manager/"

	soapUser     = "user"
	soapMusic    = "music"
	soapPlaylist = "playlist"
)

var errSOAPFault = errors.New("soap fault")

// SOAPAdapter posts XML envelopes to the per-resource SOAP services. Each
// service's WSDL is fetched once before its first call.
type SOAPAdapter struct {
	*httpSession
	log      logrus.FieldLogger
	services map[string]*lazy[struct{}]
}

// NewSOAP creates a SOAP adapter for the services rooted at ep.Address.
func NewSOAP(log logrus.FieldLogger, ep Endpoint) *SOAPAdapter {
	a := &SOAPAdapter{
		httpSession: newHTTPSession(SOAP, ep),
		log:         log.WithFields(logrus.Fields{"component": "backend", "backend": SOAP}),
		services:    make(map[string]*lazy[struct{}], 3),
	}

	for _, svc := range []string{soapUser, soapMusic, soapPlaylist} {
		a.services[svc] = newLazy(func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.fetchWSDL(ctx, svc)
		}, nil)
	}

	return a
}

func (a *SOAPAdapter) fetchWSDL(ctx context.Context, svc string) error {
	client, err := a.client.get(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url("/"+svc+"/wsdl"), http.NoBody)
	if err != nil {
		return fmt.Errorf("building wsdl request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s wsdl: %w", svc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetching %s wsdl: %w: %d", svc, errUnexpectedStatus, resp.StatusCode)
	}

	return nil
}

// Close drops the cached service descriptions and the HTTP client.
func (a *SOAPAdapter) Close() error {
	for _, svc := range a.services {
		_ = svc.Close()
	}

	return a.httpSession.Close()
}

// soapCall is one request element sent to a service.
type soapCall struct {
	service string
	action  string
	request string
	id      int64
	hasID   bool
}

func (c soapCall) envelope() []byte {
	var buf bytes.Buffer

	buf.WriteString(xml.Header)
	buf.WriteString(`<soapenv:Envelope xmlns:soapenv="` + soapEnvelopeNS + `"><soapenv:Body>`)
	fmt.Fprintf(&buf, `<%s xmlns="%s%s">`, c.request, soapServiceNS, c.service)

	if c.hasID {
		fmt.Fprintf(&buf, "<id>%d</id>", c.id)
	}

	fmt.Fprintf(&buf, "</%s>", c.request)
	buf.WriteString(`</soapenv:Body></soapenv:Envelope>`)

	return buf.Bytes()
}

// xmlNode is a schema-less view of a decoded XML element.
type xmlNode struct {
	XMLName xml.Name
	Content string    `xml:",chardata"`
	Nodes   []xmlNode `xml:",any"`
}

func (n xmlNode) child(local string) (xmlNode, bool) {
	for _, c := range n.Nodes {
		if c.XMLName.Local == local {
			return c, true
		}
	}

	return xmlNode{}, false
}

// record flattens the direct children of n into field values.
func (n xmlNode) record() catalog.Record {
	rec := make(catalog.Record, len(n.Nodes))
	for _, c := range n.Nodes {
		rec[c.XMLName.Local] = strings.TrimSpace(c.Content)
	}

	return rec
}

// invoke sends the call and returns the records found under the named list
// element of the response.
func (a *SOAPAdapter) invoke(ctx context.Context, op Operation, call soapCall, list string) ([]catalog.Record, error) {
	if _, err := a.services[call.service].get(ctx); err != nil {
		return nil, newError(SOAP, op, KindConnectionInit, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url("/"+call.service), bytes.NewReader(call.envelope()))
	if err != nil {
		return nil, newError(SOAP, op, KindCallFailure, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+call.action+`"`)

	body, err := a.do(ctx, op, req)
	if err != nil {
		// Faults usually arrive with a 500; prefer the fault text when present.
		if fault := soapFault(body); fault != nil {
			return nil, newError(SOAP, op, KindCallFailure, fault)
		}
		return nil, err
	}

	var env xmlNode
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, newError(SOAP, op, KindCallFailure, fmt.Errorf("decoding envelope: %w", err))
	}

	soapBody, ok := env.child("Body")
	if !ok || len(soapBody.Nodes) == 0 {
		return nil, newError(SOAP, op, KindCallFailure, fmt.Errorf("%w: empty body", errSOAPFault))
	}

	resp := soapBody.Nodes[0]
	if resp.XMLName.Local == "Fault" {
		return nil, newError(SOAP, op, KindCallFailure, faultError(resp))
	}

	out := make([]catalog.Record, 0, len(resp.Nodes))
	for _, item := range resp.Nodes {
		if item.XMLName.Local == list {
			out = append(out, item.record())
		}
	}

	return out, nil
}

// soapFault extracts the fault carried by body, or nil if there is none.
func soapFault(body []byte) error {
	if len(body) == 0 {
		return nil
	}

	var env xmlNode
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil
	}

	soapBody, ok := env.child("Body")
	if !ok {
		return nil
	}

	fault, ok := soapBody.child("Fault")
	if !ok {
		return nil
	}

	return faultError(fault)
}

func faultError(fault xmlNode) error {
	code, _ := fault.child("faultcode")
	msg, _ := fault.child("faultstring")

	return fmt.Errorf("%w: %s: %s", errSOAPFault, strings.TrimSpace(code.Content), strings.TrimSpace(msg.Content))
}

func (a *SOAPAdapter) ListAllListeners(ctx context.Context) ([]catalog.Listener, error) {
	recs, err := a.invoke(ctx, OpListListeners, soapCall{
		service: soapUser, action: "FindAll", request: "FindAllUsersRequest",
	}, "users")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Listeners(recs)
	logDropped(a.log, OpListListeners, dropped)

	return out, nil
}

func (a *SOAPAdapter) ListAllTracks(ctx context.Context) ([]catalog.Track, error) {
	recs, err := a.invoke(ctx, OpListTracks, soapCall{
		service: soapMusic, action: "FindAll", request: "FindAllMusicRequest",
	}, "musics")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Tracks(recs)
	logDropped(a.log, OpListTracks, dropped)

	return out, nil
}

func (a *SOAPAdapter) ListCollectionsOfListener(ctx context.Context, listenerID int64) ([]catalog.Collection, error) {
	recs, err := a.invoke(ctx, OpCollectionsOfListener, soapCall{
		service: soapUser, action: "FindPlaylists", request: "FindPlaylistsOfUserRequest",
		id: listenerID, hasID: true,
	}, "playlists")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Collections(recs)
	logDropped(a.log, OpCollectionsOfListener, dropped)

	return out, nil
}

func (a *SOAPAdapter) ListTracksOfCollection(ctx context.Context, collectionID int64) ([]catalog.Track, error) {
	recs, err := a.invoke(ctx, OpTracksOfCollection, soapCall{
		service: soapPlaylist, action: "FindMusics", request: "FindMusicsInPlaylistRequest",
		id: collectionID, hasID: true,
	}, "musics")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Tracks(recs)
	logDropped(a.log, OpTracksOfCollection, dropped)

	return out, nil
}

func (a *SOAPAdapter) ListCollectionsContainingTrack(ctx context.Context, trackID int64) ([]catalog.Collection, error) {
	recs, err := a.invoke(ctx, OpCollectionsContainingTrack, soapCall{
		service: soapMusic, action: "FindPlaylists", request: "FindPlaylistsOfMusicRequest",
		id: trackID, hasID: true,
	}, "playlists")
	if err != nil {
		return nil, err
	}

	out, dropped := catalog.Collections(recs)
	logDropped(a.log, OpCollectionsContainingTrack, dropped)

	return out, nil
}

var _ Adapter = (*SOAPAdapter)(nil)
