package backend

import (
	"fmt"
	"strings"
)

// ID identifies a backend variant.
type ID string

const (
	// REST is the resource-oriented HTTP+JSON variant.
	REST ID = "rest"
	// GraphQL is the query-language variant.
	GraphQL ID = "graphql"
	// SOAP is the XML envelope variant.
	SOAP ID = "soap"
	// GRPC is the RPC stub variant.
	GRPC ID = "grpc"
)

// Operation identifies one of the five catalog queries.
type Operation string

const (
	// OpListListeners lists every user.
	OpListListeners Operation = "list_listeners"
	// OpListTracks lists every track.
	OpListTracks Operation = "list_tracks"
	// OpCollectionsOfListener lists the playlists owned by a user.
	OpCollectionsOfListener Operation = "collections_of_listener"
	// OpTracksOfCollection lists the tracks in a playlist.
	OpTracksOfCollection Operation = "tracks_of_collection"
	// OpCollectionsContainingTrack lists the playlists that contain a track.
	OpCollectionsContainingTrack Operation = "collections_containing_track"
)

var (
	allIDs = []ID{REST, GraphQL, SOAP, GRPC}

	allOperations = []Operation{
		OpListListeners,
		OpListTracks,
		OpCollectionsOfListener,
		OpTracksOfCollection,
		OpCollectionsContainingTrack,
	}

	displayNames = map[ID]string{
		REST:    "REST",
		GraphQL: "GraphQL",
		SOAP:    "SOAP",
		GRPC:    "gRPC",
	}

	operationTitles = map[Operation]string{
		OpListListeners:              "List users",
		OpListTracks:                 "List tracks",
		OpCollectionsOfListener:      "User playlists",
		OpTracksOfCollection:         "Playlist tracks",
		OpCollectionsContainingTrack: "Playlists with track",
	}
)

// All returns every backend in declared priority order.
func All() []ID {
	out := make([]ID, len(allIDs))
	copy(out, allIDs)
	return out
}

// Operations returns every operation in declared order.
func Operations() []Operation {
	out := make([]Operation, len(allOperations))
	copy(out, allOperations)
	return out
}

// Priority returns the tie-break rank of a backend (lower ranks first).
// Unknown backends sort after every known one.
func Priority(id ID) int {
	for i, known := range allIDs {
		if known == id {
			return i
		}
	}
	return len(allIDs)
}

// String returns the display name.
func (id ID) String() string {
	if name, ok := displayNames[id]; ok {
		return name
	}
	return string(id)
}

// Title returns a human-readable operation label.
func (op Operation) Title() string {
	if title, ok := operationTitles[op]; ok {
		return title
	}
	return string(op)
}

// ParseID parses a backend id, case-insensitively.
func ParseID(s string) (ID, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, id := range allIDs {
		if string(id) == needle {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q", s) //nolint:err113 // includes user input
}

// ParseOperation parses an operation id, case-insensitively.
func ParseOperation(s string) (Operation, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, op := range allOperations {
		if string(op) == needle {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation %q", s) //nolint:err113 // includes user input
}
