package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerFromRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		record  Record
		want    Listener
		wantErr bool
	}{
		{
			name:   "json numbers",
			record: Record{"id": json.Number("3"), "name": "Ana", "age": json.Number("29")},
			want:   Listener{ID: 3, Name: "Ana", Age: 29},
		},
		{
			name:   "xml strings",
			record: Record{"id": "7", "name": " Bruno ", "age": "41"},
			want:   Listener{ID: 7, Name: "Bruno", Age: 41},
		},
		{
			name:   "float64 from untyped json",
			record: Record{"id": float64(2), "name": "Caio", "age": float64(0)},
			want:   Listener{ID: 2, Name: "Caio", Age: 0},
		},
		{
			name:    "missing name",
			record:  Record{"id": 1, "age": 20},
			wantErr: true,
		},
		{
			name:    "non-numeric id",
			record:  Record{"id": "abc", "name": "x", "age": 1},
			wantErr: true,
		},
		{
			name:    "zero id",
			record:  Record{"id": 0, "name": "x", "age": 1},
			wantErr: true,
		},
		{
			name:    "fractional age",
			record:  Record{"id": 1, "name": "x", "age": 1.5},
			wantErr: true,
		},
		{
			name:    "negative age",
			record:  Record{"id": 1, "name": "x", "age": -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ListenerFromRecord(tt.record)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTracksDropsMalformedRecords(t *testing.T) {
	t.Parallel()

	records := []Record{
		{"id": 1, "name": "Song A", "artist": "Band"},
		{"id": 2, "name": "Song B"},
		{"id": nil, "name": "Song C", "artist": "Band"},
		{"id": "4", "name": "Song D", "artist": "Solo"},
	}

	tracks, dropped := Tracks(records)

	assert.Equal(t, 2, dropped)
	assert.Equal(t, []Track{
		{ID: 1, Name: "Song A", Artist: "Band"},
		{ID: 4, Name: "Song D", Artist: "Solo"},
	}, tracks)
}

func TestCollectionsEmptyInput(t *testing.T) {
	t.Parallel()

	collections, dropped := Collections(nil)

	assert.Empty(t, collections)
	assert.NotNil(t, collections)
	assert.Zero(t, dropped)
}
