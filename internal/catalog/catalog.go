// Package catalog defines the entities returned by every backend variant.
// Adapters decode their wire format into loose records and coerce them here, so
// the canonical shapes stay strict regardless of how lenient an upstream schema is.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errFieldMissing = errors.New("field missing")
	errFieldInvalid = errors.New("field invalid")
)

// Listener is a catalog user.
type Listener struct {
	ID   int64
	Name string
	Age  int64
}

// Track is a catalog song.
type Track struct {
	ID     int64
	Name   string
	Artist string
}

// Collection is a playlist.
type Collection struct {
	ID   int64
	Name string
}

// Record is a single decoded wire object keyed by field name.
type Record map[string]any

// ListenerFromRecord coerces a record into a Listener.
func ListenerFromRecord(r Record) (Listener, error) {
	id, err := r.id()
	if err != nil {
		return Listener{}, err
	}

	name, err := r.str("name")
	if err != nil {
		return Listener{}, err
	}

	age, err := r.integer("age")
	if err != nil {
		return Listener{}, err
	}

	if age < 0 {
		return Listener{}, fmt.Errorf("age %d: %w", age, errFieldInvalid)
	}

	return Listener{ID: id, Name: name, Age: age}, nil
}

// TrackFromRecord coerces a record into a Track.
func TrackFromRecord(r Record) (Track, error) {
	id, err := r.id()
	if err != nil {
		return Track{}, err
	}

	name, err := r.str("name")
	if err != nil {
		return Track{}, err
	}

	artist, err := r.str("artist")
	if err != nil {
		return Track{}, err
	}

	return Track{ID: id, Name: name, Artist: artist}, nil
}

// CollectionFromRecord coerces a record into a Collection.
func CollectionFromRecord(r Record) (Collection, error) {
	id, err := r.id()
	if err != nil {
		return Collection{}, err
	}

	name, err := r.str("name")
	if err != nil {
		return Collection{}, err
	}

	return Collection{ID: id, Name: name}, nil
}

// Listeners coerces records, dropping any that cannot be coerced.
// It returns the kept entities and the number dropped.
func Listeners(records []Record) ([]Listener, int) {
	return coerceAll(records, ListenerFromRecord)
}

// Tracks coerces records, dropping any that cannot be coerced.
func Tracks(records []Record) ([]Track, int) {
	return coerceAll(records, TrackFromRecord)
}

// Collections coerces records, dropping any that cannot be coerced.
func Collections(records []Record) ([]Collection, int) {
	return coerceAll(records, CollectionFromRecord)
}

func coerceAll[T any](records []Record, fn func(Record) (T, error)) ([]T, int) {
	out := make([]T, 0, len(records))
	dropped := 0

	for _, r := range records {
		v, err := fn(r)
		if err != nil {
			dropped++
			continue
		}

		out = append(out, v)
	}

	return out, dropped
}

func (r Record) id() (int64, error) {
	id, err := r.integer("id")
	if err != nil {
		return 0, err
	}

	if id <= 0 {
		return 0, fmt.Errorf("id %d: %w", id, errFieldInvalid)
	}

	return id, nil
}

func (r Record) str(key string) (string, error) {
	raw, ok := r[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%s: %w", key, errFieldMissing)
	}

	var s string

	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case fmt.Stringer:
		s = v.String()
	default:
		return "", fmt.Errorf("%s of type %T: %w", key, raw, errFieldInvalid)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s: %w", key, errFieldMissing)
	}

	return s, nil
}

func (r Record) integer(key string) (int64, error) {
	raw, ok := r[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%s: %w", key, errFieldMissing)
	}

	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("%s=%v: %w", key, v, errFieldInvalid)
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s=%q: %w", key, v.String(), errFieldInvalid)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s=%q: %w", key, v, errFieldInvalid)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s of type %T: %w", key, raw, errFieldInvalid)
	}
}
