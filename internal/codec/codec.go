// Package codec converts timelines to and from the tagged-map JSON format
// shared by storage backends and snapshot subscribers.
//
// Every map-like container is written as
//
//	{"_type": "map", "_value": [[key, value], ...]}
//
// with keys in sorted order. Spans are [start, duration] pairs and records are
// plain objects with app, title, path and intervals fields.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/goodtune/focustime/internal/activity"
)

// ErrMalformed is returned when a payload does not have the expected shape.
var ErrMalformed = errors.New("codec: malformed payload")

const typeMap = "map"

type taggedMap struct {
	Type  string               `json:"_type"`
	Value [][2]json.RawMessage `json:"_value"`
}

type recordJSON struct {
	App       string          `json:"app"`
	Title     string          `json:"title"`
	Path      string          `json:"path"`
	Intervals json.RawMessage `json:"intervals"`
}

// Encode serializes a full timeline.
func Encode(tl activity.Timeline) ([]byte, error) {
	raw, err := encodeMap(tl, func(titles activity.Titles) (json.RawMessage, error) {
		return EncodeTitles(titles)
	})
	if err != nil {
		return nil, fmt.Errorf("encode timeline: %w", err)
	}
	return raw, nil
}

// Decode parses a full timeline. A null or empty payload decodes to an empty
// timeline.
func Decode(data []byte) (activity.Timeline, error) {
	if isEmpty(data) {
		return make(activity.Timeline), nil
	}
	m, err := decodeMap(data, DecodeTitles)
	if err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	return activity.Timeline(m), nil
}

// EncodeTitles serializes one application's title map.
func EncodeTitles(titles activity.Titles) ([]byte, error) {
	return encodeMap(titles, func(rec *activity.Record) (json.RawMessage, error) {
		return EncodeRecord(rec)
	})
}

// DecodeTitles parses one application's title map.
func DecodeTitles(data []byte) (activity.Titles, error) {
	m, err := decodeMap(data, DecodeRecord)
	if err != nil {
		return nil, err
	}
	return activity.Titles(m), nil
}

// EncodeRecord serializes a single record.
func EncodeRecord(rec *activity.Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrMalformed)
	}
	intervals, err := encodeMap(rec.Intervals, encodeSpans)
	if err != nil {
		return nil, err
	}
	return json.Marshal(recordJSON{
		App:       rec.Application,
		Title:     rec.Title,
		Path:      rec.Path,
		Intervals: intervals,
	})
}

// DecodeRecord parses a single record.
func DecodeRecord(data []byte) (*activity.Record, error) {
	var rj recordJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return nil, fmt.Errorf("%w: record: %v", ErrMalformed, err)
	}
	rec := &activity.Record{
		Application: rj.App,
		Title:       rj.Title,
		Path:        rj.Path,
		Intervals:   make(activity.Intervals),
	}
	if isEmpty(rj.Intervals) {
		return rec, nil
	}
	intervals, err := decodeMap(rj.Intervals, decodeSpans)
	if err != nil {
		return nil, err
	}
	rec.Intervals = activity.Intervals(intervals)
	return rec, nil
}

func encodeSpans(spans []activity.Span) (json.RawMessage, error) {
	pairs := make([][2]int64, len(spans))
	for i, s := range spans {
		pairs[i] = [2]int64{s.Start, s.Duration}
	}
	return json.Marshal(pairs)
}

func decodeSpans(data []byte) ([]activity.Span, error) {
	var pairs [][2]int64
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("%w: spans: %v", ErrMalformed, err)
	}
	spans := make([]activity.Span, len(pairs))
	for i, p := range pairs {
		spans[i] = activity.Span{Start: p[0], Duration: p[1]}
	}
	return spans, nil
}

func encodeMap[V any](m map[string]V, enc func(V) (json.RawMessage, error)) (json.RawMessage, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tm := taggedMap{Type: typeMap, Value: make([][2]json.RawMessage, 0, len(keys))}
	for _, k := range keys {
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := enc(m[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		tm.Value = append(tm.Value, [2]json.RawMessage{key, value})
	}
	return json.Marshal(tm)
}

// decodeMap accepts the tagged form and, for hand-edited files, a plain JSON
// object.
func decodeMap[V any](data []byte, dec func([]byte) (V, error)) (map[string]V, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected object", ErrMalformed)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := make(map[string]V)

	if rawType, tagged := probe["_type"]; tagged {
		var tm taggedMap
		if err := json.Unmarshal(trimmed, &tm); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if tm.Type != typeMap {
			return nil, fmt.Errorf("%w: unsupported container type %s", ErrMalformed, string(rawType))
		}
		for _, pair := range tm.Value {
			var key string
			if err := json.Unmarshal(pair[0], &key); err != nil {
				return nil, fmt.Errorf("%w: key: %v", ErrMalformed, err)
			}
			value, err := dec(pair[1])
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil
	}

	for key, raw := range probe {
		value, err := dec(raw)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func isEmpty(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
