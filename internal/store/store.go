// Package store defines the persistence contract for the scoring state and
// its interchangeable backends.
//
// The state layer never talks to a database directly. It reads and writes
// flat records in named collections through the Store interface, so the same
// core logic runs against MongoDB, MySQL, Firestore, a JSON file tree, or an
// in-memory map.
package store

import (
	"context"
	"errors"
	"time"
)

// Collection names shared by every backend.
const (
	Teams        = "teams"
	Participants = "participants"
	Points       = "points"
)

// Record field names shared by every backend.
const (
	FieldID            = "id"
	FieldName          = "name"
	FieldDisplayName   = "display_name"
	FieldColor         = "color"
	FieldCreatedAt     = "created_at"
	FieldParticipantID = "participant_id"
	FieldTeamID        = "team_id"
	FieldBalance       = "balance"
	FieldLastUpdated   = "last_updated"
)

// ErrNoRecord is returned by FindOne when nothing matches the filter.
var ErrNoRecord = errors.New("store: no matching record")

// Record is one persisted document/row, keyed by field name.
type Record map[string]any

// Filter selects records by exact field value. The Exists sentinel selects
// records where the field is present and non-null, regardless of value.
// An empty filter matches every record in the collection.
type Filter map[string]any

type sentinel int

// Exists matches records whose field is set to a non-null value.
// Backends translate it to their native form ($ne null, IS NOT NULL, ...).
const Exists sentinel = 0

// Store is the persistence adapter consumed by the state layer.
//
// Mutating calls return an error on any persistence problem; the caller
// decides whether to surface or swallow it. FindOne returns ErrNoRecord
// (possibly wrapped) when the filter matches nothing.
type Store interface {
	Find(ctx context.Context, collection string, filter Filter) ([]Record, error)
	FindOne(ctx context.Context, collection string, filter Filter) (Record, error)
	InsertOne(ctx context.Context, collection string, rec Record) error
	UpdateOne(ctx context.Context, collection string, filter Filter, set Record) error
	DeleteOne(ctx context.Context, collection string, filter Filter) error
	DeleteMany(ctx context.Context, collection string, filter Filter) error
	Close(ctx context.Context) error
}

// Matches reports whether rec satisfies filter. Backends without a native
// query engine (memory, file) share this, and the Firestore backend uses it
// to double-check results client-side.
func Matches(rec Record, filter Filter) bool {
	for field, want := range filter {
		got, ok := rec[field]
		if want == Exists {
			if !ok || got == nil {
				return false
			}
			continue
		}
		if !ok {
			return false
		}
		if want == nil || got == nil {
			if want != nil || got != nil {
				return false
			}
			continue
		}
		if normalize(got) != normalize(want) {
			return false
		}
	}
	return true
}

// normalize collapses the numeric and time representations that differ
// between backends (JSON round-trips produce float64, MySQL produces int64,
// Mongo produces int32/int64) so equality checks behave the same everywhere.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint32:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case time.Time:
		return n.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// Clone returns a shallow copy of rec so callers can hand records out
// without exposing backend-internal maps.
func Clone(rec Record) Record {
	if rec == nil {
		return nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// Int64 reads an integer field, tolerating the numeric type each backend
// happens to produce. Missing or null fields read as 0.
func Int64(rec Record, field string) int64 {
	switch n := rec[field].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	default:
		return 0
	}
}

// String reads a string field; missing or null fields read as "".
func String(rec Record, field string) string {
	s, _ := rec[field].(string)
	return s
}

// Time reads a timestamp field, accepting native time values or the RFC 3339
// strings the file backend round-trips through JSON.
func Time(rec Record, field string) time.Time {
	switch t := rec[field].(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}
		}
		return parsed
	default:
		return time.Time{}
	}
}
