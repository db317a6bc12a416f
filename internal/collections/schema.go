package collections

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Collection names. Each maps to one JSON document per store.
const (
	Listings = "listings"
	Events   = "events"
	Promo    = "promo"
)

// Schema describes how a collection document is decoded, merged and
// migrated. C is the in-memory collection type.
type Schema[C any] interface {
	Empty() C
	Decode(data []byte) (C, error)
	Encode(c C) ([]byte, error)
	// Merge combines the baseline and object store copies; the object store
	// wins on conflict.
	Merge(baseline, remote C) C
	Len(c C) int
	// Migrate fills fields missing from older documents and reports whether
	// anything changed.
	Migrate(c C, now time.Time) (C, bool)
}

// Record is an element of an array collection.
type Record interface {
	RecordID() string
}

// RecordSchema is the Schema of a JSON array of records keyed by RecordID.
type RecordSchema[T Record] struct {
	// MigrateRecord is applied to every record on read. Optional.
	MigrateRecord func(r T, now time.Time) (T, bool)
}

func (RecordSchema[T]) Empty() []T { return []T{} }

func (RecordSchema[T]) Decode(data []byte) ([]T, error) {
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (RecordSchema[T]) Encode(c []T) ([]byte, error) {
	if c == nil {
		c = []T{}
	}
	return json.Marshal(c)
}

func (RecordSchema[T]) Merge(baseline, remote []T) []T {
	return MergeByID(baseline, remote)
}

func (RecordSchema[T]) Len(c []T) int { return len(c) }

func (s RecordSchema[T]) Migrate(c []T, now time.Time) ([]T, bool) {
	if s.MigrateRecord == nil {
		return c, false
	}
	out := make([]T, len(c))
	changed := false
	for i, r := range c {
		var ok bool
		out[i], ok = s.MigrateRecord(r, now)
		changed = changed || ok
	}
	return out, changed
}

// MergeByID returns every record of baseline and remote, one per id. Records
// keep the position of their first appearance (baseline order, then
// remote-only ids in remote order) and take the value of the last one seen,
// so the remote copy wins on conflict.
func MergeByID[T Record](baseline, remote []T) []T {
	out := make([]T, 0, len(baseline)+len(remote))
	index := make(map[string]int, len(baseline)+len(remote))
	put := func(r T) {
		id := r.RecordID()
		if i, ok := index[id]; ok {
			out[i] = r
			return
		}
		index[id] = len(out)
		out = append(out, r)
	}
	for _, r := range baseline {
		put(r)
	}
	for _, r := range remote {
		put(r)
	}
	return out
}
