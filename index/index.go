package index

import (
	"maps"
	"strings"

	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/schema"
)

// Unique maps model class -> compound key -> composite value -> id.
type Unique map[string]map[string]map[string]string

// Foreign maps referenced model class -> referenced id -> referencing model
// class -> referencing ids.
type Foreign map[string]map[string]map[string]*IDSet

// Filter maps model class -> field -> value -> ids.
type Filter map[string]map[string]map[string]*IDSet

// Indexes holds the three index families of a store.
//
// Indexes is not safe for concurrent use.
type Indexes struct {
	Unique  Unique  `json:"unique"`
	Foreign Foreign `json:"foreign"`
	Filter  Filter  `json:"filter"`
}

// New creates empty indexes.
func New() *Indexes {
	return &Indexes{
		Unique:  Unique{},
		Foreign: Foreign{},
		Filter:  Filter{},
	}
}

// Normalize replaces nil families with empty maps. It is applied after
// decoding persisted indexes.
func (x *Indexes) Normalize() *Indexes {
	if x.Unique == nil {
		x.Unique = Unique{}
	}
	if x.Foreign == nil {
		x.Foreign = Foreign{}
	}
	if x.Filter == nil {
		x.Filter = Filter{}
	}
	return x
}

// IsEmpty reports whether no family holds an entry.
func (x *Indexes) IsEmpty() bool {
	return x == nil || (len(x.Unique) == 0 && len(x.Foreign) == 0 && len(x.Filter) == 0)
}

// Clone returns a deep copy.
func (x *Indexes) Clone() *Indexes {
	out := New()
	if x == nil {
		return out
	}
	for c, keys := range x.Unique {
		out.Unique[c] = make(map[string]map[string]string, len(keys))
		for k, composites := range keys {
			out.Unique[c][k] = maps.Clone(composites)
		}
	}
	out.Foreign = Foreign(cloneNested(x.Foreign))
	out.Filter = Filter(cloneNested(x.Filter))
	return out
}

func cloneNested(in map[string]map[string]map[string]*IDSet) map[string]map[string]map[string]*IDSet {
	out := make(map[string]map[string]map[string]*IDSet, len(in))
	for a, level1 := range in {
		out[a] = make(map[string]map[string]*IDSet, len(level1))
		for b, level2 := range level1 {
			out[a][b] = make(map[string]*IDSet, len(level2))
			for c, ids := range level2 {
				out[a][b][c] = ids.Clone()
			}
		}
	}
	return out
}

// Composite joins the canonical text of the key's fields with "|".
// It reports false when every component is empty.
func Composite(rec record.Record, key schema.CompoundKey) (string, bool) {
	parts := make([]string, len(key))
	empty := true
	for i, field := range key {
		v := rec.Get(field)
		if record.NotEmpty(v) {
			empty = false
		}
		parts[i] = v.String()
	}
	if empty {
		return "", false
	}
	return strings.Join(parts, "|"), true
}

// Stale returns, per field of old with a non-empty value, the values of old
// that are no longer present in updated.
func Stale(old, updated record.Record) map[string][]record.Value {
	out := make(map[string][]record.Value)
	for field, v := range old {
		if record.IsEmpty(v) {
			continue
		}
		if diff := record.Difference(v, updated.Get(field)); len(diff) > 0 {
			out[field] = diff
		}
	}
	return out
}

// UniqueID returns the id owning composite under the compound key of
// modelClass.
func (x *Indexes) UniqueID(modelClass string, key schema.CompoundKey, composite string) (string, bool) {
	id, ok := x.Unique[modelClass][key.Key()][composite]
	return id, ok
}

// Referrers returns, per referencing model class, the ids of records that
// reference id of modelClass.
func (x *Indexes) Referrers(modelClass, id string) map[string][]string {
	out := make(map[string][]string)
	for c, ids := range x.Foreign[modelClass][id] {
		if !ids.IsEmpty() {
			out[c] = ids.IDs()
		}
	}
	return out
}

// IsReferenced reports whether any record references id of modelClass.
func (x *Indexes) IsReferenced(modelClass, id string) bool {
	for _, ids := range x.Foreign[modelClass][id] {
		if !ids.IsEmpty() {
			return true
		}
	}
	return false
}

// HasFilter reports whether a filter index exists for field of modelClass.
func (x *Indexes) HasFilter(modelClass, field string) bool {
	_, ok := x.Filter[modelClass][field]
	return ok
}

// FilterBuckets returns the value buckets of the filter index over field.
// The sets are shared with the index and must not be mutated.
func (x *Indexes) FilterBuckets(modelClass, field string) map[string]*IDSet {
	return x.Filter[modelClass][field]
}
