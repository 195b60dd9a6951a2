package record

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Reserved field names stamped or stripped by the store.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldIncludes  = "includes"
)

// TimeLayout is the layout used for createdAt/updatedAt stamps.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is a single stored document: field name to value.
type Record map[string]Value

// ID returns the record id, or "" when absent.
func (r Record) ID() string {
	if r == nil {
		return ""
	}
	return r[FieldID].String()
}

// Get returns the value for field, or null when absent.
func (r Record) Get(field string) Value {
	if r == nil {
		return Null()
	}
	return r[field]
}

// Clone creates a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v.Clone()
	}
	return out
}

// Merge returns a copy of r overlaid with params. Fields present in params
// win, explicit nulls included.
func (r Record) Merge(params Record) Record {
	out := r.Clone()
	if out == nil {
		out = make(Record, len(params))
	}
	for k, v := range params {
		out[k] = v.Clone()
	}
	return out
}

// Without returns a copy of r without the given fields.
func (r Record) Without(fields ...string) Record {
	out := r.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// ToMap converts the record into plain Go values.
func (r Record) ToMap() map[string]any {
	m := make(map[string]any, len(r))
	for k, v := range r {
		m[k] = v.Interface()
	}
	return m
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]Value
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = m
	return nil
}

// ParseID converts a decimal record id into its numeric form.
func ParseID(id string) (uint32, error) {
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("record: invalid id %q", id)
	}
	return uint32(n), nil
}

// FormatID converts a numeric id into its decimal form.
func FormatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
