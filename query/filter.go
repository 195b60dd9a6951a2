package query

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/recgo/record"
)

// FilterKind identifies the shape of a FilterValue.
type FilterKind uint8

const (
	// FilterScalar matches a single value.
	FilterScalar FilterKind = iota
	// FilterList matches any of several values.
	FilterList
	// FilterRange matches dates or times within bounds.
	FilterRange
)

// Range bounds a date or datetime filter. Absent bounds are unbounded.
// Date bounds compare calendar days, time bounds compare instants.
type Range struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// IsZero reports whether no bound is set.
func (r Range) IsZero() bool {
	return r == Range{}
}

// FilterValue is the value a field is filtered by: a scalar, a list or a
// range. Its JSON form is the scalar itself, an array, or an object with
// startDate, endDate, startTime and endTime keys.
type FilterValue struct {
	kind  FilterKind
	value record.Value
	list  []record.Value
	rng   Range
}

// Eq returns a scalar filter.
func Eq(v record.Value) FilterValue {
	return FilterValue{kind: FilterScalar, value: v}
}

// In returns a list filter.
func In(values ...record.Value) FilterValue {
	return FilterValue{kind: FilterList, list: values}
}

// Between returns a range filter.
func Between(r Range) FilterValue {
	return FilterValue{kind: FilterRange, rng: r}
}

// Kind returns the shape of the filter.
func (f FilterValue) Kind() FilterKind { return f.kind }

// Value returns the scalar of a scalar filter.
func (f FilterValue) Value() record.Value { return f.value }

// List returns the values of a list filter.
func (f FilterValue) List() []record.Value { return f.list }

// Range returns the bounds of a range filter.
func (f FilterValue) Range() Range { return f.rng }

// IsEmpty reports whether the filter constrains nothing: a null scalar, an
// empty list or a range without bounds.
func (f FilterValue) IsEmpty() bool {
	switch f.kind {
	case FilterList:
		return len(f.list) == 0
	case FilterRange:
		return f.rng.IsZero()
	default:
		return record.IsEmpty(f.value)
	}
}

// MarshalJSON implements json.Marshaler.
func (f FilterValue) MarshalJSON() ([]byte, error) {
	switch f.kind {
	case FilterList:
		return record.Array(f.list...).MarshalJSON()
	case FilterRange:
		return json.Marshal(f.rng)
	default:
		return f.value.MarshalJSON()
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FilterValue) UnmarshalJSON(data []byte) error {
	var v record.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := FromValue(v)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// FromValue interprets a decoded value as a filter: arrays become lists,
// objects become ranges and everything else a scalar.
func FromValue(v record.Value) (FilterValue, error) {
	switch v.Kind() {
	case record.KindArray:
		list, _ := v.AsArray()
		return In(list...), nil
	case record.KindObject:
		obj, _ := v.AsObject()
		var r Range
		for key, bound := range obj {
			s := bound.String()
			switch key {
			case "startDate":
				r.StartDate = s
			case "endDate":
				r.EndDate = s
			case "startTime":
				r.StartTime = s
			case "endTime":
				r.EndTime = s
			default:
				return FilterValue{}, fmt.Errorf("query: unknown range bound %q", key)
			}
		}
		return Between(r), nil
	default:
		return Eq(v), nil
	}
}
