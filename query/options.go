package query

import (
	"slices"
	"strings"

	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/schema"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Sort orders list results by a field.
type Sort struct {
	Field string `json:"field"`
	Order Order  `json:"order,omitempty"`
}

// Options control a list query.
type Options struct {
	// Filters are OR'ed: a record is returned if any field filter matches.
	Filters map[string]FilterValue `json:"filters,omitempty"`
	Sort    *Sort                  `json:"sort,omitempty"`
	// Offset and Limit paginate only when both are set.
	Offset  *int     `json:"offset,omitempty"`
	Limit   *int     `json:"limit,omitempty"`
	Include []string `json:"include,omitempty"`
}

// ViewOptions control a single record lookup.
type ViewOptions struct {
	Include []string `json:"include,omitempty"`
}

// ActiveFilters returns the fields of non-empty filters in sorted order.
func (o Options) ActiveFilters() []string {
	fields := make([]string, 0, len(o.Filters))
	for field, f := range o.Filters {
		if !f.IsEmpty() {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)
	return fields
}

// SortRecords sorts records in place by s, keeping the order of ties.
func SortRecords(records []record.Record, fieldType schema.FieldType, s Sort) {
	desc := strings.EqualFold(string(s.Order), string(Desc))
	slices.SortStableFunc(records, func(a, b record.Record) int {
		c := Compare(fieldType, a.Get(s.Field), b.Get(s.Field))
		if desc {
			return -c
		}
		return c
	})
}

// Paginate returns the slice bounds [lo, hi) of a page over n results.
// Without both offset and limit, or with no results, the whole range is
// returned.
func Paginate(n int, offset, limit *int) (int, int) {
	if offset == nil || limit == nil || n == 0 {
		return 0, n
	}
	lo := min(max(*offset, 0), n)
	hi := n
	if l := max(*limit, 0); l < n-lo {
		hi = lo + l
	}
	return lo, hi
}

// Int returns a pointer to v, for Offset and Limit.
func Int(v int) *int {
	return &v
}
