package query

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/schema"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	record.TimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime interprets v as a point in time. Strings are parsed with the
// common ISO 8601 layouts, numbers are Unix milliseconds.
func ParseTime(v record.Value) (time.Time, bool) {
	switch v.Kind() {
	case record.KindString:
		s, _ := v.AsString()
		s = strings.TrimSpace(s)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	case record.KindNumber:
		n, _ := v.AsNumber()
		if !math.IsNaN(n) && !math.IsInf(n, 0) {
			return time.UnixMilli(int64(n)).UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseNumber interprets v as a float. Numeric strings are parsed.
func ParseNumber(v record.Value) (float64, bool) {
	switch v.Kind() {
	case record.KindNumber:
		n, _ := v.AsNumber()
		return n, !math.IsNaN(n)
	case record.KindString:
		s, _ := v.AsString()
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return n, err == nil && !math.IsNaN(n)
	case record.KindBool:
		if b, _ := v.AsBool(); b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Compare orders two values of a field with the given declared type.
// Temporal fields compare as timestamps, number fields as floats and all
// other fields by canonical text. Values that do not parse sort first.
func Compare(t schema.FieldType, a, b record.Value) int {
	switch {
	case t.IsTemporal():
		ta, okA := ParseTime(a)
		tb, okB := ParseTime(b)
		if c, done := compareParsed(okA, okB); done {
			return c
		}
		return ta.Compare(tb)
	case t == schema.FieldTypeNumber:
		na, okA := ParseNumber(a)
		nb, okB := ParseNumber(b)
		if c, done := compareParsed(okA, okB); done {
			return c
		}
		return cmp.Compare(na, nb)
	default:
		return strings.Compare(a.String(), b.String())
	}
}

func compareParsed(okA, okB bool) (int, bool) {
	switch {
	case okA && okB:
		return 0, false
	case !okA && !okB:
		return 0, true
	case !okA:
		return -1, true
	default:
		return 1, true
	}
}
