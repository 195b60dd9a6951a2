package query

import (
	"regexp"
	"slices"
	"time"

	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/schema"
)

// Matcher tests indexed values against one filter value. Patterns of
// partial-match fields are compiled once.
type Matcher struct {
	filter   FilterValue
	partial  bool
	patterns []*regexp.Regexp
}

// NewMatcher prepares a matcher for a field with the given filter options.
func NewMatcher(opts schema.FilterOptions, filter FilterValue) *Matcher {
	m := &Matcher{filter: filter}
	if opts.Match && filter.Kind() != FilterRange {
		m.partial = true
		for _, v := range filterValues(filter) {
			m.patterns = append(m.patterns, compilePattern(v.String()))
		}
	}
	return m
}

// compilePattern compiles a case-insensitive pattern. Invalid expressions
// are matched as literal substrings.
func compilePattern(s string) *regexp.Regexp {
	re, err := regexp.Compile("(?i)" + s)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(s))
	}
	return re
}

func filterValues(f FilterValue) []record.Value {
	if f.Kind() == FilterList {
		return f.List()
	}
	return []record.Value{f.Value()}
}

// Match reports whether the indexed value satisfies the filter. In order of
// priority: partial match for fields flagged match, list membership, exact
// equality of the canonical text, and date/time range.
func (m *Matcher) Match(indexed record.Value) bool {
	text := indexed.String()
	switch {
	case m.partial:
		return slices.ContainsFunc(m.patterns, func(re *regexp.Regexp) bool {
			return re.MatchString(text)
		})
	case m.filter.Kind() == FilterList:
		return slices.ContainsFunc(m.filter.List(), func(v record.Value) bool {
			return v.String() == text
		})
	case m.filter.Kind() == FilterScalar:
		return m.filter.Value().String() == text
	default:
		return matchRange(m.filter.Range(), indexed)
	}
}

// MatchAny reports whether any element of a possibly multi-valued field
// matches.
func (m *Matcher) MatchAny(v record.Value) bool {
	return slices.ContainsFunc(record.WrapArray(v), m.Match)
}

// Match is a one-shot form of NewMatcher(opts, filter).Match(indexed).
func Match(opts schema.FilterOptions, indexed record.Value, filter FilterValue) bool {
	return NewMatcher(opts, filter).Match(indexed)
}

func matchRange(r Range, v record.Value) bool {
	t, ok := ParseTime(v)
	if !ok {
		return false
	}
	return within(truncateDay(t), r.StartDate, r.EndDate, truncateDay) &&
		within(t, r.StartTime, r.EndTime, func(t time.Time) time.Time { return t })
}

// within checks inclusive bounds after normalizing them. Empty bounds are
// open; unparsable bounds match nothing.
func within(t time.Time, start, end string, norm func(time.Time) time.Time) bool {
	if start != "" {
		s, ok := ParseTime(record.String(start))
		if !ok || t.Before(norm(s)) {
			return false
		}
	}
	if end != "" {
		e, ok := ParseTime(record.String(end))
		if !ok || t.After(norm(e)) {
			return false
		}
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
