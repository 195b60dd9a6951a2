package validate

import (
	"maps"
	"slices"
	"strings"
)

// Error codes reported per field.
const (
	CodeRequired = "required"
	CodeUnique   = "unique"
	CodeNotFound = "notFound"
	CodeIsUsed   = "isUsed"
	CodeInvalid  = "invalid"
)

// Errors maps field names to error codes, e.g. {"name": ["required"]}.
type Errors map[string][]string

// Add records code for field once.
func (e Errors) Add(field, code string) {
	if !slices.Contains(e[field], code) {
		e[field] = append(e[field], code)
	}
}

// Has reports whether field carries code.
func (e Errors) Has(field, code string) bool {
	return slices.Contains(e[field], code)
}

// Merge adds all codes of other.
func (e Errors) Merge(other Errors) {
	for field, codes := range other {
		for _, code := range codes {
			e.Add(field, code)
		}
	}
}

// Error implements error so that field errors can be wrapped and logged.
func (e Errors) Error() string {
	fields := slices.Sorted(maps.Keys(e))
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], ","))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFound returns {"id": ["notFound"]}.
func NotFound() Errors {
	return Errors{"id": {CodeNotFound}}
}

// IsUsed returns {"id": ["isUsed"]}.
func IsUsed() Errors {
	return Errors{"id": {CodeIsUsed}}
}
