// Package validate defines the validator seam of the record store and a
// default implementation.
//
// Business failures are reported as field keyed error codes rather than Go
// errors, so callers can render them per form field:
//
//	{"category": ["unique"], "name": ["unique"]}
package validate
