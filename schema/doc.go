// Package schema declares the per model class schemas of a record store:
// field types and defaults, primary, unique and foreign key constraints, and
// the filterable fields that receive a filter index.
//
// A Registry is loaded once at bootstrap, either from the persisted
// "schemas" payload or from a JSON or YAML document, and is read-only
// afterwards.
package schema
