// Package query holds the building blocks of list queries: filter values
// and their matching rules, type-aware sorting and pagination.
package query
