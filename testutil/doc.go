// Package testutil provides fixtures for recgo tests.
//
// This package is intended for use in tests and examples only. It provides
// the schemas of a small business application and helpers to seed an
// in-memory persistence with them.
//
//	p := testutil.Persistence(t, testutil.Schemas(), map[string][]record.Record{
//	    "tags": {testutil.Rec("id", "1", "category", "company", "name", "abc")},
//	})
package testutil
