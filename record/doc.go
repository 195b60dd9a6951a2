// Package record provides the dynamic, schema-driven record model.
//
// A Record maps field names to tagged Values. Values marshal to plain JSON
// (strings, numbers, booleans, null, arrays and objects) so that records
// written by any persistence backend round-trip losslessly.
//
//	r := record.Record{
//	    "category": record.String("company"),
//	    "name":     record.String("abc"),
//	    "tags":     record.Strings("1", "5"),
//	}
//
// Emptiness follows null/absent semantics only: IsEmpty(String("")) is
// false. WrapArray turns scalars into single-element slices, which is how
// array-valued and scalar fields are treated uniformly by the indexes.
package record
