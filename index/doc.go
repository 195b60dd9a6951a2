// Package index maintains the secondary indexes of a record store.
//
// Three families are kept per model class:
//
//   - Unique: unique[C][compound]["v1|v2"] = id, at most one id per composite
//   - Foreign: foreign[Ref][refId][C] = ids, the reverse adjacency of foreign keys
//   - Filter: filter[C][F][value] = ids, an inverted index over filterable fields
//
// Id lists are Roaring bitmaps over the numeric record id and marshal as
// ascending decimal strings, so the persisted JSON form is
//
//	{"unique":{"tags":{"category|name":{"company|abc":"1"}}},
//	 "foreign":{"tags":{"1":{"transactions":["1"]}}},
//	 "filter":{"transactions":{"tags":{"1":["1"]}}}}
//
// Multi-valued fields contribute one entry per element. Buckets emptied by
// a removal are pruned.
package index
