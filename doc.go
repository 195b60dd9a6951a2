// Package recgo provides a schema-driven, embeddable record store.
//
// A Store keeps named collections of records ("model classes") in memory,
// maintains unique, foreign and filter indexes incrementally on every
// mutation and writes every change through to a pluggable persistence.
//
// # Quick Start
//
//	ctx := context.Background()
//	store, _ := recgo.New(persistence.NewMemory(nil))
//	_ = store.InitData(ctx, false)
//
//	res, _ := store.Create(ctx, "tags", testutil.Rec("category", "company", "name", "abc"))
//	if !res.Success {
//	    fmt.Println(res.Errors) // map[category:[unique] name:[unique]]
//	}
//
// # Queries
//
// List filters, sorts and paginates a collection and resolves foreign keys
// into included records:
//
//	page, _ := store.List(ctx, "transactions", query.Options{
//	    Filters: map[string]query.FilterValue{"tags": query.Eq(record.String("5"))},
//	    Sort:    &query.Sort{Field: "date", Order: query.Desc},
//	    Offset:  query.Int(0),
//	    Limit:   query.Int(20),
//	    Include: []string{"contact"},
//	})
//
// Filters of different fields are OR'ed. Fields declared as filter indexes
// are answered from the index; other fields are scanned.
//
// # Sagas
//
// Atomic runs a sequence of steps and compensates the completed ones when a
// step fails:
//
//	res := store.Atomic(ctx,
//	    recgo.Step{ID: "contact", Op: recgo.CreateOp{ModelClass: "contacts"}, Params: contact},
//	    recgo.Step{ID: "tx", Op: recgo.CreateOp{
//	        ModelClass: "transactions",
//	        Links:      []recgo.Link{{Field: "contact", Step: "contact"}},
//	    }, Params: tx},
//	)
//
// # Persistence
//
// Payloads are stored per key: "schemas", "indexes", "sequences" and one
// key per model class. Backends live in the persistence package and its
// sub-packages (SQLite, bbolt, DynamoDB, blob stores such as S3 and MinIO),
// and can be wrapped with compression and write-behind.
package recgo
