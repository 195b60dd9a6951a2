package recgo_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/recgo"
	"github.com/hupe1980/recgo/persistence"
	"github.com/hupe1980/recgo/query"
	"github.com/hupe1980/recgo/record"
)

const exampleSchemas = `{
	"contacts": {
		"fields": {"name": {"type": "text"}, "email": {"type": "text"}},
		"constraints": {"required": ["name"], "unique": ["email"]},
		"indexes": {"filter": {"name": {"match": true}}}
	},
	"transactions": {
		"fields": {"amount": {"type": "number"}, "contact": {"type": "text"}},
		"constraints": {"required": ["amount"], "foreign": {"contact": {"reference": "contacts"}}},
		"indexes": {"filter": {"contact": {}}}
	}
}`

func newExampleStore() *recgo.Store {
	p := persistence.NewMemory(map[string][]byte{
		persistence.SchemasKey: []byte(exampleSchemas),
	})
	s, err := recgo.New(p)
	if err != nil {
		log.Fatal(err)
	}
	if err := s.InitData(context.Background(), false); err != nil {
		log.Fatal(err)
	}
	return s
}

func mustCreate(s *recgo.Store, modelClass string, m map[string]any) recgo.Result {
	res, err := s.Create(context.Background(), modelClass, record.MustFromMap(m))
	if err != nil {
		log.Fatal(err)
	}
	return res
}

// Example demonstrates creating, querying and removing records.
func Example() {
	ctx := context.Background()
	s := newExampleStore()

	alice := mustCreate(s, "contacts", map[string]any{"name": "Alice", "email": "alice@example.com"})
	mustCreate(s, "transactions", map[string]any{"amount": 100, "contact": alice.ID()})

	dup := mustCreate(s, "contacts", map[string]any{"name": "Mallory", "email": "alice@example.com"})
	fmt.Println("duplicate:", dup.Success, dup.Errors)

	res, err := s.List(ctx, "contacts", query.Options{
		Filters: map[string]query.FilterValue{"name": query.Eq(record.String("ali"))},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("matches:", res.Total, res.Data[0].Record.Get("name"))

	removed, err := s.Remove(ctx, "contacts", alice.ID())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("remove:", removed.Success, removed.Errors)

	// Output:
	// duplicate: false validation failed: email: unique
	// matches: 1 Alice
	// remove: false validation failed: id: isUsed
}

// ExampleStore_Atomic demonstrates a saga whose second step fails, rolling
// back the first.
func ExampleStore_Atomic() {
	ctx := context.Background()
	s := newExampleStore()

	res := s.Atomic(ctx,
		recgo.Step{
			ID:     "contact",
			Params: record.MustFromMap(map[string]any{"name": "Bob"}),
			Op:     recgo.CreateOp{ModelClass: "contacts"},
		},
		recgo.Step{
			ID:     "transaction",
			Params: record.MustFromMap(map[string]any{"amount": nil}),
			Op: recgo.CreateOp{ModelClass: "transactions", Links: []recgo.Link{
				{Field: "contact", Step: "contact"},
			}},
		},
	)
	fmt.Println("success:", res.Success)
	for _, r := range res.Results {
		fmt.Println(r.Step, r.Result.Success)
	}
	fmt.Println("amount:", res.Results[0].Result.Errors["amount"])

	contacts, err := s.Download("contacts")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("contacts:", len(contacts))

	// Output:
	// success: false
	// transaction false
	// contact true
	// amount: [required]
	// contacts: 0
}
