package benchmark_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/recgo"
	"github.com/hupe1980/recgo/codec"
	"github.com/hupe1980/recgo/persistence"
	"github.com/hupe1980/recgo/query"
	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/testutil"
)

var sizes = []int{1_000, 10_000}

// BenchmarkList compares filter fields answered from a filter index with
// fields answered by a scan.
func BenchmarkList(b *testing.B) {
	ctx := context.Background()

	cases := []struct {
		name    string
		filters map[string]query.FilterValue
	}{
		{"all", nil},
		{"indexed_scalar", map[string]query.FilterValue{"contact": query.Eq(record.String("7"))}},
		{"indexed_array", map[string]query.FilterValue{"tags": query.Eq(record.String("3"))}},
		{"indexed_match", map[string]query.FilterValue{"description": query.Eq(record.String("chair"))}},
		{"indexed_range", map[string]query.FilterValue{"date": query.Between(query.Range{StartDate: "2024-03-01", EndDate: "2024-03-31"})}},
		{"scan", map[string]query.FilterValue{"amount": query.Eq(record.Int(42))}},
	}

	for _, n := range sizes {
		s := newStore(b, n)
		for _, tc := range cases {
			b.Run(fmt.Sprintf("%s/n=%d", tc.name, n), func(b *testing.B) {
				b.ReportAllocs()
				opts := query.Options{Filters: tc.filters, Offset: query.Int(0), Limit: query.Int(50)}
				for b.Loop() {
					if _, err := s.List(ctx, "transactions", opts); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkListSorted(b *testing.B) {
	ctx := context.Background()
	s := newStore(b, 10_000)
	opts := query.Options{
		Sort:   &query.Sort{Field: "date", Order: query.Desc},
		Offset: query.Int(0),
		Limit:  query.Int(50),
	}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := s.List(ctx, "transactions", opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkView_Include(b *testing.B) {
	ctx := context.Background()
	s := newStore(b, 1_000)
	opts := query.ViewOptions{Include: []string{"contact", "tags"}}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := s.View(ctx, "transactions", "500", opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCreate includes the write-through of collection, indexes and
// sequences, so it grows with the collection size.
func BenchmarkCreate(b *testing.B) {
	ctx := context.Background()

	for _, n := range sizes {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			s := newStore(b, n)
			params := testutil.Rec("amount", 10, "date", "2024-06-01", "contact", "1", "tags", []any{"1", "2"})

			b.ReportAllocs()
			for b.Loop() {
				res, err := s.Create(ctx, "transactions", params)
				if err != nil || !res.Success {
					b.Fatal(err, res.Errors)
				}
			}
		})
	}
}

func BenchmarkUpdate(b *testing.B) {
	ctx := context.Background()
	s := newStore(b, 1_000)

	i := 0
	b.ReportAllocs()
	for b.Loop() {
		i++
		params := testutil.Rec("contact", fmt.Sprint(1+i%numContacts))
		res, err := s.Update(ctx, "transactions", "1", params)
		if err != nil || !res.Success {
			b.Fatal(err, res.Errors)
		}
	}
}

func BenchmarkAtomic(b *testing.B) {
	ctx := context.Background()
	s := newStore(b, 1_000)

	b.ReportAllocs()
	for b.Loop() {
		res := s.Atomic(ctx,
			recgo.Step{ID: "contact", Params: testutil.Rec("name", "New"), Op: recgo.CreateOp{ModelClass: "contacts"}},
			recgo.Step{ID: "tx", Params: testutil.Rec("amount", 1), Op: recgo.CreateOp{
				ModelClass: "transactions",
				Links:      []recgo.Link{{Field: "contact", Step: "contact"}},
			}},
		)
		if !res.Success {
			b.Fatal(res.Results)
		}
	}
}

// BenchmarkInitData measures bootstrap with and without persisted indexes.
func BenchmarkInitData(b *testing.B) {
	ctx := context.Background()

	for _, n := range sizes {
		data := fixture(n, 1)

		b.Run(fmt.Sprintf("rebuild/n=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				b.StopTimer()
				p := testutil.Persistence(b, testutil.Schemas(), data)
				b.StartTimer()
				openStore(b, p)
			}
		})

		b.Run(fmt.Sprintf("persisted/n=%d", n), func(b *testing.B) {
			p := testutil.Persistence(b, testutil.Schemas(), data)
			openStore(b, p)

			b.ReportAllocs()
			for b.Loop() {
				s, err := recgo.New(p)
				if err != nil {
					b.Fatal(err)
				}
				if err := s.InitData(ctx, false); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkCompressedWrite(b *testing.B) {
	ctx := context.Background()
	s := newStore(b, 10_000)
	records, err := s.Download("transactions")
	if err != nil {
		b.Fatal(err)
	}
	payload, err := codec.Default.Marshal(record.NewCollection(records...))
	if err != nil {
		b.Fatal(err)
	}

	for _, algo := range []persistence.Compression{persistence.CompressionNone, persistence.CompressionLZ4, persistence.CompressionZSTD} {
		b.Run(algo.String(), func(b *testing.B) {
			p := persistence.NewCompressed(persistence.NewMemory(nil), algo)
			b.SetBytes(int64(len(payload)))
			b.ReportAllocs()
			for b.Loop() {
				if err := p.Write(ctx, "transactions", payload); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
