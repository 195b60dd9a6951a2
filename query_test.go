package recgo

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/recgo/blobstore"
	"github.com/hupe1980/recgo/download"
	"github.com/hupe1980/recgo/query"
	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/validate"
)

var (
	queryAll  = query.Options{}
	queryView = query.ViewOptions{}
)

func ids(res *ListResult) []string {
	out := make([]string, 0, len(res.Data))
	for _, e := range res.Data {
		out = append(out, e.Record.ID())
	}
	return out
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, seed())

	tests := []struct {
		name       string
		opts       query.Options
		wantIDs    []string
		wantTotal  int
		wantHits   int
		wantMisses int
	}{
		{
			name:      "all",
			opts:      queryAll,
			wantIDs:   []string{"1", "2", "3"},
			wantTotal: 3,
		},
		{
			name: "indexed scalar",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"contact": query.Eq(record.String("1")),
			}},
			wantIDs:   []string{"1"},
			wantTotal: 1,
			wantHits:  1,
		},
		{
			name: "indexed array membership",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"tags": query.Eq(record.String("1")),
			}},
			wantIDs:   []string{"1", "3"},
			wantTotal: 2,
			wantHits:  1,
		},
		{
			name: "indexed list",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"contact": query.In(record.String("1"), record.String("2")),
			}},
			wantIDs:   []string{"1", "2"},
			wantTotal: 2,
			wantHits:  1,
		},
		{
			name: "partial match",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"description": query.Eq(record.String("CHAIR")),
			}},
			wantIDs:   []string{"1"},
			wantTotal: 1,
			wantHits:  1,
		},
		{
			name: "date range",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"date": query.Between(query.Range{StartDate: "2024-01-01", EndDate: "2024-01-31"}),
			}},
			wantIDs:   []string{"1"},
			wantTotal: 1,
			wantHits:  1,
		},
		{
			name: "open range",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"date": query.Between(query.Range{StartDate: "2024-01-01"}),
			}},
			wantIDs:   []string{"1", "2"},
			wantTotal: 2,
			wantHits:  1,
		},
		{
			name: "scan",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"amount": query.Eq(record.Int(100)),
			}},
			wantIDs:    []string{"1"},
			wantTotal:  1,
			wantMisses: 1,
		},
		{
			name: "union across fields",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"contact":     query.Eq(record.String("2")),
				"description": query.Eq(record.String("chair")),
			}},
			wantIDs:   []string{"1", "2"},
			wantTotal: 2,
			wantHits:  2,
		},
		{
			name: "union of index hit and scan",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"contact": query.Eq(record.String("2")),
				"amount":  query.Eq(record.Int(300)),
			}},
			wantIDs:    []string{"2", "3"},
			wantTotal:  2,
			wantHits:   1,
			wantMisses: 1,
		},
		{
			name: "empty filters are skipped",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"contact": query.Eq(record.Null()),
				"tags":    query.In(),
			}},
			wantIDs:   []string{"1", "2", "3"},
			wantTotal: 3,
		},
		{
			name: "no match",
			opts: query.Options{Filters: map[string]query.FilterValue{
				"contact": query.Eq(record.String("42")),
			}},
			wantIDs:  []string{},
			wantHits: 1,
		},
		{
			name:      "sort number desc",
			opts:      query.Options{Sort: &query.Sort{Field: "amount", Order: query.Desc}},
			wantIDs:   []string{"3", "1", "2"},
			wantTotal: 3,
		},
		{
			name:      "sort date asc",
			opts:      query.Options{Sort: &query.Sort{Field: "date"}},
			wantIDs:   []string{"3", "1", "2"},
			wantTotal: 3,
		},
		{
			name:      "sort text",
			opts:      query.Options{Sort: &query.Sort{Field: "description"}},
			wantIDs:   []string{"3", "2", "1"},
			wantTotal: 3,
		},
		{
			name: "page",
			opts: query.Options{
				Sort:   &query.Sort{Field: "amount"},
				Offset: query.Int(1),
				Limit:  query.Int(1),
			},
			wantIDs:   []string{"1"},
			wantTotal: 3,
		},
		{
			name:      "limit without offset",
			opts:      query.Options{Limit: query.Int(1)},
			wantIDs:   []string{"1", "2", "3"},
			wantTotal: 3,
		},
		{
			name: "offset past end",
			opts: query.Options{
				Offset: query.Int(10),
				Limit:  query.Int(5),
			},
			wantIDs:   []string{},
			wantTotal: 3,
		},
		{
			name: "unbounded limit",
			opts: query.Options{
				Offset: query.Int(1),
				Limit:  query.Int(math.MaxInt),
			},
			wantIDs:   []string{"2", "3"},
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.List(ctx, "transactions", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(res))
			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Equal(t, tt.wantHits, res.IndexHits)
			assert.Equal(t, tt.wantMisses, res.IndexMisses)
		})
	}
}

func TestListTotalIsIndependentOfPagination(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, seed())

	filters := map[string]query.FilterValue{"tags": query.Eq(record.String("5"))}
	for offset := range 4 {
		for limit := range 4 {
			res, err := s.List(ctx, "transactions", query.Options{
				Filters: filters,
				Offset:  query.Int(offset),
				Limit:   query.Int(limit),
			})
			require.NoError(t, err)
			assert.Equal(t, 2, res.Total)
			assert.LessOrEqual(t, len(res.Data), limit)
		}
	}
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, seed())

	res, err := s.List(ctx, "contacts", queryAll)
	require.NoError(t, err)
	res.Data[0].Record["name"] = record.String("Mallory")

	view, err := s.View(ctx, "contacts", "1", query.ViewOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Alice", view.Entry.Record.Get("name").String())
}

func TestListMetrics(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	s, _ := newTestStore(t, seed(), WithMetricsCollector(metrics))

	_, err := s.List(ctx, "transactions", query.Options{Filters: map[string]query.FilterValue{
		"contact": query.Eq(record.String("1")),
		"amount":  query.Eq(record.Int(1)),
	}})
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.ListCount)
	assert.Equal(t, int64(1), stats.IndexHits)
	assert.Equal(t, int64(1), stats.IndexMisses)
}

func TestListUnknownModelClass(t *testing.T) {
	s, _ := newTestStore(t, nil)

	_, err := s.List(context.Background(), "users", queryAll)
	assert.ErrorIs(t, err, ErrUnknownModelClass)
}

func TestIncludes(t *testing.T) {
	ctx := context.Background()
	data := seed()
	data["transactions"] = append(data["transactions"],
		rec("id", "4", "amount", 1, "tags", []any{"5", "9", ""}, "contact", "1"))
	s, _ := newTestStore(t, data)

	res, err := s.List(ctx, "transactions", query.Options{
		Include: []string{"contact", "tags", "amount"},
	})
	require.NoError(t, err)
	require.Len(t, res.Data, 4)

	tx1 := res.Data[0]
	assert.Equal(t, "Alice", tx1.Includes["contact"]["1"].Get("name").String())
	assert.Len(t, tx1.Includes["tags"], 1)
	assert.NotContains(t, tx1.Includes, "amount", "fields without foreign key are not included")

	tx3 := res.Data[2]
	assert.Empty(t, tx3.Includes["contact"])
	assert.Len(t, tx3.Includes["tags"], 2)

	tx4 := res.Data[3]
	require.Contains(t, tx4.Includes["tags"], "9")
	assert.Nil(t, tx4.Includes["tags"]["9"], "absent references resolve to null")
	assert.NotContains(t, tx4.Includes["tags"], "", "falsy references are dropped")

	b, err := json.Marshal(tx4)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "4",
		"amount": 1,
		"contact": "1",
		"tags": ["5", "9", ""],
		"includes": {
			"contact": {"1": {"id": "1", "name": "Alice", "email": "alice@example.com", "kind": "customer"}},
			"tags": {"5": {"id": "5", "category": "private", "name": "food"}, "9": null}
		}
	}`, string(b))
}

func TestIncludeFile(t *testing.T) {
	ctx := context.Background()

	files := blobstore.NewMemoryStore()
	require.NoError(t, files.Put(ctx, "invoices/1.pdf", []byte("%PDF")))

	data := seed()
	data["files"] = []record.Record{
		rec("id", "1", "name", "invoice.pdf", "mimeType", "application/pdf", "path", "invoices/1.pdf"),
		rec("id", "2", "name", "missing.pdf", "mimeType", "application/pdf", "path", "invoices/2.pdf"),
	}
	data["invoices"] = []record.Record{
		rec("id", "1", "number", "INV-1", "contact", "1", "file", "1"),
		rec("id", "2", "number", "INV-2", "contact", "1", "file", "2"),
	}

	s, _ := newTestStore(t, data, WithDownloader(download.NewBlob(files)))

	view, err := s.View(ctx, "invoices", "1", query.ViewOptions{Include: []string{"file", "contact"}})
	require.NoError(t, err)
	require.True(t, view.Success)

	file := view.Entry.Includes["file"]["1"]
	assert.Equal(t, "data:application/pdf;base64,JVBERg==", file.Get(FieldRawData).String())
	assert.NotContains(t, view.Entry.Includes["contact"]["1"], FieldRawData, "only file fields are downloaded")

	// The stored file record is not modified.
	files1, err := s.Download("files")
	require.NoError(t, err)
	assert.NotContains(t, files1[0], FieldRawData)

	view, err = s.View(ctx, "invoices", "2", query.ViewOptions{Include: []string{"file"}})
	require.NoError(t, err)
	assert.NotContains(t, view.Entry.Includes["file"]["2"], FieldRawData, "missing blobs attach nothing")
}

func TestView(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, seed())

	res, err := s.View(ctx, "tags", "5", query.ViewOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "food", res.Entry.Record.Get("name").String())
	assert.Nil(t, res.Entry.Includes)

	res, err = s.View(ctx, "tags", "42", query.ViewOptions{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, validate.NotFound(), res.Errors)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": false, "errors": {"id": ["notFound"]}}`, string(b))
}
