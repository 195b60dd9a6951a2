package index

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/schema"
)

func testRegistry() schema.Registry {
	return schema.Registry{
		"contacts": {
			Fields: map[string]schema.Field{"name": {Type: schema.FieldTypeText}},
		},
		"tags": {
			Fields: map[string]schema.Field{
				"category": {Type: schema.FieldTypeText},
				"name":     {Type: schema.FieldTypeText},
			},
			Constraints: schema.Constraints{
				Unique: []schema.CompoundKey{{"category", "name"}},
			},
			Indexes: schema.Indexes{Filter: map[string]schema.FilterOptions{"category": {}}},
		},
		"transactions": {
			Fields: map[string]schema.Field{
				"contact": {Type: schema.FieldTypeText},
				"tags":    {Type: schema.FieldTypeArray},
			},
			Constraints: schema.Constraints{
				Foreign: map[string]schema.ForeignKey{
					"contact": {Reference: "contacts"},
					"tags":    {Reference: "tags"},
				},
			},
			Indexes: schema.Indexes{Filter: map[string]schema.FilterOptions{"tags": {}, "contact": {}}},
		},
	}
}

func TestComposite(t *testing.T) {
	key := schema.CompoundKey{"category", "name"}

	tests := []struct {
		name   string
		rec    record.Record
		want   string
		wantOK bool
	}{
		{"both", record.Record{"category": record.String("company"), "name": record.String("abc")}, "company|abc", true},
		{"one empty", record.Record{"name": record.String("abc")}, "|abc", true},
		{"number", record.Record{"category": record.Number(12.50), "name": record.String("x")}, "12.5|x", true},
		{"all empty", record.Record{"other": record.String("x")}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Composite(tt.rec, key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStale(t *testing.T) {
	old := record.Record{
		"tags":    record.Strings("1", "2"),
		"contact": record.String("3"),
		"note":    record.Null(),
	}
	updated := record.Record{
		"tags":    record.Strings("2", "5"),
		"contact": record.String("3"),
	}
	stale := Stale(old, updated)
	assert.Equal(t, map[string][]record.Value{"tags": {record.String("1")}}, stale)
}

func TestAddUniqueEntry(t *testing.T) {
	reg := testRegistry()
	x := New()

	rec := record.Record{"id": record.String("1"), "category": record.String("company"), "name": record.String("abc")}
	require.NoError(t, x.Add(reg["tags"], "tags", "1", rec))

	id, ok := x.UniqueID("tags", schema.CompoundKey{"category", "name"}, "company|abc")
	assert.True(t, ok)
	assert.Equal(t, "1", id)
	assert.Len(t, x.Unique["tags"]["category|name"], 1)
	assert.Equal(t, []string{"1"}, x.FilterBuckets("tags", "category")["company"].IDs())
}

func TestUpdateArrayForeignKey(t *testing.T) {
	reg := testRegistry()
	x := New()

	old := record.Record{"id": record.String("1"), "tags": record.Strings("1")}
	require.NoError(t, x.Add(reg["transactions"], "transactions", "1", old))
	assert.True(t, x.Foreign["tags"]["1"]["transactions"].ContainsID("1"))

	updated := old.Merge(record.Record{"tags": record.Strings("5")})
	require.NoError(t, x.Update(reg["transactions"], "transactions", "1", old, updated))

	assert.False(t, x.Foreign["tags"]["1"]["transactions"].ContainsID("1"))
	assert.Empty(t, x.Referrers("tags", "1"))
	assert.Equal(t, map[string][]string{"transactions": {"1"}}, x.Referrers("tags", "5"))

	assert.Nil(t, x.FilterBuckets("transactions", "tags")["1"])
	assert.Equal(t, []string{"1"}, x.FilterBuckets("transactions", "tags")["5"].IDs())
}

func TestUpdateKeepsSharedElements(t *testing.T) {
	reg := testRegistry()
	x := New()

	old := record.Record{"id": record.String("7"), "tags": record.Strings("1", "2")}
	require.NoError(t, x.Add(reg["transactions"], "transactions", "7", old))

	updated := record.Record{"id": record.String("7"), "tags": record.Strings("2", "3")}
	require.NoError(t, x.Update(reg["transactions"], "transactions", "7", old, updated))

	assert.False(t, x.IsReferenced("tags", "1"))
	assert.True(t, x.IsReferenced("tags", "2"))
	assert.True(t, x.IsReferenced("tags", "3"))
}

func TestUpdateUniqueComposite(t *testing.T) {
	reg := testRegistry()
	x := New()
	key := schema.CompoundKey{"category", "name"}

	old := record.Record{"id": record.String("1"), "category": record.String("company"), "name": record.String("abc")}
	require.NoError(t, x.Add(reg["tags"], "tags", "1", old))

	t.Run("unchanged composite", func(t *testing.T) {
		same := old.Merge(record.Record{"color": record.String("red")})
		require.NoError(t, x.Update(reg["tags"], "tags", "1", old, same))
		id, ok := x.UniqueID("tags", key, "company|abc")
		assert.True(t, ok)
		assert.Equal(t, "1", id)
	})

	t.Run("changed composite", func(t *testing.T) {
		renamed := old.Merge(record.Record{"name": record.String("xyz")})
		require.NoError(t, x.Update(reg["tags"], "tags", "1", old, renamed))
		_, ok := x.UniqueID("tags", key, "company|abc")
		assert.False(t, ok)
		id, ok := x.UniqueID("tags", key, "company|xyz")
		assert.True(t, ok)
		assert.Equal(t, "1", id)
	})
}

func TestRemoveAndCleanup(t *testing.T) {
	reg := testRegistry()
	x := New()

	tag := record.Record{"id": record.String("1"), "category": record.String("company"), "name": record.String("abc")}
	tx := record.Record{"id": record.String("2"), "tags": record.Strings("1"), "contact": record.String("4")}
	require.NoError(t, x.Add(reg["tags"], "tags", "1", tag))
	require.NoError(t, x.Add(reg["transactions"], "transactions", "2", tx))

	// Removing the transaction clears everything it contributed.
	require.NoError(t, x.Remove(reg["transactions"], "transactions", "2", tx))
	assert.False(t, x.IsReferenced("tags", "1"))
	assert.False(t, x.IsReferenced("contacts", "4"))
	assert.False(t, x.HasFilter("transactions", "tags"))

	// A dangling filter bucket keyed by the tag id is cleaned up with the tag.
	x.filterSet("transactions", "tags", "1").Add(9)
	x.foreignSet("tags", "1", "transactions").Add(9)
	require.NoError(t, x.Remove(reg["tags"], "tags", "1", tag))
	x.Cleanup(reg, "tags", tag)

	assert.Empty(t, x.Unique)
	assert.Empty(t, x.Referrers("tags", "1"))
	assert.Nil(t, x.FilterBuckets("transactions", "tags")["1"])
	assert.Empty(t, x.Filter)
}

func TestRemoveKeepsForeignOwner(t *testing.T) {
	reg := testRegistry()
	x := New()
	key := schema.CompoundKey{"category", "name"}

	a := record.Record{"id": record.String("1"), "category": record.String("c"), "name": record.String("n")}
	require.NoError(t, x.Add(reg["tags"], "tags", "1", a))

	// A record whose composite is owned by someone else must not evict it.
	b := record.Record{"id": record.String("2"), "category": record.String("c"), "name": record.String("n")}
	require.NoError(t, x.Remove(reg["tags"], "tags", "2", b))

	id, ok := x.UniqueID("tags", key, "c|n")
	assert.True(t, ok)
	assert.Equal(t, "1", id)
}

func TestInvalidID(t *testing.T) {
	reg := testRegistry()
	x := New()
	err := x.Add(reg["tags"], "tags", "abc", record.Record{})
	assert.Error(t, err)
}

func TestRebuildMatchesIncremental(t *testing.T) {
	reg := testRegistry()
	incremental := New()
	data := record.Data{}

	records := []record.Record{
		{"id": record.String("1"), "tags": record.Strings("1", "2"), "contact": record.String("1")},
		{"id": record.String("2"), "tags": record.Strings("2")},
		{"id": record.String("3"), "contact": record.String("1")},
	}
	for _, r := range records {
		data.Collection("transactions").Put(r)
		require.NoError(t, incremental.Add(reg["transactions"], "transactions", r.ID(), r))
	}

	rebuilt, err := Rebuild(reg, data)
	require.NoError(t, err)

	want, err := json.Marshal(incremental)
	require.NoError(t, err)
	got, err := json.Marshal(rebuilt)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestIndexesJSON(t *testing.T) {
	reg := testRegistry()
	x := New()
	require.NoError(t, x.Add(reg["tags"], "tags", "1", record.Record{"category": record.String("company"), "name": record.String("abc")}))
	require.NoError(t, x.Add(reg["transactions"], "transactions", "10", record.Record{"tags": record.Strings("1")}))
	require.NoError(t, x.Add(reg["transactions"], "transactions", "2", record.Record{"tags": record.Strings("1")}))

	b, err := json.Marshal(x)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"unique": {"tags": {"category|name": {"company|abc": "1"}}},
		"foreign": {"tags": {"1": {"transactions": ["2", "10"]}}},
		"filter": {
			"tags": {"category": {"company": ["1"]}},
			"transactions": {"tags": {"1": ["2", "10"]}}
		}
	}`, string(b))

	var decoded Indexes
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, []string{"2", "10"}, decoded.Referrers("tags", "1")["transactions"])

	t.Run("numeric ids", func(t *testing.T) {
		var s IDSet
		require.NoError(t, json.Unmarshal([]byte(`[3, "1"]`), &s))
		assert.Equal(t, []string{"1", "3"}, s.IDs())
	})

	t.Run("invalid id", func(t *testing.T) {
		var s IDSet
		assert.Error(t, json.Unmarshal([]byte(`["x"]`), &s))
	})
}

func TestClone(t *testing.T) {
	reg := testRegistry()
	x := New()
	require.NoError(t, x.Add(reg["transactions"], "transactions", "1", record.Record{"tags": record.Strings("1")}))

	c := x.Clone()
	c.Foreign["tags"]["1"]["transactions"].Add(2)

	assert.Equal(t, []string{"1"}, x.Referrers("tags", "1")["transactions"])
	assert.Equal(t, []string{"1", "2"}, c.Referrers("tags", "1")["transactions"])
}

func TestIDSetPool(t *testing.T) {
	s := GetIDSet()
	s.Or(NewIDSet(1, 2))
	assert.Equal(t, 2, s.Len())
	PutIDSet(s)

	s = GetIDSet()
	assert.True(t, s.IsEmpty())
	PutIDSet(s)
}
