package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/recgo/record"
)

const tagsYAML = `
contacts:
  fields:
    name: {type: text}
tags:
  fields:
    category: {type: text}
    name: {type: text}
    color: {type: text, default: blue}
    weight: {type: number, default: 1}
  constraints:
    unique: ["category|name"]
    required: [category, name]
  indexes:
    filter:
      category: {}
      name: {match: true}
transactions:
  fields:
    amount: {type: number}
    bookedAt: {type: date}
    contact: {type: text}
    tags: {type: array}
  constraints:
    foreign:
      contact: {reference: contacts}
      tags: {reference: tags}
    unique:
      - [contact, bookedAt]
  indexes:
    filter:
      tags: {}
`

func TestCompoundKeyJSON(t *testing.T) {
	t.Run("marshal", func(t *testing.T) {
		b, err := json.Marshal(CompoundKey{"category", "name"})
		require.NoError(t, err)
		assert.JSONEq(t, `"category|name"`, string(b))
	})

	t.Run("unmarshal string", func(t *testing.T) {
		var k CompoundKey
		require.NoError(t, json.Unmarshal([]byte(`"a|b|c"`), &k))
		assert.Equal(t, CompoundKey{"a", "b", "c"}, k)
	})

	t.Run("unmarshal array", func(t *testing.T) {
		var k CompoundKey
		require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &k))
		assert.Equal(t, "a|b", k.Key())
	})

	t.Run("unmarshal invalid", func(t *testing.T) {
		var k CompoundKey
		assert.Error(t, json.Unmarshal([]byte(`42`), &k))
	})
}

func TestLoadYAML(t *testing.T) {
	reg, err := LoadYAML(strings.NewReader(tagsYAML))
	require.NoError(t, err)
	require.NoError(t, reg.Validate("schemas", "indexes", "sequences"))

	assert.Equal(t, []string{"contacts", "tags", "transactions"}, reg.ModelClasses())

	tags, err := reg.Get("tags")
	require.NoError(t, err)
	assert.Equal(t, FieldTypeText, tags.Type("category"))
	assert.Equal(t, []CompoundKey{{"category", "name"}}, tags.Constraints.Unique)
	assert.True(t, tags.IsRequired("name"))
	assert.False(t, tags.IsRequired("color"))

	opts, ok := tags.Filter("name")
	assert.True(t, ok)
	assert.True(t, opts.Match)

	defaults := tags.Defaults()
	assert.Equal(t, record.String("blue"), defaults["color"])
	assert.Equal(t, record.Int(1), defaults["weight"])

	tx, err := reg.Get("transactions")
	require.NoError(t, err)
	assert.Equal(t, CompoundKey{"contact", "bookedAt"}, tx.Constraints.Unique[0])
	assert.Equal(t, []string{"tags"}, tx.ForeignFields("tags"))

	fk, ok := tx.Foreign("contact")
	assert.True(t, ok)
	assert.Equal(t, "contacts", fk.Reference)
}

func TestLoadJSON(t *testing.T) {
	doc := `{
		"invoices": {
			"fields": {"number": {"type": "text"}, "paid": {"type": "bool", "default": false}},
			"constraints": {"primary": ["number"], "unique": ["number"]},
			"indexes": {}
		}
	}`
	reg, err := LoadJSON(strings.NewReader(doc))
	require.NoError(t, err)

	s, err := reg.Get("invoices")
	require.NoError(t, err)
	assert.Equal(t, "number", s.PrimaryKey())
	assert.Equal(t, record.Bool(false), s.Defaults()["paid"])

	// Round trip keeps the compound key as a string.
	b, err := json.Marshal(reg)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"unique":["number"]`)
}

func TestRegistryGet(t *testing.T) {
	reg := Registry{"tags": &Schema{}}

	_, err := reg.Get("unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	s, err := reg.Get("tags")
	require.NoError(t, err)
	assert.Equal(t, record.FieldID, s.PrimaryKey())
}

func TestRegistryValidate(t *testing.T) {
	tests := []struct {
		name    string
		reg     Registry
		wantErr string
	}{
		{
			name: "valid",
			reg: Registry{
				"contacts": {Fields: map[string]Field{"name": {Type: FieldTypeText}}},
			},
		},
		{
			name:    "reserved name",
			reg:     Registry{"indexes": {}},
			wantErr: "reserved",
		},
		{
			name: "unknown reference",
			reg: Registry{
				"transactions": {
					Fields:      map[string]Field{"contact": {Type: FieldTypeText}},
					Constraints: Constraints{Foreign: map[string]ForeignKey{"contact": {Reference: "contacts"}}},
				},
			},
			wantErr: "unknown model class",
		},
		{
			name: "unique on undeclared field",
			reg: Registry{
				"tags": {Constraints: Constraints{Unique: []CompoundKey{{"name"}}}},
			},
			wantErr: "undeclared field",
		},
		{
			name: "filter on undeclared field",
			reg: Registry{
				"tags": {Indexes: Indexes{Filter: map[string]FilterOptions{"category": {}}}},
			},
			wantErr: "undeclared field",
		},
		{
			name:    "nil schema",
			reg:     Registry{"tags": nil},
			wantErr: "nil schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate("schemas", "indexes", "sequences")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFieldTypeIsTemporal(t *testing.T) {
	assert.True(t, FieldTypeDate.IsTemporal())
	assert.True(t, FieldTypeDateTime.IsTemporal())
	assert.False(t, FieldTypeNumber.IsTemporal())
	assert.False(t, FieldType("currency").IsTemporal())
}
