package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/recgo/record"
)

// FieldType defines the declared data type of a field.
//
// Types other than the constants below are accepted and treated as text.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeDateTime FieldType = "datetime"
	FieldTypeArray    FieldType = "array"
	FieldTypeBool     FieldType = "bool"
	FieldTypeFile     FieldType = "file"
)

// IsTemporal reports whether values of t are compared as timestamps.
func (t FieldType) IsTemporal() bool {
	return t == FieldTypeDate || t == FieldTypeDateTime
}

// Field is the declaration of a single field.
type Field struct {
	Type    FieldType     `json:"type" yaml:"type"`
	Default *record.Value `json:"default,omitempty" yaml:"-"`
}

// ForeignKey declares that a field references records of another model class.
type ForeignKey struct {
	Reference string `json:"reference" yaml:"reference"`
}

// FilterOptions configures a filter index over a field.
type FilterOptions struct {
	// Match enables case-insensitive partial (regular expression) matching.
	Match bool `json:"match,omitempty" yaml:"match,omitempty"`
}

// CompoundKey is an ordered list of fields forming a unique constraint.
// It marshals as the fields joined by "|".
type CompoundKey []string

// Key returns the index key of the compound ("category|name").
func (k CompoundKey) Key() string {
	return strings.Join(k, "|")
}

// MarshalJSON implements json.Marshaler.
func (k CompoundKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Key())
}

// UnmarshalJSON accepts "a|b" as well as ["a","b"].
func (k *CompoundKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = ParseCompoundKey(s)
		return nil
	}
	var fields []string
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("schema: invalid compound key %s", data)
	}
	*k = fields
	return nil
}

// ParseCompoundKey splits "a|b" into a CompoundKey.
func ParseCompoundKey(s string) CompoundKey {
	return strings.Split(s, "|")
}

// Constraints holds the constraint metadata of a schema.
type Constraints struct {
	Primary  []string              `json:"primary,omitempty" yaml:"primary,omitempty"`
	Unique   []CompoundKey         `json:"unique,omitempty" yaml:"unique,omitempty"`
	Foreign  map[string]ForeignKey `json:"foreign,omitempty" yaml:"foreign,omitempty"`
	Required []string              `json:"required,omitempty" yaml:"required,omitempty"`
}

// Indexes declares the secondary indexes of a schema.
type Indexes struct {
	Filter map[string]FilterOptions `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// Schema describes one model class.
type Schema struct {
	Fields      map[string]Field `json:"fields" yaml:"fields"`
	Constraints Constraints      `json:"constraints" yaml:"constraints"`
	Indexes     Indexes          `json:"indexes" yaml:"indexes"`
}

// Type returns the declared type of field, or "" when undeclared.
func (s *Schema) Type(field string) FieldType {
	if s == nil {
		return ""
	}
	return s.Fields[field].Type
}

// PrimaryKey returns the first primary key field, defaulting to "id".
func (s *Schema) PrimaryKey() string {
	if s == nil || len(s.Constraints.Primary) == 0 {
		return record.FieldID
	}
	return s.Constraints.Primary[0]
}

// Foreign returns the foreign key declared on field.
func (s *Schema) Foreign(field string) (ForeignKey, bool) {
	if s == nil {
		return ForeignKey{}, false
	}
	fk, ok := s.Constraints.Foreign[field]
	return fk, ok
}

// ForeignFields returns the fields referencing modelClass, sorted.
func (s *Schema) ForeignFields(modelClass string) []string {
	if s == nil {
		return nil
	}
	var fields []string
	for field, fk := range s.Constraints.Foreign {
		if fk.Reference == modelClass {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)
	return fields
}

// Filter returns the filter options of field and whether it is indexed.
func (s *Schema) Filter(field string) (FilterOptions, bool) {
	if s == nil {
		return FilterOptions{}, false
	}
	opts, ok := s.Indexes.Filter[field]
	return opts, ok
}

// IsRequired reports whether field is listed as required.
func (s *Schema) IsRequired(field string) bool {
	return s != nil && slices.Contains(s.Constraints.Required, field)
}

// Defaults returns the declared non-null default values.
func (s *Schema) Defaults() record.Record {
	out := record.Record{}
	if s == nil {
		return out
	}
	for name, f := range s.Fields {
		if f.Default != nil && record.NotEmpty(*f.Default) {
			out[name] = f.Default.Clone()
		}
	}
	return out
}

// ErrNotFound is returned when a model class has no schema.
var ErrNotFound = errors.New("schema not found")
