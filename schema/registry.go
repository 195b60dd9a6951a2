package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/recgo/record"
)

// Registry holds one schema per model class.
type Registry map[string]*Schema

// ModelClasses returns the registered model classes in sorted order.
func (r Registry) ModelClasses() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get returns the schema of modelClass.
func (r Registry) Get(modelClass string) (*Schema, error) {
	s, ok := r[modelClass]
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, modelClass)
	}
	return s, nil
}

// Validate checks the registry for structural errors: reserved model class
// names, foreign keys referencing unknown model classes, and constraints or
// indexes naming undeclared fields.
func (r Registry) Validate(reserved ...string) error {
	var errs []error
	for _, name := range r.ModelClasses() {
		if slices.Contains(reserved, name) {
			errs = append(errs, fmt.Errorf("schema: model class name %q is reserved", name))
		}
		s := r[name]
		if s == nil {
			errs = append(errs, fmt.Errorf("schema: %s: nil schema", name))
			continue
		}
		for field, fk := range s.Constraints.Foreign {
			if _, ok := r[fk.Reference]; !ok {
				errs = append(errs, fmt.Errorf("schema: %s.%s references unknown model class %q", name, field, fk.Reference))
			}
		}
		for _, key := range s.Constraints.Unique {
			if len(key) == 0 {
				errs = append(errs, fmt.Errorf("schema: %s: empty unique constraint", name))
			}
			for _, field := range key {
				if !s.declares(field) {
					errs = append(errs, fmt.Errorf("schema: %s: unique constraint %q names undeclared field %q", name, key.Key(), field))
				}
			}
		}
		for field := range s.Indexes.Filter {
			if !s.declares(field) {
				errs = append(errs, fmt.Errorf("schema: %s: filter index on undeclared field %q", name, field))
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Schema) declares(field string) bool {
	switch field {
	case record.FieldID, record.FieldCreatedAt, record.FieldUpdatedAt:
		return true
	}
	_, ok := s.Fields[field]
	return ok
}

// LoadJSON decodes a registry from JSON.
func LoadJSON(r io.Reader) (Registry, error) {
	var reg Registry
	if err := json.NewDecoder(r).Decode(&reg); err != nil {
		return nil, fmt.Errorf("schema: decode json: %w", err)
	}
	return reg, nil
}

// LoadYAML decodes a registry from YAML.
//
//	tags:
//	  fields:
//	    category: {type: text}
//	    name: {type: text}
//	  constraints:
//	    unique: ["category|name"]
//	    required: [category, name]
//	  indexes:
//	    filter:
//	      category: {}
//	      name: {match: true}
func LoadYAML(r io.Reader) (Registry, error) {
	var reg Registry
	if err := yaml.NewDecoder(r).Decode(&reg); err != nil {
		return nil, fmt.Errorf("schema: decode yaml: %w", err)
	}
	return reg, nil
}

// UnmarshalYAML decodes a field declaration including its default value.
func (f *Field) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		Type    FieldType `yaml:"type"`
		Default any       `yaml:"default"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	f.Type = aux.Type
	f.Default = nil
	if aux.Default != nil {
		v, err := record.FromAny(aux.Default)
		if err != nil {
			return fmt.Errorf("schema: default: %w", err)
		}
		f.Default = &v
	}
	return nil
}

// UnmarshalYAML accepts "a|b" as well as [a, b].
func (k *CompoundKey) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*k = ParseCompoundKey(node.Value)
		return nil
	}
	var fields []string
	if err := node.Decode(&fields); err != nil {
		return err
	}
	*k = fields
	return nil
}
