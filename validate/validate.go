package validate

import (
	"github.com/hupe1980/recgo/index"
	"github.com/hupe1980/recgo/query"
	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/schema"
)

// Result is the outcome of validating a record.
type Result struct {
	Valid  bool   `json:"valid"`
	Errors Errors `json:"errors,omitempty"`
}

// Validator checks records against the schema and the current caches.
// Implementations must be pure functions of their arguments.
type Validator interface {
	// Validate checks params of modelClass before they are stored.
	Validate(modelClass string, params record.Record, reg schema.Registry, idx *index.Indexes, data record.Data) Result
	// IsUsed reports whether other records still reference rec.
	IsUsed(modelClass string, rec record.Record, reg schema.Registry, idx *index.Indexes, data record.Data) bool
}

// Default is the built-in validator. It checks required fields, declared
// types, unique constraints and the existence of foreign references.
type Default struct{}

var _ Validator = Default{}

// Validate implements Validator.
func (Default) Validate(modelClass string, params record.Record, reg schema.Registry, idx *index.Indexes, data record.Data) Result {
	errs := Errors{}
	sch, err := reg.Get(modelClass)
	if err != nil {
		errs.Add("modelClass", CodeInvalid)
		return Result{Errors: errs}
	}

	for _, field := range sch.Constraints.Required {
		if missing(params.Get(field)) {
			errs.Add(field, CodeRequired)
		}
	}

	for field, def := range sch.Fields {
		v := params.Get(field)
		if missing(v) {
			continue
		}
		if !hasType(def.Type, v) {
			errs.Add(field, CodeInvalid)
		}
	}

	if idx != nil {
		id := params.ID()
		for _, key := range sch.Constraints.Unique {
			composite, ok := index.Composite(params, key)
			if !ok {
				continue
			}
			if owner, taken := idx.UniqueID(modelClass, key, composite); taken && owner != id {
				for _, field := range key {
					errs.Add(field, CodeUnique)
				}
			}
		}
	}

	for field, fk := range sch.Constraints.Foreign {
		for _, v := range record.WrapArray(params.Get(field)) {
			if !record.Truthy(v) {
				continue
			}
			if _, ok := data.Lookup(fk.Reference, v.String()); !ok {
				errs.Add(field, CodeNotFound)
			}
		}
	}

	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Valid: true}
}

// IsUsed implements Validator.
func (Default) IsUsed(modelClass string, rec record.Record, reg schema.Registry, idx *index.Indexes, _ record.Data) bool {
	if idx == nil || rec == nil {
		return false
	}
	if idx.IsReferenced(modelClass, rec.ID()) {
		return true
	}
	pk := rec.Get(reg[modelClass].PrimaryKey()).String()
	return pk != rec.ID() && idx.IsReferenced(modelClass, pk)
}

func missing(v record.Value) bool {
	switch v.Kind() {
	case record.KindNull:
		return true
	case record.KindString:
		s, _ := v.AsString()
		return s == ""
	case record.KindArray:
		a, _ := v.AsArray()
		return len(a) == 0
	default:
		return false
	}
}

func hasType(t schema.FieldType, v record.Value) bool {
	switch t {
	case schema.FieldTypeNumber:
		_, ok := query.ParseNumber(v)
		return ok && v.Kind() != record.KindBool
	case schema.FieldTypeDate, schema.FieldTypeDateTime:
		_, ok := query.ParseTime(v)
		return ok
	case schema.FieldTypeBool:
		return v.Kind() == record.KindBool
	case schema.FieldTypeArray:
		return v.Kind() == record.KindArray
	default:
		return true
	}
}
