package index

import (
	"errors"
	"fmt"

	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/schema"
)

// Add indexes rec, stored under id in modelClass.
func (x *Indexes) Add(sch *schema.Schema, modelClass, id string, rec record.Record) error {
	n, err := record.ParseID(id)
	if err != nil {
		return fmt.Errorf("index: %s: %w", modelClass, err)
	}
	x.Normalize()

	for _, key := range sch.Constraints.Unique {
		composite, ok := Composite(rec, key)
		if !ok {
			continue
		}
		x.uniqueBucket(modelClass, key.Key())[composite] = id
	}

	x.addReferences(sch, modelClass, n, rec)
	return nil
}

// Update moves the entries of id from old to updated. Entries for the new
// values are added first, then the stale delta of old is removed, so values
// kept by the update never lose their entry.
func (x *Indexes) Update(sch *schema.Schema, modelClass, id string, old, updated record.Record) error {
	n, err := record.ParseID(id)
	if err != nil {
		return fmt.Errorf("index: %s: %w", modelClass, err)
	}
	x.Normalize()

	for _, key := range sch.Constraints.Unique {
		oldComposite, hadOld := Composite(old, key)
		newComposite, hasNew := Composite(updated, key)
		if hadOld && (!hasNew || oldComposite != newComposite) {
			x.removeUnique(modelClass, key.Key(), oldComposite, id)
		}
		if hasNew {
			x.uniqueBucket(modelClass, key.Key())[newComposite] = id
		}
	}

	x.addReferences(sch, modelClass, n, updated)

	for field, values := range Stale(old, updated) {
		fk, isForeign := sch.Foreign(field)
		_, isFilter := sch.Filter(field)
		for _, v := range values {
			if isForeign {
				x.removeForeign(fk.Reference, v.String(), modelClass, n)
			}
			if isFilter {
				x.removeFilter(modelClass, field, v.String(), n)
			}
		}
	}
	return nil
}

// Remove drops every entry rec contributed under id in modelClass.
func (x *Indexes) Remove(sch *schema.Schema, modelClass, id string, rec record.Record) error {
	n, err := record.ParseID(id)
	if err != nil {
		return fmt.Errorf("index: %s: %w", modelClass, err)
	}
	x.Normalize()

	for _, key := range sch.Constraints.Unique {
		if composite, ok := Composite(rec, key); ok {
			x.removeUnique(modelClass, key.Key(), composite, id)
		}
	}

	for field, fk := range sch.Constraints.Foreign {
		for _, v := range record.WrapArray(rec.Get(field)) {
			x.removeForeign(fk.Reference, v.String(), modelClass, n)
		}
	}

	for field := range sch.Indexes.Filter {
		for _, v := range record.WrapArray(rec.Get(field)) {
			x.removeFilter(modelClass, field, v.String(), n)
		}
	}
	return nil
}

// Cleanup removes the entries that point at rec as the target of foreign
// references after it was deleted from modelClass: its own reverse bucket,
// and every filter bucket keyed by its primary key value on a field that
// is a foreign key referencing modelClass.
func (x *Indexes) Cleanup(reg schema.Registry, modelClass string, rec record.Record) {
	x.Normalize()

	pk := rec.Get(reg[modelClass].PrimaryKey()).String()
	if refs, ok := x.Foreign[modelClass]; ok {
		delete(refs, rec.ID())
		if pk != rec.ID() {
			delete(refs, pk)
		}
		if len(refs) == 0 {
			delete(x.Foreign, modelClass)
		}
	}

	for _, other := range reg.ModelClasses() {
		sch := reg[other]
		for _, field := range sch.ForeignFields(modelClass) {
			if _, ok := sch.Filter(field); !ok {
				continue
			}
			buckets, ok := x.Filter[other][field]
			if !ok {
				continue
			}
			delete(buckets, pk)
			if len(buckets) == 0 {
				delete(x.Filter[other], field)
			}
		}
		if len(x.Filter[other]) == 0 {
			delete(x.Filter, other)
		}
	}
}

// Rebuild derives fresh indexes from data. Records that cannot be indexed
// are skipped and reported in the returned error.
func Rebuild(reg schema.Registry, data record.Data) (*Indexes, error) {
	x := New()
	var errs []error
	for _, modelClass := range reg.ModelClasses() {
		sch := reg[modelClass]
		for _, rec := range data[modelClass].Records() {
			if err := x.Add(sch, modelClass, rec.ID(), rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return x, errors.Join(errs...)
}

// addReferences adds the foreign and filter entries of rec.
func (x *Indexes) addReferences(sch *schema.Schema, modelClass string, id uint32, rec record.Record) {
	for field, fk := range sch.Constraints.Foreign {
		for _, v := range record.WrapArray(rec.Get(field)) {
			if ref := v.String(); ref != "" {
				x.foreignSet(fk.Reference, ref, modelClass).Add(id)
			}
		}
	}

	for field := range sch.Indexes.Filter {
		for _, v := range record.WrapArray(rec.Get(field)) {
			x.filterSet(modelClass, field, v.String()).Add(id)
		}
	}
}

func (x *Indexes) uniqueBucket(modelClass, key string) map[string]string {
	keys, ok := x.Unique[modelClass]
	if !ok {
		keys = make(map[string]map[string]string)
		x.Unique[modelClass] = keys
	}
	bucket, ok := keys[key]
	if !ok {
		bucket = make(map[string]string)
		keys[key] = bucket
	}
	return bucket
}

func (x *Indexes) removeUnique(modelClass, key, composite, id string) {
	keys := x.Unique[modelClass]
	bucket := keys[key]
	if bucket[composite] != id {
		return
	}
	delete(bucket, composite)
	if len(bucket) == 0 {
		delete(keys, key)
	}
	if len(keys) == 0 {
		delete(x.Unique, modelClass)
	}
}

func (x *Indexes) foreignSet(ref, refID, modelClass string) *IDSet {
	return nestedSet(x.Foreign, ref, refID, modelClass)
}

func (x *Indexes) removeForeign(ref, refID, modelClass string, id uint32) {
	removeNested(x.Foreign, ref, refID, modelClass, id)
}

func (x *Indexes) filterSet(modelClass, field, value string) *IDSet {
	return nestedSet(x.Filter, modelClass, field, value)
}

func (x *Indexes) removeFilter(modelClass, field, value string, id uint32) {
	removeNested(x.Filter, modelClass, field, value, id)
}

func nestedSet[M ~map[string]map[string]map[string]*IDSet](m M, a, b, c string) *IDSet {
	level1, ok := m[a]
	if !ok {
		level1 = make(map[string]map[string]*IDSet)
		m[a] = level1
	}
	level2, ok := level1[b]
	if !ok {
		level2 = make(map[string]*IDSet)
		level1[b] = level2
	}
	set, ok := level2[c]
	if !ok {
		set = NewIDSet()
		level2[c] = set
	}
	return set
}

// removeNested drops id from m[a][b][c] and prunes the levels it empties.
func removeNested[M ~map[string]map[string]map[string]*IDSet](m M, a, b, c string, id uint32) {
	level1, ok := m[a]
	if !ok {
		return
	}
	level2, ok := level1[b]
	if !ok {
		return
	}
	set, ok := level2[c]
	if !ok {
		return
	}
	set.Remove(id)
	if !set.IsEmpty() {
		return
	}
	delete(level2, c)
	if len(level2) == 0 {
		delete(level1, b)
	}
	if len(level1) == 0 {
		delete(m, a)
	}
}
