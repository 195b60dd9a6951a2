package record

import (
	"encoding/json"
	"slices"
	"strconv"
)

// Collection is the data cache of one model class: records in insertion
// order with O(1) lookup by id.
type Collection struct {
	order []string
	byID  map[string]Record
}

// NewCollection creates a collection holding records in the given order.
// Later duplicates of an id replace earlier ones in place.
func NewCollection(records ...Record) *Collection {
	c := &Collection{byID: make(map[string]Record, len(records))}
	for _, r := range records {
		c.Put(r)
	}
	return c
}

// Get returns the record with the given id.
func (c *Collection) Get(id string) (Record, bool) {
	if c == nil {
		return nil, false
	}
	r, ok := c.byID[id]
	return r, ok
}

// Put inserts or replaces the record keyed by its id. New ids are appended.
func (c *Collection) Put(r Record) {
	id := r.ID()
	if _, ok := c.byID[id]; !ok {
		c.order = append(c.order, id)
	}
	c.byID[id] = r
}

// Delete removes the record with the given id and reports whether it existed.
func (c *Collection) Delete(id string) bool {
	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	if i := slices.Index(c.order, id); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	return true
}

// Records returns the records in insertion order. The records are shared
// with the collection and must not be mutated.
func (c *Collection) Records() []Record {
	if c == nil {
		return nil
	}
	out := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of records.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// MaxID returns the largest numeric id in the collection, or 0.
func (c *Collection) MaxID() uint64 {
	if c == nil {
		return 0
	}
	var maxID uint64
	for _, id := range c.order {
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			continue
		}
		maxID = max(maxID, n)
	}
	return maxID
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	out := &Collection{byID: make(map[string]Record, c.Len())}
	if c == nil {
		return out
	}
	for _, id := range c.order {
		out.order = append(out.order, id)
		out.byID[id] = c.byID[id].Clone()
	}
	return out
}

// MarshalJSON encodes the collection as an array of records.
func (c *Collection) MarshalJSON() ([]byte, error) {
	records := c.Records()
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// UnmarshalJSON decodes an array of records.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	*c = *NewCollection(records...)
	return nil
}

// Data maps model classes to their collections.
type Data map[string]*Collection

// Collection returns the collection for a model class, creating it if needed.
func (d Data) Collection(modelClass string) *Collection {
	c, ok := d[modelClass]
	if !ok {
		c = NewCollection()
		d[modelClass] = c
	}
	return c
}

// Lookup returns the record id of modelClass, if present.
func (d Data) Lookup(modelClass, id string) (Record, bool) {
	return d[modelClass].Get(id)
}
