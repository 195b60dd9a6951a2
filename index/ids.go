package index

import (
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/recgo/record"
)

// IDSet is a set of record ids backed by a 32-bit Roaring bitmap.
// It marshals as an array of decimal id strings in ascending order.
type IDSet struct {
	rb *roaring.Bitmap
}

var idSetPool = sync.Pool{
	New: func() any {
		return &IDSet{rb: roaring.New()}
	},
}

// NewIDSet creates a set holding ids.
func NewIDSet(ids ...uint32) *IDSet {
	s := &IDSet{rb: roaring.New()}
	s.rb.AddMany(ids)
	return s
}

// GetIDSet gets an empty set from the pool. Call PutIDSet when done.
func GetIDSet() *IDSet {
	s := idSetPool.Get().(*IDSet)
	s.rb.Clear()
	return s
}

// PutIDSet returns a set to the pool.
func PutIDSet(s *IDSet) {
	if s == nil {
		return
	}
	s.rb.Clear()
	idSetPool.Put(s)
}

// Add adds an id to the set.
func (s *IDSet) Add(id uint32) {
	s.rb.Add(id)
}

// Remove removes an id from the set.
func (s *IDSet) Remove(id uint32) {
	s.rb.Remove(id)
}

// Contains reports whether id is in the set.
func (s *IDSet) Contains(id uint32) bool {
	return s != nil && s.rb.Contains(id)
}

// ContainsID reports whether the decimal id is in the set.
func (s *IDSet) ContainsID(id string) bool {
	n, err := record.ParseID(id)
	return err == nil && s.Contains(n)
}

// IsEmpty reports whether the set is empty.
func (s *IDSet) IsEmpty() bool {
	return s == nil || s.rb.IsEmpty()
}

// Len returns the number of ids.
func (s *IDSet) Len() int {
	if s == nil {
		return 0
	}
	return int(s.rb.GetCardinality())
}

// Or merges other into s.
func (s *IDSet) Or(other *IDSet) {
	if other == nil {
		return
	}
	s.rb.Or(other.rb)
}

// Clone returns a deep copy of the set.
func (s *IDSet) Clone() *IDSet {
	if s == nil {
		return NewIDSet()
	}
	return &IDSet{rb: s.rb.Clone()}
}

// All iterates the ids in ascending order.
func (s *IDSet) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		if s == nil {
			return
		}
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// IDs returns the decimal ids in ascending order.
func (s *IDSet) IDs() []string {
	out := make([]string, 0, s.Len())
	for id := range s.All() {
		out = append(out, record.FormatID(id))
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (s *IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON accepts an array of decimal strings or numbers.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rb := roaring.New()
	for _, v := range raw {
		switch x := v.(type) {
		case string:
			n, err := record.ParseID(x)
			if err != nil {
				return err
			}
			rb.Add(n)
		case float64:
			if x < 0 || x != float64(uint32(x)) {
				return fmt.Errorf("index: invalid id %s", strconv.FormatFloat(x, 'g', -1, 64))
			}
			rb.Add(uint32(x))
		default:
			return fmt.Errorf("index: invalid id %v", v)
		}
	}
	s.rb = rb
	return nil
}
