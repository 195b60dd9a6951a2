package testutil

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/recgo/codec"
	"github.com/hupe1980/recgo/persistence"
	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/schema"
)

// SchemasYAML declares contacts, tags, files, invoices and transactions.
const SchemasYAML = `
contacts:
  fields:
    name: {type: text}
    email: {type: text}
    kind: {type: text, default: customer}
  constraints:
    required: [name]
    unique: [email]
  indexes:
    filter:
      name: {match: true}
      kind: {}
tags:
  fields:
    category: {type: text}
    name: {type: text}
  constraints:
    required: [category, name]
    unique: ["category|name"]
  indexes:
    filter:
      category: {}
files:
  fields:
    name: {type: text}
    mimeType: {type: text}
    path: {type: text}
  constraints:
    required: [path]
invoices:
  fields:
    number: {type: text}
    date: {type: date}
    contact: {type: text}
    file: {type: file}
    total: {type: number}
    status: {type: text, default: draft}
  constraints:
    required: [number]
    unique: [number]
    foreign:
      contact: {reference: contacts}
      file: {reference: files}
  indexes:
    filter:
      status: {}
      contact: {}
transactions:
  fields:
    amount: {type: number}
    date: {type: date}
    bookedAt: {type: datetime}
    description: {type: text}
    contact: {type: text}
    invoice: {type: text}
    tags: {type: array}
  constraints:
    required: [amount]
    foreign:
      contact: {reference: contacts}
      invoice: {reference: invoices}
      tags: {reference: tags}
  indexes:
    filter:
      tags: {}
      contact: {}
      date: {}
      description: {match: true}
`

var (
	schemasOnce sync.Once
	schemas     schema.Registry
)

// Schemas returns a fresh copy of the fixture registry.
func Schemas() schema.Registry {
	schemasOnce.Do(func() {
		reg, err := schema.LoadYAML(strings.NewReader(SchemasYAML))
		if err != nil {
			panic(err)
		}
		schemas = reg
	})
	// Round-trip through the codec to hand out an independent copy.
	var out schema.Registry
	if err := codec.Default.Unmarshal(codec.MustMarshal(codec.Default, schemas), &out); err != nil {
		panic(err)
	}
	return out
}

// Rec builds a record from alternating field names and values.
func Rec(kv ...any) record.Record {
	if len(kv)%2 != 0 {
		panic("testutil: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return record.MustFromMap(m)
}

// Persistence returns an in-memory persistence seeded with reg and the
// given collections, encoded with codec.Default. No indexes are stored, so
// a store built on it rebuilds them at bootstrap.
func Persistence(tb testing.TB, reg schema.Registry, collections map[string][]record.Record) *persistence.Memory {
	tb.Helper()

	payloads := map[string][]byte{}
	if reg != nil {
		data, err := codec.Default.Marshal(reg)
		if err != nil {
			tb.Fatalf("testutil: encode schemas: %v", err)
		}
		payloads[persistence.SchemasKey] = data
	}
	for modelClass, records := range collections {
		data, err := codec.Default.Marshal(record.NewCollection(records...))
		if err != nil {
			tb.Fatalf("testutil: encode %s: %v", modelClass, err)
		}
		payloads[modelClass] = data
	}
	return persistence.NewMemory(payloads)
}

// Clock is a deterministic time source advancing by Step on every call.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewClock creates a clock starting at start.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, Step: step}
}

// Now returns the current time and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}
