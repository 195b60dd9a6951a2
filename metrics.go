package recgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    createCounter  prometheus.Counter
//	    listHistogram  prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordCreate(duration time.Duration, success bool) {
//	    p.createCounter.Inc()
//	}
type MetricsCollector interface {
	// RecordCreate is called after each create operation.
	// success is false when the record was rejected.
	RecordCreate(duration time.Duration, success bool)

	// RecordUpdate is called after each update operation.
	RecordUpdate(duration time.Duration, success bool)

	// RecordRemove is called after each remove operation.
	RecordRemove(duration time.Duration, success bool)

	// RecordList is called after each list operation with the number of
	// filter fields answered from an index (hits) or by a scan (misses).
	RecordList(duration time.Duration, hits, misses int)

	// RecordAtomic is called after each saga.
	RecordAtomic(steps int, success bool, duration time.Duration)

	// RecordPersistError is called when a persistence write fails.
	RecordPersistError(key string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCreate(time.Duration, bool)      {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, bool)      {}
func (NoopMetricsCollector) RecordRemove(time.Duration, bool)      {}
func (NoopMetricsCollector) RecordList(time.Duration, int, int)    {}
func (NoopMetricsCollector) RecordAtomic(int, bool, time.Duration) {}
func (NoopMetricsCollector) RecordPersistError(string)             {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CreateCount        atomic.Int64
	CreateRejected     atomic.Int64
	UpdateCount        atomic.Int64
	UpdateRejected     atomic.Int64
	RemoveCount        atomic.Int64
	RemoveRejected     atomic.Int64
	ListCount          atomic.Int64
	ListTotalNanos     atomic.Int64
	IndexHits          atomic.Int64
	IndexMisses        atomic.Int64
	AtomicCount        atomic.Int64
	AtomicFailed       atomic.Int64
	AtomicSteps        atomic.Int64
	PersistErrors      atomic.Int64
	MutationTotalNanos atomic.Int64
}

// RecordCreate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCreate(duration time.Duration, success bool) {
	b.CreateCount.Add(1)
	b.MutationTotalNanos.Add(duration.Nanoseconds())
	if !success {
		b.CreateRejected.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, success bool) {
	b.UpdateCount.Add(1)
	b.MutationTotalNanos.Add(duration.Nanoseconds())
	if !success {
		b.UpdateRejected.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration, success bool) {
	b.RemoveCount.Add(1)
	b.MutationTotalNanos.Add(duration.Nanoseconds())
	if !success {
		b.RemoveRejected.Add(1)
	}
}

// RecordList implements MetricsCollector.
func (b *BasicMetricsCollector) RecordList(duration time.Duration, hits, misses int) {
	b.ListCount.Add(1)
	b.ListTotalNanos.Add(duration.Nanoseconds())
	b.IndexHits.Add(int64(hits))
	b.IndexMisses.Add(int64(misses))
}

// RecordAtomic implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAtomic(steps int, success bool, _ time.Duration) {
	b.AtomicCount.Add(1)
	b.AtomicSteps.Add(int64(steps))
	if !success {
		b.AtomicFailed.Add(1)
	}
}

// RecordPersistError implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPersistError(string) {
	b.PersistErrors.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CreateCount:      b.CreateCount.Load(),
		CreateRejected:   b.CreateRejected.Load(),
		UpdateCount:      b.UpdateCount.Load(),
		UpdateRejected:   b.UpdateRejected.Load(),
		RemoveCount:      b.RemoveCount.Load(),
		RemoveRejected:   b.RemoveRejected.Load(),
		MutationAvgNanos: b.getAvgMutationNanos(),
		ListCount:        b.ListCount.Load(),
		ListAvgNanos:     b.getAvgListNanos(),
		IndexHits:        b.IndexHits.Load(),
		IndexMisses:      b.IndexMisses.Load(),
		AtomicCount:      b.AtomicCount.Load(),
		AtomicFailed:     b.AtomicFailed.Load(),
		AtomicSteps:      b.AtomicSteps.Load(),
		PersistErrors:    b.PersistErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgMutationNanos() int64 {
	count := b.CreateCount.Load() + b.UpdateCount.Load() + b.RemoveCount.Load()
	if count == 0 {
		return 0
	}
	return b.MutationTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgListNanos() int64 {
	count := b.ListCount.Load()
	if count == 0 {
		return 0
	}
	return b.ListTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CreateCount      int64
	CreateRejected   int64
	UpdateCount      int64
	UpdateRejected   int64
	RemoveCount      int64
	RemoveRejected   int64
	MutationAvgNanos int64
	ListCount        int64
	ListAvgNanos     int64
	IndexHits        int64
	IndexMisses      int64
	AtomicCount      int64
	AtomicFailed     int64
	AtomicSteps      int64
	PersistErrors    int64
}
