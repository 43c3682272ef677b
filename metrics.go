package termdex

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordAdd is called after each reference insert or update.
	RecordAdd(duration time.Duration, err error)

	// RecordRemove is called after each removal. removed is the number of
	// references that were deleted.
	RecordRemove(removed int, duration time.Duration, err error)

	// RecordSearch is called after each search. terms is the number of
	// include terms, results the number of ranked documents.
	RecordSearch(terms, results int, duration time.Duration, err error)

	// RecordCacheLookup is called for each posting list lookup.
	RecordCacheLookup(hit bool)

	// RecordCheckpoint is called after each checkpoint.
	RecordCheckpoint(duration time.Duration, err error)

	// RecordBackup is called after each backup with the number of bytes uploaded.
	RecordBackup(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)              {}
func (NoopMetricsCollector) RecordRemove(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordCacheLookup(bool)                      {}
func (NoopMetricsCollector) RecordCheckpoint(time.Duration, error)       {}
func (NoopMetricsCollector) RecordBackup(int64, time.Duration, error)    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount         atomic.Int64
	AddErrors        atomic.Int64
	AddTotalNanos    atomic.Int64
	RemoveCount      atomic.Int64
	RemovedRefs      atomic.Int64
	RemoveErrors     atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchResults    atomic.Int64
	SearchTotalNanos atomic.Int64
	CacheHits        atomic.Int64
	CacheMisses      atomic.Int64
	Checkpoints      atomic.Int64
	CheckpointErrors atomic.Int64
	Backups          atomic.Int64
	BackupErrors     atomic.Int64
	BackupBytes      atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(removed int, _ time.Duration, err error) {
	b.RemoveCount.Add(1)
	b.RemovedRefs.Add(int64(removed))
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_, results int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchResults.Add(int64(results))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordCacheLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheLookup(hit bool) {
	if hit {
		b.CacheHits.Add(1)
	} else {
		b.CacheMisses.Add(1)
	}
}

// RecordCheckpoint implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheckpoint(_ time.Duration, err error) {
	b.Checkpoints.Add(1)
	if err != nil {
		b.CheckpointErrors.Add(1)
	}
}

// RecordBackup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBackup(bytes int64, _ time.Duration, err error) {
	b.Backups.Add(1)
	if err != nil {
		b.BackupErrors.Add(1)
		return
	}
	b.BackupBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:         b.AddCount.Load(),
		AddErrors:        b.AddErrors.Load(),
		AddAvgNanos:      avg(b.AddTotalNanos.Load(), b.AddCount.Load()),
		RemoveCount:      b.RemoveCount.Load(),
		RemovedRefs:      b.RemovedRefs.Load(),
		RemoveErrors:     b.RemoveErrors.Load(),
		SearchCount:      b.SearchCount.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchResults:    b.SearchResults.Load(),
		SearchAvgNanos:   avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		CacheHits:        b.CacheHits.Load(),
		CacheMisses:      b.CacheMisses.Load(),
		Checkpoints:      b.Checkpoints.Load(),
		CheckpointErrors: b.CheckpointErrors.Load(),
		Backups:          b.Backups.Load(),
		BackupErrors:     b.BackupErrors.Load(),
		BackupBytes:      b.BackupBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount         int64
	AddErrors        int64
	AddAvgNanos      int64
	RemoveCount      int64
	RemovedRefs      int64
	RemoveErrors     int64
	SearchCount      int64
	SearchErrors     int64
	SearchResults    int64
	SearchAvgNanos   int64
	CacheHits        int64
	CacheMisses      int64
	Checkpoints      int64
	CheckpointErrors int64
	Backups          int64
	BackupErrors     int64
	BackupBytes      int64
}
