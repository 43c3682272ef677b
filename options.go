package termdex

import (
	"github.com/hupe1980/termdex/codec"
	"github.com/hupe1980/termdex/internal/cache"
	"github.com/hupe1980/termdex/internal/fs"
	"github.com/hupe1980/termdex/resource"
)

const (
	// DefaultCacheSize is the number of posting lists kept in memory.
	DefaultCacheSize = 1024
)

type options struct {
	capacity         int64
	partitions       int
	cacheSize        int
	cacheShards      int
	codec            codec.Codec
	logger           *Logger
	metricsCollector MetricsCollector
	rc               *resource.Controller
	fs               fs.FileSystem
	repair           bool
	ranking          Ranking
}

func defaultOptions() options {
	return options{
		cacheSize:        DefaultCacheSize,
		cacheShards:      cache.DefaultShards,
		codec:            codec.Default,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		fs:               fs.Default,
		ranking:          DefaultRanking(),
	}
}

// Option configures Open and Restore.
type Option func(*options)

// WithCapacity bounds the number of postings the index accepts. Adds beyond
// the bound fail with ErrCapacityExceeded until the index is reopened with a
// larger capacity. Zero or negative means unbounded.
func WithCapacity(n int64) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithPartitions sets the number of hash partitions of the in-memory
// handle indexes.
func WithPartitions(n int) Option {
	return func(o *options) {
		o.partitions = n
	}
}

// WithCacheSize sets the number of posting lists held by the adaptive cache.
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.cacheSize = n
	}
}

// WithCacheShards sets the number of independent cache shards.
// A value of 1 uses a single ARC with an exact capacity bound.
func WithCacheShards(n int) Option {
	return func(o *options) {
		o.cacheShards = n
	}
}

// WithDumpCodec configures the stream codec used for handle index dumps.
// The codec determines the dump file suffix.
//
// If nil is passed, codec.Default is used.
func WithDumpCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger sets the logger. Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &termdex.BasicMetricsCollector{}
//	idx, _ := termdex.Open("./data", termdex.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController charges index memory, background work and dump or
// backup I/O to rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithFileSystem sets the file system used for the record file and dumps.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fs.OrDefault(fsys)
	}
}

// WithRepair cuts a torn trailing record from the record file on open
// instead of failing with ErrCorruptStore.
func WithRepair() Option {
	return func(o *options) {
		o.repair = true
	}
}

// WithRanking sets the coefficients used by Search.
func WithRanking(r Ranking) Option {
	return func(o *options) {
		o.ranking = r
	}
}
