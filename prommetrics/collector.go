package prommetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/termdex"
)

var _ termdex.MetricsCollector = (*Collector)(nil)

// Collector implements termdex.MetricsCollector with Prometheus collectors.
type Collector struct {
	latency    *prometheus.HistogramVec
	ops        *prometheus.CounterVec
	removed    prometheus.Counter
	results    prometheus.Histogram
	cache      *prometheus.CounterVec
	backupSize prometheus.Counter
}

type options struct {
	namespace  string
	registerer prometheus.Registerer
	buckets    []float64
}

// Option configures a Collector.
type Option func(*options)

// WithNamespace sets the metric name prefix. Default "termdex".
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithRegisterer registers the collectors with r instead of the default
// Prometheus registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithLatencyBuckets overrides the histogram buckets of operation latency.
func WithLatencyBuckets(b []float64) Option {
	return func(o *options) { o.buckets = b }
}

// New creates and registers a Collector.
func New(optFns ...Option) (*Collector, error) {
	o := options{
		namespace:  "termdex",
		registerer: prometheus.DefaultRegisterer,
		buckets:    []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}
	for _, fn := range optFns {
		fn(&o)
	}

	c := &Collector{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of index operations.",
			Buckets:   o.buckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "operations_total",
			Help:      "Index operations by type and status.",
		}, []string{"op", "status"}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "removed_references_total",
			Help:      "References deleted by remove operations.",
		}),
		results: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "search_results",
			Help:      "Number of ranked documents per search.",
			Buckets:   []float64{0, 1, 10, 100, 1000, 10000},
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "posting_cache_lookups_total",
			Help:      "Posting list cache lookups by result.",
		}, []string{"result"}),
		backupSize: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "backup_bytes_total",
			Help:      "Bytes uploaded by backups.",
		}),
	}

	for _, col := range []prometheus.Collector{c.latency, c.ops, c.removed, c.results, c.cache, c.backupSize} {
		if err := o.registerer.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.latency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

func (c *Collector) RecordAdd(d time.Duration, err error) { c.observe("add", d, err) }

func (c *Collector) RecordRemove(removed int, d time.Duration, err error) {
	c.observe("remove", d, err)
	c.removed.Add(float64(removed))
}

func (c *Collector) RecordSearch(_, results int, d time.Duration, err error) {
	c.observe("search", d, err)
	if err == nil {
		c.results.Observe(float64(results))
	}
}

func (c *Collector) RecordCacheLookup(hit bool) {
	if hit {
		c.cache.WithLabelValues("hit").Inc()
		return
	}
	c.cache.WithLabelValues("miss").Inc()
}

func (c *Collector) RecordCheckpoint(d time.Duration, err error) { c.observe("checkpoint", d, err) }

func (c *Collector) RecordBackup(bytes int64, d time.Duration, err error) {
	c.observe("backup", d, err)
	if err == nil {
		c.backupSize.Add(float64(bytes))
	}
}
