// Package prommetrics exports index metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	c, err := prommetrics.New(prommetrics.WithRegisterer(reg))
//	if err != nil { ... }
//	ix, err := termdex.Open(dir, termdex.WithMetricsCollector(c))
//	http.Handle("/metrics", prommetrics.Handler(reg))
package prommetrics
