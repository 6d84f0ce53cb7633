package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vanderheijden86/taxa/pkg/metrics"
)

// timingCollector republishes the in-process timing and cache metrics.
type timingCollector struct {
	count  *prometheus.Desc
	total  *prometheus.Desc
	max    *prometheus.Desc
	hits   *prometheus.Desc
	misses *prometheus.Desc
}

func newTimingCollector() *timingCollector {
	return &timingCollector{
		count:  prometheus.NewDesc("taxa_operation_count", "Recorded operations.", []string{"operation"}, nil),
		total:  prometheus.NewDesc("taxa_operation_seconds_total", "Time spent per operation.", []string{"operation"}, nil),
		max:    prometheus.NewDesc("taxa_operation_max_seconds", "Slowest recorded operation.", []string{"operation"}, nil),
		hits:   prometheus.NewDesc("taxa_cache_hits_total", "Response cache hits.", []string{"cache"}, nil),
		misses: prometheus.NewDesc("taxa_cache_misses_total", "Response cache misses.", []string{"cache"}, nil),
	}
}

func (c *timingCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.count
	ch <- c.total
	ch <- c.max
	ch <- c.hits
	ch <- c.misses
}

func (c *timingCollector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range metrics.AllTimingMetrics() {
		st := m.Stats()
		ch <- prometheus.MustNewConstMetric(c.count, prometheus.CounterValue, float64(st.Count), st.Name)
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.CounterValue, st.TotalMs/1e3, st.Name)
		ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, st.MaxMs/1e3, st.Name)
	}
	for _, m := range metrics.AllCacheMetrics() {
		st := m.Stats()
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits), st.Name)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses), st.Name)
	}
}
