// Package metrics provides in-process performance instrumentation for taxa.
//
// Timing metrics cover the hot paths of a browse session: building the
// hierarchy, filtering the tree, fetching listing pages, querying the store
// and rendering a frame. Cache metrics track the server response cache.
// Collection is on by default and can be disabled with TAXA_METRICS=0.
//
//	func Build(records []model.ClassifiedRecord) {
//	    defer metrics.Timer(metrics.HierarchyBuild)()
//	    ...
//	}
package metrics

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"text/tabwriter"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("TAXA_METRICS") != "0")
}

// Enabled reports whether metrics collection is on.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled toggles metrics collection.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric tracks timing statistics for a named operation.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 means unset
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)

	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a snapshot of the metric.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(total) / 1e6,
		AvgMs:   float64(avg) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}
}

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer returns a function that records the elapsed time when called.
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// TimerWithCallback is Timer that also hands the duration to cb.
func TimerWithCallback(m *TimingMetric, cb func(time.Duration)) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		if cb != nil {
			cb(d)
		}
	}
}

// Global timing metrics.
var (
	HierarchyBuild = newTimingMetric("hierarchy_build")
	TreeFilter     = newTimingMetric("tree_filter")
	ListingFetch   = newTimingMetric("listing_fetch")
	StoreQuery     = newTimingMetric("store_query")
	RecordLoad     = newTimingMetric("record_load")
	UIRender       = newTimingMetric("ui_render")
)

// AllTimingMetrics returns every registered timing metric.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{
		HierarchyBuild,
		TreeFilter,
		ListingFetch,
		StoreQuery,
		RecordLoad,
		UIRender,
	}
}

// AllTimingStats returns stats for the timing metrics that have data.
func AllTimingStats() []TimingStats {
	all := AllTimingMetrics()
	stats := make([]TimingStats, 0, len(all))
	for _, m := range all {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// ResetAll resets every timing and cache metric.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
	for _, m := range AllCacheMetrics() {
		m.Reset()
	}
}

// WriteSummary prints a table of the collected metrics to w.
func WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tCOUNT\tAVG ms\tMAX ms\tTOTAL ms")
	for _, s := range AllTimingStats() {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\n", s.Name, s.Count, s.AvgMs, s.MaxMs, s.TotalMs)
	}
	for _, c := range AllCacheMetrics() {
		st := c.Stats()
		if st.Hits+st.Misses == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\thits=%d misses=%d\t%.0f%%\t\t\n", st.Name, st.Hits, st.Misses, st.HitRate*100)
	}
	return tw.Flush()
}
