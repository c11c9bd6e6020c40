package clusterkit

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
//	    fits     *prometheus.CounterVec
//	    duration *prometheus.HistogramVec
//	}
//
//	func (p *PrometheusCollector) RecordFit(m clusterkit.Method, n, k, iters int, d time.Duration, err error) {
//	    p.fits.WithLabelValues(string(m)).Inc()
//	    p.duration.WithLabelValues(string(m)).Observe(d.Seconds())
//	}
type MetricsCollector interface {
	// RecordFit is called after each fit.
	// n is the number of points, k the requested cluster count, iterations
	// the rounds actually run, err is nil if successful.
	RecordFit(method Method, n, k, iterations int, duration time.Duration, err error)

	// RecordRejected is called when admission control refuses a fit.
	RecordRejected(method Method)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFit(Method, int, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRejected(Method)                              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FitCount        atomic.Int64
	FitErrors       atomic.Int64
	FitTotalNanos   atomic.Int64
	FitPoints       atomic.Int64
	FitIterations   atomic.Int64
	KMeansCount     atomic.Int64
	EMCount         atomic.Int64
	HierarchicalCnt atomic.Int64
	RejectedCount   atomic.Int64
}

// RecordFit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFit(method Method, n, k, iterations int, duration time.Duration, err error) {
	b.FitCount.Add(1)
	b.FitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FitErrors.Add(1)
		return
	}
	b.FitPoints.Add(int64(n))
	b.FitIterations.Add(int64(iterations))
	switch method {
	case MethodKMeans:
		b.KMeansCount.Add(1)
	case MethodEM:
		b.EMCount.Add(1)
	case MethodHierarchical:
		b.HierarchicalCnt.Add(1)
	}
}

// RecordRejected implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRejected(Method) {
	b.RejectedCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FitCount:          b.FitCount.Load(),
		FitErrors:         b.FitErrors.Load(),
		FitAvgNanos:       b.getAvgFitNanos(),
		FitPoints:         b.FitPoints.Load(),
		FitIterations:     b.FitIterations.Load(),
		KMeansCount:       b.KMeansCount.Load(),
		EMCount:           b.EMCount.Load(),
		HierarchicalCount: b.HierarchicalCnt.Load(),
		RejectedCount:     b.RejectedCount.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgFitNanos() int64 {
	count := b.FitCount.Load()
	if count == 0 {
		return 0
	}
	return b.FitTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FitCount          int64
	FitErrors         int64
	FitAvgNanos       int64
	FitPoints         int64
	FitIterations     int64
	KMeansCount       int64
	EMCount           int64
	HierarchicalCount int64
	RejectedCount     int64
}
