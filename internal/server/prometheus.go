package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/clusterkit"
)

// PrometheusCollector implements clusterkit.MetricsCollector with Prometheus
// metrics.
type PrometheusCollector struct {
	fits       *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	iterations *prometheus.HistogramVec
	points     *prometheus.CounterVec
	rejected   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewPrometheusCollector creates the collector and registers its metrics on
// reg. A nil reg registers on a fresh registry.
func NewPrometheusCollector(reg *prometheus.Registry) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &PrometheusCollector{
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterkit_fits_total",
			Help: "Total fits by method and outcome",
		}, []string{"method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clusterkit_fit_duration_seconds",
			Help:    "Latency of fits",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		iterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clusterkit_fit_iterations",
			Help:    "Iterations run by the iterative engines",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"method"}),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterkit_points_total",
			Help: "Points clustered by successful fits",
		}, []string{"method"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterkit_rejected_total",
			Help: "Fits refused by admission control",
		}, []string{"method"}),
		gatherer: reg,
	}

	reg.MustRegister(c.fits, c.latency, c.iterations, c.points, c.rejected)
	return c
}

// RecordFit implements clusterkit.MetricsCollector.
func (c *PrometheusCollector) RecordFit(method clusterkit.Method, n, _, iterations int, d time.Duration, err error) {
	m := string(method)
	status := "success"
	if err != nil {
		status = "error"
	}
	c.fits.WithLabelValues(m, status).Inc()
	c.latency.WithLabelValues(m).Observe(d.Seconds())
	if err != nil {
		return
	}
	c.points.WithLabelValues(m).Add(float64(n))
	if method != clusterkit.MethodHierarchical {
		c.iterations.WithLabelValues(m).Observe(float64(iterations))
	}
}

// RecordRejected implements clusterkit.MetricsCollector.
func (c *PrometheusCollector) RecordRejected(method clusterkit.Method) {
	c.rejected.WithLabelValues(string(method)).Inc()
}

// Handler serves the registry the collector was registered on.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
