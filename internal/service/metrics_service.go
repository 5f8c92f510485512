package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the roster
// pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	importRows      *prometheus.CounterVec
	importDuration  prometheus.Observer
	renderDuration  *prometheus.HistogramVec
	archiveBuilds   *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "Spreadsheet rows processed by imports",
	}, []string{"outcome"})

	importDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "import_duration_seconds",
		Help:    "Duration of full import reconciliations",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	renderDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roster_render_duration_seconds",
		Help:    "Duration of single group document renders",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})

	archiveBuilds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_archive_builds_total",
		Help: "Roster archive builds by result",
	}, []string{"result"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roster_cache_hits_total",
		Help: "Total roster cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roster_cache_misses_total",
		Help: "Total roster cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, importRows, importDuration, renderDuration, archiveBuilds, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		importRows:      importRows,
		importDuration:  importDuration,
		renderDuration:  renderDuration,
		archiveBuilds:   archiveBuilds,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveImport records the outcome of one import reconciliation.
func (m *MetricsService) ObserveImport(created, skipped int, duration time.Duration) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("created").Add(float64(created))
	m.importRows.WithLabelValues("skipped").Add(float64(skipped))
	m.importDuration.Observe(duration.Seconds())
}

// ObserveRender records the duration of one group document render.
func (m *MetricsService) ObserveRender(format string, duration time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// ObserveArchiveBuild records one archive build.
func (m *MetricsService) ObserveArchiveBuild(failedGroups int) {
	if m == nil {
		return
	}
	result := "complete"
	if failedGroups > 0 {
		result = "partial"
	}
	m.archiveBuilds.WithLabelValues(result).Inc()
}

// RecordCacheLookup records a roster cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
