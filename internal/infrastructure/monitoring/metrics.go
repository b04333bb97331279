package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Plugin lifecycle metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	PluginsInstalled  prometheus.Gauge

	// Asset and upstream metrics
	AssetReads       *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec

	// Revalidation metrics
	Revalidations *prometheus.CounterVec
	PrewarmPages  *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blog_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blog_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugin_operations_total",
				Help: "Plugin lifecycle operations by outcome",
			},
			[]string{"op", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plugin_operation_duration_seconds",
				Help:    "Plugin lifecycle operation duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"op"},
		),
		PluginsInstalled: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "plugins_installed",
				Help: "Number of installed plugins",
			},
		),

		AssetReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugin_asset_reads_total",
				Help: "Plugin asset reads by where they were served from",
			},
			[]string{"source"},
		),
		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugin_upstream_requests_total",
				Help: "Requests to the remote plugin registry by result",
			},
			[]string{"result"},
		),

		Revalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugin_revalidations_total",
				Help: "Revalidation triggers by mode",
			},
			[]string{"mode"},
		),
		PrewarmPages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugin_prewarm_pages_total",
				Help: "Pre-warmed pages by result",
			},
			[]string{"result"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "plugin_ws_connections",
				Help: "Number of open lifecycle event streams",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugin_ws_messages_total",
				Help: "Lifecycle events written to websocket clients",
			},
			[]string{"type"},
		),
	}
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordOperation records a lifecycle operation outcome
func (m *Metrics) RecordOperation(op, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetPluginsInstalled sets the installed plugin gauge
func (m *Metrics) SetPluginsInstalled(count int) {
	if m == nil {
		return
	}
	m.PluginsInstalled.Set(float64(count))
}

// RecordAssetRead records where an asset read was served from
func (m *Metrics) RecordAssetRead(source string) {
	if m == nil {
		return
	}
	m.AssetReads.WithLabelValues(source).Inc()
}

// RecordUpstream records a registry request result
func (m *Metrics) RecordUpstream(result string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(result).Inc()
}

// RecordRevalidation records a revalidation trigger
func (m *Metrics) RecordRevalidation(mode string) {
	if m == nil {
		return
	}
	m.Revalidations.WithLabelValues(mode).Inc()
}

// RecordPrewarm records a single pre-warm fetch
func (m *Metrics) RecordPrewarm(result string) {
	if m == nil {
		return
	}
	m.PrewarmPages.WithLabelValues(result).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// RecordWSMessage records a lifecycle event pushed to a client
func (m *Metrics) RecordWSMessage(msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(msgType).Inc()
}
