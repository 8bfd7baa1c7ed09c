// Package observability provides metrics and tracing hooks for the MCP
// client core. The core stays headless: it records into whatever Metrics
// implementation it is given and never serves HTTP itself; the Prometheus
// registry and handler are exposed for the embedding application.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records client-side protocol events
type Metrics interface {
	// RecordRequest records one completed request by method and outcome
	RecordRequest(method, status string, duration time.Duration)

	// RecordToolCall records one completed tool invocation
	RecordToolCall(tool, status string, duration time.Duration)

	// SetConnectionState records the session state as a gauge
	SetConnectionState(state string)

	// RecordFailAll counts wholesale pending-request failures by reason
	RecordFailAll(reason string)
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) RecordRequest(string, string, time.Duration)  {}
func (NopMetrics) RecordToolCall(string, string, time.Duration) {}
func (NopMetrics) SetConnectionState(string)                    {}
func (NopMetrics) RecordFailAll(string)                         {}

// MetricsConfig configures the Prometheus metrics implementation
type MetricsConfig struct {
	// Namespace defaults to "mcp"
	Namespace string
	// Subsystem defaults to "client"
	Subsystem string
	// HistogramBuckets are latency buckets in seconds
	HistogramBuckets []float64
	// ConstLabels are attached to every metric
	ConstLabels prometheus.Labels
}

// PrometheusMetrics implements Metrics backed by a private registry
type PrometheusMetrics struct {
	registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolCallTotal    *prometheus.CounterVec
	connectionState  *prometheus.GaugeVec
	failAllTotal     *prometheus.CounterVec

	stateMu   sync.Mutex
	lastState string
}

// NewPrometheusMetrics creates and registers the client metric set
func NewPrometheusMetrics(config MetricsConfig) (*PrometheusMetrics, error) {
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.Subsystem == "" {
		config.Subsystem = "client"
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	}

	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Duration of MCP requests by method and status",
			Buckets:     config.HistogramBuckets,
			ConstLabels: config.ConstLabels,
		}, []string{"method", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total MCP requests by method and status",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "status"}),
		toolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tool_call_duration_seconds",
			Help:        "Duration of tool invocations by tool and status",
			Buckets:     config.HistogramBuckets,
			ConstLabels: config.ConstLabels,
		}, []string{"tool", "status"}),
		toolCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tool_calls_total",
			Help:        "Total tool invocations by tool and status",
			ConstLabels: config.ConstLabels,
		}, []string{"tool", "status"}),
		connectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "session_state",
			Help:        "Current session state (1 for the active state, 0 otherwise)",
			ConstLabels: config.ConstLabels,
		}, []string{"state"}),
		failAllTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "failed_all_total",
			Help:        "Wholesale pending-request failures by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),
	}

	collectors := []prometheus.Collector{
		m.requestDuration, m.requestTotal,
		m.toolCallDuration, m.toolCallTotal,
		m.connectionState, m.failAllTotal,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordRequest records one completed request
func (m *PrometheusMetrics) RecordRequest(method, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, status).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, status).Inc()
}

// RecordToolCall records one completed tool invocation
func (m *PrometheusMetrics) RecordToolCall(tool, status string, duration time.Duration) {
	m.toolCallDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
	m.toolCallTotal.WithLabelValues(tool, status).Inc()
}

// SetConnectionState flips the state gauge to the given state
func (m *PrometheusMetrics) SetConnectionState(state string) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.lastState != "" && m.lastState != state {
		m.connectionState.WithLabelValues(m.lastState).Set(0)
	}
	m.connectionState.WithLabelValues(state).Set(1)
	m.lastState = state
}

// RecordFailAll counts one wholesale failure
func (m *PrometheusMetrics) RecordFailAll(reason string) {
	m.failAllTotal.WithLabelValues(reason).Inc()
}

// Registry returns the private Prometheus registry
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the registry, for embedding
// applications that expose metrics
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
