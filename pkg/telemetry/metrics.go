// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for a refx runtime.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "refx").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for compile duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "refx",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors of one runtime. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	compilesTotal    *prometheus.CounterVec
	compileDuration  prometheus.Histogram
	bindingsResolved *prometheus.CounterVec
	hydrationMisses  prometheus.Counter
	sourceErrors     *prometheus.CounterVec
	nodesReleased    prometheus.Counter
	eventsDispatched *prometheus.CounterVec
	pendingBindings  prometheus.Gauge
}

// NewMetrics registers the collectors with the configured registry.
// Registering twice on the same registry panics, as promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		compilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "compiles_total",
			Help:        "Total number of template compilations",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		compileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "compile_duration_seconds",
			Help:        "Template compilation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		bindingsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bindings_resolved_total",
			Help:        "Total number of bindings resolved during hydration",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		hydrationMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "hydration_misses_total",
			Help:        "Total number of markers found without pending bindings",
			ConstLabels: config.ConstLabels,
		}),

		sourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "source_errors_total",
			Help:        "Total number of errors reported to bindings",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		nodesReleased: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "nodes_released_total",
			Help:        "Total number of bound elements released after removal",
			ConstLabels: config.ConstLabels,
		}),

		eventsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_dispatched_total",
			Help:        "Total number of events that ran at least one handler",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "handled"}),

		pendingBindings: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pending_bindings",
			Help:        "Number of markers waiting for hydration",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// CompileDone records one compilation.
func (m *Metrics) CompileDone(start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.compilesTotal.WithLabelValues(status).Inc()
	m.compileDuration.Observe(time.Since(start).Seconds())
}

// BindingResolved counts a resolved binding of kind.
func (m *Metrics) BindingResolved(kind string) {
	if m != nil {
		m.bindingsResolved.WithLabelValues(kind).Inc()
	}
}

// HydrationMiss counts a marker without pending bindings.
func (m *Metrics) HydrationMiss() {
	if m != nil {
		m.hydrationMisses.Inc()
	}
}

// SourceError counts an error reported to a binding of kind.
func (m *Metrics) SourceError(kind string) {
	if m != nil {
		m.sourceErrors.WithLabelValues(kind).Inc()
	}
}

// NodesReleased counts released elements.
func (m *Metrics) NodesReleased(n int) {
	if m != nil {
		m.nodesReleased.Add(float64(n))
	}
}

// EventDispatched counts a dispatch that ran handlers.
func (m *Metrics) EventDispatched(event string, handled bool) {
	if m != nil {
		m.eventsDispatched.WithLabelValues(event, strconv.FormatBool(handled)).Inc()
	}
}

// SetPending records the number of markers in the pending table.
func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.pendingBindings.Set(float64(n))
	}
}
