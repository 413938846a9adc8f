package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for service metrics.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for latency metrics.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithMetricsEnabled turns collection on or off. A disabled manager keeps
// its collectors registered but every Record and Update call is a no-op.
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled.Store(enabled)
	}
}

// WithRefreshInterval sets the period of the gauge refresh loops.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval.Store(int64(interval))
		}
	}
}

// WithCustomLabels adds constant labels to all metrics.
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if labels != nil {
			m.customLabels = labels
		}
	}
}

// WithMetricPrefix prefixes every metric name.
func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" {
			m.metricPrefix = prefix
		}
	}
}

// WithPrometheusRegistry sets the registerer collectors are attached to.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// RefreshInterval reports how often gauge refresh loops should run.
func (m *Manager) RefreshInterval() time.Duration {
	return time.Duration(m.refreshInterval.Load())
}

// Enabled reports whether collection is enabled.
func (m *Manager) Enabled() bool {
	return m.enabled.Load()
}

// Configure applies runtime options to the global manager. Only
// WithMetricsEnabled and WithRefreshInterval take effect here; collectors are
// already registered, so naming options are ignored.
func Configure(opts ...Option) {
	staged := &Manager{}
	staged.enabled.Store(globalManager.Enabled())
	staged.refreshInterval.Store(int64(globalManager.RefreshInterval()))
	for _, opt := range opts {
		opt(staged)
	}
	globalManager.enabled.Store(staged.Enabled())
	globalManager.refreshInterval.Store(int64(staged.RefreshInterval()))
}

// Enabled reports whether the global manager collects.
func Enabled() bool {
	return globalManager.Enabled()
}

// RefreshInterval is the global manager's gauge refresh period.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}
