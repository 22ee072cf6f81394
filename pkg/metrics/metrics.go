// Package metrics exposes Prometheus instrumentation for rule selection.
//
// All methods are safe to call on a nil [*Metrics], so instrumentation can be
// left unconfigured.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/macropower/rulecat/pkg/cache"
)

const namespace = "rulecat"

// Request outcomes.
const (
	OutcomeInjected = "injected"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	rules         prometheus.Histogram
	tokens        prometheus.Histogram
	stages        *prometheus.HistogramVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Hook requests handled, by outcome.",
		}, []string{"outcome"}),
		rules: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "selected_rules",
			Help:      "Rules injected per request.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		tokens: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "selected_tokens",
			Help:      "Estimated tokens injected per request.",
			Buckets:   prometheus.ExponentialBuckets(250, 2, 8),
		}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"stage"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Rule content resolutions, by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent resolving rule content.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.rules,
		m.tokens,
		m.stages,
		m.fetches,
		m.fetchDuration,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records a handled request.
func (m *Metrics) ObserveRequest(outcome string, rules, tokens int) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(outcome).Inc()
	if outcome == OutcomeInjected {
		m.rules.Observe(float64(rules))
		m.tokens.Observe(float64(tokens))
	}
}

// ObserveStage records the duration of a pipeline stage.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.stages.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveFetch records a rule content resolution.
func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.fetches.WithLabelValues(outcome).Inc()
	m.fetchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RegisterCache exports the statistics returned by stats under the given
// cache name.
func (m *Metrics) RegisterCache(name string, stats func() cache.Stats) error {
	if m == nil {
		return nil
	}

	err := m.registry.Register(newCacheCollector(name, stats))
	if err != nil {
		return fmt.Errorf("register cache collector: %w", err)
	}

	return nil
}
