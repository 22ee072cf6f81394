package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulecat/pkg/cache"
	"github.com/macropower/rulecat/pkg/metrics"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveRequest(metrics.OutcomeInjected, 3, 2400)
	m.ObserveRequest(metrics.OutcomeSkipped, 0, 0)
	m.ObserveRequest(metrics.OutcomeSkipped, 0, 0)

	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP rulecat_requests_total Hook requests handled, by outcome.
# TYPE rulecat_requests_total counter
rulecat_requests_total{outcome="injected"} 1
rulecat_requests_total{outcome="skipped"} 2
`), "rulecat_requests_total")
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(m.Registry(), "rulecat_selected_rules")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_ObserveFetch(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveFetch("hit", time.Millisecond)
	m.ObserveFetch("remote", 50*time.Millisecond)
	m.ObserveStage("detect", 2*time.Millisecond)

	n, err := testutil.GatherAndCount(m.Registry(), "rulecat_fetches_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = testutil.GatherAndCount(m.Registry(), "rulecat_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_RegisterCache(t *testing.T) {
	t.Parallel()

	c := cache.New[string](time.Minute)
	c.Set("a", "1")
	c.Get("a")
	c.Get("b")

	m := metrics.New()
	require.NoError(t, m.RegisterCache("rules", c.Stats))

	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP rulecat_cache_hits_total Cache lookups that found a live entry.
# TYPE rulecat_cache_hits_total counter
rulecat_cache_hits_total{cache="rules"} 1
# HELP rulecat_cache_misses_total Cache lookups that found no live entry.
# TYPE rulecat_cache_misses_total counter
rulecat_cache_misses_total{cache="rules"} 1
# HELP rulecat_cache_entries Live cache entries.
# TYPE rulecat_cache_entries gauge
rulecat_cache_entries{cache="rules"} 1
`), "rulecat_cache_hits_total", "rulecat_cache_misses_total", "rulecat_cache_entries")
	require.NoError(t, err)

	require.Error(t, m.RegisterCache("rules", c.Stats))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveRequest(metrics.OutcomeFailed, 0, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `rulecat_requests_total{outcome="failed"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_Nil(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest(metrics.OutcomeInjected, 1, 1)
		m.ObserveStage("detect", time.Second)
		m.ObserveFetch("hit", time.Second)
	})
	require.NoError(t, m.RegisterCache("rules", func() cache.Stats { return cache.Stats{} }))
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
