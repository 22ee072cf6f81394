package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/macropower/rulecat/pkg/cache"
)

type cacheCollector struct {
	stats  func() cache.Stats
	hits   *prometheus.Desc
	misses *prometheus.Desc
	size   *prometheus.Desc
}

func newCacheCollector(name string, stats func() cache.Stats) *cacheCollector {
	labels := prometheus.Labels{"cache": name}

	return &cacheCollector{
		stats: stats,
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hits_total"),
			"Cache lookups that found a live entry.", nil, labels,
		),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "misses_total"),
			"Cache lookups that found no live entry.", nil, labels,
		),
		size: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Live cache entries.", nil, labels,
		),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.size
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size))
}
