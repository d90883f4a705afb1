package sink

import (
	"log/slog"

	"github.com/c360studio/semstreams/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// batcherMetrics holds Prometheus counters for a Batcher.
type batcherMetrics struct {
	batches  prometheus.Counter
	groups   prometheus.Counter
	failures prometheus.Counter
}

func newBatcherMetrics(registry *metric.MetricsRegistry, logger *slog.Logger) *batcherMetrics {
	m := &batcherMetrics{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "semharvest_sink_batches_total",
			Help: "Total update batches sent",
		}),
		groups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "semharvest_sink_groups_total",
			Help: "Total update groups sent",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "semharvest_sink_failures_total",
			Help: "Total update batches that failed",
		}),
	}
	if registry == nil {
		return m
	}

	for name, c := range map[string]prometheus.Counter{
		"batches_total":  m.batches,
		"groups_total":   m.groups,
		"failures_total": m.failures,
	} {
		if err := registry.RegisterCounter("sink", name, c); err != nil {
			logger.Warn("Failed to register sink metric", "metric", name, "error", err)
		}
	}
	return m
}
