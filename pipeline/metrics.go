package pipeline

import (
	"log/slog"

	"github.com/c360studio/semharvest/store"
	"github.com/c360studio/semstreams/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// runnerMetrics holds Prometheus metrics for stage runs.
type runnerMetrics struct {
	records *prometheus.CounterVec
	runs    *prometheus.CounterVec
}

func newRunnerMetrics(registry *metric.MetricsRegistry, logger *slog.Logger) *runnerMetrics {
	m := &runnerMetrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "semharvest_pipeline_records_total",
			Help: "Records processed by stage and outcome",
		}, []string{"pipeline", "stage", "outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "semharvest_pipeline_runs_total",
			Help: "Stage runs by status",
		}, []string{"pipeline", "stage", "status"}),
	}
	if registry == nil {
		return m
	}

	if err := registry.RegisterCounterVec("pipeline", "records_total", m.records); err != nil {
		logger.Warn("Failed to register pipeline metric", "metric", "records_total", "error", err)
	}
	if err := registry.RegisterCounterVec("pipeline", "runs_total", m.runs); err != nil {
		logger.Warn("Failed to register pipeline metric", "metric", "runs_total", "error", err)
	}
	return m
}

func (m *runnerMetrics) observe(pipeline string, stage store.Stage, stats Stats, err error) {
	s := string(stage)
	m.records.WithLabelValues(pipeline, s, "written").Add(float64(stats.Written))
	m.records.WithLabelValues(pipeline, s, "skipped").Add(float64(stats.Skipped))
	m.records.WithLabelValues(pipeline, s, "failed").Add(float64(stats.Failed))

	status := string(store.RunStatusComplete)
	if err != nil {
		status = string(store.RunStatusFailed)
	}
	m.runs.WithLabelValues(pipeline, s, status).Inc()
}
