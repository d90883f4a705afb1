// Package pipeline drives the extract, transform and load stages.
//
// Extract writes source records as NDJSON. Transform maps each NDJSON record,
// compiles it and writes the rendered update text. Load reads update text
// back in delete/insert groups and hands them to a batching sink. Every file
// output goes through the artifact store, so an existing output marks a
// completed stage and a failed stage leaves nothing behind.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/c360studio/semharvest/artifact"
	"github.com/c360studio/semharvest/store"
	"github.com/c360studio/semstreams/metric"
)

// Stats summarizes a stage run.
type Stats struct {
	// Records is the number of input records read.
	Records int
	// Written is the number of records or groups written to the output.
	Written int
	// Skipped counts records a mapper asked to skip.
	Skipped int
	// Failed counts records dropped because of an error.
	Failed int
	// Statements counts rendered statements or loaded groups.
	Statements int
	// Cached is set when the output already existed and the stage did nothing.
	Cached bool
}

// RunRecorder persists run records. store.RunStore implements it.
type RunRecorder interface {
	Save(ctx context.Context, r *store.Run) error
}

// Runner executes pipeline stages.
type Runner struct {
	artifacts *artifact.Store
	runs      RunRecorder
	registry  *metric.MetricsRegistry
	metrics   *runnerMetrics
	workers   int
	queueSize int
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the number of transform workers.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithQueueSize bounds the records waiting for a transform worker.
func WithQueueSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithRunRecorder records every stage run.
func WithRunRecorder(rec RunRecorder) Option {
	return func(r *Runner) {
		r.runs = rec
	}
}

// WithMetricsRegistry registers pipeline counters with registry.
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(r *Runner) {
		r.registry = registry
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner returns a Runner writing artifacts to artifacts.
func NewRunner(artifacts *artifact.Store, opts ...Option) *Runner {
	r := &Runner{
		artifacts: artifacts,
		workers:   runtime.NumCPU(),
		queueSize: 64,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.metrics = newRunnerMetrics(r.registry, r.logger)
	return r
}

// Artifacts returns the artifact store.
func (r *Runner) Artifacts() *artifact.Store { return r.artifacts }

// cached reports whether output is already complete and logs the skip.
func (r *Runner) cached(stage store.Stage, name, output string) bool {
	if output == "" || !r.artifacts.Done(output) {
		return false
	}
	r.logger.Info("Output exists, skipping stage",
		"stage", stage,
		"pipeline", name,
		"output", output)
	return true
}

// startRun records the start of a stage. Ledger failures are logged and do
// not fail the stage.
func (r *Runner) startRun(ctx context.Context, name string, stage store.Stage, input, output string) *store.Run {
	run := store.NewRun(name, stage)
	run.Input, run.Output = input, output
	if r.runs != nil {
		if err := r.runs.Save(ctx, run); err != nil {
			r.logger.Warn("Failed to record run start", "run", run.ID, "error", err)
		}
	}
	return run
}

func (r *Runner) finishRun(ctx context.Context, run *store.Run, stats Stats, err error) {
	run.Records, run.Skipped, run.Failed = stats.Records, stats.Skipped, stats.Failed
	run.Finish(err)
	r.metrics.observe(run.Pipeline, run.Stage, stats, err)

	if r.runs != nil {
		// The stage context may already be cancelled.
		if saveErr := r.runs.Save(context.WithoutCancel(ctx), run); saveErr != nil {
			r.logger.Warn("Failed to record run result", "run", run.ID, "error", saveErr)
		}
	}

	attrs := []any{
		"stage", run.Stage,
		"pipeline", run.Pipeline,
		"records", stats.Records,
		"written", stats.Written,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	}
	if err != nil {
		r.logger.Error("Stage failed", append(attrs, "error", err)...)
		return
	}
	r.logger.Info("Stage complete", attrs...)
}

func stageError(stage store.Stage, name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s: %w", stage, name, err)
}
