package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/c360studio/semharvest/sink"
	"github.com/c360studio/semharvest/sparql"
	"github.com/c360studio/semharvest/store"
)

// LoadJob describes one load run.
type LoadJob struct {
	Name string
	// Input is the update text artifact to replay.
	Input string
	Sink  sink.Sink
	Batch sink.BatcherConfig
}

// Load replays the update groups of the job's input artifact into its sink.
func (r *Runner) Load(ctx context.Context, job LoadJob) (Stats, error) {
	in, err := r.artifacts.Open(job.Input)
	if err != nil {
		return Stats{}, stageError(store.StageLoad, job.Name, err)
	}
	defer in.Close()

	run := r.startRun(ctx, job.Name, store.StageLoad, job.Input, "")
	stats, err := r.LoadStream(ctx, job, in)
	r.finishRun(ctx, run, stats, err)
	return stats, stageError(store.StageLoad, job.Name, err)
}

// LoadStream reads update groups from in and sends them through a Batcher.
// The Batcher is always closed, so every queued group is flushed before
// LoadStream returns; the first read or flush error is returned.
func (r *Runner) LoadStream(ctx context.Context, job LoadJob, in io.Reader) (Stats, error) {
	opts := []sink.BatcherOption{sink.WithBatcherLogger(r.logger.With("pipeline", job.Name))}
	if r.registry != nil {
		opts = append(opts, sink.WithMetricsRegistry(r.registry))
	}
	b, err := sink.NewBatcher(job.Sink, job.Batch, opts...)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	var readErr error
	for group, err := range sparql.All(in) {
		if err != nil {
			if errors.Is(err, sparql.ErrUnterminated) {
				r.logger.Error("Update text ends with an unterminated statement",
					"pipeline", job.Name,
					"statement", group.Text())
			}
			readErr = fmt.Errorf("read updates: %w", err)
			break
		}
		stats.Records++
		if err := b.Add(ctx, group.Text()); err != nil {
			readErr = err
			break
		}
		stats.Written++
		stats.Statements += group.Len()
	}

	closeErr := b.Close(context.WithoutCancel(ctx))
	if readErr != nil {
		return stats, readErr
	}
	if closeErr != nil {
		return stats, fmt.Errorf("flush updates: %w", closeErr)
	}
	return stats, nil
}
