package pipeline

import (
	"context"
	"io"

	"github.com/c360studio/semharvest/source"
	"github.com/c360studio/semharvest/store"
)

// ExtractJob describes one extract run.
type ExtractJob struct {
	Name      string
	Extractor source.Extractor
	// Output is the NDJSON artifact path.
	Output string
}

// Extract runs job into its output artifact. An existing output is left
// untouched and reported as cached.
func (r *Runner) Extract(ctx context.Context, job ExtractJob) (Stats, error) {
	if r.cached(store.StageExtract, job.Name, job.Output) {
		return Stats{Cached: true}, nil
	}

	run := r.startRun(ctx, job.Name, store.StageExtract, "", job.Output)
	var stats Stats
	err := r.artifacts.Write(job.Output, func(w io.Writer) error {
		var err error
		stats, err = r.ExtractTo(ctx, job, w)
		return err
	})
	r.finishRun(ctx, run, stats, err)
	return stats, stageError(store.StageExtract, job.Name, err)
}

// ExtractTo runs job and writes NDJSON to w.
func (r *Runner) ExtractTo(ctx context.Context, job ExtractJob, w io.Writer) (Stats, error) {
	var stats Stats
	nw := source.NewNDJSONWriter(w)
	err := job.Extractor.Extract(ctx, func(rec source.Record) error {
		stats.Records++
		if err := nw.Write(rec); err != nil {
			return err
		}
		stats.Written++
		return nil
	})
	return stats, err
}
