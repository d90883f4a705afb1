package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/jsonld"
	"github.com/c360studio/semharvest/mapping"
	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/source"
	"github.com/c360studio/semharvest/sparql"
	"github.com/c360studio/semharvest/store"
	"golang.org/x/sync/errgroup"
)

// Format is a transform output format.
type Format string

const (
	FormatSPARQL Format = "sparql"
	FormatJSONLD Format = "jsonld"
	FormatNQuads Format = "nquads"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name. Empty means FormatSPARQL.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatSPARQL, nil
	case FormatSPARQL, FormatJSONLD, FormatNQuads:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Mapper maps one source record to a mapped record.
type Mapper interface {
	Map(ctx context.Context, src mapping.Source) (record.Record, error)
}

// TransformJob describes one transform run.
type TransformJob struct {
	Name string
	// Graph is the default named graph for records without @graph.
	Graph  string
	Mapper Mapper
	Format Format
	// Input is the NDJSON artifact to read.
	Input string
	// Output is the artifact path to write.
	Output string
}

// Transform runs job from its input artifact into its output artifact. A
// failed run removes the partial output.
func (r *Runner) Transform(ctx context.Context, job TransformJob) (Stats, error) {
	if r.cached(store.StageTransform, job.Name, job.Output) {
		return Stats{Cached: true}, nil
	}

	in, err := r.artifacts.Open(job.Input)
	if err != nil {
		return Stats{}, stageError(store.StageTransform, job.Name, err)
	}
	defer in.Close()

	run := r.startRun(ctx, job.Name, store.StageTransform, job.Input, job.Output)
	var stats Stats
	err = r.artifacts.Write(job.Output, func(w io.Writer) error {
		var err error
		stats, err = r.TransformStream(ctx, job, in, w)
		return err
	})
	r.finishRun(ctx, run, stats, err)
	return stats, stageError(store.StageTransform, job.Name, err)
}

type transformItem struct {
	seq  int
	line int
	rec  source.Record
}

type transformResult struct {
	seq        int
	text       string
	statements int
	skipped    bool
	failed     bool
}

// TransformStream maps every NDJSON record of in and writes the rendered
// output to w. Records are processed by a bounded pool of workers; output
// keeps input order and each record's text is written as one unit.
//
// Skipped records are logged at debug. Records whose mapping or compilation
// fails are logged with their line number and dropped.
func (r *Runner) TransformStream(ctx context.Context, job TransformJob, in io.Reader, w io.Writer) (Stats, error) {
	format, err := ParseFormat(string(job.Format))
	if err != nil {
		return Stats{}, err
	}
	if job.Mapper == nil {
		return Stats{}, errors.New("transform job has no mapper")
	}

	logger := r.logger.With("pipeline", job.Name)
	items := make(chan transformItem, r.queueSize)
	results := make(chan transformResult, r.queueSize)

	g, gctx := errgroup.WithContext(ctx)

	var stats Stats
	g.Go(func() error {
		defer close(items)
		return source.ReadNDJSON(gctx, in, logger, func(line int, rec source.Record) error {
			item := transformItem{seq: stats.Records, line: line, rec: rec}
			stats.Records++
			select {
			case items <- item:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var wg sync.WaitGroup
	for range r.workers {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for item := range items {
				res, err := r.transformOne(gctx, job, format, item)
				if err != nil {
					return err
				}
				select {
				case results <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var out Stats
	g.Go(func() error {
		pending := make(map[int]transformResult)
		next := 0
		for res := range results {
			pending[res.seq] = res
			for {
				res, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++

				switch {
				case res.skipped:
					out.Skipped++
				case res.failed:
					out.Failed++
				case res.text != "":
					if _, err := io.WriteString(w, res.text); err != nil {
						return fmt.Errorf("write output: %w", err)
					}
					out.Written++
					out.Statements += res.statements
				}
			}
		}
		return nil
	})

	err = g.Wait()
	out.Records = stats.Records
	return out, err
}

// transformOne maps, compiles and renders one record. Only cancellation is
// returned as an error; record-level failures are reported in the result.
func (r *Runner) transformOne(ctx context.Context, job TransformJob, format Format, item transformItem) (transformResult, error) {
	res := transformResult{seq: item.seq}

	rec, err := job.Mapper.Map(ctx, item.rec)
	switch {
	case mapping.IsSkip(err):
		r.logger.Debug("Record skipped", "pipeline", job.Name, "line", item.line, "reason", err)
		res.skipped = true
		return res, nil
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		r.logger.Warn("Dropping record after mapping error", "pipeline", job.Name, "line", item.line, "error", err)
		res.failed = true
		return res, nil
	}

	stmts, err := graph.Compile(rec, job.Graph)
	if err == nil {
		res.statements = len(stmts)
		res.text, err = render(format, stmts)
	}
	if err != nil {
		r.logger.Warn("Dropping record after compile error", "pipeline", job.Name, "line", item.line, "error", err)
		res.failed = true
		res.text = ""
	}
	return res, nil
}

func render(format Format, stmts []graph.Statement) (string, error) {
	if len(stmts) == 0 {
		return "", nil
	}
	switch format {
	case FormatJSONLD:
		doc, err := jsonld.FromStatements(stmts)
		if err != nil {
			return "", err
		}
		compacted, err := jsonld.Compact(doc)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(compacted)
		if err != nil {
			return "", fmt.Errorf("encode JSON-LD: %w", err)
		}
		return string(data) + "\n", nil
	case FormatNQuads:
		doc, err := jsonld.FromStatements(stmts)
		if err != nil {
			return "", err
		}
		return jsonld.ToNQuads(doc)
	default:
		return sparql.Serialize(stmts)
	}
}
