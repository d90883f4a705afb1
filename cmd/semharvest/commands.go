package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c360studio/semharvest/artifact"
	"github.com/c360studio/semharvest/pipeline"
	"github.com/c360studio/semharvest/registry"
	"github.com/c360studio/semharvest/sink"
)

// stdio is the file name that selects standard input or output.
const stdio = "-"

// runStage builds the App, runs fn under a signal-aware context and
// releases the App afterwards.
func runStage(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, app *App) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(opts, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	return fn(ctx, app)
}

// callGroup returns "<stage> call <NAME>" nested under a stage command.
func callGroup(stage, short string, call *cobra.Command) *cobra.Command {
	group := &cobra.Command{
		Use:   stage,
		Short: short,
	}
	group.AddCommand(call)
	return group
}

func extractCmd(opts *globalOptions) *cobra.Command {
	var output string

	call := &cobra.Command{
		Use:   "call <NAME>",
		Short: "Run the extractor registered as NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return runStage(cmd, opts, func(ctx context.Context, app *App) error {
				ex, err := app.registry.Extractor(name, app.env)
				if err != nil {
					return err
				}
				if err := app.attachNATS(ctx); err != nil {
					return err
				}
				runner := app.runner()
				job := pipeline.ExtractJob{Name: name, Extractor: ex}

				if output == stdio {
					_, err := runner.ExtractTo(ctx, job, cmd.OutOrStdout())
					return err
				}
				job.Output = outputPath(app.artifacts, output, name, artifact.ExtNDJSON)
				stats, err := runner.Extract(ctx, job)
				if err != nil {
					return err
				}
				printStats(cmd.ErrOrStderr(), name, job.Output, stats)
				return nil
			})
		},
	}
	call.Flags().StringVarP(&output, "output", "o", "", "Output file (default <output_dir>/<NAME>.ndjson, - for stdout)")

	return callGroup("extract", "Extract source records as NDJSON", call)
}

func transformCmd(opts *globalOptions) *cobra.Command {
	var input, output, format string

	call := &cobra.Command{
		Use:   "call <NAME>",
		Short: "Map NDJSON records with the transform registered as NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			f, err := pipeline.ParseFormat(format)
			if err != nil {
				return err
			}
			return runStage(cmd, opts, func(ctx context.Context, app *App) error {
				if err := app.attachTransformDeps(); err != nil {
					return err
				}
				tr, err := app.registry.Transformer(name, app.env)
				if err != nil {
					return err
				}
				if err := app.attachNATS(ctx); err != nil {
					return err
				}
				runner := app.runner()
				job := pipeline.TransformJob{
					Name:   name,
					Graph:  tr.Graph,
					Mapper: tr,
					Format: f,
					Input:  input,
				}

				if input == stdio || output == stdio {
					return transformStreams(ctx, cmd, runner, job, output)
				}
				job.Output = outputPath(app.artifacts, output, name, formatExt(f))
				stats, err := runner.Transform(ctx, job)
				if err != nil {
					return err
				}
				printStats(cmd.ErrOrStderr(), name, job.Output, stats)
				return nil
			})
		},
	}
	call.Flags().StringVarP(&input, "input", "i", "", "Input NDJSON file (- for stdin)")
	call.Flags().StringVarP(&output, "output", "o", "", "Output file (default <output_dir>/<NAME>.<ext>, - for stdout)")
	call.Flags().StringVar(&format, "format", string(pipeline.FormatSPARQL), "Output format (sparql, jsonld, nquads)")
	_ = call.MarkFlagRequired("input")

	return callGroup("transform", "Map records into graph updates", call)
}

// transformStreams runs a transform when either end is standard I/O. Such
// runs bypass checkpointing.
func transformStreams(ctx context.Context, cmd *cobra.Command, runner *pipeline.Runner, job pipeline.TransformJob, output string) error {
	var in io.Reader = cmd.InOrStdin()
	if job.Input != stdio {
		f, err := os.Open(job.Input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	if output == stdio {
		_, err := runner.TransformStream(ctx, job, in, cmd.OutOrStdout())
		return err
	}

	path := outputPath(runner.Artifacts(), output, job.Name, formatExt(job.Format))
	var stats pipeline.Stats
	err := runner.Artifacts().Write(path, func(w io.Writer) error {
		var err error
		stats, err = runner.TransformStream(ctx, job, in, w)
		return err
	})
	if err != nil {
		return err
	}
	printStats(cmd.ErrOrStderr(), job.Name, path, stats)
	return nil
}

func loadCmd(opts *globalOptions) *cobra.Command {
	var input string

	call := &cobra.Command{
		Use:   "call <NAME>",
		Short: "Replay SPARQL updates through the loader registered as NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return runStage(cmd, opts, func(ctx context.Context, app *App) error {
				if err := app.attachNATS(ctx); err != nil {
					return err
				}
				s, err := app.registry.Loader(name, app.env)
				if err != nil {
					return err
				}

				batch := sink.DefaultBatcherConfig()
				batch.BatchSize = app.cfg.SPARQL.BatchSize
				batch.Workers = app.cfg.SPARQL.FlushWorkers
				job := pipeline.LoadJob{Name: name, Input: input, Sink: s, Batch: batch}

				runner := app.runner()
				var stats pipeline.Stats
				if input == stdio {
					stats, err = runner.LoadStream(ctx, job, cmd.InOrStdin())
				} else {
					stats, err = runner.Load(ctx, job)
				}
				if err != nil {
					return err
				}
				printStats(cmd.ErrOrStderr(), name, input, stats)
				return nil
			})
		},
	}
	call.Flags().StringVarP(&input, "input", "i", "", "Input SPARQL update file (- for stdin)")
	_ = call.MarkFlagRequired("input")

	return callGroup("load", "Replay graph updates into a store", call)
}

func listCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered extractors, transforms and loaders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, opts, func(_ context.Context, app *App) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, kind := range []registry.Kind{registry.KindExtractor, registry.KindTransformer, registry.KindLoader} {
					for _, reg := range app.registry.List(kind) {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", kind, reg.Name, reg.Description)
					}
				}
				return tw.Flush()
			})
		},
	}
}

// outputPath resolves the -o flag against the artifact store, defaulting to
// the stage name.
func outputPath(store *artifact.Store, output, name, ext string) string {
	if output == "" {
		output = name
	}
	return store.Path(output, ext)
}

func formatExt(f pipeline.Format) string {
	switch f {
	case pipeline.FormatJSONLD:
		return artifact.ExtJSONLD
	case pipeline.FormatNQuads:
		return artifact.ExtNQuads
	default:
		return artifact.ExtSPARQL
	}
}

func printStats(w io.Writer, name, path string, stats pipeline.Stats) {
	if stats.Cached {
		fmt.Fprintf(w, "%s: %s exists, skipped (use --force to rebuild)\n", name, path)
		return
	}
	fmt.Fprintf(w, "%s: %d records, %d written, %d skipped, %d failed, %d statements (%s)\n",
		name, stats.Records, stats.Written, stats.Skipped, stats.Failed, stats.Statements, path)
}
