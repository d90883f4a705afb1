package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/c360studio/semstreams/metric"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/semharvest/artifact"
	"github.com/c360studio/semharvest/config"
	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/pipeline"
	"github.com/c360studio/semharvest/registry"
	"github.com/c360studio/semharvest/resolver"
	"github.com/c360studio/semharvest/store"
	"github.com/c360studio/semharvest/transforms"
	"github.com/c360studio/semharvest/translation"
)

// App wires the configured collaborators of one command invocation.
type App struct {
	cfg      *config.Config
	opts     *globalOptions
	logger   *slog.Logger
	metrics  *metric.MetricsRegistry
	registry *registry.Registry
	env      registry.Env

	artifacts *artifact.Store
	runs      pipeline.RunRecorder

	natsClient *natsclient.Client
	cache      *resolver.Cached
}

// newApp loads configuration and registers the built-in components. Network
// collaborators are attached by the stage that needs them.
func newApp(opts *globalOptions, stdout io.Writer) (*App, error) {
	logger := slog.Default()

	cfg, err := config.NewLoader(logger).Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	reg := registry.New()
	if err := registry.RegisterBuiltins(reg, cfg); err != nil {
		return nil, fmt.Errorf("register components: %w", err)
	}

	metricsRegistry := metric.NewMetricsRegistry()
	artifacts := artifact.NewStore(cfg.Pipeline.OutputDir,
		artifact.WithForce(opts.force),
		artifact.WithLogger(logger))

	return &App{
		cfg:       cfg,
		opts:      opts,
		logger:    logger,
		metrics:   metricsRegistry,
		registry:  reg,
		artifacts: artifacts,
		env: registry.Env{
			Config: cfg,
			Deps:   transforms.Deps{Graphs: cfg.Graphs, Logger: logger},
			Stdout: stdout,
			Logger: logger,
		},
	}, nil
}

// attachNATS connects to NATS when a URL is configured, records runs in the
// runs bucket and makes the nats loader available.
func (a *App) attachNATS(ctx context.Context) error {
	url := natsURL(a.cfg)
	if url == "" {
		a.logger.Debug("NATS not configured, run history disabled")
		return nil
	}

	client, err := connectToNATS(ctx, url, a.logger)
	if err != nil {
		return err
	}
	a.natsClient = client
	a.env.Publisher = client

	if err := graph.EnsureUpdateStream(ctx, client, a.cfg.NATS.Subject); err != nil {
		a.logger.Warn("Update stream unavailable, batches are not retained", "error", err)
	}

	js, err := client.JetStream()
	if err != nil {
		a.logger.Warn("JetStream unavailable, run history disabled", "error", err)
		return nil
	}
	runs, err := store.NewRunStore(ctx, js, store.WithRunStoreLogger(a.logger))
	if err != nil {
		a.logger.Warn("Failed to open run store, run history disabled", "error", err)
		return nil
	}
	a.runs = runs
	return nil
}

// runner builds the stage driver from the configured pipeline settings.
func (a *App) runner() *pipeline.Runner {
	opts := []pipeline.Option{
		pipeline.WithQueueSize(a.cfg.Pipeline.QueueSize),
		pipeline.WithMetricsRegistry(a.metrics),
		pipeline.WithLogger(a.logger),
	}
	if a.cfg.Pipeline.Workers > 0 {
		opts = append(opts, pipeline.WithWorkers(a.cfg.Pipeline.Workers))
	}
	if a.runs != nil {
		opts = append(opts, pipeline.WithRunRecorder(a.runs))
	}
	return pipeline.NewRunner(a.artifacts, opts...)
}

// attachTransformDeps loads translation tables and builds the entity resolver.
func (a *App) attachTransformDeps() error {
	tables, err := translation.LoadSet(a.cfg.Translations, a.logger)
	if err != nil {
		return fmt.Errorf("load translation tables: %w", err)
	}
	a.env.Deps.Translations = tables

	rc := a.cfg.Resolver
	if rc.URL == "" {
		a.logger.Info("No resolver configured, related entities are always built")
		return nil
	}

	var r resolver.Resolver = resolver.NewHTTPClient(rc.URL,
		resolver.WithAPIKey(rc.APIKey),
		resolver.WithTimeout(rc.Timeout),
		resolver.WithLogger(a.logger))
	if rc.CacheSize > 0 {
		cached, err := resolver.NewCached(r, rc.CacheSize, resolver.WithCacheMetrics(a.metrics))
		if err != nil {
			return fmt.Errorf("create resolver cache: %w", err)
		}
		a.cache = cached
		r = cached
	}
	a.env.Deps.Resolver = r
	return nil
}

// Close releases connections and writes the metrics file if requested.
func (a *App) Close(ctx context.Context) {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("Failed to close resolver cache", "error", err)
		}
	}
	if a.natsClient != nil {
		if err := a.natsClient.Close(ctx); err != nil {
			a.logger.Warn("Failed to close NATS connection", "error", err)
		}
	}
	if a.opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.opts.metricsFile, a.metrics.PrometheusRegistry()); err != nil {
			a.logger.Warn("Failed to write metrics file", "path", a.opts.metricsFile, "error", err)
		}
	}
}

func natsURL(cfg *config.Config) string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}
	if envURL := os.Getenv("SEMHARVEST_NATS_URL"); envURL != "" {
		return envURL
	}
	return cfg.NATS.URL
}

func connectToNATS(ctx context.Context, url string, logger *slog.Logger) (*natsclient.Client, error) {
	logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithCircuitBreakerThreshold(20),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	logger.Info("Connected to NATS", "url", url)
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

Start a server, set NATS_URL, or remove nats.url from the config
to run without run history and the nats loader.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}
