package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/semstreams/metric"
	"github.com/c360studio/semstreams/pkg/worker"
)

// BatcherConfig sizes a Batcher.
type BatcherConfig struct {
	// BatchSize is the number of groups that triggers a flush.
	BatchSize int
	// Workers is the number of concurrent flushes.
	Workers int
	// QueueSize is the number of batches waiting for a worker.
	QueueSize int
	// StopTimeout bounds the wait for in-flight flushes on Close.
	StopTimeout time.Duration
}

// DefaultBatcherConfig returns the defaults used by the load stage.
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{
		BatchSize:   100,
		Workers:     2,
		QueueSize:   4,
		StopTimeout: 5 * time.Minute,
	}
}

// submitBackoff is the wait between attempts to queue a full batch.
const submitBackoff = 10 * time.Millisecond

// Batcher accumulates update groups and sends them to a Sink in batches on a
// bounded worker pool, so a slow flush does not block producers of the next
// batch. The first flush error is kept and returned by Flush and Close.
type Batcher struct {
	sink    Sink
	cfg     BatcherConfig
	pool    *worker.Pool[[]string]
	cancel  context.CancelFunc
	logger  *slog.Logger
	metrics *batcherMetrics

	// mu guards the buffer, the closed flag and the in-flight count, so a
	// batch is registered before Close can observe a drained batcher.
	mu       sync.Mutex
	buf      []string
	closed   bool
	inflight int
	drained  chan struct{}

	errMu sync.Mutex
	err   error
}

// BatcherOption configures a Batcher.
type BatcherOption func(*batcherOptions)

type batcherOptions struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// WithBatcherLogger sets the logger.
func WithBatcherLogger(logger *slog.Logger) BatcherOption {
	return func(o *batcherOptions) {
		o.logger = logger
	}
}

// WithMetricsRegistry exports batcher and pool metrics.
func WithMetricsRegistry(registry *metric.MetricsRegistry) BatcherOption {
	return func(o *batcherOptions) {
		o.registry = registry
	}
}

// NewBatcher starts a Batcher in front of s.
func NewBatcher(s Sink, cfg BatcherConfig, opts ...BatcherOption) (*Batcher, error) {
	if s == nil {
		return nil, errors.New("batcher requires a sink")
	}
	def := DefaultBatcherConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = def.StopTimeout
	}

	o := batcherOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Batcher{
		sink:    s,
		cfg:     cfg,
		logger:  o.logger,
		metrics: newBatcherMetrics(o.registry, o.logger),
		buf:     make([]string, 0, cfg.BatchSize),
		drained: make(chan struct{}),
	}
	close(b.drained)

	var poolOpts []worker.Option[[]string]
	if o.registry != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[[]string](o.registry, "sink_flush"))
	}
	b.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, b.flush, poolOpts...)

	// The pool runs on its own context so Close can drain queued batches
	// after the producer's context is gone.
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	if err := b.pool.Start(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("start flush pool: %w", err)
	}
	return b, nil
}

// Add queues one group. When the buffer reaches BatchSize it is handed to a
// flush worker. Add fails fast once a flush has failed.
func (b *Batcher) Add(ctx context.Context, group string) error {
	if err := b.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.buf = append(b.buf, group)
	var full []string
	if len(b.buf) >= b.cfg.BatchSize {
		full = b.buf
		b.buf = make([]string, 0, b.cfg.BatchSize)
		b.begin()
	}
	b.mu.Unlock()

	if full == nil {
		return nil
	}
	return b.submit(ctx, full)
}

// Flush hands any buffered groups to a worker and waits for every in-flight
// batch. It returns the first flush error seen so far.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	pending := b.buf
	b.buf = make([]string, 0, b.cfg.BatchSize)
	if len(pending) > 0 {
		b.begin()
	}
	drained := b.drained
	b.mu.Unlock()

	if len(pending) > 0 {
		if err := b.submit(ctx, pending); err != nil {
			return err
		}
	}

	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.Err()
}

// Close flushes the final, possibly undersized batch, waits for every flush
// and stops the pool. It returns the first flush error, if any.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return b.Err()
	}
	b.closed = true
	b.mu.Unlock()

	flushErr := b.Flush(ctx)

	stopErr := b.pool.Stop(b.cfg.StopTimeout)
	b.cancel()

	stats := b.pool.Stats()
	b.logger.Debug("Batcher closed",
		"batches", stats.Processed,
		"failed", stats.Failed)

	if flushErr != nil {
		return flushErr
	}
	if stopErr != nil {
		return fmt.Errorf("stop flush pool: %w", stopErr)
	}
	return nil
}

// Err returns the first flush error.
func (b *Batcher) Err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.err
}

// Stats returns the flush pool statistics.
func (b *Batcher) Stats() worker.PoolStats {
	return b.pool.Stats()
}

// begin registers one in-flight batch. The caller holds mu.
func (b *Batcher) begin() {
	if b.inflight == 0 {
		b.drained = make(chan struct{})
	}
	b.inflight++
}

// done releases one in-flight batch.
func (b *Batcher) done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight--
	if b.inflight == 0 {
		close(b.drained)
	}
}

// submit queues a batch registered with begin. It releases the batch itself
// when the batch never reaches a worker.
func (b *Batcher) submit(ctx context.Context, batch []string) error {
	for {
		err := b.pool.Submit(batch)
		if err == nil {
			return nil
		}
		if !errors.Is(err, worker.ErrQueueFull) {
			b.done()
			return fmt.Errorf("submit batch: %w", err)
		}

		timer := time.NewTimer(submitBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.done()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (b *Batcher) flush(ctx context.Context, batch []string) error {
	defer b.done()

	err := b.sink.Send(ctx, batch)
	if err != nil {
		b.metrics.failures.Inc()
		b.setErr(err)
		b.logger.Error("Batch flush failed",
			"groups", len(batch),
			"error", err)
		return err
	}

	b.metrics.batches.Inc()
	b.metrics.groups.Add(float64(len(batch)))
	return nil
}

func (b *Batcher) setErr(err error) {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	if b.err == nil {
		b.err = fmt.Errorf("flush batch: %w", err)
	}
}
