package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// BucketRuns is the KV bucket holding pipeline run records.
const BucketRuns = "SEMHARVEST_RUNS"

// Stage is a pipeline stage.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one execution of a pipeline stage.
type Run struct {
	ID          string     `json:"id"`
	Pipeline    string     `json:"pipeline"`
	Stage       Stage      `json:"stage"`
	Input       string     `json:"input,omitempty"`
	Output      string     `json:"output,omitempty"`
	Status      RunStatus  `json:"status"`
	Records     int        `json:"records"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewRun starts a run record with a fresh id.
func NewRun(pipeline string, stage Stage) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Pipeline:  pipeline,
		Stage:     stage,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Finish marks the run complete or failed.
func (r *Run) Finish(err error) {
	now := time.Now().UTC()
	r.CompletedAt = &now
	if err != nil {
		r.Status = RunStatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = RunStatusComplete
}

// Key returns the KV key of the run.
func (r *Run) Key() string {
	return fmt.Sprintf("%s.%s.%s", sanitizeKey(r.Pipeline), r.Stage, r.ID)
}

// RunStore keeps run records in a NATS KV bucket.
type RunStore struct {
	kv     jetstream.KeyValue
	logger *slog.Logger
}

// RunStoreOption configures a RunStore.
type RunStoreOption func(*RunStore)

// WithRunStoreLogger sets the logger for the run store.
func WithRunStoreLogger(logger *slog.Logger) RunStoreOption {
	return func(s *RunStore) {
		s.logger = logger
	}
}

// NewRunStore opens the runs bucket, creating it if needed.
func NewRunStore(ctx context.Context, js jetstream.JetStream, opts ...RunStoreOption) (*RunStore, error) {
	kv, err := getOrCreateBucket(ctx, js, BucketRuns)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	return newRunStore(kv, opts...), nil
}

func newRunStore(kv jetstream.KeyValue, opts ...RunStoreOption) *RunStore {
	s := &RunStore{kv: kv, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}

	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "semharvest pipeline runs",
		History:     5,
	})
}

// Save writes the run.
func (s *RunStore) Save(ctx context.Context, r *Run) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if _, err := s.kv.Put(ctx, r.Key(), data); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

// Get loads a run by key.
func (s *RunStore) Get(ctx context.Context, key string) (*Run, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var r Run
	if err := json.Unmarshal(entry.Value(), &r); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &r, nil
}

// List returns the runs of a pipeline, newest first. An empty pipeline lists all runs.
func (s *RunStore) List(ctx context.Context, pipeline string) ([]*Run, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	prefix := ""
	if pipeline != "" {
		prefix = sanitizeKey(pipeline) + "."
	}

	runs := make([]*Run, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		r, err := s.Get(ctx, key)
		if err != nil {
			// Keys can disappear between Keys and Get.
			if !errors.Is(err, ErrNotFound) {
				s.logger.Warn("Failed to get run", "key", key, "error", err)
			}
			continue
		}
		runs = append(runs, r)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

// sanitizeKey keeps KV keys to the characters NATS allows.
func sanitizeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
