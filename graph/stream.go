package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// UpdateStream is the JetStream stream capturing update batches.
const UpdateStream = "GRAPH_UPDATES"

// StreamManager looks up and creates streams. *natsclient.Client satisfies it.
type StreamManager interface {
	GetStream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// UpdateStreamConfig returns the stream definition for subject.
func UpdateStreamConfig(subject string) jetstream.StreamConfig {
	if subject == "" {
		subject = UpdateSubject
	}
	return jetstream.StreamConfig{
		Name:        UpdateStream,
		Description: "semharvest SPARQL update batches",
		Subjects:    []string{subject},
		Storage:     jetstream.FileStorage,
		MaxAge:      7 * 24 * time.Hour,
	}
}

// EnsureUpdateStream creates the update stream unless it already exists.
func EnsureUpdateStream(ctx context.Context, m StreamManager, subject string) error {
	if _, err := m.GetStream(ctx, UpdateStream); err == nil {
		return nil
	}
	if _, err := m.CreateStream(ctx, UpdateStreamConfig(subject)); err != nil {
		return fmt.Errorf("create stream %s: %w", UpdateStream, err)
	}
	return nil
}
