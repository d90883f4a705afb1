package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/message"
)

// UpdateSubject is the default JetStream subject for update batches.
const UpdateSubject = "graph.update.sparql"

// StreamPublisher publishes to a JetStream subject. *natsclient.Client
// satisfies it.
type StreamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// PublishUpdates wraps a batch of update groups in a base message and
// publishes it to subject.
func PublishUpdates(ctx context.Context, nc StreamPublisher, subject, pipeline string, groups []string) error {
	if nc == nil {
		return fmt.Errorf("publish updates: no NATS client")
	}
	if subject == "" {
		subject = UpdateSubject
	}

	payload := &UpdatePayload{
		Pipeline:  pipeline,
		Groups:    groups,
		CreatedAt: time.Now().UTC(),
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("validate update payload: %w", err)
	}

	msg := message.NewBaseMessage(UpdateType, payload, "semharvest")
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal update message: %w", err)
	}

	if err := nc.PublishToStream(ctx, subject, data); err != nil {
		return fmt.Errorf("publish update batch: %w", err)
	}
	return nil
}
