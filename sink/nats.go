package sink

import (
	"context"

	"github.com/c360studio/semharvest/graph"
)

// NATS publishes each batch as a graph.UpdatePayload to a JetStream subject.
type NATS struct {
	publisher graph.StreamPublisher
	subject   string
	pipeline  string
}

// NewNATS returns a sink publishing to subject. An empty subject uses
// graph.UpdateSubject.
func NewNATS(publisher graph.StreamPublisher, subject, pipeline string) *NATS {
	if subject == "" {
		subject = graph.UpdateSubject
	}
	return &NATS{publisher: publisher, subject: subject, pipeline: pipeline}
}

// Send implements Sink.
func (n *NATS) Send(ctx context.Context, batch []string) error {
	if len(batch) == 0 {
		return nil
	}
	return graph.PublishUpdates(ctx, n.publisher, n.subject, n.pipeline, batch)
}
