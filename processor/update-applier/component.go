// Package updateapplier provides a streaming output component that consumes
// SPARQL update batches from JetStream and applies them to a triplestore.
//
// Batches are applied in delivery order, one message at a time. A batch that
// fails with a transient error is redelivered; any other failure terminates
// the message so one bad batch cannot block the stream.
package updateapplier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/sink"
	"github.com/c360studio/semstreams/component"
	errs "github.com/c360studio/semstreams/pkg/errs"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"
)

// Component implements the update-applier output processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	sink       sink.Sink
	logger     *slog.Logger

	inputSubject string
	inputStream  string

	// Lifecycle
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc

	// Metrics
	batchesApplied atomic.Int64
	groupsApplied  atomic.Int64
	applyErrors    atomic.Int64
	decodeErrors   atomic.Int64
	lastActivityMu sync.RWMutex
	lastActivity   time.Time
}

// NewComponent creates a new update-applier component writing to the
// configured SPARQL endpoint.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	config := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := deps.GetLogger()
	s := sink.NewSPARQL(config.Endpoint,
		sink.WithTimeout(config.GetTimeout()),
		sink.WithLogger(logger))
	return newComponent(config, deps.NATSClient, s, logger), nil
}

func newComponent(config Config, nc *natsclient.Client, s sink.Sink, logger *slog.Logger) *Component {
	inputSubject := graph.UpdateSubject
	inputStream := graph.UpdateStream
	if config.Ports != nil && len(config.Ports.Inputs) > 0 {
		inputSubject = config.Ports.Inputs[0].Subject
		inputStream = config.Ports.Inputs[0].StreamName
	}

	return &Component{
		name:         "update-applier",
		config:       config,
		natsClient:   nc,
		sink:         s,
		logger:       logger,
		inputSubject: inputSubject,
		inputStream:  inputStream,
	}
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	return nil
}

// Start begins consuming update batches.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	c.running = true
	c.startTime = time.Now()

	consumeCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	consumerCfg := natsclient.StreamConsumerConfig{
		StreamName:    c.inputStream,
		ConsumerName:  c.config.GetConsumerName(),
		FilterSubject: c.inputSubject,
		DeliverPolicy: "all",
		AckPolicy:     "explicit",
		MaxDeliver:    c.config.GetMaxDeliver(),
		AckWait:       2 * c.config.GetTimeout(),
	}

	err := c.natsClient.ConsumeStreamWithConfig(consumeCtx, consumerCfg, c.handleMessage)
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("start consumer: %w", err)
	}

	c.logger.Info("update-applier started",
		"endpoint", c.config.Endpoint,
		"stream", c.inputStream,
		"input", c.inputSubject)

	return nil
}

// handleMessage applies one update batch and settles the message.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	groups, err := c.apply(ctx, msg.Data())
	switch {
	case err == nil:
		_ = msg.Ack()
		c.logger.Debug("Applied update batch", "subject", msg.Subject(), "groups", groups)
	case errs.IsTransient(err):
		c.logger.Warn("Update batch failed, will be redelivered", "subject", msg.Subject(), "error", err)
		_ = msg.Nak()
	default:
		c.logger.Error("Update batch rejected", "subject", msg.Subject(), "error", err)
		_ = msg.Term()
	}
}

// apply decodes one message and sends its groups to the sink. It returns
// the number of groups applied.
func (c *Component) apply(ctx context.Context, data []byte) (int, error) {
	var baseMsg message.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		c.decodeErrors.Add(1)
		return 0, errs.WrapInvalid(err, "update-applier", "apply", "unmarshal base message")
	}

	payload, ok := baseMsg.Payload().(*graph.UpdatePayload)
	if !ok {
		c.decodeErrors.Add(1)
		return 0, errs.WrapInvalid(fmt.Errorf("unexpected payload %s", baseMsg.Type()),
			"update-applier", "apply", "decode update payload")
	}
	if err := payload.Validate(); err != nil {
		c.decodeErrors.Add(1)
		return 0, errs.WrapInvalid(err, "update-applier", "apply", "validate update payload")
	}

	if err := c.sink.Send(ctx, payload.Groups); err != nil {
		c.applyErrors.Add(1)
		return 0, err
	}

	c.batchesApplied.Add(1)
	c.groupsApplied.Add(int64(len(payload.Groups)))
	c.updateLastActivity()
	return len(payload.Groups), nil
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.running = false
	c.logger.Info("update-applier stopped",
		"batches_applied", c.batchesApplied.Load(),
		"groups_applied", c.groupsApplied.Load(),
		"apply_errors", c.applyErrors.Load(),
		"decode_errors", c.decodeErrors.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "update-applier",
		Type:        "output",
		Description: "Applies SPARQL update batches from JetStream to a triplestore",
		Version:     "1.0.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionInput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.JetStreamPort{
				StreamName: portDef.StreamName,
				Subjects:   []string{portDef.Subject},
			},
		}
	}
	return ports
}

// OutputPorts returns no ports; batches leave over HTTP.
func (c *Component) OutputPorts() []component.Port {
	return []component.Port{}
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return updateApplierSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.applyErrors.Load() + c.decodeErrors.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		LastActivity: c.getLastActivity(),
	}
}

func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}
