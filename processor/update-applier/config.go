package updateapplier

import (
	"fmt"
	"reflect"
	"time"

	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semstreams/component"
)

// updateApplierSchema defines the configuration schema.
var updateApplierSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the update-applier component.
type Config struct {
	Ports        *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
	Endpoint     string                `json:"endpoint" schema:"type:string,description:SPARQL update endpoint URL,category:basic"`
	Timeout      string                `json:"timeout" schema:"type:string,description:Timeout per update request,category:advanced,default:60s"`
	ConsumerName string                `json:"consumer_name" schema:"type:string,description:Durable consumer name,category:advanced,default:update-applier"`
	MaxDeliver   int                   `json:"max_deliver" schema:"type:int,description:Delivery attempts per batch,category:advanced,default:5"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
	}
	if c.MaxDeliver < 0 {
		return fmt.Errorf("max_deliver must not be negative")
	}
	return nil
}

// GetTimeout returns the request timeout with a default fallback.
func (c *Config) GetTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return 60 * time.Second
}

// GetConsumerName returns the durable consumer name with a default fallback.
func (c *Config) GetConsumerName() string {
	if c.ConsumerName != "" {
		return c.ConsumerName
	}
	return "update-applier"
}

// GetMaxDeliver returns the delivery attempts with a default fallback.
func (c *Config) GetMaxDeliver() int {
	if c.MaxDeliver > 0 {
		return c.MaxDeliver
	}
	return 5
}

// DefaultConfig returns the default configuration for update-applier.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "updates_in",
					Type:        "jetstream",
					Subject:     graph.UpdateSubject,
					StreamName:  graph.UpdateStream,
					Required:    true,
					Description: "SPARQL update batches published by the load stage",
				},
			},
		},
		Timeout:      "60s",
		ConsumerName: "update-applier",
		MaxDeliver:   5,
	}
}
