package graph

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "graph",
		Category:    "update",
		Version:     "v1",
		Description: "Batch of SPARQL update groups for a triplestore writer",
		Factory:     func() any { return &UpdatePayload{} },
	})
	if err != nil {
		panic("failed to register UpdatePayload: " + err.Error())
	}
}

// UpdateType is the message type for SPARQL update batches.
var UpdateType = message.Type{Domain: "graph", Category: "update", Version: "v1"}

// UpdatePayload carries serialized update groups. Each entry is one atomic
// group and must be applied in order.
type UpdatePayload struct {
	Pipeline  string    `json:"pipeline"`
	Groups    []string  `json:"groups"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *UpdatePayload) Schema() message.Type { return UpdateType }

func (p *UpdatePayload) Validate() error {
	if len(p.Groups) == 0 {
		return errors.New("update batch has no groups")
	}
	for _, g := range p.Groups {
		if g == "" {
			return errors.New("update batch contains an empty group")
		}
	}
	return nil
}

func (p *UpdatePayload) MarshalJSON() ([]byte, error) {
	type Alias UpdatePayload
	return json.Marshal((*Alias)(p))
}

func (p *UpdatePayload) UnmarshalJSON(data []byte) error {
	type Alias UpdatePayload
	return json.Unmarshal(data, (*Alias)(p))
}
