package updateapplier

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the update-applier output component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "update-applier",
		Factory:     NewComponent,
		Schema:      updateApplierSchema,
		Type:        "output",
		Protocol:    "sparql",
		Domain:      "graph",
		Description: "Applies SPARQL update batches from JetStream to a triplestore",
		Version:     "1.0.0",
	})
}
