// Package registry maps the names used on the command line to the
// extractors, transforms and loaders that implement them.
package registry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/c360studio/semharvest/config"
	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/sink"
	"github.com/c360studio/semharvest/source"
	"github.com/c360studio/semharvest/transforms"
)

// Kind is the pipeline stage a registration serves.
type Kind string

const (
	KindExtractor   Kind = "extractor"
	KindTransformer Kind = "transformer"
	KindLoader      Kind = "loader"
)

var (
	// ErrNotRegistered is returned for a name with no registration.
	ErrNotRegistered = errors.New("not registered")
	// ErrDuplicate is returned when a name is registered twice for a kind.
	ErrDuplicate = errors.New("already registered")
)

// Env carries the collaborators factories build from.
type Env struct {
	Config *config.Config
	Deps   transforms.Deps
	// Publisher is nil when no NATS connection is configured.
	Publisher graph.StreamPublisher
	// Stdout receives the output of the stdout loader.
	Stdout io.Writer
	Logger *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

type (
	// ExtractorFactory builds an extractor.
	ExtractorFactory func(env Env) (source.Extractor, error)
	// TransformerFactory builds a transform.
	TransformerFactory func(env Env) (*transforms.Transform, error)
	// LoaderFactory builds an update sink.
	LoaderFactory func(env Env) (sink.Sink, error)
)

// Registration describes one named component.
type Registration struct {
	Name        string
	Kind        Kind
	Description string

	Extractor   ExtractorFactory
	Transformer TransformerFactory
	Loader      LoaderFactory
}

// Registry holds registrations by kind and name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	items map[Kind]map[string]Registration
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{items: make(map[Kind]map[string]Registration)}
}

// Register adds reg. The factory matching reg.Kind must be set.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("register %s: name is required", reg.Kind)
	}
	var ok bool
	switch reg.Kind {
	case KindExtractor:
		ok = reg.Extractor != nil
	case KindTransformer:
		ok = reg.Transformer != nil
	case KindLoader:
		ok = reg.Loader != nil
	default:
		return fmt.Errorf("register %s: unknown kind %q", reg.Name, reg.Kind)
	}
	if !ok {
		return fmt.Errorf("register %s %s: factory is required", reg.Kind, reg.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	byName := r.items[reg.Kind]
	if byName == nil {
		byName = make(map[string]Registration)
		r.items[reg.Kind] = byName
	}
	if _, exists := byName[reg.Name]; exists {
		return fmt.Errorf("%s %s: %w", reg.Kind, reg.Name, ErrDuplicate)
	}
	byName[reg.Name] = reg
	return nil
}

// Get returns the registration for kind and name.
func (r *Registry) Get(kind Kind, name string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.items[kind][name]
	if !ok {
		return Registration{}, fmt.Errorf("%s %q: %w", kind, name, ErrNotRegistered)
	}
	return reg, nil
}

// List returns the registrations of kind sorted by name.
func (r *Registry) List(kind Kind) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Registration, 0, len(r.items[kind]))
	for _, reg := range r.items[kind] {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Extractor builds the extractor registered as name.
func (r *Registry) Extractor(name string, env Env) (source.Extractor, error) {
	reg, err := r.Get(KindExtractor, name)
	if err != nil {
		return nil, err
	}
	return reg.Extractor(env)
}

// Transformer builds the transform registered as name.
func (r *Registry) Transformer(name string, env Env) (*transforms.Transform, error) {
	reg, err := r.Get(KindTransformer, name)
	if err != nil {
		return nil, err
	}
	return reg.Transformer(env)
}

// Loader builds the sink registered as name.
func (r *Registry) Loader(name string, env Env) (sink.Sink, error) {
	reg, err := r.Get(KindLoader, name)
	if err != nil {
		return nil, err
	}
	return reg.Loader(env)
}
