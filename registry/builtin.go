package registry

import (
	"fmt"
	"os"

	"github.com/c360studio/semharvest/config"
	"github.com/c360studio/semharvest/extract"
	"github.com/c360studio/semharvest/sink"
	"github.com/c360studio/semharvest/source"
	"github.com/c360studio/semharvest/transforms"
)

// Loader names.
const (
	LoaderSPARQL = "sparql"
	LoaderNATS   = "nats"
	LoaderStdout = "stdout"
)

// defaultItems selects the elements of a top-level array response.
const defaultItems = "$[*]"

var transformDescriptions = map[string]string{
	transforms.NamePeople:        "Person profiles with contact cards, positions and advisees",
	transforms.NameOrganizations: "Organizations with aliases, types and parent units",
	transforms.NameGrants:        "Grants with sponsors, dates and investigator roles",
	transforms.NamePublications:  "Publications with authorships and subject topics",
}

// RegisterBuiltins registers the built-in transforms and loaders, and one
// extractor per configured source.
func RegisterBuiltins(r *Registry, cfg *config.Config) error {
	if r == nil {
		return fmt.Errorf("registry cannot be nil")
	}

	for name, ctor := range transforms.Constructors() {
		ctor := ctor
		if err := r.Register(Registration{
			Name:        name,
			Kind:        KindTransformer,
			Description: transformDescriptions[name],
			Transformer: func(env Env) (*transforms.Transform, error) {
				return ctor(env.Deps)
			},
		}); err != nil {
			return err
		}
	}

	if cfg != nil {
		for name, src := range cfg.Sources {
			if err := r.Register(sourceRegistration(name, src)); err != nil {
				return err
			}
		}
	}

	loaders := []Registration{
		{
			Name:        LoaderSPARQL,
			Kind:        KindLoader,
			Description: "POST update batches to the configured SPARQL endpoint",
			Loader:      newSPARQLLoader,
		},
		{
			Name:        LoaderNATS,
			Kind:        KindLoader,
			Description: "Publish update batches to a JetStream subject",
			Loader:      newNATSLoader,
		},
		{
			Name:        LoaderStdout,
			Kind:        KindLoader,
			Description: "Write update batches to standard output",
			Loader:      newStdoutLoader,
		},
	}
	for _, reg := range loaders {
		if err := r.Register(reg); err != nil {
			return err
		}
	}
	return nil
}

func sourceRegistration(name string, src config.SourceConfig) Registration {
	desc := "File " + src.Path
	if src.URL != "" {
		desc = "API " + src.URL
	}
	return Registration{
		Name:        name,
		Kind:        KindExtractor,
		Description: desc,
		Extractor: func(env Env) (source.Extractor, error) {
			return newSource(name, src, env)
		},
	}
}

func newSource(name string, src config.SourceConfig, env Env) (source.Extractor, error) {
	logger := env.logger().With("source", name)

	if src.Path != "" {
		opts := []source.FileOption{source.WithFileLogger(logger)}
		if src.Items != "" {
			items, err := extract.Compile(src.Items)
			if err != nil {
				return nil, fmt.Errorf("source %s items: %w", name, err)
			}
			opts = append(opts, source.WithItems(items))
		}
		return source.NewFile(src.Path, opts...), nil
	}

	expr := src.Items
	if expr == "" {
		expr = defaultItems
	}
	items, err := extract.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("source %s items: %w", name, err)
	}

	opts := []source.HTTPOption{source.WithLogger(logger)}
	for k, v := range src.Headers {
		opts = append(opts, source.WithHeader(k, v))
	}
	if src.Next != "" {
		next, err := extract.Compile(src.Next)
		if err != nil {
			return nil, fmt.Errorf("source %s next: %w", name, err)
		}
		opts = append(opts, source.WithNext(next))
	} else if src.PageParam != "" || src.SizeParam != "" || src.PageSize > 0 {
		pageParam, sizeParam, pageSize := src.PageParam, src.SizeParam, src.PageSize
		if pageParam == "" {
			pageParam = "page"
		}
		if pageSize <= 0 {
			pageSize = 100
		}
		opts = append(opts, source.WithPaging(pageParam, sizeParam, pageSize, 1))
	}
	if src.MaxPages > 0 {
		opts = append(opts, source.WithMaxPages(src.MaxPages))
	}
	if src.RateLimit > 0 {
		opts = append(opts, source.WithRateLimit(src.RateLimit, 1))
	}
	return source.NewHTTP(src.URL, items, opts...), nil
}

func newSPARQLLoader(env Env) (sink.Sink, error) {
	if env.Config == nil || env.Config.SPARQL.Endpoint == "" {
		return nil, fmt.Errorf("loader %s: sparql.endpoint is not configured", LoaderSPARQL)
	}
	opts := []sink.SPARQLOption{sink.WithLogger(env.logger())}
	if env.Config.SPARQL.Timeout > 0 {
		opts = append(opts, sink.WithTimeout(env.Config.SPARQL.Timeout))
	}
	return sink.NewSPARQL(env.Config.SPARQL.Endpoint, opts...), nil
}

func newNATSLoader(env Env) (sink.Sink, error) {
	if env.Publisher == nil {
		return nil, fmt.Errorf("loader %s: nats.url is not configured", LoaderNATS)
	}
	subject := ""
	if env.Config != nil {
		subject = env.Config.NATS.Subject
	}
	return sink.NewNATS(env.Publisher, subject, "semharvest"), nil
}

func newStdoutLoader(env Env) (sink.Sink, error) {
	w := env.Stdout
	if w == nil {
		w = os.Stdout
	}
	return sink.NewFile(w), nil
}
