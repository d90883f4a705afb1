// Package config provides configuration loading and management for semharvest.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	ssconfig "github.com/c360studio/semstreams/config"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semharvest/vocabulary/harvest"
)

// Config represents the complete semharvest configuration
type Config struct {
	Pipeline     PipelineConfig          `yaml:"pipeline"`
	Resolver     ResolverConfig          `yaml:"resolver"`
	SPARQL       SPARQLConfig            `yaml:"sparql"`
	NATS         NATSConfig              `yaml:"nats"`
	Translations map[string]string       `yaml:"translations,omitempty"`
	Graphs       map[string]string       `yaml:"graphs,omitempty"`
	Sources      map[string]SourceConfig `yaml:"sources,omitempty"`
}

// PipelineConfig configures the stage drivers
type PipelineConfig struct {
	// Workers is the number of concurrent mapping goroutines (0 = NumCPU)
	Workers int `yaml:"workers"`
	// QueueSize bounds the records waiting for a worker
	QueueSize int `yaml:"queue_size"`
	// OutputDir is where artifacts with relative names are written
	OutputDir string `yaml:"output_dir"`
}

// ResolverConfig configures the entity resolution service
type ResolverConfig struct {
	// URL is the resolver base URL (empty = no resolution, always build)
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	// Timeout bounds a single lookup
	Timeout time.Duration `yaml:"timeout"`
	// CacheSize is the LRU size (0 disables caching)
	CacheSize int `yaml:"cache_size"`
}

// SPARQLConfig configures the update endpoint used by the load stage
type SPARQLConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	BatchSize    int           `yaml:"batch_size"`
	FlushWorkers int           `yaml:"flush_workers"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = run ledger and NATS sink disabled)
	URL string `yaml:"url"`
	// Subject is the JetStream subject update batches are published to
	Subject string `yaml:"subject"`
}

// SourceConfig configures the extractor registered under a source name.
// Exactly one of Path and URL is set.
type SourceConfig struct {
	Path string `yaml:"path,omitempty"`
	URL  string `yaml:"url,omitempty"`
	// Items is the JSONPath selecting records inside each document or page
	Items string `yaml:"items,omitempty"`
	// Next is the JSONPath of the next-page link; when empty, paging uses
	// PageParam/SizeParam
	Next      string            `yaml:"next,omitempty"`
	PageParam string            `yaml:"page_param,omitempty"`
	SizeParam string            `yaml:"size_param,omitempty"`
	PageSize  int               `yaml:"page_size,omitempty"`
	MaxPages  int               `yaml:"max_pages,omitempty"`
	RateLimit float64           `yaml:"rate_limit,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Workers:   0, // NumCPU
			QueueSize: 64,
			OutputDir: ".",
		},
		Resolver: ResolverConfig{
			Timeout:   10 * time.Second,
			CacheSize: 10000,
		},
		SPARQL: SPARQLConfig{
			Timeout:      60 * time.Second,
			BatchSize:    100,
			FlushWorkers: 2,
		},
		NATS: NATSConfig{
			Subject: "graph.update.sparql",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative")
	}
	if c.Pipeline.QueueSize < 1 {
		return fmt.Errorf("pipeline.queue_size must be positive")
	}
	if c.SPARQL.BatchSize < 1 {
		return fmt.Errorf("sparql.batch_size must be positive")
	}
	if c.SPARQL.FlushWorkers < 1 {
		return fmt.Errorf("sparql.flush_workers must be positive")
	}
	if c.Resolver.CacheSize < 0 {
		return fmt.Errorf("resolver.cache_size must not be negative")
	}
	for name, g := range c.Graphs {
		if _, err := harvest.GraphIRI(g); err != nil {
			return fmt.Errorf("graphs.%s: %w", name, err)
		}
	}
	for name, src := range c.Sources {
		if (src.Path == "") == (src.URL == "") {
			return fmt.Errorf("sources.%s: exactly one of path and url is required", name)
		}
		if src.Next != "" && src.PageParam != "" {
			return fmt.Errorf("sources.%s: next and page_param are exclusive", name)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file over the defaults.
// ${VAR} and ${VAR:-default} references are expanded before parsing.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := readFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// loadLayer parses a file into an empty Config so that Merge only sees the
// fields the file sets.
func loadLayer(path string) (*Config, error) {
	config := &Config{}
	if err := readFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

func readFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := ssconfig.ExpandEnvWithDefaults(string(data))
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Pipeline
	if other.Pipeline.Workers != 0 {
		c.Pipeline.Workers = other.Pipeline.Workers
	}
	if other.Pipeline.QueueSize != 0 {
		c.Pipeline.QueueSize = other.Pipeline.QueueSize
	}
	if other.Pipeline.OutputDir != "" {
		c.Pipeline.OutputDir = other.Pipeline.OutputDir
	}

	// Resolver
	if other.Resolver.URL != "" {
		c.Resolver.URL = other.Resolver.URL
	}
	if other.Resolver.APIKey != "" {
		c.Resolver.APIKey = other.Resolver.APIKey
	}
	if other.Resolver.Timeout != 0 {
		c.Resolver.Timeout = other.Resolver.Timeout
	}
	if other.Resolver.CacheSize != 0 {
		c.Resolver.CacheSize = other.Resolver.CacheSize
	}

	// SPARQL
	if other.SPARQL.Endpoint != "" {
		c.SPARQL.Endpoint = other.SPARQL.Endpoint
	}
	if other.SPARQL.Timeout != 0 {
		c.SPARQL.Timeout = other.SPARQL.Timeout
	}
	if other.SPARQL.BatchSize != 0 {
		c.SPARQL.BatchSize = other.SPARQL.BatchSize
	}
	if other.SPARQL.FlushWorkers != 0 {
		c.SPARQL.FlushWorkers = other.SPARQL.FlushWorkers
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}

	// Maps merge per key
	c.Translations = mergeMap(c.Translations, other.Translations)
	c.Graphs = mergeMap(c.Graphs, other.Graphs)
	for name, src := range other.Sources {
		if c.Sources == nil {
			c.Sources = make(map[string]SourceConfig)
		}
		c.Sources[name] = src
	}
}

func mergeMap(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
