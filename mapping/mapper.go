package mapping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/c360studio/semharvest/record"
)

// Source is a parsed JSON source record.
type Source = map[string]any

// ExtractFunc produces the value for a rule. acc is the record built so far;
// functions may add extra keys to it but should derive values from src only.
type ExtractFunc func(ctx context.Context, src Source, acc record.Record) (any, error)

// Rule maps part of a source record onto one key of the mapped record.
type Rule struct {
	Key     string
	Extract ExtractFunc
	Single  bool
}

// Mapper applies an ordered rule set. It holds no mutable state and is safe
// for concurrent use.
type Mapper struct {
	name   string
	rules  []Rule
	logger *slog.Logger
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithName labels the mapper in logs and errors.
func WithName(name string) Option {
	return func(m *Mapper) {
		m.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mapper) {
		m.logger = logger
	}
}

// NewMapper validates rules and returns a Mapper.
func NewMapper(rules []Rule, opts ...Option) (*Mapper, error) {
	m := &Mapper{
		name:   "mapper",
		rules:  make([]Rule, len(rules)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for i, r := range rules {
		if r.Key == "" {
			return nil, fmt.Errorf("%s: rule %d has no key", m.name, i)
		}
		if r.Extract == nil {
			return nil, fmt.Errorf("%s: rule %d (%s) has no extract function", m.name, i, r.Key)
		}
	}
	copy(m.rules, rules)
	return m, nil
}

// MustMapper is NewMapper that panics on invalid rules.
func MustMapper(rules []Rule, opts ...Option) *Mapper {
	m, err := NewMapper(rules, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the mapper label.
func (m *Mapper) Name() string { return m.name }

// Rules returns a copy of the rule set.
func (m *Mapper) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// Map runs every rule against src. When a rule asks to skip, Map returns a
// nil record and an error matching ErrSkipRecord.
func (m *Mapper) Map(ctx context.Context, src Source) (record.Record, error) {
	acc := make(record.Record, len(m.rules))

	for i, r := range m.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v, err := r.Extract(ctx, src, acc)
		if err != nil {
			if errors.Is(err, ErrSkipRecord) {
				m.logger.Debug("Skipping record",
					"mapper", m.name,
					"key", r.Key,
					"reason", err)
				return nil, err
			}
			return nil, fmt.Errorf("%s: rule %d (%s): %w", m.name, i, r.Key, err)
		}

		put(acc, r.Key, v, r.Single)
	}

	return acc, nil
}

// put writes v under key. Empty results leave the key absent. A list rule
// appends to values already stored under the same key.
func put(acc record.Record, key string, v any, single bool) {
	if b, ok := v.(bool); ok && !b && record.IsDeleteMarker(key) {
		return
	}

	vals := record.Values(v)
	if len(vals) == 0 {
		return
	}

	if single {
		acc[key] = vals[0]
		return
	}

	if existing, ok := acc[key]; ok {
		vals = append(record.Values(existing), vals...)
	}
	if len(vals) == 1 {
		if _, isList := v.([]any); !isList {
			acc[key] = vals[0]
			return
		}
	}
	acc[key] = vals
}
