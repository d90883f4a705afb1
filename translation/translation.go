// Package translation provides immutable code-to-value lookup tables that are
// loaded once at process start and shared by every record of a run.
package translation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Map is a read-only, case-normalized lookup table. It is safe for concurrent use.
type Map struct {
	name    string
	entries map[string]string
	logger  *slog.Logger
}

// Option configures a Map.
type Option func(*Map)

// WithLogger sets the logger used for miss warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Map) {
		m.logger = logger
	}
}

// New builds a Map from entries. Keys are lower-cased and trimmed.
func New(name string, entries map[string]string, opts ...Option) *Map {
	m := &Map{
		name:    name,
		entries: make(map[string]string, len(entries)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	for k, v := range entries {
		m.entries[normalize(k)] = v
	}
	return m
}

// Load reads a delimited file with key and value columns. Tab-separated files
// are recognised by a .tsv extension; everything else is read as CSV. Lines
// starting with # are comments.
func Load(name, path string, opts ...Option) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open translation %s: %w", name, err)
	}
	defer f.Close()

	delim := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		delim = '\t'
	}
	return Read(name, f, delim, opts...)
}

// Read parses delimited key/value rows from r.
func Read(name string, r io.Reader, delim rune, opts ...Option) (*Map, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	entries := make(map[string]string)
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read translation %s: %w", name, err)
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("read translation %s: line %d: expected key and value, got %d fields", name, line, len(row))
		}
		key := normalize(row[0])
		if key == "" {
			continue
		}
		entries[key] = strings.TrimSpace(row[1])
	}
	return New(name, entries, opts...), nil
}

// Name returns the table name.
func (m *Map) Name() string { return m.name }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Lookup returns the value for key. A miss is logged as a warning and reported
// as absent; it is never an error.
func (m *Map) Lookup(key string) (string, bool) {
	v, ok := m.entries[normalize(key)]
	if !ok {
		m.logger.Warn("Unmapped translation key",
			"table", m.name,
			"key", key)
		return "", false
	}
	return v, true
}

// Translate looks up a value of any type. Non-string values are formatted
// before lookup.
func (m *Map) Translate(v any) (any, bool) {
	var key string
	switch t := v.(type) {
	case string:
		key = t
	case nil:
		return nil, false
	default:
		key = fmt.Sprint(t)
	}
	out, ok := m.Lookup(key)
	if !ok {
		return nil, false
	}
	return out, true
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
