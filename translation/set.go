package translation

import (
	"fmt"
	"log/slog"
	"sort"
)

// Set holds the named tables of a run.
type Set struct {
	tables map[string]*Map
}

// LoadSet loads every name → path entry.
func LoadSet(paths map[string]string, logger *slog.Logger) (*Set, error) {
	s := &Set{tables: make(map[string]*Map, len(paths))}
	for name, path := range paths {
		m, err := Load(name, path, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		s.tables[name] = m
		logger.Debug("Loaded translation table", "name", name, "entries", m.Len())
	}
	return s, nil
}

// NewSet builds a Set from already constructed tables.
func NewSet(tables ...*Map) *Set {
	s := &Set{tables: make(map[string]*Map, len(tables))}
	for _, t := range tables {
		s.tables[t.Name()] = t
	}
	return s
}

// Get returns the table by name.
func (s *Set) Get(name string) (*Map, error) {
	if s == nil {
		return nil, fmt.Errorf("translation table %q not loaded", name)
	}
	m, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("translation table %q not loaded", name)
	}
	return m, nil
}

// Names returns the loaded table names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
