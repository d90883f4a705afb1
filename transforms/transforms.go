// Package transforms holds the mapping rule sets for each harvested entity
// type. Every transform writes one named graph and is built from the run's
// shared resolver and translation tables.
package transforms

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/c360studio/semharvest/extract"
	"github.com/c360studio/semharvest/mapping"
	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/resolver"
	"github.com/c360studio/semharvest/translation"
	"github.com/c360studio/semharvest/vocabulary/harvest"
)

// Transform names.
const (
	NamePeople        = "people"
	NameOrganizations = "organizations"
	NameGrants        = "grants"
	NamePublications  = "publications"
)

// Translation table names.
const (
	TableOrgAliases = "org_aliases"
	TableCountries  = "countries"
	TableOrgTypes   = "org_types"
)

// Deps are the shared collaborators of a run.
type Deps struct {
	Resolver     resolver.Resolver
	Translations *translation.Set
	// Graphs overrides the default named graph per transform name.
	Graphs map[string]string
	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Deps) resolver() resolver.Resolver {
	if d.Resolver == nil {
		return resolver.None
	}
	return d.Resolver
}

// table returns the named translation table. A table that was not loaded
// behaves as an empty one, so every lookup is a logged miss.
func (d Deps) table(name string) *translation.Map {
	m, err := d.Translations.Get(name)
	if err != nil {
		d.logger().Warn("Translation table not loaded, lookups will miss", "table", name)
		return translation.New(name, nil, translation.WithLogger(d.logger()))
	}
	return m
}

// graph returns the configured graph for a transform, with bare names
// expanded under the harvest graph namespace. Overrides are checked by
// checkGraphs when the transform is built.
func (d Deps) graph(name, fallback string) string {
	g := d.Graphs[name]
	if g == "" {
		return fallback
	}
	if iri, err := harvest.GraphIRI(g); err == nil {
		return iri
	}
	return g
}

func (d Deps) checkGraphs() error {
	for name, g := range d.Graphs {
		if _, err := harvest.GraphIRI(g); err != nil {
			return fmt.Errorf("graphs.%s: %w", name, err)
		}
	}
	return nil
}

// Transform is a named rule set bound to its named graph.
type Transform struct {
	Name   string
	Graph  string
	Mapper *mapping.Mapper
}

// Map maps one source record.
func (t *Transform) Map(ctx context.Context, src mapping.Source) (record.Record, error) {
	return t.Mapper.Map(ctx, src)
}

// Constructor builds a Transform from shared dependencies.
type Constructor func(d Deps) (*Transform, error)

// Constructors returns the built-in transforms by name.
func Constructors() map[string]Constructor {
	return map[string]Constructor{
		NamePeople:        People,
		NameOrganizations: Organizations,
		NameGrants:        Grants,
		NamePublications:  Publications,
	}
}

func newTransform(d Deps, name, graph string, rules []mapping.Rule) (*Transform, error) {
	if err := d.checkGraphs(); err != nil {
		return nil, fmt.Errorf("build %s transform: %w", name, err)
	}
	m, err := mapping.NewMapper(rules,
		mapping.WithName(name),
		mapping.WithLogger(d.logger().With("transform", name)))
	if err != nil {
		return nil, fmt.Errorf("build %s transform: %w", name, err)
	}
	return &Transform{Name: name, Graph: graph, Mapper: m}, nil
}

// replace maps key and wipes its previous values.
func replace(key string, fn mapping.ExtractFunc, single bool) []mapping.Rule {
	return []mapping.Rule{
		{Key: record.DeleteKey(key), Extract: mapping.Delete()},
		{Key: key, Extract: fn, Single: single},
	}
}

func rules(groups ...[]mapping.Rule) []mapping.Rule {
	var out []mapping.Rule
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// personRef resolves a person by name. An unknown person is built as a new
// subject in the people graph with an id derived from the name.
func personRef(ctx context.Context, d Deps, first, last string) (any, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	attrs := map[string]string{"first_name": first, "last_name": last}

	return mapping.ResolveOrBuild(ctx, d.resolver(), resolver.TypePerson, attrs, func() (record.Record, error) {
		id := resolver.DeterministicID(resolver.TypePerson, first, last)
		return record.Record{
			record.KeyID:       id,
			record.KeyIDNS:     harvest.PersonNamespace,
			record.KeyGraph:    d.graph(NamePeople, harvest.GraphPeople),
			record.KeyType:     []any{harvest.ClassPerson},
			harvest.PrefLabel:  strings.TrimSpace(first + " " + last),
			harvest.HasContact: vcardName(id, first, "", last),
		}, nil
	})
}

// vcardName builds the contact card holding a structured name.
func vcardName(id, first, middle, last string) record.Record {
	name := record.Record{
		record.KeyID:                           id,
		record.KeyIDNS:                         harvest.ContactNamespace + "name/",
		record.KeyType:                         []any{harvest.ClassVCardName},
		record.DeleteKey(harvest.GivenName):    true,
		harvest.GivenName:                      first,
		record.DeleteKey(harvest.FamilyName):   true,
		harvest.FamilyName:                     last,
		record.DeleteKey(harvest.AdditionalNm): true,
	}
	if middle != "" {
		name[harvest.AdditionalNm] = middle
	}
	return record.Record{
		record.KeyID:                      id,
		record.KeyIDNS:                    harvest.ContactNamespace,
		record.KeyType:                    []any{harvest.ClassVCardKind},
		record.DeleteKey(harvest.HasName): true,
		harvest.HasName:                   name,
	}
}

// orgRef maps an organization code through the alias table to an
// organization IRI. A miss yields nil.
func orgRef(aliases *translation.Map, code string) any {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	alias, ok := aliases.Lookup(code)
	if !ok || alias == "" {
		return nil
	}
	return record.IRI(harvest.OrganizationNamespace + strings.ToLower(alias))
}

// text returns the first value at expr as trimmed text. Integral numbers are
// formatted without a fraction.
func text(src any, expr string) string {
	v, err := extract.First(src, expr)
	if err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
