package transforms

import (
	"context"

	"github.com/c360studio/semharvest/extract"
	"github.com/c360studio/semharvest/mapping"
	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/resolver"
	"github.com/c360studio/semharvest/vocabulary/harvest"
)

var (
	pubAuthors  = extract.MustCompile("$.authors[*]")
	pubSubjects = extract.MustCompile("$.subjects[*]")
)

// xsdGYear types a publication year.
const xsdGYear = harvest.XSD + "gYear"

// Publications maps bibliographic records keyed by DOI:
//
//	{"doi": "10.1000/xyz", "title": "...", "abstract": "...", "year": 2021,
//	 "journal": {"volume": "12", "issue": "3"},
//	 "authors": [{"first_name": "Jane", "last_name": "Doe", "rank": 1}],
//	 "subjects": ["Genomics"]}
func Publications(d Deps) (*Transform, error) {
	graph := d.graph(NamePublications, harvest.GraphPublications)

	return newTransform(d, NamePublications, graph, rules(
		[]mapping.Rule{
			{Key: record.KeyID, Extract: mapping.Func(func(_ context.Context, src mapping.Source) (any, error) {
				doi := text(src, "$.doi")
				if doi == "" {
					return nil, mapping.Skip("missing $.doi")
				}
				return resolver.DeterministicID("publication", doi), nil
			}), Single: true},
			{Key: record.KeyIDNS, Extract: mapping.Const(harvest.PublicationNamespace), Single: true},
			{Key: record.KeyGraph, Extract: mapping.Const(graph), Single: true},
			{Key: record.DeleteKey(record.KeyType), Extract: mapping.Delete()},
			{Key: record.KeyType, Extract: mapping.Const([]any{harvest.ClassDocument, harvest.ClassArticle})},
		},
		replace(harvest.DOI, mapping.Path("$.doi"), true),
		replace(harvest.Title, mapping.Path("$.title"), true),
		replace(harvest.PrefLabel, mapping.Path("$.title"), true),
		replace(harvest.Abstract, mapping.Func(func(_ context.Context, src mapping.Source) (any, error) {
			if s := text(src, "$.abstract"); s != "" {
				return record.Literal{Value: s, Lang: "en"}, nil
			}
			return nil, nil
		}), true),
		replace(harvest.Created, mapping.Func(func(_ context.Context, src mapping.Source) (any, error) {
			if y := text(src, "$.year"); y != "" {
				return record.Literal{Value: y, Datatype: xsdGYear}, nil
			}
			return nil, nil
		}), true),
		replace(harvest.Volume, mapping.Path("$.journal.volume"), true),
		replace(harvest.Issue, mapping.Path("$.journal.issue"), true),
		replace(harvest.Subject, mapping.Func(func(ctx context.Context, src mapping.Source) (any, error) {
			return topics(ctx, d, src)
		}), false),
		replace(harvest.RelatedBy, mapping.Func(func(ctx context.Context, src mapping.Source) (any, error) {
			return authorships(ctx, d, src)
		}), false),
	))
}

// topics resolves subject headings to concepts. Unknown headings are built
// as skos:Concept subjects in the publication graph.
func topics(ctx context.Context, d Deps, src mapping.Source) ([]any, error) {
	var out []any
	for _, v := range pubSubjects.Values(src) {
		label, _ := v.(string)
		ref, err := mapping.ResolveOrBuild(ctx, d.resolver(), resolver.TypeTopic, map[string]string{"label": label},
			func() (record.Record, error) {
				return record.Record{
					record.KeyID:      resolver.DeterministicID(resolver.TypeTopic, label),
					record.KeyIDNS:    harvest.EntityNamespace + "topic/",
					record.KeyType:    []any{harvest.ClassConcept},
					harvest.PrefLabel: label,
				}, nil
			})
		if err != nil {
			return nil, err
		}
		if ref != nil {
			out = append(out, ref)
		}
	}
	return out, nil
}

// authorships builds a vivo:Authorship per author linking the publication to
// the resolved or newly built person.
func authorships(ctx context.Context, d Deps, src mapping.Source) ([]any, error) {
	doi := text(src, "$.doi")
	pub := record.IRI(harvest.PublicationNamespace + resolver.DeterministicID("publication", doi))

	var out []any
	for i, item := range pubAuthors.Values(src) {
		first, last := text(item, "$.first_name"), text(item, "$.last_name")
		person, err := personRef(ctx, d, first, last)
		if err != nil {
			return nil, err
		}
		if person == nil {
			continue
		}
		rank, _ := extract.First(item, "$.rank")
		if rank == nil {
			rank = float64(i + 1)
		}
		out = append(out, record.Record{
			record.KeyID:    resolver.DeterministicID("authorship", doi, first, last),
			record.KeyIDNS:  harvest.EntityNamespace + "authorship/",
			record.KeyType:  []any{harvest.ClassAuthorship},
			harvest.Rank:    rank,
			harvest.Relates: []any{pub, person},
		})
	}
	return out, nil
}
