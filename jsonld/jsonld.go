// Package jsonld renders compiled mapped records as JSON-LD documents and
// converts them to N-Quads with json-gold.
//
// Only insert statements contribute to a document; JSON-LD has no notion of
// the delete-before-insert updates the sparql package emits.
package jsonld

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/vocabulary/harvest"
	"github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"
)

// FormatNQuads is the json-gold output format for N-Quads.
const FormatNQuads = "application/n-quads"

// FromRecord compiles rec and renders it as an expanded JSON-LD document.
func FromRecord(rec record.Record, defaultGraph string) (map[string]any, error) {
	stmts, err := graph.Compile(rec, defaultGraph)
	if err != nil {
		return nil, err
	}
	return FromStatements(stmts)
}

// FromStatements renders the insert statements as a document with one named
// graph object per graph:
//
//	{"@graph": [{"@id": <graph>, "@graph": [<node>, ...]}, ...]}
func FromStatements(stmts []graph.Statement) (map[string]any, error) {
	type nodeKey struct{ graph, subject string }

	nodes := make(map[nodeKey]map[string]any)
	graphs := make(map[string][]nodeKey)
	var graphOrder []string

	for _, s := range stmts {
		if s.Op != graph.OpInsert {
			continue
		}
		k := nodeKey{s.Graph, s.Subject}
		node, ok := nodes[k]
		if !ok {
			node = map[string]any{"@id": s.Subject}
			nodes[k] = node
			if _, seen := graphs[s.Graph]; !seen {
				graphOrder = append(graphOrder, s.Graph)
			}
			graphs[s.Graph] = append(graphs[s.Graph], k)
		}

		if s.Predicate == graph.RDFType {
			types, _ := node["@type"].([]any)
			for _, o := range s.Objects {
				types = append(types, lexical(o.Serialize(rdf.NTriples)))
			}
			node["@type"] = types
			continue
		}

		values, _ := node[s.Predicate].([]any)
		for _, o := range s.Objects {
			v, err := valueObject(o)
			if err != nil {
				return nil, fmt.Errorf("%s <%s>: %w", s.Subject, s.Predicate, err)
			}
			values = append(values, v)
		}
		node[s.Predicate] = values
	}

	named := make([]any, 0, len(graphOrder))
	for _, g := range graphOrder {
		members := make([]any, 0, len(graphs[g]))
		for _, k := range graphs[g] {
			members = append(members, nodes[k])
		}
		named = append(named, map[string]any{"@id": g, "@graph": members})
	}
	return map[string]any{"@graph": named}, nil
}

// Context returns the compaction context built from the vocabulary prefixes.
func Context() map[string]any {
	keys := make([]string, 0, len(harvest.Prefixes))
	for k := range harvest.Prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx := make(map[string]any, len(keys))
	for _, k := range keys {
		ctx[k] = harvest.Prefixes[k]
	}
	return map[string]any{"@context": ctx}
}

// Compact compacts doc against Context.
func Compact(doc map[string]any) (map[string]any, error) {
	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	out, err := proc.Compact(doc, Context(), opts)
	if err != nil {
		return nil, fmt.Errorf("compact JSON-LD: %w", err)
	}
	return out, nil
}

// ToNQuads converts doc to N-Quads text.
func ToNQuads(doc map[string]any) (string, error) {
	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.Format = FormatNQuads

	out, err := proc.ToRDF(doc, opts)
	if err != nil {
		return "", fmt.Errorf("convert JSON-LD to N-Quads: %w", err)
	}
	s, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("convert JSON-LD to N-Quads: unexpected result %T", out)
	}
	return s, nil
}

// valueObject turns a term into a JSON-LD value object.
func valueObject(t rdf.Term) (map[string]any, error) {
	nt := t.Serialize(rdf.NTriples)
	switch t.Type() {
	case rdf.TermIRI:
		return map[string]any{"@id": lexical(nt)}, nil
	case rdf.TermLiteral:
		value, suffix, err := splitLiteral(nt)
		if err != nil {
			return nil, err
		}
		v := map[string]any{"@value": value}
		switch {
		case strings.HasPrefix(suffix, "@"):
			v["@language"] = suffix[1:]
		case strings.HasPrefix(suffix, "^^"):
			v["@type"] = lexical(suffix[2:])
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported term %s", nt)
	}
}

// splitLiteral splits an N-Triples literal into its unescaped value and
// the trailing language tag or datatype.
func splitLiteral(nt string) (string, string, error) {
	end := strings.LastIndex(nt, `"`)
	if !strings.HasPrefix(nt, `"`) || end <= 0 {
		return "", "", fmt.Errorf("malformed literal %s", nt)
	}
	value, err := strconv.Unquote(nt[:end+1])
	if err != nil {
		return "", "", fmt.Errorf("unescape literal %s: %w", nt, err)
	}
	return value, nt[end+1:], nil
}

func lexical(nt string) string {
	return strings.TrimSuffix(strings.TrimPrefix(nt, "<"), ">")
}
