package graph

import (
	"fmt"

	"github.com/c360studio/semharvest/record"
	"github.com/knakk/rdf"
)

// RDFType is the predicate @type compiles to.
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// maxDepth bounds record nesting.
const maxDepth = 32

// Compile turns a mapped record into ordered statements. Records without
// their own @graph use defaultGraph, and nested records inherit the active
// graph of their parent.
//
// For each subject the rdf:type delete (when marked) and insert come first,
// then one delete/insert pair per predicate in sorted order. A predicate's
// delete always precedes its insert. Statements of nested and embedded
// records follow their parent's.
func Compile(rec record.Record, defaultGraph string) ([]Statement, error) {
	_, stmts, err := compile(rec, defaultGraph, 0)
	if err != nil {
		return nil, err
	}
	return stmts, nil
}

// CompileAll compiles several records into one statement list.
func CompileAll(recs []record.Record, defaultGraph string) ([]Statement, error) {
	var out []Statement
	for i, rec := range recs {
		stmts, err := Compile(rec, defaultGraph)
		if err != nil {
			return nil, fmt.Errorf("compile record %d: %w", i, err)
		}
		out = append(out, stmts...)
	}
	return out, nil
}

func compile(rec record.Record, activeGraph string, depth int) (string, []Statement, error) {
	if depth > maxDepth {
		return "", nil, ErrTooDeep
	}

	subject, err := rec.SubjectURI()
	if err != nil {
		return "", nil, err
	}
	if _, err := IRI(subject); err != nil {
		return "", nil, fmt.Errorf("subject: %w", err)
	}

	g := rec.Graph()
	if g == "" {
		g = activeGraph
	}
	if g == "" {
		return "", nil, fmt.Errorf("%w for %s", ErrNoGraph, subject)
	}
	if _, err := IRI(g); err != nil {
		return "", nil, fmt.Errorf("graph: %w", err)
	}

	var own, nested []Statement

	if rec.DeletesTypes() {
		own = append(own, Delete(g, subject, RDFType))
	}
	if types := rec.Types(); len(types) > 0 {
		objs := make([]rdf.Term, 0, len(types))
		for _, t := range types {
			iri, err := IRI(t)
			if err != nil {
				return "", nil, fmt.Errorf("%s @type: %w", subject, err)
			}
			objs = append(objs, iri)
		}
		own = append(own, Insert(g, subject, RDFType, objs...))
	}

	for _, p := range rec.Predicates() {
		if _, err := IRI(p); err != nil {
			return "", nil, fmt.Errorf("%s predicate: %w", subject, err)
		}
		if rec.Deletes(p) {
			own = append(own, Delete(g, subject, p))
		}

		var objs []rdf.Term
		for _, v := range record.Values(rec[p]) {
			if child, ok := v.(record.Record); ok {
				childSubject, childStmts, err := compile(child, g, depth+1)
				if err != nil {
					return "", nil, fmt.Errorf("%s <%s>: %w", subject, p, err)
				}
				nested = append(nested, childStmts...)
				v = record.IRI(childSubject)
			}
			term, err := Term(v)
			if err != nil {
				return "", nil, fmt.Errorf("%s <%s>: %w", subject, p, err)
			}
			objs = append(objs, term)
		}
		if len(objs) > 0 {
			own = append(own, Insert(g, subject, p, objs...))
		}
	}

	for _, k := range rec.EmbeddedKeys() {
		for _, child := range record.Records(rec[k]) {
			_, childStmts, err := compile(child, g, depth+1)
			if err != nil {
				return "", nil, fmt.Errorf("%s %s: %w", subject, k, err)
			}
			nested = append(nested, childStmts...)
		}
	}

	return subject, append(own, nested...), nil
}
