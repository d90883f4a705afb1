package graph

import "errors"

var (
	// ErrNoGraph is returned when neither the record nor its parents name a graph.
	ErrNoGraph = errors.New("no named graph")
	// ErrInvalidIRI is returned for subjects, predicates or graphs that are not absolute IRIs.
	ErrInvalidIRI = errors.New("invalid IRI")
	// ErrUnsupportedValue is returned for values that have no RDF term form.
	ErrUnsupportedValue = errors.New("unsupported value")
	// ErrTooDeep is returned when nesting exceeds maxDepth.
	ErrTooDeep = errors.New("record nesting too deep")
)
