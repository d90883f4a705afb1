// Package graph compiles mapped records into ordered delete/insert statements
// against named graphs, and publishes serialized updates to the message bus.
package graph

import (
	"fmt"

	"github.com/knakk/rdf"
)

// Op is the kind of graph update.
type Op int

const (
	// OpDelete removes every value of a predicate for a subject.
	OpDelete Op = iota
	// OpInsert adds values of a predicate for a subject.
	OpInsert
)

func (o Op) String() string {
	switch o {
	case OpDelete:
		return "DELETE"
	case OpInsert:
		return "INSERT"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Statement is one delete or insert scoped to a subject, predicate and graph.
// Objects is empty for deletes.
type Statement struct {
	Op        Op
	Graph     string
	Subject   string
	Predicate string
	Objects   []rdf.Term
}

// Delete builds a delete-all-values statement.
func Delete(graph, subject, predicate string) Statement {
	return Statement{Op: OpDelete, Graph: graph, Subject: subject, Predicate: predicate}
}

// Insert builds an insert statement.
func Insert(graph, subject, predicate string, objects ...rdf.Term) Statement {
	return Statement{Op: OpInsert, Graph: graph, Subject: subject, Predicate: predicate, Objects: objects}
}

func (s Statement) String() string {
	if s.Op == OpDelete {
		return fmt.Sprintf("DELETE <%s> <%s> * @ <%s>", s.Subject, s.Predicate, s.Graph)
	}
	return fmt.Sprintf("INSERT <%s> <%s> (%d) @ <%s>", s.Subject, s.Predicate, len(s.Objects), s.Graph)
}
