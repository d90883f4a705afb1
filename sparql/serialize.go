// Package sparql renders compiled graph statements as SPARQL 1.1 Update text
// and reads that text back as atomically applicable groups.
//
// Deletes are unconditional wipes of one predicate for one subject:
//
//	DELETE { GRAPH <g> { <s> <p> ?o . } }
//	WHERE { GRAPH <g> { <s> <p> ?o . } };
//
// Inserts carry every value of one predicate for one subject:
//
//	INSERT DATA { GRAPH <g> {
//	<s> <p> "value" .
//	} };
package sparql

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/semharvest/graph"
	"github.com/knakk/rdf"
)

// Terminator ends every rendered statement.
const Terminator = ";"

// ErrEmptyInsert is returned for an insert statement with no objects.
var ErrEmptyInsert = errors.New("insert statement has no objects")

// Serialize renders statements in order.
func Serialize(stmts []graph.Statement) (string, error) {
	var sb strings.Builder
	if err := NewWriter(&sb).Write(stmts); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Writer renders statements to an io.Writer.
type Writer struct {
	w      io.Writer
	blocks int
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write renders each statement as its own block.
func (w *Writer) Write(stmts []graph.Statement) error {
	for _, s := range stmts {
		text, err := Render(s)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w.w, text); err != nil {
			return fmt.Errorf("write update block: %w", err)
		}
		w.blocks++
	}
	return nil
}

// Blocks returns the number of blocks written.
func (w *Writer) Blocks() int { return w.blocks }

// Render renders one statement, including its terminator and trailing newline.
func Render(s graph.Statement) (string, error) {
	switch s.Op {
	case graph.OpDelete:
		return renderDelete(s), nil
	case graph.OpInsert:
		return renderInsert(s)
	default:
		return "", fmt.Errorf("render statement: unknown op %s", s.Op)
	}
}

func renderDelete(s graph.Statement) string {
	pattern := fmt.Sprintf("GRAPH <%s> { <%s> <%s> ?o . }", s.Graph, s.Subject, s.Predicate)
	return "DELETE { " + pattern + " }\nWHERE { " + pattern + " }" + Terminator + "\n"
}

func renderInsert(s graph.Statement) (string, error) {
	if len(s.Objects) == 0 {
		return "", fmt.Errorf("%w: <%s> <%s>", ErrEmptyInsert, s.Subject, s.Predicate)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT DATA { GRAPH <%s> {\n", s.Graph)
	for _, o := range s.Objects {
		fmt.Fprintf(&sb, "<%s> <%s> %s .\n", s.Subject, s.Predicate, o.Serialize(rdf.NTriples))
	}
	sb.WriteString("} }" + Terminator + "\n")
	return sb.String(), nil
}
