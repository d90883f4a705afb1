// Package store holds the stores the pipeline writes to outside the
// triplestore itself: an in-memory quad store that replays SPARQL update
// groups, and a NATS KV ledger of pipeline runs.
package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/c360studio/semharvest/sparql"
	"github.com/knakk/rdf"
)

// Quad is one stored triple in a named graph. Object is in N-Triples form.
type Quad struct {
	Graph     string
	Subject   string
	Predicate string
	Object    string
}

// Memory is an in-memory quad store that applies the update text produced
// by the sparql package. Operations within a group apply in order, each
// against the result of the previous one. Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	quads map[Quad]struct{}
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{quads: make(map[Quad]struct{})}
}

var (
	deletePattern = regexp.MustCompile(`^DELETE \{ GRAPH <([^>]*)> \{ <([^>]*)> <([^>]*)> \?o \. \} \}`)
	insertPattern = regexp.MustCompile(`^INSERT DATA \{ GRAPH <([^>]*)> \{`)
)

// Apply replays one update group.
func (m *Memory) Apply(ctx context.Context, text string) error {
	ops, err := parseOps(text)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		op(m.quads)
	}
	return nil
}

// Send applies each group of a batch in order. It lets Memory stand in for
// a triplestore sink.
func (m *Memory) Send(ctx context.Context, batch []string) error {
	for i, text := range batch {
		if err := m.Apply(ctx, text); err != nil {
			return fmt.Errorf("apply group %d: %w", i, err)
		}
	}
	return nil
}

// Len returns the number of stored quads.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.quads)
}

// Quads returns every stored quad in sorted order.
func (m *Memory) Quads() []Quad {
	m.mu.RLock()
	out := make([]Quad, 0, len(m.quads))
	for q := range m.quads {
		out = append(out, q)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Graph != b.Graph {
			return a.Graph < b.Graph
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Predicate != b.Predicate {
			return a.Predicate < b.Predicate
		}
		return a.Object < b.Object
	})
	return out
}

// Objects returns the N-Triples objects stored for a subject and predicate
// in graph, sorted.
func (m *Memory) Objects(graph, subject, predicate string) []string {
	m.mu.RLock()
	var out []string
	for q := range m.quads {
		if q.Graph == graph && q.Subject == subject && q.Predicate == predicate {
			out = append(out, q.Object)
		}
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Values returns the lexical forms of Objects.
func (m *Memory) Values(graph, subject, predicate string) []string {
	objs := m.Objects(graph, subject, predicate)
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, Lexical(o))
	}
	return out
}

// Lexical strips the N-Triples syntax from an object: the brackets of an
// IRI, or the quotes, escapes and tag of a literal.
func Lexical(object string) string {
	if strings.HasPrefix(object, "<") && strings.HasSuffix(object, ">") {
		return object[1 : len(object)-1]
	}
	if strings.HasPrefix(object, `"`) {
		end := strings.LastIndex(object, `"`)
		if end > 0 {
			if s, err := strconv.Unquote(object[:end+1]); err == nil {
				return s
			}
			return object[1:end]
		}
	}
	return object
}

type op func(map[Quad]struct{})

func parseOps(text string) ([]op, error) {
	groups, err := sparql.ReadAll(strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	var ops []op
	for _, g := range groups {
		for _, stmt := range g.Statements {
			o, err := parseOp(strings.TrimSpace(stmt))
			if err != nil {
				return nil, err
			}
			ops = append(ops, o)
		}
	}
	return ops, nil
}

func parseOp(stmt string) (op, error) {
	if m := deletePattern.FindStringSubmatch(stmt); m != nil {
		graph, subject, predicate := m[1], m[2], m[3]
		return func(quads map[Quad]struct{}) {
			for q := range quads {
				if q.Graph == graph && q.Subject == subject && q.Predicate == predicate {
					delete(quads, q)
				}
			}
		}, nil
	}

	if m := insertPattern.FindStringSubmatch(stmt); m != nil {
		graph := m[1]
		body := stmt[len(m[0]):]
		body = strings.TrimSuffix(strings.TrimSpace(body), sparql.Terminator)
		body = strings.TrimSuffix(strings.TrimSpace(body), "} }")

		triples, err := rdf.NewTripleDecoder(strings.NewReader(body), rdf.NTriples).DecodeAll()
		if err != nil {
			return nil, fmt.Errorf("decode insert data: %w", err)
		}
		added := make([]Quad, 0, len(triples))
		for _, t := range triples {
			added = append(added, Quad{
				Graph:     graph,
				Subject:   t.Subj.Serialize(rdf.NTriples),
				Predicate: t.Pred.Serialize(rdf.NTriples),
				Object:    t.Obj.Serialize(rdf.NTriples),
			})
		}
		for i := range added {
			added[i].Subject = Lexical(added[i].Subject)
			added[i].Predicate = Lexical(added[i].Predicate)
		}
		return func(quads map[Quad]struct{}) {
			for _, q := range added {
				quads[q] = struct{}{}
			}
		}, nil
	}

	first, _, _ := strings.Cut(stmt, "\n")
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedUpdate, first)
}
