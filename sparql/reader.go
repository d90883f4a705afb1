package sparql

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// ErrUnterminated is returned for trailing text that never reaches a terminator.
var ErrUnterminated = errors.New("unterminated update statement")

// maxLineSize bounds a single line of update text.
const maxLineSize = 16 * 1024 * 1024

// Group is one atomically applicable unit: a delete with the inserts that
// immediately follow it, or a single other statement.
type Group struct {
	Statements []string
}

// Text joins the statements for replay as one request.
func (g Group) Text() string {
	return strings.Join(g.Statements, "\n")
}

// IsDelete reports whether the group is led by a delete.
func (g Group) IsDelete() bool {
	return len(g.Statements) > 0 && isDelete(g.Statements[0])
}

// Len returns the number of statements in the group.
func (g Group) Len() int { return len(g.Statements) }

// Reader splits update text into groups. It is not safe for concurrent use.
type Reader struct {
	sc   *bufio.Scanner
	line int

	pending    string
	hasPending bool
	deferred   error
}

// NewReader returns a Reader on r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{sc: sc}
}

// Next returns the next group, or io.EOF when the input is exhausted. A
// trailing unterminated statement comes back as a group together with an
// error wrapping ErrUnterminated.
func (r *Reader) Next() (Group, error) {
	stmt, err := r.statement()
	if err != nil {
		if errors.Is(err, ErrUnterminated) {
			return Group{Statements: []string{stmt}}, err
		}
		return Group{}, err
	}

	g := Group{Statements: []string{stmt}}
	if !isDelete(stmt) {
		return g, nil
	}

	for {
		next, err := r.statement()
		switch {
		case errors.Is(err, io.EOF):
			return g, nil
		case err != nil:
			r.pending, r.hasPending, r.deferred = next, true, err
			return g, nil
		case isInsert(next):
			g.Statements = append(g.Statements, next)
		default:
			r.pending, r.hasPending = next, true
			return g, nil
		}
	}
}

// statement reads up to and including the next line ending in the terminator.
func (r *Reader) statement() (string, error) {
	if r.hasPending {
		stmt, err := r.pending, r.deferred
		r.pending, r.hasPending, r.deferred = "", false, nil
		return stmt, err
	}

	var (
		sb      strings.Builder
		started bool
		first   int
	)
	for r.sc.Scan() {
		r.line++
		line := strings.TrimRight(r.sc.Text(), " \t\r")
		trimmed := strings.TrimSpace(line)
		if !started && (trimmed == "" || strings.HasPrefix(trimmed, "#")) {
			continue
		}
		if started {
			sb.WriteByte('\n')
		} else {
			started, first = true, r.line
		}
		sb.WriteString(line)
		if strings.HasSuffix(trimmed, Terminator) {
			return sb.String(), nil
		}
	}
	if err := r.sc.Err(); err != nil {
		return "", fmt.Errorf("read update text at line %d: %w", r.line, err)
	}
	if started {
		return sb.String(), fmt.Errorf("%w starting at line %d", ErrUnterminated, first)
	}
	return "", io.EOF
}

// All returns the groups of r as a lazy sequence. Iteration stops after the
// first error, which is yielded with the group it belongs to, if any.
func All(r io.Reader) iter.Seq2[Group, error] {
	return func(yield func(Group, error) bool) {
		rd := NewReader(r)
		for {
			g, err := rd.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(g, err) || err != nil {
				return
			}
		}
	}
}

// ReadAll collects every group of r.
func ReadAll(r io.Reader) ([]Group, error) {
	var out []Group
	for g, err := range All(r) {
		if err != nil {
			return out, err
		}
		out = append(out, g)
	}
	return out, nil
}

func isDelete(stmt string) bool {
	return hasKeyword(stmt, "DELETE")
}

func isInsert(stmt string) bool {
	return hasKeyword(stmt, "INSERT")
}

func hasKeyword(stmt, kw string) bool {
	s := strings.TrimSpace(stmt)
	return len(s) >= len(kw) && strings.EqualFold(s[:len(kw)], kw)
}
