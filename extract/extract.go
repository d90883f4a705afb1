// Package extract pulls scalar or list values out of parsed JSON documents
// using JSONPath expressions.
//
// Supported forms include direct field access ($.a.b), wildcard iteration
// ($.items[*].name), predicate filters ($.names[?(@.pref == 'Y')].value)
// and index selection ($.items[0]). Documents are the generic values produced
// by encoding/json (map[string]any, []any, string, float64, bool, nil).
package extract

import (
	"fmt"
	"sync"

	"github.com/ohler55/ojg/jp"
)

// Translator maps an extracted value to its canonical form. A false result
// drops the value.
type Translator interface {
	Translate(v any) (any, bool)
}

// Path is a compiled path expression. It is immutable and safe for concurrent use.
type Path struct {
	expr string
	x    jp.Expr
}

// Compile parses a path expression.
func Compile(expr string) (*Path, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", expr, err)
	}
	return &Path{expr: expr, x: x}, nil
}

// MustCompile is Compile that panics on a bad expression. Use it for
// package-level rule tables.
func MustCompile(expr string) *Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source expression.
func (p *Path) String() string { return p.expr }

// Values returns every non-nil value matched by the path. No match yields an
// empty slice.
func (p *Path) Values(doc any, opts ...Option) []any {
	o := applyOptions(opts)
	matched := p.x.Get(doc)
	out := make([]any, 0, len(matched))
	for _, v := range matched {
		if v == nil {
			continue
		}
		if o.translator != nil {
			tv, ok := o.translator.Translate(v)
			if !ok || tv == nil {
				continue
			}
			v = tv
		}
		out = append(out, v)
	}
	return out
}

// First returns the first matched value or nil.
func (p *Path) First(doc any, opts ...Option) any {
	vals := p.Values(doc, opts...)
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

// Option configures an extraction.
type Option func(*options)

type options struct {
	translator Translator
}

// WithTranslation passes every extracted value through t.
func WithTranslation(t Translator) Option {
	return func(o *options) {
		o.translator = t
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var (
	pathCacheMu sync.RWMutex
	pathCache   = make(map[string]*Path)
)

// cached returns a compiled path, compiling and memoizing it on first use.
func cached(expr string) (*Path, error) {
	pathCacheMu.RLock()
	p, ok := pathCache[expr]
	pathCacheMu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := Compile(expr)
	if err != nil {
		return nil, err
	}

	pathCacheMu.Lock()
	pathCache[expr] = p
	pathCacheMu.Unlock()
	return p, nil
}

// Extract evaluates expr against doc.
func Extract(doc any, expr string, opts ...Option) ([]any, error) {
	p, err := cached(expr)
	if err != nil {
		return nil, err
	}
	return p.Values(doc, opts...), nil
}

// First evaluates expr against doc and returns the first value or nil.
func First(doc any, expr string, opts ...Option) (any, error) {
	p, err := cached(expr)
	if err != nil {
		return nil, err
	}
	return p.First(doc, opts...), nil
}

// String returns the first matched value as a string, or "" when the path
// matches nothing or the value is not a string.
func String(doc any, expr string) string {
	v, err := First(doc, expr)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
