package mapping

import (
	"context"
	"fmt"

	"github.com/c360studio/semharvest/extract"
	"github.com/c360studio/semharvest/record"
)

// Path extracts every value matched by a JSONPath expression. The
// expression is compiled once; a bad expression panics at rule construction.
func Path(expr string, opts ...extract.Option) ExtractFunc {
	p := extract.MustCompile(expr)
	return func(_ context.Context, src Source, _ record.Record) (any, error) {
		return p.Values(src, opts...), nil
	}
}

// TranslatedPath extracts values and maps each through table. Misses are
// dropped.
func TranslatedPath(expr string, table extract.Translator) ExtractFunc {
	return Path(expr, extract.WithTranslation(table))
}

// IRIPath extracts string values and turns them into IRIs under ns.
func IRIPath(expr, ns string) ExtractFunc {
	p := extract.MustCompile(expr)
	return func(_ context.Context, src Source, _ record.Record) (any, error) {
		var out []any
		for _, v := range p.Values(src) {
			s := stringify(v)
			if s == "" {
				continue
			}
			out = append(out, record.IRI(ns+s))
		}
		return out, nil
	}
}

// LinkPath extracts string values that are absolute IRIs, such as homepage
// URLs, as IRIs. Other values are dropped.
func LinkPath(expr string) ExtractFunc {
	p := extract.MustCompile(expr)
	return func(_ context.Context, src Source, _ record.Record) (any, error) {
		var out []any
		for _, v := range p.Values(src) {
			s, ok := v.(string)
			if !ok || !record.IsAbsoluteIRI(s) {
				continue
			}
			out = append(out, record.IRI(s))
		}
		return out, nil
	}
}

// Const always yields v.
func Const(v any) ExtractFunc {
	return func(context.Context, Source, record.Record) (any, error) {
		return v, nil
	}
}

// Func adapts a transform that only needs the source record.
func Func(fn func(ctx context.Context, src Source) (any, error)) ExtractFunc {
	return func(ctx context.Context, src Source, _ record.Record) (any, error) {
		return fn(ctx, src)
	}
}

// Delete yields true. Use it with a record.DeleteKey rule key.
func Delete() ExtractFunc {
	return Const(true)
}

// Required yields the first value at expr as a string and skips the record
// when it is missing.
func Required(expr string) ExtractFunc {
	p := extract.MustCompile(expr)
	return func(_ context.Context, src Source, _ record.Record) (any, error) {
		s := stringify(p.First(src))
		if s == "" {
			return nil, Skip(fmt.Sprintf("missing %s", expr))
		}
		return s, nil
	}
}

// Nested runs m against the same source and yields the resulting record.
// A skip inside m yields nothing instead of skipping the parent.
func Nested(m *Mapper) ExtractFunc {
	return func(ctx context.Context, src Source, _ record.Record) (any, error) {
		rec, err := m.Map(ctx, src)
		if err != nil {
			if IsSkip(err) {
				return nil, nil
			}
			return nil, err
		}
		return rec, nil
	}
}

// Each runs m against every object matched by expr and yields the list of
// resulting records. Items that skip are dropped.
func Each(expr string, m *Mapper) ExtractFunc {
	p := extract.MustCompile(expr)
	return func(ctx context.Context, src Source, _ record.Record) (any, error) {
		var out []any
		for _, item := range p.Values(src) {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			rec, err := m.Map(ctx, obj)
			if err != nil {
				if IsSkip(err) {
					continue
				}
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	}
}

// Preferred yields the preferred label of the value at expr using
// PreferredLabel.
func Preferred(expr, field string) ExtractFunc {
	p := extract.MustCompile(expr)
	return func(_ context.Context, src Source, _ record.Record) (any, error) {
		matched := p.Values(src)
		var v any
		switch len(matched) {
		case 0:
			return nil, nil
		case 1:
			v = matched[0]
		default:
			v = matched
		}
		label, err := PreferredLabel(v, field)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", expr, err)
		}
		if label == "" {
			return nil, nil
		}
		return label, nil
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}
