package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/semharvest/record"
	"github.com/knakk/rdf"
)

// XML Schema datatypes used for typed literals.
const (
	XSDString   = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger  = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal  = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDBoolean  = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDDate     = "http://www.w3.org/2001/XMLSchema#date"
	XSDDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"
)

var (
	xsdString   = mustIRI(XSDString)
	xsdInteger  = mustIRI(XSDInteger)
	xsdDecimal  = mustIRI(XSDDecimal)
	xsdBoolean  = mustIRI(XSDBoolean)
	xsdDate     = mustIRI(XSDDate)
	xsdDateTime = mustIRI(XSDDateTime)
)

func mustIRI(s string) rdf.IRI {
	iri, err := rdf.NewIRI(s)
	if err != nil {
		panic(err)
	}
	return iri
}

// IRI returns s as an IRI term after checking it is absolute.
func IRI(s string) (rdf.IRI, error) {
	if !record.IsAbsoluteIRI(s) {
		return rdf.IRI{}, fmt.Errorf("%w: %q", ErrInvalidIRI, s)
	}
	iri, err := rdf.NewIRI(s)
	if err != nil {
		return rdf.IRI{}, fmt.Errorf("%w: %q: %v", ErrInvalidIRI, s, err)
	}
	return iri, nil
}

// Term converts a mapped record value to an RDF term. Only record.IRI values
// become IRIs; strings are always literals.
func Term(v any) (rdf.Term, error) {
	switch t := v.(type) {
	case record.IRI:
		return IRI(string(t))
	case string:
		return rdf.NewTypedLiteral(t, xsdString), nil
	case record.Literal:
		return literal(t)
	case record.Date:
		return rdf.NewTypedLiteral(t.String(), xsdDate), nil
	case time.Time:
		return rdf.NewTypedLiteral(t.Format(time.RFC3339), xsdDateTime), nil
	case bool:
		return rdf.NewTypedLiteral(strconv.FormatBool(t), xsdBoolean), nil
	case int:
		return rdf.NewTypedLiteral(strconv.Itoa(t), xsdInteger), nil
	case int32:
		return rdf.NewTypedLiteral(strconv.FormatInt(int64(t), 10), xsdInteger), nil
	case int64:
		return rdf.NewTypedLiteral(strconv.FormatInt(t, 10), xsdInteger), nil
	case uint:
		return rdf.NewTypedLiteral(strconv.FormatUint(uint64(t), 10), xsdInteger), nil
	case uint32:
		return rdf.NewTypedLiteral(strconv.FormatUint(uint64(t), 10), xsdInteger), nil
	case uint64:
		return rdf.NewTypedLiteral(strconv.FormatUint(t, 10), xsdInteger), nil
	case float32:
		return number(float64(t))
	case float64:
		return number(t)
	case json.Number:
		if strings.ContainsAny(string(t), ".eE") {
			f, err := t.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
			}
			return number(f)
		}
		return rdf.NewTypedLiteral(string(t), xsdInteger), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// number types JSON numbers: integral values as xsd:integer, the rest as xsd:decimal.
func number(f float64) (rdf.Term, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return rdf.NewTypedLiteral(strconv.FormatInt(int64(f), 10), xsdInteger), nil
	}
	return rdf.NewTypedLiteral(strconv.FormatFloat(f, 'f', -1, 64), xsdDecimal), nil
}

func literal(l record.Literal) (rdf.Term, error) {
	switch {
	case l.Lang != "":
		lit, err := rdf.NewLangLiteral(l.Value, l.Lang)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return lit, nil
	case l.Datatype != "":
		dt, err := IRI(l.Datatype)
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(l.Value, dt), nil
	default:
		return rdf.NewTypedLiteral(l.Value, xsdString), nil
	}
}
