// Package record defines the Mapped Record, the intermediate representation
// that sits between source JSON and graph update statements.
//
// A Record is a map keyed by field identifiers. The first character of a key
// carries its meaning:
//
//	@id, @id_ns, @graph, @type   metadata
//	!<predicate>                 delete all existing values of predicate first
//	#<name>                      embedded resource compiled as its own subject
//	anything else                predicate IRI
package record

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Metadata keys.
const (
	KeyID    = "@id"
	KeyIDNS  = "@id_ns"
	KeyGraph = "@graph"
	KeyType  = "@type"
)

// Key prefixes.
const (
	MetaPrefix   = "@"
	DeletePrefix = "!"
	EmbedPrefix  = "#"
)

// rdfType is the expanded form of @type, accepted in delete markers.
const rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// ErrNoSubject is returned when a record cannot resolve an absolute subject IRI.
var ErrNoSubject = errors.New("record has no resolvable subject")

// Record is one RDF subject plus its embedded subjects.
type Record map[string]any

// DeleteKey returns the deletion marker key for a predicate.
func DeleteKey(predicate string) string {
	return DeletePrefix + predicate
}

// IsMeta reports whether key is a metadata key.
func IsMeta(key string) bool { return strings.HasPrefix(key, MetaPrefix) }

// IsDeleteMarker reports whether key is a deletion marker.
func IsDeleteMarker(key string) bool { return strings.HasPrefix(key, DeletePrefix) }

// IsEmbedded reports whether key names an embedded resource.
func IsEmbedded(key string) bool { return strings.HasPrefix(key, EmbedPrefix) }

// IsPredicate reports whether key is an ordinary predicate key.
func IsPredicate(key string) bool {
	return key != "" && !IsMeta(key) && !IsDeleteMarker(key) && !IsEmbedded(key)
}

// SubjectURI resolves the effective subject: @id when it is already absolute,
// otherwise @id_ns + @id.
func (r Record) SubjectURI() (string, error) {
	id, _ := r[KeyID].(string)
	if id == "" {
		if iri, ok := r[KeyID].(IRI); ok {
			id = string(iri)
		}
	}
	if id == "" {
		return "", ErrNoSubject
	}
	if IsAbsoluteIRI(id) {
		return id, nil
	}
	ns, _ := r[KeyIDNS].(string)
	if ns == "" {
		return "", fmt.Errorf("%w: relative @id %q without @id_ns", ErrNoSubject, id)
	}
	full := ns + id
	if !IsAbsoluteIRI(full) {
		return "", fmt.Errorf("%w: %q is not absolute", ErrNoSubject, full)
	}
	return full, nil
}

// Graph returns the record's own @graph, or "" when it inherits one.
func (r Record) Graph() string {
	g, _ := r[KeyGraph].(string)
	return g
}

// Types returns the @type values followed by any values stored under the
// expanded rdf:type key, without duplicates.
func (r Record) Types() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, key := range []string{KeyType, rdfType} {
		for _, v := range Values(r[key]) {
			var t string
			switch tv := v.(type) {
			case string:
				t = tv
			case IRI:
				t = string(tv)
			default:
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// Deletes reports whether the record carries a true deletion marker for predicate.
func (r Record) Deletes(predicate string) bool {
	v, ok := r[DeleteKey(predicate)].(bool)
	return ok && v
}

// DeletesTypes reports whether the rdf:type set must be wiped before insert.
func (r Record) DeletesTypes() bool {
	return r.Deletes(KeyType) || r.Deletes(rdfType)
}

// MarkDelete sets the deletion marker for predicate.
func (r Record) MarkDelete(predicate string) {
	r[DeleteKey(predicate)] = true
}

// Predicates returns the ordinary predicate keys of the record, including
// predicates that only appear in a deletion marker, sorted. rdf:type is
// excluded; it is reported by Types.
func (r Record) Predicates() []string {
	seen := make(map[string]struct{})
	for k := range r {
		switch {
		case IsPredicate(k):
			if k != rdfType {
				seen[k] = struct{}{}
			}
		case IsDeleteMarker(k):
			p := strings.TrimPrefix(k, DeletePrefix)
			if p != KeyType && p != rdfType && r.Deletes(p) {
				seen[p] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

// EmbeddedKeys returns the #-prefixed keys, sorted.
func (r Record) EmbeddedKeys() []string {
	seen := make(map[string]struct{})
	for k := range r {
		if IsEmbedded(k) {
			seen[k] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsAbsoluteIRI reports whether s parses as an absolute IRI.
func IsAbsoluteIRI(s string) bool {
	if s == "" || strings.ContainsAny(s, " <>\"{}|\\^`") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs()
}

// Values normalizes a field value into a flat list, dropping nil and empty
// strings. Nested records are kept as Record.
func Values(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, Values(item)...)
		}
		return out
	case []string:
		out := make([]any, 0, len(t))
		for _, s := range t {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []Record:
		out := make([]any, 0, len(t))
		for _, r := range t {
			if r != nil {
				out = append(out, r)
			}
		}
		return out
	case map[string]any:
		return []any{Record(t)}
	case string:
		if t == "" {
			return nil
		}
		return []any{t}
	default:
		return []any{t}
	}
}

// Records returns the nested records contained in v.
func Records(v any) []Record {
	var out []Record
	for _, item := range Values(v) {
		if r, ok := item.(Record); ok {
			out = append(out, r)
		}
	}
	return out
}
