// Package resolver looks up canonical URIs for people, organizations, grants
// and topics from a natural-key description, so the mapper can reference an
// existing entity instead of minting a new one.
package resolver

import (
	"context"
	"sort"
	"strings"
)

// Entity types understood by the resolver service.
const (
	TypePerson       = "person"
	TypeOrganization = "organization"
	TypeGrant        = "grant"
	TypeTopic        = "topic"
)

// Resolver maps a natural-key description to a canonical URI. A missing entity
// is reported as found=false with a nil error; errors are reserved for
// transport and server failures.
type Resolver interface {
	Resolve(ctx context.Context, entityType string, attrs map[string]string) (uri string, found bool, err error)
}

// Func adapts a function to the Resolver interface.
type Func func(ctx context.Context, entityType string, attrs map[string]string) (string, bool, error)

// Resolve calls f.
func (f Func) Resolve(ctx context.Context, entityType string, attrs map[string]string) (string, bool, error) {
	return f(ctx, entityType, attrs)
}

// None never finds anything. It is the resolver used when no service is configured.
var None Resolver = Func(func(context.Context, string, map[string]string) (string, bool, error) {
	return "", false, nil
})

// Key builds a stable lookup key for an entity description.
func Key(entityType string, attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(entityType)
	for _, k := range keys {
		sb.WriteByte('|')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strings.ToLower(strings.TrimSpace(attrs[k])))
	}
	return sb.String()
}
