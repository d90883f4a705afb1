package mapping

import (
	"context"
	"fmt"

	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/resolver"
)

// ResolveOrBuild looks an entity up by its natural key. A match yields a
// reference to the canonical IRI; otherwise build constructs the full
// nested record. Empty attributes yield nil without calling the resolver.
func ResolveOrBuild(
	ctx context.Context,
	r resolver.Resolver,
	entityType string,
	attrs map[string]string,
	build func() (record.Record, error),
) (any, error) {
	if !hasValue(attrs) {
		return nil, nil
	}
	if r == nil {
		r = resolver.None
	}

	uri, found, err := r.Resolve(ctx, entityType, attrs)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", entityType, err)
	}
	if found {
		return record.IRI(uri), nil
	}
	return build()
}

func hasValue(attrs map[string]string) bool {
	for _, v := range attrs {
		if v != "" {
			return true
		}
	}
	return false
}
