package resolver

import (
	"strings"

	"github.com/google/uuid"
)

// idNamespace seeds name-based UUIDs for minted entities.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://semharvest.dev/entity/"))

// DeterministicID derives a stable identifier for a newly constructed entity
// from its type and natural-key parts. The same inputs always give the same id,
// so re-running a transform for an unresolved entity rewrites the same subject.
func DeterministicID(entityType string, parts ...string) string {
	normalized := make([]string, 0, len(parts)+1)
	normalized = append(normalized, entityType)
	for _, p := range parts {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(p)))
	}
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(normalized, "|"))).String()
}
