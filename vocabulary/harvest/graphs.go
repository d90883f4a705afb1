package harvest

import (
	"fmt"
	"strings"

	"github.com/c360studio/semharvest/record"
)

// GraphIRI returns the named graph IRI for a configured graph value. Absolute
// IRIs are returned unchanged; bare names such as "stanford_people" are
// placed under GraphNamespace.
func GraphIRI(value string) (string, error) {
	if record.IsAbsoluteIRI(value) {
		return value, nil
	}
	if value == "" || strings.IndexFunc(value, notNameRune) >= 0 {
		return "", fmt.Errorf("graph %q is neither an absolute IRI nor a bare name", value)
	}
	return GraphNamespace + value, nil
}

func notNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case r == '_' || r == '-' || r == '.':
		return false
	}
	return true
}
