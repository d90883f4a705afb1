package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphIRI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"stanford_people", GraphNamespace + "stanford_people"},
		{"grants-2024.v2", GraphNamespace + "grants-2024.v2"},
		{"https://example.org/graph/people", "https://example.org/graph/people"},
		{"urn:graph:people", "urn:graph:people"},
	}
	for _, tt := range tests {
		got, err := GraphIRI(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "stanford people", "people/2024", "<x>"} {
		_, err := GraphIRI(bad)
		assert.Error(t, err, bad)
	}
}
