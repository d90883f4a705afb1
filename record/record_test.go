package record

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectURI(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		want    string
		wantErr bool
	}{
		{"absolute id", Record{KeyID: "http://example.org/p/1"}, "http://example.org/p/1", false},
		{"id with namespace", Record{KeyID: "1", KeyIDNS: "http://example.org/p/"}, "http://example.org/p/1", false},
		{"iri typed id", Record{KeyID: IRI("urn:uuid:1234")}, "urn:uuid:1234", false},
		{"relative without namespace", Record{KeyID: "1"}, "", true},
		{"missing id", Record{KeyIDNS: "http://example.org/p/"}, "", true},
		{"namespace not absolute", Record{KeyID: "1", KeyIDNS: "p/"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rec.SubjectURI()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoSubject))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPredicates(t *testing.T) {
	rec := Record{
		KeyID:                             "http://example.org/p/1",
		KeyType:                           "http://xmlns.com/foaf/0.1/Person",
		"http://example.org/b":            "x",
		"http://example.org/a":            "y",
		DeleteKey("http://example.org/c"): true,
		DeleteKey(KeyType):                true,
		"#name":                           Record{},
	}

	assert.Equal(t, []string{"http://example.org/a", "http://example.org/b", "http://example.org/c"}, rec.Predicates())
	assert.Equal(t, []string{"#name"}, rec.EmbeddedKeys())
	assert.True(t, rec.DeletesTypes())
	assert.True(t, rec.Deletes("http://example.org/c"))
	assert.False(t, rec.Deletes("http://example.org/a"))
}

func TestValues(t *testing.T) {
	nested := map[string]any{KeyID: "http://example.org/n"}

	got := Values([]any{"a", "", nil, []any{"b", nested}, 3})
	require.Len(t, got, 4)
	assert.Equal(t, "a", got[0])
	assert.Equal(t, "b", got[1])
	assert.Equal(t, Record(nested), got[2])
	assert.Equal(t, 3, got[3])

	assert.Empty(t, Values(nil))
	assert.Empty(t, Values(""))
	assert.Len(t, Records([]any{nested, "x"}), 1)
}

func TestTypes(t *testing.T) {
	rec := Record{KeyType: []any{"http://example.org/A", IRI("http://example.org/B")}}
	assert.Equal(t, []string{"http://example.org/A", "http://example.org/B"}, rec.Types())

	expanded := Record{
		KeyType:                "http://example.org/A",
		rdfType:                []any{"http://example.org/C", "http://example.org/A"},
		DeleteKey(rdfType):     true,
		"http://example.org/p": "v",
	}
	assert.Equal(t, []string{"http://example.org/A", "http://example.org/C"}, expanded.Types())
	assert.Equal(t, []string{"http://example.org/p"}, expanded.Predicates())
	assert.True(t, expanded.DeletesTypes())
}

func TestIsAbsoluteIRI(t *testing.T) {
	assert.True(t, IsAbsoluteIRI("https://example.org/x"))
	assert.True(t, IsAbsoluteIRI("urn:isbn:123"))
	assert.False(t, IsAbsoluteIRI("relative/path"))
	assert.False(t, IsAbsoluteIRI("http://example.org/with space"))
	assert.False(t, IsAbsoluteIRI(""))
}
