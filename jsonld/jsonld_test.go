package jsonld

import (
	"strings"
	"testing"

	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/vocabulary/harvest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person() record.Record {
	return record.Record{
		record.KeyID:                        "jdoe",
		record.KeyIDNS:                      harvest.PersonNamespace,
		record.KeyType:                      harvest.ClassPerson,
		record.DeleteKey(harvest.PrefLabel): true,
		harvest.PrefLabel:                   record.Literal{Value: "Jane Doe", Lang: "en"},
		harvest.Volume:                      3,
		harvest.RelatedBy:                   record.IRI(harvest.OrganizationNamespace + "bio"),
		"#name": record.Record{
			record.KeyID:      harvest.PersonNamespace + "jdoe-name",
			record.KeyGraph:   harvest.GraphOrganizations,
			harvest.GivenName: "Jane",
		},
	}
}

func TestFromRecord(t *testing.T) {
	doc, err := FromRecord(person(), harvest.GraphPeople)
	require.NoError(t, err)

	named, ok := doc["@graph"].([]any)
	require.True(t, ok)
	require.Len(t, named, 2)

	people := named[0].(map[string]any)
	assert.Equal(t, harvest.GraphPeople, people["@id"])
	nodes := people["@graph"].([]any)
	require.Len(t, nodes, 1)

	node := nodes[0].(map[string]any)
	assert.Equal(t, harvest.PersonNamespace+"jdoe", node["@id"])
	assert.Equal(t, []any{harvest.ClassPerson}, node["@type"])
	assert.Equal(t, []any{map[string]any{"@value": "Jane Doe", "@language": "en"}}, node[harvest.PrefLabel])
	assert.Equal(t, []any{map[string]any{"@value": "3", "@type": graph.XSDInteger}}, node[harvest.Volume])
	assert.Equal(t, []any{map[string]any{"@id": harvest.OrganizationNamespace + "bio"}}, node[harvest.RelatedBy])

	orgs := named[1].(map[string]any)
	assert.Equal(t, harvest.GraphOrganizations, orgs["@id"])
}

func TestFromStatements_IgnoresDeletes(t *testing.T) {
	doc, err := FromStatements([]graph.Statement{graph.Delete(harvest.GraphPeople, harvest.PersonNamespace+"x", harvest.PrefLabel)})
	require.NoError(t, err)
	assert.Empty(t, doc["@graph"])
}

func TestToNQuads(t *testing.T) {
	doc, err := FromRecord(person(), harvest.GraphPeople)
	require.NoError(t, err)

	nq, err := ToNQuads(doc)
	require.NoError(t, err)

	subject := "<" + harvest.PersonNamespace + "jdoe>"
	lines := strings.Split(strings.TrimSpace(nq), "\n")
	assert.Len(t, lines, 5)
	assert.Contains(t, nq, subject+" <"+harvest.PrefLabel+"> \"Jane Doe\"@en <"+harvest.GraphPeople+"> .")
	assert.Contains(t, nq, subject+" <"+harvest.RDFType+"> <"+harvest.ClassPerson+"> <"+harvest.GraphPeople+"> .")
	assert.Contains(t, nq, "\"Jane\" <"+harvest.GraphOrganizations+"> .")
}

func TestCompact(t *testing.T) {
	doc, err := FromRecord(record.Record{
		record.KeyID:      harvest.PersonNamespace + "jdoe",
		harvest.GivenName: "Jane",
	}, harvest.GraphPeople)
	require.NoError(t, err)

	compacted, err := Compact(doc)
	require.NoError(t, err)
	assert.Contains(t, compacted, "@context")
}
