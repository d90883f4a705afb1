package transforms

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/mapping"
	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/resolver"
	"github.com/c360studio/semharvest/translation"
	"github.com/c360studio/semharvest/vocabulary/harvest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const janeURI = "https://profiles.example.edu/person/jane-doe"

func testDeps(logs *bytes.Buffer, r resolver.Resolver) Deps {
	logger := slog.New(slog.NewTextHandler(logs, nil))
	return Deps{
		Resolver: r,
		Translations: translation.NewSet(
			translation.New(TableOrgAliases, map[string]string{"ABCD": "biology", "HUMS": "humanities"}, translation.WithLogger(logger)),
			translation.New(TableCountries, map[string]string{"United States": "6252001"}, translation.WithLogger(logger)),
		),
		Logger: logger,
	}
}

func grantSource() mapping.Source {
	return mapping.Source{
		"spoNumber":      "12345-A",
		"projectTitle":   "T1",
		"startDate":      "2020-01-01",
		"endDate":        "2023-12-31T00:00:00Z",
		"amount":         150000.0,
		"departmentCode": "ABCD",
		"sponsor":        map[string]any{"code": "NIH", "name": "National Institutes of Health"},
		"investigators": []any{
			map[string]any{"role": "PI", "first_name": "Jane", "last_name": "Doe"},
		},
	}
}

func roleOf(t *testing.T, rec record.Record) any {
	t.Helper()
	roles := record.Records(rec[harvest.RelatedBy])
	require.Len(t, roles, 1)
	return roles[0][harvest.RoleOf]
}

func subjects(t *testing.T, rec record.Record, defaultGraph string) map[string]string {
	t.Helper()
	stmts, err := graph.Compile(rec, defaultGraph)
	require.NoError(t, err)
	out := make(map[string]string)
	for _, s := range stmts {
		out[s.Subject] = s.Graph
	}
	return out
}

func TestGrants_ResolvedInvestigatorIsReferenced(t *testing.T) {
	var logs bytes.Buffer
	static := resolver.NewStatic().Add(resolver.TypePerson,
		map[string]string{"first_name": "Jane", "last_name": "Doe"}, janeURI)

	tr, err := Grants(testDeps(&logs, static))
	require.NoError(t, err)

	rec, err := tr.Map(context.Background(), grantSource())
	require.NoError(t, err)
	assert.Equal(t, record.IRI(janeURI), roleOf(t, rec))

	for subject := range subjects(t, rec, tr.Graph) {
		assert.False(t, strings.HasPrefix(subject, harvest.PersonNamespace),
			"no person subgraph expected, got subject %s", subject)
	}
}

func TestGrants_UnresolvedInvestigatorIsBuilt(t *testing.T) {
	var logs bytes.Buffer
	tr, err := Grants(testDeps(&logs, resolver.NewStatic()))
	require.NoError(t, err)

	rec, err := tr.Map(context.Background(), grantSource())
	require.NoError(t, err)

	person, ok := roleOf(t, rec).(record.Record)
	require.True(t, ok, "expected a constructed person record")

	id := resolver.DeterministicID(resolver.TypePerson, "Jane", "Doe")
	assert.Equal(t, id, person[record.KeyID])
	assert.Equal(t, "Jane Doe", person[harvest.PrefLabel])

	personIRI := harvest.PersonNamespace + id
	subs := subjects(t, rec, tr.Graph)
	assert.Equal(t, harvest.GraphPeople, subs[personIRI])
	assert.Equal(t, harvest.GraphPeople, subs[harvest.ContactNamespace+"name/"+id])
	assert.Equal(t, harvest.GraphGrants, subs[harvest.GrantNamespace+"12345-A"])

	// Same input, same id.
	again, err := tr.Map(context.Background(), grantSource())
	require.NoError(t, err)
	assert.Equal(t, id, roleOf(t, again).(record.Record)[record.KeyID])
}

func TestGrants_Fields(t *testing.T) {
	var logs bytes.Buffer
	tr, err := Grants(testDeps(&logs, nil))
	require.NoError(t, err)

	rec, err := tr.Map(context.Background(), grantSource())
	require.NoError(t, err)

	assert.Equal(t, "12345-A", rec[record.KeyID])
	assert.Equal(t, "T1", rec[harvest.PrefLabel])
	assert.Equal(t, true, rec[record.DeleteKey(harvest.PrefLabel)])
	assert.Equal(t, "2020-01-01", rec[harvest.StartDate].(record.Date).String())
	assert.Equal(t, "2023-12-31", rec[harvest.EndDate].(record.Date).String())
	assert.Equal(t, 150000.0, rec[harvest.TotalAmount])
	assert.Equal(t, record.IRI(harvest.OrganizationNamespace+"biology"), rec[harvest.Affiliation])

	sponsor, ok := rec[harvest.FundedBy].(record.Record)
	require.True(t, ok)
	assert.Equal(t, "NIH", sponsor[harvest.SponsorCode])
	assert.Equal(t, harvest.GraphOrganizations, sponsor[record.KeyGraph])
}

func TestGrants_SkipsWithoutSPONumber(t *testing.T) {
	var logs bytes.Buffer
	tr, err := Grants(testDeps(&logs, nil))
	require.NoError(t, err)

	src := grantSource()
	delete(src, "spoNumber")
	rec, err := tr.Map(context.Background(), src)
	assert.Nil(t, rec)
	assert.True(t, mapping.IsSkip(err))
}

func TestGrants_BadDateIsAnError(t *testing.T) {
	var logs bytes.Buffer
	tr, err := Grants(testDeps(&logs, nil))
	require.NoError(t, err)

	src := grantSource()
	src["startDate"] = "someday"
	_, err = tr.Map(context.Background(), src)
	require.Error(t, err)
	assert.False(t, mapping.IsSkip(err))
}

func TestOrganizations_UnmappedParentIsAbsent(t *testing.T) {
	var logs bytes.Buffer
	tr, err := Organizations(testDeps(&logs, nil))
	require.NoError(t, err)

	rec, err := tr.Map(context.Background(), mapping.Source{
		"orgCode":    "ABCD",
		"type":       "DEPARTMENT",
		"names":      []any{map[string]any{"pref": "N", "name": "Bio"}, map[string]any{"pref": "Y", "name": "Biology"}},
		"parentCode": "ZZZZ",
	})
	require.NoError(t, err)

	_, has := rec[harvest.PartOf]
	assert.False(t, has, "unmapped parent must leave partOf absent")
	assert.Contains(t, logs.String(), "Unmapped translation key")
	assert.Contains(t, logs.String(), "ZZZZ")

	assert.Equal(t, "biology", rec[record.KeyID])
	assert.Equal(t, "Biology", rec[harvest.PrefLabel])
	assert.ElementsMatch(t, []string{harvest.ClassOrganization, harvest.ClassDepartment}, rec.Types())
}

func TestOrganizations_Fields(t *testing.T) {
	var logs bytes.Buffer
	tr, err := Organizations(testDeps(&logs, nil))
	require.NoError(t, err)

	rec, err := tr.Map(context.Background(), mapping.Source{
		"orgCode":    "QQQQ",
		"names":      "Chemistry",
		"aliases":    []any{"Chem", "Dept. of Chemistry"},
		"parentCode": "HUMS",
		"url":        "https://chem.example.edu",
	})
	require.NoError(t, err)

	assert.Equal(t, "qqqq", rec[record.KeyID])
	assert.Equal(t, "Chemistry", rec[harvest.PrefLabel])
	assert.Equal(t, []any{"Chem", "Dept. of Chemistry"}, rec[harvest.AltLabel])
	assert.Equal(t, record.IRI(harvest.OrganizationNamespace+"humanities"), rec[harvest.PartOf])
	assert.Equal(t, record.IRI("https://chem.example.edu"), rec[harvest.Homepage])

	stmts, err := graph.Compile(rec, tr.Graph)
	require.NoError(t, err)
	assert.Equal(t, harvest.GraphOrganizations, stmts[0].Graph)
}

func TestOrganizations_AmbiguousLabelIsAnError(t *testing.T) {
	var logs bytes.Buffer
	tr, err := Organizations(testDeps(&logs, nil))
	require.NoError(t, err)

	_, err = tr.Map(context.Background(), mapping.Source{
		"orgCode": "ABCD",
		"names":   []any{map[string]any{"name": "A"}, map[string]any{"name": "B"}},
	})
	assert.ErrorIs(t, err, mapping.ErrNoPreferredLabel)
}

func TestPeople(t *testing.T) {
	var logs bytes.Buffer
	static := resolver.NewStatic().Add(resolver.TypePerson,
		map[string]string{"first_name": "Jane", "last_name": "Doe"}, janeURI)
	tr, err := People(testDeps(&logs, static))
	require.NoError(t, err)

	rec, err := tr.Map(context.Background(), mapping.Source{
		"profileId":   4211.0,
		"uid":         "sroe",
		"displayName": "Sam Roe",
		"names":       map[string]any{"legal": map[string]any{"firstName": "Sam", "lastName": "Roe"}},
		"bio":         map[string]any{"text": "Studies things."},
		"email":       "sroe@example.edu",
		"address":     map[string]any{"street": "1 Main St", "city": "Palo Alto", "state": "CA", "zip": "94305", "country": "United States"},
		"titles":      []any{map[string]any{"title": "Professor", "orgCode": "ABCD", "rank": 1.0}},
		"advisees":    []any{map[string]any{"first_name": "Jane", "last_name": "Doe"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "4211", rec[record.KeyID])
	assert.Equal(t, record.Literal{Value: "Studies things.", Lang: "en"}, rec[harvest.Biography])
	assert.Equal(t, record.IRI(harvest.ContactNamespace+"4211"), rec[harvest.HasContact])
	assert.Equal(t, []any{record.IRI(janeURI)}, rec[harvest.Advises])

	positions := record.Records(rec[harvest.RelatedBy])
	require.Len(t, positions, 1)
	assert.Equal(t, []any{
		record.IRI(harvest.PersonNamespace + "4211"),
		record.IRI(harvest.OrganizationNamespace + "biology"),
	}, positions[0][harvest.Relates])

	card, ok := rec["#contact"].(record.Record)
	require.True(t, ok)
	addr := card[harvest.HasAddress].(record.Record)
	assert.Equal(t, record.IRI(harvest.GEONAME+"6252001/"), addr[harvest.HasCountry])

	stmts, err := graph.Compile(rec, tr.Graph)
	require.NoError(t, err)
	var contactInsert bool
	for _, s := range stmts {
		assert.NotEqual(t, "#contact", s.Predicate)
		if s.Subject == harvest.ContactNamespace+"4211" && s.Op == graph.OpInsert {
			contactInsert = true
			assert.Equal(t, harvest.GraphPeople, s.Graph)
		}
	}
	assert.True(t, contactInsert)
}

func TestPublications(t *testing.T) {
	var logs bytes.Buffer
	static := resolver.NewStatic().Add(resolver.TypeTopic,
		map[string]string{"label": "Genomics"}, "https://topics.example.edu/genomics")
	tr, err := Publications(testDeps(&logs, static))
	require.NoError(t, err)

	rec, err := tr.Map(context.Background(), mapping.Source{
		"doi":      "10.1000/xyz",
		"title":    "On Things",
		"year":     2021.0,
		"subjects": []any{"Genomics", "Ecology"},
		"authors": []any{
			map[string]any{"first_name": "Jane", "last_name": "Doe"},
			map[string]any{"first_name": "Sam", "last_name": "Roe"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, record.Literal{Value: "2021", Datatype: xsdGYear}, rec[harvest.Created])

	subs := record.Values(rec[harvest.Subject])
	require.Len(t, subs, 2)
	assert.Equal(t, record.IRI("https://topics.example.edu/genomics"), subs[0])
	assert.Equal(t, "Ecology", subs[1].(record.Record)[harvest.PrefLabel])

	auths := record.Records(rec[harvest.RelatedBy])
	require.Len(t, auths, 2)
	assert.Equal(t, 2.0, auths[1][harvest.Rank])

	_, err = graph.Compile(rec, tr.Graph)
	require.NoError(t, err)

	_, err = tr.Map(context.Background(), mapping.Source{"title": "No DOI"})
	assert.True(t, mapping.IsSkip(err))
}

func TestConstructors(t *testing.T) {
	var logs bytes.Buffer
	deps := testDeps(&logs, nil)
	deps.Graphs = map[string]string{NamePeople: "https://example.edu/graph/staff"}

	for name, build := range Constructors() {
		tr, err := build(deps)
		require.NoError(t, err, name)
		assert.Equal(t, name, tr.Name)
		assert.NotEmpty(t, tr.Graph)
	}

	tr, err := People(deps)
	require.NoError(t, err)
	assert.Equal(t, "https://example.edu/graph/staff", tr.Graph)
}

func TestConstructors_GraphOverrides(t *testing.T) {
	var logs bytes.Buffer
	deps := testDeps(&logs, nil)
	deps.Graphs = map[string]string{NamePeople: "stanford_people"}

	tr, err := People(deps)
	require.NoError(t, err)
	assert.Equal(t, harvest.GraphNamespace+"stanford_people", tr.Graph)

	rec := record.Record{record.KeyID: "https://example.edu/person/1", harvest.PrefLabel: "A"}
	_, err = graph.Compile(rec, tr.Graph)
	require.NoError(t, err)

	deps.Graphs = map[string]string{NameGrants: "not a graph"}
	_, err = Grants(deps)
	assert.ErrorContains(t, err, "graphs.grants")
}
