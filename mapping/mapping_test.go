package mapping

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/resolver"
	"github.com/c360studio/semharvest/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	prefLabel = "http://www.w3.org/2004/02/skos/core#prefLabel"
	altLabel  = "http://www.w3.org/2004/02/skos/core#altLabel"
	country   = "http://www.w3.org/2006/vcard/ns#hasCountryName"
	orgNS     = "https://example.org/org/"
)

func parse(t *testing.T, s string) Source {
	t.Helper()
	var src Source
	require.NoError(t, json.Unmarshal([]byte(s), &src))
	return src
}

func TestMapper_Map(t *testing.T) {
	countries := translation.New("countries", map[string]string{"usa": "http://sws.geonames.org/6252001/"})

	m, err := NewMapper([]Rule{
		{Key: record.KeyID, Extract: Required("$.code"), Single: true},
		{Key: record.KeyIDNS, Extract: Const(orgNS)},
		{Key: record.KeyType, Extract: Const("http://xmlns.com/foaf/0.1/Organization")},
		{Key: record.DeleteKey(prefLabel), Extract: Delete()},
		{Key: prefLabel, Extract: Path("$.name"), Single: true},
		{Key: altLabel, Extract: Path("$.aliases[*]")},
		{Key: country, Extract: TranslatedPath("$.country", countries), Single: true},
	}, WithName("orgs"))
	require.NoError(t, err)

	rec, err := m.Map(context.Background(), parse(t, `{
		"code": "ABCD",
		"name": "Department of Biology",
		"aliases": ["Biology", "BIO"],
		"country": "USA"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "ABCD", rec[record.KeyID])
	assert.Equal(t, orgNS, rec[record.KeyIDNS])
	assert.Equal(t, true, rec[record.DeleteKey(prefLabel)])
	assert.Equal(t, "Department of Biology", rec[prefLabel])
	assert.Equal(t, []any{"Biology", "BIO"}, rec[altLabel])
	assert.Equal(t, "http://sws.geonames.org/6252001/", rec[country])

	subject, err := rec.SubjectURI()
	require.NoError(t, err)
	assert.Equal(t, orgNS+"ABCD", subject)
}

func TestMapper_EmptyValuesLeaveKeyAbsent(t *testing.T) {
	m := MustMapper([]Rule{
		{Key: prefLabel, Extract: Path("$.missing"), Single: true},
		{Key: altLabel, Extract: Path("$.empty[*]")},
		{Key: country, Extract: Const("")},
	})

	rec, err := m.Map(context.Background(), parse(t, `{"empty": []}`))
	require.NoError(t, err)
	assert.Empty(t, rec)
}

func TestMapper_TranslationMissLeavesFieldAbsent(t *testing.T) {
	countries := translation.New("countries", map[string]string{"usa": "http://sws.geonames.org/6252001/"})
	m := MustMapper([]Rule{
		{Key: record.KeyID, Extract: Const("x")},
		{Key: country, Extract: TranslatedPath("$.country", countries), Single: true},
	})

	rec, err := m.Map(context.Background(), parse(t, `{"country": "Atlantis"}`))
	require.NoError(t, err)
	assert.NotContains(t, rec, country)
	assert.Equal(t, "x", rec[record.KeyID])
}

func TestMapper_Skip(t *testing.T) {
	m := MustMapper([]Rule{
		{Key: record.KeyID, Extract: Required("$.id"), Single: true},
		{Key: prefLabel, Extract: Func(func(context.Context, Source) (any, error) {
			t.Fatal("rules after a skip must not run")
			return nil, nil
		})},
	})

	rec, err := m.Map(context.Background(), parse(t, `{"name": "no id"}`))
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSkipRecord))

	var skip *SkipError
	require.ErrorAs(t, err, &skip)
	assert.Equal(t, "missing $.id", skip.Reason)
}

func TestMapper_ErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	m := MustMapper([]Rule{
		{Key: prefLabel, Extract: Func(func(context.Context, Source) (any, error) {
			return nil, boom
		})},
	}, WithName("people"))

	_, err := m.Map(context.Background(), Source{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsSkip(err))
	assert.Contains(t, err.Error(), "people: rule 0")
}

func TestMapper_ListRulesAppend(t *testing.T) {
	m := MustMapper([]Rule{
		{Key: altLabel, Extract: Path("$.a")},
		{Key: altLabel, Extract: Path("$.b[*]")},
	})

	rec, err := m.Map(context.Background(), parse(t, `{"a": "one", "b": ["two", "three"]}`))
	require.NoError(t, err)
	assert.Equal(t, []any{"one", "two", "three"}, rec[altLabel])
}

func TestNewMapper_Validation(t *testing.T) {
	_, err := NewMapper([]Rule{{Key: "", Extract: Const(1)}})
	assert.Error(t, err)

	_, err = NewMapper([]Rule{{Key: prefLabel}})
	assert.Error(t, err)

	assert.Panics(t, func() { MustMapper([]Rule{{Key: prefLabel}}) })
}

func TestEachAndNested(t *testing.T) {
	address := MustMapper([]Rule{
		{Key: record.KeyID, Extract: Required("$.id"), Single: true},
		{Key: record.KeyIDNS, Extract: Const("https://example.org/address/")},
		{Key: "http://www.w3.org/2006/vcard/ns#locality", Extract: Path("$.city"), Single: true},
	})
	m := MustMapper([]Rule{
		{Key: "#addresses", Extract: Each("$.addresses[*]", address)},
		{Key: "#primary", Extract: Nested(address)},
	})

	rec, err := m.Map(context.Background(), parse(t, `{
		"addresses": [{"id": "a1", "city": "Palo Alto"}, {"city": "no id"}, {"id": "a2", "city": "Menlo Park"}]
	}`))
	require.NoError(t, err)

	embedded := record.Records(rec["#addresses"])
	require.Len(t, embedded, 2)
	assert.Equal(t, "a1", embedded[0][record.KeyID])
	assert.Equal(t, "Menlo Park", embedded[1]["http://www.w3.org/2006/vcard/ns#locality"])
	assert.NotContains(t, rec, "#primary", "skipped nested record does not skip parent")
}

func TestIRIPath(t *testing.T) {
	m := MustMapper([]Rule{
		{Key: "http://purl.org/dc/terms/subject", Extract: IRIPath("$.topics[*].id", "https://example.org/topic/")},
	})
	rec, err := m.Map(context.Background(), parse(t, `{"topics": [{"id": 42}, {"id": "ml"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []any{record.IRI("https://example.org/topic/42"), record.IRI("https://example.org/topic/ml")},
		rec["http://purl.org/dc/terms/subject"])
}

func TestLinkPath(t *testing.T) {
	m := MustMapper([]Rule{
		{Key: "http://xmlns.com/foaf/0.1/homepage", Extract: LinkPath("$.links[*]")},
	})
	rec, err := m.Map(context.Background(), parse(t, `{"links": ["https://example.edu", "not a link", 7]}`))
	require.NoError(t, err)
	assert.Equal(t, []any{record.IRI("https://example.edu")}, rec["http://xmlns.com/foaf/0.1/homepage"])
}

func TestPreferredLabel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"bare string", `"Biology"`, "Biology", nil},
		{"flagged item", `[{"pref":"N","label":"Bio"},{"pref":"Y","label":"Biology"}]`, "Biology", nil},
		{"lowercase flag", `[{"pref":"n","label":"Bio"},{"pref":"y","label":"Biology"}]`, "Biology", nil},
		{"single unflagged item", `[{"label":"Biology"}]`, "Biology", nil},
		{"single string item", `["Biology"]`, "Biology", nil},
		{"object", `{"label":"Biology"}`, "Biology", nil},
		{"null", `null`, "", nil},
		{"empty array", `[]`, "", nil},
		{"no flagged item", `[{"label":"A"},{"label":"B"}]`, "", ErrNoPreferredLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v any
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			got, err := PreferredLabel(v, "label")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreferredRule(t *testing.T) {
	m := MustMapper([]Rule{{Key: prefLabel, Extract: Preferred("$.names", "label"), Single: true}})

	rec, err := m.Map(context.Background(), parse(t, `{"names": [{"pref":"Y","label":"Biology"},{"label":"Bio"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Biology", rec[prefLabel])

	_, err = m.Map(context.Background(), parse(t, `{"names": [{"label":"A"},{"label":"B"}]}`))
	assert.ErrorIs(t, err, ErrNoPreferredLabel)
}

func TestResolveOrBuild(t *testing.T) {
	attrs := map[string]string{"first_name": "Jane", "last_name": "Doe"}
	build := func() (record.Record, error) {
		return record.Record{record.KeyID: "https://example.org/person/new"}, nil
	}
	ctx := context.Background()

	found := resolver.NewStatic().Add(resolver.TypePerson, attrs, "https://example.org/person/jane")
	v, err := ResolveOrBuild(ctx, found, resolver.TypePerson, attrs, build)
	require.NoError(t, err)
	assert.Equal(t, record.IRI("https://example.org/person/jane"), v)

	v, err = ResolveOrBuild(ctx, resolver.NewStatic(), resolver.TypePerson, attrs, build)
	require.NoError(t, err)
	assert.Equal(t, record.Record{record.KeyID: "https://example.org/person/new"}, v)

	v, err = ResolveOrBuild(ctx, nil, resolver.TypePerson, map[string]string{"first_name": ""}, build)
	require.NoError(t, err)
	assert.Nil(t, v)

	failing := resolver.Func(func(context.Context, string, map[string]string) (string, bool, error) {
		return "", false, errors.New("503")
	})
	_, err = ResolveOrBuild(ctx, failing, resolver.TypePerson, attrs, build)
	assert.Error(t, err)
}
