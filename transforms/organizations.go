package transforms

import (
	"context"
	"strings"

	"github.com/c360studio/semharvest/mapping"
	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/translation"
	"github.com/c360studio/semharvest/vocabulary/harvest"
)

// defaultOrgTypes classifies organization type codes when no org_types
// table is configured.
var defaultOrgTypes = map[string]string{
	"university": harvest.ClassUniversity,
	"school":     harvest.ClassSchool,
	"department": harvest.ClassDepartment,
	"division":   harvest.ClassDivision,
	"institute":  harvest.ClassInstitute,
}

// Organizations maps organization records:
//
//	{"orgCode": "ABCD", "type": "DEPARTMENT",
//	 "names": [{"pref": "Y", "name": "Biology"}, {"pref": "N", "name": "Bio"}],
//	 "aliases": ["Dept. of Biology"], "parentCode": "HUMS", "url": "https://biology.example.edu"}
//
// The subject id is the org code's canonical alias; the parent is linked
// through the same alias table. An unmapped parent code leaves partOf absent.
func Organizations(d Deps) (*Transform, error) {
	graph := d.graph(NameOrganizations, harvest.GraphOrganizations)
	aliases := d.table(TableOrgAliases)

	types, err := d.Translations.Get(TableOrgTypes)
	if err != nil {
		types = translation.New(TableOrgTypes, defaultOrgTypes, translation.WithLogger(d.logger()))
	}

	return newTransform(d, NameOrganizations, graph, rules(
		[]mapping.Rule{
			{Key: record.KeyID, Extract: orgID(aliases), Single: true},
			{Key: record.KeyIDNS, Extract: mapping.Const(harvest.OrganizationNamespace), Single: true},
			{Key: record.KeyGraph, Extract: mapping.Const(graph), Single: true},
			{Key: record.DeleteKey(record.KeyType), Extract: mapping.Delete()},
			{Key: record.KeyType, Extract: mapping.Const(harvest.ClassOrganization)},
			{Key: record.KeyType, Extract: mapping.TranslatedPath("$.type", types)},
		},
		replace(harvest.PrefLabel, mapping.Preferred("$.names", "name"), true),
		replace(harvest.AltLabel, mapping.Path("$.aliases[*]"), false),
		replace(harvest.OrgCode, mapping.Path("$.orgCode"), true),
		replace(harvest.Homepage, mapping.LinkPath("$.url"), true),
		replace(harvest.PartOf, mapping.Func(func(_ context.Context, src mapping.Source) (any, error) {
			return orgRef(aliases, text(src, "$.parentCode")), nil
		}), true),
	))
}

// orgID prefers the canonical alias of the org code and falls back to the
// code itself.
func orgID(aliases *translation.Map) mapping.ExtractFunc {
	required := mapping.Required("$.orgCode")
	return func(ctx context.Context, src mapping.Source, acc record.Record) (any, error) {
		v, err := required(ctx, src, acc)
		if err != nil {
			return nil, err
		}
		code := v.(string)
		if alias, ok := aliases.Lookup(code); ok && alias != "" {
			return strings.ToLower(alias), nil
		}
		return strings.ToLower(code), nil
	}
}
