package transforms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semharvest/extract"
	"github.com/c360studio/semharvest/mapping"
	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/resolver"
	"github.com/c360studio/semharvest/vocabulary/harvest"
)

var grantInvestigators = extract.MustCompile("$.investigators[*]")

// Grants maps sponsored project records keyed by spoNumber:
//
//	{"spoNumber": "12345-A", "projectTitle": "...", "startDate": "2020-01-01",
//	 "endDate": "2023-12-31", "amount": 150000,
//	 "sponsor": {"code": "NIH", "name": "National Institutes of Health"},
//	 "departmentCode": "ABCD",
//	 "investigators": [{"role": "PI", "first_name": "Jane", "last_name": "Doe"}]}
//
// Investigators and sponsors are resolved to existing entities when the
// resolver knows them and built as new subjects otherwise.
func Grants(d Deps) (*Transform, error) {
	graph := d.graph(NameGrants, harvest.GraphGrants)
	aliases := d.table(TableOrgAliases)

	return newTransform(d, NameGrants, graph, rules(
		[]mapping.Rule{
			{Key: record.KeyID, Extract: mapping.Required("$.spoNumber"), Single: true},
			{Key: record.KeyIDNS, Extract: mapping.Const(harvest.GrantNamespace), Single: true},
			{Key: record.KeyGraph, Extract: mapping.Const(graph), Single: true},
			{Key: record.KeyType, Extract: mapping.Const(harvest.ClassGrant)},
		},
		replace(harvest.PrefLabel, mapping.Path("$.projectTitle"), true),
		replace(harvest.AwardNumber, mapping.Path("$.spoNumber"), true),
		replace(harvest.StartDate, date("$.startDate"), true),
		replace(harvest.EndDate, date("$.endDate"), true),
		replace(harvest.TotalAmount, mapping.Path("$.amount"), true),
		replace(harvest.FundedBy, mapping.Func(func(ctx context.Context, src mapping.Source) (any, error) {
			return sponsorRef(ctx, d, text(src, "$.sponsor.code"), text(src, "$.sponsor.name"))
		}), true),
		replace(harvest.Affiliation, mapping.Func(func(_ context.Context, src mapping.Source) (any, error) {
			return orgRef(aliases, text(src, "$.departmentCode")), nil
		}), true),
		replace(harvest.RelatedBy, mapping.Func(func(ctx context.Context, src mapping.Source) (any, error) {
			return investigatorRoles(ctx, d, src)
		}), false),
	))
}

// date parses a YYYY-MM-DD value. Unparseable dates are errors.
func date(expr string) mapping.ExtractFunc {
	return mapping.Func(func(_ context.Context, src mapping.Source) (any, error) {
		s := text(src, expr)
		if s == "" {
			return nil, nil
		}
		if len(s) > len(time.DateOnly) {
			s = s[:len(time.DateOnly)]
		}
		d, err := record.ParseDate(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", expr, err)
		}
		return d, nil
	})
}

// sponsorRef resolves the funding organization by name. Unknown sponsors are
// built in the organizations graph.
func sponsorRef(ctx context.Context, d Deps, code, name string) (any, error) {
	attrs := map[string]string{"name": name}
	return mapping.ResolveOrBuild(ctx, d.resolver(), resolver.TypeOrganization, attrs, func() (record.Record, error) {
		org := record.Record{
			record.KeyID:      resolver.DeterministicID(resolver.TypeOrganization, name),
			record.KeyIDNS:    harvest.OrganizationNamespace,
			record.KeyGraph:   d.graph(NameOrganizations, harvest.GraphOrganizations),
			record.KeyType:    []any{harvest.ClassOrganization},
			harvest.PrefLabel: name,
		}
		if code != "" {
			org[harvest.SponsorCode] = code
		}
		return org, nil
	})
}

// investigatorRoles builds a PI or co-PI role per investigator. Each role
// relates the grant to the resolved or newly built person.
func investigatorRoles(ctx context.Context, d Deps, src mapping.Source) ([]any, error) {
	spo := text(src, "$.spoNumber")
	grant := record.IRI(harvest.GrantNamespace + spo)

	var out []any
	for _, item := range grantInvestigators.Values(src) {
		first, last := text(item, "$.first_name"), text(item, "$.last_name")
		person, err := personRef(ctx, d, first, last)
		if err != nil {
			return nil, err
		}
		if person == nil {
			continue
		}

		class, label := harvest.ClassCoPIRole, "Co-Principal Investigator"
		if strings.EqualFold(text(item, "$.role"), "PI") {
			class, label = harvest.ClassPIRole, "Principal Investigator"
		}
		out = append(out, record.Record{
			record.KeyID:      resolver.DeterministicID("role", spo, first, last, class),
			record.KeyIDNS:    harvest.RoleNamespace,
			record.KeyType:    []any{class},
			harvest.PrefLabel: label,
			harvest.Relates:   []any{grant},
			harvest.RoleOf:    person,
		})
	}
	return out, nil
}
