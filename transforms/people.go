package transforms

import (
	"context"

	"github.com/c360studio/semharvest/extract"
	"github.com/c360studio/semharvest/mapping"
	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/resolver"
	"github.com/c360studio/semharvest/translation"
	"github.com/c360studio/semharvest/vocabulary/harvest"
)

var (
	peopleTitles   = extract.MustCompile("$.titles[*]")
	peopleAdvisees = extract.MustCompile("$.advisees[*]")
)

// People maps faculty profile records:
//
//	{"profileId": 4211, "uid": "jdoe", "displayName": "Jane Doe",
//	 "names": {"legal": {"firstName": "Jane", "middleName": "Q", "lastName": "Doe"}},
//	 "bio": {"text": "..."}, "email": "jdoe@example.edu",
//	 "address": {"street": "...", "city": "...", "state": "CA", "zip": "...", "country": "United States"},
//	 "titles": [{"title": "Professor", "orgCode": "ABCD", "rank": 1}],
//	 "advisees": [{"first_name": "Sam", "last_name": "Lee"}]}
//
// Profiles without a profileId are skipped.
func People(d Deps) (*Transform, error) {
	graph := d.graph(NamePeople, harvest.GraphPeople)
	aliases := d.table(TableOrgAliases)
	countries := d.table(TableCountries)

	return newTransform(d, NamePeople, graph, rules(
		[]mapping.Rule{
			{Key: record.KeyID, Extract: mapping.Required("$.profileId"), Single: true},
			{Key: record.KeyIDNS, Extract: mapping.Const(harvest.PersonNamespace), Single: true},
			{Key: record.KeyGraph, Extract: mapping.Const(graph), Single: true},
			{Key: record.DeleteKey(record.KeyType), Extract: mapping.Delete()},
			{Key: record.KeyType, Extract: mapping.Const([]any{harvest.ClassPerson, harvest.ClassAgent})},
		},
		replace(harvest.PrefLabel, mapping.Path("$.displayName"), true),
		replace(harvest.SunetID, mapping.Path("$.uid"), true),
		replace(harvest.Biography, mapping.Func(biography), true),
		replace(harvest.HasContact, mapping.Func(func(_ context.Context, src mapping.Source) (any, error) {
			return record.IRI(harvest.ContactNamespace + text(src, "$.profileId")), nil
		}), true),
		[]mapping.Rule{
			{Key: "#contact", Extract: mapping.Func(func(_ context.Context, src mapping.Source) (any, error) {
				return contactCard(src, countries), nil
			}), Single: true},
		},
		replace(harvest.RelatedBy, mapping.Func(func(_ context.Context, src mapping.Source) (any, error) {
			return positions(src, aliases), nil
		}), false),
		replace(harvest.Advises, mapping.Func(func(ctx context.Context, src mapping.Source) (any, error) {
			var out []any
			for _, item := range peopleAdvisees.Values(src) {
				ref, err := personRef(ctx, d, text(item, "$.first_name"), text(item, "$.last_name"))
				if err != nil {
					return nil, err
				}
				if ref != nil {
					out = append(out, ref)
				}
			}
			return out, nil
		}), false),
	))
}

func biography(_ context.Context, src mapping.Source) (any, error) {
	bio := text(src, "$.bio.text")
	if bio == "" {
		return nil, nil
	}
	return record.Literal{Value: bio, Lang: "en"}, nil
}

// contactCard builds the profile's vcard with name, email and address.
func contactCard(src mapping.Source, countries *translation.Map) record.Record {
	id := text(src, "$.profileId")
	card := vcardName(id,
		text(src, "$.names.legal.firstName"),
		text(src, "$.names.legal.middleName"),
		text(src, "$.names.legal.lastName"))

	card[record.DeleteKey(harvest.HasEmail)] = true
	if email := text(src, "$.email"); email != "" {
		card[harvest.HasEmail] = record.Record{
			record.KeyID:     id,
			record.KeyIDNS:   harvest.ContactNamespace + "email/",
			record.KeyType:   []any{harvest.ClassVCardEmail},
			harvest.HasValue: record.IRI("mailto:" + email),
		}
	}

	card[record.DeleteKey(harvest.HasAddress)] = true
	if street := text(src, "$.address.street"); street != "" {
		addr := record.Record{
			record.KeyID:          id,
			record.KeyIDNS:        harvest.ContactNamespace + "address/",
			record.KeyType:        []any{harvest.ClassVCardAddress},
			harvest.StreetAddress: street,
			harvest.Locality:      text(src, "$.address.city"),
			harvest.Region:        text(src, "$.address.state"),
			harvest.PostalCode:    text(src, "$.address.zip"),
		}
		for _, p := range []string{harvest.StreetAddress, harvest.Locality, harvest.Region, harvest.PostalCode, harvest.HasCountry} {
			addr[record.DeleteKey(p)] = true
		}
		if country := text(src, "$.address.country"); country != "" {
			addr[harvest.CountryName] = country
			if code, ok := countries.Lookup(country); ok {
				addr[harvest.HasCountry] = record.IRI(harvest.GEONAME + code + "/")
			}
		}
		card[harvest.HasAddress] = addr
	}
	return card
}

// positions builds one vivo:Position per title, linking the person to the
// titled organization when its code is known.
func positions(src mapping.Source, aliases *translation.Map) []any {
	profileID := text(src, "$.profileId")
	person := record.IRI(harvest.PersonNamespace + profileID)

	var out []any
	for _, item := range peopleTitles.Values(src) {
		title := text(item, "$.title")
		if title == "" {
			continue
		}
		code := text(item, "$.orgCode")
		pos := record.Record{
			record.KeyID:      resolver.DeterministicID("position", profileID, title, code),
			record.KeyIDNS:    harvest.PositionNamespace,
			record.KeyType:    []any{harvest.ClassPosition},
			harvest.PrefLabel: title,
			harvest.Relates:   []any{person},
		}
		if rank, _ := extract.First(item, "$.rank"); rank != nil {
			pos[harvest.Rank] = rank
		}
		if org := orgRef(aliases, code); org != nil {
			pos[harvest.Relates] = []any{person, org}
		}
		out = append(out, pos)
	}
	return out
}
