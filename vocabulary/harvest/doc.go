// Package harvest provides the IRIs used when mapping institutional records
// (people, organizations, grants, publications) into RDF.
//
// # Namespaces
//
// Standard vocabularies are referenced by their published namespaces:
//   - RDF, RDFS, XSD for core typing
//   - FOAF and VCARD for agents, names, addresses and contact details
//   - VIVO and OBO for positions, roles and research activities
//   - SKOS and DCTERMS for labels, identifiers and descriptive metadata
//   - BIBO for publications, FRAPO for grants
//
// # Entity IRIs
//
// Entities minted by the pipeline live under EntityNamespace with a
// type-specific path segment:
//
//	https://semharvest.dev/entity/person/<id>
//	https://semharvest.dev/entity/organization/<id>
//	https://semharvest.dev/entity/grant/<id>
//
// # Named Graphs
//
// Each transform writes into exactly one named graph per record. The graph IRIs
// are GraphPeople, GraphOrganizations, GraphGrants and GraphPublications.
package harvest
