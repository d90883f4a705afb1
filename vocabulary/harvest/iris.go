package harvest

// Namespace is the base IRI prefix for semharvest vocabulary terms.
const Namespace = "https://semharvest.dev/ontology/"

// EntityNamespace is the base IRI for minted entity instances.
const EntityNamespace = "https://semharvest.dev/entity/"

// GraphNamespace is the base IRI for named graphs.
const GraphNamespace = "https://semharvest.dev/graph/"

// Standard namespaces.
const (
	RDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	XSD     = "http://www.w3.org/2001/XMLSchema#"
	SKOS    = "http://www.w3.org/2004/02/skos/core#"
	FOAF    = "http://xmlns.com/foaf/0.1/"
	VCARD   = "http://www.w3.org/2006/vcard/ns#"
	VIVO    = "http://vivoweb.org/ontology/core#"
	OBO     = "http://purl.obolibrary.org/obo/"
	DCTERMS = "http://purl.org/dc/terms/"
	BIBO    = "http://purl.org/ontology/bibo/"
	FRAPO   = "http://purl.org/cerif/frapo/"
	GEONAME = "http://sws.geonames.org/"
)

// Entity namespaces per type.
const (
	PersonNamespace       = EntityNamespace + "person/"
	OrganizationNamespace = EntityNamespace + "organization/"
	GrantNamespace        = EntityNamespace + "grant/"
	PublicationNamespace  = EntityNamespace + "publication/"
	ContactNamespace      = EntityNamespace + "contact/"
	PositionNamespace     = EntityNamespace + "position/"
	RoleNamespace         = EntityNamespace + "role/"
)

// Named graphs.
const (
	GraphPeople        = GraphNamespace + "people"
	GraphOrganizations = GraphNamespace + "organizations"
	GraphGrants        = GraphNamespace + "grants"
	GraphPublications  = GraphNamespace + "publications"
)

// RDFType is rdf:type.
const RDFType = RDF + "type"

// Class IRIs.
const (
	ClassPerson       = FOAF + "Person"
	ClassAgent        = FOAF + "Agent"
	ClassOrganization = FOAF + "Organization"
	ClassUniversity   = VIVO + "University"
	ClassDepartment   = VIVO + "Department"
	ClassSchool       = VIVO + "School"
	ClassDivision     = VIVO + "Division"
	ClassInstitute    = VIVO + "Institute"
	ClassGrant        = FRAPO + "Grant"
	ClassDocument     = BIBO + "Document"
	ClassArticle      = BIBO + "AcademicArticle"
	ClassPosition     = VIVO + "Position"
	ClassPIRole       = VIVO + "PrincipalInvestigatorRole"
	ClassCoPIRole     = VIVO + "CoPrincipalInvestigatorRole"
	ClassAuthorship   = VIVO + "Authorship"
	ClassVCardKind    = VCARD + "Kind"
	ClassVCardName    = VCARD + "Name"
	ClassVCardAddress = VCARD + "Address"
	ClassVCardEmail   = VCARD + "Email"
	ClassConcept      = SKOS + "Concept"
)

// Predicate IRIs.
const (
	PrefLabel     = SKOS + "prefLabel"
	AltLabel      = SKOS + "altLabel"
	Label         = RDFS + "label"
	Identifier    = DCTERMS + "identifier"
	Title         = DCTERMS + "title"
	Abstract      = DCTERMS + "abstract"
	Created       = DCTERMS + "created"
	Subject       = DCTERMS + "subject"
	Description   = DCTERMS + "description"
	Homepage      = FOAF + "homepage"
	HasContact    = OBO + "ARG_2000028" // has contact info
	ContactFor    = OBO + "ARG_2000029" // contact info for
	RelatedBy     = VIVO + "relatedBy"
	Relates       = VIVO + "relates"
	RoleOf        = OBO + "RO_0000052"
	HasPart       = OBO + "BFO_0000051"
	PartOf        = OBO + "BFO_0000050"
	StartDate     = FRAPO + "hasStartDate"
	EndDate       = FRAPO + "hasEndDate"
	FundedBy      = FRAPO + "isFundedBy"
	AwardNumber   = FRAPO + "hasAwardNumber"
	TotalAmount   = FRAPO + "hasMonetaryAmount"
	DOI           = BIBO + "doi"
	Volume        = BIBO + "volume"
	Issue         = BIBO + "issue"
	GivenName     = VCARD + "given-name"
	FamilyName    = VCARD + "family-name"
	AdditionalNm  = VCARD + "additional-name"
	HasName       = VCARD + "hasName"
	HasAddress    = VCARD + "hasAddress"
	HasEmail      = VCARD + "hasEmail"
	HasValue      = VCARD + "hasValue"
	StreetAddress = VCARD + "street-address"
	Locality      = VCARD + "locality"
	Region        = VCARD + "region"
	PostalCode    = VCARD + "postal-code"
	CountryName   = VCARD + "country-name"
	HasCountry    = Namespace + "hasCountry"
	Biography     = VIVO + "overview"
	OrgCode       = Namespace + "orgCode"
	SunetID       = Namespace + "sunetId"
	Affiliation   = Namespace + "affiliation"
	SponsorCode   = Namespace + "sponsorCode"
	Rank          = VIVO + "rank"
	Advises       = Namespace + "advises"
)

// Prefixes maps conventional prefixes to namespaces. It is used as the
// JSON-LD compaction context.
var Prefixes = map[string]string{
	"rdf":     RDF,
	"rdfs":    RDFS,
	"xsd":     XSD,
	"skos":    SKOS,
	"foaf":    FOAF,
	"vcard":   VCARD,
	"vivo":    VIVO,
	"obo":     OBO,
	"dcterms": DCTERMS,
	"bibo":    BIBO,
	"frapo":   FRAPO,
	"sh":      Namespace,
}
