package domain

// EntityMetadata is the canonical identity record for a filing's
// registrant, resolved once per document from its cover pages and used
// to stamp every fact row's entity ID.
type EntityMetadata struct {
	// CanonicalID is the stable identifier, e.g. "ID_AAPL".
	CanonicalID string `json:"canonical_id"`

	// OfficialName is the exact legal name from the filing.
	OfficialName string `json:"official_name"`

	// CIK is the Central Index Key, when present.
	CIK *string `json:"cik,omitempty"`

	// Aliases lists other names the document uses, e.g. "The Company".
	Aliases []string `json:"aliases"`
}
