package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Units recorded on fact rows.
const (
	UnitUSD      = "USD"
	UnitPerShare = "USD/share"
	UnitRatio    = "ratio"
)

// FactRow is one canonical (entity, metric, period) observation in the
// ledger. Rows are immutable once appended; the store reconciles repeated
// ingestion runs by upserting on RowID.
type FactRow struct {
	// RowID is a deterministic hash of the identity fields, stable
	// across re-ingestion of identical input. See NewRowID.
	RowID string `json:"row_id"`

	// EntityID is the canonical entity identifier, e.g. "ID_AAPL".
	EntityID string `json:"entity_id"`

	// EntityNameRaw is the name as it appeared in the source.
	EntityNameRaw string `json:"entity_name_raw"`

	// MetricName is the cleaned metric label. For melted tables this
	// includes the flattened parent chain, e.g.
	// "Current assets > Cash and cash equivalents".
	MetricName string `json:"metric_name"`

	// RelatedEntityID is the target of a graph edge, when the metric
	// describes a relationship ("Supplier" -> "FOXCONN"). Unresolved
	// for text-extracted facts.
	RelatedEntityID *string `json:"related_entity_id,omitempty"`

	// Value is the normalised numeric value after scaling. Nil means
	// qualitative or unparseable.
	Value *float64 `json:"value,omitempty"`

	// Unit is the currency or measurement unit.
	Unit string `json:"unit"`

	// ScaleFactor is the multiplier that was applied (1, 1e3, 1e6).
	ScaleFactor float64 `json:"scale_factor"`

	// Period is a free-form period label ("2023", "2022 (Restated)").
	// Never empty: text extraction defaults to "UNKNOWN".
	Period string `json:"period"`

	// DocSection is the flattened breadcrumb of the source block.
	DocSection string `json:"doc_section"`

	// SourceBlockID references the Block the row was derived from.
	SourceBlockID string `json:"source_block_id"`

	// NuanceNote carries sign conventions, restatements, footnote
	// residue, or preserved raw values.
	NuanceNote *string `json:"nuance_note,omitempty"`

	// Confidence is in [0,1]. Parse failures are recorded at 0.
	Confidence float64 `json:"confidence"`
}

// rowIDSep delimits the identity fields fed into the row hash. The
// field order is fixed so the hash never depends on iteration order.
const rowIDSep = "\x1f"

// NewRowID derives the deterministic row identifier from the identity
// fields: entity, metric, period, source block, and the final (scaled or
// coerced) value. A nil value hashes as the literal "null", so resolving
// a string into a number changes the ID.
func NewRowID(entityID, metricName, period, sourceBlockID string, value *float64) string {
	val := "null"
	if value != nil {
		val = strconv.FormatFloat(*value, 'g', -1, 64)
	}
	seed := strings.Join([]string{entityID, metricName, period, sourceBlockID, val}, rowIDSep)
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// ScrapedFact is one fact returned by the extraction oracle for a text
// block, before normalisation into a FactRow. RawValue may be a number
// or an opaque string; the normaliser decides which.
type ScrapedFact struct {
	// MetricName names the metric or fact, e.g. "Backlog".
	MetricName string `json:"metric_name"`

	// RawValue is the extracted value; numeric when the oracle could
	// parse it, string otherwise (identifiers, qualitative statements).
	RawValue any `json:"value,omitempty"`

	// Unit of the value, e.g. "USD", "Employees", "Percent".
	Unit string `json:"unit"`

	// Period mentioned in the text; empty when implicit.
	Period string `json:"period,omitempty"`

	// RelatedEntity is the target of a relationship, unresolved.
	RelatedEntity string `json:"related_entity,omitempty"`

	// NuanceNote carries context, conditions, or the full qualitative
	// statement.
	NuanceNote string `json:"nuance_note,omitempty"`

	// Confidence is the oracle's 0-1 confidence in the extraction.
	Confidence float64 `json:"confidence"`
}
