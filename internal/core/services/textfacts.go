package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/logger"
)

// DefaultMinTextConfidence is the floor below which oracle-scraped
// facts are discarded.
const DefaultMinTextConfidence = 0.60

// periodUnknown is the sentinel for facts with no stated period, so
// period filters can match consistently against a non-empty label.
const periodUnknown = "UNKNOWN"

// TextFactNormalizer converts oracle-scraped facts for a text block
// into canonical fact rows: value coercion, period defaulting, and
// deterministic ID hashing over the coerced value.
type TextFactNormalizer struct {
	entityID      string
	entityNameRaw string
	minConfidence float64
}

// NewTextFactNormalizer creates a normalizer stamping rows with the
// given canonical entity. Facts below minConfidence are dropped; pass 0
// to use the default floor.
func NewTextFactNormalizer(entityID, entityNameRaw string, minConfidence float64) *TextFactNormalizer {
	if minConfidence <= 0 {
		minConfidence = DefaultMinTextConfidence
	}
	return &TextFactNormalizer{
		entityID:      entityID,
		entityNameRaw: entityNameRaw,
		minConfidence: minConfidence,
	}
}

// Normalize returns one fact row per accepted scraped fact. All rows
// share the block's ID as their source.
func (n *TextFactNormalizer) Normalize(block domain.Block, facts []domain.ScrapedFact) []domain.FactRow {
	rows := make([]domain.FactRow, 0, len(facts))

	for _, fact := range facts {
		if fact.Confidence < n.minConfidence {
			logger.Debug("Dropping low-confidence fact %q (%.2f)", fact.MetricName, fact.Confidence)
			continue
		}
		if strings.TrimSpace(fact.MetricName) == "" {
			continue
		}

		value, nuance := coerceValue(fact.RawValue, fact.NuanceNote)

		period := strings.TrimSpace(fact.Period)
		if period == "" {
			period = periodUnknown
		}

		unit := fact.Unit
		if unit == "" {
			unit = domain.UnitUSD
		}

		var related *string
		if r := strings.TrimSpace(fact.RelatedEntity); r != "" {
			// Passed through unresolved; entity-graph
			// normalisation happens elsewhere.
			related = &r
		}

		rows = append(rows, domain.FactRow{
			RowID:           domain.NewRowID(n.entityID, fact.MetricName, period, block.ID, value),
			EntityID:        n.entityID,
			EntityNameRaw:   n.entityNameRaw,
			MetricName:      fact.MetricName,
			RelatedEntityID: related,
			Value:           value,
			Unit:            unit,
			ScaleFactor:     1,
			Period:          period,
			DocSection:      block.Breadcrumb(),
			SourceBlockID:   block.ID,
			NuanceNote:      optional(nuance),
			Confidence:      fact.Confidence,
		})
	}

	return rows
}

// coerceValue turns the oracle's raw value into a float when possible.
// A string that fails numeric cleaning is preserved in the nuance note
// rather than silently dropped: "failed numeric extraction" and "data
// is an opaque identifier" are different situations, and both keep the
// original text.
func coerceValue(raw any, nuance string) (*float64, string) {
	switch v := raw.(type) {
	case nil:
		return nil, nuance
	case float64:
		return &v, nuance
	case float32:
		f := float64(v)
		return &f, nuance
	case int:
		f := float64(v)
		return &f, nuance
	case int64:
		f := float64(v)
		return &f, nuance
	case string:
		clean := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if f, err := strconv.ParseFloat(clean, 64); err == nil {
			return &f, nuance
		}
		if nuance != "" {
			return nil, fmt.Sprintf("%s (Raw Value: %s)", nuance, v)
		}
		return nil, v
	default:
		return nil, nuance
	}
}
