package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

func textBlock() domain.Block {
	return domain.Block{
		ID:          "blk-text-1",
		Kind:        domain.BlockKindText,
		SectionPath: []string{"Item 1", "Business"},
		Content:     "The Company had a backlog of $1.2 billion at year end.",
	}
}

func TestNormalize_ConfidenceFloor(t *testing.T) {
	facts := []domain.ScrapedFact{
		{MetricName: "Backlog", RawValue: 1.2e9, Unit: "USD", Confidence: 0.9},
		{MetricName: "Guess", RawValue: 1.0, Unit: "USD", Confidence: 0.3},
	}

	rows := NewTextFactNormalizer("ID_ACME", "ACME Corp", 0).Normalize(textBlock(), facts)

	require.Len(t, rows, 1)
	assert.Equal(t, "Backlog", rows[0].MetricName)
}

func TestNormalize_StringValueCoercion(t *testing.T) {
	facts := []domain.ScrapedFact{
		{MetricName: "Backlog", RawValue: "1,200,000,000", Unit: "USD", Confidence: 0.9},
	}

	rows := NewTextFactNormalizer("ID_ACME", "ACME Corp", 0).Normalize(textBlock(), facts)

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Value)
	assert.Equal(t, 1.2e9, *rows[0].Value)
}

func TestNormalize_OpaqueStringPreserved(t *testing.T) {
	facts := []domain.ScrapedFact{
		{MetricName: "Auditor", RawValue: "Ernst & Young LLP", Unit: "USD", Confidence: 0.9},
	}

	rows := NewTextFactNormalizer("ID_ACME", "ACME Corp", 0).Normalize(textBlock(), facts)

	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Value)
	require.NotNil(t, rows[0].NuanceNote)
	assert.Equal(t, "Ernst & Young LLP", *rows[0].NuanceNote)
}

func TestNormalize_OpaqueStringAppendsToNuance(t *testing.T) {
	facts := []domain.ScrapedFact{
		{
			MetricName: "Credit Rating",
			RawValue:   "AA-",
			NuanceNote: "per S&P",
			Unit:       "Rating",
			Confidence: 0.8,
		},
	}

	rows := NewTextFactNormalizer("ID_ACME", "ACME Corp", 0).Normalize(textBlock(), facts)

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].NuanceNote)
	assert.Equal(t, "per S&P (Raw Value: AA-)", *rows[0].NuanceNote)
}

func TestNormalize_PeriodDefaultsToUnknown(t *testing.T) {
	facts := []domain.ScrapedFact{
		{MetricName: "Employee Count", RawValue: 5000, Unit: "Employees", Confidence: 0.9},
	}

	rows := NewTextFactNormalizer("ID_ACME", "ACME Corp", 0).Normalize(textBlock(), facts)

	require.Len(t, rows, 1)
	assert.Equal(t, "UNKNOWN", rows[0].Period)
}

func TestNormalize_RelatedEntityPassthrough(t *testing.T) {
	facts := []domain.ScrapedFact{
		{
			MetricName:    "Supplier",
			RawValue:      nil,
			RelatedEntity: "FOXCONN",
			Unit:          "Relationship",
			Confidence:    0.85,
		},
	}

	rows := NewTextFactNormalizer("ID_ACME", "ACME Corp", 0).Normalize(textBlock(), facts)

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].RelatedEntityID)
	assert.Equal(t, "FOXCONN", *rows[0].RelatedEntityID)
}

func TestNormalize_IDHashesCoercedValue(t *testing.T) {
	asString := []domain.ScrapedFact{
		{MetricName: "Backlog", RawValue: "500", Unit: "USD", Confidence: 0.9},
	}
	asNumber := []domain.ScrapedFact{
		{MetricName: "Backlog", RawValue: 500.0, Unit: "USD", Confidence: 0.9},
	}

	n := NewTextFactNormalizer("ID_ACME", "ACME Corp", 0)
	fromString := n.Normalize(textBlock(), asString)
	fromNumber := n.Normalize(textBlock(), asNumber)

	// Both coerce to the same float, so the identity matches.
	require.Len(t, fromString, 1)
	require.Len(t, fromNumber, 1)
	assert.Equal(t, fromNumber[0].RowID, fromString[0].RowID)
}

func TestNormalize_EmptyMetricDropped(t *testing.T) {
	facts := []domain.ScrapedFact{
		{MetricName: "  ", RawValue: 1.0, Confidence: 0.9},
	}

	assert.Empty(t, NewTextFactNormalizer("ID_ACME", "ACME Corp", 0).Normalize(textBlock(), facts))
}
