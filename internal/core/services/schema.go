package services

import (
	"sort"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

// SchemaSummarizer aggregates the entity and metric vocabulary seen
// across ingested rows into the compact summary used to ground query
// planning.
type SchemaSummarizer struct {
	entities    map[string]domain.EntitySummary
	entityOrder []string

	metricCounts map[string]int
	metricOrder  []string
}

// NewSchemaSummarizer creates an empty summarizer.
func NewSchemaSummarizer() *SchemaSummarizer {
	return &SchemaSummarizer{
		entities:     make(map[string]domain.EntitySummary),
		metricCounts: make(map[string]int),
	}
}

// AddEntity records a resolved entity once per canonical ID.
func (g *SchemaSummarizer) AddEntity(meta domain.EntityMetadata) {
	if _, ok := g.entities[meta.CanonicalID]; ok {
		return
	}
	g.entities[meta.CanonicalID] = domain.EntitySummary{
		ID:           meta.CanonicalID,
		OfficialName: meta.OfficialName,
		Aliases:      meta.Aliases,
	}
	g.entityOrder = append(g.entityOrder, meta.CanonicalID)
}

// AddSummary folds an existing summary's entities in, so repeated runs
// accumulate registrants across documents.
func (g *SchemaSummarizer) AddSummary(prev domain.SchemaSummary) {
	for _, e := range prev.Entities {
		if _, ok := g.entities[e.ID]; ok {
			continue
		}
		g.entities[e.ID] = e
		g.entityOrder = append(g.entityOrder, e.ID)
	}
}

// AddRows counts metric-name occurrences.
func (g *SchemaSummarizer) AddRows(rows []domain.FactRow) {
	for _, r := range rows {
		if _, seen := g.metricCounts[r.MetricName]; !seen {
			g.metricOrder = append(g.metricOrder, r.MetricName)
		}
		g.metricCounts[r.MetricName]++
	}
}

// Summary returns the snapshot: all entities in first-seen order, and
// the most frequent metric names (up to the schema limit) ordered by
// descending count, stable on first-seen order for ties.
func (g *SchemaSummarizer) Summary() domain.SchemaSummary {
	entities := make([]domain.EntitySummary, 0, len(g.entityOrder))
	for _, id := range g.entityOrder {
		entities = append(entities, g.entities[id])
	}

	metrics := make([]string, len(g.metricOrder))
	copy(metrics, g.metricOrder)
	sort.SliceStable(metrics, func(i, j int) bool {
		return g.metricCounts[metrics[i]] > g.metricCounts[metrics[j]]
	})
	if len(metrics) > domain.SchemaMetricLimit {
		metrics = metrics[:domain.SchemaMetricLimit]
	}

	return domain.SchemaSummary{Entities: entities, Metrics: metrics}
}
