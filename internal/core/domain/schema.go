package domain

// SchemaMetricLimit caps how many metric names the schema summary keeps.
const SchemaMetricLimit = 500

// EntitySummary is the per-entity slice of the schema summary.
type EntitySummary struct {
	ID           string   `json:"id"`
	OfficialName string   `json:"official_name"`
	Aliases      []string `json:"aliases"`
}

// SchemaSummary is the compact vocabulary snapshot handed to the query
// planner: every entity seen so far plus the most frequent metric names,
// ordered by descending occurrence count. Rebuilt per ingestion run.
type SchemaSummary struct {
	Entities []EntitySummary `json:"entities"`
	Metrics  []string        `json:"metrics"`
}
