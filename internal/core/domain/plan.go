package domain

import "strings"

// Retrieval strategies tagged on plans by the query planner.
const (
	StrategyHybrid     = "hybrid"
	StrategyLedgerOnly = "ledger_only"
	StrategyTextOnly   = "text_only"
)

// LedgerFilter is the structured filter half of a retrieval plan,
// applied directly against the fact ledger.
type LedgerFilter struct {
	// EntityIDs restricts rows to these canonical entities.
	EntityIDs []string `json:"entity_ids,omitempty"`

	// MetricKeywords match metric names: exact membership first,
	// falling back to case-insensitive substring.
	MetricKeywords []string `json:"metric_keywords,omitempty"`

	// Years are matched as substrings of the free-form period label.
	Years []string `json:"years,omitempty"`

	// NuanceFocus hints which annotations matter for the question
	// (e.g. "restated", "unaudited"). Advisory only.
	NuanceFocus string `json:"nuance_focus,omitempty"`
}

// RetrievalPlan is a structured query translated from a natural-language
// question. Produced by the query planner, consumed by the dual retriever.
type RetrievalPlan struct {
	// LedgerFilter is nil when the planner saw no structured angle.
	LedgerFilter *LedgerFilter `json:"ledger_filter,omitempty"`

	// Hypothesis is a natural-language statement of the expected
	// answer context, used for semantic search.
	Hypothesis string `json:"hypothesis"`

	// Keywords are exact terms to search for alongside the hypothesis.
	Keywords []string `json:"keywords"`

	// Strategy tags the plan (hybrid, ledger_only, text_only).
	Strategy string `json:"strategy"`

	// Reasoning is the planner's trace, kept for diagnostics.
	Reasoning string `json:"reasoning"`
}

// FallbackPlan is the deterministic plan used whenever the planning
// oracle fails or times out: text-only, the question itself as the
// hypothesis, and its first five tokens as keywords.
func FallbackPlan(query string, cause error) RetrievalPlan {
	tokens := strings.Fields(query)
	if len(tokens) > 5 {
		tokens = tokens[:5]
	}
	reason := "planner unavailable, falling back to direct query search"
	if cause != nil {
		reason = "planner error: " + cause.Error() + "; falling back to direct query search"
	}
	return RetrievalPlan{
		Hypothesis: query,
		Keywords:   tokens,
		Strategy:   StrategyTextOnly,
		Reasoning:  reason,
	}
}
