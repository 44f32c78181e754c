package driven

import (
	"context"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

// The oracle ports wrap external structured-output inference calls.
// Every call must honour the context deadline; adapters convert
// malformed responses into errors so callers can apply deterministic
// fallbacks rather than propagate untyped data inward.

// EntityResolver resolves the document's registrant into canonical
// entity metadata from its opening blocks.
type EntityResolver interface {
	ResolveEntity(ctx context.Context, blocks []domain.Block) (domain.EntityMetadata, error)
}

// FactExtractor scrapes atomic facts from one text block. contextHint
// carries document-level framing (registrant, fiscal year, default
// scale). A failed call returns an error; the caller records an empty
// fact list and continues with the remaining blocks.
type FactExtractor interface {
	ExtractFacts(ctx context.Context, block domain.Block, contextHint string) ([]domain.ScrapedFact, error)
}

// QueryPlanner translates a natural-language question into a retrieval
// plan, grounded on the schema summary. Callers substitute
// domain.FallbackPlan on any error or timeout.
type QueryPlanner interface {
	PlanQuery(ctx context.Context, query string, schema domain.SchemaSummary) (domain.RetrievalPlan, error)
}

// ReasoningOracle performs the two strictly sequential answer passes.
type ReasoningOracle interface {
	// Reason produces the answering plan and optional compute code
	// from the assembled context.
	Reason(ctx context.Context, query, context string) (domain.ReasoningStep, error)

	// Synthesize produces the final cited answer from the context,
	// the reasoning plan, and the (possibly failed) compute result.
	Synthesize(ctx context.Context, query, context string, step domain.ReasoningStep, compute *domain.ComputeResult) (domain.FinalAnswer, error)
}

// ComputeEngine runs the correctness-critical calculation requested by
// the first reasoning pass. It must run synchronously to completion and
// return failures as values inside ComputeResult, never panic.
type ComputeEngine interface {
	Run(ctx context.Context, code string) domain.ComputeResult
}
