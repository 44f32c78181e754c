package driving

import (
	"context"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

// AskOptions configures a question run.
type AskOptions struct {
	// K is the per-search result size for retrieval (default 4).
	K int
}

// AskResult carries the final answer plus the trace of how it was
// produced.
type AskResult struct {
	Answer  domain.FinalAnswer
	Plan    domain.RetrievalPlan
	Step    domain.ReasoningStep
	Compute *domain.ComputeResult

	// Context is the assembled prompt context handed to the oracle.
	Context string
}

// AskService answers a natural-language question against the ledger:
// plan, retrieve, assemble, reason.
type AskService interface {
	Ask(ctx context.Context, query string, opts AskOptions) (*AskResult, error)
}
