package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
	"github.com/custodia-labs/factlens/internal/core/ports/driving"
	"github.com/custodia-labs/factlens/internal/logger"
)

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// DefaultRetrievalK is the per-search result size when the caller does
// not specify one.
const DefaultRetrievalK = 4

// AskService answers natural-language questions: it plans retrieval
// against the schema summary, runs the dual retriever, assembles the
// context, and hands it to the reasoner.
type AskService struct {
	planner   driven.QueryPlanner
	schema    driven.SchemaStore
	retriever *DualRetriever
	assembler *ContextAssembler
	reasoner  *Reasoner
}

// NewAskService wires the query-time pipeline.
func NewAskService(
	planner driven.QueryPlanner,
	schema driven.SchemaStore,
	retriever *DualRetriever,
	assembler *ContextAssembler,
	reasoner *Reasoner,
) *AskService {
	return &AskService{
		planner:   planner,
		schema:    schema,
		retriever: retriever,
		assembler: assembler,
		reasoner:  reasoner,
	}
}

// Ask runs the full query pipeline. A planner failure falls back to a
// deterministic text-only plan; an empty ledger yields the explicit
// placeholder context rather than an error.
func (s *AskService) Ask(ctx context.Context, query string, opts driving.AskOptions) (*driving.AskResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidInput
	}

	k := opts.K
	if k <= 0 {
		k = DefaultRetrievalK
	}

	plan := s.plan(ctx, query)
	logger.Info("Plan strategy: %s", plan.Strategy)

	retrieved, err := s.retriever.Retrieve(ctx, plan, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	contextStr := s.assembler.Assemble(retrieved)

	answer, step, compute, err := s.reasoner.Answer(ctx, query, contextStr)
	if err != nil {
		return nil, fmt.Errorf("reason: %w", err)
	}

	return &driving.AskResult{
		Answer:  answer,
		Plan:    plan,
		Step:    step,
		Compute: compute,
		Context: contextStr,
	}, nil
}

// plan asks the planning oracle for a retrieval plan, grounding it on
// the persisted schema summary. Any failure, including a missing
// planner, produces the documented fallback plan.
func (s *AskService) plan(ctx context.Context, query string) domain.RetrievalPlan {
	if s.planner == nil {
		return domain.FallbackPlan(query, domain.ErrOracleUnavailable)
	}

	var summary domain.SchemaSummary
	if s.schema != nil {
		loaded, err := s.schema.Load(ctx)
		if err != nil {
			logger.Warn("Schema summary unavailable: %v", err)
		} else {
			summary = loaded
		}
	}

	plan, err := s.planner.PlanQuery(ctx, query, summary)
	if err != nil {
		logger.Warn("Query planning failed: %v", err)
		return domain.FallbackPlan(query, err)
	}
	if plan.Hypothesis == "" {
		plan.Hypothesis = query
	}
	return plan
}
