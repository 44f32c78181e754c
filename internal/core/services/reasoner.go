package services

import (
	"context"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
	"github.com/custodia-labs/factlens/internal/logger"
)

// Reasoner orchestrates the two-pass answer flow: a reasoning pass that
// plans the answer and may request a calculation, the synchronous
// compute step, then a synthesis pass that produces the final cited
// answer. The passes are strictly sequential; compute failures are
// forwarded into synthesis as values, never raised.
type Reasoner struct {
	oracle  driven.ReasoningOracle
	compute driven.ComputeEngine
}

// NewReasoner creates a reasoner. compute may be nil, in which case
// compute requests are answered with an unavailability error result.
func NewReasoner(oracle driven.ReasoningOracle, compute driven.ComputeEngine) *Reasoner {
	return &Reasoner{oracle: oracle, compute: compute}
}

// Answer runs both passes for the query against the assembled context.
// Oracle failures degrade to a deterministic NOT_FOUND answer rather
// than an error; only a nil oracle is a hard failure.
func (r *Reasoner) Answer(ctx context.Context, query, contextStr string) (domain.FinalAnswer, domain.ReasoningStep, *domain.ComputeResult, error) {
	if r.oracle == nil {
		return domain.FinalAnswer{}, domain.ReasoningStep{}, nil, domain.ErrOracleUnavailable
	}

	logger.Section("Reasoning")
	step, err := r.oracle.Reason(ctx, query, contextStr)
	if err != nil {
		logger.Warn("Reasoning pass failed: %v", err)
		step = domain.ReasoningStep{
			Plan:        "reasoning pass unavailable: " + err.Error(),
			MissingInfo: []string{"reasoning plan"},
		}
	} else {
		logger.Debug("Reasoning plan: %.120s", step.Plan)
	}

	var compute *domain.ComputeResult
	if step.RequiresCompute && step.Code != "" {
		res := r.runCompute(ctx, step.Code)
		compute = &res
	}

	final, err := r.oracle.Synthesize(ctx, query, contextStr, step, compute)
	if err != nil {
		logger.Warn("Synthesis pass failed: %v", err)
		final = domain.FinalAnswer{
			Answer:           "Unable to synthesize an answer: " + err.Error(),
			DataSourceType:   domain.SourceNotFound,
			Citations:        []string{},
			SelfAwareWarning: true,
		}
	}

	return final, step, compute, nil
}

// runCompute executes the requested calculation synchronously. The
// second pass does not start until this returns.
func (r *Reasoner) runCompute(ctx context.Context, code string) domain.ComputeResult {
	if r.compute == nil {
		return domain.ComputeResult{Err: "compute engine unavailable"}
	}
	logger.Info("Running compute step (%d bytes of code)", len(code))
	res := r.compute.Run(ctx, code)
	if res.Err != "" {
		logger.Warn("Compute step failed: %s", res.Err)
	} else {
		logger.Debug("Compute output: %s", res.Output)
	}
	return res
}
