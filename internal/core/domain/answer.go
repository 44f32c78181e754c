package domain

// Data source classifications for final answers.
const (
	SourceGrounded          = "GROUNDED"
	SourceInternalKnowledge = "INTERNAL_KNOWLEDGE"
	SourceMixed             = "MIXED"
	SourceNotFound          = "NOT_FOUND"
)

// ReasoningStep is the output of the first reasoning pass: the plan for
// answering the question and, when arithmetic is needed, the code to run.
type ReasoningStep struct {
	// Plan is the step-by-step logic for answering the query.
	Plan string `json:"plan"`

	// RequiresCompute is true when a calculation must run before
	// synthesis.
	RequiresCompute bool `json:"requires_compute"`

	// Code is the snippet to evaluate. Output is printed to stdout.
	Code string `json:"code,omitempty"`

	// MissingInfo lists data points expected but absent from context.
	MissingInfo []string `json:"missing_info,omitempty"`
}

// ComputeResult captures the outcome of the optional compute step.
// Failures are recorded here and forwarded into synthesis, never raised.
type ComputeResult struct {
	Output string `json:"output"`
	Err    string `json:"error,omitempty"`
}

// FinalAnswer is the synthesis pass's user-facing result.
type FinalAnswer struct {
	// Answer is the definitive answer text, citing row/block IDs when
	// grounded.
	Answer string `json:"answer"`

	// Nuances surfaces important caveats found in the source text.
	Nuances string `json:"nuances,omitempty"`

	// DataSourceType is one of the Source* constants.
	DataSourceType string `json:"data_source_type"`

	// Citations lists the row and block IDs the answer rests on.
	Citations []string `json:"citations"`

	// GroundednessScore is 0-1: high for document-backed answers.
	GroundednessScore float64 `json:"groundedness_score"`

	// SelfAwareWarning is true when the oracle is guessing or fell
	// back to internal knowledge.
	SelfAwareWarning bool `json:"is_self_aware_warning"`
}
