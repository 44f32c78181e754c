package driven

// PromptStore provides access to oracle prompt templates.
// Implementations may load prompts from files, embed them in the
// binary, or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a
	// sensible default or an error, depending on whether the prompt
	// is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next
	// access. Useful when prompts have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptEntityResolution extracts canonical entity metadata from
	// a filing's cover pages. No format placeholders.
	PromptEntityResolution = "entity_resolution"

	// PromptFactExtraction scrapes atomic facts from a text block.
	// No format placeholders; the block and context hint travel in
	// the user message.
	PromptFactExtraction = "fact_extraction"

	// PromptQueryPlanning translates a question into a retrieval
	// plan. Expects a %s placeholder for the schema summary JSON.
	PromptQueryPlanning = "query_planning"

	// PromptReasoningPass is the first answer pass: logic and
	// optional compute code. No format placeholders.
	PromptReasoningPass = "reasoning_pass"

	// PromptSynthesisPass is the second answer pass: the final cited
	// answer. No format placeholders.
	PromptSynthesisPass = "synthesis_pass"

	// PromptAssemblerInstructions is appended to every assembled
	// context so the reasoning oracle knows how to read it.
	PromptAssemblerInstructions = "assembler_instructions"
)
