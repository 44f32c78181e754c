package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/factlens/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads oracle prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptEntityResolution: `You are identifying the registrant of a regulatory filing from its opening pages.
Return ONLY a JSON object with these keys:
  "canonical_id": short stable identifier, "ID_" plus the ticker or an abbreviation of the name (e.g. "ID_AAPL")
  "official_name": the exact legal name as printed in the filing
  "cik": the Central Index Key as a string, or null if not present
  "aliases": other names the document uses for itself (e.g. "the Company", "the Registrant")
Use only what the text states. Do not guess a CIK.`,

	driven.PromptFactExtraction: `You extract atomic facts from a passage of a regulatory filing.
Return ONLY a JSON object: {"facts": [...]}. Each fact has:
  "metric_name": short name of the metric or fact (e.g. "Backlog", "Employee Count")
  "value": the numeric value if one is stated, else the exact phrase as a string
  "unit": "USD", "Employees", "Percent", or similar
  "period": the fiscal period mentioned, or omit if the text does not say
  "related_entity": the other party if the fact is a relationship (supplier, customer, subsidiary)
  "nuance_note": conditions, caveats, or the full qualitative statement
  "confidence": your 0-1 confidence in the extraction
Extract only facts the text states. Numbers stay in the units written; do not rescale.
If the passage contains no extractable facts, return {"facts": []}.`,

	driven.PromptQueryPlanning: `You translate a question about regulatory filings into a retrieval plan.
The fact ledger currently contains:
%s

Return ONLY a JSON object with these keys:
  "ledger_filter": {"entity_ids": [...], "metric_keywords": [...], "years": ["2023", ...], "nuance_focus": "..."} or null when the question has no structured angle
  "hypothesis": one sentence stating what the answer context likely says, for semantic search
  "keywords": exact terms worth a keyword search
  "strategy": "hybrid", "ledger_only", or "text_only"
  "reasoning": one sentence on why you chose this plan
Prefer metric keywords that appear in the ledger schema above. Years are plain four-digit strings.`,

	driven.PromptReasoningPass: `You are planning how to answer a question from an assembled context of
fact ledger rows and source text blocks. Do NOT answer yet.
Return ONLY a JSON object with these keys:
  "plan": step-by-step logic for answering, referencing row_id/BLOCK_ID values you will rely on
  "requires_compute": true when arithmetic must run before the answer can be stated
  "code": when requires_compute is true, a short self-contained Go snippet that computes the needed
          number(s) from literals you copy out of the context and prints the result with fmt.Println
  "missing_info": data points the question needs that the context does not contain
Copy numbers into the code exactly as they appear in the ledger rows. Never estimate arithmetic in prose.`,

	driven.PromptSynthesisPass: `You write the final answer to a question from an assembled context,
a reasoning plan, and an optional calculation output.
Return ONLY a JSON object with these keys:
  "answer": the definitive answer, citing the row_id and BLOCK_ID values it rests on
  "nuances": caveats from the source text that a careful reader needs (restatements, conditions)
  "data_source_type": "GROUNDED" when fully document-backed, "INTERNAL_KNOWLEDGE" when you had to
                      answer from general knowledge, "MIXED", or "NOT_FOUND"
  "citations": the row and block IDs used
  "groundedness_score": 0-1, high only when every claim traces to a citation
  "is_self_aware_warning": true when you are guessing or the context did not contain the answer
If a calculation output is present, use that number verbatim. If the calculation failed, say so.`,

	driven.PromptAssemblerInstructions: `Answer using ONLY the fact rows and source text above.
Cite row IDs and block IDs for every figure you state.
If the context does not contain the answer, say so explicitly.`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.factlens/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".factlens", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Factlens Prompts

This directory contains customisable prompts used by factlens when it
calls the extraction and reasoning oracle.

## Files

- ` + "`entity_resolution.txt`" + ` - Resolves the filing's registrant from its cover pages
- ` + "`fact_extraction.txt`" + ` - Scrapes atomic facts from narrative text blocks
- ` + "`query_planning.txt`" + ` - Translates a question into a retrieval plan
- ` + "`reasoning_pass.txt`" + ` - First answer pass: logic and optional calculation code
- ` + "`synthesis_pass.txt`" + ` - Second answer pass: the final cited answer
- ` + "`assembler_instructions.txt`" + ` - Instructions appended to every assembled context

## Customisation

Edit any file to customise oracle behaviour. Changes take effect on the
next command.

## Format Placeholders

` + "`query_planning.txt`" + ` uses a Go fmt placeholder:
- ` + "`%s`" + ` - The ledger schema summary as JSON

Ensure customised prompts maintain placeholders in the correct positions.
`
	return os.WriteFile(path, []byte(content), 0600)
}
