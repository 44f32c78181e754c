package openai

// Built-in prompts, used when no PromptStore is configured or a named
// prompt is missing from it.

const defaultEntityResolutionPrompt = `You are identifying the registrant of a regulatory filing from its opening pages.
Return ONLY a JSON object with these keys:
  "canonical_id": short stable identifier, "ID_" plus the ticker or an abbreviation of the name (e.g. "ID_AAPL")
  "official_name": the exact legal name as printed in the filing
  "cik": the Central Index Key as a string, or null if not present
  "aliases": other names the document uses for itself (e.g. "the Company", "the Registrant")
Use only what the text states. Do not guess a CIK.`

const defaultFactExtractionPrompt = `You extract atomic facts from a passage of a regulatory filing.
Return ONLY a JSON object: {"facts": [...]}. Each fact has:
  "metric_name": short name of the metric or fact (e.g. "Backlog", "Employee Count")
  "value": the numeric value if one is stated, else the exact phrase as a string
  "unit": "USD", "Employees", "Percent", or similar
  "period": the fiscal period mentioned, or omit if the text does not say
  "related_entity": the other party if the fact is a relationship (supplier, customer, subsidiary)
  "nuance_note": conditions, caveats, or the full qualitative statement
  "confidence": your 0-1 confidence in the extraction
Extract only facts the text states. Numbers stay in the units written; do not rescale.
If the passage contains no extractable facts, return {"facts": []}.`

const defaultQueryPlanningPrompt = `You translate a question about regulatory filings into a retrieval plan.
The fact ledger currently contains:
%s

Return ONLY a JSON object with these keys:
  "ledger_filter": {"entity_ids": [...], "metric_keywords": [...], "years": ["2023", ...], "nuance_focus": "..."} or null when the question has no structured angle
  "hypothesis": one sentence stating what the answer context likely says, for semantic search
  "keywords": exact terms worth a keyword search
  "strategy": "hybrid", "ledger_only", or "text_only"
  "reasoning": one sentence on why you chose this plan
Prefer metric keywords that appear in the ledger schema above. Years are plain four-digit strings.`

const defaultReasoningPrompt = `You are planning how to answer a question from an assembled context of
fact ledger rows and source text blocks. Do NOT answer yet.
Return ONLY a JSON object with these keys:
  "plan": step-by-step logic for answering, referencing row_id/BLOCK_ID values you will rely on
  "requires_compute": true when arithmetic must run before the answer can be stated
  "code": when requires_compute is true, a short self-contained Go snippet that computes the needed
          number(s) from literals you copy out of the context and prints the result with fmt.Println
  "missing_info": data points the question needs that the context does not contain
Copy numbers into the code exactly as they appear in the ledger rows. Never estimate arithmetic in prose.`

const defaultSynthesisPrompt = `You write the final answer to a question from an assembled context,
a reasoning plan, and an optional calculation output.
Return ONLY a JSON object with these keys:
  "answer": the definitive answer, citing the row_id and BLOCK_ID values it rests on
  "nuances": caveats from the source text that a careful reader needs (restatements, conditions)
  "data_source_type": "GROUNDED" when fully document-backed, "INTERNAL_KNOWLEDGE" when you had to
                      answer from general knowledge, "MIXED", or "NOT_FOUND"
  "citations": the row and block IDs used
  "groundedness_score": 0-1, high only when every claim traces to a citation
  "is_self_aware_warning": true when you are guessing or the context did not contain the answer
If a calculation output is present, use that number verbatim. If the calculation failed, say so.`
