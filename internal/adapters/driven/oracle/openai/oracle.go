// Package openai provides the structured-output oracle adapters backed
// by the OpenAI chat completions API or any compatible server. One
// client implements entity resolution, fact extraction, query planning,
// and the two reasoning passes.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
)

// Ensure Oracle implements the interfaces.
var (
	_ driven.EntityResolver  = (*Oracle)(nil)
	_ driven.FactExtractor   = (*Oracle)(nil)
	_ driven.QueryPlanner    = (*Oracle)(nil)
	_ driven.ReasoningOracle = (*Oracle)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the oracle client.
type Config struct {
	// APIKey is the API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can point at any OpenAI-compatible server.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Oracle calls the chat completions API with JSON response formatting
// and decodes the structured payloads the core expects. Malformed
// responses surface as domain.ErrOracleResponse so callers can apply
// their deterministic fallbacks.
type Oracle struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	promptStore driven.PromptStore
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOracle creates a new oracle client.
func NewOracle(cfg Config) (*Oracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: oracle API key", domain.ErrMissingCredential)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Oracle{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the client uses its built-in defaults.
func (o *Oracle) SetPromptStore(store driven.PromptStore) {
	o.promptStore = store
}

// ModelName returns the name of the chat model being used.
func (o *Oracle) ModelName() string {
	return o.model
}

// ResolveEntity resolves the registrant from the document's opening
// blocks.
func (o *Oracle) ResolveEntity(ctx context.Context, blocks []domain.Block) (domain.EntityMetadata, error) {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.Content)
		sb.WriteString("\n\n")
	}

	system := o.loadPrompt(driven.PromptEntityResolution, defaultEntityResolutionPrompt)
	raw, err := o.completeJSON(ctx, system, sb.String())
	if err != nil {
		return domain.EntityMetadata{}, err
	}

	var meta domain.EntityMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return domain.EntityMetadata{}, fmt.Errorf("%w: entity resolution: %v", domain.ErrOracleResponse, err)
	}
	if meta.CanonicalID == "" || meta.OfficialName == "" {
		return domain.EntityMetadata{}, fmt.Errorf("%w: entity resolution returned incomplete identity", domain.ErrOracleResponse)
	}
	return meta, nil
}

// factsEnvelope is the extraction response wrapper. The JSON response
// format requires a top-level object, so facts arrive under a key.
type factsEnvelope struct {
	Facts []domain.ScrapedFact `json:"facts"`
}

// ExtractFacts scrapes atomic facts from one text block.
func (o *Oracle) ExtractFacts(ctx context.Context, block domain.Block, contextHint string) ([]domain.ScrapedFact, error) {
	system := o.loadPrompt(driven.PromptFactExtraction, defaultFactExtractionPrompt)
	user := fmt.Sprintf("DOCUMENT CONTEXT: %s\n\nSECTION: %s\n\nTEXT:\n%s",
		contextHint, block.Breadcrumb(), block.Content)

	raw, err := o.completeJSON(ctx, system, user)
	if err != nil {
		return nil, err
	}

	var env factsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: fact extraction: %v", domain.ErrOracleResponse, err)
	}
	return env.Facts, nil
}

// PlanQuery translates a question into a retrieval plan grounded on the
// schema summary.
func (o *Oracle) PlanQuery(ctx context.Context, query string, schema domain.SchemaSummary) (domain.RetrievalPlan, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return domain.RetrievalPlan{}, fmt.Errorf("marshal schema: %w", err)
	}

	template := o.loadPrompt(driven.PromptQueryPlanning, defaultQueryPlanningPrompt)
	system := fmt.Sprintf(template, string(schemaJSON))

	raw, err := o.completeJSON(ctx, system, query)
	if err != nil {
		return domain.RetrievalPlan{}, err
	}

	var plan domain.RetrievalPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return domain.RetrievalPlan{}, fmt.Errorf("%w: query planning: %v", domain.ErrOracleResponse, err)
	}
	if plan.Strategy == "" {
		plan.Strategy = domain.StrategyHybrid
	}
	return plan, nil
}

// Reason runs the first answer pass: logic plus optional compute code.
func (o *Oracle) Reason(ctx context.Context, query, assembled string) (domain.ReasoningStep, error) {
	system := o.loadPrompt(driven.PromptReasoningPass, defaultReasoningPrompt)
	user := fmt.Sprintf("QUESTION: %s\n\n%s", query, assembled)

	raw, err := o.completeJSON(ctx, system, user)
	if err != nil {
		return domain.ReasoningStep{}, err
	}

	var step domain.ReasoningStep
	if err := json.Unmarshal(raw, &step); err != nil {
		return domain.ReasoningStep{}, fmt.Errorf("%w: reasoning pass: %v", domain.ErrOracleResponse, err)
	}
	return step, nil
}

// Synthesize runs the second answer pass over the context, the plan,
// and the compute result when one ran.
func (o *Oracle) Synthesize(ctx context.Context, query, assembled string, step domain.ReasoningStep, compute *domain.ComputeResult) (domain.FinalAnswer, error) {
	system := o.loadPrompt(driven.PromptSynthesisPass, defaultSynthesisPrompt)

	var sb strings.Builder
	fmt.Fprintf(&sb, "QUESTION: %s\n\n%s\n\nREASONING PLAN:\n%s\n", query, assembled, step.Plan)
	if len(step.MissingInfo) > 0 {
		fmt.Fprintf(&sb, "\nMISSING INFORMATION:\n- %s\n", strings.Join(step.MissingInfo, "\n- "))
	}
	if compute != nil {
		if compute.Err != "" {
			fmt.Fprintf(&sb, "\nCALCULATION FAILED: %s\nAnswer qualitatively and say the calculation could not be verified.\n", compute.Err)
		} else {
			fmt.Fprintf(&sb, "\nCALCULATION OUTPUT:\n%s\n", compute.Output)
		}
	}

	raw, err := o.completeJSON(ctx, system, sb.String())
	if err != nil {
		return domain.FinalAnswer{}, err
	}

	var answer domain.FinalAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return domain.FinalAnswer{}, fmt.Errorf("%w: synthesis pass: %v", domain.ErrOracleResponse, err)
	}
	if answer.DataSourceType == "" {
		answer.DataSourceType = domain.SourceNotFound
	}
	return answer, nil
}

// completeJSON runs one chat completion in JSON mode and returns the
// raw response content with any markdown code fence stripped.
func (o *Oracle) completeJSON(ctx context.Context, system, user string) ([]byte, error) {
	reqBody := chatCompletionRequest{
		Model: o.model,
		Messages: []chatCompletionMsg{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		o.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOracleResponse, err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOracleUnavailable, chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrOracleUnavailable, resp.StatusCode, string(body))
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no response choices returned", domain.ErrOracleResponse)
	}

	return []byte(stripCodeFence(chatResp.Choices[0].Message.Content)), nil
}

// stripCodeFence removes a wrapping markdown code fence. Some
// compatible servers ignore the response format and fence their JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// loadPrompt loads a prompt from the store, falling back to the default
// if unavailable.
func (o *Oracle) loadPrompt(name, fallback string) string {
	if o.promptStore == nil {
		return fallback
	}
	prompt, err := o.promptStore.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}

// Ping validates the service is reachable by checking the /models
// endpoint.
func (o *Oracle) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", domain.ErrOracleUnavailable, resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (o *Oracle) Close() error {
	return nil
}
