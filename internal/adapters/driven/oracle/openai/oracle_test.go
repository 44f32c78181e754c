package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

// capturedRequest holds the last chat completion request the fake
// server saw.
type capturedRequest struct {
	System string
	User   string
}

// newTestOracle starts a fake chat completions server that always
// replies with content and returns an oracle pointed at it.
func newTestOracle(t *testing.T, content string) (*Oracle, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		captured.System = req.Messages[0].Content
		captured.User = req.Messages[1].Content

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)

	oracle, err := NewOracle(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return oracle, captured
}

func TestNewOracle_RequiresAPIKey(t *testing.T) {
	_, err := NewOracle(Config{})

	assert.ErrorIs(t, err, domain.ErrMissingCredential)
}

func TestResolveEntity(t *testing.T) {
	oracle, captured := newTestOracle(t, `{"canonical_id":"ID_ACME","official_name":"ACME Corp","aliases":["the Company"]}`)

	meta, err := oracle.ResolveEntity(context.Background(), []domain.Block{
		{Content: "ACME CORP ANNUAL REPORT"},
	})

	require.NoError(t, err)
	assert.Equal(t, "ID_ACME", meta.CanonicalID)
	assert.Equal(t, "ACME Corp", meta.OfficialName)
	assert.Contains(t, captured.User, "ACME CORP ANNUAL REPORT")
}

func TestResolveEntity_FencedJSON(t *testing.T) {
	oracle, _ := newTestOracle(t, "```json\n{\"canonical_id\":\"ID_ACME\",\"official_name\":\"ACME Corp\"}\n```")

	meta, err := oracle.ResolveEntity(context.Background(), []domain.Block{{Content: "cover"}})

	require.NoError(t, err)
	assert.Equal(t, "ID_ACME", meta.CanonicalID)
}

func TestResolveEntity_IncompleteIdentity(t *testing.T) {
	oracle, _ := newTestOracle(t, `{"canonical_id":"","official_name":"ACME Corp"}`)

	_, err := oracle.ResolveEntity(context.Background(), []domain.Block{{Content: "cover"}})

	assert.ErrorIs(t, err, domain.ErrOracleResponse)
}

func TestExtractFacts(t *testing.T) {
	oracle, captured := newTestOracle(t, `{"facts":[{"metric_name":"Backlog","value":1200000000,"unit":"USD","confidence":0.9}]}`)

	block := domain.Block{
		SectionPath: []string{"Item 1", "Business"},
		Content:     "Backlog was $1.2 billion.",
	}
	facts, err := oracle.ExtractFacts(context.Background(), block, "Registrant: ACME Corp.")

	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Backlog", facts[0].MetricName)
	assert.Contains(t, captured.User, "DOCUMENT CONTEXT: Registrant: ACME Corp.")
	assert.Contains(t, captured.User, "SECTION: Item 1 > Business")
	assert.Contains(t, captured.User, "Backlog was $1.2 billion.")
}

func TestPlanQuery(t *testing.T) {
	oracle, captured := newTestOracle(t, `{"hypothesis":"net income was stated","keywords":["net income"],"strategy":"ledger_only"}`)

	schema := domain.SchemaSummary{Metrics: []string{"Net Income"}}
	plan, err := oracle.PlanQuery(context.Background(), "what was net income", schema)

	require.NoError(t, err)
	assert.Equal(t, domain.StrategyLedgerOnly, plan.Strategy)
	// The schema summary is interpolated into the system prompt.
	assert.Contains(t, captured.System, "Net Income")
	assert.Equal(t, "what was net income", captured.User)
}

func TestPlanQuery_DefaultsStrategyToHybrid(t *testing.T) {
	oracle, _ := newTestOracle(t, `{"hypothesis":"h","keywords":[]}`)

	plan, err := oracle.PlanQuery(context.Background(), "q", domain.SchemaSummary{})

	require.NoError(t, err)
	assert.Equal(t, domain.StrategyHybrid, plan.Strategy)
}

func TestReason(t *testing.T) {
	oracle, captured := newTestOracle(t, `{"plan":"divide","requires_compute":true,"code":"fmt.Println(1)"}`)

	step, err := oracle.Reason(context.Background(), "what is the margin", "# FACT LEDGER ROWS\n...")

	require.NoError(t, err)
	assert.True(t, step.RequiresCompute)
	assert.Equal(t, "fmt.Println(1)", step.Code)
	assert.Contains(t, captured.User, "QUESTION: what is the margin")
	assert.Contains(t, captured.User, "# FACT LEDGER ROWS")
}

func TestSynthesize_CarriesComputeOutput(t *testing.T) {
	oracle, captured := newTestOracle(t, `{"answer":"25% [row-1]","data_source_type":"GROUNDED","citations":["row-1"],"groundedness_score":0.9}`)

	step := domain.ReasoningStep{Plan: "divide the two rows"}
	compute := &domain.ComputeResult{Output: "0.25"}
	answer, err := oracle.Synthesize(context.Background(), "margin?", "ctx", step, compute)

	require.NoError(t, err)
	assert.Equal(t, domain.SourceGrounded, answer.DataSourceType)
	assert.Contains(t, captured.User, "REASONING PLAN:\ndivide the two rows")
	assert.Contains(t, captured.User, "CALCULATION OUTPUT:\n0.25")
}

func TestSynthesize_ReportsComputeFailure(t *testing.T) {
	oracle, captured := newTestOracle(t, `{"answer":"could not verify","data_source_type":"NOT_FOUND","citations":[]}`)

	step := domain.ReasoningStep{Plan: "divide", MissingInfo: []string{"revenue for 2022"}}
	compute := &domain.ComputeResult{Err: "division by zero"}
	_, err := oracle.Synthesize(context.Background(), "q", "ctx", step, compute)

	require.NoError(t, err)
	assert.Contains(t, captured.User, "CALCULATION FAILED: division by zero")
	assert.Contains(t, captured.User, "MISSING INFORMATION:\n- revenue for 2022")
}

func TestSynthesize_DefaultsSourceToNotFound(t *testing.T) {
	oracle, _ := newTestOracle(t, `{"answer":"no idea","citations":[]}`)

	answer, err := oracle.Synthesize(context.Background(), "q", "ctx", domain.ReasoningStep{}, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.SourceNotFound, answer.DataSourceType)
}

func TestCompleteJSON_APIErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limit exceeded","type":"rate_limit"}}`)
	}))
	t.Cleanup(server.Close)

	oracle, err := NewOracle(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = oracle.Reason(context.Background(), "q", "ctx")

	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}
