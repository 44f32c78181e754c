package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

// Hand-written mocks for the driven ports, shared by the service tests
// in this package.

type mockLedger struct {
	filterRows  []domain.FactRow
	filterErr   error
	bySource    []domain.FactRow
	bySourceErr error
	allRows     []domain.FactRow

	filters       []domain.LedgerFilter
	sourceQueries [][]string
	upserted      [][]domain.FactRow
}

func (m *mockLedger) UpsertRows(_ context.Context, rows []domain.FactRow) error {
	m.upserted = append(m.upserted, rows)
	return nil
}

func (m *mockLedger) Filter(_ context.Context, f domain.LedgerFilter) ([]domain.FactRow, error) {
	m.filters = append(m.filters, f)
	return m.filterRows, m.filterErr
}

func (m *mockLedger) RowsBySourceBlocks(_ context.Context, blockIDs []string) ([]domain.FactRow, error) {
	m.sourceQueries = append(m.sourceQueries, blockIDs)
	return m.bySource, m.bySourceErr
}

func (m *mockLedger) AllRows(_ context.Context) ([]domain.FactRow, error) {
	return m.allRows, nil
}

func (m *mockLedger) Close() error { return nil }

type mockIndex struct {
	semantic    map[string][]domain.Block // query -> hits
	semanticErr error
	keyword     []domain.Block
	keywordErr  error
	stored      map[string]domain.Block
	getErr      error

	semanticQueries []string
	semanticKs      []int
	keywordQueries  []string
	keywordKs       []int
	getQueries      [][]string
	indexed         []domain.Block
	linked          map[string][]string
}

func (m *mockIndex) IndexBlocks(_ context.Context, blocks []domain.Block) error {
	m.indexed = append(m.indexed, blocks...)
	return nil
}

func (m *mockIndex) SemanticSearch(_ context.Context, query string, k int) ([]domain.Block, error) {
	m.semanticQueries = append(m.semanticQueries, query)
	m.semanticKs = append(m.semanticKs, k)
	return m.semantic[query], m.semanticErr
}

func (m *mockIndex) KeywordSearch(_ context.Context, query string, k int) ([]domain.Block, error) {
	m.keywordQueries = append(m.keywordQueries, query)
	m.keywordKs = append(m.keywordKs, k)
	return m.keyword, m.keywordErr
}

func (m *mockIndex) GetBlocks(_ context.Context, ids []string) ([]domain.Block, error) {
	m.getQueries = append(m.getQueries, ids)
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []domain.Block
	for _, id := range ids {
		if b, ok := m.stored[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockIndex) LinkRows(_ context.Context, blockID string, rowIDs []string) error {
	if m.linked == nil {
		m.linked = make(map[string][]string)
	}
	m.linked[blockID] = append(m.linked[blockID], rowIDs...)
	return nil
}

func (m *mockIndex) Close() error { return nil }

type mockPlanner struct {
	plan domain.RetrievalPlan
	err  error

	queries []string
	schemas []domain.SchemaSummary
}

func (m *mockPlanner) PlanQuery(_ context.Context, query string, schema domain.SchemaSummary) (domain.RetrievalPlan, error) {
	m.queries = append(m.queries, query)
	m.schemas = append(m.schemas, schema)
	return m.plan, m.err
}

type mockReasoningOracle struct {
	step      domain.ReasoningStep
	reasonErr error
	final     domain.FinalAnswer
	synthErr  error

	reasonQueries []string
	synthCalled   bool
	synthStep     domain.ReasoningStep
	synthCompute  *domain.ComputeResult
	synthContext  string
}

func (m *mockReasoningOracle) Reason(_ context.Context, query, _ string) (domain.ReasoningStep, error) {
	m.reasonQueries = append(m.reasonQueries, query)
	return m.step, m.reasonErr
}

func (m *mockReasoningOracle) Synthesize(_ context.Context, _, context string, step domain.ReasoningStep, compute *domain.ComputeResult) (domain.FinalAnswer, error) {
	m.synthCalled = true
	m.synthStep = step
	m.synthCompute = compute
	m.synthContext = context
	return m.final, m.synthErr
}

type mockCompute struct {
	result domain.ComputeResult

	called bool
	code   string
}

func (m *mockCompute) Run(_ context.Context, code string) domain.ComputeResult {
	m.called = true
	m.code = code
	return m.result
}

type mockSchemaStore struct {
	summary domain.SchemaSummary
	loadErr error

	saved []domain.SchemaSummary
}

func (m *mockSchemaStore) Save(_ context.Context, summary domain.SchemaSummary) error {
	m.saved = append(m.saved, summary)
	return nil
}

func (m *mockSchemaStore) Load(_ context.Context) (domain.SchemaSummary, error) {
	return m.summary, m.loadErr
}

type mockPrompts struct {
	prompts map[string]string
	err     error
}

func (m *mockPrompts) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

func (m *mockPrompts) Reload() {}

type mockResolver struct {
	meta domain.EntityMetadata
	err  error

	windows [][]domain.Block
}

func (m *mockResolver) ResolveEntity(_ context.Context, blocks []domain.Block) (domain.EntityMetadata, error) {
	m.windows = append(m.windows, blocks)
	return m.meta, m.err
}

// mockExtractor is called concurrently by the ingestion worker pool.
// Block IDs are fresh per segmentation, so it returns the same facts
// for every call.
type mockExtractor struct {
	mu    sync.Mutex
	facts []domain.ScrapedFact
	err   error

	calls []string
	hints []string
}

func (m *mockExtractor) ExtractFacts(_ context.Context, block domain.Block, contextHint string) ([]domain.ScrapedFact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, block.ID)
	m.hints = append(m.hints, contextHint)
	if m.err != nil {
		return nil, m.err
	}
	return m.facts, nil
}

func (m *mockExtractor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
