package services

import (
	"context"
	"sort"
	"strings"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
	"github.com/custodia-labs/factlens/internal/logger"
)

// Retrieval expansion bounds.
const (
	// keywordFloorK widens keyword search to at least this many
	// results regardless of the caller's k, to catch exact-term
	// misses from semantic search.
	keywordFloorK = 5

	// relatedSearchK is the per-entity fan-out of relational
	// expansion.
	relatedSearchK = 2

	// DefaultRelatedEntityCap bounds how many distinct related
	// entities relational expansion will follow per plan. Dense
	// entity graphs would otherwise fan out without limit.
	DefaultRelatedEntityCap = 8

	// citedBlockLimit is how many most-cited source blocks the
	// row-to-block completeness phase pulls in.
	citedBlockLimit = 3
)

// RetrievalResult is the dual retriever's output: candidate fact rows
// and candidate blocks, deduplicated, in phase insertion order.
type RetrievalResult struct {
	Rows   []domain.FactRow
	Blocks []domain.Block

	// Keywords echoes the plan's keyword list for downstream ranking.
	Keywords []string
}

// DualRetriever executes a retrieval plan against the ledger and the
// content index, then expands the candidate set along the block/row
// linkage graph. All six phases are additive over insertion-ordered
// id-keyed sets, so later phases never evict earlier matches, and each
// phase is bounded, so retrieval always halts.
type DualRetriever struct {
	ledger driven.LedgerStore
	index  driven.BlockIndex

	relatedEntityCap int
	expandBlocks     bool
	expandRows       bool
}

// RetrieverOption configures a DualRetriever.
type RetrieverOption func(*DualRetriever)

// WithRelatedEntityCap overrides the relational-expansion cap.
func WithRelatedEntityCap(n int) RetrieverOption {
	return func(r *DualRetriever) {
		if n > 0 {
			r.relatedEntityCap = n
		}
	}
}

// WithoutBlockExpansion disables the row-to-block completeness phase.
func WithoutBlockExpansion() RetrieverOption {
	return func(r *DualRetriever) { r.expandBlocks = false }
}

// WithoutRowExpansion disables the block-to-row completeness phase.
func WithoutRowExpansion() RetrieverOption {
	return func(r *DualRetriever) { r.expandRows = false }
}

// NewDualRetriever creates a retriever over the given stores. Both
// completeness expansions are enabled by default.
func NewDualRetriever(ledger driven.LedgerStore, index driven.BlockIndex, opts ...RetrieverOption) *DualRetriever {
	r := &DualRetriever{
		ledger:           ledger,
		index:            index,
		relatedEntityCap: DefaultRelatedEntityCap,
		expandBlocks:     true,
		expandRows:       true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// blockSet and rowSet keep insertion order alongside id membership.
type blockSet struct {
	seen   map[string]bool
	blocks []domain.Block
}

func newBlockSet() *blockSet {
	return &blockSet{seen: make(map[string]bool)}
}

func (s *blockSet) add(bs ...domain.Block) {
	for _, b := range bs {
		if s.seen[b.ID] {
			continue
		}
		s.seen[b.ID] = true
		s.blocks = append(s.blocks, b)
	}
}

type rowSet struct {
	seen map[string]bool
	rows []domain.FactRow
}

func newRowSet() *rowSet {
	return &rowSet{seen: make(map[string]bool)}
}

func (s *rowSet) add(rs ...domain.FactRow) {
	for _, r := range rs {
		if s.seen[r.RowID] {
			continue
		}
		s.seen[r.RowID] = true
		s.rows = append(s.rows, r)
	}
}

// Retrieve runs the six retrieval phases for the plan with result size
// k. Search failures in any one phase are logged and treated as empty;
// the remaining phases still run.
func (r *DualRetriever) Retrieve(ctx context.Context, plan domain.RetrievalPlan, k int) (*RetrievalResult, error) {
	if k <= 0 {
		k = 4
	}
	logger.Section("Dual Retrieval")
	logger.Debug("Hypothesis: %.60q (k=%d)", plan.Hypothesis, k)

	blocks := newBlockSet()
	rows := newRowSet()

	// Phase 1: semantic search on the plan hypothesis.
	if plan.Hypothesis != "" {
		hits, err := r.index.SemanticSearch(ctx, plan.Hypothesis, k)
		if err != nil {
			logger.Warn("Semantic search failed: %v", err)
		}
		blocks.add(hits...)
	}

	// Phase 2: keyword search, intentionally wider than k.
	if len(plan.Keywords) > 0 {
		query := strings.Join(plan.Keywords, " ")
		kk := max(k, keywordFloorK)
		logger.Debug("Keyword search: %q (k=%d)", query, kk)
		hits, err := r.index.KeywordSearch(ctx, query, kk)
		if err != nil {
			logger.Warn("Keyword search failed: %v", err)
		}
		blocks.add(hits...)
	}

	// Phase 3: direct ledger filter.
	var filtered []domain.FactRow
	if plan.LedgerFilter != nil {
		var err error
		filtered, err = r.ledger.Filter(ctx, *plan.LedgerFilter)
		if err != nil {
			logger.Warn("Ledger filter failed: %v", err)
		}
		rows.add(filtered...)
	}

	// Phase 4: relational expansion. Follow the related-entity edges
	// of the filtered rows, capped so a dense entity graph cannot fan
	// out unboundedly.
	for _, entity := range relatedEntities(filtered, r.relatedEntityCap) {
		hits, err := r.index.SemanticSearch(ctx, "Information about "+entity, relatedSearchK)
		if err != nil {
			logger.Warn("Relational expansion for %q failed: %v", entity, err)
			continue
		}
		blocks.add(hits...)
	}

	// Phase 5: row-to-block completeness. Pull in the most-cited
	// source blocks that retrieval has not already surfaced.
	if r.expandBlocks && len(rows.rows) > 0 {
		ids := topCitedSources(rows.rows, blocks.seen, citedBlockLimit)
		if len(ids) > 0 {
			fetched, err := r.index.GetBlocks(ctx, ids)
			if err != nil {
				logger.Warn("Source block fetch failed: %v", err)
			}
			blocks.add(fetched...)
		}
	}

	// Phase 6: block-to-row completeness. Every row derived from any
	// candidate block joins the set.
	if r.expandRows && len(blocks.blocks) > 0 {
		ids := make([]string, 0, len(blocks.blocks))
		for _, b := range blocks.blocks {
			ids = append(ids, b.ID)
		}
		derived, err := r.ledger.RowsBySourceBlocks(ctx, ids)
		if err != nil {
			logger.Warn("Row completeness fetch failed: %v", err)
		}
		rows.add(derived...)
	}

	logger.Info("Retrieval complete: %d rows, %d blocks", len(rows.rows), len(blocks.blocks))
	return &RetrievalResult{
		Rows:     rows.rows,
		Blocks:   blocks.blocks,
		Keywords: plan.Keywords,
	}, nil
}

// relatedEntities returns the distinct non-nil related-entity IDs of
// the rows, in row order, capped at limit.
func relatedEntities(rows []domain.FactRow, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range rows {
		if row.RelatedEntityID == nil || *row.RelatedEntityID == "" {
			continue
		}
		id := *row.RelatedEntityID
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) >= limit {
			logger.Debug("Relational expansion capped at %d entities", limit)
			break
		}
	}
	return out
}

// topCitedSources counts how often each source block is cited by the
// selected rows and returns the most frequent IDs not already present,
// descending by count, stable on first-citation order.
func topCitedSources(rows []domain.FactRow, present map[string]bool, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, row := range rows {
		if _, ok := counts[row.SourceBlockID]; !ok {
			order = append(order, row.SourceBlockID)
		}
		counts[row.SourceBlockID]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	var out []string
	for _, id := range order {
		if present[id] {
			continue
		}
		out = append(out, id)
		if len(out) >= limit {
			break
		}
	}
	return out
}
