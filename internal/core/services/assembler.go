package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
	"github.com/custodia-labs/factlens/internal/logger"
)

// DefaultBlockLimit caps how many source blocks survive into the
// assembled context.
const DefaultBlockLimit = 5

// Placeholder text rendered when a section has no content. Downstream
// reasoning always sees both section headers, so an empty ledger reads
// as an explicit absence rather than a missing section.
const (
	placeholderNoRows   = "No structured facts found."
	placeholderNoBlocks = "No source text available."
)

// sourceLinkBonus is the ranking bonus for blocks that back a selected
// fact row; keyword hits add one point each.
const sourceLinkBonus = 5

// defaultAssemblerInstructions is used when no PromptStore is
// configured or the prompt is missing.
const defaultAssemblerInstructions = `Answer using ONLY the fact rows and source text above.
Cite row IDs and block IDs for every figure you state.
If the context does not contain the answer, say so explicitly.`

// ContextAssembler deduplicates, ranks, and truncates retrieval output
// into the bounded textual context handed to the reasoning oracle.
type ContextAssembler struct {
	prompts    driven.PromptStore
	blockLimit int
}

// NewContextAssembler creates an assembler. prompts may be nil, in
// which case embedded default instructions are used. limit <= 0 uses
// the default block limit.
func NewContextAssembler(prompts driven.PromptStore, limit int) *ContextAssembler {
	if limit <= 0 {
		limit = DefaultBlockLimit
	}
	return &ContextAssembler{prompts: prompts, blockLimit: limit}
}

// Assemble renders the retrieval result into the prompt context.
// Re-entry with already-deduplicated input is a no-op on the content.
func (a *ContextAssembler) Assemble(res *RetrievalResult) string {
	rows := dedupeRows(res.Rows)
	blocks := dedupeBlocks(res.Blocks)
	blocks = a.rankAndFilter(blocks, res.Keywords, rows)

	var sb strings.Builder
	sb.WriteString("# FACT LEDGER ROWS\n")
	sb.WriteString(renderRowTable(rows))
	sb.WriteString("\n\n# SOURCE TEXT BLOCKS\n")
	sb.WriteString(renderBlocks(blocks))
	sb.WriteString("\n\n# INSTRUCTIONS FOR REASONING:\n")
	sb.WriteString(a.instructions())
	sb.WriteString("\n")
	return sb.String()
}

// rankAndFilter keeps the top blocks when the candidate set exceeds the
// limit. Blocks that are the source of a selected fact row score
// highest (verification linkage); each plan keyword appearing in the
// content adds a point. Sort is stable, so ties keep retrieval order.
func (a *ContextAssembler) rankAndFilter(blocks []domain.Block, keywords []string, rows []domain.FactRow) []domain.Block {
	if len(blocks) <= a.blockLimit {
		return blocks
	}

	sourceIDs := make(map[string]bool, len(rows))
	for _, r := range rows {
		sourceIDs[r.SourceBlockID] = true
	}

	scores := make(map[string]int, len(blocks))
	for _, b := range blocks {
		score := 0
		if sourceIDs[b.ID] {
			score += sourceLinkBonus
		}
		content := strings.ToLower(b.Content)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(content, strings.ToLower(kw)) {
				score++
			}
		}
		scores[b.ID] = score
	}

	ranked := make([]domain.Block, len(blocks))
	copy(ranked, blocks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i].ID] > scores[ranked[j].ID]
	})

	kept := ranked[:a.blockLimit]
	logger.Info("Filtered %d blocks to %d by relevance", len(blocks), len(kept))
	return kept
}

func (a *ContextAssembler) instructions() string {
	if a.prompts != nil {
		if p, err := a.prompts.Load(driven.PromptAssemblerInstructions); err == nil && p != "" {
			return p
		}
	}
	return defaultAssemblerInstructions
}

func renderRowTable(rows []domain.FactRow) string {
	if len(rows) == 0 {
		return placeholderNoRows
	}

	var sb strings.Builder
	sb.WriteString("| row_id | metric | value | unit | period | nuance | source |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, r := range rows {
		value := "n/a"
		if r.Value != nil {
			value = strconv.FormatFloat(*r.Value, 'f', -1, 64)
		}
		nuance := ""
		if r.NuanceNote != nil {
			nuance = *r.NuanceNote
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			r.RowID, r.MetricName, value, r.Unit, r.Period, nuance, r.SourceBlockID)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderBlocks(blocks []domain.Block) string {
	if len(blocks) == 0 {
		return placeholderNoBlocks
	}

	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, fmt.Sprintf("--- BLOCK_ID: %s ---\nSECTION: %s\nCONTENT:\n%s",
			b.ID, b.Breadcrumb(), b.Content))
	}
	return strings.Join(parts, "\n\n")
}

func dedupeRows(rows []domain.FactRow) []domain.FactRow {
	seen := make(map[string]bool, len(rows))
	out := make([]domain.FactRow, 0, len(rows))
	for _, r := range rows {
		if seen[r.RowID] {
			continue
		}
		seen[r.RowID] = true
		out = append(out, r)
	}
	return out
}

func dedupeBlocks(blocks []domain.Block) []domain.Block {
	seen := make(map[string]bool, len(blocks))
	out := make([]domain.Block, 0, len(blocks))
	for _, b := range blocks {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out
}
