package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
)

func TestAssemble_EmptyResultRendersPlaceholders(t *testing.T) {
	a := NewContextAssembler(nil, 0)

	out := a.Assemble(&RetrievalResult{})

	// Both section headers are always present so an empty ledger reads
	// as an explicit absence.
	assert.Contains(t, out, "# FACT LEDGER ROWS\nNo structured facts found.")
	assert.Contains(t, out, "# SOURCE TEXT BLOCKS\nNo source text available.")
	assert.Contains(t, out, "# INSTRUCTIONS FOR REASONING:\n")
	assert.Contains(t, out, "Cite row IDs and block IDs")
}

func TestAssemble_RowTable(t *testing.T) {
	value := 500.0
	nuance := "Restated"
	rows := []domain.FactRow{
		{
			RowID:         "row-1",
			MetricName:    "Net Income",
			Value:         &value,
			Unit:          domain.UnitUSD,
			Period:        "2023",
			NuanceNote:    &nuance,
			SourceBlockID: "blk-1",
		},
		{
			RowID:         "row-2",
			MetricName:    "Auditor",
			Value:         nil,
			Unit:          "Text",
			Period:        "2023",
			SourceBlockID: "blk-2",
		},
	}

	out := NewContextAssembler(nil, 0).Assemble(&RetrievalResult{Rows: rows})

	assert.Contains(t, out, "| row_id | metric | value | unit | period | nuance | source |")
	assert.Contains(t, out, "| row-1 | Net Income | 500 | USD | 2023 | Restated | blk-1 |")
	assert.Contains(t, out, "| row-2 | Auditor | n/a | Text | 2023 |  | blk-2 |")
}

func TestAssemble_BlockRendering(t *testing.T) {
	blocks := []domain.Block{
		{
			ID:          "blk-1",
			SectionPath: []string{"Part II", "Item 8"},
			Content:     "Net income was $500 million.",
		},
	}

	out := NewContextAssembler(nil, 0).Assemble(&RetrievalResult{Blocks: blocks})

	assert.Contains(t, out, "--- BLOCK_ID: blk-1 ---\nSECTION: Part II > Item 8\nCONTENT:\nNet income was $500 million.")
}

func TestAssemble_Deduplicates(t *testing.T) {
	block := domain.Block{ID: "blk-1", Content: "once"}
	row := domain.FactRow{RowID: "row-1", MetricName: "Revenue", SourceBlockID: "blk-1"}

	out := NewContextAssembler(nil, 0).Assemble(&RetrievalResult{
		Rows:   []domain.FactRow{row, row},
		Blocks: []domain.Block{block, block},
	})

	assert.Equal(t, 1, strings.Count(out, "BLOCK_ID: blk-1"))
	assert.Equal(t, 1, strings.Count(out, "| row-1 |"))
}

func TestAssemble_RanksBlocksOverLimit(t *testing.T) {
	blocks := []domain.Block{
		{ID: "plain", Content: "nothing relevant here"},
		{ID: "keyword-hit", Content: "the backlog grew substantially"},
		{ID: "row-source", Content: "supporting detail"},
	}
	rows := []domain.FactRow{{RowID: "r1", SourceBlockID: "row-source"}}

	out := NewContextAssembler(nil, 2).Assemble(&RetrievalResult{
		Rows:     rows,
		Blocks:   blocks,
		Keywords: []string{"backlog"},
	})

	// Source linkage outranks a keyword hit; the unscored block drops.
	assert.Contains(t, out, "BLOCK_ID: row-source")
	assert.Contains(t, out, "BLOCK_ID: keyword-hit")
	assert.NotContains(t, out, "BLOCK_ID: plain")
	assert.Less(t, strings.Index(out, "BLOCK_ID: row-source"), strings.Index(out, "BLOCK_ID: keyword-hit"))
}

func TestAssemble_UnderLimitKeepsRetrievalOrder(t *testing.T) {
	blocks := []domain.Block{
		{ID: "first", Content: "no keyword"},
		{ID: "second", Content: "backlog mention"},
	}

	out := NewContextAssembler(nil, 5).Assemble(&RetrievalResult{
		Blocks:   blocks,
		Keywords: []string{"backlog"},
	})

	assert.Less(t, strings.Index(out, "BLOCK_ID: first"), strings.Index(out, "BLOCK_ID: second"))
}

func TestAssemble_InstructionsFromPromptStore(t *testing.T) {
	prompts := &mockPrompts{prompts: map[string]string{
		driven.PromptAssemblerInstructions: "Answer tersely.",
	}}

	out := NewContextAssembler(prompts, 0).Assemble(&RetrievalResult{})

	assert.Contains(t, out, "# INSTRUCTIONS FOR REASONING:\nAnswer tersely.\n")
	assert.NotContains(t, out, "Cite row IDs and block IDs")
}

func TestAssemble_MissingPromptFallsBackToDefault(t *testing.T) {
	out := NewContextAssembler(&mockPrompts{prompts: map[string]string{}}, 0).Assemble(&RetrievalResult{})

	assert.Contains(t, out, "Cite row IDs and block IDs")
}
