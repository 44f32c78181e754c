package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

func indexedBlocks() []domain.Block {
	return []domain.Block{
		{ID: "b1", SectionPath: []string{"Part I"}, Content: "backlog grew to record levels"},
		{ID: "b2", SectionPath: []string{"Part II"}, Content: "net income declined year over year"},
		{ID: "b3", SectionPath: []string{"Part II"}, Content: "net income and backlog both improved"},
	}
}

func TestBlockIndex_SearchRanksByOverlap(t *testing.T) {
	x := NewBlockIndex()
	ctx := context.Background()
	require.NoError(t, x.IndexBlocks(ctx, indexedBlocks()))

	hits, err := x.KeywordSearch(ctx, "net income backlog", 2)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b3", hits[0].ID) // matches all three terms
}

func TestBlockIndex_SearchRespectsK(t *testing.T) {
	x := NewBlockIndex()
	ctx := context.Background()
	require.NoError(t, x.IndexBlocks(ctx, indexedBlocks()))

	hits, err := x.SemanticSearch(ctx, "income", 1)

	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestBlockIndex_GetBlocksSkipsMissing(t *testing.T) {
	x := NewBlockIndex()
	ctx := context.Background()
	require.NoError(t, x.IndexBlocks(ctx, indexedBlocks()))

	got, err := x.GetBlocks(ctx, []string{"b2", "missing", "b1"})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b2", got[0].ID)
	assert.Equal(t, "b1", got[1].ID)
}

func TestBlockIndex_ReindexOverwrites(t *testing.T) {
	x := NewBlockIndex()
	ctx := context.Background()
	require.NoError(t, x.IndexBlocks(ctx, indexedBlocks()))
	require.NoError(t, x.IndexBlocks(ctx, []domain.Block{
		{ID: "b1", Content: "replaced content"},
	}))

	got, err := x.GetBlocks(ctx, []string{"b1"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "replaced content", got[0].Content)
}

func TestBlockIndex_LinkRowsAccumulates(t *testing.T) {
	x := NewBlockIndex()
	ctx := context.Background()

	require.NoError(t, x.LinkRows(ctx, "b1", []string{"r1"}))
	require.NoError(t, x.LinkRows(ctx, "b1", []string{"r2", "r3"}))

	assert.Equal(t, []string{"r1", "r2", "r3"}, x.LinkedRows("b1"))
}
