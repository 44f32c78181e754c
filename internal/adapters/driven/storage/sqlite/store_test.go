package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRow(id string) domain.FactRow {
	value := 500e6
	nuance := "Restated"
	related := "FOXCONN"
	return domain.FactRow{
		RowID:           id,
		EntityID:        "ID_ACME",
		EntityNameRaw:   "ACME Corp",
		MetricName:      "Net Income",
		RelatedEntityID: &related,
		Value:           &value,
		Unit:            domain.UnitUSD,
		ScaleFactor:     1e6,
		Period:          "2023",
		DocSection:      "Part II > Item 8",
		SourceBlockID:   "blk-1",
		NuanceNote:      &nuance,
		Confidence:      0.95,
	}
}

func TestStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestLedgerStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ledger := store.LedgerStore()
	ctx := context.Background()

	want := sampleRow("row-1")
	require.NoError(t, ledger.UpsertRows(ctx, []domain.FactRow{want}))

	got, err := ledger.AllRows(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])
}

func TestLedgerStore_NullableFields(t *testing.T) {
	store := newTestStore(t)
	ledger := store.LedgerStore()
	ctx := context.Background()

	row := domain.FactRow{
		RowID:         "row-1",
		EntityID:      "ID_ACME",
		MetricName:    "Auditor",
		Unit:          "Text",
		ScaleFactor:   1,
		Period:        "2023",
		SourceBlockID: "blk-1",
	}
	require.NoError(t, ledger.UpsertRows(ctx, []domain.FactRow{row}))

	got, err := ledger.AllRows(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Value)
	assert.Nil(t, got[0].NuanceNote)
	assert.Nil(t, got[0].RelatedEntityID)
}

func TestLedgerStore_UpsertReplacesByRowID(t *testing.T) {
	store := newTestStore(t)
	ledger := store.LedgerStore()
	ctx := context.Background()

	row := sampleRow("row-1")
	require.NoError(t, ledger.UpsertRows(ctx, []domain.FactRow{row}))

	row.Confidence = 0.5
	require.NoError(t, ledger.UpsertRows(ctx, []domain.FactRow{row}))

	got, err := ledger.AllRows(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.5, got[0].Confidence)
}

func TestLedgerStore_FilterExactMetricBeatsSubstring(t *testing.T) {
	store := newTestStore(t)
	ledger := store.LedgerStore()
	ctx := context.Background()

	exact := sampleRow("row-1")
	broader := sampleRow("row-2")
	broader.MetricName = "Net Income per Share"
	require.NoError(t, ledger.UpsertRows(ctx, []domain.FactRow{exact, broader}))

	got, err := ledger.Filter(ctx, domain.LedgerFilter{MetricKeywords: []string{"Net Income"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "row-1", got[0].RowID)
}

func TestLedgerStore_FilterSubstringFallback(t *testing.T) {
	store := newTestStore(t)
	ledger := store.LedgerStore()
	ctx := context.Background()

	row := sampleRow("row-1")
	row.MetricName = "Net Income per Share"
	require.NoError(t, ledger.UpsertRows(ctx, []domain.FactRow{row}))

	got, err := ledger.Filter(ctx, domain.LedgerFilter{MetricKeywords: []string{"net income"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "row-1", got[0].RowID)
}

func TestLedgerStore_FilterEntityAndYear(t *testing.T) {
	store := newTestStore(t)
	ledger := store.LedgerStore()
	ctx := context.Background()

	match := sampleRow("row-1")
	restated := sampleRow("row-2")
	restated.Period = "2022 (Restated)"
	other := sampleRow("row-3")
	other.EntityID = "ID_OTHER"
	require.NoError(t, ledger.UpsertRows(ctx, []domain.FactRow{match, restated, other}))

	got, err := ledger.Filter(ctx, domain.LedgerFilter{
		EntityIDs: []string{"ID_ACME"},
		Years:     []string{"2022"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	// Year matching is a substring test, so restated periods still hit.
	assert.Equal(t, "row-2", got[0].RowID)
}

func TestLedgerStore_RowsBySourceBlocks(t *testing.T) {
	store := newTestStore(t)
	ledger := store.LedgerStore()
	ctx := context.Background()

	a := sampleRow("row-1")
	b := sampleRow("row-2")
	b.SourceBlockID = "blk-2"
	c := sampleRow("row-3")
	c.SourceBlockID = "blk-3"
	require.NoError(t, ledger.UpsertRows(ctx, []domain.FactRow{a, b, c}))

	got, err := ledger.RowsBySourceBlocks(ctx, []string{"blk-1", "blk-3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "row-1", got[0].RowID)
	assert.Equal(t, "row-3", got[1].RowID)
}

func TestBlockStore_RoundTripPreservesOrder(t *testing.T) {
	store := newTestStore(t)
	blocks := store.BlockStore()
	ctx := context.Background()

	page := 3
	input := []domain.Block{
		{ID: "b1", Kind: domain.BlockKindText, SectionPath: []string{"Part I"}, Content: "first"},
		{ID: "b2", Kind: domain.BlockKindTable, SectionPath: []string{"Part II", "Item 8"}, PageNum: &page, Content: "| a | b |"},
	}
	require.NoError(t, blocks.PutBlocks(ctx, input))

	got, err := blocks.AllBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, input, got)
}

func TestBlockStore_GetBlocksSkipsMissing(t *testing.T) {
	store := newTestStore(t)
	blocks := store.BlockStore()
	ctx := context.Background()

	require.NoError(t, blocks.PutBlocks(ctx, []domain.Block{
		{ID: "b1", Kind: domain.BlockKindText, SectionPath: []string{}, Content: "x"},
	}))

	got, err := blocks.GetBlocks(ctx, []string{"b1", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)
}

func TestBlockStore_RePutOverwrites(t *testing.T) {
	store := newTestStore(t)
	blocks := store.BlockStore()
	ctx := context.Background()

	require.NoError(t, blocks.PutBlocks(ctx, []domain.Block{
		{ID: "b1", Kind: domain.BlockKindText, SectionPath: []string{}, Content: "old"},
	}))
	require.NoError(t, blocks.PutBlocks(ctx, []domain.Block{
		{ID: "b1", Kind: domain.BlockKindText, SectionPath: []string{}, Content: "new"},
	}))

	got, err := blocks.AllBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Content)
}
