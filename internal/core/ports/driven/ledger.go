package driven

import (
	"context"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

// LedgerStore persists canonical fact rows. The store is append-only
// during ingestion and read-only during retrieval; repeated ingestion
// runs reconcile by upserting on RowID.
type LedgerStore interface {
	// UpsertRows inserts rows, replacing any existing row with the
	// same RowID. Idempotent for identical input.
	UpsertRows(ctx context.Context, rows []domain.FactRow) error

	// Filter returns rows matching the structured ledger filter:
	// entity-ID membership, year substring match against the period
	// label, and metric keywords (exact membership first, then
	// case-insensitive substring fallback).
	Filter(ctx context.Context, f domain.LedgerFilter) ([]domain.FactRow, error)

	// RowsBySourceBlocks returns every row derived from any of the
	// given source blocks.
	RowsBySourceBlocks(ctx context.Context, blockIDs []string) ([]domain.FactRow, error)

	// AllRows returns the full ledger, used to rebuild the schema
	// summary. An absent ledger returns an empty slice, not an error.
	AllRows(ctx context.Context) ([]domain.FactRow, error)

	// Close releases resources.
	Close() error
}

// BlockStore is the append-only log of segmented blocks keyed by ID.
type BlockStore interface {
	// PutBlocks appends blocks to the log. Re-putting an existing ID
	// overwrites it with identical content (idempotent re-ingestion).
	PutBlocks(ctx context.Context, blocks []domain.Block) error

	// GetBlocks fetches blocks by ID. Missing IDs are skipped.
	GetBlocks(ctx context.Context, ids []string) ([]domain.Block, error)

	// AllBlocks returns every stored block in insertion order.
	AllBlocks(ctx context.Context) ([]domain.Block, error)
}
