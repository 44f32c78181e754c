package driven

import (
	"context"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

// BlockIndex is the content index over document blocks: a vector
// collection for semantic search plus a keyword index, both keyed by
// block ID. The index owns a copy of block content for search purposes.
type BlockIndex interface {
	// IndexBlocks adds blocks to both the semantic and keyword sides.
	IndexBlocks(ctx context.Context, blocks []domain.Block) error

	// SemanticSearch embeds the query text and returns the k nearest
	// blocks.
	SemanticSearch(ctx context.Context, query string, k int) ([]domain.Block, error)

	// KeywordSearch runs a lexical (BM25) search and returns up to k
	// matching blocks.
	KeywordSearch(ctx context.Context, query string, k int) ([]domain.Block, error)

	// GetBlocks fetches indexed blocks by ID. Missing IDs are skipped.
	GetBlocks(ctx context.Context, ids []string) ([]domain.Block, error)

	// LinkRows records which ledger rows were derived from a block.
	// Advisory metadata; failures are logged, not fatal.
	LinkRows(ctx context.Context, blockID string, rowIDs []string) error

	// Close flushes any snapshot and releases resources.
	Close() error
}
