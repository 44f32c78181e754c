package driving

import (
	"context"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

// IngestOptions configures one ingestion run.
type IngestOptions struct {
	// Reuse skips extraction when the ledger already holds rows for
	// the document, rebuilding only the schema summary.
	Reuse bool
}

// IngestReport summarises a completed ingestion run.
type IngestReport struct {
	// Entity is the resolved registrant.
	Entity domain.EntityMetadata

	// Blocks is the number of segmented blocks.
	Blocks int

	// Rows is the number of fact rows written to the ledger.
	Rows int

	// FailedBlocks counts blocks whose extraction failed and was
	// skipped. Never aborts the run.
	FailedBlocks int
}

// IngestService runs the full ingestion pipeline for one document:
// segment, resolve entity, index, melt and extract, append to the
// ledger, and refresh the schema summary.
type IngestService interface {
	Ingest(ctx context.Context, markdown string, opts IngestOptions) (*IngestReport, error)
}
