package driven

import (
	"context"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

// SchemaStore persists the schema summary between ingestion and query
// time. A missing summary is first-run bootstrap state: Load returns an
// empty summary and no error.
type SchemaStore interface {
	Save(ctx context.Context, summary domain.SchemaSummary) error
	Load(ctx context.Context) (domain.SchemaSummary, error)
}
