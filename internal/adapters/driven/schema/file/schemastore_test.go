package file

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/factlens/internal/core/domain"
)

func TestSchemaStore_RoundTrip(t *testing.T) {
	store, err := NewSchemaStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	summary := domain.SchemaSummary{
		Entities: []domain.EntitySummary{{ID: "ID_ACME", OfficialName: "ACME Corp"}},
		Metrics:  []string{"Net Income", "Revenue"},
	}
	require.NoError(t, store.Save(ctx, summary))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, summary, loaded)
}

func TestSchemaStore_MissingFileIsEmptySummary(t *testing.T) {
	store, err := NewSchemaStore(t.TempDir())
	require.NoError(t, err)

	loaded, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, loaded.Entities)
	assert.Empty(t, loaded.Metrics)
}

func TestSchemaStore_SaveReplacesPrevious(t *testing.T) {
	store, err := NewSchemaStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.SchemaSummary{Metrics: []string{"Old"}}))
	require.NoError(t, store.Save(ctx, domain.SchemaSummary{Metrics: []string{"New"}}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"New"}, loaded.Metrics)

	// No temp file left behind.
	_, statErr := os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestSchemaStore_CorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSchemaStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

	_, err = store.Load(context.Background())

	assert.Error(t, err)
}
