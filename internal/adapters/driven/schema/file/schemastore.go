// Package file provides the JSON-file schema summary store.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
)

// Ensure SchemaStore implements the interface.
var _ driven.SchemaStore = (*SchemaStore)(nil)

const schemaFile = "schema.json"

// SchemaStore persists the schema summary as a single JSON file in the
// data directory. A missing file is first-run state, not an error.
type SchemaStore struct {
	mu   sync.Mutex
	path string
}

// NewSchemaStore creates a schema store under dataDir.
// If dataDir is empty, defaults to ~/.factlens/data.
func NewSchemaStore(dataDir string) (*SchemaStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".factlens", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &SchemaStore{path: filepath.Join(dataDir, schemaFile)}, nil
}

// Save writes the summary, replacing any previous one atomically.
func (s *SchemaStore) Save(_ context.Context, summary domain.SchemaSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema summary: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing schema summary: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing schema summary: %w", err)
	}
	return nil
}

// Load reads the summary. A missing file returns an empty summary.
func (s *SchemaStore) Load(_ context.Context) (domain.SchemaSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SchemaSummary{}, nil
		}
		return domain.SchemaSummary{}, fmt.Errorf("reading schema summary: %w", err)
	}

	var summary domain.SchemaSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return domain.SchemaSummary{}, fmt.Errorf("parsing schema summary: %w", err)
	}
	return summary, nil
}

// Path returns the schema file path.
func (s *SchemaStore) Path() string {
	return s.path
}
