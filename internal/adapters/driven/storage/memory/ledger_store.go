// Package memory provides in-memory implementations of the storage
// ports, used in tests and as a fallback when persistence is disabled.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
)

// Ensure LedgerStore implements the interface.
var _ driven.LedgerStore = (*LedgerStore)(nil)

// LedgerStore keeps fact rows in insertion order, upserting by RowID.
type LedgerStore struct {
	mu    sync.RWMutex
	rows  []domain.FactRow
	index map[string]int // RowID -> position in rows
}

// NewLedgerStore creates an empty ledger.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{index: make(map[string]int)}
}

func (s *LedgerStore) UpsertRows(_ context.Context, rows []domain.FactRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if pos, ok := s.index[r.RowID]; ok {
			s.rows[pos] = r
			continue
		}
		s.index[r.RowID] = len(s.rows)
		s.rows = append(s.rows, r)
	}
	return nil
}

func (s *LedgerStore) Filter(_ context.Context, f domain.LedgerFilter) ([]domain.FactRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	base := make([]domain.FactRow, 0, len(s.rows))
	for _, r := range s.rows {
		if matchesBase(r, f) {
			base = append(base, r)
		}
	}
	if len(f.MetricKeywords) == 0 {
		return base, nil
	}

	// Exact metric membership first.
	exact := make(map[string]bool, len(f.MetricKeywords))
	for _, kw := range f.MetricKeywords {
		exact[kw] = true
	}
	var out []domain.FactRow
	for _, r := range base {
		if exact[r.MetricName] {
			out = append(out, r)
		}
	}
	if len(out) > 0 {
		return out, nil
	}

	// Fallback: case-insensitive substring.
	for _, r := range base {
		metric := strings.ToLower(r.MetricName)
		for _, kw := range f.MetricKeywords {
			if strings.Contains(metric, strings.ToLower(kw)) {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (s *LedgerStore) RowsBySourceBlocks(_ context.Context, blockIDs []string) ([]domain.FactRow, error) {
	want := make(map[string]bool, len(blockIDs))
	for _, id := range blockIDs {
		want[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.FactRow
	for _, r := range s.rows {
		if want[r.SourceBlockID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *LedgerStore) AllRows(_ context.Context) ([]domain.FactRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FactRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *LedgerStore) Close() error {
	return nil
}

func matchesBase(r domain.FactRow, f domain.LedgerFilter) bool {
	if len(f.EntityIDs) > 0 {
		found := false
		for _, id := range f.EntityIDs {
			if r.EntityID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Years) > 0 {
		found := false
		for _, y := range f.Years {
			if strings.Contains(r.Period, y) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
