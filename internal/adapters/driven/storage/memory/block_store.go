package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
)

// Ensure BlockStore implements the interface.
var _ driven.BlockStore = (*BlockStore)(nil)

// BlockStore keeps blocks in insertion order, keyed by ID.
type BlockStore struct {
	mu     sync.RWMutex
	blocks []domain.Block
	index  map[string]int
}

// NewBlockStore creates an empty block log.
func NewBlockStore() *BlockStore {
	return &BlockStore{index: make(map[string]int)}
}

func (s *BlockStore) PutBlocks(_ context.Context, blocks []domain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range blocks {
		if pos, ok := s.index[b.ID]; ok {
			s.blocks[pos] = b
			continue
		}
		s.index[b.ID] = len(s.blocks)
		s.blocks = append(s.blocks, b)
	}
	return nil
}

func (s *BlockStore) GetBlocks(_ context.Context, ids []string) ([]domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Block
	for _, id := range ids {
		if pos, ok := s.index[id]; ok {
			out = append(out, s.blocks[pos])
		}
	}
	return out, nil
}

func (s *BlockStore) AllBlocks(_ context.Context) ([]domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Block, len(s.blocks))
	copy(out, s.blocks)
	return out, nil
}
