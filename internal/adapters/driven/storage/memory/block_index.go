package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
)

// Ensure BlockIndex implements the interface.
var _ driven.BlockIndex = (*BlockIndex)(nil)

// BlockIndex is a naive in-memory content index. Both search sides rank
// by token overlap between query and block content; good enough for
// tests and offline runs, not a real retrieval backend.
type BlockIndex struct {
	mu       sync.RWMutex
	blocks   []domain.Block
	index    map[string]int
	rowLinks map[string][]string // block ID -> derived row IDs
}

// NewBlockIndex creates an empty index.
func NewBlockIndex() *BlockIndex {
	return &BlockIndex{
		index:    make(map[string]int),
		rowLinks: make(map[string][]string),
	}
}

func (x *BlockIndex) IndexBlocks(_ context.Context, blocks []domain.Block) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, b := range blocks {
		if pos, ok := x.index[b.ID]; ok {
			x.blocks[pos] = b
			continue
		}
		x.index[b.ID] = len(x.blocks)
		x.blocks = append(x.blocks, b)
	}
	return nil
}

func (x *BlockIndex) SemanticSearch(_ context.Context, query string, k int) ([]domain.Block, error) {
	return x.search(query, k), nil
}

func (x *BlockIndex) KeywordSearch(_ context.Context, query string, k int) ([]domain.Block, error) {
	return x.search(query, k), nil
}

func (x *BlockIndex) GetBlocks(_ context.Context, ids []string) ([]domain.Block, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []domain.Block
	for _, id := range ids {
		if pos, ok := x.index[id]; ok {
			out = append(out, x.blocks[pos])
		}
	}
	return out, nil
}

func (x *BlockIndex) LinkRows(_ context.Context, blockID string, rowIDs []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.rowLinks[blockID] = append(x.rowLinks[blockID], rowIDs...)
	return nil
}

// LinkedRows returns the row IDs recorded for a block. Test helper.
func (x *BlockIndex) LinkedRows(blockID string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.rowLinks[blockID]
}

func (x *BlockIndex) Close() error {
	return nil
}

func (x *BlockIndex) search(query string, k int) []domain.Block {
	x.mu.RLock()
	defer x.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	type scored struct {
		block domain.Block
		score int
		pos   int
	}
	var hits []scored
	for pos, b := range x.blocks {
		haystack := strings.ToLower(b.Content + " " + b.Breadcrumb())
		score := 0
		for _, t := range terms {
			if strings.Contains(haystack, t) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{block: b, score: score, pos: pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	out := make([]domain.Block, len(hits))
	for i, h := range hits {
		out[i] = h.block
	}
	return out
}
