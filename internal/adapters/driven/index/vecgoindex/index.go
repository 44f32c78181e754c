// Package vecgoindex provides the block content index backed by the
// embedded vecgo vector store plus an in-memory BM25 keyword index.
package vecgoindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hupe1980/vecgo"
	"github.com/hupe1980/vecgo/lexical/bm25"
	"github.com/hupe1980/vecgo/model"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
	"github.com/custodia-labs/factlens/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.BlockIndex = (*Index)(nil)

const (
	snapshotFile = "blocks.vec"
	manifestFile = "blocks.manifest.json"
)

// manifest is the sidecar file that maps vector store IDs back to block
// IDs and carries the block-to-row linkage. The vector snapshot alone
// cannot be enumerated, so this is what makes a reload possible.
type manifest struct {
	Entries  []manifestEntry     `json:"entries"`
	RowLinks map[string][]string `json:"row_links,omitempty"`
}

type manifestEntry struct {
	PK      uint64 `json:"pk"`
	BlockID string `json:"block_id"`
}

// Index is the dual content index over document blocks: a flat cosine
// vector index for semantic search and a BM25 index for keyword search.
// Blocks are embedded on insert via the configured embedding service.
type Index struct {
	mu       sync.RWMutex
	vg       *vecgo.Vecgo[domain.Block]
	keyword  *bm25.MemoryIndex
	embedder driven.EmbeddingService
	dataDir  string
	byBlock  map[string]uint64 // block ID -> vector store primary key
	rowLinks map[string][]string
}

// Open creates or reloads the index under dataDir. A previous snapshot
// plus manifest is reloaded when present; the BM25 side is rebuilt from
// the stored block content.
func Open(dataDir string, embedder driven.EmbeddingService) (*Index, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx := &Index{
		keyword:  bm25.New(),
		embedder: embedder,
		dataDir:  dataDir,
		byBlock:  make(map[string]uint64),
		rowLinks: make(map[string][]string),
	}

	snapshot := filepath.Join(dataDir, snapshotFile)
	if _, err := os.Stat(snapshot); err == nil {
		if err := idx.reload(snapshot); err != nil {
			return nil, err
		}
		return idx, nil
	}

	vg, err := vecgo.Flat[domain.Block](embedder.Dimensions()).Cosine().Build()
	if err != nil {
		return nil, fmt.Errorf("building vector index: %w", err)
	}
	idx.vg = vg
	return idx, nil
}

func (x *Index) reload(snapshot string) error {
	vg, err := vecgo.NewFromFile[domain.Block](snapshot)
	if err != nil {
		return fmt.Errorf("loading vector snapshot: %w", err)
	}
	x.vg = vg

	data, err := os.ReadFile(filepath.Join(x.dataDir, manifestFile))
	if err != nil {
		return fmt.Errorf("reading index manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parsing index manifest: %w", err)
	}

	for _, e := range m.Entries {
		blk, err := vg.Get(e.PK)
		if err != nil {
			logger.Warn("Index manifest references missing vector %d, skipping", e.PK)
			continue
		}
		x.byBlock[e.BlockID] = e.PK
		if err := x.keyword.Add(model.PrimaryKey(e.PK), keywordText(blk)); err != nil {
			return fmt.Errorf("rebuilding keyword index: %w", err)
		}
	}
	if m.RowLinks != nil {
		x.rowLinks = m.RowLinks
	}
	logger.Debug("Reloaded block index: %d blocks", len(x.byBlock))
	return nil
}

// IndexBlocks embeds and inserts blocks into both index sides.
// Re-indexing an already-known block ID replaces its content.
func (x *Index) IndexBlocks(ctx context.Context, blocks []domain.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = embeddingText(b)
	}
	vectors, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(blocks) {
		return fmt.Errorf("%w: got %d vectors for %d blocks", domain.ErrEmbeddingUnavailable, len(vectors), len(blocks))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for i, b := range blocks {
		if pk, ok := x.byBlock[b.ID]; ok {
			if err := x.vg.Update(ctx, pk, vecgo.VectorWithData[domain.Block]{Vector: vectors[i], Data: b}); err != nil {
				return fmt.Errorf("updating block %s: %w", b.ID, err)
			}
			if err := x.keyword.Add(model.PrimaryKey(pk), keywordText(b)); err != nil {
				return fmt.Errorf("updating keyword index: %w", err)
			}
			continue
		}
		pk, err := x.vg.Insert(ctx, vecgo.VectorWithData[domain.Block]{Vector: vectors[i], Data: b})
		if err != nil {
			return fmt.Errorf("inserting block %s: %w", b.ID, err)
		}
		x.byBlock[b.ID] = pk
		if err := x.keyword.Add(model.PrimaryKey(pk), keywordText(b)); err != nil {
			return fmt.Errorf("indexing keywords: %w", err)
		}
	}
	return nil
}

// SemanticSearch embeds the query and returns the k nearest blocks.
func (x *Index) SemanticSearch(ctx context.Context, query string, k int) ([]domain.Block, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	results, err := x.vg.KNNSearch(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	out := make([]domain.Block, 0, len(results))
	for _, r := range results {
		out = append(out, r.Data)
	}
	return out, nil
}

// KeywordSearch runs a BM25 search and returns up to k blocks, ranked
// by score.
func (x *Index) KeywordSearch(_ context.Context, query string, k int) ([]domain.Block, error) {
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	scores, err := x.keyword.Search(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}

	type hit struct {
		pk    model.PrimaryKey
		score float32
	}
	hits := make([]hit, 0, len(scores))
	for pk, score := range scores {
		hits = append(hits, hit{pk: pk, score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pk < hits[j].pk
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]domain.Block, 0, len(hits))
	for _, h := range hits {
		blk, err := x.vg.Get(uint64(h.pk))
		if err != nil {
			continue
		}
		out = append(out, blk)
	}
	return out, nil
}

// GetBlocks fetches indexed blocks by ID. Unknown IDs are skipped.
func (x *Index) GetBlocks(_ context.Context, ids []string) ([]domain.Block, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []domain.Block
	for _, id := range ids {
		pk, ok := x.byBlock[id]
		if !ok {
			continue
		}
		blk, err := x.vg.Get(pk)
		if err != nil {
			continue
		}
		out = append(out, blk)
	}
	return out, nil
}

// LinkRows records the ledger rows derived from a block.
func (x *Index) LinkRows(_ context.Context, blockID string, rowIDs []string) error {
	if len(rowIDs) == 0 {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.byBlock[blockID]; !ok {
		return fmt.Errorf("%w: block %s not indexed", domain.ErrNotFound, blockID)
	}
	x.rowLinks[blockID] = append(x.rowLinks[blockID], rowIDs...)
	return nil
}

// Close writes the vector snapshot and the sidecar manifest.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(x.byBlock) > 0 {
		if err := x.vg.SaveToFile(filepath.Join(x.dataDir, snapshotFile)); err != nil {
			return fmt.Errorf("saving vector snapshot: %w", err)
		}
		if err := x.writeManifest(); err != nil {
			return err
		}
	}
	return x.vg.Close()
}

func (x *Index) writeManifest() error {
	m := manifest{RowLinks: x.rowLinks}
	for id, pk := range x.byBlock {
		m.Entries = append(m.Entries, manifestEntry{PK: pk, BlockID: id})
	}
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].PK < m.Entries[j].PK })

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(x.dataDir, manifestFile), data, 0600); err != nil {
		return fmt.Errorf("writing index manifest: %w", err)
	}
	return nil
}

// embeddingText is what the semantic side sees: the section breadcrumb
// gives short table blocks enough context to embed meaningfully.
func embeddingText(b domain.Block) string {
	return b.Breadcrumb() + "\n" + b.Content
}

func keywordText(b domain.Block) string {
	return b.Breadcrumb() + " " + b.Content
}
