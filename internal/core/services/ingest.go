package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
	"github.com/custodia-labs/factlens/internal/core/ports/driving"
	"github.com/custodia-labs/factlens/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestService = (*IngestionService)(nil)

// Ingestion defaults.
const (
	// DefaultExtractionWorkers bounds concurrent fact-extraction
	// oracle calls.
	DefaultExtractionWorkers = 4

	// DefaultOraclePacing is the fixed inter-call delay that keeps
	// extraction under external rate limits. Not backpressure
	// adaptive.
	DefaultOraclePacing = 500 * time.Millisecond

	// DefaultOracleTimeout bounds every individual oracle call.
	DefaultOracleTimeout = 60 * time.Second

	// minTextBlockLen skips text blocks too short to hold a fact.
	minTextBlockLen = 50

	// substanceDigitFloor: text with more digits than this (or any
	// dollar sign) is considered to have financial substance worth
	// an extraction call.
	substanceDigitFloor = 4

	// coverBlockWindow is how many leading blocks feed entity
	// resolution and the fiscal-year heuristic.
	coverBlockWindow = 20
)

// currentYearRe finds a fiscal-year token on the cover pages.
var currentYearRe = regexp.MustCompile(`20\d{2}`)

// IngestionConfig tunes one pipeline instance.
type IngestionConfig struct {
	// Workers bounds concurrent extraction calls (default 4).
	Workers int

	// Pacing is the fixed delay between oracle calls.
	Pacing time.Duration

	// OracleTimeout bounds each oracle call.
	OracleTimeout time.Duration

	// MinTextConfidence is the floor for accepted scraped facts.
	MinTextConfidence float64
}

// IngestionService runs the document pipeline: segment, resolve the
// registrant, index blocks, melt tables, extract text facts, append to
// the ledger, and refresh the schema summary. One document is ingested
// to completion before its facts become queryable; concurrent ingestion
// of the same document is not supported.
type IngestionService struct {
	segmenter *Segmenter
	resolver  driven.EntityResolver
	extractor driven.FactExtractor
	ledger    driven.LedgerStore
	blocks    driven.BlockStore
	index     driven.BlockIndex
	schema    driven.SchemaStore

	limiter *rate.Limiter
	cfg     IngestionConfig
}

// NewIngestionService wires the ingestion pipeline.
func NewIngestionService(
	resolver driven.EntityResolver,
	extractor driven.FactExtractor,
	ledger driven.LedgerStore,
	blocks driven.BlockStore,
	index driven.BlockIndex,
	schema driven.SchemaStore,
	cfg IngestionConfig,
) *IngestionService {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultExtractionWorkers
	}
	if cfg.Pacing <= 0 {
		cfg.Pacing = DefaultOraclePacing
	}
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = DefaultOracleTimeout
	}
	if cfg.MinTextConfidence <= 0 {
		cfg.MinTextConfidence = DefaultMinTextConfidence
	}

	return &IngestionService{
		segmenter: NewSegmenter(),
		resolver:  resolver,
		extractor: extractor,
		ledger:    ledger,
		blocks:    blocks,
		index:     index,
		schema:    schema,
		limiter:   rate.NewLimiter(rate.Every(cfg.Pacing), 1),
		cfg:       cfg,
	}
}

// Ingest runs the full pipeline over one markdown document.
func (s *IngestionService) Ingest(ctx context.Context, markdown string, opts driving.IngestOptions) (*driving.IngestReport, error) {
	logger.Section("Ingestion")

	blocks := s.segmenter.Segment(markdown)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("segment document: %w", domain.ErrInvalidInput)
	}
	logger.Info("Segmented document into %d blocks", len(blocks))

	if opts.Reuse {
		if report, ok, err := s.reuseExisting(ctx, len(blocks)); err != nil {
			return nil, err
		} else if ok {
			return report, nil
		}
	}

	entity := s.resolveEntity(ctx, blocks)
	contextHint := s.buildContextHint(entity, blocks)
	logger.Info("Global context: %s", contextHint)

	if err := s.blocks.PutBlocks(ctx, blocks); err != nil {
		return nil, fmt.Errorf("store blocks: %w", err)
	}
	if err := s.index.IndexBlocks(ctx, blocks); err != nil {
		return nil, fmt.Errorf("index blocks: %w", err)
	}

	rows, failed := s.extractRows(ctx, entity, blocks, contextHint)

	if err := s.ledger.UpsertRows(ctx, rows); err != nil {
		return nil, fmt.Errorf("upsert ledger rows: %w", err)
	}
	s.linkDerivedRows(ctx, rows)

	if err := s.refreshSchema(ctx, &entity); err != nil {
		return nil, err
	}

	logger.Info("Ingestion complete: %d rows (%d blocks failed extraction)", len(rows), failed)
	return &driving.IngestReport{
		Entity:       entity,
		Blocks:       len(blocks),
		Rows:         len(rows),
		FailedBlocks: failed,
	}, nil
}

// reuseExisting short-circuits extraction when the ledger already holds
// rows, rebuilding only the schema summary.
func (s *IngestionService) reuseExisting(ctx context.Context, blockCount int) (*driving.IngestReport, bool, error) {
	rows, err := s.ledger.AllRows(ctx)
	if err != nil || len(rows) == 0 {
		return nil, false, nil
	}
	logger.Info("Ledger already holds %d rows, skipping extraction", len(rows))
	if err := s.refreshSchema(ctx, nil); err != nil {
		return nil, false, err
	}
	return &driving.IngestReport{Blocks: blockCount, Rows: len(rows)}, true, nil
}

// resolveEntity asks the oracle for canonical entity metadata from the
// cover blocks. A failed call degrades to an unknown-registrant record;
// it never aborts ingestion.
func (s *IngestionService) resolveEntity(ctx context.Context, blocks []domain.Block) domain.EntityMetadata {
	fallback := domain.EntityMetadata{
		CanonicalID:  "ID_UNKNOWN",
		OfficialName: "Unknown Registrant",
	}
	if s.resolver == nil {
		return fallback
	}

	window := blocks
	if len(window) > coverBlockWindow {
		window = window[:coverBlockWindow]
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.OracleTimeout)
	defer cancel()
	if err := s.limiter.Wait(cctx); err != nil {
		return fallback
	}

	meta, err := s.resolver.ResolveEntity(cctx, window)
	if err != nil {
		logger.Warn("Entity resolution failed: %v", err)
		return fallback
	}
	logger.Info("Resolved entity: %s (%s)", meta.CanonicalID, meta.OfficialName)
	return meta
}

// buildContextHint assembles the document-level framing handed to the
// fact extractor: registrant, current fiscal year, default scale.
func (s *IngestionService) buildContextHint(entity domain.EntityMetadata, blocks []domain.Block) string {
	year := "UNKNOWN"
	window := blocks
	if len(window) > coverBlockWindow {
		window = window[:coverBlockWindow]
	}
	for _, b := range window {
		if m := currentYearRe.FindString(b.Content); m != "" {
			year = m
			break
		}
	}
	return fmt.Sprintf("Registrant: %s. Current Fiscal Year: %s. Dollars in millions unless specified.",
		entity.OfficialName, year)
}

// extractRows melts every table block and extracts facts from every
// substantive text block. Table melting is local CPU work and runs
// inline; text extraction fans out to the oracle with bounded
// concurrency and fixed pacing. Each goroutine writes only its own
// result slot, so the aggregation needs no lock. A single block's
// failure is counted and skipped, never fatal.
func (s *IngestionService) extractRows(ctx context.Context, entity domain.EntityMetadata, blocks []domain.Block, contextHint string) ([]domain.FactRow, int) {
	melter := NewTableMelter(entity.CanonicalID, entity.OfficialName)
	normalizer := NewTextFactNormalizer(entity.CanonicalID, entity.OfficialName, s.cfg.MinTextConfidence)

	results := make([][]domain.FactRow, len(blocks))
	failures := make([]bool, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for i, block := range blocks {
		switch {
		case block.Kind == domain.BlockKindTable:
			logger.Debug("Melting table in %s", block.Breadcrumb())
			results[i] = melter.Melt(block)

		case s.worthExtracting(block):
			g.Go(func() error {
				rows, err := s.extractTextBlock(gctx, normalizer, block, contextHint)
				if err != nil {
					logger.Warn("Extraction failed for block %s: %v", block.ID, err)
					failures[i] = true
					return nil
				}
				results[i] = rows
				return nil
			})
		}
	}

	// Workers only ever return nil; Wait just joins them.
	_ = g.Wait()

	var rows []domain.FactRow
	failed := 0
	for i := range results {
		rows = append(rows, results[i]...)
		if failures[i] {
			failed++
		}
	}
	return rows, failed
}

// worthExtracting gates oracle calls: only text blocks showing
// financial substance (a dollar sign or enough digits) are worth the
// round trip.
func (s *IngestionService) worthExtracting(block domain.Block) bool {
	if s.extractor == nil || block.Kind != domain.BlockKindText {
		return false
	}
	content := block.Content
	if len(strings.TrimSpace(content)) < minTextBlockLen {
		return false
	}
	if strings.Contains(content, "$") {
		return true
	}
	digits := 0
	for _, r := range content {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > substanceDigitFloor
}

// extractTextBlock runs one paced, timed oracle call and normalises the
// scraped facts.
func (s *IngestionService) extractTextBlock(ctx context.Context, normalizer *TextFactNormalizer, block domain.Block, contextHint string) ([]domain.FactRow, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.OracleTimeout)
	defer cancel()

	facts, err := s.extractor.ExtractFacts(cctx, block, contextHint)
	if err != nil {
		return nil, err
	}
	return normalizer.Normalize(block, facts), nil
}

// linkDerivedRows records on the content index which rows each block
// produced. Advisory metadata; failures are logged and ignored.
func (s *IngestionService) linkDerivedRows(ctx context.Context, rows []domain.FactRow) {
	byBlock := make(map[string][]string)
	var order []string
	for _, r := range rows {
		if _, ok := byBlock[r.SourceBlockID]; !ok {
			order = append(order, r.SourceBlockID)
		}
		byBlock[r.SourceBlockID] = append(byBlock[r.SourceBlockID], r.RowID)
	}
	for _, blockID := range order {
		if err := s.index.LinkRows(ctx, blockID, byBlock[blockID]); err != nil {
			logger.Warn("Row linkage for block %s failed: %v", blockID, err)
		}
	}
}

// refreshSchema rebuilds and persists the schema summary from the full
// ledger, folding in previously known entities. newEntity may be nil
// when reusing an existing ledger.
func (s *IngestionService) refreshSchema(ctx context.Context, newEntity *domain.EntityMetadata) error {
	summarizer := NewSchemaSummarizer()

	if prev, err := s.schema.Load(ctx); err == nil {
		summarizer.AddSummary(prev)
	}
	if newEntity != nil {
		summarizer.AddEntity(*newEntity)
	}

	rows, err := s.ledger.AllRows(ctx)
	if err != nil {
		return fmt.Errorf("load ledger for schema summary: %w", err)
	}
	summarizer.AddRows(rows)

	if err := s.schema.Save(ctx, summarizer.Summary()); err != nil {
		return fmt.Errorf("save schema summary: %w", err)
	}
	logger.Info("Schema summary refreshed (%d rows)", len(rows))
	return nil
}
