package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/logger"
)

// blockNamespace is the UUIDv5 namespace for block IDs. Block IDs must
// be stable across runs: ledger row IDs embed the source block ID, so
// re-ingesting the same filing has to reproduce the same blocks for
// upserts to reconcile instead of duplicating rows.
var blockNamespace = uuid.MustParse("9f2c54d6-1b7e-4a0f-8c3d-5e6a7b8c9d0e")

// headerRe matches an ATX markdown header line.
var headerRe = regexp.MustCompile(`^(#{1,6})\s+(.*)`)

// tableSeparatorRe matches a markdown header-separator row (dashes,
// optional alignment colons, between pipes).
var tableSeparatorRe = regexp.MustCompile(`\|\s*:?-+:?\s*(\||$)`)

// Segmenter turns a flat markdown stream into an ordered sequence of
// typed blocks, each tagged with the header breadcrumb in effect where
// the block appeared.
//
// A header defines the path for the content that follows it, not for
// itself. Consecutive tables with no intervening text merge into one
// block; downstream melting relies on that behaviour, so it is kept.
type Segmenter struct{}

// NewSegmenter creates a segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment walks the markdown line by line and returns the blocks in
// document order. Malformed markdown degrades to over-broad text
// blocks; Segment never fails.
func (s *Segmenter) Segment(markdown string) []domain.Block {
	var (
		blocks      []domain.Block
		headerStack []string
		pending     []string
	)

	for _, line := range strings.Split(markdown, "\n") {
		if m := headerRe.FindStringSubmatch(line); m != nil {
			blocks = appendBlock(blocks, pending, headerStack)
			pending = nil

			level := len(m[1])
			title := strings.TrimSpace(m[2])
			if level-1 < len(headerStack) {
				headerStack = headerStack[:level-1]
			}
			headerStack = append(headerStack, title)
			logger.Debug("Header stack: %v", headerStack)
			continue
		}

		isTableLine := strings.Contains(line, "|")
		if isTableLine {
			// A table line ends any pending prose buffer.
			if len(pending) > 0 && !hasPipe(pending) {
				blocks = appendBlock(blocks, pending, headerStack)
				pending = nil
			}
		} else if strings.TrimSpace(line) != "" && hasPipe(pending) {
			// A non-blank prose line ends a pending table buffer.
			// Blank lines inside a table region do not flush, so
			// back-to-back tables merge.
			blocks = appendBlock(blocks, pending, headerStack)
			pending = nil
		}

		pending = append(pending, line)
	}

	return appendBlock(blocks, pending, headerStack)
}

// appendBlock flushes the pending buffer as a block under the current
// header stack. Empty or whitespace-only buffers are dropped silently.
func appendBlock(blocks []domain.Block, lines, stack []string) []domain.Block {
	if len(lines) == 0 {
		return blocks
	}
	content := strings.TrimSpace(strings.Join(lines, "\n"))
	if content == "" {
		return blocks
	}

	kind := domain.BlockKindText
	if hasPipe(lines) && hasTableSeparator(lines) {
		kind = domain.BlockKindTable
	}

	// Each block captures an immutable copy of the stack at flush time.
	path := make([]string, len(stack))
	copy(path, stack)

	// The ordinal keeps IDs unique when the same content repeats.
	seed := fmt.Sprintf("%d\x1f%s\x1f%s", len(blocks), strings.Join(path, "\x1f"), content)

	return append(blocks, domain.Block{
		ID:          uuid.NewSHA1(blockNamespace, []byte(seed)).String(),
		Kind:        kind,
		SectionPath: path,
		Content:     content,
	})
}

func hasPipe(lines []string) bool {
	for _, l := range lines {
		if strings.Contains(l, "|") {
			return true
		}
	}
	return false
}

func hasTableSeparator(lines []string) bool {
	for _, l := range lines {
		if strings.Contains(l, "|") && strings.Contains(l, "---") && tableSeparatorRe.MatchString(l) {
			return true
		}
	}
	return false
}
