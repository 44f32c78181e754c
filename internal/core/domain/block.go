package domain

// BlockKind classifies a document block.
type BlockKind string

// Block kinds produced by the segmenter.
const (
	BlockKindText  BlockKind = "text"
	BlockKindTable BlockKind = "table"
)

// Block represents a contiguous span of source document content.
// Blocks are created by the segmenter and never mutated afterwards;
// derived-fact linkage is recorded in the content index, not here.
type Block struct {
	// ID is the stable unique identifier for the block.
	ID string `json:"id"`

	// Kind is text or table.
	Kind BlockKind `json:"kind"`

	// SectionPath is the header breadcrumb from the document root to
	// this block, e.g. ["MD&A", "Liquidity"].
	SectionPath []string `json:"section_path"`

	// PageNum is the source page, when the converter reported one.
	PageNum *int `json:"page_num,omitempty"`

	// Content is the raw text or markdown table.
	Content string `json:"content"`
}

// Breadcrumb returns the section path flattened with " > " separators.
// An empty path renders as "Unknown".
func (b Block) Breadcrumb() string {
	if len(b.SectionPath) == 0 {
		return "Unknown"
	}
	out := b.SectionPath[0]
	for _, p := range b.SectionPath[1:] {
		out += " > " + p
	}
	return out
}
