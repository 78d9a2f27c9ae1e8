package domain

// Block is a contiguous span of normalized text with provenance, produced by
// segmentation. Blocks are immutable once emitted and consumed by the chunker.
type Block struct {
	Text    string
	Source  string
	Page    int    // 1-based, -1 if unknown
	Chapter int    // -1 if none detected
	Section string // "unknown" if none detected
}

// BlockKind identifies which segmentation strategy produced a block set.
type BlockKind string

const (
	// BlockKindStructural marks blocks tagged via detected section headings.
	BlockKindStructural BlockKind = "structural"
	// BlockKindParagraph marks blocks from blank-line paragraph splitting.
	BlockKindParagraph BlockKind = "paragraph"
	// BlockKindFixedWindow marks overlapping fixed-size word windows.
	BlockKindFixedWindow BlockKind = "fixed_window"
)

// BlockSet is the outcome of the segmentation fallback chain. Exactly one
// strategy wins per document; Kind records which one.
type BlockSet struct {
	Kind   BlockKind
	Blocks []Block
}
