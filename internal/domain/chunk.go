package domain

import "strings"

// ChunkMetadata is the provenance record attached to every indexed chunk.
// Missing chapter is encoded as -1 and missing section as "unknown".
type ChunkMetadata struct {
	DocID         string
	Source        string
	Page          int
	Chapter       int
	Section       string
	GlobalChunkID int
	Pages         []string // distinct page numbers touched, string-sorted
	Sections      []string // distinct section labels touched, string-sorted
	Confidence    float64  // blocks merged / 5, uncapped
}

// Chunk is a token-bounded retrieval unit composed of one or more blocks.
// GlobalChunkID is assigned sequentially per ingestion run and serves as the
// idempotency key for indexing.
type Chunk struct {
	Text     string
	Metadata ChunkMetadata
}

// Tokens returns the whitespace word count of a text, the token measure used
// by the chunk size bounds.
func Tokens(text string) int {
	return len(strings.Fields(text))
}
