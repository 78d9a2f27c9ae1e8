package domain

// ScoredCandidate is one retrieval hit, rank-ordered descending by score by
// the search backend. Read-only input to the retrieval assembler.
type ScoredCandidate struct {
	Score    float64
	Text     string
	Metadata ChunkMetadata
}

// AssembledContext is the bounded evidence handed to the rewrite service:
// newline-joined candidate texts plus the metadata of every included
// candidate in inclusion order. Ephemeral, built per query.
type AssembledContext struct {
	Text    string
	Sources []ChunkMetadata
}
