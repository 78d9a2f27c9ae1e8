package answer

import (
	"strings"

	"github.com/contextforge/contextforge/internal/domain"
)

// Config bounds context assembly.
type Config struct {
	MaxChunks     int     // upper bound on candidates included per answer
	MinScoreRatio float64 // candidates below top*ratio are cut off
}

// DefaultConfig returns the calibrated assembly bounds.
func DefaultConfig() Config {
	return Config{
		MaxChunks:     4,
		MinScoreRatio: 0.6,
	}
}

// Assemble walks the descending-score candidates and builds the context
// string plus the metadata of every candidate used. The walk stops at the
// first candidate scoring below top*MinScoreRatio. Without allowMultiSection
// only the first strong candidate is taken; with it, up to MaxChunks are.
func Assemble(candidates []domain.ScoredCandidate, allowMultiSection bool, cfg Config) domain.AssembledContext {
	if len(candidates) == 0 {
		return domain.AssembledContext{Sources: []domain.ChunkMetadata{}}
	}

	var text strings.Builder
	sources := make([]domain.ChunkMetadata, 0, cfg.MaxChunks)

	topScore := candidates[0].Score

	for _, c := range candidates {
		if c.Score < topScore*cfg.MinScoreRatio {
			break
		}

		text.WriteString(strings.TrimSpace(c.Text))
		text.WriteString("\n")
		sources = append(sources, c.Metadata)

		if !allowMultiSection {
			break
		}
		if len(sources) >= cfg.MaxChunks {
			break
		}
	}

	return domain.AssembledContext{
		Text:    strings.TrimSpace(text.String()),
		Sources: sources,
	}
}
