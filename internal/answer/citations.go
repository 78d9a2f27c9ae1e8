package answer

import (
	"fmt"

	"github.com/contextforge/contextforge/internal/domain"
)

type citationKey struct {
	section string
	page    int
}

// FormatCitations renders source metadata as human-readable labels,
// deduplicated by (section, page) in first-seen order.
func FormatCitations(sources []domain.ChunkMetadata) []string {
	seen := make(map[citationKey]struct{}, len(sources))
	citations := make([]string, 0, len(sources))

	for _, meta := range sources {
		key := citationKey{section: meta.Section, page: meta.Page}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		citations = append(citations, fmt.Sprintf("%s (page %d)", meta.Section, meta.Page))
	}

	return citations
}
