// Package extract turns fetched document files into per-page text for
// segmentation.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/contextforge/contextforge/internal/domain"
)

// Extractor dispatches on the original filename's extension. Formats without
// physical pages (markdown, plain text) are mapped onto page strings so the
// downstream contract stays uniform.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Pages extracts one string per page from the file at path. filename carries
// the original upload name, which decides the format.
func (e *Extractor) Pages(path, filename string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return pdfPages(path)
	case ".md", ".markdown":
		return markdownPages(path)
	case ".txt", ".text":
		return textPages(path)
	default:
		return nil, fmt.Errorf("extension %q: %w", filepath.Ext(filename), domain.ErrUnsupportedFormat)
	}
}
