package ingest

import (
	"context"

	"github.com/contextforge/contextforge/internal/domain"
)

// Fetcher downloads a signed URL into a local file and returns its path.
type Fetcher interface {
	Download(ctx context.Context, signedURL, filename string) (string, error)
}

// Extractor turns a local file into per-page text.
type Extractor interface {
	Pages(path, filename string) ([]string, error)
}

// Chunker merges segmentation blocks into retrieval chunks.
type Chunker interface {
	Chunk(ctx context.Context, blocks []domain.Block) ([]domain.Chunk, error)
}

// Embedder vectorizes chunk texts in batch, order-preserving.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer persists chunks and tracks how many are already indexed per document.
type Indexer interface {
	IndexedCount(ctx context.Context, docID string) (int, error)
	Index(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
}
