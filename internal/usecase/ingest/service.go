// Package ingest implements the document ingestion pipeline: fetch, extract,
// segment, chunk, embed, index.
package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/contextforge/contextforge/internal/domain"
	"github.com/contextforge/contextforge/internal/logger"
	"github.com/contextforge/contextforge/internal/metrics"
	"github.com/contextforge/contextforge/internal/segment"
)

// Service runs the ingestion pipeline. Documents are independent, so
// concurrent ingestion of different documents is safe.
type Service struct {
	fetcher   Fetcher
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	indexer   Indexer
	segCfg    segment.Config
}

// New creates an ingestion service.
func New(fetcher Fetcher, extractor Extractor, chunker Chunker, embedder Embedder, indexer Indexer, segCfg segment.Config) *Service {
	return &Service{
		fetcher:   fetcher,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		indexer:   indexer,
		segCfg:    segCfg,
	}
}

// Ingest processes one document end to end and returns the number of newly
// indexed chunks. Re-ingesting a document is idempotent: chunks whose global
// id is already covered by the indexed-chunk counter are skipped.
func (s *Service) Ingest(ctx context.Context, docID, signedURL, filename string) (indexed int, err error) {
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IngestDocumentsTotal.WithLabelValues(status).Inc()
	}()

	log := logger.FromContext(ctx)

	localPath, err := s.fetcher.Download(ctx, signedURL, filename)
	if err != nil {
		return 0, fmt.Errorf("download document: %w", err)
	}
	defer os.Remove(localPath)

	pages, err := s.extractor.Pages(localPath, filename)
	if err != nil {
		return 0, fmt.Errorf("extract pages: %w", err)
	}
	if !hasText(pages) {
		return 0, fmt.Errorf("extract pages: %w", domain.ErrNoExtractableText)
	}

	set := segment.Segment(pages, filename, s.segCfg)
	metrics.SegmentationStrategyTotal.WithLabelValues(string(set.Kind)).Inc()

	chunks, err := s.chunker.Chunk(ctx, set.Blocks)
	if err != nil {
		return 0, fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("chunk document: %w", domain.ErrEmptyDocument)
	}

	for i := range chunks {
		chunks[i].Metadata.DocID = docID
	}

	alreadyIndexed, err := s.indexer.IndexedCount(ctx, docID)
	if err != nil {
		return 0, fmt.Errorf("read indexed count: %w", err)
	}

	fresh := freshChunks(chunks, alreadyIndexed)
	if len(fresh) == 0 {
		log.Info("document already indexed",
			zap.String("doc_id", docID),
			zap.Int("chunks", len(chunks)))
		return 0, nil
	}

	texts := make([]string, len(fresh))
	for i, c := range fresh {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	if err := s.indexer.Index(ctx, fresh, vectors); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}

	metrics.IngestChunksTotal.Add(float64(len(fresh)))
	log.Info("document indexed",
		zap.String("doc_id", docID),
		zap.String("strategy", string(set.Kind)),
		zap.Int("chunks", len(fresh)))

	return len(fresh), nil
}

// freshChunks keeps chunks whose id is not yet covered by the counter.
func freshChunks(chunks []domain.Chunk, alreadyIndexed int) []domain.Chunk {
	fresh := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Metadata.GlobalChunkID >= alreadyIndexed {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}
