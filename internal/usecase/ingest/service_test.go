package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/contextforge/contextforge/internal/domain"
	"github.com/contextforge/contextforge/internal/metrics"
	"github.com/contextforge/contextforge/internal/segment"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type fakeFetcher struct {
	path string
	err  error

	gotURL      string
	gotFilename string
}

func (f *fakeFetcher) Download(_ context.Context, signedURL, filename string) (string, error) {
	f.gotURL = signedURL
	f.gotFilename = filename
	return f.path, f.err
}

type fakeExtractor struct {
	pages []string
	err   error
}

func (f *fakeExtractor) Pages(_, _ string) ([]string, error) {
	return f.pages, f.err
}

type fakeChunker struct {
	chunks []domain.Chunk
	err    error
}

func (f *fakeChunker) Chunk(_ context.Context, _ []domain.Block) ([]domain.Chunk, error) {
	return f.chunks, f.err
}

type fakeEmbedder struct {
	err error

	gotTexts []string
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.gotTexts = texts
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

type fakeIndexer struct {
	indexedCount int
	countErr     error
	indexErr     error

	gotChunks  []domain.Chunk
	gotVectors [][]float32
}

func (f *fakeIndexer) IndexedCount(_ context.Context, _ string) (int, error) {
	return f.indexedCount, f.countErr
}

func (f *fakeIndexer) Index(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	f.gotChunks = chunks
	f.gotVectors = vectors
	return f.indexErr
}

type deps struct {
	fetcher   *fakeFetcher
	extractor *fakeExtractor
	chunker   *fakeChunker
	embedder  *fakeEmbedder
	indexer   *fakeIndexer
}

func chunk(id int, text string) domain.Chunk {
	return domain.Chunk{
		Text:     text,
		Metadata: domain.ChunkMetadata{Source: "report.pdf", GlobalChunkID: id},
	}
}

func newDeps(t *testing.T) deps {
	t.Helper()

	// A real temp file so the post-ingest cleanup has something to remove.
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	return deps{
		fetcher:   &fakeFetcher{path: path},
		extractor: &fakeExtractor{pages: []string{"1.1 Intro\nSome body text."}},
		chunker:   &fakeChunker{chunks: []domain.Chunk{chunk(0, "alpha"), chunk(1, "beta")}},
		embedder:  &fakeEmbedder{},
		indexer:   &fakeIndexer{},
	}
}

func newService(d deps) *Service {
	return New(d.fetcher, d.extractor, d.chunker, d.embedder, d.indexer, segment.DefaultConfig())
}

func TestIngest_IndexesAllChunks(t *testing.T) {
	d := newDeps(t)
	svc := newService(d)

	indexed, err := svc.Ingest(context.Background(), "doc1", "https://bucket/report.pdf?sig=x", "report.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if indexed != 2 {
		t.Errorf("indexed = %d, want 2", indexed)
	}

	if d.fetcher.gotURL != "https://bucket/report.pdf?sig=x" || d.fetcher.gotFilename != "report.pdf" {
		t.Errorf("fetcher called with %q %q", d.fetcher.gotURL, d.fetcher.gotFilename)
	}
	if len(d.indexer.gotChunks) != 2 || len(d.indexer.gotVectors) != 2 {
		t.Fatalf("indexer got %d chunks, %d vectors", len(d.indexer.gotChunks), len(d.indexer.gotVectors))
	}
	for _, c := range d.indexer.gotChunks {
		if c.Metadata.DocID != "doc1" {
			t.Errorf("chunk %d doc id = %q", c.Metadata.GlobalChunkID, c.Metadata.DocID)
		}
	}
	if len(d.embedder.gotTexts) != 2 || d.embedder.gotTexts[1] != "beta" {
		t.Errorf("embedded texts = %v", d.embedder.gotTexts)
	}
}

func TestIngest_RemovesDownloadedFile(t *testing.T) {
	d := newDeps(t)
	svc := newService(d)

	if _, err := svc.Ingest(context.Background(), "doc1", "url", "report.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(d.fetcher.path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("downloaded file still present: %v", err)
	}
}

func TestIngest_SkipsAlreadyIndexedChunks(t *testing.T) {
	d := newDeps(t)
	d.indexer.indexedCount = 1
	svc := newService(d)

	indexed, err := svc.Ingest(context.Background(), "doc1", "url", "report.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if indexed != 1 {
		t.Errorf("indexed = %d, want 1", indexed)
	}
	if len(d.indexer.gotChunks) != 1 || d.indexer.gotChunks[0].Metadata.GlobalChunkID != 1 {
		t.Errorf("indexer got %+v", d.indexer.gotChunks)
	}
}

func TestIngest_FullyIndexedDocumentIsNoOp(t *testing.T) {
	d := newDeps(t)
	d.indexer.indexedCount = 2
	svc := newService(d)

	indexed, err := svc.Ingest(context.Background(), "doc1", "url", "report.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if indexed != 0 {
		t.Errorf("indexed = %d, want 0", indexed)
	}
	if d.embedder.gotTexts != nil {
		t.Error("no chunks should be embedded")
	}
	if d.indexer.gotChunks != nil {
		t.Error("no chunks should be written")
	}
}

func TestIngest_NoExtractableText(t *testing.T) {
	d := newDeps(t)
	d.extractor.pages = []string{"", "   \n  "}
	svc := newService(d)

	_, err := svc.Ingest(context.Background(), "doc1", "url", "report.pdf")
	if !errors.Is(err, domain.ErrNoExtractableText) {
		t.Fatalf("expected ErrNoExtractableText, got %v", err)
	}
}

func TestIngest_EmptyChunking(t *testing.T) {
	d := newDeps(t)
	d.chunker.chunks = nil
	svc := newService(d)

	_, err := svc.Ingest(context.Background(), "doc1", "url", "report.pdf")
	if !errors.Is(err, domain.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestIngest_StageErrorsWrapped(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		setup func(d *deps)
		stage string
	}{
		{"download", func(d *deps) { d.fetcher.err = boom }, "download document"},
		{"extract", func(d *deps) { d.extractor.err = boom }, "extract pages"},
		{"chunk", func(d *deps) { d.chunker.err = boom }, "chunk document"},
		{"count", func(d *deps) { d.indexer.countErr = boom }, "read indexed count"},
		{"embed", func(d *deps) { d.embedder.err = boom }, "embed chunks"},
		{"index", func(d *deps) { d.indexer.indexErr = boom }, "index chunks"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := newDeps(t)
			tc.setup(&d)
			svc := newService(d)

			_, err := svc.Ingest(context.Background(), "doc1", "url", "report.pdf")
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.stage) {
				t.Errorf("error %q missing stage %q", err, tc.stage)
			}
		})
	}
}
