// Package index persists chunks in the search backend and serves hybrid
// retrieval over them.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/contextforge/contextforge/internal/chunker"
	"github.com/contextforge/contextforge/internal/db"
	"github.com/contextforge/contextforge/internal/domain"
)

// Store is the storage surface the repository needs.
type Store interface {
	db.HashStore
	db.KVStore
	db.IndexManager
	db.Searcher
}

// Config holds index layout and HNSW build parameters.
type Config struct {
	KeyPrefix       string // key namespace, e.g. "contextforge:"
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// Repository owns the chunk index: one hash per global chunk id plus a
// per-document indexed-chunk counter used as the re-ingestion guard.
type Repository struct {
	store Store
	cfg   Config
}

func New(store Store, cfg Config) *Repository {
	return &Repository{store: store, cfg: cfg}
}

func (r *Repository) indexName() string {
	return r.cfg.KeyPrefix + "chunks_idx"
}

func (r *Repository) chunkKey(docID string, chunkID int) string {
	return r.cfg.KeyPrefix + "chunk:" + docID + ":" + strconv.Itoa(chunkID)
}

func (r *Repository) countKey(docID string) string {
	return r.cfg.KeyPrefix + "chunks:" + docID
}

// Init creates the FT index if it does not exist yet.
func (r *Repository) Init(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("probe index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:        r.indexName(),
		StorageType: db.StorageHash,
		Prefixes:    []string{r.cfg.KeyPrefix + "chunk:"},
		Fields: []db.IndexField{
			{Name: fieldDocID, Type: db.IndexFieldTag},
			{Name: fieldText, Type: db.IndexFieldText},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.cfg.Dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.cfg.HNSWM,
				VectorEFConstruct: r.cfg.HNSWEFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// IndexedCount returns how many chunks of the document are already indexed.
func (r *Repository) IndexedCount(ctx context.Context, docID string) (int, error) {
	count, err := r.store.GetInt(ctx, r.countKey(docID))
	if err != nil {
		return 0, fmt.Errorf("read indexed count: %w", err)
	}
	return int(count), nil
}

// Index writes chunks with their embeddings in one pipelined round-trip and
// advances the document's indexed-chunk counter.
func (r *Repository) Index(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docID := chunks[0].Metadata.DocID

	items := make([]db.HashSetItem, len(chunks))
	for i, chunk := range chunks {
		items[i] = db.HashSetItem{
			Key:    r.chunkKey(docID, chunk.Metadata.GlobalChunkID),
			Fields: chunkToFields(chunk, vectors[i]),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write chunks: %w", err)
	}

	if err := r.store.IncrBy(ctx, r.countKey(docID), int64(len(chunks))); err != nil {
		return fmt.Errorf("advance indexed count: %w", err)
	}
	return nil
}

// Search runs hybrid retrieval: KNN and BM25 legs, RRF fusion, then a cosine
// rerank of the fused top rerankK against the query vector. Scores of the
// returned candidates are cosine similarities, descending.
func (r *Repository) Search(
	ctx context.Context,
	queryText string,
	queryVec []float32,
	docIDs []string,
	topK, rerankK, finalK int,
) ([]domain.ScoredCandidate, error) {
	filter := docFilter(docIDs)

	knn, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Filter:       filter,
		Vector:       queryVec,
		K:            topK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	bm25, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.indexName(),
		Query:        queryText,
		Filter:       filter,
		TopK:         topK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}

	fused := fuseRRF(knn.Entries, bm25.Entries, rerankK)

	candidates := rerank(fused, queryVec)
	if len(candidates) > finalK {
		candidates = candidates[:finalK]
	}
	return candidates, nil
}

// rerank orders fused entries by cosine similarity between the query vector
// and each stored chunk vector. Entries without a stored vector sink to the
// bottom with score 0.
func rerank(entries []db.SearchEntry, queryVec []float32) []domain.ScoredCandidate {
	candidates := make([]domain.ScoredCandidate, 0, len(entries))
	for _, e := range entries {
		score := 0.0
		if blob, ok := e.Fields[fieldVector]; ok && blob != "" {
			score = chunker.Cosine(queryVec, db.BytesToVector(blob))
		}
		candidates = append(candidates, fieldsToCandidate(e.Fields, score))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// docFilter builds the doc-id TAG pre-filter, empty for an unrestricted search.
func docFilter(docIDs []string) string {
	if len(docIDs) == 0 {
		return ""
	}
	escaped := make([]string, len(docIDs))
	for i, id := range docIDs {
		escaped[i] = db.EscapeTag(id)
	}
	return "@" + fieldDocID + ":{" + strings.Join(escaped, "|") + "}"
}
