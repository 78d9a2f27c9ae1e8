// Package chunker agglomerates segmentation blocks into token-bounded
// retrieval units using embedding-similarity grouping.
package chunker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/contextforge/contextforge/internal/domain"
)

// Config holds semantic chunking bounds.
type Config struct {
	MinTokens    int     // floor before a similarity drop may close a chunk
	MaxTokens    int     // hard ceiling on chunk size
	SimThreshold float64 // cosine similarity below which a chunk may close
	BatchSize    int     // embedding batch size; I/O tuning only, never affects results
}

// DefaultConfig returns the calibrated chunking bounds.
func DefaultConfig() Config {
	return Config{
		MinTokens:    200,
		MaxTokens:    800,
		SimThreshold: 0.78,
		BatchSize:    16,
	}
}

// Chunker merges adjacent blocks into chunks via a greedy single forward
// pass over block embeddings.
type Chunker struct {
	embed domain.BatchEmbedder
	cfg   Config
}

// New creates a semantic chunker.
func New(embed domain.BatchEmbedder, cfg Config) *Chunker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	return &Chunker{embed: embed, cfg: cfg}
}

// Chunk embeds all blocks once (in batches), then greedily merges adjacent
// blocks: the open chunk closes when similarity to its running centroid drops
// below the threshold after the token floor is reached, or when adding the
// block would exceed the token ceiling. The final chunk is emitted even if
// short. Global chunk ids are assigned sequentially from 0.
func (c *Chunker) Chunk(ctx context.Context, blocks []domain.Block) ([]domain.Chunk, error) {
	if len(blocks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}

	embeddings, err := c.embedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed blocks: %w", err)
	}

	var chunks []domain.Chunk
	var current []domain.Block
	var centroid []float32
	currentTokens := 0
	currentCount := 0
	globalChunkID := 0

	for i, block := range blocks {
		emb := embeddings[i]
		tokens := domain.Tokens(block.Text)

		if len(current) == 0 {
			current = []domain.Block{block}
			centroid = emb
			currentCount = 1
			currentTokens = tokens
			continue
		}

		sim := Cosine(centroid, emb)

		if (sim < c.cfg.SimThreshold && currentTokens >= c.cfg.MinTokens) ||
			currentTokens+tokens > c.cfg.MaxTokens {
			chunks = append(chunks, BuildChunk(current, globalChunkID))
			globalChunkID++

			current = []domain.Block{block}
			centroid = emb
			currentCount = 1
			currentTokens = tokens
			continue
		}

		current = append(current, block)
		centroid = UpdateCentroid(centroid, emb, currentCount)
		currentCount++
		currentTokens += tokens
	}

	if len(current) > 0 {
		chunks = append(chunks, BuildChunk(current, globalChunkID))
	}

	return chunks, nil
}

// embedAll fetches embeddings for all texts in order-preserving sub-batches.
func (c *Chunker) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embed.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("got %d embeddings for %d texts: %w",
				len(batch), end-start, domain.ErrMalformedUpstreamResponse)
		}
		all = append(all, batch...)
	}

	return all, nil
}

// BuildChunk assembles merged blocks into a chunk: blank-line-joined text,
// the first block's provenance as representative fields, sorted string sets
// of all pages and sections touched, and an uncapped confidence heuristic of
// blocks merged over 5.
func BuildChunk(blocks []domain.Block, globalChunkID int) domain.Chunk {
	texts := make([]string, len(blocks))
	pageSet := make(map[string]struct{})
	sectionSet := make(map[string]struct{})
	for i, b := range blocks {
		texts[i] = b.Text
		pageSet[strconv.Itoa(b.Page)] = struct{}{}
		sectionSet[b.Section] = struct{}{}
	}

	first := blocks[0]

	return domain.Chunk{
		Text: joinBlocks(texts),
		Metadata: domain.ChunkMetadata{
			Source:        first.Source,
			Page:          first.Page,
			Chapter:       first.Chapter,
			Section:       sectionOrUnknown(first.Section),
			GlobalChunkID: globalChunkID,
			Pages:         sortedSet(pageSet),
			Sections:      sortedSet(sectionSet),
			Confidence:    math.Round(float64(len(blocks))/5*100) / 100,
		},
	}
}

func joinBlocks(texts []string) string {
	out := texts[0]
	for _, t := range texts[1:] {
		out += "\n\n" + t
	}
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sectionOrUnknown(section string) string {
	if section == "" {
		return "unknown"
	}
	return section
}
