package query

import (
	"context"

	"github.com/contextforge/contextforge/internal/domain"
)

// Embedder vectorizes the question with the query-side instruction.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher runs hybrid retrieval and returns reranked candidates, best first.
type Searcher interface {
	Search(ctx context.Context, queryText string, queryVec []float32, docIDs []string, topK, rerankK, finalK int) ([]domain.ScoredCandidate, error)
}

// Rewriter turns assembled context plus the question into a final answer.
type Rewriter interface {
	Rewrite(ctx context.Context, contextText, question string) (string, error)
}
