// Package query answers questions over the indexed corpus: retrieve, gate,
// assemble, rewrite.
package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/contextforge/contextforge/internal/answer"
	"github.com/contextforge/contextforge/internal/logger"
	"github.com/contextforge/contextforge/internal/metrics"
)

// InsufficientAnswer is returned verbatim whenever the pipeline decides the
// corpus cannot answer the question. Clients match on this string.
const InsufficientAnswer = "The retrieved documents do not contain enough information to answer this question."

// Config holds the retrieval depths and assembly bounds.
type Config struct {
	TopK     int // candidates fetched per retrieval leg
	RerankK  int // fused candidates kept for the cosine rerank
	FinalK   int // candidates surfaced to gating and assembly
	Assemble answer.Config
}

// DefaultConfig returns the calibrated retrieval depths.
func DefaultConfig() Config {
	return Config{
		TopK:     50,
		RerankK:  50,
		FinalK:   5,
		Assemble: answer.DefaultConfig(),
	}
}

// Result is a grounded answer with deduplicated citations.
type Result struct {
	Answer  string
	Sources []string
}

// Service runs the question answering pipeline.
type Service struct {
	embedder Embedder
	searcher Searcher
	rewriter Rewriter
	cfg      Config
}

func New(embedder Embedder, searcher Searcher, rewriter Rewriter, cfg Config) *Service {
	return &Service{
		embedder: embedder,
		searcher: searcher,
		rewriter: rewriter,
		cfg:      cfg,
	}
}

// Answer retrieves candidates for the question, gates them for answerability,
// and rewrites the assembled context into a final answer. A gate rejection or
// an empty assembly yields the insufficient-information answer with no
// sources; neither is an error. Passing bypassGate skips the gate, which is
// the recall-over-precision mode for exploratory queries.
func (s *Service) Answer(ctx context.Context, question string, docIDs []string, bypassGate bool) (Result, error) {
	log := logger.FromContext(ctx)

	emb, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("embed question: %w", err)
	}

	candidates, err := s.searcher.Search(ctx, question, emb.Embedding, docIDs,
		s.cfg.TopK, s.cfg.RerankK, s.cfg.FinalK)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	if bypassGate {
		metrics.GateDecisionsTotal.WithLabelValues("bypass").Inc()
	} else if !answer.IsAnswerable(candidates) {
		metrics.GateDecisionsTotal.WithLabelValues("reject").Inc()
		log.Info("gate rejected question", zap.Int("candidates", len(candidates)))
		return insufficient(), nil
	} else {
		metrics.GateDecisionsTotal.WithLabelValues("pass").Inc()
	}

	allowMulti := answer.NeedsGlobalContext(question)
	assembled := answer.Assemble(candidates, allowMulti, s.cfg.Assemble)
	if assembled.Text == "" {
		return insufficient(), nil
	}

	final, err := s.rewriter.Rewrite(ctx, assembled.Text, question)
	if err != nil {
		return Result{}, fmt.Errorf("rewrite answer: %w", err)
	}

	return Result{
		Answer:  final,
		Sources: answer.FormatCitations(assembled.Sources),
	}, nil
}

func insufficient() Result {
	return Result{Answer: InsufficientAnswer, Sources: []string{}}
}
