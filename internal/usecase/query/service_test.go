package query

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/contextforge/contextforge/internal/domain"
	"github.com/contextforge/contextforge/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type fakeEmbedder struct {
	err error

	gotText string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.gotText = text
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 3}, nil
}

type fakeSearcher struct {
	candidates []domain.ScoredCandidate
	err        error

	gotQuery  string
	gotVec    []float32
	gotDocIDs []string
	gotTopK   int
	gotFinalK int
}

func (f *fakeSearcher) Search(_ context.Context, queryText string, queryVec []float32, docIDs []string, topK, _, finalK int) ([]domain.ScoredCandidate, error) {
	f.gotQuery = queryText
	f.gotVec = queryVec
	f.gotDocIDs = docIDs
	f.gotTopK = topK
	f.gotFinalK = finalK
	return f.candidates, f.err
}

type fakeRewriter struct {
	answer string
	err    error

	called      bool
	gotContext  string
	gotQuestion string
}

func (f *fakeRewriter) Rewrite(_ context.Context, contextText, question string) (string, error) {
	f.called = true
	f.gotContext = contextText
	f.gotQuestion = question
	return f.answer, f.err
}

func candidate(score float64, text, section string, page int) domain.ScoredCandidate {
	return domain.ScoredCandidate{
		Score: score,
		Text:  text,
		Metadata: domain.ChunkMetadata{
			DocID:   "doc1",
			Section: section,
			Page:    page,
		},
	}
}

// answerableCandidates satisfies all three gate signals: concentrated top
// score, overlapping wording, decisive rank gap.
func answerableCandidates() []domain.ScoredCandidate {
	return []domain.ScoredCandidate{
		candidate(0.9, "cache invalidation strategy uses explicit versioning", "3.1 Caching", 12),
		candidate(0.5, "the cache invalidation strategy relies on versioning", "3.1 Caching", 13),
		candidate(0.3, "cache invalidation strategy notes", "3.2 Eviction", 14),
	}
}

func newService(candidates []domain.ScoredCandidate) (*Service, *fakeEmbedder, *fakeSearcher, *fakeRewriter) {
	emb := &fakeEmbedder{}
	srch := &fakeSearcher{candidates: candidates}
	rw := &fakeRewriter{answer: "Versioning invalidates stale entries."}
	return New(emb, srch, rw, DefaultConfig()), emb, srch, rw
}

func TestAnswer_GroundedAnswer(t *testing.T) {
	svc, emb, srch, rw := newService(answerableCandidates())

	got, err := svc.Answer(context.Background(), "what is the cache invalidation strategy?", []string{"doc1"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Answer != "Versioning invalidates stale entries." {
		t.Errorf("answer = %q", got.Answer)
	}
	if len(got.Sources) != 1 || got.Sources[0] != "3.1 Caching (page 12)" {
		t.Errorf("sources = %v", got.Sources)
	}

	if emb.gotText != "what is the cache invalidation strategy?" {
		t.Errorf("embedded text = %q", emb.gotText)
	}
	if srch.gotQuery != emb.gotText || len(srch.gotVec) != 2 {
		t.Errorf("search called with query %q, vec %v", srch.gotQuery, srch.gotVec)
	}
	if len(srch.gotDocIDs) != 1 || srch.gotDocIDs[0] != "doc1" {
		t.Errorf("doc ids = %v", srch.gotDocIDs)
	}
	if srch.gotTopK != 50 || srch.gotFinalK != 5 {
		t.Errorf("depths = topK %d, finalK %d", srch.gotTopK, srch.gotFinalK)
	}
	if rw.gotQuestion != emb.gotText {
		t.Errorf("rewriter question = %q", rw.gotQuestion)
	}
}

func TestAnswer_GateRejectsDiffuseScores(t *testing.T) {
	svc, _, _, rw := newService([]domain.ScoredCandidate{
		candidate(0.5, "cache invalidation strategy", "3.1", 1),
		candidate(0.48, "cache invalidation strategy", "3.1", 2),
		candidate(0.46, "cache invalidation strategy", "3.2", 3),
	})

	got, err := svc.Answer(context.Background(), "what is the strategy?", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Answer != InsufficientAnswer {
		t.Errorf("answer = %q", got.Answer)
	}
	if len(got.Sources) != 0 {
		t.Errorf("sources = %v", got.Sources)
	}
	if rw.called {
		t.Error("rewriter must not run on gate rejection")
	}
}

func TestAnswer_BypassSkipsGate(t *testing.T) {
	// One weak candidate would never pass the gate on its own.
	svc, _, _, rw := newService([]domain.ScoredCandidate{
		candidate(0.2, "a lone weak match", "1.1", 1),
	})

	got, err := svc.Answer(context.Background(), "anything relevant?", nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Answer == InsufficientAnswer {
		t.Error("bypass must reach the rewriter")
	}
	if !rw.called {
		t.Error("rewriter not called")
	}
	if !strings.Contains(rw.gotContext, "a lone weak match") {
		t.Errorf("context = %q", rw.gotContext)
	}
}

func TestAnswer_NoCandidatesWithBypass(t *testing.T) {
	svc, _, _, rw := newService(nil)

	got, err := svc.Answer(context.Background(), "anything?", nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Answer != InsufficientAnswer {
		t.Errorf("answer = %q", got.Answer)
	}
	if rw.called {
		t.Error("rewriter must not run on empty assembly")
	}
}

func TestAnswer_GlobalQuestionWidensContext(t *testing.T) {
	candidates := []domain.ScoredCandidate{
		candidate(0.9, "star topology pros and cons here", "2.1 Star", 5),
		candidate(0.8, "mesh topology pros and cons here", "2.2 Mesh", 8),
		candidate(0.3, "unrelated topology pros appendix here", "9.9", 40),
	}

	t.Run("comparison question spans sections", func(t *testing.T) {
		svc, _, _, rw := newService(candidates)

		got, err := svc.Answer(context.Background(), "difference between star and mesh?", nil, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(rw.gotContext, "star topology") || !strings.Contains(rw.gotContext, "mesh topology") {
			t.Errorf("context = %q", rw.gotContext)
		}
		if len(got.Sources) != 2 {
			t.Errorf("sources = %v", got.Sources)
		}
	})

	t.Run("factual question stays in one section", func(t *testing.T) {
		svc, _, _, rw := newService(candidates)

		_, err := svc.Answer(context.Background(), "what is a star topology?", nil, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(rw.gotContext, "mesh topology") {
			t.Errorf("context widened without a global cue: %q", rw.gotContext)
		}
	})
}

func TestAnswer_StageErrorsWrapped(t *testing.T) {
	boom := errors.New("boom")

	t.Run("embed", func(t *testing.T) {
		svc, emb, _, _ := newService(answerableCandidates())
		emb.err = boom
		_, err := svc.Answer(context.Background(), "q?", nil, false)
		if !errors.Is(err, boom) || !strings.Contains(err.Error(), "embed question") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("search", func(t *testing.T) {
		svc, _, srch, _ := newService(nil)
		srch.err = boom
		_, err := svc.Answer(context.Background(), "q?", nil, false)
		if !errors.Is(err, boom) || !strings.Contains(err.Error(), "search") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("rewrite", func(t *testing.T) {
		svc, _, _, rw := newService(answerableCandidates())
		rw.err = boom
		_, err := svc.Answer(context.Background(), "q?", nil, false)
		if !errors.Is(err, boom) || !strings.Contains(err.Error(), "rewrite answer") {
			t.Fatalf("err = %v", err)
		}
	})
}
