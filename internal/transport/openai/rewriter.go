package openai

import (
	"context"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/contextforge/contextforge/internal/domain"
	"github.com/contextforge/contextforge/internal/metrics"
)

const rewritePrompt = `You are a careful and knowledgeable assistant answering questions using retrieved document excerpts.

Your goal is to produce a complete, well-structured answer that:
- Covers all relevant aspects implied by the question
- Uses only the provided context
- Does not rely on document structure such as section names or headings
- Does not omit important dimensions (e.g., clinical, technical, economic, social) if they are present in the context

If the context does not contain sufficient information, say so.
If information is distributed across multiple sentences or passages, you should synthesize it into a complete answer.
When a question asks "what are", "why", or "which", present the answer as a concise list if multiple aspects are present in the context.
When a term (e.g., heterogeneity, burden, limitation) can refer to multiple concepts, interpret it in the sense most directly related to the question.

Do not add external knowledge or assumptions.

Question:
%s

Context:
%s`

// Rewriter turns assembled context plus a question into a final answer via a
// chat-completion model.
type Rewriter struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// RewriterConfig holds the rewrite provider settings.
type RewriterConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

// NewRewriter creates an OpenAI-compatible rewrite provider.
func NewRewriter(cfg *RewriterConfig) *Rewriter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 350
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Rewriter{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Rewrite produces the answer text grounded on context. A response missing
// the expected fields is a hard error, never silently retried.
func (r *Rewriter) Rewrite(ctx context.Context, assembled, question string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(rewritePrompt, question, assembled),
			},
		},
		// go-openai omits a zero temperature from the request body; the
		// smallest non-zero float survives serialization and the provider
		// treats it as 0.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   r.maxTokens,
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.RewriteRequestsTotal.WithLabelValues(r.model, "error").Inc()
		r.logger.Warn("rewrite request failed", zap.String("model", r.model), zap.Error(err))
		return "", fmt.Errorf("rewrite request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		metrics.RewriteRequestsTotal.WithLabelValues(r.model, "error").Inc()
		r.logger.Warn("rewrite response has no choices", zap.String("model", r.model))
		return "", fmt.Errorf("rewrite response has no choices: %w", domain.ErrMalformedUpstreamResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		metrics.RewriteRequestsTotal.WithLabelValues(r.model, "error").Inc()
		return "", fmt.Errorf("rewrite response has empty content: %w", domain.ErrMalformedUpstreamResponse)
	}

	metrics.RewriteRequestsTotal.WithLabelValues(r.model, "success").Inc()
	return content, nil
}
