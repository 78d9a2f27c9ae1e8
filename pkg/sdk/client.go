// Package sdk is a thin HTTP client for the contextforge API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 120 * time.Second

// Client talks to a contextforge server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IngestResult reports the outcome of an ingestion call.
type IngestResult struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// QueryResult is a grounded answer with its citations.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("contextforge: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Ingest downloads, segments and indexes one document on the server.
func (c *Client) Ingest(ctx context.Context, docID, signedURL, filename string) (IngestResult, error) {
	var out IngestResult
	err := c.post(ctx, "/ingest", map[string]string{
		"doc_id":     docID,
		"signed_url": signedURL,
		"filename":   filename,
	}, &out)
	return out, err
}

// QueryOptions narrow or loosen a query.
type QueryOptions struct {
	DocIDs     []string // restrict retrieval to these documents
	BypassGate bool     // skip the answerability gate
}

// Query asks a question over the indexed corpus.
func (c *Client) Query(ctx context.Context, question string, opts *QueryOptions) (QueryResult, error) {
	body := map[string]any{"question": question}
	if opts != nil {
		if len(opts.DocIDs) > 0 {
			body["doc_ids"] = opts.DocIDs
		}
		if opts.BypassGate {
			body["bypass_gate"] = true
		}
	}

	var out QueryResult
	err := c.post(ctx, "/query", body, &out)
	return out, err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
