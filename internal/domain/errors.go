package domain

import "errors"

var (
	// ErrNoExtractableText signals a document with no text on any page.
	ErrNoExtractableText = errors.New("no extractable text")
	// ErrEmptyDocument signals that the segmentation fallback chain produced
	// zero blocks, so nothing can be chunked or indexed.
	ErrEmptyDocument = errors.New("empty document")
	// ErrMalformedUpstreamResponse signals an embedding or rewrite payload
	// missing expected fields. Raised immediately, never retried.
	ErrMalformedUpstreamResponse = errors.New("malformed upstream response")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrUnsupportedFormat signals a document format with no extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
