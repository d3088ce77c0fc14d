package domain

import "errors"

var (
	// ErrUnknownSource signals a source name that is not registered.
	ErrUnknownSource = errors.New("unknown source")
	// ErrInvalidSourceConfig signals an invalid source configuration.
	ErrInvalidSourceConfig = errors.New("invalid source config")
	// ErrModelUnavailable signals that the embedding model cannot be initialized.
	ErrModelUnavailable = errors.New("embedding model unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRetrievalUnavailable signals that no retrieval strategy is usable for a source.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRebuildFailed signals a failed index rebuild for a source.
	ErrRebuildFailed = errors.New("rebuild failed")
)
