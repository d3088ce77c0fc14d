package retrieval

import (
	"context"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/index"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/keyword"
)

// SourceResolver resolves queries and names to source configs.
type SourceResolver interface {
	Get(name string) (source.Config, error)
	ResolveQuery(query string) []source.Config
}

// VectorIndex answers nearest-neighbor queries per collection.
type VectorIndex interface {
	Query(collectionName string, vector []float32, k int) ([]index.Hit, error)
}

// KeywordMatcher scans record snapshots for literal matches.
type KeywordMatcher interface {
	Match(records []domain.Record, fields []string, idField, query string) []keyword.Hit
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
