package indexer

import (
	"context"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
)

// SourceLister enumerates registered sources.
type SourceLister interface {
	Get(name string) (source.Config, error)
	All() []source.Config
}

// VectorIndex accepts whole-collection replacements.
type VectorIndex interface {
	ReplaceAll(collectionName string, entries []domain.IndexedVector) error
}

// SnapshotStore persists built collections for fast restarts.
type SnapshotStore interface {
	Save(ctx context.Context, collectionName string, entries []domain.IndexedVector) error
	Load(ctx context.Context, collectionName string) ([]domain.IndexedVector, bool, error)
	Delete(ctx context.Context, collectionName string) error
}

// Embedder vectorizes text. Batch-capable embedders are used per source
// pass; others fall back to one call per record.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
