package retrieval

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/index"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/keyword"
)

// --- Mocks ---

type mockResolver struct {
	byName   map[string]source.Config
	resolved []source.Config
}

func (m *mockResolver) Get(name string) (source.Config, error) {
	cfg, ok := m.byName[name]
	if !ok {
		return source.Config{}, domain.ErrUnknownSource
	}
	return cfg, nil
}

func (m *mockResolver) ResolveQuery(_ string) []source.Config {
	return m.resolved
}

type mockRecords struct {
	bySource map[string][]domain.Record
	err      error
}

func (m *mockRecords) ListRecords(_ context.Context, sourceName string) ([]domain.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.bySource[sourceName], nil
}

type mockIndex struct {
	byCollection map[string][]index.Hit
	err          error
	lastK        int
}

func (m *mockIndex) Query(collectionName string, _ []float32, k int) ([]index.Hit, error) {
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	hits := m.byCollection[collectionName]
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

// --- Fixtures ---

func productsSource(t *testing.T) source.Config {
	t.Helper()
	cfg, err := source.New(
		"products",
		[]string{"商品", "product"},
		[]string{"title", "category"},
		[]string{"title", "category"},
		nil,
		map[string]string{
			source.KeyID:    "id",
			source.KeyTitle: "title",
			source.KeyURL:   "url",
		},
		"products_vector", 10,
	)
	if err != nil {
		t.Fatalf("source.New: %v", err)
	}
	return cfg
}

func faqSource(t *testing.T) source.Config {
	t.Helper()
	cfg, err := source.New(
		"faq",
		[]string{"faq"},
		[]string{"question"},
		[]string{"question"},
		nil,
		map[string]string{
			source.KeyID:    "id",
			source.KeyTitle: "question",
		},
		"faq_vector", 5,
	)
	if err != nil {
		t.Fatalf("source.New: %v", err)
	}
	return cfg
}

func defaultConfig() Config {
	return Config{
		EnableKeywordSearch: true,
		EnableVectorSearch:  true,
		KeywordBoost:        2.0,
		OversampleFactor:    3,
	}
}

func newTestService(
	resolver *mockResolver,
	records *mockRecords,
	idx *mockIndex,
	embed *mockEmbedder,
	cfg Config,
) *Service {
	return New(resolver, records, keyword.New(), idx, embed, cfg, zap.NewNop())
}
