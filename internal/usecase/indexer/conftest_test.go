package indexer

import (
	"context"
	"testing"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
)

// --- Mocks ---

type mockSources struct {
	byName map[string]source.Config
	all    []source.Config
}

func (m *mockSources) Get(name string) (source.Config, error) {
	cfg, ok := m.byName[name]
	if !ok {
		return source.Config{}, domain.ErrUnknownSource
	}
	return cfg, nil
}

func (m *mockSources) All() []source.Config { return m.all }

type mockRecords struct {
	bySource map[string][]domain.Record
	errFor   map[string]error
}

func (m *mockRecords) ListRecords(_ context.Context, sourceName string) ([]domain.Record, error) {
	if err := m.errFor[sourceName]; err != nil {
		return nil, err
	}
	return m.bySource[sourceName], nil
}

type mockIndex struct {
	replaced map[string][]domain.IndexedVector
	err      error
}

func (m *mockIndex) ReplaceAll(collectionName string, entries []domain.IndexedVector) error {
	if m.err != nil {
		return m.err
	}
	if m.replaced == nil {
		m.replaced = make(map[string][]domain.IndexedVector)
	}
	m.replaced[collectionName] = entries
	return nil
}

type mockSnapshots struct {
	saved   map[string]int
	err     error
	stored  map[string][]domain.IndexedVector
	loadErr map[string]error
	deleted []string
}

func (m *mockSnapshots) Save(_ context.Context, collectionName string, entries []domain.IndexedVector) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = make(map[string]int)
	}
	m.saved[collectionName] = len(entries)
	return nil
}

func (m *mockSnapshots) Load(_ context.Context, collectionName string) ([]domain.IndexedVector, bool, error) {
	if err := m.loadErr[collectionName]; err != nil {
		return nil, false, err
	}
	entries, ok := m.stored[collectionName]
	return entries, ok, nil
}

func (m *mockSnapshots) Delete(_ context.Context, collectionName string) error {
	m.deleted = append(m.deleted, collectionName)
	return nil
}

type mockEmbedder struct {
	texts []string
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	m.texts = append(m.texts, text)
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

// batchMockEmbedder also implements domain.BatchEmbedder.
type batchMockEmbedder struct {
	mockEmbedder
	batchCalls int
}

func (m *batchMockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	m.texts = append(m.texts, texts...)
	embeddings := make([][]float32, len(texts))
	for i := range embeddings {
		embeddings[i] = []float32{1, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

// --- Fixtures ---

func testSource(t *testing.T, name string) source.Config {
	t.Helper()
	cfg, err := source.New(
		name, nil,
		[]string{"title"}, []string{"title"},
		nil,
		map[string]string{source.KeyID: "id", source.KeyTitle: "title"},
		"", 0,
	)
	if err != nil {
		t.Fatalf("source.New: %v", err)
	}
	return cfg
}
