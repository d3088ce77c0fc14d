// Package cognimark embeds the hybrid retrieval engine in a Go process,
// without the HTTP layer. Sources are declared up front, records live in
// a Redis-compatible store, and queries fuse keyword and vector matches
// into one ranked list.
package cognimark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/Wenjunyun123/Cognimark-Agent/internal/db/redis"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/index"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/keyword"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/registry"
	recordsrepo "github.com/Wenjunyun123/Cognimark-Agent/internal/repository/records"
	snapshotrepo "github.com/Wenjunyun123/Cognimark-Agent/internal/repository/snapshot"
	indexeruc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/indexer"
	retrievaluc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/retrieval"
	statusuc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/status"
)

const defaultReadinessTimeout = 10 * time.Second

// Sentinel errors re-exported for errors.Is checks against Engine results.
var (
	ErrUnknownSource        = domain.ErrUnknownSource
	ErrRetrievalUnavailable = domain.ErrRetrievalUnavailable
	ErrInvalidSourceConfig  = domain.ErrInvalidSourceConfig
	ErrRebuildFailed        = domain.ErrRebuildFailed
)

// Embedder vectorizes text for semantic search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine is the embedded retrieval entry point.
type Engine struct {
	store      *dbRedis.Store
	searchSvc  *retrievaluc.Service
	indexerSvc *indexeruc.Service
	statusSvc  *statusuc.Service
}

// New creates an Engine and connects to the database.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{
		keyPrefix:            "cognimark:",
		enableKeywordSearch:  true,
		enableVectorSearch:   true,
		keywordBoost:         2.0,
		oversampleFactor:     3,
		fallbackToAllSources: true,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("cognimark: database address required (use WithRedis)")
	}
	if len(cfg.sources) == 0 {
		return nil, errors.New("cognimark: at least one source required (use WithSource)")
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("cognimark: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("cognimark: database not ready: %w", err)
	}

	eng, err := wireEngine(store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	// Restore persisted collections so vector search works before the
	// first Rebuild call.
	eng.indexerSvc.Warm(ctx)

	return eng, nil
}

func wireEngine(store *dbRedis.Store, cfg *engineConfig) (*Engine, error) {
	sourceConfigs := make([]source.Config, 0, len(cfg.sources))
	for _, spec := range cfg.sources {
		sc, err := source.New(
			spec.Name,
			spec.TriggerKeywords,
			spec.KeywordFields,
			spec.IndexFields,
			spec.NumericFields,
			spec.DisplayFields,
			spec.CollectionName,
			spec.DefaultLimit,
		)
		if err != nil {
			return nil, fmt.Errorf("cognimark: source %q: %w", spec.Name, err)
		}
		sourceConfigs = append(sourceConfigs, sc)
	}

	reg, err := registry.New(sourceConfigs, cfg.fallbackToAllSources)
	if err != nil {
		return nil, fmt.Errorf("cognimark: build registry: %w", err)
	}

	// noop when no embedder configured: keyword search keeps working.
	var domEmb domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		domEmb = &embedderAdapter{inner: cfg.embedder}
	}

	idx := index.New()
	recRepo := recordsrepo.New(store, cfg.keyPrefix)
	snapRepo := snapshotrepo.New(store, cfg.keyPrefix)
	matcher := keyword.New()

	searchSvc := retrievaluc.New(reg, recRepo, matcher, idx, domEmb, retrievaluc.Config{
		EnableKeywordSearch: cfg.enableKeywordSearch,
		EnableVectorSearch:  cfg.enableVectorSearch,
		KeywordBoost:        cfg.keywordBoost,
		OversampleFactor:    cfg.oversampleFactor,
	}, cfg.logger)
	indexerSvc := indexeruc.New(reg, recRepo, domEmb, idx, snapRepo, cfg.logger)
	statusSvc := statusuc.New(reg, idx)

	return &Engine{
		store:      store,
		searchSvc:  searchSvc,
		indexerSvc: indexerSvc,
		statusSvc:  statusSvc,
	}, nil
}

// Close releases all resources.
func (e *Engine) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// Ping checks database connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// SearchOptions configures a query.
type SearchOptions struct {
	// Source restricts retrieval to one named source, bypassing trigger
	// keyword routing. Unknown names fail with ErrUnknownSource.
	Source string
	// TopK caps the fused result list. Zero uses per-source defaults.
	TopK int
}

// SearchResult is one fused, ranked item.
type SearchResult struct {
	ID         string
	Title      string
	URL        string
	Score      float64
	Source     string
	Strategies []string
	Metadata   map[string]string
}

// SearchOutcome carries the ranked items plus per-query diagnostics.
type SearchOutcome struct {
	Query           string
	Results         []SearchResult
	SourcesQueried  []string
	VectorDegraded  bool
	DegradedSources []string
}

// Search routes the query to matching sources and returns fused results.
func (e *Engine) Search(ctx context.Context, query string, opts *SearchOptions) (SearchOutcome, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	res, err := e.searchSvc.Search(ctx, query, retrievaluc.Options{
		Source: opts.Source,
		TopK:   opts.TopK,
	})
	if err != nil {
		return SearchOutcome{}, fmt.Errorf("search: %w", err)
	}
	return fromResult(res), nil
}

// FormatContext renders results as a plain-text block for LLM prompts.
func (e *Engine) FormatContext(ctx context.Context, query string, opts *SearchOptions) (string, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	res, err := e.searchSvc.Search(ctx, query, retrievaluc.Options{
		Source: opts.Source,
		TopK:   opts.TopK,
	})
	if err != nil {
		return "", fmt.Errorf("format context: %w", err)
	}
	return retrievaluc.FormatContext(res), nil
}

// RebuildReport summarizes one rebuild pass.
type RebuildReport struct {
	SourcesRebuilt []string
	RecordsIndexed map[string]int
	Failures       map[string]string
}

// Rebuild recomputes the vector collection for one source, or for all
// sources when sourceName is empty.
func (e *Engine) Rebuild(ctx context.Context, sourceName string) (RebuildReport, error) {
	report, err := e.indexerSvc.Rebuild(ctx, sourceName)
	out := RebuildReport{
		SourcesRebuilt: report.SourcesRebuilt,
		RecordsIndexed: report.RecordsIndexed,
		Failures:       report.Failures,
	}
	if err != nil {
		return out, fmt.Errorf("rebuild: %w", err)
	}
	return out, nil
}

// SourceStatus is the per-source slice of a status report.
type SourceStatus struct {
	Name            string
	CollectionName  string
	TriggerKeywords []string
	IndexedCount    int
	LastBuiltAt     time.Time
}

// Status reports per-source index state, in declaration order.
func (e *Engine) Status() []SourceStatus {
	report := e.statusSvc.Report()
	out := make([]SourceStatus, 0, len(report.Sources))
	for _, src := range report.Sources {
		out = append(out, SourceStatus{
			Name:            src.Name,
			CollectionName:  src.CollectionName,
			TriggerKeywords: src.TriggerKeywords,
			IndexedCount:    src.IndexedCount,
			LastBuiltAt:     src.LastBuiltAt,
		})
	}
	return out
}

func fromResult(res retrievaluc.Result) SearchOutcome {
	out := SearchOutcome{
		Query:           res.Query,
		Results:         make([]SearchResult, 0, len(res.Items)),
		SourcesQueried:  res.Metadata.SourcesQueried,
		VectorDegraded:  res.Metadata.VectorDegraded,
		DegradedSources: res.Metadata.DegradedSources,
	}
	for _, it := range res.Items {
		strategies := make([]string, len(it.Strategies))
		for i, st := range it.Strategies {
			strategies[i] = string(st)
		}
		out.Results = append(out.Results, SearchResult{
			ID:         it.RecordID,
			Title:      it.Title,
			URL:        it.URL,
			Score:      it.Score,
			Source:     it.Source,
			Strategies: strategies,
			Metadata:   it.Display,
		})
	}
	return out
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// noopEmbedder fails every Embed call so retrieval degrades to keyword-only.
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf("%w: embedder not configured (use WithEmbedder)",
		domain.ErrModelUnavailable)
}
