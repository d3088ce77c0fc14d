package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/index"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/keyword"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/metrics"
)

// Config holds the global retrieval switches and fusion weights.
type Config struct {
	EnableKeywordSearch bool
	EnableVectorSearch  bool
	KeywordBoost        float64
	OversampleFactor    int
}

// Service coordinates the two retrieval strategies and fuses their results.
// Read-only against the vector index; safe for concurrent use.
type Service struct {
	sources SourceResolver
	records domain.RecordStore
	matcher KeywordMatcher
	idx     VectorIndex
	embed   Embedder
	cfg     Config
	logger  *zap.Logger
}

// New creates a retrieval coordinator.
func New(
	sources SourceResolver,
	records domain.RecordStore,
	matcher KeywordMatcher,
	idx VectorIndex,
	embed Embedder,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.KeywordBoost <= 0 {
		cfg.KeywordBoost = 2.0
	}
	if cfg.OversampleFactor <= 0 {
		cfg.OversampleFactor = 3
	}
	return &Service{
		sources: sources,
		records: records,
		matcher: matcher,
		idx:     idx,
		embed:   embed,
		cfg:     cfg,
		logger:  logger,
	}
}

// Search resolves candidate sources, runs both strategies per source, and
// returns one fused, deduplicated ranked list. Strategy failures degrade
// the call (recorded in metadata) rather than failing it; only a total
// absence of usable strategies yields domain.ErrRetrievalUnavailable.
func (s *Service) Search(ctx context.Context, query string, opts Options) (Result, error) {
	selected, err := s.selectSources(query, opts)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Query: query,
		Metadata: Metadata{
			SourcesQueried: make([]string, 0, len(selected)),
			KeywordHits:    make(StrategyCounts, len(selected)),
			VectorHits:     make(StrategyCounts, len(selected)),
		},
	}
	if len(selected) == 0 {
		return result, nil
	}

	// The query embeds identically for every source, so compute it once.
	var queryVec []float32
	if s.cfg.EnableVectorSearch {
		embRes, embErr := s.embed.Embed(ctx, query)
		if embErr != nil {
			result.Metadata.VectorDegraded = true
			s.logger.Warn("Vector search degraded, falling back to keyword only",
				zap.String("query", query), zap.Error(embErr))
		} else {
			queryVec = embRes.Embedding
		}
	}

	perSource := make([][]Item, 0, len(selected))
	anyUsable := false

	for _, cfg := range selected {
		items, usable := s.searchSource(ctx, cfg, query, queryVec, opts, &result.Metadata)
		result.Metadata.SourcesQueried = append(result.Metadata.SourcesQueried, cfg.Name())
		if usable {
			anyUsable = true
		} else {
			result.Metadata.DegradedSources = append(result.Metadata.DegradedSources, cfg.Name())
		}
		perSource = append(perSource, items)

		metrics.SearchesTotal.WithLabelValues(cfg.Name(), boolLabel(!usable)).Inc()
		metrics.SearchCandidates.WithLabelValues(cfg.Name()).Observe(float64(len(items)))
	}

	if !anyUsable {
		return Result{}, fmt.Errorf("no usable strategy for sources %v: %w",
			result.Metadata.SourcesQueried, domain.ErrRetrievalUnavailable)
	}

	result.Items = mergeAcrossSources(perSource, s.overallLimit(selected, opts))
	return result, nil
}

// searchSource runs both strategies for one source and fuses them.
// The second return value reports whether at least one strategy was usable.
func (s *Service) searchSource(
	ctx context.Context, cfg source.Config,
	query string, queryVec []float32,
	opts Options, meta *Metadata,
) ([]Item, bool) {
	topK := cfg.DefaultLimit()
	if opts.TopK > 0 {
		topK = opts.TopK
	}

	var kwHits []keyword.Hit
	keywordOK := false
	if s.cfg.EnableKeywordSearch {
		recs, err := s.records.ListRecords(ctx, cfg.Name())
		if err != nil {
			s.logger.Warn("Keyword scan failed",
				zap.String("source", cfg.Name()), zap.Error(err))
		} else {
			kwHits = s.matcher.Match(recs, cfg.KeywordFields(), cfg.IDField(), query)
			keywordOK = true
		}
	}

	var vecHits []index.Hit
	vectorOK := false
	if queryVec != nil {
		hits, err := s.idx.Query(cfg.CollectionName(), queryVec, topK*s.cfg.OversampleFactor)
		if err != nil {
			meta.VectorDegraded = true
			s.logger.Warn("Vector query failed",
				zap.String("source", cfg.Name()), zap.Error(err))
		} else {
			vecHits = hits
			vectorOK = true
		}
	}

	meta.KeywordHits[cfg.Name()] = len(kwHits)
	meta.VectorHits[cfg.Name()] = len(vecHits)

	items := fuse(cfg, kwHits, vecHits, s.cfg.KeywordBoost)
	if len(items) > topK {
		items = items[:topK]
	}
	return items, keywordOK || vectorOK
}

func (s *Service) selectSources(query string, opts Options) ([]source.Config, error) {
	if opts.Source != "" {
		cfg, err := s.sources.Get(opts.Source)
		if err != nil {
			return nil, err
		}
		return []source.Config{cfg}, nil
	}
	return s.sources.ResolveQuery(query), nil
}

// overallLimit is the explicit topK, or the largest default limit among
// the selected sources.
func (s *Service) overallLimit(selected []source.Config, opts Options) int {
	if opts.TopK > 0 {
		return opts.TopK
	}
	limit := 0
	for _, cfg := range selected {
		if cfg.DefaultLimit() > limit {
			limit = cfg.DefaultLimit()
		}
	}
	return limit
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// IsUnavailable reports whether err is the all-strategies-failed condition.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrRetrievalUnavailable)
}
