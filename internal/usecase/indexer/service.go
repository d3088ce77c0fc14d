// Package indexer rebuilds per-source vector collections from the current
// record snapshot. It is the only writer of the vector index.
package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/metrics"
)

// Report summarizes one rebuild pass.
type Report struct {
	SourcesRebuilt []string
	RecordsIndexed map[string]int
	Durations      map[string]time.Duration
	Failures       map[string]string // source -> error text
}

// Service builds vector collections. Rebuilds of the same source are
// serialized; different sources may rebuild concurrently.
type Service struct {
	sources   SourceLister
	records   domain.RecordStore
	embed     Embedder
	idx       VectorIndex
	snapshots SnapshotStore // optional
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an index builder. snapshots may be nil to disable persistence.
func New(
	sources SourceLister,
	records domain.RecordStore,
	embed Embedder,
	idx VectorIndex,
	snapshots SnapshotStore,
	logger *zap.Logger,
) *Service {
	return &Service{
		sources:   sources,
		records:   records,
		embed:     embed,
		idx:       idx,
		snapshots: snapshots,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Rebuild recomputes the vector collection for one source, or for every
// registered source when sourceName is empty. A failed source aborts
// without touching its visible collection and never affects the others.
// The returned error is non-nil only for an unknown source name or when
// the one explicitly requested source failed.
func (s *Service) Rebuild(ctx context.Context, sourceName string) (Report, error) {
	report := Report{
		RecordsIndexed: make(map[string]int),
		Durations:      make(map[string]time.Duration),
		Failures:       make(map[string]string),
	}

	var targets []source.Config
	if sourceName != "" {
		cfg, err := s.sources.Get(sourceName)
		if err != nil {
			return report, err
		}
		targets = []source.Config{cfg}
	} else {
		targets = s.sources.All()
	}

	for _, cfg := range targets {
		start := time.Now()
		count, err := s.rebuildSource(ctx, cfg)
		elapsed := time.Since(start)
		report.Durations[cfg.Name()] = elapsed

		if err != nil {
			report.Failures[cfg.Name()] = err.Error()
			metrics.RebuildDuration.WithLabelValues(cfg.Name(), "error").Observe(elapsed.Seconds())
			s.logger.Error("Rebuild failed",
				zap.String("source", cfg.Name()), zap.Error(err))
			if sourceName != "" {
				return report, fmt.Errorf("%w: source %s: %v", domain.ErrRebuildFailed, cfg.Name(), err)
			}
			continue
		}

		report.SourcesRebuilt = append(report.SourcesRebuilt, cfg.Name())
		report.RecordsIndexed[cfg.Name()] = count
		metrics.RebuildDuration.WithLabelValues(cfg.Name(), "success").Observe(elapsed.Seconds())
		metrics.IndexedVectors.WithLabelValues(cfg.Name()).Set(float64(count))
		s.logger.Info("Rebuilt vector index",
			zap.String("source", cfg.Name()),
			zap.Int("records", count),
			zap.Duration("took", elapsed),
		)
	}

	return report, nil
}

// rebuildSource stages all embeddings in memory first, then swaps the
// collection in one ReplaceAll. Retrieval keeps serving the previous
// collection until the swap; a cancelled or failed rebuild leaves it intact.
func (s *Service) rebuildSource(ctx context.Context, cfg source.Config) (int, error) {
	lock := s.sourceLock(cfg.Name())
	lock.Lock()
	defer lock.Unlock()

	recs, err := s.records.ListRecords(ctx, cfg.Name())
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}

	// Empty source is legal: it yields an empty, present collection.
	texts := make([]string, 0, len(recs))
	kept := make([]domain.Record, 0, len(recs))
	for _, rec := range recs {
		id := cfg.RecordID(rec)
		if id == "" {
			s.logger.Warn("Skipping record without id",
				zap.String("source", cfg.Name()), zap.String("id_field", cfg.IDField()))
			continue
		}
		texts = append(texts, cfg.IndexText(rec))
		kept = append(kept, rec)
	}

	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed records: %w", err)
	}

	entries := make([]domain.IndexedVector, len(kept))
	for i, rec := range kept {
		entries[i] = domain.IndexedVector{
			RecordID: cfg.RecordID(rec),
			Vector:   vectors[i],
			Payload:  cfg.DisplayPayload(rec),
		}
	}

	if err := s.idx.ReplaceAll(cfg.CollectionName(), entries); err != nil {
		return 0, fmt.Errorf("replace collection: %w", err)
	}

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, cfg.CollectionName(), entries); err != nil {
			// the in-memory swap already succeeded; persistence is best effort
			s.logger.Warn("Failed to persist index snapshot",
				zap.String("source", cfg.Name()), zap.Error(err))
		}
	}

	return len(entries), nil
}

// Warm restores persisted collection snapshots so a restarted process
// serves vector results before its first rebuild. Best effort: an
// unreadable snapshot is dropped from the store and its source serves
// keyword-only results until rebuilt.
func (s *Service) Warm(ctx context.Context) {
	if s.snapshots == nil {
		return
	}

	for _, cfg := range s.sources.All() {
		entries, ok, err := s.snapshots.Load(ctx, cfg.CollectionName())
		if err != nil {
			s.logger.Warn("Dropping unreadable index snapshot",
				zap.String("source", cfg.Name()), zap.Error(err))
			if delErr := s.snapshots.Delete(ctx, cfg.CollectionName()); delErr != nil {
				s.logger.Warn("Failed to drop index snapshot",
					zap.String("source", cfg.Name()), zap.Error(delErr))
			}
			continue
		}
		if !ok {
			continue
		}

		if err := s.idx.ReplaceAll(cfg.CollectionName(), entries); err != nil {
			s.logger.Warn("Failed to restore index snapshot",
				zap.String("source", cfg.Name()), zap.Error(err))
			continue
		}

		metrics.IndexedVectors.WithLabelValues(cfg.Name()).Set(float64(len(entries)))
		s.logger.Info("Restored index snapshot",
			zap.String("source", cfg.Name()), zap.Int("vectors", len(entries)))
	}
}

func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var res domain.BatchEmbeddingResult
	var err error
	if be, ok := s.embed.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
	} else {
		res, err = domain.BatchFallback(ctx, s.embed, texts)
	}
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}
	return res.Embeddings, nil
}

func (s *Service) sourceLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[name]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[name] = l
	return l
}
