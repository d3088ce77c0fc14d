// Package status reports per-source index state for operators.
package status

import (
	"time"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
)

// SourceLister enumerates registered sources.
type SourceLister interface {
	All() []source.Config
}

// Counter reports per-collection index state.
type Counter interface {
	Count(collectionName string) int
	BuiltAt(collectionName string) time.Time
}

// SourceStatus is the per-source slice of a status report.
type SourceStatus struct {
	Name            string
	CollectionName  string
	TriggerKeywords []string
	IndexedCount    int
	LastBuiltAt     time.Time // zero when the collection was never built
}

// Report is the full status response, in registry declaration order.
type Report struct {
	Sources []SourceStatus
}

// Service assembles status reports.
type Service struct {
	sources SourceLister
	idx     Counter
}

// New creates a status service.
func New(sources SourceLister, idx Counter) *Service {
	return &Service{sources: sources, idx: idx}
}

// Report returns the current per-source index state.
func (s *Service) Report() Report {
	all := s.sources.All()
	out := Report{Sources: make([]SourceStatus, 0, len(all))}
	for _, cfg := range all {
		out.Sources = append(out.Sources, SourceStatus{
			Name:            cfg.Name(),
			CollectionName:  cfg.CollectionName(),
			TriggerKeywords: cfg.TriggerKeywords(),
			IndexedCount:    s.idx.Count(cfg.CollectionName()),
			LastBuiltAt:     s.idx.BuiltAt(cfg.CollectionName()),
		})
	}
	return out
}
