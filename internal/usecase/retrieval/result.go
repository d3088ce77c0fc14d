package retrieval

import "github.com/Wenjunyun123/Cognimark-Agent/internal/domain/candidate"

// Item is one display-ready fused candidate.
type Item struct {
	RecordID   string
	Score      float64
	Source     string
	Strategies []candidate.Strategy
	Display    map[string]string // canonical display keys -> values
	Title      string
	URL        string
}

// StrategyCounts holds per-source candidate counts for one strategy.
type StrategyCounts map[string]int

// Metadata records how a search was executed.
type Metadata struct {
	SourcesQueried  []string
	KeywordHits     StrategyCounts
	VectorHits      StrategyCounts
	VectorDegraded  bool
	DegradedSources []string // sources where no strategy was usable
}

// Result is the caller-facing outcome of one search.
type Result struct {
	Query    string
	Items    []Item
	Metadata Metadata
}

// Options tune a single search call.
type Options struct {
	// Source forces exactly one source instead of trigger-keyword resolution.
	Source string
	// TopK overrides the result limit (0 = source defaults).
	TopK int
}
