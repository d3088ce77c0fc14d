package cognimark

import (
	"go.uber.org/zap"
)

// Option configures the Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	addrs     []string
	password  string
	keyPrefix string

	embedder Embedder

	sources []SourceSpec

	enableKeywordSearch  bool
	enableVectorSearch   bool
	keywordBoost         float64
	oversampleFactor     int
	fallbackToAllSources bool

	logger *zap.Logger
}

// SourceSpec declares one retrievable data source.
type SourceSpec struct {
	Name            string
	TriggerKeywords []string
	KeywordFields   []string
	IndexFields     []string
	NumericFields   map[string]string
	DisplayFields   map[string]string
	CollectionName  string
	DefaultLimit    int
}

// WithRedis configures the engine to connect to a Redis-compatible store.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *engineConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the key namespace for records, caches, and snapshots.
// Defaults to "cognimark:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *engineConfig) {
		c.keyPrefix = prefix
	})
}

// WithEmbedder sets the text embedding provider. Without one the engine
// serves keyword-only results.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *engineConfig) {
		c.embedder = e
	})
}

// WithSource registers a data source. At least one is required.
func WithSource(spec SourceSpec) Option {
	return optionFunc(func(c *engineConfig) {
		c.sources = append(c.sources, spec)
	})
}

// WithKeywordBoost sets the fusion weight applied to keyword hits.
// Defaults to 2.0.
func WithKeywordBoost(boost float64) Option {
	return optionFunc(func(c *engineConfig) {
		c.keywordBoost = boost
	})
}

// WithOversampleFactor sets how many extra vector candidates each source
// fetches before fusion. Defaults to 3.
func WithOversampleFactor(factor int) Option {
	return optionFunc(func(c *engineConfig) {
		c.oversampleFactor = factor
	})
}

// WithoutKeywordSearch disables the keyword strategy globally.
func WithoutKeywordSearch() Option {
	return optionFunc(func(c *engineConfig) {
		c.enableKeywordSearch = false
	})
}

// WithoutVectorSearch disables the vector strategy globally.
func WithoutVectorSearch() Option {
	return optionFunc(func(c *engineConfig) {
		c.enableVectorSearch = false
	})
}

// WithoutFallback stops unmatched queries from querying all sources;
// they return empty results instead.
func WithoutFallback() Option {
	return optionFunc(func(c *engineConfig) {
		c.fallbackToAllSources = false
	})
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = logger
	})
}
