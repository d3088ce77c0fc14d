package cognimark

import (
	"errors"
	"strings"
	"testing"
)

func productSpec() SourceSpec {
	return SourceSpec{
		Name:            "products",
		TriggerKeywords: []string{"商品", "product"},
		KeywordFields:   []string{"title"},
		IndexFields:     []string{"title"},
		DisplayFields:   map[string]string{"id": "product_id", "title": "title"},
	}
}

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New(WithSource(productSpec()))
	if err == nil || !strings.Contains(err.Error(), "WithRedis") {
		t.Fatalf("expected address error, got %v", err)
	}
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := New(WithRedis("localhost:6379", ""))
	if err == nil || !strings.Contains(err.Error(), "WithSource") {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestOptions_Apply(t *testing.T) {
	cfg := &engineConfig{
		keyPrefix:            "cognimark:",
		enableKeywordSearch:  true,
		enableVectorSearch:   true,
		keywordBoost:         2.0,
		oversampleFactor:     3,
		fallbackToAllSources: true,
	}

	opts := []Option{
		WithRedis("db:6379", "secret"),
		WithKeyPrefix("shop:"),
		WithSource(productSpec()),
		WithKeywordBoost(1.5),
		WithOversampleFactor(5),
		WithoutVectorSearch(),
		WithoutFallback(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) != 1 || cfg.addrs[0] != "db:6379" || cfg.password != "secret" {
		t.Errorf("redis opts = %v / %q", cfg.addrs, cfg.password)
	}
	if cfg.keyPrefix != "shop:" {
		t.Errorf("keyPrefix = %q", cfg.keyPrefix)
	}
	if len(cfg.sources) != 1 || cfg.sources[0].Name != "products" {
		t.Errorf("sources = %+v", cfg.sources)
	}
	if cfg.keywordBoost != 1.5 || cfg.oversampleFactor != 5 {
		t.Errorf("fusion opts = %v / %v", cfg.keywordBoost, cfg.oversampleFactor)
	}
	if cfg.enableVectorSearch || cfg.fallbackToAllSources {
		t.Error("WithoutVectorSearch / WithoutFallback not applied")
	}
	if !cfg.enableKeywordSearch {
		t.Error("keyword search should stay enabled")
	}
}

func TestWireEngine_InvalidSource(t *testing.T) {
	cfg := &engineConfig{
		sources: []SourceSpec{{Name: "broken"}}, // no fields mapped
	}

	_, err := wireEngine(nil, cfg)
	if !errors.Is(err, ErrInvalidSourceConfig) {
		t.Fatalf("expected ErrInvalidSourceConfig, got %v", err)
	}
}
