// Package keyword implements the literal-match retrieval strategy: a
// stateless substring scan over a source's designated fields.
package keyword

import (
	"regexp"
	"strings"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
)

// Match weights. An exact whole-query hit outranks a single-token hit.
const (
	exactWeight = 1.0
	tokenWeight = 0.8
)

// tokenFallbackThreshold: when exact matching finds fewer hits than this,
// the scan falls back to per-token matching.
const tokenFallbackThreshold = 10

// Hit is one matched record with its match weight.
type Hit struct {
	Record domain.Record
	Weight float64
}

// Matcher scans record snapshots for literal query occurrences.
// Stateless and safe for concurrent use.
type Matcher struct{}

// New creates a matcher.
func New() *Matcher {
	return &Matcher{}
}

// Match returns records whose listed fields contain the lowercased query,
// in input iteration order. When exact hits are sparse it additionally
// matches individual query tokens at a lower weight. Each record appears
// at most once, keeping its highest weight.
func (m *Matcher) Match(records []domain.Record, fields []string, idField, query string) []Hit {
	lowered := strings.ToLower(strings.TrimSpace(query))
	if lowered == "" {
		return nil
	}

	seen := make(map[string]bool, len(records))
	var hits []Hit

	for _, rec := range records {
		if fieldsContain(rec, fields, lowered) {
			id := rec.Field(idField)
			if !seen[id] {
				seen[id] = true
				hits = append(hits, Hit{Record: rec, Weight: exactWeight})
			}
		}
	}

	if len(hits) >= tokenFallbackThreshold {
		return hits
	}

	tokens := Tokenize(lowered)
	if len(tokens) == 0 {
		return hits
	}

	for _, rec := range records {
		id := rec.Field(idField)
		if seen[id] {
			continue
		}
		for _, tok := range tokens {
			if fieldsContain(rec, fields, tok) {
				seen[id] = true
				hits = append(hits, Hit{Record: rec, Weight: tokenWeight})
				break
			}
		}
	}

	return hits
}

func fieldsContain(rec domain.Record, fields []string, needle string) bool {
	for _, f := range fields {
		if v := rec.Field(f); v != "" && strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

var (
	separatorRegex = regexp.MustCompile(`[\s、，,]+`)
	tokenRegex     = regexp.MustCompile(`[\p{Han}]+|[a-zA-Z0-9]+`)
)

// Tokenize splits a query into CJK runs and latin/digit runs.
// Tokens shorter than two runes are dropped as noise.
func Tokenize(query string) []string {
	var tokens []string
	for _, part := range separatorRegex.Split(query, -1) {
		for _, tok := range tokenRegex.FindAllString(part, -1) {
			if len([]rune(tok)) < 2 {
				continue
			}
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
