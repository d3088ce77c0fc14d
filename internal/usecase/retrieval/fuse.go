package retrieval

import (
	"sort"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/candidate"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/index"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/keyword"
)

// fuse joins the two strategies' candidates for one source into a single
// ranked list. The fused score is
//
//	vectorSimilarity + keywordBoost x keywordMatchWeight
//
// so with the default boost of 2.0 any keyword hit outranks any
// vector-only hit (cosine similarity never exceeds 1). Records retrieved
// by neither strategy are absent, not zero-scored. Ordering is score
// descending, record id ascending, fully deterministic for a fixed
// snapshot.
func fuse(cfg source.Config, kwHits []keyword.Hit, vecHits []index.Hit, boost float64) []Item {
	// Vector candidates first: a record matched by both strategies keeps
	// the fresher scan-time payload from its keyword candidate.
	cands := make([]candidate.Candidate, 0, len(kwHits)+len(vecHits))
	for _, h := range vecHits {
		cands = append(cands, candidate.New(h.RecordID, h.Similarity, cfg.Name(), candidate.Vector, h.Payload))
	}
	for _, h := range kwHits {
		cands = append(cands, candidate.New(
			cfg.RecordID(h.Record), h.Weight, cfg.Name(), candidate.Keyword, cfg.DisplayPayload(h.Record)))
	}

	type fused struct {
		score      float64
		sourceName string
		strategies []candidate.Strategy
		display    map[string]string
	}

	merged := make(map[string]*fused, len(cands))
	for i := range cands {
		c := &cands[i]
		f, ok := merged[c.RecordID()]
		if !ok {
			f = &fused{sourceName: c.Source()}
			merged[c.RecordID()] = f
		}
		f.strategies = append(f.strategies, c.Strategy())
		if c.Strategy() == candidate.Keyword {
			f.score += boost * c.RawScore()
			f.display = c.Payload()
		} else {
			f.score += c.RawScore()
			if f.display == nil {
				f.display = c.Payload()
			}
		}
	}

	items := make([]Item, 0, len(merged))
	for id, f := range merged {
		items = append(items, Item{
			RecordID:   id,
			Score:      f.score,
			Source:     f.sourceName,
			Strategies: f.strategies,
			Display:    f.display,
			Title:      displayTitle(f.display),
			URL:        f.display[source.KeyURL],
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].RecordID < items[j].RecordID
	})

	return items
}

// displayTitle picks the title with fallback: title, then title_fallback,
// then a fixed placeholder.
func displayTitle(display map[string]string) string {
	if t := display[source.KeyTitle]; t != "" {
		return t
	}
	if t := display[source.KeyTitleFallback]; t != "" {
		return t
	}
	return "untitled"
}

// mergeAcrossSources interleaves per-source ranked lists by score alone;
// no source gets positional priority. Ties break by source then record id
// for determinism.
func mergeAcrossSources(perSource [][]Item, topK int) []Item {
	var all []Item
	for _, items := range perSource {
		all = append(all, items...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		if all[i].Source != all[j].Source {
			return all[i].Source < all[j].Source
		}
		return all[i].RecordID < all[j].RecordID
	})

	if topK > 0 && len(all) > topK {
		all = all[:topK]
	}
	return all
}
