// Package index provides in-memory vector collections with brute-force
// cosine search and whole-collection atomic replacement.
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
)

// Hit is a single nearest-neighbor result.
type Hit struct {
	RecordID   string
	Similarity float64 // cosine mapped into [0, 1]
	Payload    map[string]string
}

// collection is an immutable vector set. ReplaceAll builds a fresh one and
// swaps the handle, so readers never observe a half-replaced collection.
type collection struct {
	dim     int
	entries []domain.IndexedVector
	builtAt time.Time
}

// Index keeps one collection per source.
// Unlimited concurrent readers; the builder is the only writer.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New creates an empty index.
func New() *Index {
	return &Index{collections: make(map[string]*collection)}
}

// ReplaceAll replaces the entire contents of a collection atomically.
// All entries must share one vector dimension; an empty entry list yields
// an empty (but present) collection.
func (idx *Index) ReplaceAll(collectionName string, entries []domain.IndexedVector) error {
	col := &collection{builtAt: time.Now()}
	if len(entries) > 0 {
		col.dim = len(entries[0].Vector)
		for _, e := range entries {
			if len(e.Vector) != col.dim {
				return fmt.Errorf("%w: record %s has dim %d, collection has %d",
					domain.ErrVectorDimMismatch, e.RecordID, len(e.Vector), col.dim)
			}
		}
		col.entries = make([]domain.IndexedVector, len(entries))
		copy(col.entries, entries)
	}

	idx.mu.Lock()
	idx.collections[collectionName] = col
	idx.mu.Unlock()
	return nil
}

// Query returns up to k nearest entries by cosine similarity, ties broken
// by ascending record id. A missing or empty collection returns an empty
// list, never an error.
func (idx *Index) Query(collectionName string, vector []float32, k int) ([]Hit, error) {
	idx.mu.RLock()
	col := idx.collections[collectionName]
	idx.mu.RUnlock()

	if col == nil || len(col.entries) == 0 {
		return nil, nil
	}
	if len(vector) != col.dim {
		return nil, fmt.Errorf("%w: query dim %d, collection dim %d",
			domain.ErrVectorDimMismatch, len(vector), col.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(col.entries))
	for _, e := range col.entries {
		hits = append(hits, Hit{
			RecordID:   e.RecordID,
			Similarity: cosineSimilarity(vector, e.Vector),
			Payload:    e.Payload,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].RecordID < hits[j].RecordID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of entries in a collection (0 when absent).
func (idx *Index) Count(collectionName string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if col := idx.collections[collectionName]; col != nil {
		return len(col.entries)
	}
	return 0
}

// BuiltAt returns when a collection was last replaced (zero when absent).
func (idx *Index) BuiltAt(collectionName string) time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if col := idx.collections[collectionName]; col != nil {
		return col.builtAt
	}
	return time.Time{}
}

// Entries returns a copy of a collection's contents, used for snapshot
// persistence. Nil when the collection is absent.
func (idx *Index) Entries(collectionName string) []domain.IndexedVector {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	col := idx.collections[collectionName]
	if col == nil {
		return nil
	}
	out := make([]domain.IndexedVector, len(col.entries))
	copy(out, col.entries)
	return out
}

// cosineSimilarity maps the cosine of the angle between a and b into [0, 1].
func cosineSimilarity(a []float32, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return (cos + 1) / 2
}
