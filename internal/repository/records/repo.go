// Package records implements domain.RecordStore over the key-value store.
// Rows live as hashes under {prefix}rows:{source}:{id}; the importer that
// writes them is outside the engine, which only reads snapshots.
package records

import (
	"context"
	"fmt"
	"sort"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
)

// store is the consumer interface for record reads (ISP).
type store interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Compile-time check: Repo implements domain.RecordStore.
var _ domain.RecordStore = (*Repo)(nil)

// Repo reads record rows for a source.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a record repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// ListRecords returns the full current row set for a source, ordered by
// key so repeated scans of an unchanged store are deterministic.
func (r *Repo) ListRecords(ctx context.Context, sourceName string) ([]domain.Record, error) {
	pattern := r.rowKey(sourceName, "*")

	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan rows %s: %w", sourceName, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read rows %s: %w", sourceName, err)
	}

	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue // expired between SCAN and HGETALL
		}
		records = append(records, domain.Record(row))
	}
	return records, nil
}

func (r *Repo) rowKey(sourceName, id string) string {
	return r.keyPrefix + "rows:" + sourceName + ":" + id
}
