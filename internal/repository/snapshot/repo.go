// Package snapshot persists vector collection contents in the key-value
// store so a restarted process serves the last built index immediately.
// Best effort only: a rebuild from the record store remains authoritative.
package snapshot

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/db"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
)

// store is the consumer interface for snapshot persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Repo saves and loads collection snapshots.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a snapshot repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

type snapshotDoc struct {
	Dim     int        `json:"dim"`
	Entries []entryDoc `json:"entries"`
}

type entryDoc struct {
	ID      string            `json:"id"`
	Vector  string            `json:"vector"` // base64 of little-endian float32s
	Payload map[string]string `json:"payload,omitempty"`
}

// Save overwrites the stored snapshot for a collection.
func (r *Repo) Save(ctx context.Context, collectionName string, entries []domain.IndexedVector) error {
	doc := snapshotDoc{Entries: make([]entryDoc, 0, len(entries))}
	for _, e := range entries {
		if doc.Dim == 0 {
			doc.Dim = len(e.Vector)
		}
		doc.Entries = append(doc.Entries, entryDoc{
			ID:      e.RecordID,
			Vector:  base64.StdEncoding.EncodeToString(vectorToBytes(e.Vector)),
			Payload: e.Payload,
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", collectionName, err)
	}
	if err := r.store.Set(ctx, r.key(collectionName), data); err != nil {
		return fmt.Errorf("save snapshot %s: %w", collectionName, err)
	}
	return nil
}

// Load returns the stored snapshot for a collection, or (nil, false, nil)
// when none exists.
func (r *Repo) Load(ctx context.Context, collectionName string) ([]domain.IndexedVector, bool, error) {
	data, err := r.store.Get(ctx, r.key(collectionName))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load snapshot %s: %w", collectionName, err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("parse snapshot %s: %w", collectionName, err)
	}

	entries := make([]domain.IndexedVector, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		raw, err := base64.StdEncoding.DecodeString(e.Vector)
		if err != nil {
			return nil, false, fmt.Errorf("decode snapshot vector %s/%s: %w", collectionName, e.ID, err)
		}
		vec, err := bytesToVector(raw)
		if err != nil {
			return nil, false, fmt.Errorf("parse snapshot vector %s/%s: %w", collectionName, e.ID, err)
		}
		entries = append(entries, domain.IndexedVector{
			RecordID: e.ID,
			Vector:   vec,
			Payload:  e.Payload,
		})
	}
	return entries, true, nil
}

// Delete removes the stored snapshot for a collection.
func (r *Repo) Delete(ctx context.Context, collectionName string) error {
	if err := r.store.Del(ctx, r.key(collectionName)); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", collectionName, err)
	}
	return nil
}

func (r *Repo) key(collectionName string) string {
	return r.keyPrefix + "index:" + collectionName
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
