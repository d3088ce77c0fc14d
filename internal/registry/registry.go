// Package registry holds the process-wide set of source configurations and
// decides which sources a free-text query is relevant to.
package registry

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
)

// snapshot is the immutable view swapped on reload.
type snapshot struct {
	order  []source.Config
	byName map[string]int
}

// Registry resolves queries to source configs. Read-only after load;
// Reload replaces the whole snapshot atomically.
type Registry struct {
	snap          atomic.Pointer[snapshot]
	fallbackToAll bool
}

// New creates a registry from validated source configs in declaration order.
func New(configs []source.Config, fallbackToAllSources bool) (*Registry, error) {
	snap, err := buildSnapshot(configs)
	if err != nil {
		return nil, err
	}

	r := &Registry{fallbackToAll: fallbackToAllSources}
	r.snap.Store(snap)
	return r, nil
}

// Reload atomically replaces the registered sources. In-flight resolutions
// keep using the snapshot they started with.
func (r *Registry) Reload(configs []source.Config) error {
	snap, err := buildSnapshot(configs)
	if err != nil {
		return err
	}
	r.snap.Store(snap)
	return nil
}

// Get returns the config for a named source.
func (r *Registry) Get(name string) (source.Config, error) {
	snap := r.snap.Load()
	i, ok := snap.byName[name]
	if !ok {
		return source.Config{}, fmt.Errorf("%w: %q", domain.ErrUnknownSource, name)
	}
	return snap.order[i], nil
}

// All returns every registered source in declaration order.
func (r *Registry) All() []source.Config {
	return r.snap.Load().order
}

// ResolveQuery returns the sources whose trigger keywords appear in the
// query (case-insensitive substring, no tokenization), in declaration
// order. With no match it returns all sources when fallback is enabled,
// otherwise an empty set.
func (r *Registry) ResolveQuery(query string) []source.Config {
	snap := r.snap.Load()
	lowered := strings.ToLower(query)

	var matched []source.Config
	for _, cfg := range snap.order {
		for _, kw := range cfg.TriggerKeywords() {
			if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
				matched = append(matched, cfg)
				break
			}
		}
	}

	if len(matched) == 0 && r.fallbackToAll {
		return snap.order
	}
	return matched
}

func buildSnapshot(configs []source.Config) (*snapshot, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", domain.ErrInvalidSourceConfig)
	}

	byName := make(map[string]int, len(configs))
	for i, cfg := range configs {
		if _, dup := byName[cfg.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate source %q", domain.ErrInvalidSourceConfig, cfg.Name())
		}
		byName[cfg.Name()] = i
	}

	order := make([]source.Config, len(configs))
	copy(order, configs)
	return &snapshot{order: order, byName: byName}, nil
}
