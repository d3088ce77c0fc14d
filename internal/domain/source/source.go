// Package source defines the per-data-source retrieval configuration aggregate.
package source

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
)

// Canonical display keys recognized by the result mapper.
const (
	KeyID            = "id"
	KeyTitle         = "title"
	KeyTitleFallback = "title_fallback"
	KeyDescription   = "description"
	KeyURL           = "url"
)

// Config describes one retrievable data source: which queries trigger it,
// which record fields are scanned, embedded, and surfaced.
type Config struct {
	name            string
	triggerKeywords []string
	keywordFields   []string
	indexFields     []string
	numericFields   map[string]string // field -> text template with {value}
	displayFields   map[string]string // canonical key -> source field
	collectionName  string
	defaultLimit    int
}

// New creates a validated source config. Returns domain.ErrInvalidSourceConfig
// when a required field is missing, so the registry never starts half-valid.
func New(
	name string,
	triggerKeywords, keywordFields, indexFields []string,
	numericFields, displayFields map[string]string,
	collectionName string,
	defaultLimit int,
) (Config, error) {
	if name == "" {
		return Config{}, fmt.Errorf("%w: name is required", domain.ErrInvalidSourceConfig)
	}
	if len(keywordFields) == 0 {
		return Config{}, fmt.Errorf("%w: source %q has no keyword_fields", domain.ErrInvalidSourceConfig, name)
	}
	if len(indexFields) == 0 {
		return Config{}, fmt.Errorf("%w: source %q has no index_fields", domain.ErrInvalidSourceConfig, name)
	}
	if displayFields[KeyID] == "" {
		return Config{}, fmt.Errorf("%w: source %q display_fields must map %q", domain.ErrInvalidSourceConfig, name, KeyID)
	}
	if collectionName == "" {
		collectionName = name + "_vector"
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}

	return Config{
		name:            name,
		triggerKeywords: triggerKeywords,
		keywordFields:   keywordFields,
		indexFields:     indexFields,
		numericFields:   numericFields,
		displayFields:   displayFields,
		collectionName:  collectionName,
		defaultLimit:    defaultLimit,
	}, nil
}

// Name returns the unique source name.
func (c *Config) Name() string { return c.name }

// TriggerKeywords returns the terms that make a query relevant to this source.
func (c *Config) TriggerKeywords() []string { return c.triggerKeywords }

// KeywordFields returns the fields scanned for literal substring matches.
func (c *Config) KeywordFields() []string { return c.keywordFields }

// IndexFields returns the fields concatenated into the embedded text blob.
func (c *Config) IndexFields() []string { return c.indexFields }

// NumericFields returns field -> template pairs folded into the embedded blob.
func (c *Config) NumericFields() map[string]string { return c.numericFields }

// DisplayFields returns the canonical key -> source field mapping.
func (c *Config) DisplayFields() map[string]string { return c.displayFields }

// IDField returns the source field holding the unique record identifier.
func (c *Config) IDField() string { return c.displayFields[KeyID] }

// CollectionName returns the backing vector collection identifier.
func (c *Config) CollectionName() string { return c.collectionName }

// DefaultLimit returns the default result count for this source.
func (c *Config) DefaultLimit() int { return c.defaultLimit }

// RecordID extracts the record identifier from a record snapshot.
func (c *Config) RecordID(rec domain.Record) string {
	return rec.Field(c.IDField())
}

// DisplayPayload maps a record through the display fields, producing
// canonical-keyed values. Empty fields are omitted.
func (c *Config) DisplayPayload(rec domain.Record) map[string]string {
	display := make(map[string]string, len(c.displayFields))
	for key, field := range c.displayFields {
		if v := rec.Field(field); v != "" {
			display[key] = v
		}
	}
	return display
}

// IndexText concatenates the index fields of a record into the text blob
// that gets embedded. Numeric fields are rendered through their templates
// ("price{value}USD" -> "price12.5USD") in sorted field order so the blob
// is deterministic.
func (c *Config) IndexText(rec domain.Record) string {
	parts := make([]string, 0, len(c.indexFields)+len(c.numericFields))
	for _, field := range c.indexFields {
		if v := rec.Field(field); v != "" {
			parts = append(parts, v)
		}
	}

	numFields := make([]string, 0, len(c.numericFields))
	for field := range c.numericFields {
		numFields = append(numFields, field)
	}
	sort.Strings(numFields)
	for _, field := range numFields {
		if v := rec.Field(field); v != "" {
			parts = append(parts, strings.ReplaceAll(c.numericFields[field], "{value}", v))
		}
	}

	return strings.Join(parts, " ")
}
