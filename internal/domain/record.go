package domain

import "context"

// Record is one raw row from the store: flat field name to value.
// Field semantics (id, keyword fields, display mapping) come from the
// owning source configuration, not from the record itself.
type Record map[string]string

// Field returns a field value, empty when the field is absent.
func (r Record) Field(name string) string { return r[name] }

// RecordStore lists the current rows of a source.
type RecordStore interface {
	ListRecords(ctx context.Context, sourceName string) ([]Record, error)
}
