package domain

// IndexedVector is one indexed (source, record) pair: the embedded vector
// plus the payload needed to render display fields without a store lookup.
type IndexedVector struct {
	RecordID string
	Vector   []float32
	Payload  map[string]string
}
