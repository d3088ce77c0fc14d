// Package candidate holds the transient match produced during one retrieval call.
package candidate

// Strategy identifies which retrieval strategy produced a candidate.
type Strategy string

const (
	// Keyword marks a candidate found by literal keyword matching.
	Keyword Strategy = "keyword"
	// Vector marks a candidate found by vector similarity search.
	Vector Strategy = "vector"
)

// Candidate is a single match from one strategy, pre-fusion.
// Candidates from both strategies sharing (source, recordId) are joined
// into one fused score.
type Candidate struct {
	recordID string
	rawScore float64
	source   string
	strategy Strategy
	payload  map[string]string
}

// New creates a candidate.
func New(recordID string, rawScore float64, source string, strategy Strategy, payload map[string]string) Candidate {
	return Candidate{
		recordID: recordID,
		rawScore: rawScore,
		source:   source,
		strategy: strategy,
		payload:  payload,
	}
}

// RecordID returns the record identifier.
func (c *Candidate) RecordID() string { return c.recordID }

// RawScore returns the pre-fusion score: keyword match weight or vector similarity.
func (c *Candidate) RawScore() float64 { return c.rawScore }

// Source returns the source name the candidate came from.
func (c *Candidate) Source() string { return c.source }

// Strategy returns the producing strategy.
func (c *Candidate) Strategy() Strategy { return c.strategy }

// Payload returns the display payload captured at index or scan time.
func (c *Candidate) Payload() map[string]string { return c.payload }
