package bitjit

import "github.com/hupe1980/bitjit/index"

// ResultsBuffer is a fixed-capacity list of matching documents. The caller
// owns it; the engine only appends.
type ResultsBuffer struct {
	ids []index.DocID
}

// NewResultsBuffer returns an empty buffer that holds up to capacity ids.
func NewResultsBuffer(capacity int) *ResultsBuffer {
	return &ResultsBuffer{ids: make([]index.DocID, 0, max(capacity, 0))}
}

// Append adds id, or reports a *BufferOverflowError when the buffer is full.
// A failed Append leaves the contents unchanged.
func (r *ResultsBuffer) Append(id index.DocID) error {
	if len(r.ids) == cap(r.ids) {
		return &BufferOverflowError{Capacity: cap(r.ids), Written: len(r.ids)}
	}
	r.ids = append(r.ids, id)
	return nil
}

// Results returns the appended ids. The slice aliases the buffer.
func (r *ResultsBuffer) Results() []index.DocID {
	return r.ids
}

// Len returns the number of ids appended.
func (r *ResultsBuffer) Len() int { return len(r.ids) }

// Cap returns the capacity.
func (r *ResultsBuffer) Cap() int { return cap(r.ids) }

// Full reports whether another Append would overflow.
func (r *ResultsBuffer) Full() bool { return len(r.ids) == cap(r.ids) }

// Reset empties the buffer, keeping its capacity.
func (r *ResultsBuffer) Reset() { r.ids = r.ids[:0] }
