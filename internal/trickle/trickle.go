// Package trickle buffers remote ICE candidates that arrive before the
// handle they belong to has an agent ready to consume them.
package trickle

import (
	"sync"
	"time"
)

// Candidate is one buffered trickle message: either an SDP candidate
// line or the end-of-candidates marker for mLineIndex.
type Candidate struct {
	Mid         string
	MLineIndex  int
	Candidate   string // empty string marks end-of-candidates
	ReceivedAt  time.Time
}

// Buffer holds pending candidates for one handle until Drain is
// called, after which each candidate is delivered at most once.
type Buffer struct {
	mu      sync.Mutex
	pending []Candidate
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Add appends one candidate to the pending list.
func (b *Buffer) Add(c Candidate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, c)
}

// Drain returns and clears every candidate added since the last Drain.
func (b *Buffer) Drain() []Candidate {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.pending
	b.pending = nil
	return drained
}

// Len reports how many candidates are currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
