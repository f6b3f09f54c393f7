// Package nack implements the per-SSRC received-sequence window used
// for NACK generation and the per-kind retransmit buffer consulted on
// inbound NACK.
//
// Grounded on the pion/interceptor ReceiveLog/SendBuffer bitset-ring
// design: a bounded ring indexed by seq modulo its capacity, rather
// than a doubly linked list, keeps lookups O(1) and the memory
// footprint fixed regardless of loss patterns.
package nack

import (
	"sync"
	"time"
)

// WindowSize is the received-sequence window capacity per SSRC.
const WindowSize = 160

// State is the lifecycle of one tracked sequence number.
type State int

const (
	stateEmpty State = iota
	StateMissing
	StateNacked
	StateGiveup
	StateRecved
)

type slot struct {
	seq     uint16
	valid   bool
	state   State
	arrival time.Time
}

// Window tracks received sequence numbers for one SSRC in a fixed-size
// ring, so it never exceeds WindowSize entries and never holds
// duplicates.
type Window struct {
	mu      sync.Mutex
	slots   [WindowSize]slot
	highest uint16
	started bool
}

// NewWindow returns an empty window.
func NewWindow() *Window {
	return &Window{}
}

// Add records an inbound packet's sequence number as received. Gaps
// opened between the previous highest sequence and seq are recorded as
// MISSING so PendingNACKs can find them later.
func (w *Window) Add(seq uint16, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		w.started = true
		w.highest = seq
		w.set(seq, StateRecved, now)
		return
	}

	diff := seq - w.highest
	switch {
	case diff == 0:
		// Duplicate of the current head; nothing to do.
		return
	case diff < 1<<15:
		// seq is ahead of highest (accounting for wrap): everything in
		// between is now a gap.
		for s := w.highest + 1; s != seq; s++ {
			w.set(s, StateMissing, now)
		}
		w.set(seq, StateRecved, now)
		w.highest = seq
	default:
		// seq is behind highest: an out-of-order or previously-missing
		// packet arrived late.
		w.set(seq, StateRecved, now)
	}
}

// Contains reports whether seq currently has a tracked entry (of any
// state) in the window.
func (w *Window) Contains(seq uint16) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := &w.slots[seq%WindowSize]
	return s.valid && s.seq == seq
}

// Len returns the number of tracked entries, always <= WindowSize.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for i := range w.slots {
		if w.slots[i].valid {
			n++
		}
	}
	return n
}

// PendingNACKs scans the window for MISSING entries older than
// holdTime, marks them NACKED, and returns their sequence
// numbers (ring-slot order, not necessarily numeric order across a
// wrap). It also ages NACKED entries past giveupAge into GIVEUP, which
// PendingNACKs never reports again.
func (w *Window) PendingNACKs(now time.Time, holdTime, giveupAge time.Duration) []uint16 {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []uint16
	for i := range w.slots {
		s := &w.slots[i]
		if !s.valid {
			continue
		}
		age := now.Sub(s.arrival)
		switch s.state {
		case StateMissing:
			if age >= holdTime {
				s.state = StateNacked
				s.arrival = now
				out = append(out, s.seq)
			}
		case StateNacked:
			if age >= giveupAge {
				s.state = StateGiveup
			}
		}
	}
	return out
}

func (w *Window) set(seq uint16, state State, now time.Time) {
	s := &w.slots[seq%WindowSize]
	s.seq = seq
	s.valid = true
	s.state = state
	s.arrival = now
}
