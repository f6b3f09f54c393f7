package nack

import (
	"sync"
	"time"
)

// Entry is one retained outbound packet: its payload plus the
// monotonic timestamps needed to age it out and debounce resends.
type Entry struct {
	Data             []byte
	CreatedAt        time.Time
	LastRetransmitAt time.Time
}

// RetransmitBuffer is a fixed-capacity, seq-indexed ring buffer of
// recently sent RTP packets for one SSRC, consulted when an inbound
// NACK names a sequence number. Indexing by seq%capacity gives O(1)
// lookup and FIFO eviction for free as sequence numbers advance,
// avoiding a separate FIFO-plus-hashmap pair.
type RetransmitBuffer struct {
	mu       sync.Mutex
	capacity int
	slots    []Entry
	seqs     []uint16
	valid    []bool
}

// NewRetransmitBuffer builds a buffer bounded at capacity entries.
func NewRetransmitBuffer(capacity int) *RetransmitBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RetransmitBuffer{
		capacity: capacity,
		slots:    make([]Entry, capacity),
		seqs:     make([]uint16, capacity),
		valid:    make([]bool, capacity),
	}
}

// Put records a sent packet's payload under seq, evicting whatever
// entry currently occupies that ring slot.
func (b *RetransmitBuffer) Put(seq uint16, data []byte, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := int(seq) % b.capacity
	cp := make([]byte, len(data))
	copy(cp, data)
	b.slots[i] = Entry{Data: cp, CreatedAt: now}
	b.seqs[i] = seq
	b.valid[i] = true
}

// Get returns the retained entry for seq, if the ring slot is still
// occupied by that exact sequence number (not overwritten by a later
// packet that hashed to the same slot).
func (b *RetransmitBuffer) Get(seq uint16) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := int(seq) % b.capacity
	if !b.valid[i] || b.seqs[i] != seq {
		return Entry{}, false
	}
	return b.slots[i], true
}

// ShouldResend reports whether seq is present and has not been
// retransmitted within minInterval, and if so atomically marks it as
// just retransmitted.
func (b *RetransmitBuffer) ShouldResend(seq uint16, now time.Time, minInterval time.Duration) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := int(seq) % b.capacity
	if !b.valid[i] || b.seqs[i] != seq {
		return Entry{}, false
	}
	e := &b.slots[i]
	if !e.LastRetransmitAt.IsZero() && now.Sub(e.LastRetransmitAt) < minInterval {
		return Entry{}, false
	}
	e.LastRetransmitAt = now
	return *e, true
}

// Len reports how many slots currently hold a valid entry, always
// <= capacity.
func (b *RetransmitBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.valid {
		if v {
			n++
		}
	}
	return n
}
