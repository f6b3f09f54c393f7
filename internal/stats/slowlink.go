package stats

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Direction distinguishes the two slow-link directions a component
// can report: packets we sent that the peer is NACKing heavily, or
// packets we're losing on the way in.
type Direction int

const (
	Uplink Direction = iota
	Downlink
)

func (d Direction) String() string {
	if d == Uplink {
		return "uplink"
	}
	return "downlink"
}

// SlowLinkConfig gates how aggressively a lossy link is reported.
type SlowLinkConfig struct {
	// NACKThreshold is the number of NACKed packets within Interval
	// that triggers a report.
	NACKThreshold int
	// Interval is both the accounting window and the minimum gap
	// between two reports for the same direction, enforced by a
	// rate.Limiter allowing one event per Interval.
	Interval time.Duration
}

// SlowLinkTracker accumulates NACK counts per direction and decides
// whether the link qualifies as slow, gating repeated reports for the
// same direction through a rate.Limiter so a sustained bad link
// doesn't flood the attached module with notifications, grounded on
// Janus's janus_ice_component in_stats/out_stats NACK counters and its
// once-per-second slow-link check.
type SlowLinkTracker struct {
	mu sync.Mutex

	cfg SlowLinkConfig

	windowStart map[Direction]time.Time
	nackCount   map[Direction]int
	limiter     map[Direction]*rate.Limiter
}

// NewSlowLinkTracker builds a tracker with the given configuration.
func NewSlowLinkTracker(cfg SlowLinkConfig) *SlowLinkTracker {
	limit := rate.Every(cfg.Interval)
	return &SlowLinkTracker{
		cfg:         cfg,
		windowStart: make(map[Direction]time.Time),
		nackCount:   make(map[Direction]int),
		limiter: map[Direction]*rate.Limiter{
			Uplink:   rate.NewLimiter(limit, 1),
			Downlink: rate.NewLimiter(limit, 1),
		},
	}
}

// RecordNACK registers a NACK event for dir at time now, and reports
// whether this call should trigger a slow-link notification.
func (s *SlowLinkTracker) RecordNACK(dir Direction, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, ok := s.windowStart[dir]
	if !ok || now.Sub(start) >= s.cfg.Interval {
		s.windowStart[dir] = now
		s.nackCount[dir] = 0
		start = now
	}
	s.nackCount[dir]++

	if s.nackCount[dir] < s.cfg.NACKThreshold {
		return false
	}
	if !s.limiter[dir].AllowN(now, 1) {
		return false
	}
	s.nackCount[dir] = 0
	return true
}
