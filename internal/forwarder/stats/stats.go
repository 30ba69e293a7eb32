// Package stats owns the forwarder's cumulative delivery counters.
package stats

import (
	"sync"
	"time"
)

// Snapshot is the read-only view served by /stats.
type Snapshot struct {
	TotalForwarded  uint64     `json:"total_forwarded"`
	TotalFailed     uint64     `json:"total_failed"`
	Buffered        int        `json:"buffered"`
	ParseErrors     uint64     `json:"parse_errors"`
	LastError       string     `json:"last_error,omitempty"`
	LastForwardedAt *time.Time `json:"last_forwarded_at,omitempty"`
}

// DeliveryStats is mutated by the dispatcher and tailer, read by the
// stats surface. All access goes through synchronized methods.
type DeliveryStats struct {
	mu              sync.Mutex
	totalForwarded  uint64
	totalFailed     uint64
	lastError       string
	lastForwardedAt time.Time
}

// New creates an empty DeliveryStats.
func New() *DeliveryStats {
	return &DeliveryStats{}
}

// RecordForwarded adds n delivered events.
func (s *DeliveryStats) RecordForwarded(n int) {
	s.mu.Lock()
	s.totalForwarded += uint64(n)
	s.lastForwardedAt = time.Now()
	s.mu.Unlock()
}

// RecordFailed adds n events dropped after exhausted retries and
// records the final error. Loss is never silent: the counter and
// last_error change together.
func (s *DeliveryStats) RecordFailed(n int, err error) {
	s.mu.Lock()
	s.totalFailed += uint64(n)
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()
}

// RecordError notes a non-fatal pipeline error without counting loss.
func (s *DeliveryStats) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

// Snapshot returns the current counters plus the caller-supplied
// buffered count.
func (s *DeliveryStats) Snapshot(buffered int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		TotalForwarded: s.totalForwarded,
		TotalFailed:    s.totalFailed,
		Buffered:       buffered,
		LastError:      s.lastError,
	}
	if !s.lastForwardedAt.IsZero() {
		at := s.lastForwardedAt
		snap.LastForwardedAt = &at
	}
	return snap
}
