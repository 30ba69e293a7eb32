// Package aggregator maintains the dashboard's cumulative counters
// over received events.
package aggregator

import (
	"sort"
	"sync"

	"github.com/eveflow/eveflow/internal/models"
)

// Entry is one key/count pair in a top-N listing.
type Entry struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}

// RecentEvent is the display view of a recently received event.
type RecentEvent struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	SourceIP  string `json:"src_ip"`
	DestIP    string `json:"dest_ip"`
	Info      string `json:"info,omitempty"`
}

// Snapshot is a consistent read-only view of the aggregation window.
type Snapshot struct {
	Total      uint64        `json:"total_received"`
	EventTypes []Entry       `json:"event_type_counts"`
	TopSrcIPs  []Entry       `json:"top_src_ips"`
	TopDestIPs []Entry       `json:"top_dest_ips"`
	TopAlerts  []Entry       `json:"top_alerts"`
	Recent     []RecentEvent `json:"recent,omitempty"`
}

// counter counts keys and remembers first-seen order for
// deterministic tie breaking.
type counter struct {
	counts map[string]uint64
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]uint64)}
}

func (c *counter) inc(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// top returns the n highest counts, descending, ties broken by
// first-seen key order. n <= 0 returns all keys.
func (c *counter) top(n int) []Entry {
	entries := make([]Entry, 0, len(c.order))
	for _, key := range c.order {
		entries = append(entries, Entry{Key: key, Count: c.counts[key]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Aggregator applies batches of events to the counters. Counts only
// grow; the window resets only with the process.
type Aggregator struct {
	mu         sync.Mutex
	total      uint64
	srcIPs     *counter
	destIPs    *counter
	signatures *counter
	eventTypes *counter

	// recent is a ring of the latest events; next is the insertion
	// index once the ring is full.
	recent    []RecentEvent
	next      int
	maxRecent int
}

// New creates an Aggregator keeping at most maxRecent recent events.
func New(maxRecent int) *Aggregator {
	return &Aggregator{
		srcIPs:     newCounter(),
		destIPs:    newCounter(),
		signatures: newCounter(),
		eventTypes: newCounter(),
		maxRecent:  maxRecent,
	}
}

// Add applies all events of one accepted batch atomically and returns
// the accepted count. Concurrent callers serialize; no later batch
// interleaves with this one.
func (a *Aggregator) Add(events []models.Event) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, ev := range events {
		f := ev.Fields()

		a.total++
		a.eventTypes.inc(f.EventType)
		a.srcIPs.inc(f.SourceIP)
		a.destIPs.inc(f.DestIP)
		if ev.HasAlert() {
			sig := f.Signature
			if sig == "" {
				sig = models.UnknownKey
			}
			a.signatures.inc(sig)
		}

		a.pushRecent(RecentEvent{
			Timestamp: f.Timestamp,
			EventType: f.EventType,
			SourceIP:  f.SourceIP,
			DestIP:    f.DestIP,
			Info:      f.Signature,
		})
	}
	return len(events)
}

// pushRecent records an event in the bounded ring.
func (a *Aggregator) pushRecent(ev RecentEvent) {
	if a.maxRecent <= 0 {
		return
	}
	if len(a.recent) < a.maxRecent {
		a.recent = append(a.recent, ev)
		return
	}
	a.recent[a.next] = ev
	a.next = (a.next + 1) % a.maxRecent
}

// Snapshot returns the current counters with top-N listings. The
// event-type listing is complete, matching the summary panel.
func (a *Aggregator) Snapshot(n int) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Unroll the ring newest-first.
	recent := make([]RecentEvent, 0, len(a.recent))
	for i := 1; i <= len(a.recent); i++ {
		idx := (a.next - i + len(a.recent)) % len(a.recent)
		recent = append(recent, a.recent[idx])
	}

	return Snapshot{
		Total:      a.total,
		EventTypes: a.eventTypes.top(0),
		TopSrcIPs:  a.srcIPs.top(n),
		TopDestIPs: a.destIPs.top(n),
		TopAlerts:  a.signatures.top(n),
		Recent:     recent,
	}
}

// Total returns the cumulative event count.
func (a *Aggregator) Total() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}
