// Package buffer accumulates events and hands bounded batches to the
// dispatcher on size, interval, or on-demand flush triggers.
package buffer

import (
	"context"
	"sync"
	"time"

	"github.com/eveflow/eveflow/internal/forwarder/metrics"
	"github.com/eveflow/eveflow/internal/models"
)

// Buffer is safe for concurrent use. Append never blocks on delivery:
// the flush loop drains accumulated events into batches on its own
// goroutine. An event appears in exactly one batch and the buffer
// itself never drops events.
type Buffer struct {
	max      int
	interval time.Duration

	mu     sync.Mutex
	events []models.Event

	out  chan models.Batch
	kick chan struct{}
}

// New creates a Buffer that emits batches of at most max events and
// flushes every interval.
func New(max int, interval time.Duration) *Buffer {
	return &Buffer{
		max:      max,
		interval: interval,
		out:      make(chan models.Batch, 16),
		kick:     make(chan struct{}, 1),
	}
}

// Batches is the channel the dispatcher consumes.
func (b *Buffer) Batches() <-chan models.Batch {
	return b.out
}

// Append adds one event. When the buffered count reaches the batch
// size the flush loop is woken immediately.
func (b *Buffer) Append(ev models.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	full := len(b.events) >= b.max
	metrics.Buffered.Set(float64(len(b.events)))
	b.mu.Unlock()

	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// Buffered returns the current unflushed count.
func (b *Buffer) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Run drives the interval flush until ctx is cancelled, then performs
// a final drain so shutdown loses nothing that could still be handed
// over.
func (b *Buffer) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.drain(ctx)
			return
		case <-ticker.C:
			b.drain(ctx)
		case <-b.kick:
			b.drain(ctx)
		}
	}
}

// FlushNow flushes up to one batch worth of events synchronously and
// returns the flushed count. An empty buffer is a no-op returning 0.
func (b *Buffer) FlushNow() int {
	batch, ok := b.take()
	if !ok {
		return 0
	}
	b.out <- batch
	return batch.Len()
}

// drain emits batches until the buffer is empty or ctx is cancelled
// during the final handover.
func (b *Buffer) drain(ctx context.Context) {
	for {
		batch, ok := b.take()
		if !ok {
			return
		}
		select {
		case b.out <- batch:
			continue
		default:
		}
		select {
		case b.out <- batch:
		case <-ctx.Done():
			// Shutdown race: the dispatcher is gone, requeue so the
			// loss shows up in the buffered gauge rather than
			// vanishing.
			b.requeue(batch.Events)
			return
		}
	}
}

// take swaps out up to max of the oldest buffered events as a new
// batch. Returns false when the buffer is empty, so no empty batch is
// ever created.
func (b *Buffer) take() (models.Batch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == 0 {
		return models.Batch{}, false
	}

	n := len(b.events)
	if n > b.max {
		n = b.max
	}
	taken := make([]models.Event, n)
	copy(taken, b.events[:n])
	b.events = append(b.events[:0], b.events[n:]...)
	metrics.Buffered.Set(float64(len(b.events)))

	return models.NewBatch(taken), true
}

func (b *Buffer) requeue(events []models.Event) {
	b.mu.Lock()
	b.events = append(events, b.events...)
	metrics.Buffered.Set(float64(len(b.events)))
	b.mu.Unlock()
}
