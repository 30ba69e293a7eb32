// Package tailer reads new lines appended to the sensor log file,
// surviving rotation and truncation.
package tailer

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/eveflow/eveflow/internal/forwarder/metrics"
	"github.com/eveflow/eveflow/internal/logging"
	"github.com/eveflow/eveflow/internal/models"
)

// Config controls the tailer.
type Config struct {
	Path     string
	Interval time.Duration
}

// Status is a snapshot of the tailer's health, read by the /health
// endpoint.
type Status struct {
	FileReadable bool
	LastPoll     time.Time
	ParseErrors  uint64
}

// Tailer polls the target file and emits parsed events. The tail
// cursor (offset + file identity) is owned exclusively by the tailer.
type Tailer struct {
	cfg    Config
	logger *logging.Logger

	file    *os.File
	info    os.FileInfo
	offset  int64
	started bool

	mu     sync.Mutex
	status Status
}

// New creates a Tailer. No file access happens until Run.
func New(cfg Config, logger *logging.Logger) *Tailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Tailer{cfg: cfg, logger: logger}
}

// Run polls the file until ctx is cancelled, sending parsed events to
// out. Per-line and per-poll failures are counted, never fatal.
func (t *Tailer) Run(ctx context.Context, out chan<- models.Event) {
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()
	defer func() {
		if t.file != nil {
			t.file.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.poll(ctx, out)
		}
	}
}

// Status returns the current health snapshot.
func (t *Tailer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// poll runs one tail cycle: detect rotation/truncation, then consume
// every complete line appended since the cursor. A trailing partial
// line stays in the file for the next poll.
func (t *Tailer) poll(ctx context.Context, out chan<- models.Event) {
	st, err := os.Stat(t.cfg.Path)
	if err != nil {
		t.setReadable(false)
		if t.file != nil {
			// File went away; treat the next appearance as a rotation.
			t.file.Close()
			t.file = nil
			t.info = nil
			t.offset = 0
		}
		return
	}

	if t.file == nil {
		f, err := os.Open(t.cfg.Path)
		if err != nil {
			t.setReadable(false)
			return
		}
		t.file = f
		t.info, _ = f.Stat()
		if !t.started {
			// First open: start at the end so historical records are
			// not replayed on startup. Reopens after rotation start
			// from the beginning instead.
			t.offset = st.Size()
			t.started = true
		} else {
			t.offset = 0
		}
	} else if !os.SameFile(t.info, st) {
		// Rotation: reopen the new file from the beginning.
		t.file.Close()
		f, err := os.Open(t.cfg.Path)
		if err != nil {
			t.file = nil
			t.setReadable(false)
			return
		}
		t.file = f
		t.info, _ = f.Stat()
		t.offset = 0
	} else if st.Size() < t.offset {
		// Truncation: restart from the beginning of the same file.
		t.offset = 0
	}

	t.setReadable(true)

	if st.Size() > t.offset {
		t.consume(ctx, st.Size(), out)
	}
}

func (t *Tailer) consume(ctx context.Context, size int64, out chan<- models.Event) {
	chunk := make([]byte, size-t.offset)
	n, err := t.file.ReadAt(chunk, t.offset)
	if err != nil && err != io.EOF {
		t.logger.Warn("tail read failed", "path", t.cfg.Path, "error", err)
		return
	}
	chunk = chunk[:n]

	consumed := int64(0)
	for {
		idx := bytes.IndexByte(chunk, '\n')
		if idx < 0 {
			// Partial line at EOF: leave it for the next poll.
			break
		}
		line := chunk[:idx]
		chunk = chunk[idx+1:]
		consumed += int64(idx + 1)

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		ev, err := models.ParseEvent(line)
		if err != nil {
			t.recordParseError()
			t.logger.Debug("dropped unparsable line", "path", t.cfg.Path, "error", err)
			continue
		}

		select {
		case out <- ev:
			metrics.EventsTailed.Inc()
		case <-ctx.Done():
			return
		}
	}
	t.offset += consumed
}

func (t *Tailer) setReadable(ok bool) {
	t.mu.Lock()
	t.status.FileReadable = ok
	t.status.LastPoll = time.Now()
	t.mu.Unlock()
}

func (t *Tailer) recordParseError() {
	t.mu.Lock()
	t.status.ParseErrors++
	t.mu.Unlock()
	metrics.ParseErrors.Inc()
}
