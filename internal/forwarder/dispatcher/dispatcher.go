// Package dispatcher delivers batches to the collector over HTTP with
// bounded retry, one batch at a time to preserve ordering.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eveflow/eveflow/internal/auth"
	"github.com/eveflow/eveflow/internal/forwarder/metrics"
	"github.com/eveflow/eveflow/internal/forwarder/stats"
	"github.com/eveflow/eveflow/internal/logging"
	"github.com/eveflow/eveflow/internal/models"
)

// Config controls delivery and the retry budget.
type Config struct {
	TargetURL   string
	Credentials auth.Credentials
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
}

// Dispatcher posts batches as JSON arrays to the configured target.
type Dispatcher struct {
	cfg    Config
	client *http.Client
	stats  *stats.DeliveryStats
	logger *logging.Logger
}

// New creates a Dispatcher recording outcomes into st.
func New(cfg Config, st *stats.DeliveryStats, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		stats:  st,
		logger: logger,
	}
}

// Run consumes batches sequentially until ctx is cancelled. Relative
// order of forwarded data is preserved because no two batches are ever
// in flight at once.
func (d *Dispatcher) Run(ctx context.Context, in <-chan models.Batch) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-in:
			d.Dispatch(ctx, batch)
		}
	}
}

// Dispatch attempts delivery of one batch within the retry budget.
// On success total_forwarded grows by the batch size exactly once; on
// final failure the batch is dropped and total_failed/last_error
// record the loss.
func (d *Dispatcher) Dispatch(ctx context.Context, batch models.Batch) {
	payload, err := json.Marshal(batch.Events)
	if err != nil {
		// Raw events are validated JSON, so this is unreachable in
		// practice; still surfaced rather than swallowed.
		d.fail(batch, fmt.Errorf("serialize batch: %w", err))
		return
	}

	delay := d.cfg.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		err := d.post(ctx, payload)
		metrics.SendDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			d.stats.RecordForwarded(batch.Len())
			metrics.EventsForwarded.Add(float64(batch.Len()))
			metrics.BatchesSent.WithLabelValues("success").Inc()
			d.logger.Debug("batch delivered",
				"batch_id", batch.ID,
				"events", batch.Len(),
				"attempt", attempt,
			)
			return
		}
		lastErr = err

		if !isTransient(err) {
			// Client-side rejection: retrying cannot help.
			break
		}

		d.logger.Warn("batch delivery failed",
			"batch_id", batch.ID,
			"attempt", attempt,
			"max_attempts", d.cfg.MaxAttempts,
			"retry_in", delay,
			"error", err,
		)

		if attempt == d.cfg.MaxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			d.fail(batch, lastErr)
			return
		}
		delay *= 2
		if delay > d.cfg.MaxDelay {
			delay = d.cfg.MaxDelay
		}
	}

	d.fail(batch, lastErr)
}

func (d *Dispatcher) fail(batch models.Batch, err error) {
	d.stats.RecordFailed(batch.Len(), err)
	metrics.EventsFailed.Add(float64(batch.Len()))
	metrics.BatchesSent.WithLabelValues("failure").Inc()
	d.logger.Error("batch dropped",
		"batch_id", batch.ID,
		"events", batch.Len(),
		"error", err,
	)
}

// post performs a single delivery attempt.
func (d *Dispatcher) post(ctx context.Context, payload []byte) error {
	reqCtx := ctx
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, d.cfg.TargetURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	d.cfg.Credentials.Apply(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return &transientError{fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("collector response status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &transientError{err}
	}
	return err
}

// transientError marks failures worth retrying: connection errors,
// timeouts, 5xx and 429 responses.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
