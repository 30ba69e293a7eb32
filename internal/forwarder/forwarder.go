// Package forwarder wires the tailer, batch buffer and dispatcher
// into the event pipeline.
package forwarder

import (
	"context"
	"sync"

	"github.com/eveflow/eveflow/internal/config"
	"github.com/eveflow/eveflow/internal/forwarder/buffer"
	"github.com/eveflow/eveflow/internal/forwarder/dispatcher"
	"github.com/eveflow/eveflow/internal/forwarder/stats"
	"github.com/eveflow/eveflow/internal/forwarder/tailer"
	"github.com/eveflow/eveflow/internal/logging"
	"github.com/eveflow/eveflow/internal/models"
)

// Pipeline owns the forwarder components and their goroutines.
type Pipeline struct {
	Tailer     *tailer.Tailer
	Buffer     *buffer.Buffer
	Dispatcher *dispatcher.Dispatcher
	Stats      *stats.DeliveryStats

	logger *logging.Logger
}

// NewPipeline builds the pipeline from configuration. The config must
// already be validated.
func NewPipeline(cfg *config.Forwarder, logger *logging.Logger) (*Pipeline, error) {
	creds, err := cfg.Auth.Credentials()
	if err != nil {
		return nil, err
	}

	st := stats.New()

	return &Pipeline{
		Tailer: tailer.New(tailer.Config{
			Path:     cfg.EveFilePath,
			Interval: cfg.ReadInterval,
		}, logger),
		Buffer: buffer.New(cfg.BatchSize, cfg.BatchInterval),
		Dispatcher: dispatcher.New(dispatcher.Config{
			TargetURL:   cfg.TargetURL,
			Credentials: creds,
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			Timeout:     cfg.Retry.Timeout,
		}, st, logger),
		Stats:  st,
		logger: logger,
	}, nil
}

// Run starts the pipeline goroutines and blocks until ctx is
// cancelled and they have drained.
func (p *Pipeline) Run(ctx context.Context) {
	events := make(chan models.Event, 256)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		p.Tailer.Run(ctx, events)
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				p.Buffer.Append(ev)
			}
		}
	}()
	go func() {
		defer wg.Done()
		p.Buffer.Run(ctx)
	}()

	// The dispatcher runs on the caller's goroutine so Run returns
	// only after in-flight delivery attempts resolve.
	p.Dispatcher.Run(ctx, p.Buffer.Batches())
	wg.Wait()
}
