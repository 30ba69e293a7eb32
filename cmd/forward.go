package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eveflow/eveflow/internal/config"
	"github.com/eveflow/eveflow/internal/forwarder"
	fwdhandlers "github.com/eveflow/eveflow/internal/forwarder/handlers"
	fwdserver "github.com/eveflow/eveflow/internal/forwarder/server"
	"github.com/eveflow/eveflow/internal/logging"
)

var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Tail the EVE log and forward batches to the collector",
	RunE:  runForward,
}

func init() {
	rootCmd.AddCommand(forwardCmd)
}

func runForward(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadForwarder(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("forwarder"))
	logging.SetDefault(logger)

	slog.Info("starting forwarder",
		slog.String("eve_file", cfg.EveFilePath),
		slog.String("target_url", cfg.TargetURL),
		slog.Int("batch_size", cfg.BatchSize),
		slog.Duration("batch_interval", cfg.BatchInterval),
		slog.Duration("read_interval", cfg.ReadInterval),
		slog.String("auth_type", cfg.Auth.Type),
		slog.String("listen", cfg.Server.Addr()),
	)

	pipeline, err := forwarder.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	handler := fwdhandlers.New(pipeline.Buffer, pipeline.Tailer, pipeline.Stats, cfg.Staleness)
	router := fwdserver.NewRouter(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("control API listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	pipelineDone := make(chan struct{})
	go func() {
		pipeline.Run(ctx)
		close(pipelineDone)
	}()

	select {
	case err := <-serverErr:
		// Unreachable bind address is fatal at startup.
		stop()
		<-pipelineDone
		return fmt.Errorf("control API server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	<-pipelineDone

	slog.Info("forwarder stopped")
	return nil
}
