package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eveflow/eveflow/internal/config"
	"github.com/eveflow/eveflow/internal/dashboard"
	"github.com/eveflow/eveflow/internal/dashboard/aggregator"
	dashhandlers "github.com/eveflow/eveflow/internal/dashboard/handlers"
	dashserver "github.com/eveflow/eveflow/internal/dashboard/server"
	"github.com/eveflow/eveflow/internal/dashboard/ui"
	"github.com/eveflow/eveflow/internal/logging"
)

var (
	dashNoUI      bool
	dashLocalFile string
	dashLogFile   string
)

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Receive event batches and show the live dashboard",
	RunE:  runDash,
}

func init() {
	dashCmd.Flags().BoolVar(&dashNoUI, "no-ui", false, "run the ingest API without the terminal view")
	dashCmd.Flags().StringVar(&dashLocalFile, "local", "", "aggregate a local EVE file instead of running the API")
	dashCmd.Flags().Lookup("local").NoOptDefVal = "eve.json"
	dashCmd.Flags().StringVar(&dashLogFile, "log-file", "", "write logs to this file instead of discarding them while the view runs")
	rootCmd.AddCommand(dashCmd)
}

func runDash(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadDashboard(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	agg := aggregator.New(cfg.MaxEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Local replay skips the server entirely: load the file, then
	// render the (static) snapshot until the user quits.
	if dashLocalFile != "" {
		n, err := dashboard.ReplayFile(dashLocalFile, agg)
		if err != nil {
			return err
		}
		if dashNoUI {
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d events from %s\n", n, dashLocalFile)
			return nil
		}
		return ui.Run(ctx, agg, cfg.RefreshInterval, cfg.TopN)
	}

	logger, closeLog, err := dashLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logging.SetDefault(logger)

	creds, err := cfg.Auth.Credentials()
	if err != nil {
		return err
	}

	handler := dashhandlers.New(agg, creds, cfg.TopN, logger)
	router := dashserver.NewRouter(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("ingest API listening",
			slog.String("addr", srv.Addr),
			slog.String("auth_type", cfg.Auth.Type),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var uiErr error
	if dashNoUI {
		select {
		case err := <-serverErr:
			return fmt.Errorf("ingest API server: %w", err)
		case <-ctx.Done():
		}
	} else {
		uiErr = ui.Run(ctx, agg, cfg.RefreshInterval, cfg.TopN)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	select {
	case err := <-serverErr:
		return fmt.Errorf("ingest API server: %w", err)
	default:
	}
	return uiErr
}

// dashLogger routes log records away from the terminal the live view
// owns: to --log-file when given, to stdout in --no-ui mode, otherwise
// discarded.
func dashLogger(cfg *config.Dashboard) (*logging.Logger, func(), error) {
	level := logging.ParseLevel(cfg.Logging.Level)
	noop := func() {}

	if dashLogFile != "" {
		f, err := os.OpenFile(dashLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, noop, fmt.Errorf("open log file: %w", err)
		}
		logger := logging.NewWithOutput(level, cfg.Logging.Format, f).With(logging.Service("dashboard"))
		return logger, func() { f.Close() }, nil
	}

	if dashNoUI {
		return logging.New(level, cfg.Logging.Format).With(logging.Service("dashboard")), noop, nil
	}
	return logging.NewWithOutput(level, cfg.Logging.Format, io.Discard), noop, nil
}
