package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eveflow/eveflow/internal/auth"
	"github.com/eveflow/eveflow/internal/seeder"
)

var (
	seedFile      string
	seedURL       string
	seedCount     int
	seedBatchSize int
	seedInterval  time.Duration
	seedSeed      int64
	seedAuthType  string
	seedAuthUser  string
	seedAuthPass  string
	seedAuthToken string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate synthetic EVE events into a file or a collector",
	Long: `seed writes synthetic Suricata EVE records, either appended to a
local eve.json (to exercise the forwarder's tailer) or POSTed as JSON
array batches to an ingest endpoint (to exercise the dashboard).`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "append events to this file")
	seedCmd.Flags().StringVar(&seedURL, "url", "", "POST event batches to this ingest URL")
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "total events to generate")
	seedCmd.Flags().IntVar(&seedBatchSize, "batch-size", 20, "events per write or POST")
	seedCmd.Flags().DurationVar(&seedInterval, "interval", 500*time.Millisecond, "pause between batches")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", 0, "random seed (0 randomizes)")
	seedCmd.Flags().StringVar(&seedAuthType, "auth-type", "none", "auth scheme for --url: none, basic or bearer")
	seedCmd.Flags().StringVar(&seedAuthUser, "auth-username", "", "basic auth username")
	seedCmd.Flags().StringVar(&seedAuthPass, "auth-password", "", "basic auth password")
	seedCmd.Flags().StringVar(&seedAuthToken, "auth-token", "", "bearer token")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	if (seedFile == "") == (seedURL == "") {
		return fmt.Errorf("exactly one of --file or --url is required")
	}
	if seedCount < 1 {
		return fmt.Errorf("--count must be positive, got %d", seedCount)
	}
	if seedBatchSize < 1 {
		return fmt.Errorf("--batch-size must be positive, got %d", seedBatchSize)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := seeder.New(seedSeed)

	if seedFile != "" {
		return seedToFile(ctx, cmd.OutOrStdout(), gen)
	}
	return seedToURL(ctx, cmd.OutOrStdout(), gen)
}

func seedToFile(ctx context.Context, out io.Writer, gen *seeder.Generator) error {
	f, err := os.OpenFile(seedFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	written := 0
	for written < seedCount {
		n := min(seedBatchSize, seedCount-written)
		for _, line := range gen.Events(n) {
			if _, err := f.Write(line); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		}
		written += n
		if written < seedCount {
			if err := sleepCtx(ctx, seedInterval); err != nil {
				break
			}
		}
	}
	fmt.Fprintf(out, "wrote %d events to %s\n", written, seedFile)
	return nil
}

func seedToURL(ctx context.Context, out io.Writer, gen *seeder.Generator) error {
	t, err := auth.ParseType(seedAuthType)
	if err != nil {
		return err
	}
	creds := auth.Credentials{
		Type:        t,
		Username:    seedAuthUser,
		Password:    seedAuthPass,
		BearerToken: seedAuthToken,
	}
	client := &http.Client{Timeout: 10 * time.Second}

	sent := 0
	for sent < seedCount {
		n := min(seedBatchSize, seedCount-sent)
		if err := postBatch(ctx, client, creds, gen.Events(n)); err != nil {
			return err
		}
		sent += n
		if sent < seedCount {
			if err := sleepCtx(ctx, seedInterval); err != nil {
				break
			}
		}
	}
	fmt.Fprintf(out, "sent %d events to %s\n", sent, seedURL)
	return nil
}

func postBatch(ctx context.Context, client *http.Client, creds auth.Credentials, lines [][]byte) error {
	// Assemble the newline-terminated records into a JSON array.
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, line := range lines {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(bytes.TrimSpace(line))
	}
	buf.WriteByte(']')

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, seedURL, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	creds.Apply(req)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send batch: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
