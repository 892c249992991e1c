package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/mmrag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/mmrag/internal/adapters/driving/watch"
	"github.com/custodia-labs/mmrag/internal/core/domain"
)

var (
	serveAddr  string
	serveWatch string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the HTTP API:

  GET  /              health message
  POST /ingest        queue files for ingestion
  GET  /ingest        list recent runs
  GET  /ingest/{id}   show one run
  POST /query         answer a question
  POST /retrieve      retrieval only
  GET  /status        index readiness
  GET  /metrics       Prometheus metrics

Ingestion runs in the background queue. With --watch, files created in the
given directory are queued as they appear.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "directory to watch for new documents")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestQueue == nil {
		return errors.New("ingest queue not configured")
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Queue:      ingestQueue,
		Retrieval:  retrievalService,
		Answer:     answerService,
		Status:     statusService,
		Files:      fileFinder,
		Metrics:    metricsHandler,
		DefaultDir: rawDataDir,
	})
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = serverAddr
	}

	var watcher *watch.Watcher
	if serveWatch != "" {
		if watcher, err = newWatcher(cmd, serveWatch, 0); err != nil {
			return err
		}
	}

	return runUntilSignal(cmd.Context(), func(ctx context.Context) error {
		if err := ingestQueue.Start(ctx); err != nil {
			return fmt.Errorf("start queue: %w", err)
		}
		defer ingestQueue.Stop() //nolint:errcheck // Best-effort shutdown

		g, ctx := errgroup.WithContext(ctx)
		if watcher != nil {
			g.Go(func() error { return watcher.Run(ctx) })
		}
		g.Go(func() error {
			cmd.Printf("Listening on %s\n", addr)
			return server.ListenAndServe(ctx, addr)
		})
		return g.Wait()
	})
}

// newWatcher builds a watcher over dir that reports queued runs on cmd's output.
func newWatcher(cmd *cobra.Command, dir string, debounce time.Duration) (*watch.Watcher, error) {
	return watch.New(dir, ingestQueue, fileFinder,
		watch.WithDebounce(debounce),
		watch.WithOnSubmit(func(run *domain.IngestRun) {
			cmd.Printf("Queued %d files as run %s\n", len(run.Outcomes), run.ID)
		}),
	)
}

// runUntilSignal runs fn until it returns or the process is interrupted.
func runUntilSignal(parent context.Context, fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx)
}
