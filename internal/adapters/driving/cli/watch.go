package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mmrag/internal/adapters/driving/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest documents as they appear in a directory",
	Long: `Watches a directory tree and queues new or changed documents for
ingestion. Files are matched against the configured include globs. Deleted
files are ignored; their records stay in the index.

With no directory the configured raw data directory is watched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before queued files are submitted")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestQueue == nil {
		return errors.New("ingest queue not configured")
	}

	dir := rawDataDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return errors.New("no directory given and no raw data directory configured")
	}

	watcher, err := newWatcher(cmd, dir, watchDebounce)
	if err != nil {
		return err
	}

	return runUntilSignal(cmd.Context(), func(ctx context.Context) error {
		if err := ingestQueue.Start(ctx); err != nil {
			return fmt.Errorf("start queue: %w", err)
		}
		defer ingestQueue.Stop() //nolint:errcheck // Best-effort shutdown

		cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
		return watcher.Run(ctx)
	})
}
