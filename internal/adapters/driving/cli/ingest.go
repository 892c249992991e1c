package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/mmrag/internal/adapters/driving/discover"
	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/services"
)

var (
	ingestAsync      bool
	ingestJSON       bool
	ingestNoProgress bool
	ingestInclude    []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Ingest documents into the vector index",
	Long: `Extracts text, tables and images from documents, embeds them and
writes the records to the vector index.

Directories are expanded using the configured include globs. With no paths
the configured raw data directory is ingested. A file that fails never stops
the others; each file's outcome is reported at the end.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestAsync, "async", false, "process through the background queue")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the run as JSON")
	ingestCmd.Flags().BoolVar(&ingestNoProgress, "no-progress", false, "disable the progress bar")
	ingestCmd.Flags().StringSliceVar(&ingestInclude, "include", nil, "glob patterns overriding ingest.include")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	paths := args
	if len(paths) == 0 {
		if rawDataDir == "" {
			return errors.New("no paths given and no raw data directory configured")
		}
		paths = []string{rawDataDir}
	}

	files, err := expandPaths(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		msg := "No valid documents found in " + strings.Join(paths, ", ")
		if ingestJSON {
			return printJSON(cmd, map[string]string{"status": "error", "message": msg})
		}
		cmd.Println(msg)
		return nil
	}

	stopProgress := startIngestProgress(len(files))
	defer stopProgress()

	ctx := cmd.Context()
	var run *domain.IngestRun
	if ingestAsync {
		if ingestQueue == nil {
			return errors.New("ingest queue not configured")
		}
		if err := ingestQueue.Start(ctx); err != nil {
			return fmt.Errorf("start queue: %w", err)
		}
		defer ingestQueue.Stop() //nolint:errcheck // Best-effort shutdown

		submitted, err := ingestQueue.Submit(ctx, files)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		run, err = ingestQueue.Wait(ctx, submitted.ID)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
	} else {
		run, err = ingestService.Ingest(ctx, files)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
	}
	stopProgress()

	if ingestJSON {
		return printJSON(cmd, run)
	}
	outputIngestRun(cmd, run)
	return nil
}

// expandPaths applies --include when set, otherwise the configured finder.
func expandPaths(paths []string) ([]string, error) {
	if len(ingestInclude) > 0 {
		finder, err := discover.New(ingestInclude, ingestService.Supports)
		if err != nil {
			return nil, fmt.Errorf("invalid --include: %w", err)
		}
		return finder.Find(paths...)
	}
	if fileFinder != nil {
		return fileFinder.Find(paths...)
	}
	return paths, nil
}

// startIngestProgress draws a bar on an interactive stderr and returns a
// function that removes it. The function is safe to call more than once.
func startIngestProgress(total int) func() {
	reporter, ok := ingestService.(progressReporter)
	if !ok || ingestJSON || ingestNoProgress || !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	reporter.SetProgress(func(ev services.ProgressEvent) {
		if ev.Outcome != nil && ev.Outcome.Status.IsTerminal() {
			_ = bar.Add(1)
		}
	})

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		reporter.SetProgress(nil)
		_ = bar.Finish()
	}
}

func outputIngestRun(cmd *cobra.Command, run *domain.IngestRun) {
	counts := run.Counts()
	cmd.Printf("Run %s: %d files, %d succeeded, %d skipped, %d failed\n",
		run.ID, len(run.Outcomes),
		counts[domain.IngestSucceeded], counts[domain.IngestSkipped], counts[domain.IngestFailed])
	cmd.Println()

	for i := range run.Outcomes {
		o := &run.Outcomes[i]
		cmd.Printf("  [%s] %s\n", o.Status, o.File)
		if o.ChunkCount > 0 {
			cmd.Printf("      %d chunks, %d records", o.ChunkCount, o.RecordCount)
			if o.FailedChunks > 0 || o.FailedBatches > 0 {
				cmd.Printf(" (%d chunks failed, %d batches dropped)", o.FailedChunks, o.FailedBatches)
			}
			cmd.Println()
		}
		if o.Error != "" {
			cmd.Printf("      %s\n", o.Error)
		}
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
