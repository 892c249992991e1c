package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mmrag/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for mmrag.

Type a question and press enter to get an answer with its sources. Switch to
retrieve mode to inspect the chunks a question pulls from the index.

Controls:
  enter    - Ask
  tab      - Toggle answer / retrieve mode
  ↑/k, ↓/j - Navigate retrieved chunks
  +/-      - More or fewer chunks per question
  n, esc   - New question
  ?        - Help
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// newTUIApp builds the app from the configured services.
func newTUIApp() (*tui.App, error) {
	if answerService == nil {
		return nil, errors.New("answer service not configured")
	}
	app, err := tui.NewApp(&tui.Ports{
		Answer:    answerService,
		Retrieval: retrievalService,
		Status:    statusService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	return app, nil
}

func runTUI(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := newTUIApp()
	if err != nil {
		return err
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
