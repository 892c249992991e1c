package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vector index status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return errors.New("status service not configured")
	}

	status, err := statusService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if statusJSON {
		return printJSON(cmd, status)
	}

	ready := "not ready"
	if status.Ready {
		ready = "ready"
	}
	cmd.Printf("Index:   %s\n", ready)
	if status.Backend != "" {
		cmd.Printf("Backend: %s\n", status.Backend)
	}
	if status.Dimensions > 0 {
		cmd.Printf("Dimensions: %d\n", status.Dimensions)
	}
	cmd.Printf("Records: %d\n", status.DocumentCount)
	return nil
}
