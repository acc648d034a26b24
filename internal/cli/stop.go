package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the current training job",
	Long: `Ask the running job to stop. The model being trained finishes its run;
the remaining models are skipped.`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

type stopResponse struct {
	Message string `json:"message"`
	Stopped bool   `json:"stopped"`
}

func runStop(cmd *cobra.Command, args []string) error {
	data, status, err := NewClient().Post("/api/training/stop", nil)
	if err != nil {
		return fmt.Errorf("failed to stop training: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut {
		printRaw(data)
		return nil
	}

	var resp stopResponse
	if err := decode(data, &resp); err != nil {
		return err
	}
	if resp.Stopped {
		goodColor.Printf("✓ %s\n", resp.Message)
	} else {
		warnColor.Println("No training job is running")
	}
	return nil
}
