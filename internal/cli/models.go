package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models and whether they are trained and loaded",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

type modelInfo struct {
	Name           string `json:"name"`
	Params         string `json:"params"`
	Speed          string `json:"speed"`
	Status         string `json:"status"`
	LoadingStatus  string `json:"loading_status"`
	TrainingStatus string `json:"training_status"`
	LoadError      string `json:"load_error"`
}

func runModels(cmd *cobra.Command, args []string) error {
	data, status, err := NewClient().Get("/api/models/available")
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut {
		printRaw(data)
		return nil
	}

	var models map[string]modelInfo
	if err := decode(data, &models); err != nil {
		return err
	}

	printHeader("Models")
	for _, id := range sortedKeys(models) {
		m := models[id]
		fmt.Printf("%-14s %-16s %6s %-7s %s  %s\n",
			id, m.Name, m.Params, m.Speed,
			statusColor(m.Status).Sprintf("%-12s", m.Status),
			statusColor(m.LoadingStatus).Sprint(m.LoadingStatus),
		)
		if m.LoadError != "" {
			badColor.Printf("%14s %s\n", "", m.LoadError)
		}
	}
	return nil
}
