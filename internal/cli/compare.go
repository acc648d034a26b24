package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare trained models by accuracy",
	RunE:  runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

type comparisonEntry struct {
	Model         string  `json:"model"`
	ModelName     string  `json:"model_name"`
	BestAccuracy  float64 `json:"best_accuracy"`
	FinalAccuracy float64 `json:"final_accuracy"`
	TrainingTime  float64 `json:"training_time"`
	TotalEpochs   int     `json:"total_epochs"`
	Status        string  `json:"status"`
	Rank          int     `json:"rank"`
}

type comparison struct {
	Entries  []comparisonEntry `json:"comparison_data"`
	Rankings []comparisonEntry `json:"rankings"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	data, status, err := NewClient().Get("/api/analytics/comparison")
	if err != nil {
		return fmt.Errorf("failed to get comparison: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut {
		printRaw(data)
		return nil
	}

	var c comparison
	if err := decode(data, &c); err != nil {
		return err
	}

	printHeader("Rankings")
	if len(c.Rankings) == 0 {
		fmt.Println("No trained models yet.")
	}
	for _, r := range c.Rankings {
		rank := fmt.Sprintf("#%d", r.Rank)
		if r.Rank == 1 {
			rank = goodColor.Sprint(rank)
		}
		fmt.Printf("%s  %-16s best %5.1f%%  final %5.1f%%  %6.0fs\n",
			rank, r.ModelName, r.BestAccuracy, r.FinalAccuracy, r.TrainingTime)
	}

	var untrained []string
	for _, e := range c.Entries {
		if e.Status != "completed" {
			untrained = append(untrained, e.ModelName)
		}
	}
	if len(untrained) > 0 {
		fmt.Println()
		dimColor.Printf("Not trained: %v\n", untrained)
	}
	return nil
}
