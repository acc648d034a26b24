package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [model]",
	Short: "Show past training runs",
	Long: `Show recent training runs recorded by the server, newest first.

Examples:
  ensemblr history
  ensemblr history resnet --limit 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs")
	rootCmd.AddCommand(historyCmd)
}

type historyRun struct {
	JobID           string    `json:"job_id"`
	Variant         string    `json:"variant"`
	Status          string    `json:"status"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationMs      int64     `json:"duration_ms"`
	Epochs          int       `json:"epochs"`
	BestValAccuracy float64   `json:"best_val_accuracy"`
	ErrorMessage    string    `json:"error_message"`
}

type historyStats struct {
	Runs            int     `json:"runs"`
	Failures        int     `json:"failures"`
	BestValAccuracy float64 `json:"best_val_accuracy"`
	AvgDurationMs   float64 `json:"avg_duration_ms"`
}

type historyPage struct {
	Enabled bool                    `json:"enabled"`
	Runs    []historyRun            `json:"runs"`
	Stats   map[string]historyStats `json:"stats"`
}

func historyPath(model string, limit int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if model != "" {
		q.Set("model", model)
	}
	return "/api/training/history?" + q.Encode()
}

func runHistory(cmd *cobra.Command, args []string) error {
	model := ""
	if len(args) > 0 {
		model = args[0]
	}

	data, status, err := NewClient().Get(historyPath(model, historyLimit))
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut {
		printRaw(data)
		return nil
	}

	var page historyPage
	if err := decode(data, &page); err != nil {
		return err
	}
	if !page.Enabled {
		warnColor.Println("Training history is disabled on the server")
		return nil
	}

	printHeader("Training Runs")
	if len(page.Runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	for _, r := range page.Runs {
		fmt.Printf("%s  %-14s %s  epochs %3d  best %5.1f%%  %s\n",
			r.CompletedAt.Local().Format(time.DateTime),
			r.Variant,
			statusColor(r.Status).Sprintf("%-9s", r.Status),
			r.Epochs,
			r.BestValAccuracy*100,
			time.Duration(r.DurationMs)*time.Millisecond,
		)
		if r.ErrorMessage != "" {
			badColor.Printf("    %s\n", r.ErrorMessage)
		}
	}

	if len(page.Stats) > 0 && model == "" {
		fmt.Println()
		printHeader("Per Model")
		for _, id := range sortedKeys(page.Stats) {
			s := page.Stats[id]
			fmt.Printf("%-14s runs %3d  failures %3d  best %5.1f%%  avg %s\n",
				id, s.Runs, s.Failures, s.BestValAccuracy*100,
				(time.Duration(s.AvgDurationMs) * time.Millisecond).Round(time.Second))
		}
	}
	return nil
}
