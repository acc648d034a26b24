package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the current training job",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type variantProgress struct {
	Status   string  `json:"status"`
	Epochs   int     `json:"epochs"`
	Accuracy float64 `json:"accuracy"`
	Error    string  `json:"error,omitempty"`
}

type trainingStatus struct {
	IsTraining     bool                       `json:"is_training"`
	JobID          string                     `json:"job_id"`
	CurrentModel   string                     `json:"current_model"`
	Progress       map[string]variantProgress `json:"progress"`
	StartTime      *time.Time                 `json:"start_time"`
	FinishedAt     *time.Time                 `json:"finished_at"`
	SelectedModels []string                   `json:"selected_models"`
	StopRequested  bool                       `json:"stop_requested"`
}

func fetchStatus(client *Client) (*trainingStatus, []byte, error) {
	data, status, err := client.Get("/api/training/status")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get status: %w", err)
	}
	if status != http.StatusOK {
		return nil, nil, apiError(status, data)
	}

	var st trainingStatus
	if err := decode(data, &st); err != nil {
		return nil, nil, err
	}
	return &st, data, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, raw, err := fetchStatus(NewClient())
	if err != nil {
		return err
	}

	if jsonOut {
		printRaw(raw)
		return nil
	}

	printTrainingStatus(st)
	return nil
}

func printTrainingStatus(st *trainingStatus) {
	printHeader("Training")

	if st.JobID == "" {
		fmt.Println("No training job has run yet.")
		return
	}

	state := "idle"
	switch {
	case st.IsTraining:
		state = "training"
	case st.StopRequested:
		state = "stopped"
	}
	labelColor.Print("Job:   ")
	fmt.Printf("%s (%s)\n", st.JobID, statusColor(state).Sprint(state))
	if st.StartTime != nil {
		labelColor.Print("Start: ")
		fmt.Println(st.StartTime.Local().Format(time.DateTime))
	}
	if st.CurrentModel != "" {
		labelColor.Print("Now:   ")
		fmt.Println(st.CurrentModel)
	}

	fmt.Println()
	for _, m := range st.SelectedModels {
		p := st.Progress[m]
		fmt.Printf("  %-14s %s  epochs %3d  accuracy %5.1f%%\n",
			m, statusColor(p.Status).Sprintf("%-10s", p.Status), p.Epochs, p.Accuracy)
		if p.Error != "" {
			badColor.Printf("  %14s %s\n", "", p.Error)
		}
	}
}
