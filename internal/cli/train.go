package cli

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train [models...]",
	Short: "Start a training job",
	Long: `Start training the named models one after another. Without arguments
every known model is trained.

Examples:
  ensemblr train
  ensemblr train mobilenet resnet
  ensemblr train efficientnet --wait`,
	RunE: runTrain,
}

var (
	trainWait         bool
	trainPollInterval time.Duration
)

func init() {
	trainCmd.Flags().BoolVar(&trainWait, "wait", false, "wait for the job to finish")
	trainCmd.Flags().DurationVar(&trainPollInterval, "poll", 2*time.Second, "status poll interval with --wait")
	rootCmd.AddCommand(trainCmd)
}

type startResponse struct {
	JobID         string   `json:"job_id"`
	Message       string   `json:"message"`
	Models        []string `json:"models"`
	EstimatedTime int      `json:"estimated_time"`
}

func runTrain(cmd *cobra.Command, args []string) error {
	client := NewClient()

	data, status, err := client.Post("/api/training/start", map[string][]string{"models": args})
	if err != nil {
		return fmt.Errorf("failed to start training: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut && !trainWait {
		printRaw(data)
		return nil
	}

	var resp startResponse
	if err := decode(data, &resp); err != nil {
		return err
	}

	if !jsonOut {
		goodColor.Printf("✓ %s\n", resp.Message)
		fmt.Printf("  Job:       %s\n", resp.JobID)
		fmt.Printf("  Models:    %s\n", strings.Join(resp.Models, ", "))
		fmt.Printf("  Estimated: ~%d min\n", resp.EstimatedTime)
	}

	if !trainWait {
		return nil
	}
	return waitForJob(client, resp.JobID)
}

// waitForJob polls the status endpoint until jobID is no longer live and
// prints its final state.
func waitForJob(client *Client, jobID string) error {
	lastEpochs := map[string]int{}
	for {
		time.Sleep(trainPollInterval)

		st, raw, err := fetchStatus(client)
		if err != nil {
			return err
		}
		if st.JobID != jobID {
			return fmt.Errorf("job %s was replaced by %s", jobID, st.JobID)
		}

		if !jsonOut {
			for _, m := range st.SelectedModels {
				p := st.Progress[m]
				if p.Epochs != lastEpochs[m] {
					lastEpochs[m] = p.Epochs
					fmt.Printf("  %-14s epoch %3d  val acc %5.1f%%\n", m, p.Epochs, p.Accuracy)
				}
			}
		}

		if !st.IsTraining {
			if jsonOut {
				printRaw(raw)
			} else {
				fmt.Println()
				printTrainingStatus(st)
			}
			return nil
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
