package cli

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict <image>",
	Short: "Classify an image with every trained model",
	Long: `Send an image to the server. Every trained model classifies it and the
results are combined into one ensemble answer.

Examples:
  ensemblr predict cat.jpg
  ensemblr predict cat.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

var predictTop int

func init() {
	predictCmd.Flags().IntVar(&predictTop, "top", 3, "number of classes to list per model")
	rootCmd.AddCommand(predictCmd)
}

type modelPrediction struct {
	ModelName        string             `json:"model_name"`
	ModelDisplayName string             `json:"model_display_name"`
	PredictedClass   string             `json:"predicted_class"`
	Confidence       float64            `json:"confidence"`
	AllProbabilities map[string]float64 `json:"all_probabilities"`
	PredictionTime   float64            `json:"prediction_time"`
}

type predictResponse struct {
	IndividualResults []modelPrediction `json:"individual_results"`
	EnsembleResult    *struct {
		PredictedClass string         `json:"predicted_class"`
		Confidence     float64        `json:"confidence"`
		ModelAgreement float64        `json:"model_agreement"`
		VotingResults  map[string]int `json:"voting_results"`
	} `json:"ensemble_result"`
	Explanation        string `json:"explanation"`
	ConfidenceAnalysis struct {
		AvgConfidence   float64 `json:"avg_confidence"`
		ConfidenceLevel string  `json:"confidence_level"`
		ClassConsensus  bool    `json:"class_consensus"`
		ConfidenceRange float64 `json:"confidence_range"`
	} `json:"confidence_analysis"`
}

func runPredict(cmd *cobra.Command, args []string) error {
	data, status, err := NewClient().PostFiles("/api/predict", []FilePart{{Field: "image", Path: args[0]}}, nil)
	if err != nil {
		return fmt.Errorf("failed to predict: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut {
		printRaw(data)
		return nil
	}

	var resp predictResponse
	if err := decode(data, &resp); err != nil {
		return err
	}

	if e := resp.EnsembleResult; e != nil {
		printHeader("Ensemble")
		labelColor.Print("Class:      ")
		goodColor.Println(e.PredictedClass)
		fmt.Printf("Confidence: %.2f%%\n", e.Confidence)
		fmt.Printf("Agreement:  %.1f%%\n", e.ModelAgreement)
		fmt.Printf("Votes:      %s\n", formatVotes(e.VotingResults))
		fmt.Println()
		fmt.Println(resp.Explanation)
		fmt.Println()
	}

	printHeader("Models")
	for _, r := range resp.IndividualResults {
		labelColor.Printf("%-16s", r.ModelDisplayName)
		fmt.Printf(" %s (%.2f%%)", r.PredictedClass, r.Confidence)
		dimColor.Printf("  %.1f ms\n", r.PredictionTime)
		if verbose {
			for _, c := range topClasses(r.AllProbabilities, predictTop) {
				fmt.Printf("    %-14s %6.2f%%\n", c, r.AllProbabilities[c])
			}
		}
	}

	a := resp.ConfidenceAnalysis
	fmt.Println()
	fmt.Printf("Confidence level: %s (avg %.1f%%, range %.1f%%, consensus %v)\n",
		a.ConfidenceLevel, a.AvgConfidence, a.ConfidenceRange, a.ClassConsensus)
	return nil
}

func formatVotes(votes map[string]int) string {
	out := ""
	for i, class := range topVotes(votes) {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%d", class, votes[class])
	}
	return out
}

func topVotes(votes map[string]int) []string {
	classes := sortedKeys(votes)
	sort.SliceStable(classes, func(i, j int) bool {
		return votes[classes[i]] > votes[classes[j]]
	})
	return classes
}

// topClasses returns up to n classes by descending probability.
func topClasses(probs map[string]float64, n int) []string {
	classes := sortedKeys(probs)
	sort.SliceStable(classes, func(i, j int) bool {
		return probs[classes[i]] > probs[classes[j]]
	})
	if n > 0 && len(classes) > n {
		classes = classes[:n]
	}
	return classes
}
