// Package ensemble fuses per-model predictions into a single verdict and
// grades how much the verdict can be trusted.
package ensemble

import (
	"math"
	"time"
)

// PredictionResult is the outcome of one model on one image.
// Confidence and Probabilities are percentages.
type PredictionResult struct {
	ModelName        string             `json:"model_name"`
	ModelDisplayName string             `json:"model_display_name"`
	PredictedClass   string             `json:"predicted_class"`
	Confidence       float64            `json:"confidence"`
	Probabilities    map[string]float64 `json:"all_probabilities"`
	Latency          time.Duration      `json:"-"`
	ModelParams      string             `json:"model_params"`
	ModelSpeed       string             `json:"model_speed"`
}

// Result is the fused decision over several PredictionResults.
type Result struct {
	PredictedClass       string             `json:"predicted_class"`
	Confidence           float64            `json:"confidence"`
	VotingResults        map[string]int     `json:"voting_results"`
	AverageProbabilities map[string]float64 `json:"average_probabilities"`
	ModelAgreement       float64            `json:"model_agreement"`
}

// Combine fuses results by majority vote. A tie goes to the class with the
// highest summed confidence, then to the class that appears first in results.
// Callers pass results in canonical registry order. Combine returns nil for
// empty input.
func Combine(results []PredictionResult) *Result {
	if len(results) == 0 {
		return nil
	}

	votes := make(map[string]int)
	confidenceSum := make(map[string]float64)
	firstSeen := make(map[string]int)
	for i, r := range results {
		votes[r.PredictedClass]++
		confidenceSum[r.PredictedClass] += r.Confidence
		if _, ok := firstSeen[r.PredictedClass]; !ok {
			firstSeen[r.PredictedClass] = i
		}
	}

	winner := ""
	for class, count := range votes {
		if winner == "" {
			winner = class
			continue
		}
		switch {
		case count > votes[winner]:
			winner = class
		case count < votes[winner]:
		case confidenceSum[class] > confidenceSum[winner]:
			winner = class
		case confidenceSum[class] < confidenceSum[winner]:
		case firstSeen[class] < firstSeen[winner]:
			winner = class
		}
	}

	avg := averageProbabilities(results)

	return &Result{
		PredictedClass:       winner,
		Confidence:           avg[winner],
		VotingResults:        votes,
		AverageProbabilities: avg,
		ModelAgreement:       Round(float64(votes[winner])/float64(len(results))*100, 1),
	}
}

// averageProbabilities takes the arithmetic mean per class over all results.
// A class missing from a result contributes zero.
func averageProbabilities(results []PredictionResult) map[string]float64 {
	sums := make(map[string]float64)
	for _, r := range results {
		for class, p := range r.Probabilities {
			sums[class] += p
		}
		if _, ok := sums[r.PredictedClass]; !ok {
			sums[r.PredictedClass] = 0
		}
	}

	n := float64(len(results))
	avg := make(map[string]float64, len(sums))
	for class, s := range sums {
		avg[class] = s / n
	}
	return avg
}

// Dissenters returns the results whose prediction differs from the fused class.
func Dissenters(results []PredictionResult, fused *Result) []PredictionResult {
	if fused == nil {
		return nil
	}
	var out []PredictionResult
	for _, r := range results {
		if r.PredictedClass != fused.PredictedClass {
			out = append(out, r)
		}
	}
	return out
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// RoundMap rounds every value of m.
func RoundMap(m map[string]float64, places int) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = Round(v, places)
	}
	return out
}
