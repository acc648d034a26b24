package ensemble

import (
	"fmt"
	"strings"
)

const (
	LevelVeryHigh = "Very High"
	LevelHigh     = "High"
	LevelMedium   = "Medium"
	LevelLow      = "Low"
	LevelUnknown  = "Unknown"
)

// Thresholds are the minimum average confidences (percent) of each level.
type Thresholds struct {
	VeryHigh float64
	High     float64
	Medium   float64

	// UncertainBelow flags a fused confidence as uncertain in explanations.
	UncertainBelow float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		VeryHigh:       90,
		High:           75,
		Medium:         60,
		UncertainBelow: 70,
	}
}

// ConfidenceAnalysis summarizes the spread of per-model confidences.
type ConfidenceAnalysis struct {
	AvgConfidence       float64 `json:"avg_confidence"`
	ConfidenceLevel     string  `json:"confidence_level"`
	UnanimousPrediction bool    `json:"unanimous_prediction"`
	ConfidenceRange     float64 `json:"confidence_range"`
}

// Analyzer grades predictions against a fixed set of thresholds.
type Analyzer struct {
	thresholds Thresholds
}

func NewAnalyzer(t Thresholds) *Analyzer {
	return &Analyzer{thresholds: t}
}

func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

// Level maps an average confidence to its label.
func (a *Analyzer) Level(avg float64) string {
	switch {
	case avg >= a.thresholds.VeryHigh:
		return LevelVeryHigh
	case avg >= a.thresholds.High:
		return LevelHigh
	case avg >= a.thresholds.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Analyze computes the average, level, unanimity and range of confidences.
func (a *Analyzer) Analyze(results []PredictionResult) ConfidenceAnalysis {
	if len(results) == 0 {
		return ConfidenceAnalysis{ConfidenceLevel: LevelUnknown}
	}

	sum := 0.0
	lo, hi := results[0].Confidence, results[0].Confidence
	unanimous := true
	for _, r := range results {
		sum += r.Confidence
		lo = min(lo, r.Confidence)
		hi = max(hi, r.Confidence)
		if r.PredictedClass != results[0].PredictedClass {
			unanimous = false
		}
	}
	avg := sum / float64(len(results))

	return ConfidenceAnalysis{
		AvgConfidence:       avg,
		ConfidenceLevel:     a.Level(avg),
		UnanimousPrediction: unanimous,
		ConfidenceRange:     hi - lo,
	}
}

// Explain writes a short rationale for the fused decision.
func (a *Analyzer) Explain(results []PredictionResult, fused *Result) string {
	if len(results) == 0 || fused == nil {
		return "No predictions were made."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ensemble prediction: %s with %.1f%% confidence. ", fused.PredictedClass, fused.Confidence)

	agreeing := fused.VotingResults[fused.PredictedClass]
	if agreeing == len(results) {
		fmt.Fprintf(&b, "All %d models agree on this prediction.", len(results))
	} else {
		fmt.Fprintf(&b, "%d of %d models agree (%.1f%% agreement).", agreeing, len(results), fused.ModelAgreement)
		dissent := Dissenters(results, fused)
		parts := make([]string, 0, len(dissent))
		for _, r := range dissent {
			parts = append(parts, fmt.Sprintf("%s predicted %s (%.1f%%)", displayName(r), r.PredictedClass, r.Confidence))
		}
		fmt.Fprintf(&b, " Dissenting: %s.", strings.Join(parts, "; "))
	}

	if fused.Confidence < a.thresholds.UncertainBelow {
		fmt.Fprintf(&b, " Confidence is below %.0f%%, so the result is uncertain and more training data may help.", a.thresholds.UncertainBelow)
	}

	return b.String()
}

func displayName(r PredictionResult) string {
	if r.ModelDisplayName != "" {
		return r.ModelDisplayName
	}
	return r.ModelName
}
