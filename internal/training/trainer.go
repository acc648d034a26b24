package training

import (
	"context"

	"github.com/haskel/ensemblr/internal/progress"
)

// TrainRequest describes one variant's training call.
type TrainRequest struct {
	JobID        string
	Variant      string
	DataDir      string
	ArtifactPath string
	Classes      []string
	Epochs       int
}

// TrainResult is what a finished training call reports. Accuracies are
// fractions in [0, 1].
type TrainResult struct {
	FinalAccuracy   float64
	BestValAccuracy float64
	Epochs          int
}

// EpochFunc receives each finished epoch as it happens.
type EpochFunc func(e progress.Entry)

// Trainer runs one variant to completion. It must write the trained
// artifact to req.ArtifactPath before returning without error.
type Trainer interface {
	Train(ctx context.Context, req TrainRequest, report EpochFunc) (TrainResult, error)
}
