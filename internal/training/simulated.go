package training

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/haskel/ensemblr/internal/progress"
)

// SimulatedArtifact is the content a SimulatedTrainer writes as the model file.
type SimulatedArtifact struct {
	Variant   string    `json:"variant"`
	Classes   []string  `json:"classes"`
	Seed      uint32    `json:"seed"`
	TrainedAt time.Time `json:"trained_at"`
}

// SimulatedTrainer produces a deterministic learning curve per variant. It
// is used by demo mode and tests.
type SimulatedTrainer struct {
	EpochDelay time.Duration
	// FailVariants makes the listed variants fail after their first epoch.
	FailVariants map[string]bool
}

func (t *SimulatedTrainer) Train(ctx context.Context, req TrainRequest, report EpochFunc) (TrainResult, error) {
	seed := variantSeed(req.Variant)
	ceiling := 0.80 + float64(seed%15)/100
	start := 0.30 + float64(seed%20)/100
	rate := 2.0 + float64(seed%5)

	epochs := max(req.Epochs, 1)
	var res TrainResult
	for epoch := 1; epoch <= epochs; epoch++ {
		if t.EpochDelay > 0 {
			select {
			case <-ctx.Done():
				return TrainResult{}, ctx.Err()
			case <-time.After(t.EpochDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return TrainResult{}, err
		}

		acc := ceiling - (ceiling-start)*math.Exp(-float64(epoch)/rate)
		acc = math.Round(acc*10000) / 10000
		report(progress.Entry{Epoch: epoch, ValAccuracy: acc})

		res.Epochs = epoch
		res.FinalAccuracy = acc
		res.BestValAccuracy = max(res.BestValAccuracy, acc)

		if t.FailVariants[req.Variant] {
			return TrainResult{}, fmt.Errorf("simulated failure for %s", req.Variant)
		}
	}

	artifact := SimulatedArtifact{
		Variant:   req.Variant,
		Classes:   req.Classes,
		Seed:      seed,
		TrainedAt: time.Now(),
	}
	if err := writeArtifact(req.ArtifactPath, artifact); err != nil {
		return TrainResult{}, err
	}

	return res, nil
}

func writeArtifact(path string, a SimulatedArtifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func variantSeed(variant string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(variant))
	return h.Sum32()
}
