package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"time"
)

// ClassLister supplies class names when an artifact does not carry them.
type ClassLister interface {
	ClassNames(ctx context.Context) ([]string, error)
}

// SimulatedBackend derives stable probabilities from the image bytes. All
// variants lean towards the same class for a given image, each with its
// own noise, so ensembles behave like they would with real models.
type SimulatedBackend struct {
	Classes ClassLister
}

type simulatedArtifact struct {
	Classes []string `json:"classes"`
	Seed    uint32   `json:"seed"`
}

func (b *SimulatedBackend) Load(ctx context.Context, variant, artifactPath string) (*Handle, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, err
	}

	var a simulatedArtifact
	if json.Unmarshal(data, &a) != nil || len(a.Classes) == 0 {
		if b.Classes == nil {
			return nil, fmt.Errorf("artifact %s carries no classes", artifactPath)
		}
		a.Classes, err = b.Classes.ClassNames(ctx)
		if err != nil {
			return nil, err
		}
	}
	if len(a.Classes) == 0 {
		return nil, fmt.Errorf("no classes known for %s", variant)
	}
	if a.Seed == 0 {
		a.Seed = hash32(variant)
	}

	return &Handle{
		Variant:  variant,
		Path:     artifactPath,
		Classes:  a.Classes,
		LoadedAt: time.Now(),
		seed:     a.Seed,
	}, nil
}

func (b *SimulatedBackend) Predict(ctx context.Context, h *Handle, image []byte) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	imageHash := hash32(string(image))
	favourite := int(imageHash % uint32(len(h.Classes)))

	logits := make([]float64, len(h.Classes))
	maxLogit := math.Inf(-1)
	for i := range h.Classes {
		noise := float64(hash32(fmt.Sprintf("%d:%d:%d", imageHash, h.seed, i))%1000) / 1000
		logits[i] = noise * 2
		if i == favourite {
			logits[i] += 2.5
		}
		maxLogit = max(maxLogit, logits[i])
	}

	sum := 0.0
	for i := range logits {
		logits[i] = math.Exp(logits[i] - maxLogit)
		sum += logits[i]
	}

	probs := make(map[string]float64, len(h.Classes))
	for i, class := range h.Classes {
		probs[class] = logits[i] / sum
	}
	return probs, nil
}

func hash32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
