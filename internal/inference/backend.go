// Package inference loads trained variants and runs them together on one
// image.
package inference

import (
	"context"
	"time"
)

// Handle is a loaded model ready for inference.
type Handle struct {
	Variant  string
	Path     string
	Classes  []string
	LoadedAt time.Time

	// seed is used by the simulated backend.
	seed uint32
}

// Backend loads artifacts and runs inference. Predict returns class
// probabilities as fractions that sum to 1.
type Backend interface {
	Load(ctx context.Context, variant, artifactPath string) (*Handle, error)
	Predict(ctx context.Context, h *Handle, image []byte) (map[string]float64, error)
}
