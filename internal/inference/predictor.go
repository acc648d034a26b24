package inference

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/haskel/ensemblr/internal/apperr"
	"github.com/haskel/ensemblr/internal/ensemble"
	"github.com/haskel/ensemblr/internal/registry"
)

// State is the lifecycle stage of a Predictor.
type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Predictor runs every loaded variant on an image and fuses the answers.
type Predictor struct {
	loader   *Loader
	registry *registry.Registry
	analyzer *ensemble.Analyzer
	backend  Backend
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

func NewPredictor(loader *Loader, reg *registry.Registry, analyzer *ensemble.Analyzer, logger *slog.Logger) *Predictor {
	return &Predictor{
		loader:   loader,
		registry: reg,
		analyzer: analyzer,
		backend:  loader.backend,
		logger:   logger,
	}
}

// Init moves the predictor to Ready and loads whatever is trained. Calling
// it again is a no-op.
func (p *Predictor) Init(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateReady {
		return
	}
	statuses := p.loader.LoadAll(ctx)
	p.state = StateReady
	p.logger.Info("predictor ready", "loaded", countLoaded(statuses))
}

func (p *Predictor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// PredictAll runs each loaded variant once, in registry order. Variants
// that fail are logged and left out of the ensemble.
func (p *Predictor) PredictAll(ctx context.Context, image []byte) ([]ensemble.PredictionResult, *ensemble.Result, error) {
	p.Init(ctx)
	// pick up variants trained since the last call
	p.loader.LoadAll(ctx)

	loaded := p.loader.Loaded()
	if len(loaded) == 0 {
		return nil, nil, apperr.ErrNoModelsAvailable
	}

	results := make([]ensemble.PredictionResult, 0, len(loaded))
	for _, id := range loaded {
		r, err := p.predictOne(ctx, id, image)
		if err != nil {
			p.logger.Warn("prediction failed", "variant", id, "error", err)
			continue
		}
		results = append(results, r)
	}

	if len(results) == 0 {
		return nil, nil, apperr.New(apperr.KindInferenceFailed, "Failed to make predictions")
	}

	return results, ensemble.Combine(results), nil
}

func (p *Predictor) predictOne(ctx context.Context, variant string, image []byte) (ensemble.PredictionResult, error) {
	h, ok := p.loader.Handle(variant)
	if !ok {
		return ensemble.PredictionResult{}, apperr.New(apperr.KindVariantInferenceFailed, "%s is not loaded", variant)
	}

	start := time.Now()
	probs, err := p.backend.Predict(ctx, h, image)
	latency := time.Since(start)
	if err != nil {
		return ensemble.PredictionResult{}, apperr.Wrap(apperr.KindVariantInferenceFailed, err, "%s inference failed", variant)
	}
	if len(probs) == 0 {
		return ensemble.PredictionResult{}, apperr.New(apperr.KindVariantInferenceFailed, "%s returned no probabilities", variant)
	}

	top, topP := argmax(probs)
	percent := make(map[string]float64, len(probs))
	for class, v := range probs {
		percent[class] = v * 100
	}

	v, _ := p.registry.Lookup(variant)
	return ensemble.PredictionResult{
		ModelName:        variant,
		ModelDisplayName: p.registry.DisplayName(variant),
		PredictedClass:   top,
		Confidence:       topP * 100,
		Probabilities:    percent,
		Latency:          latency,
		ModelParams:      v.Params,
		ModelSpeed:       string(v.Speed),
	}, nil
}

// Explain describes the fused decision and who disagreed with it.
func (p *Predictor) Explain(results []ensemble.PredictionResult, fused *ensemble.Result) string {
	return p.analyzer.Explain(results, fused)
}

// AnalyzeConfidence grades the spread of per-variant confidences.
func (p *Predictor) AnalyzeConfidence(results []ensemble.PredictionResult) ensemble.ConfidenceAnalysis {
	return p.analyzer.Analyze(results)
}

// argmax picks the most probable class. Equal probabilities resolve to the
// lexically smallest class so results are stable.
func argmax(probs map[string]float64) (string, float64) {
	classes := make([]string, 0, len(probs))
	for c := range probs {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	best, bestP := "", -1.0
	for _, c := range classes {
		if probs[c] > bestP {
			best, bestP = c, probs[c]
		}
	}
	return best, bestP
}

func countLoaded(statuses map[string]LoadStatus) int {
	n := 0
	for _, s := range statuses {
		if s == LoadLoaded {
			n++
		}
	}
	return n
}
