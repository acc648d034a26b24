// Package analytics compares trained variants by their persisted metrics.
package analytics

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/haskel/ensemblr/internal/registry"
	"github.com/haskel/ensemblr/internal/storage"
)

const (
	StatusCompleted  = "completed"
	StatusNotTrained = "not_trained"
)

// Entry is one row of the comparison listing. Accuracies are percentages.
type Entry struct {
	Model         string  `json:"model"`
	ModelName     string  `json:"model_name"`
	BestAccuracy  float64 `json:"best_accuracy"`
	FinalAccuracy float64 `json:"final_accuracy"`
	TrainingTime  float64 `json:"training_time"`
	TotalEpochs   int     `json:"total_epochs"`
	Status        string  `json:"status"`
}

// Ranking is a trained variant with its position, 1 being the best.
type Ranking struct {
	Rank          int     `json:"rank"`
	Model         string  `json:"model"`
	ModelName     string  `json:"model_name"`
	BestAccuracy  float64 `json:"best_accuracy"`
	FinalAccuracy float64 `json:"final_accuracy"`
	TrainingTime  float64 `json:"training_time"`
}

// Comparison is the full analytics view.
type Comparison struct {
	Entries  []Entry   `json:"comparison_data"`
	Rankings []Ranking `json:"rankings"`
}

// Best returns the top ranked variant, if any.
func (c *Comparison) Best() (Ranking, bool) {
	if len(c.Rankings) == 0 {
		return Ranking{}, false
	}
	return c.Rankings[0], true
}

// MetricsSource is the subset of the storage layer the ranker reads.
type MetricsSource interface {
	LoadMetrics(variant string) (*storage.Metrics, error)
}

type Ranker struct {
	registry *registry.Registry
	metrics  MetricsSource
	logger   *slog.Logger
}

func NewRanker(reg *registry.Registry, metrics MetricsSource, logger *slog.Logger) *Ranker {
	return &Ranker{
		registry: reg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Compare reads every registered variant's metrics. Unreadable documents
// are logged and treated like untrained variants.
func (r *Ranker) Compare() *Comparison {
	ids := r.registry.IDs()
	c := &Comparison{
		Entries:  make([]Entry, 0, len(ids)),
		Rankings: make([]Ranking, 0, len(ids)),
	}

	for _, id := range ids {
		entry := Entry{
			Model:     id,
			ModelName: r.registry.DisplayName(id),
			Status:    StatusNotTrained,
		}

		m, err := r.metrics.LoadMetrics(id)
		switch {
		case err == nil:
			entry.BestAccuracy = m.Summary.BestValAccuracy * 100
			entry.FinalAccuracy = m.Summary.FinalAccuracy * 100
			entry.TrainingTime = m.TrainingTime
			entry.TotalEpochs = m.Summary.TotalEpochs
			entry.Status = StatusCompleted
		case errors.Is(err, storage.ErrNotFound):
		default:
			r.logger.Warn("failed to read metrics", "variant", id, "error", err)
		}

		c.Entries = append(c.Entries, entry)
	}

	c.Rankings = rank(c.Entries)
	return c
}

// rank orders completed entries by best accuracy. Entries arrive in
// registry order and the sort is stable, so ties keep that order.
func rank(entries []Entry) []Ranking {
	out := make([]Ranking, 0, len(entries))
	for _, e := range entries {
		if e.Status != StatusCompleted {
			continue
		}
		out = append(out, Ranking{
			Model:         e.Model,
			ModelName:     e.ModelName,
			BestAccuracy:  e.BestAccuracy,
			FinalAccuracy: e.FinalAccuracy,
			TrainingTime:  e.TrainingTime,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BestAccuracy > out[j].BestAccuracy
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
