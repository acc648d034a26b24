package training

import (
	"context"
	"slices"
	"time"

	"github.com/haskel/ensemblr/internal/apperr"
)

// Status of one variant inside a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusTraining  Status = "training"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// VariantProgress is the observable state of one variant. Accuracy is a
// percentage.
type VariantProgress struct {
	Status     Status     `json:"status"`
	Epochs     int        `json:"epochs"`
	Accuracy   float64    `json:"accuracy"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StatusView is a consistent copy of the job state.
type StatusView struct {
	IsTraining     bool                       `json:"is_training"`
	JobID          string                     `json:"job_id,omitempty"`
	CurrentModel   string                     `json:"current_model"`
	Progress       map[string]VariantProgress `json:"progress"`
	StartTime      *time.Time                 `json:"start_time"`
	FinishedAt     *time.Time                 `json:"finished_at,omitempty"`
	SelectedModels []string                   `json:"selected_models"`
	StopRequested  bool                       `json:"stop_requested,omitempty"`
	EpochsPerModel int                        `json:"epochs_per_model"`
	Outcomes       []OutcomeView              `json:"outcomes"`
}

// OutcomeView is a settled variant of the job, in training order.
type OutcomeView struct {
	Variant     string      `json:"variant"`
	OK          bool        `json:"ok"`
	DurationSec float64     `json:"duration_sec"`
	Kind        apperr.Kind `json:"kind,omitempty"`
	Error       string      `json:"error,omitempty"`
}

func newOutcomeView(out Outcome) OutcomeView {
	v := OutcomeView{
		Variant:     out.Variant,
		OK:          out.OK(),
		DurationSec: out.Duration.Seconds(),
	}
	if out.Err != nil {
		v.Kind = out.Err.Kind
		v.Error = out.Err.Message
	}
	return v
}

// Status returns the job state merged with the latest persisted progress.
// It never waits on the worker, and within one job the reported epoch count
// of a variant never decreases.
func (o *Orchestrator) Status(ctx context.Context) StatusView {
	o.mu.Lock()
	j := o.job
	if j == nil {
		o.mu.Unlock()
		return StatusView{
			Progress:       map[string]VariantProgress{},
			SelectedModels: []string{},
			EpochsPerModel: o.opts.Epochs,
			Outcomes:       []OutcomeView{},
		}
	}
	view := o.snapshotLocked(j)
	o.mu.Unlock()

	if view.IsTraining {
		for _, v := range view.SelectedModels {
			p := view.Progress[v]
			if p.Status != StatusPending && p.Status != StatusTraining {
				continue
			}
			rec, err := o.opts.Progress.Read(ctx, v)
			if err != nil {
				o.logger.Debug("failed to read progress", "variant", v, "error", err)
				continue
			}
			latest, ok := rec.Latest()
			if !ok {
				continue
			}
			if rec.Len() >= p.Epochs {
				p.Epochs = rec.Len()
				p.Accuracy = latest.ValAccuracy * 100
			}
			p.Status = StatusTraining
			view.Progress[v] = p
			view.CurrentModel = v
		}
	}

	o.mu.Lock()
	for v, p := range view.Progress {
		if p.Epochs < j.highWater[v] {
			p.Epochs = j.highWater[v]
			view.Progress[v] = p
		} else {
			j.highWater[v] = p.Epochs
		}
	}
	o.mu.Unlock()

	return view
}

func (o *Orchestrator) snapshotLocked(j *job) StatusView {
	started := j.startedAt
	view := StatusView{
		IsTraining:     o.live && o.job == j,
		JobID:          j.id,
		CurrentModel:   j.current,
		Progress:       make(map[string]VariantProgress, len(j.progress)),
		StartTime:      &started,
		SelectedModels: slices.Clone(j.variants),
		StopRequested:  j.stop.Load(),
		EpochsPerModel: o.opts.Epochs,
		Outcomes:       make([]OutcomeView, 0, len(j.outcomes)),
	}
	for _, out := range j.outcomes {
		view.Outcomes = append(view.Outcomes, newOutcomeView(out))
	}
	if !j.finishedAt.IsZero() {
		finished := j.finishedAt
		view.FinishedAt = &finished
	}
	for v, p := range j.progress {
		view.Progress[v] = *p
	}
	return view
}

// VariantStatus returns the status of variant in the most recent job, or
// "unknown" when that job did not include it.
func (o *Orchestrator) VariantStatus(variant string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.job == nil {
		return "unknown"
	}
	p, ok := o.job.progress[variant]
	if !ok {
		return "unknown"
	}
	return string(p.Status)
}
