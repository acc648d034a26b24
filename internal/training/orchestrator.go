// Package training runs classifier variants one after another in a single
// background worker and reports their progress while they train.
package training

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/haskel/ensemblr/internal/apperr"
	"github.com/haskel/ensemblr/internal/dataset"
	"github.com/haskel/ensemblr/internal/events"
	"github.com/haskel/ensemblr/internal/history"
	"github.com/haskel/ensemblr/internal/progress"
	"github.com/haskel/ensemblr/internal/registry"
	"github.com/haskel/ensemblr/internal/storage"
)

// Preflight refuses a start when the host cannot take a training job.
type Preflight interface {
	Check(ctx context.Context) error
}

// Recorder keeps a ledger of variant outcomes.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Publisher receives live progress events.
type Publisher interface {
	Publish(e events.Event)
}

// Options wires an Orchestrator. Preflight, History and Events are optional.
type Options struct {
	Registry *registry.Registry
	Dataset  dataset.Provider
	Progress progress.Store
	Storage  *storage.Store
	Trainer  Trainer

	DataDir           string
	Epochs            int
	MinutesPerVariant int
	VariantTimeout    time.Duration

	Preflight Preflight
	History   Recorder
	Events    Publisher
	Logger    *slog.Logger
}

// Outcome is the tagged result of one variant: Err is nil on success.
type Outcome struct {
	Variant  string
	Result   TrainResult
	Duration time.Duration
	Err      *apperr.Error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// StartResult is returned when a job is accepted.
type StartResult struct {
	JobID         string   `json:"job_id"`
	Message       string   `json:"message"`
	Models        []string `json:"models"`
	EstimatedTime int      `json:"estimated_time"`
}

type job struct {
	id         string
	variants   []string
	startedAt  time.Time
	finishedAt time.Time
	progress   map[string]*VariantProgress
	highWater  map[string]int
	current    string
	outcomes   []Outcome

	stop atomic.Bool
	done chan struct{}
}

// Orchestrator owns the single live training job.
type Orchestrator struct {
	opts   Options
	logger *slog.Logger

	// startMu serializes Start so validation and activation are atomic.
	startMu sync.Mutex

	mu   sync.Mutex
	live bool
	job  *job

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Epochs < 1 {
		opts.Epochs = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		opts:    opts,
		logger:  opts.Logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start validates the request and hands the job to a background worker.
// An empty variantIDs means every registered variant.
func (o *Orchestrator) Start(ctx context.Context, variantIDs []string) (*StartResult, error) {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	if o.IsTraining() {
		return nil, apperr.ErrAlreadyTraining
	}

	if len(variantIDs) == 0 {
		variantIDs = o.opts.Registry.IDs()
	}
	variants := o.opts.Registry.Filter(variantIDs)
	if len(variants) == 0 {
		return nil, apperr.ErrNoValidVariants
	}

	classes, err := o.opts.Dataset.Classes(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to inspect dataset")
	}
	if len(classes) == 0 {
		return nil, apperr.ErrNoDataset
	}
	classNames := make([]string, 0, len(classes))
	for name := range classes {
		classNames = append(classNames, name)
	}
	sort.Strings(classNames)

	if o.opts.Preflight != nil {
		if err := o.opts.Preflight.Check(ctx); err != nil {
			return nil, apperr.Wrap(apperr.KindInsufficientCapacity, err, "Insufficient host capacity to start training: %v", err)
		}
	}

	for _, v := range variants {
		if err := o.opts.Progress.Reset(ctx, v); err != nil {
			o.logger.Warn("failed to reset progress", "variant", v, "error", err)
		}
	}

	j := &job{
		id:        uuid.NewString(),
		variants:  variants,
		startedAt: time.Now(),
		progress:  make(map[string]*VariantProgress, len(variants)),
		highWater: make(map[string]int, len(variants)),
		done:      make(chan struct{}),
	}
	for _, v := range variants {
		j.progress[v] = &VariantProgress{Status: StatusPending}
	}

	o.mu.Lock()
	o.job = j
	o.live = true
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(o.baseCtx, j, classNames)

	o.logger.Info("training job started", "job_id", j.id, "variants", variants)

	return &StartResult{
		JobID:         j.id,
		Message:       "Training started successfully",
		Models:        variants,
		EstimatedTime: len(variants) * o.opts.MinutesPerVariant,
	}, nil
}

func (o *Orchestrator) run(ctx context.Context, j *job, classes []string) {
	defer o.wg.Done()
	defer close(j.done)
	defer o.finish(j)

	o.publish(events.Event{Type: events.JobStarted, JobID: j.id})

	for _, v := range j.variants {
		if j.stop.Load() || ctx.Err() != nil {
			o.logger.Info("training stopped before variant", "job_id", j.id, "variant", v)
			return
		}
		out := o.trainVariant(ctx, j, v, classes)
		o.settle(ctx, j, out)
	}
}

// finish clears the live flag unless a newer job has replaced j.
func (o *Orchestrator) finish(j *job) {
	if r := recover(); r != nil {
		o.logger.Error("training worker panicked", "job_id", j.id, "panic", r)
	}

	o.mu.Lock()
	j.current = ""
	j.finishedAt = time.Now()
	if o.job == j {
		o.live = false
	}
	o.mu.Unlock()

	o.publish(events.Event{Type: events.JobFinished, JobID: j.id})
	o.logger.Info("training job finished", "job_id", j.id, "duration", time.Since(j.startedAt))
}

func (o *Orchestrator) trainVariant(ctx context.Context, j *job, variant string, classes []string) (out Outcome) {
	started := time.Now()
	out.Variant = variant
	before := o.opts.Storage.Artifact(variant)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("variant training panicked", "job_id", j.id, "variant", variant, "panic", r)
			out.Err = apperr.New(apperr.KindVariantTrainingFailed, "panic during training: %v", r)
		}
		out.Duration = time.Since(started)
		if out.Err != nil {
			o.discardPartial(variant, before)
		}
	}()

	o.mu.Lock()
	p := j.progress[variant]
	p.Status = StatusTraining
	p.StartedAt = &started
	j.current = variant
	o.mu.Unlock()

	o.publish(events.Event{Type: events.VariantStarted, JobID: j.id, Variant: variant})
	o.logger.Info("training variant", "job_id", j.id, "variant", variant)

	tctx := ctx
	if o.opts.VariantTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, o.opts.VariantTimeout)
		defer cancel()
	}

	req := TrainRequest{
		JobID:        j.id,
		Variant:      variant,
		DataDir:      o.opts.DataDir,
		ArtifactPath: o.opts.Storage.ModelPath(variant),
		Classes:      classes,
		Epochs:       o.opts.Epochs,
	}

	res, err := o.opts.Trainer.Train(tctx, req, func(e progress.Entry) {
		o.onEpoch(ctx, j, variant, e)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			out.Err = apperr.Wrap(apperr.KindVariantTrainingFailed, err, "training timed out after %s", o.opts.VariantTimeout)
		} else {
			out.Err = apperr.Wrap(apperr.KindVariantTrainingFailed, err, "%s", err.Error())
		}
		return out
	}
	if !o.opts.Storage.HasArtifact(variant) {
		out.Err = apperr.New(apperr.KindArtifactMissing, "training finished without producing %s", req.ArtifactPath)
		return out
	}
	out.Result = res

	metrics := &storage.Metrics{
		Model: variant,
		Summary: storage.Summary{
			BestValAccuracy: res.BestValAccuracy,
			FinalAccuracy:   res.FinalAccuracy,
			TotalEpochs:     res.Epochs,
		},
		TrainingTime: time.Since(started).Seconds(),
		JobID:        j.id,
	}
	if rec, err := o.opts.Progress.Read(ctx, variant); err == nil && rec.Len() > 0 {
		h := &storage.History{}
		for _, e := range rec.Entries {
			h.Epochs = append(h.Epochs, e.Epoch)
			h.ValAccuracy = append(h.ValAccuracy, e.ValAccuracy)
		}
		metrics.History = h
	}
	if err := o.opts.Storage.SaveMetrics(metrics); err != nil {
		out.Err = apperr.Wrap(apperr.KindVariantTrainingFailed, err, "failed to save metrics")
	}
	return out
}

func (o *Orchestrator) onEpoch(ctx context.Context, j *job, variant string, e progress.Entry) {
	// a stopped job must not write into records a newer job may own
	if !j.stop.Load() {
		if err := o.opts.Progress.Append(ctx, variant, e); err != nil {
			o.logger.Warn("failed to record progress", "variant", variant, "epoch", e.Epoch, "error", err)
		}
	}

	o.mu.Lock()
	p := j.progress[variant]
	p.Epochs = max(p.Epochs, e.Epoch)
	p.Accuracy = e.ValAccuracy * 100
	o.mu.Unlock()

	o.publish(events.Event{Type: events.Epoch, JobID: j.id, Variant: variant, Epoch: e.Epoch, Accuracy: e.ValAccuracy * 100})
}

func (o *Orchestrator) settle(ctx context.Context, j *job, out Outcome) {
	finished := time.Now()

	o.mu.Lock()
	p := j.progress[out.Variant]
	p.FinishedAt = &finished
	if out.OK() {
		p.Status = StatusCompleted
		p.Epochs = max(p.Epochs, out.Result.Epochs)
		p.Accuracy = out.Result.FinalAccuracy * 100
	} else {
		p.Status = StatusError
		p.Error = out.Err.Message
	}
	j.outcomes = append(j.outcomes, out)
	o.mu.Unlock()

	run := history.Run{
		JobID:       j.id,
		Variant:     out.Variant,
		Status:      string(p.Status),
		StartedAt:   finished.Add(-out.Duration),
		CompletedAt: finished,
		DurationMs:  out.Duration.Milliseconds(),
	}

	if out.OK() {
		run.Epochs = out.Result.Epochs
		run.BestValAccuracy = out.Result.BestValAccuracy
		run.FinalAccuracy = out.Result.FinalAccuracy
		o.publish(events.Event{Type: events.VariantCompleted, JobID: j.id, Variant: out.Variant, Accuracy: out.Result.FinalAccuracy * 100})
		o.logger.Info("variant trained",
			"job_id", j.id,
			"variant", out.Variant,
			"final_accuracy", out.Result.FinalAccuracy,
			"epochs", out.Result.Epochs,
			"duration", out.Duration,
		)
	} else {
		run.ErrorMessage = out.Err.Error()
		o.publish(events.Event{Type: events.VariantFailed, JobID: j.id, Variant: out.Variant, Error: out.Err.Message})
		o.logger.Error("variant training failed", "job_id", j.id, "variant", out.Variant, "error", out.Err)
	}

	if o.opts.History != nil {
		if err := o.opts.History.Record(context.WithoutCancel(ctx), run); err != nil {
			o.logger.Warn("failed to record training run", "variant", out.Variant, "error", err)
		}
	}
}

// Stop asks the live job to stop after its current variant and clears the
// live flag at once. It reports whether a live job was signalled.
func (o *Orchestrator) Stop() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.live || o.job == nil {
		return false
	}

	o.job.stop.Store(true)
	o.job.current = ""
	o.live = false

	o.publish(events.Event{Type: events.JobStopped, JobID: o.job.id})
	o.logger.Info("training stop requested", "job_id", o.job.id)
	return true
}

// IsTraining reports whether a job is live.
func (o *Orchestrator) IsTraining() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.live
}

// Wait blocks until the most recent job's worker has exited.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	j := o.job
	o.mu.Unlock()

	if j == nil {
		return nil
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every worker and waits for them to exit.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.Stop()
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// discardPartial removes an artifact a failed run wrote or overwrote, so a
// failed variant never looks trained. An artifact the run left untouched stays.
func (o *Orchestrator) discardPartial(variant string, before storage.ArtifactInfo) {
	after := o.opts.Storage.Artifact(variant)
	if !after.Exists {
		return
	}
	if before.Exists && after.Size == before.Size && after.UpdatedAt.Equal(before.UpdatedAt) {
		return
	}
	if err := o.opts.Storage.DeleteArtifact(variant); err != nil {
		o.logger.Warn("failed to discard partial artifact", "variant", variant, "error", err)
		return
	}
	o.logger.Info("discarded partial artifact", "variant", variant, "path", after.Path)
}

func (o *Orchestrator) publish(e events.Event) {
	if o.opts.Events != nil {
		o.opts.Events.Publish(e)
	}
}
