package inference

import (
	"context"
	"log/slog"
	"sync"

	"github.com/haskel/ensemblr/internal/registry"
	"github.com/haskel/ensemblr/internal/storage"
)

// LoadStatus is the outcome of trying to load one variant.
type LoadStatus string

const (
	LoadLoaded     LoadStatus = "loaded"
	LoadNotTrained LoadStatus = "not_trained"
	LoadError      LoadStatus = "error"
	LoadNotLoaded  LoadStatus = "not_loaded"
)

// TrainingStatusSource reports the last training status of a variant.
type TrainingStatusSource interface {
	VariantStatus(variant string) string
}

// ModelInfo is the public description of a variant and its readiness.
type ModelInfo struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Params         string         `json:"params"`
	Speed          registry.Speed `json:"speed"`
	Status         string         `json:"status"`
	LoadingStatus  LoadStatus     `json:"loading_status"`
	ModelPath      string         `json:"model_path"`
	TrainingStatus string         `json:"training_status,omitempty"`
	LoadError      string         `json:"load_error,omitempty"`
}

// Loader caches loaded handles for the lifetime of the process. A cached
// handle is never replaced.
type Loader struct {
	registry *registry.Registry
	storage  *storage.Store
	backend  Backend
	logger   *slog.Logger

	mu       sync.RWMutex
	handles  map[string]*Handle
	failures map[string]string
	keyLocks map[string]*sync.Mutex
}

func NewLoader(reg *registry.Registry, st *storage.Store, backend Backend, logger *slog.Logger) *Loader {
	return &Loader{
		registry: reg,
		storage:  st,
		backend:  backend,
		logger:   logger,
		handles:  make(map[string]*Handle),
		failures: make(map[string]string),
		keyLocks: make(map[string]*sync.Mutex),
	}
}

// LoadAll tries every registered variant that has no cached handle yet.
// Failures are recorded per variant and never fail the call.
func (l *Loader) LoadAll(ctx context.Context) map[string]LoadStatus {
	statuses := make(map[string]LoadStatus, l.registry.Len())
	for _, id := range l.registry.IDs() {
		statuses[id] = l.Load(ctx, id)
	}
	return statuses
}

// Load loads a single variant. Concurrent calls for the same variant
// share one backend load.
func (l *Loader) Load(ctx context.Context, variant string) LoadStatus {
	if _, ok := l.Handle(variant); ok {
		return LoadLoaded
	}

	lock := l.keyLock(variant)
	lock.Lock()
	defer lock.Unlock()

	// another caller may have finished while we waited
	if _, ok := l.Handle(variant); ok {
		return LoadLoaded
	}

	if !l.storage.HasArtifact(variant) {
		return LoadNotTrained
	}

	h, err := l.backend.Load(ctx, variant, l.storage.ModelPath(variant))
	if err != nil {
		l.logger.Warn("failed to load model", "variant", variant, "error", err)
		l.mu.Lock()
		l.failures[variant] = err.Error()
		l.mu.Unlock()
		return LoadError
	}

	l.mu.Lock()
	l.handles[variant] = h
	delete(l.failures, variant)
	l.mu.Unlock()

	l.logger.Info("model loaded", "variant", variant, "classes", len(h.Classes))
	return LoadLoaded
}

func (l *Loader) keyLock(variant string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.keyLocks[variant]
	if !ok {
		lock = &sync.Mutex{}
		l.keyLocks[variant] = lock
	}
	return lock
}

// Handle returns the cached handle of variant.
func (l *Loader) Handle(variant string) (*Handle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.handles[variant]
	return h, ok
}

// Loaded returns the loaded variants in registry order.
func (l *Loader) Loaded() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.handles))
	for _, id := range l.registry.IDs() {
		if _, ok := l.handles[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Available describes every registered variant without loading anything.
// training may be nil.
func (l *Loader) Available(training TrainingStatusSource) map[string]ModelInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]ModelInfo, l.registry.Len())
	for _, v := range l.registry.All() {
		info := ModelInfo{
			Name:          v.DisplayName,
			Description:   v.Description,
			Params:        v.Params,
			Speed:         v.Speed,
			Status:        "not_trained",
			LoadingStatus: LoadNotTrained,
			ModelPath:     l.storage.ModelPath(v.ID),
		}

		if l.storage.HasArtifact(v.ID) {
			info.Status = "available"
			info.LoadingStatus = LoadNotLoaded
		}
		if _, ok := l.handles[v.ID]; ok {
			info.LoadingStatus = LoadLoaded
		} else if msg, failed := l.failures[v.ID]; failed && info.Status == "available" {
			info.LoadingStatus = LoadError
			info.LoadError = msg
		}
		if training != nil {
			info.TrainingStatus = training.VariantStatus(v.ID)
		}

		out[v.ID] = info
	}
	return out
}
