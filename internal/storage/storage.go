// Package storage maps variants to their on-disk artifacts and metrics
// documents. The presence of an artifact is the only signal that a variant
// has been trained.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	currentVersion = 1

	artifactSuffix = "_model.h5"
	metricsSuffix  = "_metrics.json"
)

// ErrNotFound is returned when a variant has no persisted metrics.
var ErrNotFound = errors.New("not found")

// Summary holds the headline numbers of a finished training run.
// Accuracies are fractions in [0, 1].
type Summary struct {
	BestValAccuracy float64 `json:"best_val_accuracy"`
	FinalAccuracy   float64 `json:"final_accuracy"`
	TotalEpochs     int     `json:"total_epochs"`
}

// History is the per-epoch curve captured during training.
type History struct {
	Epochs      []int     `json:"epochs"`
	ValAccuracy []float64 `json:"val_accuracy"`
}

// Metrics is the document persisted per trained variant.
type Metrics struct {
	Version      int       `json:"version"`
	Model        string    `json:"model"`
	Summary      Summary   `json:"summary"`
	TrainingTime float64   `json:"training_time"`
	History      *History  `json:"history,omitempty"`
	JobID        string    `json:"job_id,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Store handles persistence of per-variant metrics and locates artifacts.
type Store struct {
	modelsDir  string
	metricsDir string
	logger     *slog.Logger

	mu sync.RWMutex
}

// New creates a new Store.
func New(modelsDir, metricsDir string, logger *slog.Logger) *Store {
	return &Store{
		modelsDir:  modelsDir,
		metricsDir: metricsDir,
		logger:     logger,
	}
}

// EnsureDirs creates the models and metrics folders.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.modelsDir, s.metricsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (s *Store) ModelsDir() string  { return s.modelsDir }
func (s *Store) MetricsDir() string { return s.metricsDir }

// ModelPath returns where the trained artifact of variant lives.
func (s *Store) ModelPath(variant string) string {
	return filepath.Join(s.modelsDir, variant+artifactSuffix)
}

// MetricsPath returns where the metrics document of variant lives.
func (s *Store) MetricsPath(variant string) string {
	return filepath.Join(s.metricsDir, variant+metricsSuffix)
}

// SaveMetrics persists m for m.Model.
func (s *Store) SaveMetrics(m *Metrics) error {
	if m.Model == "" {
		return fmt.Errorf("metrics without model name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = currentVersion
	if m.CompletedAt.IsZero() {
		m.CompletedAt = time.Now()
	}

	if err := WriteJSONAtomic(s.MetricsPath(m.Model), m); err != nil {
		return fmt.Errorf("failed to save metrics for %s: %w", m.Model, err)
	}

	s.logger.Debug("saved metrics to disk", "variant", m.Model, "path", s.MetricsPath(m.Model))
	return nil
}

// LoadMetrics reads the metrics document of variant. It returns ErrNotFound
// when the document does not exist.
func (s *Store) LoadMetrics(variant string) (*Metrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.MetricsPath(variant)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read metrics for %s: %w", variant, err)
	}

	var m Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode metrics for %s: %w", variant, err)
	}

	if m.Version > currentVersion {
		s.logger.Warn("metrics file version is newer than supported",
			"variant", variant,
			"file_version", m.Version,
			"supported_version", currentVersion,
		)
	}
	if m.Model == "" {
		m.Model = variant
	}

	return &m, nil
}

// LoadRawMetrics returns the metrics document bytes unchanged.
func (s *Store) LoadRawMetrics(variant string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.MetricsPath(variant))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// WriteJSONAtomic encodes v to a temp file next to path and renames it over
// path, so readers never observe a partial document.
func WriteJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}

	return nil
}
