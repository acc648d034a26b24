package storage

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "models"), filepath.Join(dir, "metrics"), testLogger())
	if err := s.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	return s
}

func TestStore_Paths(t *testing.T) {
	s := New("models", "metrics", testLogger())

	if got := s.ModelPath("resnet"); got != filepath.Join("models", "resnet_model.h5") {
		t.Errorf("unexpected model path %s", got)
	}
	if got := s.MetricsPath("resnet"); got != filepath.Join("metrics", "resnet_metrics.json") {
		t.Errorf("unexpected metrics path %s", got)
	}
}

func TestStore_SaveLoadMetrics(t *testing.T) {
	s := newTestStore(t)

	m := &Metrics{
		Model:        "mobilenet",
		Summary:      Summary{BestValAccuracy: 0.91, FinalAccuracy: 0.89, TotalEpochs: 12},
		TrainingTime: 321.5,
		History:      &History{Epochs: []int{1, 2}, ValAccuracy: []float64{0.5, 0.91}},
	}
	if err := s.SaveMetrics(m); err != nil {
		t.Fatalf("SaveMetrics failed: %v", err)
	}

	got, err := s.LoadMetrics("mobilenet")
	if err != nil {
		t.Fatalf("LoadMetrics failed: %v", err)
	}

	if got.Summary != m.Summary {
		t.Errorf("expected summary %+v, got %+v", m.Summary, got.Summary)
	}
	if got.TrainingTime != 321.5 {
		t.Errorf("expected training time 321.5, got %f", got.TrainingTime)
	}
	if got.Version != currentVersion {
		t.Errorf("expected version %d, got %d", currentVersion, got.Version)
	}
	if got.CompletedAt.IsZero() {
		t.Error("expected completed_at to be stamped")
	}

	if _, err := os.Stat(s.MetricsPath("mobilenet") + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after save")
	}
}

func TestStore_LoadMetricsMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadMetrics("densenet")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = s.LoadRawMetrics("densenet")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for raw metrics, got %v", err)
	}
}

func TestStore_LoadMetricsCorrupt(t *testing.T) {
	s := newTestStore(t)

	if err := os.WriteFile(s.MetricsPath("resnet"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	_, err := s.LoadMetrics("resnet")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestStore_LoadMetricsLegacyDocument(t *testing.T) {
	s := newTestStore(t)

	legacy := `{"summary": {"best_val_accuracy": 0.8, "final_accuracy": 0.78, "total_epochs": 10}, "training_time": 120}`
	if err := os.WriteFile(s.MetricsPath("efficientnet"), []byte(legacy), 0644); err != nil {
		t.Fatalf("failed to write legacy file: %v", err)
	}

	got, err := s.LoadMetrics("efficientnet")
	if err != nil {
		t.Fatalf("LoadMetrics failed: %v", err)
	}
	if got.Model != "efficientnet" || got.Summary.TotalEpochs != 10 {
		t.Errorf("unexpected legacy decode: %+v", got)
	}
}

func TestStore_SaveMetricsRequiresModel(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveMetrics(&Metrics{}); err == nil {
		t.Error("expected error for metrics without model name")
	}
}
