package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 5000 {
		t.Errorf("expected default port 5000, got %d", cfg.Server.Port)
	}

	if cfg.MaxUploadBytes() != 16*1024*1024 {
		t.Errorf("expected 16MB upload limit, got %d", cfg.MaxUploadBytes())
	}

	if cfg.Progress.Backend != "file" {
		t.Errorf("expected file progress backend, got %s", cfg.Progress.Backend)
	}

	if cfg.Ensemble.UncertainBelow != 70 {
		t.Errorf("expected uncertain_below 70, got %f", cfg.Ensemble.UncertainBelow)
	}

	if cfg.Training.MinutesPerVariant != 10 {
		t.Errorf("expected 10 minutes per variant, got %d", cfg.Training.MinutesPerVariant)
	}
}

func TestLoad(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090

training:
  trainer: simulated
  epochs: 5

ensemble:
  high_min: 80

logging:
  level: "debug"
  format: "text"
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1, got %s", cfg.Server.Host)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Training.Trainer != "simulated" || cfg.Training.Epochs != 5 {
		t.Errorf("unexpected training config: %+v", cfg.Training)
	}

	if cfg.Ensemble.HighMin != 80 {
		t.Errorf("expected high_min 80, got %f", cfg.Ensemble.HighMin)
	}

	// Check that defaults are preserved for unspecified values
	if cfg.Ensemble.VeryHighMin != 90 {
		t.Errorf("expected default very_high_min 90, got %f", cfg.Ensemble.VeryHighMin)
	}
	if cfg.Storage.ModelsDir != "models" {
		t.Errorf("expected default models dir, got %s", cfg.Storage.ModelsDir)
	}
}

func TestLoadInvalid(t *testing.T) {
	content := `
progress:
  backend: etcd
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "progress") {
		t.Errorf("expected error to name the progress section, got %v", err)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault("")
	if cfg.Server.Port != 5000 {
		t.Errorf("expected default port 5000, got %d", cfg.Server.Port)
	}

	cfg = LoadOrDefault("/nonexistent/path/config.yaml")
	if cfg.Server.Port != 5000 {
		t.Errorf("expected default port 5000, got %d", cfg.Server.Port)
	}
}

func TestMarshalParses(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 7070

	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if back.Server.Port != 7070 {
		t.Errorf("expected port 7070, got %d", back.Server.Port)
	}
}
