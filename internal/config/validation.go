package config

import (
	"errors"
	"fmt"
	"strings"
)

func (c *Config) Validate() error {
	var errs []error

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}

	if err := c.Progress.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("progress: %w", err))
	}

	if err := c.History.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("history: %w", err))
	}

	if err := c.Training.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("training: %w", err))
	}

	if err := c.Inference.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("inference: %w", err))
	}

	if err := c.Ensemble.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ensemble: %w", err))
	}

	if err := c.Preflight.Thresholds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("preflight.thresholds: %w", err))
	}

	if err := c.Monitoring.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("monitoring: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	return errors.Join(errs...)
}

func (s *ServerConfig) Validate() error {
	var errs []error
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", s.Port))
	}
	if s.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("max_upload_mb must be at least 1, got %d", s.MaxUploadMB))
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must be positive"))
		}
		if s.RateLimit.Burst < 1 {
			errs = append(errs, fmt.Errorf("rate_limit.burst must be at least 1"))
		}
	}
	return errors.Join(errs...)
}

func (s *StorageConfig) Validate() error {
	var errs []error
	dirs := []struct {
		name  string
		value string
	}{
		{"data_dir", s.DataDir},
		{"models_dir", s.ModelsDir},
		{"metrics_dir", s.MetricsDir},
		{"uploads_dir", s.UploadsDir},
	}
	for _, d := range dirs {
		if strings.TrimSpace(d.value) == "" {
			errs = append(errs, fmt.Errorf("%s cannot be empty", d.name))
		}
	}
	return errors.Join(errs...)
}

func (p *ProgressConfig) Validate() error {
	switch p.Backend {
	case "file":
		return nil
	case "redis":
		if p.Redis.URL == "" {
			return fmt.Errorf("redis.url cannot be empty when backend is redis")
		}
		return nil
	default:
		return fmt.Errorf("invalid backend: %s (valid: file, redis)", p.Backend)
	}
}

func (h *HistoryConfig) Validate() error {
	if h.Enabled && h.Path == "" {
		return fmt.Errorf("path cannot be empty when history is enabled")
	}
	return nil
}

func (t *TrainingConfig) Validate() error {
	var errs []error

	switch t.Trainer {
	case "command":
		if t.Command == "" {
			errs = append(errs, fmt.Errorf("command cannot be empty when trainer is command"))
		}
	case "simulated":
	default:
		errs = append(errs, fmt.Errorf("invalid trainer: %s (valid: command, simulated)", t.Trainer))
	}

	if t.Epochs < 1 {
		errs = append(errs, fmt.Errorf("epochs must be at least 1"))
	}
	if t.TimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("timeout_sec must be non-negative"))
	}
	if t.MinutesPerVariant < 0 {
		errs = append(errs, fmt.Errorf("minutes_per_variant must be non-negative"))
	}
	if t.SimulatedEpochDelayMS < 0 {
		errs = append(errs, fmt.Errorf("simulated_epoch_delay_ms must be non-negative"))
	}

	return errors.Join(errs...)
}

func (i *InferenceConfig) Validate() error {
	var errs []error

	switch i.Backend {
	case "http":
		if i.URL == "" {
			errs = append(errs, fmt.Errorf("url cannot be empty when backend is http"))
		}
	case "simulated":
	default:
		errs = append(errs, fmt.Errorf("invalid backend: %s (valid: http, simulated)", i.Backend))
	}

	if i.TimeoutSec < 1 {
		errs = append(errs, fmt.Errorf("timeout_sec must be at least 1"))
	}

	return errors.Join(errs...)
}

func (e *EnsembleConfig) Validate() error {
	var errs []error

	for name, v := range map[string]float64{
		"very_high_min":   e.VeryHighMin,
		"high_min":        e.HighMin,
		"medium_min":      e.MediumMin,
		"uncertain_below": e.UncertainBelow,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("%s must be between 0 and 100", name))
		}
	}

	if !(e.VeryHighMin >= e.HighMin && e.HighMin >= e.MediumMin) {
		errs = append(errs, fmt.Errorf("thresholds must be ordered: very_high_min >= high_min >= medium_min"))
	}

	return errors.Join(errs...)
}

func (t *ThresholdsConfig) Validate() error {
	var errs []error

	if t.CPU.MaxPercent < 0 || t.CPU.MaxPercent > 100 {
		errs = append(errs, fmt.Errorf("cpu.max_percent must be between 0 and 100"))
	}

	if t.Memory.MaxPercent < 0 || t.Memory.MaxPercent > 100 {
		errs = append(errs, fmt.Errorf("memory.max_percent must be between 0 and 100"))
	}

	if t.GPU.MaxPercent < 0 || t.GPU.MaxPercent > 100 {
		errs = append(errs, fmt.Errorf("gpu.max_percent must be between 0 and 100"))
	}

	if t.VRAM.MaxPercent < 0 || t.VRAM.MaxPercent > 100 {
		errs = append(errs, fmt.Errorf("vram.max_percent must be between 0 and 100"))
	}

	if t.Storage.MinFreeGB < 0 {
		errs = append(errs, fmt.Errorf("storage.min_free_gb must be non-negative"))
	}

	return errors.Join(errs...)
}

func (m *MonitoringConfig) Validate() error {
	if m.IntervalMS < 100 {
		return fmt.Errorf("interval_ms must be at least 100, got %d", m.IntervalMS)
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", l.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[l.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", l.Format)
	}

	return nil
}

func (a *AuthConfig) Validate() error {
	if a.Enabled {
		if a.User == "" {
			return fmt.Errorf("user cannot be empty when auth is enabled")
		}
		if a.Password == "" {
			return fmt.Errorf("password cannot be empty when auth is enabled")
		}
	}
	return nil
}
