package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haskel/ensemblr/internal/config"
	"github.com/haskel/ensemblr/internal/dataset"
	"github.com/haskel/ensemblr/internal/inference"
	"github.com/haskel/ensemblr/internal/progress"
	"github.com/haskel/ensemblr/internal/training"
)

// newProgressStore opens the configured progress backend. File progress
// documents live next to the artifacts they describe.
func newProgressStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (progress.Store, error) {
	switch cfg.Progress.Backend {
	case "file", "":
		return progress.NewFileStore(cfg.Storage.ModelsDir, log), nil
	case "redis":
		st, err := progress.NewRedisStore(ctx, cfg.Progress.Redis.URL, cfg.Progress.Redis.KeyPrefix, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown progress backend: %s", cfg.Progress.Backend)
	}
}

func newTrainer(cfg *config.Config, log *slog.Logger) (training.Trainer, error) {
	switch cfg.Training.Trainer {
	case "command":
		return &training.CommandTrainer{
			Command: cfg.Training.Command,
			Args:    cfg.Training.Args,
			Logger:  log,
		}, nil
	case "simulated":
		return &training.SimulatedTrainer{EpochDelay: cfg.SimulatedEpochDelay()}, nil
	default:
		return nil, fmt.Errorf("unknown trainer: %s", cfg.Training.Trainer)
	}
}

func newBackend(cfg *config.Config, ds *dataset.DirProvider) (inference.Backend, error) {
	switch cfg.Inference.Backend {
	case "http":
		return inference.NewHTTPBackend(cfg.Inference.URL, cfg.InferenceTimeout()), nil
	case "simulated":
		return &inference.SimulatedBackend{Classes: ds}, nil
	default:
		return nil, fmt.Errorf("unknown inference backend: %s", cfg.Inference.Backend)
	}
}

// monitorPaths returns the folders whose disks the sampler watches.
func monitorPaths(cfg *config.Config) []string {
	if len(cfg.Monitoring.Paths) > 0 {
		return cfg.Monitoring.Paths
	}
	return []string{cfg.Storage.DataDir, cfg.Storage.ModelsDir}
}
