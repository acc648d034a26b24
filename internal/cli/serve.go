package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/ensemblr/internal/analytics"
	"github.com/haskel/ensemblr/internal/bom"
	"github.com/haskel/ensemblr/internal/capacity"
	"github.com/haskel/ensemblr/internal/config"
	"github.com/haskel/ensemblr/internal/dataset"
	"github.com/haskel/ensemblr/internal/ensemble"
	"github.com/haskel/ensemblr/internal/events"
	"github.com/haskel/ensemblr/internal/history"
	"github.com/haskel/ensemblr/internal/inference"
	"github.com/haskel/ensemblr/internal/logger"
	"github.com/haskel/ensemblr/internal/monitor"
	"github.com/haskel/ensemblr/internal/registry"
	"github.com/haskel/ensemblr/internal/server"
	"github.com/haskel/ensemblr/internal/storage"
	"github.com/haskel/ensemblr/internal/training"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ensemblr server",
	Long: `Run the ensemblr server in foreground mode.

With --demo the server trains and predicts with simulated models, which
needs neither a training script nor a model-serving backend.`,
	RunE: runServe,
}

var demoMode bool

func init() {
	serveCmd.Flags().BoolVar(&demoMode, "demo", false, "use the simulated trainer and inference backend")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault(cfgFile)

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}
	if demoMode {
		cfg.Training.Trainer = "simulated"
		cfg.Inference.Backend = "simulated"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	log.Info("ensemblr starting",
		"version", Version,
		"config", cfgFile,
		"trainer", cfg.Training.Trainer,
		"inference", cfg.Inference.Backend,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.Default()
	ds := dataset.NewDirProvider(cfg.Storage.DataDir, log)
	st := storage.New(cfg.Storage.ModelsDir, cfg.Storage.MetricsDir, log)
	if err := st.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to prepare storage: %w", err)
	}
	for _, dir := range []string{cfg.Storage.DataDir, cfg.Storage.UploadsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	progressStore, err := newProgressStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer progressStore.Close()

	var ledger *history.Store
	if cfg.History.Enabled {
		ledger, err = history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open training history: %w", err)
		}
		defer ledger.Close()
	}

	sampler := monitor.NewSampler(monitor.Default(monitorPaths(cfg)), cfg.MonitoringInterval(), log)
	sampler.Start(ctx)
	defer sampler.Stop()
	gate := capacity.NewGate(sampler, cfg.Preflight.Thresholds, log)

	hub := events.NewHub(64)

	trainer, err := newTrainer(cfg, log)
	if err != nil {
		return err
	}

	opts := training.Options{
		Registry:          reg,
		Dataset:           ds,
		Progress:          progressStore,
		Storage:           st,
		Trainer:           trainer,
		DataDir:           cfg.Storage.DataDir,
		Epochs:            cfg.Training.Epochs,
		MinutesPerVariant: cfg.Training.MinutesPerVariant,
		VariantTimeout:    cfg.TrainingTimeout(),
		Events:            hub,
		Logger:            log,
	}
	if cfg.Preflight.Enabled {
		opts.Preflight = gate
	}
	if ledger != nil {
		opts.History = ledger
	}
	orch := training.New(opts)

	backend, err := newBackend(cfg, ds)
	if err != nil {
		return err
	}
	loader := inference.NewLoader(reg, st, backend, log)
	analyzer := ensemble.NewAnalyzer(ensemble.Thresholds{
		VeryHigh:       cfg.Ensemble.VeryHighMin,
		High:           cfg.Ensemble.HighMin,
		Medium:         cfg.Ensemble.MediumMin,
		UncertainBelow: cfg.Ensemble.UncertainBelow,
	})
	predictor := inference.NewPredictor(loader, reg, analyzer, log)
	predictor.Init(ctx)

	deps := server.Deps{
		Registry:     reg,
		Dataset:      ds,
		Storage:      st,
		Orchestrator: orch,
		Loader:       loader,
		Predictor:    predictor,
		Ranker:       analytics.NewRanker(reg, st, log),
		BOM:          bom.NewBuilder(reg, st, Version),
		Events:       hub,
		Gate:         gate,
	}
	if ledger != nil {
		deps.History = ledger
	}

	if cfg.Server.PIDFile != "" {
		if err := writePIDFile(cfg.Server.PIDFile); err != nil {
			log.Warn("failed to write PID file", "error", err)
		} else {
			defer os.Remove(cfg.Server.PIDFile)
		}
	}

	srv := server.New(cfg, deps, log, Version)

	sighupCh := make(chan os.Signal, 1)
	sigCh := make(chan os.Signal, 1)
	shutdownDone := make(chan struct{})

	signal.Notify(sighupCh, syscall.SIGHUP)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-sighupCh:
				log.Info("SIGHUP received, reloading configuration")

				newCfg := config.LoadOrDefault(cfgFile)
				if err := newCfg.Validate(); err != nil {
					log.Error("invalid configuration, reload aborted", "error", err)
					continue
				}

				srv.ReloadConfig(newCfg)
			case <-shutdownDone:
				return
			}
		}
	}()

	go func() {
		<-sigCh

		log.Info("shutdown signal received")

		signal.Stop(sighupCh)
		signal.Stop(sigCh)
		close(shutdownDone)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
		if err := orch.Shutdown(shutdownCtx); err != nil {
			log.Error("training shutdown error", "error", err)
		}

		cancel()
	}()

	log.Info("ensemblr ready", "addr", srv.Addr())

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("ensemblr stopped")
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}
