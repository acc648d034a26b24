package config

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        5000,
			PIDFile:     "/var/run/ensemblr.pid",
			MaxUploadMB: 16,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 100,
				Burst:             200,
				PerIP:             true,
			},
		},
		Auth: AuthConfig{
			Enabled:  false,
			User:     "",
			Password: "",
		},
		Storage: StorageConfig{
			DataDir:    "data",
			ModelsDir:  "models",
			MetricsDir: "metrics",
			UploadsDir: "uploads",
		},
		Progress: ProgressConfig{
			Backend: "file",
			Redis: RedisConfig{
				URL:       "redis://localhost:6379/0",
				KeyPrefix: "ensemblr:progress:",
			},
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "metrics/history.db",
		},
		Training: TrainingConfig{
			Trainer:               "command",
			Command:               "python3",
			Args:                  []string{"train.py", "--model", "{variant}", "--data", "{data_dir}", "--output", "{artifact}", "--epochs", "{epochs}"},
			Epochs:                20,
			TimeoutSec:            7200,
			MinutesPerVariant:     10,
			SimulatedEpochDelayMS: 200,
		},
		Inference: InferenceConfig{
			Backend:    "http",
			URL:        "http://127.0.0.1:8501",
			TimeoutSec: 30,
		},
		Ensemble: EnsembleConfig{
			VeryHighMin:    90,
			HighMin:        75,
			MediumMin:      60,
			UncertainBelow: 70,
		},
		Preflight: PreflightConfig{
			Enabled: false,
			Thresholds: ThresholdsConfig{
				CPU: CPUThreshold{
					MaxPercent: 90.0,
				},
				Memory: MemoryThreshold{
					MaxPercent: 85.0,
				},
				GPU: GPUThreshold{
					MaxPercent: 90.0,
				},
				VRAM: VRAMThreshold{
					MaxPercent: 85.0,
				},
				Storage: StorageThreshold{
					MinFreeGB: 2.0,
				},
			},
		},
		Monitoring: MonitoringConfig{
			IntervalMS: 1000,
			Paths:      []string{"/"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
