package config

import "time"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Progress   ProgressConfig   `yaml:"progress"`
	History    HistoryConfig    `yaml:"history"`
	Training   TrainingConfig   `yaml:"training"`
	Inference  InferenceConfig  `yaml:"inference"`
	Ensemble   EnsembleConfig   `yaml:"ensemble"`
	Preflight  PreflightConfig  `yaml:"preflight"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Debug      DebugConfig      `yaml:"debug"`
}

// DebugConfig holds debug mode configuration.
type DebugConfig struct {
	// Enabled exposes /debug/* endpoints.
	Enabled bool `yaml:"enabled"`
	// Auth holds debug-specific authentication.
	// If not set but main auth is enabled, main auth is used.
	Auth DebugAuthConfig `yaml:"auth"`
}

// DebugAuthConfig holds debug endpoint authentication.
type DebugAuthConfig struct {
	// Token for Bearer authentication on debug endpoints.
	Token string `yaml:"token"`
}

type ServerConfig struct {
	Host        string          `yaml:"host"`
	Port        int             `yaml:"port"`
	PIDFile     string          `yaml:"pid_file"`
	MaxUploadMB int             `yaml:"max_upload_mb"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Profiling   ProfilingConfig `yaml:"profiling"`
	// AllowedOrigins lists extra browser origins, such as
	// "https://dash.example.com", that may open the training stream.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	// PerIP keeps one bucket per client address instead of a global one.
	PerIP bool `yaml:"per_ip"`
}

type ProfilingConfig struct {
	Enabled bool `yaml:"enabled"`
}

type AuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// StorageConfig lays out the on-disk folders shared with the trainer and
// the inference backend.
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	ModelsDir  string `yaml:"models_dir"`
	MetricsDir string `yaml:"metrics_dir"`
	UploadsDir string `yaml:"uploads_dir"`
}

// ProgressConfig selects where per-epoch progress records live.
// Backend: file, redis
type ProgressConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TrainingConfig configures the external training routine.
type TrainingConfig struct {
	// Trainer type: command, simulated
	Trainer string `yaml:"trainer"`

	// Command and Args are used by the command trainer. Args may contain
	// {variant}, {data_dir}, {artifact} and {epochs} placeholders.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`

	Epochs     int `yaml:"epochs"`
	TimeoutSec int `yaml:"timeout_sec"`

	// MinutesPerVariant feeds the estimated_time hint of a start response.
	MinutesPerVariant int `yaml:"minutes_per_variant"`

	// SimulatedEpochDelayMS paces the simulated trainer.
	SimulatedEpochDelayMS int `yaml:"simulated_epoch_delay_ms"`
}

// InferenceConfig configures the model-serving backend.
type InferenceConfig struct {
	// Backend type: http, simulated
	Backend    string `yaml:"backend"`
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// EnsembleConfig holds the confidence policy.
type EnsembleConfig struct {
	VeryHighMin float64 `yaml:"very_high_min"`
	HighMin     float64 `yaml:"high_min"`
	MediumMin   float64 `yaml:"medium_min"`

	// UncertainBelow marks a fused confidence as uncertain in explanations.
	UncertainBelow float64 `yaml:"uncertain_below"`
}

// PreflightConfig gates training start on host capacity.
type PreflightConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

type ThresholdsConfig struct {
	CPU     CPUThreshold     `yaml:"cpu"`
	Memory  MemoryThreshold  `yaml:"memory"`
	GPU     GPUThreshold     `yaml:"gpu"`
	VRAM    VRAMThreshold    `yaml:"vram"`
	Storage StorageThreshold `yaml:"storage"`
}

type CPUThreshold struct {
	MaxPercent float64 `yaml:"max_percent"`
}

type MemoryThreshold struct {
	MaxPercent float64 `yaml:"max_percent"`
}

type GPUThreshold struct {
	MaxPercent float64 `yaml:"max_percent"`
}

type VRAMThreshold struct {
	MaxPercent float64 `yaml:"max_percent"`
}

type StorageThreshold struct {
	MinFreeGB float64 `yaml:"min_free_gb"`
}

type MonitoringConfig struct {
	IntervalMS int      `yaml:"interval_ms"`
	Paths      []string `yaml:"paths"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) MonitoringInterval() time.Duration {
	return time.Duration(c.Monitoring.IntervalMS) * time.Millisecond
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

func (c *Config) TrainingTimeout() time.Duration {
	return time.Duration(c.Training.TimeoutSec) * time.Second
}

func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSec) * time.Second
}

func (c *Config) SimulatedEpochDelay() time.Duration {
	return time.Duration(c.Training.SimulatedEpochDelayMS) * time.Millisecond
}
