package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
)

// Config holds TUI configuration
type Config struct {
	ServerURL       string
	RefreshInterval time.Duration
	User            string
	Password        string
	// Inline renders in the normal screen buffer so output stays in the
	// scrollback.
	Inline bool
}

// Model is the dashboard state.
type Model struct {
	config Config

	status   *TrainingStatus
	rankings *Comparison
	host     *HostReport

	bar     progress.Model
	spinner spinner.Model

	width       int
	height      int
	loading     bool
	err         error
	notice      string
	lastUpdated time.Time

	tableOffset int
}

type VariantProgress struct {
	Status   string  `json:"status"`
	Epochs   int     `json:"epochs"`
	Accuracy float64 `json:"accuracy"`
	Error    string  `json:"error,omitempty"`
}

// TrainingStatus mirrors /api/training/status.
type TrainingStatus struct {
	IsTraining     bool                       `json:"is_training"`
	JobID          string                     `json:"job_id"`
	CurrentModel   string                     `json:"current_model"`
	Progress       map[string]VariantProgress `json:"progress"`
	StartTime      *time.Time                 `json:"start_time"`
	SelectedModels []string                   `json:"selected_models"`
	StopRequested  bool                       `json:"stop_requested"`
	EpochsPerModel int                        `json:"epochs_per_model"`
}

type Ranking struct {
	Rank          int     `json:"rank"`
	Model         string  `json:"model"`
	ModelName     string  `json:"model_name"`
	BestAccuracy  float64 `json:"best_accuracy"`
	FinalAccuracy float64 `json:"final_accuracy"`
	TrainingTime  float64 `json:"training_time"`
}

// Comparison mirrors /api/analytics/comparison.
type Comparison struct {
	Rankings []Ranking `json:"rankings"`
}

// HostReport mirrors /api/system.
type HostReport struct {
	Allowed  bool     `json:"allowed"`
	Reasons  []string `json:"reasons"`
	Snapshot *struct {
		CPU struct {
			UsagePercent float64 `json:"usage_percent"`
		} `json:"cpu"`
		Memory struct {
			UsagePercent float64 `json:"usage_percent"`
		} `json:"memory"`
		GPUs []struct {
			Index          int     `json:"index"`
			Name           string  `json:"name"`
			UsagePercent   float64 `json:"usage_percent"`
			VRAMUsedBytes  uint64  `json:"vram_used_bytes"`
			VRAMTotalBytes uint64  `json:"vram_total_bytes"`
		} `json:"gpus"`
	} `json:"snapshot"`
}

func NewModel(cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		config:  cfg,
		loading: true,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		spinner: s,
	}
}

// fraction is the share of epochs a variant has completed.
func (s *TrainingStatus) fraction(variant string) float64 {
	p := s.Progress[variant]
	if p.Status == "completed" {
		return 1
	}
	if s.EpochsPerModel <= 0 {
		return 0
	}
	return min(float64(p.Epochs)/float64(s.EpochsPerModel), 1)
}
