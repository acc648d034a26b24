package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestFraction(t *testing.T) {
	st := &TrainingStatus{
		EpochsPerModel: 10,
		Progress: map[string]VariantProgress{
			"resnet":    {Status: "training", Epochs: 4},
			"mobilenet": {Status: "completed", Epochs: 7},
			"densenet":  {Status: "training", Epochs: 12},
		},
	}

	tests := []struct {
		variant string
		want    float64
	}{
		{"resnet", 0.4},
		{"mobilenet", 1},
		{"densenet", 1},
		{"efficientnet", 0},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			if got := st.fraction(tt.variant); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if got := (&TrainingStatus{}).fraction("resnet"); got != 0 {
		t.Errorf("expected 0 without epoch budget, got %v", got)
	}
}

func newTestModel() Model {
	m := NewModel(Config{ServerURL: "http://localhost:5000", RefreshInterval: time.Second})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func TestUpdate_Status(t *testing.T) {
	m := newTestModel()

	next, _ := m.Update(statusMsg{data: &TrainingStatus{
		IsTraining:     true,
		JobID:          "0123456789abcdef",
		CurrentModel:   "resnet",
		SelectedModels: []string{"resnet"},
		EpochsPerModel: 5,
		Progress:       map[string]VariantProgress{"resnet": {Status: "training", Epochs: 2, Accuracy: 61.5}},
	}})
	m = next.(Model)

	if m.loading || m.status == nil || m.lastUpdated.IsZero() {
		t.Fatalf("status not applied: %+v", m)
	}
	view := m.View()
	for _, want := range []string{"ENSEMBLR TRAINING", "01234567", "resnet", "61.5%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	next, _ = m.Update(statusMsg{err: errors.New("connection refused")})
	m = next.(Model)
	if m.err == nil || !strings.Contains(m.View(), "connection refused") {
		t.Error("expected error in view")
	}
}

func TestUpdate_Stop(t *testing.T) {
	tests := []struct {
		name string
		msg  stopMsg
		want string
	}{
		{"stopped", stopMsg{stopped: true}, "stop requested"},
		{"idle", stopMsg{}, "no training job"},
		{"failed", stopMsg{err: errors.New("boom")}, "stop failed: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, cmd := newTestModel().Update(tt.msg)
			m := next.(Model)
			if !strings.Contains(m.notice, tt.want) {
				t.Errorf("expected notice %q, got %q", tt.want, m.notice)
			}
			if cmd == nil {
				t.Error("expected status refresh command")
			}
		})
	}
}

func TestRankingsScroll(t *testing.T) {
	m := newTestModel()
	rankings := &Comparison{}
	for i := 1; i <= 7; i++ {
		rankings.Rankings = append(rankings.Rankings, Ranking{Rank: i, ModelName: "model"})
	}
	next, _ := m.Update(rankingsMsg{data: rankings})
	m = next.(Model)

	if !strings.Contains(m.View(), "[1-5 of 7 models]") {
		t.Errorf("expected scroll indicator, got:\n%s", m.View())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.tableOffset != 1 {
		t.Errorf("expected offset 1, got %d", m.tableOffset)
	}
}

func TestRun(t *testing.T) {
	cfg := Config{ServerURL: "http://127.0.0.1:1", RefreshInterval: time.Hour, Inline: true}

	t.Run("quits on key", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := run(ctx, cfg, tea.WithInput(strings.NewReader("q")), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	})

	t.Run("cancelled context is a clean exit", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := run(ctx, cfg, tea.WithInput(strings.NewReader("")), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	})
}
