package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return run(ctx, cfg)
}

func run(ctx context.Context, cfg Config, extra ...tea.ProgramOption) error {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if !cfg.Inline {
		opts = append(opts, tea.WithAltScreen())
	}
	opts = append(opts, extra...)

	p := tea.NewProgram(NewModel(cfg), opts...)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("dashboard at %s stopped: %w", cfg.ServerURL, err)
	}
	return nil
}
