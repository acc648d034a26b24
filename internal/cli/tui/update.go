package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		refresh(m.config),
		tick(m.config.RefreshInterval),
		m.spinner.Tick,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statusMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = msg.data
			m.lastUpdated = time.Now()
		}
		return m, nil

	case rankingsMsg:
		if msg.err == nil {
			m.rankings = msg.data
		}
		return m, nil

	case hostMsg:
		if msg.err != nil {
			m.host = nil
		} else {
			m.host = msg.data
		}
		return m, nil

	case stopMsg:
		switch {
		case msg.err != nil:
			m.notice = "stop failed: " + msg.err.Error()
		case msg.stopped:
			m.notice = "stop requested, current model finishes first"
		default:
			m.notice = "no training job is running"
		}
		return m, fetchStatus(m.config)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m.loading = true
		return m, tea.Batch(
			refresh(m.config),
			tick(m.config.RefreshInterval),
		)
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		m.loading = true
		return m, refresh(m.config)

	case "s":
		return m, stopTraining(m.config)

	case "up", "k":
		if m.tableOffset > 0 {
			m.tableOffset--
		}
		return m, nil

	case "down", "j":
		if m.rankings != nil && m.tableOffset < len(m.rankings.Rankings)-1 {
			m.tableOffset++
		}
		return m, nil
	}

	return m, nil
}
