package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sections []string

	sections = append(sections, m.renderTitleBar())

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	if m.notice != "" {
		sections = append(sections, noticeStyle.Render("  "+m.notice))
	}

	if m.status != nil {
		sections = append(sections, m.renderTraining())
	}

	if m.rankings != nil && len(m.rankings.Rankings) > 0 {
		sections = append(sections, m.renderRankings())
	}

	if m.host != nil && m.host.Snapshot != nil {
		sections = append(sections, m.renderHost())
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitleBar() string {
	title := titleStyle.Render("ENSEMBLR TRAINING")

	refreshInfo := fmt.Sprintf("↻ %s", m.config.RefreshInterval)
	if m.loading {
		refreshInfo = m.spinner.View() + " loading..."
	}

	help := helpStyle.Render("q:quit r:refresh s:stop ↑↓:scroll")

	rightPart := fmt.Sprintf("%s | %s", refreshInfo, help)
	spacing := m.width - lipgloss.Width(title) - lipgloss.Width(rightPart) - 2
	if spacing < 1 {
		spacing = 1
	}

	return fmt.Sprintf("%s%s%s", title, strings.Repeat(" ", spacing), helpStyle.Render(rightPart))
}

func (m Model) renderTraining() string {
	st := m.status
	var lines []string

	if st.JobID == "" {
		lines = append(lines, sectionHeaderStyle.Render("  Training"))
		lines = append(lines, labelStyle.Render("  No training job has run yet."))
		return strings.Join(lines, "\n")
	}

	state := "finished"
	switch {
	case st.IsTraining:
		state = m.spinner.View() + " training"
	case st.StopRequested:
		state = "stopped"
	}
	header := fmt.Sprintf("  Training %s  %s", shortID(st.JobID), state)
	if st.StartTime != nil {
		header += labelStyle.Render("  started " + st.StartTime.Local().Format("15:04:05"))
	}
	lines = append(lines, sectionHeaderStyle.Render(header))

	for _, v := range st.SelectedModels {
		p := st.Progress[v]
		name := fmt.Sprintf("%-14s", v)
		if v == st.CurrentModel {
			name = bestStyle.Render(name)
		}
		row := fmt.Sprintf("  %s %s %s %3d/%-3d %5.1f%%",
			name,
			m.bar.ViewAs(st.fraction(v)),
			statusStyle(p.Status).Render(fmt.Sprintf("%-10s", p.Status)),
			p.Epochs, st.EpochsPerModel,
			p.Accuracy,
		)
		lines = append(lines, row)
		if p.Error != "" {
			lines = append(lines, errorStyle.Render("    "+p.Error))
		}
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderRankings() string {
	var lines []string
	lines = append(lines, sectionHeaderStyle.Render("  Rankings"))

	header := fmt.Sprintf("  %4s │ %-16s │ %7s │ %7s │ %8s", "Rank", "Model", "Best", "Final", "Time")
	lines = append(lines, tableHeaderStyle.Render(header))

	rankings := m.rankings.Rankings
	maxVisible := 5
	start := m.tableOffset
	if start >= len(rankings) {
		start = 0
	}
	end := min(start+maxVisible, len(rankings))

	for _, r := range rankings[start:end] {
		row := fmt.Sprintf("  %4d │ %-16s │ %6.1f%% │ %6.1f%% │ %8s",
			r.Rank, r.ModelName, r.BestAccuracy, r.FinalAccuracy,
			(time.Duration(r.TrainingTime) * time.Second).String())
		if r.Rank == 1 {
			lines = append(lines, bestStyle.Render(row))
		} else {
			lines = append(lines, tableCellStyle.Render(row))
		}
	}

	if len(rankings) > maxVisible {
		lines = append(lines, helpStyle.Render(fmt.Sprintf("  [%d-%d of %d models]", start+1, end, len(rankings))))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderHost() string {
	s := m.host.Snapshot
	var lines []string

	verdict := valueStyle.Render("ready for training")
	if !m.host.Allowed {
		verdict = errorStyle.Render("over limits: " + strings.Join(m.host.Reasons, ", "))
	}
	lines = append(lines, sectionHeaderStyle.Render("  Host ")+verdict)

	cpuBar := renderUsageBar("CPU", s.CPU.UsagePercent, 20)
	memBar := renderUsageBar("Memory", s.Memory.UsagePercent, 20)
	lines = append(lines, fmt.Sprintf("  %s    %s", cpuBar, memBar))

	for _, gpu := range s.GPUs {
		vramPercent := 0.0
		if gpu.VRAMTotalBytes > 0 {
			vramPercent = float64(gpu.VRAMUsedBytes) / float64(gpu.VRAMTotalBytes) * 100
		}
		lines = append(lines, fmt.Sprintf("  %s    %s",
			renderUsageBar(fmt.Sprintf("GPU %d", gpu.Index), gpu.UsagePercent, 12),
			renderUsageBar("VRAM", vramPercent, 12),
		))
	}

	return strings.Join(lines, "\n")
}

func renderUsageBar(label string, percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))

	color := getProgressColor(percent)
	filledBar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	emptyBar := progressBarEmptyStyle.Render(strings.Repeat("░", width-filled))

	return fmt.Sprintf("%s [%s%s] %5.1f%%", labelStyle.Render(label), filledBar, emptyBar, percent)
}

func (m Model) renderFooter() string {
	if m.lastUpdated.IsZero() {
		return ""
	}
	return helpStyle.Render(fmt.Sprintf("  Server: %s │ Updated: %s",
		m.config.ServerURL, m.lastUpdated.Format("15:04:05")))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
