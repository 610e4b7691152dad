package tui

import (
	"fmt"
	"strings"

	"github.com/psantana5/vidgen/pkg/models"
)

const barWidth = 40

// View renders the current state
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("vidgen"))
	b.WriteString(" ")
	b.WriteString(InfoStyle.Render(fmt.Sprintf("%s · %d scenes · %.0fs", m.req.Style, m.req.NumScenes, m.req.TotalDuration())))
	b.WriteString("\n\n")

	b.WriteString(InfoStyle.Render("Prompt: "))
	b.WriteString(truncate(m.req.Prompt, m.width-8))
	b.WriteString("\n\n")

	s := m.snapshot
	b.WriteString(renderState(s.State))
	if s.HasJob() {
		b.WriteString(InfoStyle.Render("  job " + string(s.JobID)))
	}
	b.WriteString("\n")
	b.WriteString(renderBar(s.Progress))
	b.WriteString(fmt.Sprintf(" %3.0f%%\n", s.Progress))

	if s.Message != "" {
		switch s.State {
		case models.StateFailed:
			b.WriteString(ErrorStyle.Render(s.Message))
		default:
			b.WriteString(s.Message)
		}
		b.WriteString("\n")
	}

	if s.State == models.StateCompleted {
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(SuccessStyle.Render("Video ready: ") + s.VideoURL))
		b.WriteString("\n")
	}

	if m.submitErr != nil && s.State != models.StateFailed {
		b.WriteString(WarningStyle.Render(m.submitErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(m.help()))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) help() string {
	if m.snapshot.State.IsActive() {
		return "c: cancel • q: quit"
	}
	return "r: run again • q: quit"
}

func renderState(state models.JobState) string {
	label := strings.ToUpper(string(state))
	switch state {
	case models.StateCompleted:
		return SuccessStyle.Render(label)
	case models.StateFailed:
		return ErrorStyle.Render(label)
	default:
		return StateStyle.Render(label)
	}
}

func renderBar(progress float64) string {
	filled := int(progress / 100 * barWidth)
	filled = max(0, min(barWidth, filled))
	return BarFilledStyle.Render(strings.Repeat("█", filled)) +
		BarEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

func truncate(s string, n int) string {
	if n <= 3 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
