package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	// Layout sizes
	headerHeight := 1
	footerHeight := 2
	contentHeight := max(4, m.height-headerHeight-footerHeight)
	contentWidth := max(20, m.width)

	header := titleStyle.Render(" dataviewer ─ frame browser ")
	header = lipgloss.NewStyle().Width(contentWidth).Render(header)

	// Preview box takes the left half, canonical text the right.
	previewW := max(8, contentWidth/2-4)
	previewH := max(2, contentHeight-2)
	preview := boxStyle.Render(m.renderPreview(previewW, previewH))

	textW := max(8, contentWidth-lipgloss.Width(preview)-1)
	text := m.frameText(textW, contentHeight)

	body := lipgloss.JoinHorizontal(lipgloss.Top, preview, " ", text)

	status := dimStyle.Render(" " + m.status() + " ")
	footer := lipgloss.JoinVertical(lipgloss.Left, status, m.help.View(m.keys))

	ui := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	return appStyle.Width(contentWidth).Height(m.height).Render(ui)
}

// frameText renders the current frame in canonical form, one shape per line, cut to fit.
func (m Model) frameText(w, h int) string {
	if m.err != nil {
		return errorStyle.Width(w).Render("error: " + m.err.Error())
	}
	lines := strings.Split(m.serializer.Serialize(m.shapes), "\n")
	if len(lines) > h {
		lines = append(lines[:h-1], dimStyle.Render("  …"))
	}
	for i, l := range lines {
		if lipgloss.Width(l) > w {
			lines[i] = string([]rune(l)[:max(0, w-1)]) + "…"
		}
	}
	return strings.Join(lines, "\n")
}
