package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/daviddao/antmatch_viewer/internal/replay"
)

// brainHeader is the number of panel lines above the automaton listing.
const brainHeader = 10

// renderBrain returns the automaton listing, exactly brains.Rows() lines
// of at most width cells.
func (m uiModel) renderBrain(width int) []string {
	out := make([]string, 0, m.brains.Rows())
	for _, row := range m.brains.Visible() {
		line := truncate(fmt.Sprintf("%4d  %s", row.State, row.Text), width)
		if row.Marked {
			out = append(out, brainMarkStyle.Render(line+strings.Repeat(" ", max(0, width-lipgloss.Width(line)))))
		} else {
			out = append(out, brainRowStyle.Render(line))
		}
	}
	for len(out) < m.brains.Rows() {
		out = append(out, "")
	}
	return out
}

// renderPanel draws the side panel: frame and colony summary, the selected
// ant and the automaton listing.
func (m uiModel) renderPanel(height int) []string {
	width := panelWidth - 2
	var lines []string

	lines = append(lines, headerStyle.Render("frame ")+m.viewer.Indicator())
	f := m.viewer.Frame()
	for _, c := range replay.Colors {
		label := colonyStyle(c).Render(fmt.Sprintf("%-6s", c))
		if f == nil {
			lines = append(lines, label+dimStyle.Render(" -"))
			continue
		}
		ants, carrying := f.Count(c)
		lines = append(lines, fmt.Sprintf("%s %d ants, %d carrying", label, ants, carrying))
	}
	lines = append(lines, "")

	if a, ok := m.viewer.SelectedAnt(); ok {
		lines = append(lines,
			headerStyle.Render("ant ")+colonyStyle(a.Color).Render(fmt.Sprintf("#%d %s", a.ID, a.Color)),
			fmt.Sprintf("at %d,%d  facing %s", a.Col, a.Row, dirNames[a.Dir]),
			fmt.Sprintf("state %d  resting %d", a.State, a.Resting),
			foodLabel(a.HasFood),
		)
	} else if id, ok := m.viewer.Selection().Selected(); ok {
		lines = append(lines, headerStyle.Render("ant ")+fmt.Sprintf("#%d", id), dimStyle.Render("not in this frame"), "", "")
	} else {
		lines = append(lines, dimStyle.Render("no ant selected"), "", "", "")
	}
	lines = append(lines, "")
	lines = append(lines, headerStyle.Render(fmt.Sprintf("%s brain", m.brains.Color()))+dimStyle.Render(fmt.Sprintf(" (%d states)", m.brains.Len())))

	lines = append(lines, m.renderBrain(width)...)
	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = lines[:height]
	for i, l := range lines {
		lines[i] = truncate(l, width)
	}
	return lines
}

func foodLabel(has bool) string {
	if has {
		return foodStyle.Render("carrying food")
	}
	return dimStyle.Render("no food")
}

var dirNames = [6]string{"E", "SE", "SW", "W", "NW", "NE"}
