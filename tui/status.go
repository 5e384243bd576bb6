package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/keepercore/engine"
)

// investigatorSummary is the compact per-investigator status segment.
// "Harvey HP 12/12 SAN 99/99", with a marker when unconscious or insane.
func investigatorSummary(st engine.Status) string {
	s := fmt.Sprintf("%s HP %s SAN %s", st.Name, st.HP, st.SAN)
	switch {
	case !st.Conscious:
		s += " (KO)"
	case !st.Sane:
		s += " (mad)"
	}
	return s
}

// renderStatusBar produces a full-width inverted status line showing the
// scenario, the keeper's activity, and each investigator's HP and SAN.
func (m Model) renderStatusBar() string {
	left := " " + m.session.Title
	if m.busy {
		left += " | " + m.spinner.View() + " The keeper ponders..."
	}

	players := m.session.Engine.Players.All()
	parts := make([]string, len(players))
	for i, r := range players {
		parts[i] = investigatorSummary(engine.StatusOf(r))
	}
	right := strings.Join(parts, " | ") + " "

	// Fall back to a count when the summaries do not fit.
	if lipgloss.Width(left)+lipgloss.Width(right)+2 >= m.width {
		right = fmt.Sprintf("Investigators: %d ", len(players))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
