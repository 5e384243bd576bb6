package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleSpinner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarration lineKind = iota
	kindDialogue
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[The keeper is unavailable"):
		return kindError
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case containsQuotedSpeech(line):
		return kindDialogue
	default:
		return kindNarration
	}
}

// containsQuotedSpeech checks if a line contains speech in double quotes,
// straight or curly.
func containsQuotedSpeech(line string) bool {
	inQuote := false
	quoteLen := 0
	for _, r := range line {
		switch {
		case r == '"' || r == '“' || r == '”':
			if inQuote && quoteLen > 5 {
				return true
			}
			inQuote = !inQuote
			quoteLen = 0
		case inQuote:
			quoteLen++
		}
	}
	return false
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
