package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/nathoo/keepercore/keeper"
	"github.com/nathoo/keepercore/session"
)

// rawLine stores an unstyled output block with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for meta-command output
}

// Model is the Bubble Tea model for a keeper session.
type Model struct {
	session *session.Session
	ctx     context.Context
	cancel  context.CancelFunc

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	history  *History

	rawLines []rawLine // accumulated narrative (unstyled, for re-wrapping)

	// markdown renders narration through glamour; the renderer is rebuilt
	// when the width changes.
	markdown      bool
	renderer      *glamour.TermRenderer
	rendererWidth int

	width    int
	height   int
	ready    bool
	busy     bool
	quitting bool
}

// outputMsg carries meta-command or intro output into the Update loop.
type outputMsg struct {
	input    string
	lines    []string
	isSystem bool
}

// turnDoneMsg carries a finished keeper turn.
type turnDoneMsg struct {
	out keeper.Outcome
	err error
}

// New creates a TUI model for the session. Canceling ctx aborts a running
// turn.
func New(ctx context.Context, s *session.Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 512
	ti.PromptStyle = styleInputPrompt

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleSpinner

	ctx, cancel := context.WithCancel(ctx)
	return Model{
		session:  s,
		ctx:      ctx,
		cancel:   cancel,
		input:    ti,
		spinner:  sp,
		history:  NewHistory(100),
		markdown: true,
	}
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, s *session.Session) error {
	m := New(ctx, s)
	defer m.cancel()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init shows the title and intro.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	title, intro := m.session.Title, m.session.Intro
	return func() tea.Msg {
		var lines []string
		if title != "" {
			lines = append(lines, "# "+title)
		}
		if intro != "" {
			lines = append(lines, intro)
		}
		return outputMsg{lines: lines}
	}
}

// turn runs the keeper off the Update loop.
func (m Model) turn(input string) tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		out, err := s.Play(ctx, input)
		return turnDoneMsg{out: out, err: err}
	}
}

// Update handles key presses, resizes, spinner ticks and turn results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			m.cancel()
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var spCmd tea.Cmd
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd

	case outputMsg:
		m = m.appendOutput(msg)

	case turnDoneMsg:
		m.busy = false
		m = m.appendOutput(outputMsg{lines: m.session.Narration(msg.out, msg.err)})
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line. Input is ignored while a
// turn is running.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	if strings.HasPrefix(input, "/") {
		output, quit := m.session.Meta(m.ctx, input)
		m = m.appendOutput(outputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}
		return m, nil
	}

	m.busy = true
	m.rawLines = append(m.rawLines, rawLine{text: "> " + input, isInput: true})
	m.refreshViewport()
	return m, tea.Batch(m.spinner.Tick, m.turn(input))
}

// appendOutput adds lines to the narrative and refreshes the viewport.
// Consecutive narration lines are kept together as one markdown block.
func (m Model) appendOutput(msg outputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + msg.input, isInput: true,
		})
	}

	var block []string
	flush := func() {
		if len(block) > 0 {
			m.rawLines = append(m.rawLines, rawLine{text: strings.Join(block, "\n"), kind: kindNarration})
			block = nil
		}
	}
	for _, line := range msg.lines {
		if msg.isSystem {
			m.rawLines = append(m.rawLines, rawLine{text: line, isSystem: true})
			continue
		}
		kind := classifyLine(line)
		if kind == kindNarration || kind == kindDialogue {
			block = append(block, line)
			continue
		}
		flush()
		m.rawLines = append(m.rawLines, rawLine{text: line, kind: kind})
	}
	flush()

	// Blank line separator between turns.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wordWrap(rl.text, width)))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wordWrap(rl.text, width-2)))
		case rl.kind == kindNarration:
			styled = append(styled, m.renderNarration(rl.text, width))
		default:
			styled = append(styled, renderLineKind(wordWrap(rl.text, width), rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// renderNarration renders keeper prose as markdown, falling back to plain
// wrapped text.
func (m *Model) renderNarration(text string, width int) string {
	if m.markdown {
		if m.renderer == nil || m.rendererWidth != width {
			r, err := glamour.NewTermRenderer(
				glamour.WithStandardStyle("dark"),
				glamour.WithWordWrap(width),
			)
			if err == nil {
				m.renderer, m.rendererWidth = r, width
			}
		}
		if m.renderer != nil {
			if out, err := m.renderer.Render(text); err == nil {
				return strings.Trim(out, "\n")
			}
		}
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = renderLineKind(wordWrap(line, width), classifyLine(line))
	}
	return strings.Join(lines, "\n")
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarration.Render(line)
	}
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
