// Package tui is the full-screen chat front-end: a viewport transcript, a
// strip of live streaming previews and a prompt, driven by world events.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"agentworld/internal/appinfo"
	"agentworld/internal/store"
	"agentworld/internal/stream"
	"agentworld/internal/uilog"
	"agentworld/internal/world"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

var (
	styleHeader    = lipgloss.NewStyle().Bold(true)
	styleUser      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	styleAgent     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleStreaming = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleNotice    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleFaint     = lipgloss.NewStyle().Faint(true)
)

type Options struct {
	Store    *store.Store
	Events   <-chan stream.Event
	Logger   *uilog.Logger
	WorldURL string

	// Publisher forwards submitted input to the world; nil keeps the
	// transcript local-only.
	Publisher world.Publisher
}

// Run drives the chat TUI until the user quits or the event channel
// closes the world side.
func Run(ctx context.Context, in *os.File, out *os.File, opts Options) error {
	if opts.Store == nil {
		return errors.New("tui requires a message store")
	}
	if out != nil && !term.IsTerminal(int(out.Fd())) {
		return fmt.Errorf("stdout is not a TTY; use --ui=plain")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(opts)
	prog := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithContext(ctx),
	)
	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type asyncMsg struct {
	Event stream.Event
	OK    bool
}

type tickMsg struct{}

type model struct {
	st     *store.Store
	logger *uilog.Logger
	events <-chan stream.Event
	pub    world.Publisher

	worldURL  string
	connected bool

	width  int
	height int

	input    textinput.Model
	viewport viewport.Model

	streams      *stream.Accumulator
	spinnerFrame int
	notice       string
}

func newModel(opts Options) model {
	inp := textinput.New()
	inp.Placeholder = "Type a message…"
	inp.Prompt = "› "
	inp.CharLimit = 0
	inp.Focus()

	vp := viewport.New(0, 0)
	vp.SetContent("")

	return model{
		st:        opts.Store,
		logger:    opts.Logger,
		events:    opts.Events,
		pub:       opts.Publisher,
		worldURL:  strings.TrimSpace(opts.WorldURL),
		connected: opts.Events != nil,
		input:     inp,
		viewport:  vp,
		streams:   stream.NewAccumulator(),
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func waitEventCmd(ch <-chan stream.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		return asyncMsg{Event: ev, OK: ok}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitEventCmd(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.rerender()
		return m, nil
	case tickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		return m, tickCmd()
	case asyncMsg:
		if !msg.OK {
			m.connected = false
			m.notice = "world stream closed"
			m.rerender()
			return m, nil
		}
		m.applyEvent(msg.Event)
		m.rerender()
		return m, waitEventCmd(m.events)
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.submitInput()
			m.rerender()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) applyEvent(ev stream.Event) {
	finished := m.streams.Apply(ev)
	// The live-stream strip grows and shrinks with the event flow, so the
	// viewport has to give back or reclaim those rows right away.
	defer m.resize()
	if finished == nil {
		return
	}
	msg := store.Message{
		Role:    "agent",
		Agent:   finished.DisplayName,
		Content: finished.FinalText(),
	}
	if finished.Failed {
		msg.Content += " (error)"
	}
	if err := m.st.Append(msg); err != nil {
		m.notice = err.Error()
		m.logger.Logf(uilog.KindError, "append agent message: %v", err)
	}
	m.streams.Drop(finished.AgentID)
}

func (m *model) submitInput() {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return
	}
	m.input.SetValue("")
	if err := m.st.Append(store.Message{Role: "user", Content: text}); err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = ""
	if m.pub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.pub.Publish(ctx, world.Message{Role: "user", Content: text}); err != nil {
			m.notice = "send failed: " + err.Error()
			m.logger.Logf(uilog.KindWorld, "publish user message: %v", err)
		}
	}
}

func (m *model) resize() {
	headerH := 2
	streamH := m.streams.LiveCount()
	inputH := 1
	m.viewport.Width = max(0, m.width)
	m.viewport.Height = max(0, m.height-headerH-streamH-inputH-1)
	m.input.Width = max(10, m.width-runewidth.StringWidth(m.input.Prompt)-1)
}

func (m *model) rerender() {
	var b strings.Builder
	for _, msg := range m.st.Messages() {
		speaker := strings.TrimSpace(msg.Agent)
		style := styleAgent
		if speaker == "" {
			speaker = msg.Role
		}
		if msg.Role == "user" {
			style = styleUser
		}
		b.WriteString(style.Render(speaker + ":"))
		b.WriteString(" ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(b.String())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	var b strings.Builder
	header := appinfo.Display()
	if m.worldURL != "" {
		header += styleFaint.Render("  " + m.worldURL)
	}
	if !m.connected {
		header += styleFailed.Render("  [disconnected]")
	}
	b.WriteString(styleHeader.Render(header))
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	for _, as := range m.streams.Live() {
		line := fmt.Sprintf("%s %s: %s (%d tokens)",
			spinnerFrames[m.spinnerFrame%len(spinnerFrames)],
			as.DisplayName,
			stream.PreviewText(as.Content.String()),
			as.TokenCount,
		)
		b.WriteString(styleStreaming.Render(truncateToWidth(line, m.width)))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString(styleNotice.Render(truncateToWidth(m.notice, m.width)))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	return b.String()
}

func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "")
}

func max(a int, b int) int {
	if a > b {
		return a
	}
	return b
}
