// Package tui renders the popup as a bubbletea terminal UI: a connect button,
// a message input with a send button, and the scrolling display log.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/plode/nmpopup/internal/popup"
)

type focusTarget int

const (
	focusConnect focusTarget = iota
	focusInput
	focusSend
)

// Options configures the TUI.
type Options struct {
	HostName        string
	Opener          popup.Opener
	ReplaceExisting bool
	// AutoConnect connects as soon as the UI starts.
	AutoConnect bool
}

// dispatchMsg carries a controller closure onto the bubbletea loop.
type dispatchMsg struct{ fn func() }

type connectMsg struct{}

// Model is the bubbletea model of the popup. Channel events reach it as
// dispatchMsg values, so every controller call happens inside Update.
type Model struct {
	ctrl   *popup.Controller
	events chan func()
	ctx    context.Context
	cancel context.CancelFunc

	input    textinput.Model
	viewport viewport.Model
	lines    []string
	focus    focusTarget
	width    int

	autoConnect bool
	closed      bool
}

func New(opts Options) *Model {
	ctx, cancel := context.WithCancel(context.Background())

	ti := textinput.New()
	ti.Placeholder = "Message to send..."
	ti.CharLimit = 64 * 1024
	ti.Width = 50

	m := &Model{
		events:      make(chan func(), 64),
		ctx:         ctx,
		cancel:      cancel,
		input:       ti,
		viewport:    viewport.New(80, 12),
		focus:       focusConnect,
		width:       80,
		autoConnect: opts.AutoConnect,
	}
	m.ctrl = popup.NewController(popup.Options{
		HostName:        opts.HostName,
		Opener:          opts.Opener,
		Dispatcher:      popup.DispatcherFunc(m.dispatch),
		Observer:        m,
		ReplaceExisting: opts.ReplaceExisting,
	})
	return m
}

// Controller returns the popup controller driven by this model.
func (m *Model) Controller() *popup.Controller { return m.ctrl }

// Run shows the TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	m := New(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Close tears down every channel the popup opened.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.ctrl.Close()
	m.cancel()
}

func (m *Model) dispatch(fn func()) {
	select {
	case m.events <- fn:
	case <-m.ctx.Done():
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case fn := <-m.events:
			return dispatchMsg{fn: fn}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.waitForEvent()}
	if m.autoConnect {
		cmds = append(cmds, func() tea.Msg { return connectMsg{} })
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dispatchMsg:
		msg.fn()
		return m, m.waitForEvent()

	case connectMsg:
		m.ctrl.Connect(m.ctx)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		// Title, buttons with borders, help line and the log border.
		m.viewport.Height = max(msg.Height-9, 3)
		m.input.Width = max(msg.Width-20, 10)
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.Close()
		return m, tea.Quit

	case "ctrl+d":
		m.ctrl.Disconnect()
		return m, nil

	case "tab", "shift+tab":
		if m.ctrl.State().Connected() {
			if m.focus == focusInput {
				m.setFocus(focusSend)
			} else {
				m.setFocus(focusInput)
			}
		}
		return m, nil

	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		switch m.focus {
		case focusConnect:
			m.ctrl.Connect(m.ctx)
		case focusInput, focusSend:
			m.send()
		}
		return m, nil
	}

	switch m.focus {
	case focusConnect:
		if msg.String() == "c" {
			m.ctrl.Connect(m.ctx)
		}
		return m, nil
	case focusInput:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) send() {
	if err := m.ctrl.SendMessage(m.input.Value()); err != nil {
		return
	}
	m.input.Reset()
	m.setFocus(focusInput)
}

func (m *Model) setFocus(f focusTarget) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// EntryAppended implements popup.Observer.
func (m *Model) EntryAppended(e popup.Entry) {
	m.lines = append(m.lines, renderEntry(e))
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// StateChanged implements popup.Observer.
func (m *Model) StateChanged(s popup.UIState) {
	if s.Connected() {
		if m.focus == focusConnect {
			m.setFocus(focusInput)
		}
		return
	}
	m.setFocus(focusConnect)
}

func (m *Model) View() string {
	state := m.ctrl.State()

	var controls []string
	if state.ConnectVisible {
		controls = append(controls, renderButton("Connect", m.focus == focusConnect))
	}
	if state.InputVisible {
		controls = append(controls, lipgloss.NewStyle().Padding(1, 1, 0, 0).Render(m.input.View()))
	}
	if state.SendVisible {
		controls = append(controls, renderButton("Send", m.focus == focusSend))
	}

	help := "enter: connect • esc: quit"
	if state.Connected() {
		help = "enter: send • tab: focus • ctrl+d: disconnect • pgup/pgdown: scroll • esc: quit"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Native Messaging")+" "+hostStyle.Render(m.ctrl.HostName()),
		lipgloss.JoinHorizontal(lipgloss.Top, controls...),
		logStyle.Width(m.width).Render(m.viewport.View()),
		helpStyle.Render(help),
	)
}
