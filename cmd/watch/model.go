package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/chosenoffset/spyglass/pkg/spyglass/dashboard"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7")).
			Padding(0, 1)

	callStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	settleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxLines = 1000

type watchModel struct {
	url      string
	conn     *websocket.Conn
	viewport viewport.Model
	lines    []string
	ready    bool
	paused   bool
	err      error
}

func newWatchModel(url string) *watchModel {
	return &watchModel{url: url}
}

type connectedMsg struct {
	conn *websocket.Conn
}

type eventMsg dashboard.Event

type streamErrMsg struct {
	err error
}

func (m *watchModel) Init() tea.Cmd {
	return m.connect
}

func (m *watchModel) connect() tea.Msg {
	conn, _, err := websocket.DefaultDialer.Dial(m.url, nil)
	if err != nil {
		return streamErrMsg{err: err}
	}
	return connectedMsg{conn: conn}
}

func (m *watchModel) read() tea.Msg {
	_, data, err := m.conn.ReadMessage()
	if err != nil {
		return streamErrMsg{err: err}
	}
	var ev dashboard.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return streamErrMsg{err: err}
	}
	return eventMsg(ev)
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.conn != nil {
				m.conn.Close()
			}
			return m, tea.Quit
		case "p":
			m.paused = !m.paused
		case "c":
			m.lines = nil
			m.viewport.SetContent("")
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-3)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 3
		}

	case connectedMsg:
		m.conn = msg.conn
		return m, m.read

	case eventMsg:
		if !m.paused {
			m.append(dashboard.Event(msg))
		}
		return m, m.read

	case streamErrMsg:
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *watchModel) append(ev dashboard.Event) {
	m.lines = append(m.lines, renderEvent(ev))
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
	if m.ready {
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
	}
}

func renderEvent(ev dashboard.Event) string {
	ts := ev.Timestamp.Format("15:04:05.000")
	switch ev.Type {
	case "match":
		return matchStyle.Render(fmt.Sprintf("%s match  %-24s rule=%s output=%q", ts, ev.Key, ev.Rule, ev.Output))
	case "observation":
		line := fmt.Sprintf("%s %-8s %s %s(%s)", ts, ev.Phase, ev.Label, ev.Key, strings.Join(ev.Args, ", "))
		if ev.Error != "" {
			return errorStyle.Render(line + " error: " + ev.Error)
		}
		if ev.Result != "" {
			line += " -> " + ev.Result
		}
		if ev.Phase == "call" {
			return callStyle.Render(line)
		}
		return settleStyle.Render(line)
	default:
		return fmt.Sprintf("%s %s %s", ts, ev.Type, ev.Key)
	}
}

func (m *watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Spyglass Watch"))
	b.WriteString(" ")
	b.WriteString(m.url)
	if m.paused {
		b.WriteString("  (paused)")
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("stream error: %v", m.err)))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}
	if !m.ready {
		b.WriteString("Connecting...")
		return b.String()
	}

	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("p pause • c clear • ↑/↓ scroll • q quit"))
	return b.String()
}
