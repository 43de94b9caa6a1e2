package ui

import (
	"fmt"
	"strings"
	"time"

	"flowgate/backend/app/dto"
	"flowgate/backend/app/models"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// The dashboard leg of the design is poll-driven; the console refreshes the
// history view on the same cadence the web UI would.
const refreshInterval = 5 * time.Second

type historyMsg *dto.HistoryResponse

type onlineMsg bool

type refreshTickMsg time.Time

// TerminalModel renders a device's command/response pairs and submits new
// commands, the console equivalent of the dashboard's remote terminal.
type TerminalModel struct {
	Session  *Session
	DeviceID string
	Input    textinput.Model
	History  viewport.Model
	Commands []models.RemoteCommand
	Online   bool
	Err      error
	ready    bool
}

func NewTerminalModel(s *Session, deviceID string, width, height int) TerminalModel {
	in := textinput.New()
	in.Prompt = deviceID + " $ "
	in.PromptStyle = promptStyle
	in.Placeholder = "uptime"
	in.Focus()

	vp := viewport.New(width-4, height-8)

	return TerminalModel{
		Session:  s,
		DeviceID: deviceID,
		Input:    in,
		History:  vp,
	}
}

func (m TerminalModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.fetchHistory(), m.fetchOnline(), refreshTick())
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshTickMsg(t) })
}

func (m TerminalModel) fetchHistory() tea.Cmd {
	s, deviceID := m.Session, m.DeviceID
	return func() tea.Msg {
		h, err := s.History(deviceID, 50)
		if err != nil {
			return errMsg(err)
		}
		return historyMsg(h)
	}
}

func (m TerminalModel) fetchOnline() tea.Cmd {
	s, deviceID := m.Session, m.DeviceID
	return func() tea.Msg {
		online, err := s.Online(deviceID)
		if err != nil {
			// presence is best-effort; a failed lookup reads as offline
			return onlineMsg(false)
		}
		return onlineMsg(online)
	}
}

func (m TerminalModel) submit(command string) tea.Cmd {
	s, deviceID := m.Session, m.DeviceID
	return func() tea.Msg {
		if _, err := s.Submit(deviceID, command); err != nil {
			return errMsg(err)
		}
		h, err := s.History(deviceID, 50)
		if err != nil {
			return errMsg(err)
		}
		return historyMsg(h)
	}
}

func (m TerminalModel) Update(msg tea.Msg) (TerminalModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.History.Width = msg.Width - 4
		m.History.Height = msg.Height - 8
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			command := strings.TrimSpace(m.Input.Value())
			if command != "" {
				m.Input.SetValue("")
				m.Err = nil
				cmds = append(cmds, m.submit(command))
			}
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.History, cmd = m.History.Update(msg)
			cmds = append(cmds, cmd)
		}

	case historyMsg:
		m.Commands = msg.Commands
		m.History.SetContent(renderHistory(m.Commands))
		m.History.GotoBottom()

	case onlineMsg:
		m.Online = bool(msg)

	case refreshTickMsg:
		cmds = append(cmds, m.fetchHistory(), m.fetchOnline(), refreshTick())

	case errMsg:
		m.Err = msg
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// renderHistory shows oldest first so the view reads like a terminal session.
func renderHistory(cmds []models.RemoteCommand) string {
	var b strings.Builder
	for i := len(cmds) - 1; i >= 0; i-- {
		c := cmds[i]
		b.WriteString(promptStyle.Render("$ "+c.Command) + "  " + statusBadge(c) + "\n")
		if c.Output != "" {
			b.WriteString(c.Output)
			if !strings.HasSuffix(c.Output, "\n") {
				b.WriteString("\n")
			}
		}
		if c.ErrorMessage != "" {
			b.WriteString(failStyle.Render(c.ErrorMessage) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func statusBadge(c models.RemoteCommand) string {
	switch c.Status {
	case models.CommandPending:
		return pendingStyle.Render("[pending]")
	case models.CommandRunning:
		return runningStyle.Render("[running]")
	case models.CommandCompleted:
		return okStyle.Render("[exit 0]")
	default:
		code := ""
		if c.ExitCode != nil {
			code = fmt.Sprintf(" %d", *c.ExitCode)
		}
		return failStyle.Render("[failed" + code + "]")
	}
}

func (m TerminalModel) View() string {
	online := failStyle.Render("offline")
	if m.Online {
		online = okStyle.Render("online")
	}
	v := titleStyle.Render("remote terminal / "+m.DeviceID) + "  " + online + "\n\n"
	v += m.History.View() + "\n\n"
	v += m.Input.View() + "\n"
	if m.Err != nil {
		v += errorMessageStyle(m.Err.Error()) + "\n"
	}
	v += blurredStyle.Render("enter to submit, pgup/pgdn to scroll, ctrl+c to quit")
	return docStyle.Render(v)
}
