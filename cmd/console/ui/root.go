package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

type state int

const (
	stateLogin state = iota
	stateTerminal
)

type RootModel struct {
	State    state
	Session  *Session
	DeviceID string
	Login    LoginModel
	Terminal TerminalModel
	width    int
	height   int
}

func NewRootModel(deviceID string) RootModel {
	s := NewSession()
	return RootModel{
		State:    stateLogin,
		Session:  s,
		DeviceID: deviceID,
		Login:    NewLoginModel(s),
	}
}

func (m RootModel) Init() tea.Cmd {
	return m.Login.Init()
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

	case LoginOKMsg:
		m.State = stateTerminal
		m.Terminal = NewTerminalModel(m.Session, m.DeviceID, m.width, m.height)
		return m, m.Terminal.Init()
	}

	var cmd tea.Cmd
	switch m.State {
	case stateLogin:
		m.Login, cmd = m.Login.Update(msg)
	case stateTerminal:
		m.Terminal, cmd = m.Terminal.Update(msg)
	}
	return m, cmd
}

func (m RootModel) View() string {
	switch m.State {
	case stateTerminal:
		return m.Terminal.View()
	default:
		return m.Login.View()
	}
}
