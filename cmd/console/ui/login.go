package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type errMsg error

// LoginOKMsg signals a successful login.
type LoginOKMsg struct{}

type LoginModel struct {
	Session  *Session
	Inputs   []textinput.Model
	FocusIdx int
	Err      error
}

const (
	inputServer = iota
	inputUsername
	inputPassword
)

func NewLoginModel(s *Session) LoginModel {
	inputs := make([]textinput.Model, 3)

	inputs[inputServer] = textinput.New()
	inputs[inputServer].Placeholder = "http://127.0.0.1:9400"
	inputs[inputServer].Prompt = "Server: "
	inputs[inputServer].SetValue("http://127.0.0.1:9400")
	inputs[inputServer].Focus()

	inputs[inputUsername] = textinput.New()
	inputs[inputUsername].Placeholder = "admin"
	inputs[inputUsername].Prompt = "Username: "

	inputs[inputPassword] = textinput.New()
	inputs[inputPassword].Placeholder = "password"
	inputs[inputPassword].EchoMode = textinput.EchoPassword
	inputs[inputPassword].Prompt = "Password: "

	return LoginModel{Session: s, Inputs: inputs}
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginModel) loginCmd() tea.Cmd {
	server := m.Inputs[inputServer].Value()
	username := m.Inputs[inputUsername].Value()
	password := m.Inputs[inputPassword].Value()
	return func() tea.Msg {
		m.Session.BaseURL = server
		if err := m.Session.Login(username, password); err != nil {
			return errMsg(err)
		}
		return LoginOKMsg{}
	}
}

func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			if m.FocusIdx == len(m.Inputs)-1 {
				return m, m.loginCmd()
			}
			m.nextInput()
		case tea.KeyTab, tea.KeyDown:
			m.nextInput()
		case tea.KeyShiftTab, tea.KeyUp:
			m.prevInput()
		}
		for i := range m.Inputs {
			if i == m.FocusIdx {
				m.Inputs[i].Focus()
			} else {
				m.Inputs[i].Blur()
			}
		}
	case errMsg:
		m.Err = msg
	}

	cmds := make([]tea.Cmd, len(m.Inputs))
	for i := range m.Inputs {
		m.Inputs[i], cmds[i] = m.Inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m *LoginModel) nextInput() {
	m.FocusIdx = (m.FocusIdx + 1) % len(m.Inputs)
}

func (m *LoginModel) prevInput() {
	m.FocusIdx--
	if m.FocusIdx < 0 {
		m.FocusIdx = len(m.Inputs) - 1
	}
}

func (m LoginModel) View() string {
	v := titleStyle.Render("flowgate console") + "\n\n"
	for i := range m.Inputs {
		v += m.Inputs[i].View() + "\n"
	}
	if m.Err != nil {
		v += "\n" + errorMessageStyle(m.Err.Error())
	}
	v += "\n" + blurredStyle.Render("enter to log in, ctrl+c to quit")
	return docStyle.Render(v)
}
