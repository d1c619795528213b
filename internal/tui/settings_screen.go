package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andy/casetrail/internal/app"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type settingsMode int

const (
	settingsModeView settingsMode = iota
	settingsModeEdit
)

// settings form field indices
const (
	settingsFieldLogin = iota
	settingsFieldName
	settingsFieldHistory
	settingsFieldLogLevel
	settingsFieldCount
)

type settingsSavedMsg struct {
	err error
}

// SettingsModel manages the settings screen
type SettingsModel struct {
	app        *app.App
	mode       settingsMode
	fields     []textinput.Model
	fieldFocus int
	err        error
	statusMsg  string
}

// NewSettingsModel creates a new settings screen
func NewSettingsModel(a *app.App) tea.Model {
	return &SettingsModel{
		app:  a,
		mode: settingsModeView,
	}
}

// IsCapturingInput returns true when the edit form is active
func (m *SettingsModel) IsCapturingInput() bool {
	return m.mode == settingsModeEdit
}

func (m *SettingsModel) Init() tea.Cmd {
	return nil
}

func (m *SettingsModel) initForm() {
	cfg := m.app.Config
	m.fields = make([]textinput.Model, settingsFieldCount)
	m.fields[settingsFieldLogin] = newField("login", cfg.User.Login, 30)
	m.fields[settingsFieldName] = newField("Full name", cfg.User.Name, 40)
	m.fields[settingsFieldHistory] = newField("50", strconv.Itoa(cfg.History.MaxLength), 10)
	m.fields[settingsFieldLogLevel] = newField("debug | info | warn | error", cfg.Log.Level, 10)

	m.fieldFocus = settingsFieldLogin
	m.fields[settingsFieldLogin].Focus()
}

// saveSettings applies the form to the config, then saves it in the
// background. The config is only written from the update loop.
func (m *SettingsModel) saveSettings() tea.Cmd {
	login := strings.TrimSpace(m.fields[settingsFieldLogin].Value())
	name := strings.TrimSpace(m.fields[settingsFieldName].Value())
	historyStr := m.fields[settingsFieldHistory].Value()
	level := strings.ToLower(strings.TrimSpace(m.fields[settingsFieldLogLevel].Value()))

	if login == "" {
		m.err = fmt.Errorf("login is required")
		return nil
	}

	history, err := strconv.Atoi(historyStr)
	if err != nil || history <= 0 {
		m.err = fmt.Errorf("history length must be a positive number")
		return nil
	}

	switch level {
	case "", "debug", "info", "warn", "error":
	default:
		m.err = fmt.Errorf("unknown log level %q", level)
		return nil
	}

	m.app.Config.User.Login = login
	m.app.Config.User.Name = name
	m.app.Config.History.MaxLength = history
	m.app.Config.Log.Level = level

	return func() tea.Msg {
		if err := m.app.SaveConfig(); err != nil {
			return settingsSavedMsg{err: fmt.Errorf("failed to save config: %w", err)}
		}
		return settingsSavedMsg{}
	}
}

func (m *SettingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.mode == settingsModeEdit {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.err = nil
		if msg.String() == "enter" {
			m.mode = settingsModeEdit
			m.statusMsg = ""
			m.initForm()
			return m, m.fields[m.fieldFocus].Focus()
		}
	}

	return m, nil
}

func (m *SettingsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case settingsSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mode = settingsModeView
		m.statusMsg = "Settings saved"
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.mode = settingsModeView
			m.err = nil
			return m, nil

		case "tab", "down":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus + 1) % settingsFieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "shift+tab", "up":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus - 1 + settingsFieldCount) % settingsFieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "enter":
			if m.fieldFocus == settingsFieldCount-1 {
				return m, m.saveSettings()
			}
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus++
			return m, m.fields[m.fieldFocus].Focus()

		case "ctrl+s":
			return m, m.saveSettings()
		}
	}

	var cmd tea.Cmd
	m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
	return m, cmd
}

func (m *SettingsModel) View() string {
	if m.mode == settingsModeEdit {
		return m.viewForm()
	}
	return m.viewSettings()
}

func (m *SettingsModel) viewSettings() string {
	var s string
	s += titleStyle.Render("Settings") + "\n\n"

	if m.statusMsg != "" {
		s += statusLine(m.statusMsg) + "\n\n"
	}

	cfg := m.app.Config

	labelStyle := lipgloss.NewStyle().Bold(true).Width(22)
	valueStyle := lipgloss.NewStyle().Foreground(primaryColor)

	s += subtitleStyle.Render("  Author") + "\n\n"
	s += fmt.Sprintf("  %s %s\n", labelStyle.Render("Login:"), valueStyle.Render(cfg.User.Login))
	s += fmt.Sprintf("  %s %s\n\n", labelStyle.Render("Name:"), valueStyle.Render(cfg.User.Name))

	s += subtitleStyle.Render("  Activity") + "\n\n"
	s += fmt.Sprintf("  %s %s\n", labelStyle.Render("History length:"), valueStyle.Render(strconv.Itoa(cfg.History.MaxLength)))
	s += fmt.Sprintf("  %s %s\n\n", labelStyle.Render("Log level:"), valueStyle.Render(cfg.Log.Level))

	s += subtitleStyle.Render("  Storage") + "\n\n"
	s += fmt.Sprintf("  %s %s\n", labelStyle.Render("Database:"), valueStyle.Render(cfg.Database.Path))
	s += fmt.Sprintf("  %s %s\n", labelStyle.Render("Config file:"), valueStyle.Render(m.app.ConfigPath))

	s += "\n" + helpStyle.Render("  enter: edit settings")

	return s
}

func (m *SettingsModel) viewForm() string {
	var s string
	s += titleStyle.Render("Edit Settings") + "\n\n"

	labels := []string{"Login:", "Name:", "History length:", "Log level:"}
	for i, label := range labels {
		indicator := "  "
		labelStyle := subtitleStyle
		if i == m.fieldFocus {
			indicator = "> "
			labelStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
		}
		s += fmt.Sprintf("%s%s\n  %s\n\n", indicator, labelStyle.Render(label), m.fields[i].View())
	}

	if m.err != nil {
		s += errorLine(m.err) + "\n\n"
	}

	s += helpStyle.Render("  tab/shift+tab: navigate fields  ctrl+s: save  enter: next/save  esc: cancel")

	return s
}
