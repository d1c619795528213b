package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/andy/casetrail/internal/activity"
	"github.com/andy/casetrail/internal/app"
	"github.com/andy/casetrail/internal/domain"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const visibleEntries = 8

// ActivityModel shows the timeline of one object and posts case log messages
type ActivityModel struct {
	app       *app.App
	ref       domain.ObjectRef
	object    *domain.Object
	timeline  *domain.Timeline
	tab       int // 0 shows everything, i > 0 shows case log tab i-1
	offset    int
	loading   bool
	err       error
	statusMsg string

	composing bool
	input     textinput.Model
}

type timelineDataMsg struct {
	object   *domain.Object
	timeline *domain.Timeline
	err      error
}

type caseLogPostedMsg struct {
	attCode string
	err     error
}

// NewActivityModel creates the activity screen of ref
func NewActivityModel(a *app.App, ref domain.ObjectRef) tea.Model {
	return &ActivityModel{
		app:     a,
		ref:     ref,
		loading: true,
	}
}

// IsCapturingInput returns true while a message is being written
func (m *ActivityModel) IsCapturingInput() bool {
	return m.composing
}

func (m *ActivityModel) Init() tea.Cmd {
	return m.loadTimeline()
}

func (m *ActivityModel) loadTimeline() tea.Cmd {
	ref := m.ref
	return func() tea.Msg {
		obj, timeline, err := m.app.ActivityService.GetTimeline(context.Background(), ref)
		return timelineDataMsg{object: obj, timeline: timeline, err: err}
	}
}

// currentTab returns the selected case log tab, nil when showing everything
func (m *ActivityModel) currentTab() *domain.CaseLogTab {
	if m.timeline == nil || m.tab == 0 {
		return nil
	}
	tabs := m.timeline.CaseLogTabs()
	if m.tab > len(tabs) {
		return nil
	}
	return &tabs[m.tab-1]
}

// target is the case log a new message goes to: the selected tab, or the
// form's default target.
func (m *ActivityModel) target() string {
	if tab := m.currentTab(); tab != nil {
		return tab.AttCode
	}
	if form := m.timeline.NewEntryForm(); form != nil {
		return form.DefaultTarget
	}
	return ""
}

func (m *ActivityModel) visible() []*domain.TimelineEntry {
	if m.timeline == nil {
		return nil
	}
	attCode := ""
	if tab := m.currentTab(); tab != nil {
		attCode = tab.AttCode
	}
	return activity.FilterByCaseLog(m.timeline.Entries(), attCode)
}

func (m *ActivityModel) openComposer() tea.Cmd {
	form := m.timeline.NewEntryForm()
	m.input = textinput.New()
	m.input.Placeholder = form.Placeholder
	m.input.CharLimit = 2000
	m.input.Width = 60
	m.composing = true
	return m.input.Focus()
}

func (m *ActivityModel) post() tea.Cmd {
	ref := m.ref
	attCode := m.target()
	message := m.input.Value()
	return func() tea.Msg {
		_, err := m.app.ObjectService.AppendCaseLog(context.Background(), ref, attCode, message, domain.OriginTUI)
		return caseLogPostedMsg{attCode: attCode, err: err}
	}
}

func (m *ActivityModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// a post may land after the composer was closed
	if msg, ok := msg.(caseLogPostedMsg); ok {
		return m.postDone(msg)
	}
	if m.composing {
		return m.updateComposer(msg)
	}

	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadTimeline()

	case timelineDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.object = msg.object
			m.timeline = msg.timeline
			if m.tab > len(m.timeline.CaseLogTabs()) {
				m.tab = 0
			}
		}
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		m.statusMsg = ""

		switch {
		case key.Matches(msg, DefaultKeyMap.Back):
			return m, func() tea.Msg { return SwitchScreenMsg{Screen: ScreenObjects} }
		case key.Matches(msg, DefaultKeyMap.Refresh):
			m.loading = true
			return m, m.loadTimeline()
		}

		if m.timeline == nil {
			return m, nil
		}

		switch {
		case key.Matches(msg, DefaultKeyMap.Up):
			if m.offset > 0 {
				m.offset--
			}
		case key.Matches(msg, DefaultKeyMap.Down):
			if m.offset < len(m.visible())-1 {
				m.offset++
			}
		case key.Matches(msg, DefaultKeyMap.NextTab):
			if m.timeline.HasCaseLogTabs() {
				m.tab = (m.tab + 1) % (len(m.timeline.CaseLogTabs()) + 1)
				m.offset = 0
			}
		case key.Matches(msg, DefaultKeyMap.New):
			if m.timeline.HasNewEntryForm() {
				return m, m.openComposer()
			}
			m.statusMsg = "This object has no case log"
		}
	}

	return m, nil
}

func (m *ActivityModel) postDone(msg caseLogPostedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	m.composing = false
	m.err = nil
	m.statusMsg = fmt.Sprintf("Message added to %s", msg.attCode)
	m.loading = true
	return m, m.loadTimeline()
}

func (m *ActivityModel) updateComposer(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.composing = false
			m.err = nil
			return m, nil
		case "enter":
			if strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			return m, m.post()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ActivityModel) View() string {
	if m.loading {
		return "Loading activity..."
	}
	if m.timeline == nil {
		if m.err != nil {
			return errorLine(m.err)
		}
		return "No activity"
	}

	var s string
	s += titleStyle.Render(fmt.Sprintf("%s  ", m.object.Name)) + subtitleStyle.Render(m.object.String()) + "\n\n"

	if m.timeline.HasCaseLogTabs() {
		s += m.viewTabs() + "\n\n"
	}

	if m.statusMsg != "" {
		s += statusLine(m.statusMsg) + "\n\n"
	}
	if m.err != nil {
		s += errorLine(m.err) + "\n\n"
	}

	entries := m.visible()
	if len(entries) == 0 {
		s += subtitleStyle.Render("  No activity yet") + "\n"
	} else {
		end := min(m.offset+visibleEntries, len(entries))
		for _, e := range entries[m.offset:end] {
			s += m.renderEntry(e) + "\n"
		}
		if len(entries) > visibleEntries {
			s += subtitleStyle.Render(fmt.Sprintf("  %d-%d of %d", m.offset+1, end, len(entries))) + "\n"
		}
	}

	if m.composing {
		form := m.timeline.NewEntryForm()
		box := fmt.Sprintf("%s\n%s", subtitleStyle.Render("To "+m.target()), m.input.View())
		s += "\n" + formBoxStyle.Render(box) + "\n"
		s += helpStyle.Render(fmt.Sprintf("  enter: %s  esc: cancel", strings.ToLower(form.SubmitLabel)))
		return s
	}

	help := "  j/k: scroll  r: refresh  esc: back"
	if m.timeline.HasCaseLogTabs() {
		help = "  j/k: scroll  tab: switch case log  n: new message  r: refresh  esc: back"
	}
	s += "\n" + helpStyle.Render(help)
	return s
}

func (m *ActivityModel) viewTabs() string {
	render := func(active bool, label string) string {
		if active {
			return activeTabStyle.Render(label)
		}
		return tabStyle.Render(label)
	}

	parts := []string{render(m.tab == 0, fmt.Sprintf("All (%d)", m.timeline.Len()))}
	for i, tab := range m.timeline.CaseLogTabs() {
		label := fmt.Sprintf("%s (%d)", tab.Label, tab.MessageCount)
		parts = append(parts, render(m.tab == i+1, label))
	}
	return strings.Join(parts, " ")
}

func (m *ActivityModel) renderEntry(e *domain.TimelineEntry) string {
	date := dateStyle.Render(e.Date.Local().Format("2006-01-02 15:04"))
	headline := kindStyle(e.Kind).Render(activity.Headline(e))

	s := fmt.Sprintf("  %s  %s", date, headline)
	for _, line := range activity.Details(e) {
		s += "\n" + messageStyle.Render(line)
	}
	return s
}
