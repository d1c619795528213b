package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andy/casetrail/internal/app"
	"github.com/andy/casetrail/internal/domain"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type objectMode int

const (
	objectModeList objectMode = iota
	objectModeNew
	objectModeEdit
	objectModeConfirmDelete
)

// ObjectsModel lists objects and hosts the create/edit forms
type ObjectsModel struct {
	app       *app.App
	objects   []*domain.Object
	cursor    int
	classIdx  int // 0 means all classes
	loading   bool
	err       error
	statusMsg string

	// Form state
	mode       objectMode
	fields     []textinput.Model
	fieldCodes []string // attribute code per field; "class" and "name" are special
	fieldFocus int
	editing    *domain.Object
}

type objectsDataMsg struct {
	objects []*domain.Object
	err     error
}

type objectSavedMsg struct {
	status string
	err    error
}

// NewObjectsModel creates a new objects screen model
func NewObjectsModel(a *app.App) tea.Model {
	return &ObjectsModel{
		app:     a,
		loading: true,
	}
}

// IsCapturingInput returns true when a form or confirmation is active
func (m *ObjectsModel) IsCapturingInput() bool {
	return m.mode != objectModeList
}

func (m *ObjectsModel) Init() tea.Cmd {
	return m.loadObjects()
}

func (m *ObjectsModel) classFilter() string {
	if m.classIdx == 0 {
		return ""
	}
	return m.app.Classes.List()[m.classIdx-1].Name
}

func (m *ObjectsModel) loadObjects() tea.Cmd {
	class := m.classFilter()
	return func() tea.Msg {
		objects, err := m.app.ObjectService.List(context.Background(), class)
		return objectsDataMsg{objects: objects, err: err}
	}
}

func newField(placeholder, value string, width int) textinput.Model {
	f := textinput.New()
	f.Placeholder = placeholder
	f.CharLimit = 256
	f.Width = width
	f.SetValue(value)
	return f
}

// initNewForm asks for the class and name; attributes are edited afterwards
func (m *ObjectsModel) initNewForm() {
	class := m.classFilter()
	if class == "" {
		class = m.app.Classes.List()[0].Name
	}

	m.editing = nil
	m.fieldCodes = []string{"class", "name"}
	m.fields = []textinput.Model{
		newField("UserRequest", class, 30),
		newField("Name", "", 40),
	}
	m.fieldFocus = 1
}

// initEditForm has one field for the name and one per non case log attribute
func (m *ObjectsModel) initEditForm(obj *domain.Object) error {
	class, err := m.app.Classes.Get(obj.Class)
	if err != nil {
		return err
	}

	m.editing = obj
	m.fieldCodes = []string{"name"}
	m.fields = []textinput.Model{newField("Name", obj.Name, 40)}
	for _, att := range class.Attributes {
		if att.IsCaseLog() {
			continue
		}
		placeholder := att.DisplayLabel()
		if len(att.Values) > 0 {
			placeholder = strings.Join(att.Values, " | ")
		}
		m.fieldCodes = append(m.fieldCodes, att.Code)
		m.fields = append(m.fields, newField(placeholder, obj.Attributes[att.Code], 50))
	}
	m.fieldFocus = 0
	return nil
}

func (m *ObjectsModel) fieldLabel(i int) string {
	code := m.fieldCodes[i]
	switch code {
	case "class":
		return "Class:"
	case "name":
		return "Name:"
	}
	if class, err := m.app.Classes.Get(m.editing.Class); err == nil {
		if att, ok := class.Attribute(code); ok {
			return att.DisplayLabel() + ":"
		}
	}
	return code + ":"
}

func (m *ObjectsModel) save() tea.Cmd {
	values := make(map[string]string, len(m.fields))
	for i, f := range m.fields {
		values[m.fieldCodes[i]] = f.Value()
	}
	editing := m.editing

	return func() tea.Msg {
		ctx := context.Background()

		if editing == nil {
			obj, err := m.app.ObjectService.Create(ctx, strings.TrimSpace(values["class"]), values["name"], nil, domain.OriginTUI)
			if err != nil {
				return objectSavedMsg{err: err}
			}
			return objectSavedMsg{status: fmt.Sprintf("Created %s (%s)", obj.Name, obj)}
		}

		ops, err := m.app.ObjectService.SetAttributes(ctx, editing.Ref(), values, domain.OriginTUI)
		if err != nil {
			return objectSavedMsg{err: err}
		}
		if len(ops) == 0 {
			return objectSavedMsg{status: "Nothing changed"}
		}
		return objectSavedMsg{status: fmt.Sprintf("Updated %s: %d attribute(s)", editing, len(ops))}
	}
}

func (m *ObjectsModel) deleteSelected() tea.Cmd {
	obj := m.objects[m.cursor]
	return func() tea.Msg {
		if err := m.app.ObjectService.Delete(context.Background(), obj.Ref(), domain.OriginTUI); err != nil {
			return objectSavedMsg{err: err}
		}
		return objectSavedMsg{status: fmt.Sprintf("Deleted %s", obj.Name)}
	}
}

func (m *ObjectsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.mode == objectModeNew || m.mode == objectModeEdit {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadObjects()

	case objectsDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.objects = msg.objects
			if m.cursor >= len(m.objects) {
				m.cursor = max(0, len(m.objects)-1)
			}
		}
		return m, nil

	case objectSavedMsg:
		m.mode = objectModeList
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = msg.status
		m.loading = true
		return m, m.loadObjects()

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		if m.mode == objectModeConfirmDelete {
			m.mode = objectModeList
			if msg.String() == "y" {
				return m, m.deleteSelected()
			}
			m.statusMsg = "Cancelled"
			return m, nil
		}

		m.statusMsg = ""
		m.err = nil

		switch {
		case key.Matches(msg, DefaultKeyMap.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, DefaultKeyMap.Down):
			if m.cursor < len(m.objects)-1 {
				m.cursor++
			}
		case key.Matches(msg, DefaultKeyMap.Filter):
			m.classIdx = (m.classIdx + 1) % (len(m.app.Classes.List()) + 1)
			m.cursor = 0
			m.loading = true
			return m, m.loadObjects()
		case key.Matches(msg, DefaultKeyMap.Refresh):
			m.loading = true
			return m, m.loadObjects()
		case key.Matches(msg, DefaultKeyMap.New):
			m.mode = objectModeNew
			m.initNewForm()
			return m, m.fields[m.fieldFocus].Focus()
		case key.Matches(msg, DefaultKeyMap.Select):
			if len(m.objects) > 0 {
				ref := m.objects[m.cursor].Ref()
				return m, func() tea.Msg { return OpenActivityMsg{Ref: ref} }
			}
		case key.Matches(msg, DefaultKeyMap.Edit):
			if len(m.objects) > 0 {
				if err := m.initEditForm(m.objects[m.cursor]); err != nil {
					m.err = err
					return m, nil
				}
				m.mode = objectModeEdit
				return m, m.fields[m.fieldFocus].Focus()
			}
		case key.Matches(msg, DefaultKeyMap.Delete):
			if len(m.objects) > 0 {
				m.mode = objectModeConfirmDelete
			}
		}
	}

	return m, nil
}

func (m *ObjectsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case objectSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mode = objectModeList
		m.statusMsg = msg.status
		m.loading = true
		return m, m.loadObjects()

	case tea.KeyMsg:
		count := len(m.fields)
		switch msg.String() {
		case "esc":
			m.mode = objectModeList
			m.err = nil
			return m, nil

		case "tab", "down":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus + 1) % count
			return m, m.fields[m.fieldFocus].Focus()

		case "shift+tab", "up":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus - 1 + count) % count
			return m, m.fields[m.fieldFocus].Focus()

		case "enter":
			if m.fieldFocus == count-1 {
				return m, m.save()
			}
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus++
			return m, m.fields[m.fieldFocus].Focus()

		case "ctrl+s":
			return m, m.save()
		}
	}

	var cmd tea.Cmd
	m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
	return m, cmd
}

func (m *ObjectsModel) View() string {
	if m.mode == objectModeNew || m.mode == objectModeEdit {
		return m.viewForm()
	}
	return m.viewList()
}

func (m *ObjectsModel) viewForm() string {
	var s string
	if m.mode == objectModeNew {
		s += titleStyle.Render("New Object") + "\n\n"
	} else {
		s += titleStyle.Render(fmt.Sprintf("Edit %s", m.editing)) + "\n\n"
	}

	for i := range m.fields {
		indicator := "  "
		labelStyle := subtitleStyle
		if i == m.fieldFocus {
			indicator = "> "
			labelStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
		}
		s += fmt.Sprintf("%s%s\n  %s\n\n", indicator, labelStyle.Render(m.fieldLabel(i)), m.fields[i].View())
	}

	if m.err != nil {
		s += errorLine(m.err) + "\n\n"
	}

	s += helpStyle.Render("  tab/shift+tab: navigate fields  ctrl+s: save  enter: next/save  esc: cancel")
	return s
}

func (m *ObjectsModel) viewList() string {
	if m.loading {
		return "Loading objects..."
	}

	var s string

	header := "Objects"
	if class := m.classFilter(); class != "" {
		header += subtitleStyle.Render(fmt.Sprintf("  (%s only)", class))
	}
	s += titleStyle.Render(header) + "\n\n"

	if m.err != nil {
		s += errorLine(m.err) + "\n\n"
	}
	if m.statusMsg != "" {
		s += statusLine(m.statusMsg) + "\n\n"
	}

	if len(m.objects) == 0 {
		s += subtitleStyle.Render("  No objects yet. Press 'n' to add one.") + "\n"
		s += subtitleStyle.Render("  Press 'f' to change the class filter") + "\n"
		return s
	}

	now := time.Now()
	for i, obj := range m.objects {
		s += m.renderObject(i == m.cursor, obj, now) + "\n"
	}

	if m.mode == objectModeConfirmDelete {
		s += "\n" + lipgloss.NewStyle().Foreground(warningColor).
			Render(fmt.Sprintf("  Delete %s? (y/N)", m.objects[m.cursor].Name))
		return s
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  enter: activity  n: new  e: edit  d: delete  f: filter class  r: refresh")
	return s
}

func (m *ObjectsModel) renderObject(selected bool, obj *domain.Object, now time.Time) string {
	indicator := "  "
	nameStyle := lipgloss.NewStyle()
	if selected {
		indicator = "> "
		nameStyle = nameStyle.Bold(true).Foreground(primaryColor)
	}

	line1 := fmt.Sprintf("%s%s", indicator, truncateStr(obj.Name, 50))

	details := []string{obj.String()}
	if status := obj.Attributes["status"]; status != "" {
		details = append(details, status)
	}
	if title := obj.Attributes["title"]; title != "" {
		details = append(details, truncateStr(title, 40))
	}
	details = append(details, "updated "+formatAge(obj.UpdatedAt, now))
	line2 := "    " + strings.Join(details, "  |  ")

	return nameStyle.Render(line1) + "\n" + subtitleStyle.Render(line2)
}
