package domain

// CaseLogTab summarizes one case log attribute of the timeline's object
type CaseLogTab struct {
	AttCode      string
	Label        string
	MessageCount int
	Authors      []string // distinct logins in first-seen order
}

// NewEntryForm describes the input form used to post case log messages
type NewEntryForm struct {
	Targets       []string // case log attribute codes that accept messages
	DefaultTarget string
	Placeholder   string
	SubmitLabel   string
}

// Timeline is the activity panel of one object: its case log messages and
// change history in display order.
type Timeline struct {
	Object       ObjectRef
	entries      []*TimelineEntry
	caseLogTabs  []*CaseLogTab
	newEntryForm *NewEntryForm
}

// NewTimeline creates an empty timeline with one tab per case log attribute
func NewTimeline(ref ObjectRef, class *ClassDef) *Timeline {
	t := &Timeline{Object: ref}
	if class == nil {
		return t
	}
	for _, att := range class.Attributes {
		if att.IsCaseLog() {
			t.caseLogTabs = append(t.caseLogTabs, &CaseLogTab{
				AttCode: att.Code,
				Label:   att.DisplayLabel(),
			})
		}
	}
	return t
}

// AddEntry appends an entry; case log entries also update their tab
func (t *Timeline) AddEntry(e *TimelineEntry) {
	t.entries = append(t.entries, e)

	if e.Kind != EntryCaseLog || e.CaseLog == nil {
		return
	}
	for _, tab := range t.caseLogTabs {
		if tab.AttCode != e.CaseLog.AttCode {
			continue
		}
		tab.MessageCount++
		for _, login := range tab.Authors {
			if login == e.AuthorLogin {
				return
			}
		}
		tab.Authors = append(tab.Authors, e.AuthorLogin)
		return
	}
}

// Entries returns the entries in display order
func (t *Timeline) Entries() []*TimelineEntry {
	out := make([]*TimelineEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries
func (t *Timeline) Len() int {
	return len(t.entries)
}

// CaseLogTabs returns a copy of the case log tabs
func (t *Timeline) CaseLogTabs() []CaseLogTab {
	out := make([]CaseLogTab, len(t.caseLogTabs))
	for i, tab := range t.caseLogTabs {
		out[i] = *tab
		out[i].Authors = append([]string(nil), tab.Authors...)
	}
	return out
}

// HasCaseLogTabs reports whether the object has any case log attribute
func (t *Timeline) HasCaseLogTabs() bool {
	return len(t.caseLogTabs) > 0
}

// SetNewEntryForm attaches the new entry form. A form without targets is
// bound to every case log tab, the first one being the default.
func (t *Timeline) SetNewEntryForm(form *NewEntryForm) {
	if form != nil && len(form.Targets) == 0 {
		for _, tab := range t.caseLogTabs {
			form.Targets = append(form.Targets, tab.AttCode)
		}
	}
	if form != nil && form.DefaultTarget == "" && len(form.Targets) > 0 {
		form.DefaultTarget = form.Targets[0]
	}
	t.newEntryForm = form
}

// NewEntryForm returns the attached form, or nil
func (t *Timeline) NewEntryForm() *NewEntryForm {
	return t.newEntryForm
}

// HasNewEntryForm reports whether a new entry form is attached
func (t *Timeline) HasNewEntryForm() bool {
	return t.newEntryForm != nil
}
