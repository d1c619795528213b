package activity

import "github.com/andy/casetrail/internal/domain"

// FormFactory produces the new entry form attached to object timelines
type FormFactory interface {
	MakeForObjectDetails() *domain.NewEntryForm
}

// DefaultFormFactory returns a form bound to every case log of the object
type DefaultFormFactory struct{}

// MakeForObjectDetails returns a form without explicit targets; the
// timeline binds it to its case log tabs.
func (DefaultFormFactory) MakeForObjectDetails() *domain.NewEntryForm {
	return &domain.NewEntryForm{
		Placeholder: "Write a new entry...",
		SubmitLabel: "Send",
	}
}
