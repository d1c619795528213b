package domain

import (
	"fmt"
	"time"
)

// EntryKind discriminates the variants of TimelineEntry
type EntryKind int

const (
	EntryCaseLog EntryKind = iota
	EntryEdits
	EntryTransition
	EntryCreation
	EntryDeletion
	EntryGeneric
)

// String returns the kind name
func (k EntryKind) String() string {
	switch k {
	case EntryCaseLog:
		return "caselog"
	case EntryEdits:
		return "edits"
	case EntryTransition:
		return "transition"
	case EntryCreation:
		return "creation"
	case EntryDeletion:
		return "deletion"
	case EntryGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// CaseLogPayload is the content of a case log entry
type CaseLogPayload struct {
	AttCode  string
	AttLabel string
	Message  string
}

// AttributeEdit describes one field-level edit
type AttributeEdit struct {
	AttCode  string
	AttLabel string
	OldValue string
	NewValue string
}

// EditsPayload holds the edits of one change, in arrival order
type EditsPayload struct {
	Attributes []AttributeEdit
}

// TransitionPayload describes a lifecycle state change
type TransitionPayload struct {
	AttCode   string
	FromState string
	ToState   string
}

// TimelineEntry is one item of a timeline.
// Exactly one payload is set for CaseLog, Edits and Transition entries;
// Creation, Deletion and Generic entries only carry a Description.
type TimelineEntry struct {
	ID          string
	Kind        EntryKind
	Date        time.Time
	AuthorLogin string
	AuthorName  string
	Origin      ChangeOrigin
	ChangeID    int64 // zero for case log entries
	Description string

	CaseLog    *CaseLogPayload
	Edits      *EditsPayload
	Transition *TransitionPayload
}

// NewCaseLogEntry builds an entry from a case log record
func NewCaseLogEntry(rec *CaseLogRecord, attLabel string) *TimelineEntry {
	return &TimelineEntry{
		ID:          fmt.Sprintf("caselog-%d", rec.ID),
		Kind:        EntryCaseLog,
		Date:        rec.Date,
		AuthorLogin: rec.UserLogin,
		AuthorName:  rec.UserName,
		CaseLog: &CaseLogPayload{
			AttCode:  rec.AttCode,
			AttLabel: attLabel,
			Message:  rec.Message,
		},
	}
}

// newOpEntry fills the fields shared by all history-derived entries
func newOpEntry(op *ChangeOp, kind EntryKind) *TimelineEntry {
	return &TimelineEntry{
		ID:          fmt.Sprintf("changeop-%d", op.ID),
		Kind:        kind,
		Date:        op.Date,
		AuthorLogin: op.UserLogin,
		AuthorName:  op.UserName,
		Origin:      op.Origin,
		ChangeID:    op.ChangeID,
	}
}

// NewEditsEntry builds an edits entry holding a single edit
func NewEditsEntry(op *ChangeOp, attLabel string) *TimelineEntry {
	e := newOpEntry(op, EntryEdits)
	e.Edits = &EditsPayload{
		Attributes: []AttributeEdit{{
			AttCode:  op.AttCode,
			AttLabel: attLabel,
			OldValue: op.OldValue,
			NewValue: op.NewValue,
		}},
	}
	return e
}

// NewTransitionEntry builds an entry for a state attribute change
func NewTransitionEntry(op *ChangeOp) *TimelineEntry {
	e := newOpEntry(op, EntryTransition)
	e.Transition = &TransitionPayload{
		AttCode:   op.AttCode,
		FromState: op.OldValue,
		ToState:   op.NewValue,
	}
	return e
}

// NewDescribedEntry builds a creation, deletion or generic entry
func NewDescribedEntry(op *ChangeOp, kind EntryKind, description string) *TimelineEntry {
	e := newOpEntry(op, kind)
	e.Description = description
	return e
}

// IsEdits reports whether the entry is an edits entry
func (e *TimelineEntry) IsEdits() bool {
	return e != nil && e.Kind == EntryEdits && e.Edits != nil
}

// Merge absorbs the edits of other into e. Both entries must be edits entries.
// An attribute edited twice keeps its position and original old value.
func (e *TimelineEntry) Merge(other *TimelineEntry) error {
	if !e.IsEdits() || !other.IsEdits() {
		return fmt.Errorf("%w: %s into %s", ErrNotMergeable, other.Kind, e.Kind)
	}

	for _, edit := range other.Edits.Attributes {
		merged := false
		for i := range e.Edits.Attributes {
			if e.Edits.Attributes[i].AttCode == edit.AttCode {
				e.Edits.Attributes[i].NewValue = edit.NewValue
				merged = true
				break
			}
		}
		if !merged {
			e.Edits.Attributes = append(e.Edits.Attributes, edit)
		}
	}
	return nil
}

// AttCodes returns the codes of the edited attributes
func (p *EditsPayload) AttCodes() []string {
	codes := make([]string, len(p.Attributes))
	for i, a := range p.Attributes {
		codes[i] = a.AttCode
	}
	return codes
}
