package activity

import (
	"errors"
	"fmt"

	"github.com/andy/casetrail/internal/domain"
)

// EntryFactory converts raw case log records and change ops into timeline entries
type EntryFactory interface {
	FromCaseLogRecord(attCode string, rec *domain.CaseLogRecord) (*domain.TimelineEntry, error)
	FromChangeOp(op *domain.ChangeOp) (*domain.TimelineEntry, error)
}

// ClassEntryFactory resolves attribute labels and state attributes from the class registry
type ClassEntryFactory struct {
	classes *domain.ClassRegistry
}

// NewEntryFactory creates an entry factory backed by classes
func NewEntryFactory(classes *domain.ClassRegistry) *ClassEntryFactory {
	return &ClassEntryFactory{classes: classes}
}

// FromCaseLogRecord builds a case log entry for the record of attribute attCode
func (f *ClassEntryFactory) FromCaseLogRecord(attCode string, rec *domain.CaseLogRecord) (*domain.TimelineEntry, error) {
	if rec == nil {
		return nil, errors.New("nil case log record")
	}
	if rec.AttCode != "" && rec.AttCode != attCode {
		return nil, fmt.Errorf("case log record %d belongs to %s, not %s", rec.ID, rec.AttCode, attCode)
	}

	label := attCode
	if class, err := f.classes.Get(rec.ObjClass); err == nil {
		if att, ok := class.Attribute(attCode); ok {
			label = att.DisplayLabel()
		}
	}

	r := *rec
	r.AttCode = attCode
	return domain.NewCaseLogEntry(&r, label), nil
}

// FromChangeOp builds the entry matching the op's type
func (f *ClassEntryFactory) FromChangeOp(op *domain.ChangeOp) (*domain.TimelineEntry, error) {
	if op == nil {
		return nil, fmt.Errorf("%w: nil op", domain.ErrMalformedChangeOp)
	}
	if op.ChangeID <= 0 {
		return nil, fmt.Errorf("%w: op %d has no change", domain.ErrMalformedChangeOp, op.ID)
	}
	if op.OpType == "" {
		return nil, fmt.Errorf("%w: op %d has no type", domain.ErrMalformedChangeOp, op.ID)
	}

	class, err := f.classes.Get(op.ObjClass)
	if err != nil {
		return nil, err
	}

	switch {
	case op.OpType == domain.OpCreate:
		return domain.NewDescribedEntry(op, domain.EntryCreation,
			fmt.Sprintf("%s %q created", classLabel(class), op.NewValue)), nil

	case op.OpType == domain.OpDelete:
		return domain.NewDescribedEntry(op, domain.EntryDeletion,
			fmt.Sprintf("%s %q deleted", classLabel(class), op.OldValue)), nil

	case op.IsAttributeSet():
		if class.StateAttCode != "" && op.AttCode == class.StateAttCode {
			return domain.NewTransitionEntry(op), nil
		}
		// history outlives class definitions: an attribute removed since
		// the op was recorded is shown by its code
		label := op.AttCode
		if op.AttCode == "name" {
			label = "Name"
		} else if att, ok := class.Attribute(op.AttCode); ok {
			label = att.DisplayLabel()
		}
		return domain.NewEditsEntry(op, label), nil

	case op.IsCaseLog():
		label := op.AttCode
		if att, ok := class.Attribute(op.AttCode); ok {
			label = att.DisplayLabel()
		}
		return domain.NewDescribedEntry(op, domain.EntryGeneric,
			fmt.Sprintf("New entry in %s", label)), nil

	default:
		description := op.NewValue
		if description == "" {
			description = fmt.Sprintf("%s on %s", op.OpType, op.AttCode)
		}
		return domain.NewDescribedEntry(op, domain.EntryGeneric, description), nil
	}
}

func classLabel(class *domain.ClassDef) string {
	if class.Label != "" {
		return class.Label
	}
	return class.Name
}
