package activity

import (
	"fmt"
	"strings"

	"github.com/andy/casetrail/internal/domain"
)

const emptyValue = "(empty)"

// Author returns the display name of the entry's author
func Author(e *domain.TimelineEntry) string {
	if e.AuthorName != "" {
		return e.AuthorName
	}
	return e.AuthorLogin
}

// Headline returns a one line summary of the entry
func Headline(e *domain.TimelineEntry) string {
	switch e.Kind {
	case domain.EntryCaseLog:
		return fmt.Sprintf("%s wrote in %s", Author(e), e.CaseLog.AttLabel)
	case domain.EntryEdits:
		labels := make([]string, len(e.Edits.Attributes))
		for i, edit := range e.Edits.Attributes {
			labels[i] = edit.AttLabel
		}
		return fmt.Sprintf("%s modified %s", Author(e), strings.Join(labels, ", "))
	case domain.EntryTransition:
		return fmt.Sprintf("%s moved from %s to %s", Author(e), orEmpty(e.Transition.FromState), orEmpty(e.Transition.ToState))
	default:
		return fmt.Sprintf("%s: %s", Author(e), e.Description)
	}
}

// Details returns the body lines of the entry: the message of a case log
// entry, one "label: old -> new" line per edit, nothing otherwise.
func Details(e *domain.TimelineEntry) []string {
	switch e.Kind {
	case domain.EntryCaseLog:
		return strings.Split(e.CaseLog.Message, "\n")
	case domain.EntryEdits:
		lines := make([]string, len(e.Edits.Attributes))
		for i, edit := range e.Edits.Attributes {
			lines[i] = fmt.Sprintf("%s: %s -> %s", edit.AttLabel, orEmpty(edit.OldValue), orEmpty(edit.NewValue))
		}
		return lines
	default:
		return nil
	}
}

// FilterByCaseLog keeps the entries of one case log; an empty attCode keeps everything
func FilterByCaseLog(entries []*domain.TimelineEntry, attCode string) []*domain.TimelineEntry {
	if attCode == "" {
		return entries
	}
	out := make([]*domain.TimelineEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == domain.EntryCaseLog && e.CaseLog.AttCode == attCode {
			out = append(out, e)
		}
	}
	return out
}

func orEmpty(s string) string {
	if s == "" {
		return emptyValue
	}
	return s
}
