// Package activity assembles the activity panel of an object: its case log
// messages followed by its change history, with consecutive edits of one
// change by one author collapsed into a single entry.
package activity

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/andy/casetrail/internal/domain"
	"github.com/andy/casetrail/internal/logging"
	"github.com/andy/casetrail/internal/repository"
)

// CaseLogReader reads the messages of one case log in its native order
type CaseLogReader interface {
	GetCaseLog(ctx context.Context, ref domain.ObjectRef, attCode string) ([]*domain.CaseLogRecord, error)
}

// ChangeOpQuerier opens a cursor over the change history of an object
type ChangeOpQuerier interface {
	QueryChangeOps(ctx context.Context, q domain.ChangeOpQuery) (repository.ChangeOpCursor, error)
}

// Assembler builds timelines for object detail screens
type Assembler struct {
	classes          *domain.ClassRegistry
	caseLogs         CaseLogReader
	changes          ChangeOpQuerier
	entries          EntryFactory
	forms            FormFactory
	maxHistoryLength atomic.Int64
	logger           logging.Logger
}

// NewAssembler creates an assembler. maxHistoryLength caps the change ops
// read per timeline; zero or less reads the whole history.
func NewAssembler(
	classes *domain.ClassRegistry,
	caseLogs CaseLogReader,
	changes ChangeOpQuerier,
	entries EntryFactory,
	forms FormFactory,
	maxHistoryLength int,
	logger logging.Logger,
) *Assembler {
	if logger == nil {
		logger = logging.Nop()
	}
	a := &Assembler{
		classes:  classes,
		caseLogs: caseLogs,
		changes:  changes,
		entries:  entries,
		forms:    forms,
		logger:   logger,
	}
	a.SetMaxHistoryLength(maxHistoryLength)
	return a
}

// SetMaxHistoryLength changes the cap for timelines assembled afterwards
func (a *Assembler) SetMaxHistoryLength(n int) {
	a.maxHistoryLength.Store(int64(n))
}

// AssembleForObjectDetails builds the timeline of obj: every case log message
// in log order, then the change history in ascending op id order.
func (a *Assembler) AssembleForObjectDetails(ctx context.Context, obj *domain.Object) (*domain.Timeline, error) {
	if obj == nil {
		return nil, errors.New("nil object")
	}
	ref := obj.Ref()
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	class, err := a.classes.Get(obj.Class)
	if err != nil {
		return nil, err
	}

	timeline := domain.NewTimeline(ref, class)

	if err := a.addCaseLogEntries(ctx, timeline, ref, class); err != nil {
		return nil, err
	}

	if timeline.HasCaseLogTabs() {
		timeline.SetNewEntryForm(a.forms.MakeForObjectDetails())
	}

	if err := a.addHistoryEntries(ctx, timeline, ref); err != nil {
		return nil, err
	}

	return timeline, nil
}

func (a *Assembler) addCaseLogEntries(ctx context.Context, timeline *domain.Timeline, ref domain.ObjectRef, class *domain.ClassDef) error {
	for _, attCode := range class.CaseLogAttCodes() {
		records, err := a.caseLogs.GetCaseLog(ctx, ref, attCode)
		if err != nil {
			return fmt.Errorf("failed to read case log %s: %w", attCode, err)
		}

		for _, rec := range records {
			entry, err := a.entries.FromCaseLogRecord(attCode, rec)
			if err != nil {
				return fmt.Errorf("failed to convert case log entry: %w", err)
			}
			timeline.AddEntry(entry)
		}
	}
	return nil
}

// addHistoryEntries reads the change ops and merges adjacent edits.
// Case log ops are skipped: their messages were added from the logs
// themselves. They still count against the history limit.
func (a *Assembler) addHistoryEntries(ctx context.Context, timeline *domain.Timeline, ref domain.ObjectRef) error {
	limit := int(a.maxHistoryLength.Load())
	cursor, err := a.changes.QueryChangeOps(ctx, domain.ChangeOpQuery{
		Object: ref,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("failed to query change history: %w", err)
	}
	defer cursor.Close()

	var (
		previousChangeID int64
		previousEdits    *domain.TimelineEntry
		fetched, skipped int
		merged           int
	)

	for (limit <= 0 || fetched < limit) && cursor.Next() {
		op := cursor.ChangeOp()
		fetched++

		if op.IsCaseLog() {
			skipped++
			continue
		}

		entry, err := a.entries.FromChangeOp(op)
		if err != nil {
			return fmt.Errorf("failed to convert change op %d: %w", op.ID, err)
		}

		if mergeable(previousChangeID, op.ChangeID, previousEdits, entry) {
			if err := previousEdits.Merge(entry); err != nil {
				return err
			}
			merged++
		} else {
			timeline.AddEntry(entry)
			if entry.IsEdits() {
				previousEdits = entry
			}
		}

		previousChangeID = op.ChangeID
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("failed to read change history: %w", err)
	}

	a.logger.Debugw("assembled timeline",
		"object", ref.String(),
		"fetched", fetched,
		"skipped", skipped,
		"merged", merged,
		"entries", timeline.Len(),
	)
	return nil
}

// mergeable reports whether next continues the edits of previous: same
// change as the op just before it, both edits, same author.
func mergeable(previousChangeID, changeID int64, previous, next *domain.TimelineEntry) bool {
	if previous == nil || changeID != previousChangeID {
		return false
	}

	switch {
	case previous.Kind == domain.EntryEdits && next.Kind == domain.EntryEdits:
		return previous.AuthorLogin == next.AuthorLogin
	default:
		return false
	}
}
