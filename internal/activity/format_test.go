package activity

import (
	"testing"

	"github.com/andy/casetrail/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestHeadlineAndDetails(t *testing.T) {
	edits := domain.NewEditsEntry(setOp(1, 1, "alice", "title", "", "Printer"), "Title")
	_ = edits.Merge(domain.NewEditsEntry(setOp(2, 1, "alice", "priority", "3", "1"), "Priority"))

	assert.Equal(t, "alice modified Title, Priority", Headline(edits))
	assert.Equal(t, []string{"Title: (empty) -> Printer", "Priority: 3 -> 1"}, Details(edits))

	op := setOp(3, 2, "bob", "status", "new", "assigned")
	op.UserName = "Bob Stone"
	transition := domain.NewTransitionEntry(op)
	assert.Equal(t, "Bob Stone moved from new to assigned", Headline(transition))
	assert.Nil(t, Details(transition))

	caseLog := domain.NewCaseLogEntry(&domain.CaseLogRecord{ID: 1, AttCode: "public_log", Message: "line 1\nline 2", UserLogin: "carol"}, "Public log")
	assert.Equal(t, "carol wrote in Public log", Headline(caseLog))
	assert.Equal(t, []string{"line 1", "line 2"}, Details(caseLog))
}

func TestFilterByCaseLog(t *testing.T) {
	public := domain.NewCaseLogEntry(&domain.CaseLogRecord{ID: 1, AttCode: "public_log"}, "Public log")
	private := domain.NewCaseLogEntry(&domain.CaseLogRecord{ID: 2, AttCode: "private_log"}, "Private log")
	edits := domain.NewEditsEntry(setOp(1, 1, "alice", "title", "", "x"), "Title")
	entries := []*domain.TimelineEntry{public, private, edits}

	assert.Equal(t, entries, FilterByCaseLog(entries, ""))
	assert.Equal(t, []*domain.TimelineEntry{private}, FilterByCaseLog(entries, "private_log"))
}
