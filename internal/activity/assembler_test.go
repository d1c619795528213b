package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andy/casetrail/internal/domain"
	"github.com/andy/casetrail/internal/repository"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mock implementations
type mockCaseLogReader struct {
	logs map[string][]*domain.CaseLogRecord
	err  error
}

func (m *mockCaseLogReader) GetCaseLog(ctx context.Context, ref domain.ObjectRef, attCode string) ([]*domain.CaseLogRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.logs[attCode], nil
}

type sliceCursor struct {
	ops      []*domain.ChangeOp
	pos      int
	consumed int
	closed   bool
	err      error
}

func (c *sliceCursor) Next() bool {
	if c.pos >= len(c.ops) {
		return false
	}
	c.pos++
	c.consumed++
	return true
}

func (c *sliceCursor) ChangeOp() *domain.ChangeOp { return c.ops[c.pos-1] }
func (c *sliceCursor) Err() error                 { return c.err }
func (c *sliceCursor) Close() error {
	c.closed = true
	return nil
}

// mockChangeOpQuerier applies the limit like the SQL repository unless ignoreLimit is set
type mockChangeOpQuerier struct {
	ops         []*domain.ChangeOp
	ignoreLimit bool
	err         error
	cursorErr   error

	lastQuery domain.ChangeOpQuery
	cursor    *sliceCursor
}

func (m *mockChangeOpQuerier) QueryChangeOps(ctx context.Context, q domain.ChangeOpQuery) (repository.ChangeOpCursor, error) {
	m.lastQuery = q
	if m.err != nil {
		return nil, m.err
	}
	ops := m.ops
	if !m.ignoreLimit && q.Limit > 0 && len(ops) > q.Limit {
		ops = ops[:q.Limit]
	}
	m.cursor = &sliceCursor{ops: ops, err: m.cursorErr}
	return m.cursor, nil
}

var baseDate = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func setOp(id, changeID int64, author, attCode, oldValue, newValue string) *domain.ChangeOp {
	return &domain.ChangeOp{
		ID:        id,
		ChangeID:  changeID,
		OpType:    domain.OpSetAttributeScalar,
		ObjClass:  "UserRequest",
		ObjKey:    7,
		AttCode:   attCode,
		OldValue:  oldValue,
		NewValue:  newValue,
		Date:      baseDate,
		UserLogin: author,
	}
}

func caseLogOp(id, changeID int64, author, attCode string) *domain.ChangeOp {
	op := setOp(id, changeID, author, attCode, "", "1")
	op.OpType = domain.OpSetAttributeCaseLog
	return op
}

func newTestRegistry(t *testing.T) *domain.ClassRegistry {
	t.Helper()
	registry, err := domain.NewClassRegistry(domain.DefaultClasses()...)
	require.NoError(t, err)
	return registry
}

func newTestAssembler(t *testing.T, logs *mockCaseLogReader, changes *mockChangeOpQuerier, limit int) *Assembler {
	t.Helper()
	registry := newTestRegistry(t)
	return NewAssembler(registry, logs, changes, NewEntryFactory(registry), DefaultFormFactory{}, limit, nil)
}

func userRequest() *domain.Object {
	obj := domain.NewObject("UserRequest", "Printer on fire")
	obj.ID = 7
	return obj
}

// entrySummary is the comparable shape of a timeline entry
type entrySummary struct {
	Kind     domain.EntryKind
	Author   string
	ChangeID int64
	Message  string
	AttCodes []string
}

func summarize(entries []*domain.TimelineEntry) []entrySummary {
	out := make([]entrySummary, len(entries))
	for i, e := range entries {
		s := entrySummary{Kind: e.Kind, Author: e.AuthorLogin, ChangeID: e.ChangeID}
		if e.CaseLog != nil {
			s.Message = e.CaseLog.Message
		}
		if e.Edits != nil {
			s.AttCodes = e.Edits.AttCodes()
		}
		out[i] = s
	}
	return out
}

func TestAssembleForObjectDetails_Example(t *testing.T) {
	logs := &mockCaseLogReader{logs: map[string][]*domain.CaseLogRecord{
		"public_log": {{ID: 1, ObjClass: "UserRequest", ObjKey: 7, AttCode: "public_log", Message: "Hello", UserLogin: "bob", Date: baseDate}},
	}}
	changes := &mockChangeOpQuerier{ops: []*domain.ChangeOp{
		setOp(10, 5, "alice", "title", "Printer", "Printer on fire"),
		setOp(11, 5, "alice", "priority", "3", "1"),
		caseLogOp(12, 6, "bob", "public_log"),
	}}

	timeline, err := newTestAssembler(t, logs, changes, 50).AssembleForObjectDetails(context.Background(), userRequest())
	require.NoError(t, err)

	expected := []entrySummary{
		{Kind: domain.EntryCaseLog, Author: "bob", Message: "Hello"},
		{Kind: domain.EntryEdits, Author: "alice", ChangeID: 5, AttCodes: []string{"title", "priority"}},
	}
	if got := summarize(timeline.Entries()); !cmp.Equal(expected, got) {
		t.Errorf("timeline differs from expected:\n%s", cmp.Diff(expected, got))
	}

	assert.True(t, timeline.HasNewEntryForm())
	assert.Equal(t, []string{"public_log", "private_log"}, timeline.NewEntryForm().Targets)
	assert.Equal(t, "public_log", timeline.NewEntryForm().DefaultTarget)
	assert.True(t, changes.cursor.closed)
}

func TestAssembleForObjectDetails_StateTransitionEntry(t *testing.T) {
	changes := &mockChangeOpQuerier{ops: []*domain.ChangeOp{
		setOp(1, 1, "alice", "priority", "3", "1"),
		setOp(2, 1, "alice", "status", "new", "assigned"),
		setOp(3, 1, "alice", "agent", "", "carol"),
	}}

	timeline, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 50).AssembleForObjectDetails(context.Background(), userRequest())
	require.NoError(t, err)

	entries := timeline.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryTransition, entries[1].Kind)
	assert.Equal(t, "assigned", entries[1].Transition.ToState)

	// the edit after the transition still joins the last edits entry of its change
	assert.Equal(t, []string{"priority", "agent"}, entries[0].Edits.AttCodes())
}

func TestAssembleForObjectDetails_NoCaseLogAttributes(t *testing.T) {
	server := domain.NewObject("Server", "srv-01")
	server.ID = 3
	changes := &mockChangeOpQuerier{}

	timeline, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 50).AssembleForObjectDetails(context.Background(), server)
	require.NoError(t, err)

	assert.False(t, timeline.HasCaseLogTabs())
	assert.False(t, timeline.HasNewEntryForm())
	assert.Nil(t, timeline.NewEntryForm())
}

func TestAssembleForObjectDetails_FormAttachedWithEmptyLogs(t *testing.T) {
	timeline, err := newTestAssembler(t, &mockCaseLogReader{}, &mockChangeOpQuerier{}, 50).
		AssembleForObjectDetails(context.Background(), userRequest())
	require.NoError(t, err)

	assert.Equal(t, 0, timeline.Len())
	assert.True(t, timeline.HasCaseLogTabs())
	assert.True(t, timeline.HasNewEntryForm())
}

func TestAssembleForObjectDetails_CaseLogsKeepNativeOrderAndComeFirst(t *testing.T) {
	logs := &mockCaseLogReader{logs: map[string][]*domain.CaseLogRecord{
		"public_log": {
			{ID: 3, AttCode: "public_log", Message: "third", UserLogin: "bob", Date: baseDate.Add(2 * time.Hour)},
			{ID: 1, AttCode: "public_log", Message: "first", UserLogin: "carol", Date: baseDate},
		},
		"private_log": {
			{ID: 2, AttCode: "private_log", Message: "internal", UserLogin: "bob", Date: baseDate.Add(time.Hour)},
		},
	}}
	changes := &mockChangeOpQuerier{ops: []*domain.ChangeOp{setOp(1, 1, "alice", "title", "", "x")}}

	timeline, err := newTestAssembler(t, logs, changes, 50).AssembleForObjectDetails(context.Background(), userRequest())
	require.NoError(t, err)

	messages := make([]string, 0)
	for _, e := range timeline.Entries() {
		if e.CaseLog != nil {
			messages = append(messages, e.CaseLog.Message)
		}
	}
	assert.Equal(t, []string{"third", "first", "internal"}, messages)
	assert.Equal(t, domain.EntryEdits, timeline.Entries()[3].Kind)

	tabs := timeline.CaseLogTabs()
	require.Len(t, tabs, 2)
	assert.Equal(t, 2, tabs[0].MessageCount)
	assert.Equal(t, []string{"bob", "carol"}, tabs[0].Authors)
	assert.Equal(t, 1, tabs[1].MessageCount)
}

func TestAssembleForObjectDetails_IdOrderNotTimestampOrder(t *testing.T) {
	// same timestamp, ops delivered in id order must stay in that order
	first := setOp(20, 8, "alice", "title", "", "a")
	second := setOp(21, 9, "bob", "caller", "", "b")
	second.Date = first.Date

	changes := &mockChangeOpQuerier{ops: []*domain.ChangeOp{first, second}}
	timeline, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 50).AssembleForObjectDetails(context.Background(), userRequest())
	require.NoError(t, err)

	entries := timeline.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "changeop-20", entries[0].ID)
	assert.Equal(t, "changeop-21", entries[1].ID)
}

func TestAssembleForObjectDetails_CaseLogOpsDoNotBreakAdjacency(t *testing.T) {
	changes := &mockChangeOpQuerier{ops: []*domain.ChangeOp{
		setOp(1, 4, "alice", "title", "", "a"),
		caseLogOp(2, 4, "alice", "public_log"),
		setOp(3, 4, "alice", "caller", "", "b"),
	}}

	timeline, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 50).AssembleForObjectDetails(context.Background(), userRequest())
	require.NoError(t, err)

	require.Equal(t, 1, timeline.Len())
	assert.Equal(t, []string{"title", "caller"}, timeline.Entries()[0].Edits.AttCodes())
}

func TestAssembleForObjectDetails_MergeRuns(t *testing.T) {
	tests := []struct {
		name     string
		ops      []*domain.ChangeOp
		expected []entrySummary
	}{
		{
			name: "run of same change and author collapses",
			ops: []*domain.ChangeOp{
				setOp(1, 1, "alice", "title", "", "a"),
				setOp(2, 1, "alice", "caller", "", "b"),
				setOp(3, 1, "alice", "agent", "", "c"),
				setOp(4, 1, "alice", "priority", "", "2"),
			},
			expected: []entrySummary{
				{Kind: domain.EntryEdits, Author: "alice", ChangeID: 1, AttCodes: []string{"title", "caller", "agent", "priority"}},
			},
		},
		{
			name: "different authors in one change stay apart",
			ops: []*domain.ChangeOp{
				setOp(1, 1, "alice", "title", "", "a"),
				setOp(2, 1, "bob", "caller", "", "b"),
			},
			expected: []entrySummary{
				{Kind: domain.EntryEdits, Author: "alice", ChangeID: 1, AttCodes: []string{"title"}},
				{Kind: domain.EntryEdits, Author: "bob", ChangeID: 1, AttCodes: []string{"caller"}},
			},
		},
		{
			name: "interrupted change is not merged across",
			ops: []*domain.ChangeOp{
				setOp(1, 1, "alice", "title", "", "a"),
				setOp(2, 2, "alice", "caller", "", "b"),
				setOp(3, 1, "alice", "agent", "", "c"),
			},
			expected: []entrySummary{
				{Kind: domain.EntryEdits, Author: "alice", ChangeID: 1, AttCodes: []string{"title"}},
				{Kind: domain.EntryEdits, Author: "alice", ChangeID: 2, AttCodes: []string{"caller"}},
				{Kind: domain.EntryEdits, Author: "alice", ChangeID: 1, AttCodes: []string{"agent"}},
			},
		},
		{
			name: "same attribute twice in one change keeps one edit",
			ops: []*domain.ChangeOp{
				setOp(1, 1, "alice", "title", "a", "b"),
				setOp(2, 1, "alice", "title", "b", "c"),
			},
			expected: []entrySummary{
				{Kind: domain.EntryEdits, Author: "alice", ChangeID: 1, AttCodes: []string{"title"}},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			changes := &mockChangeOpQuerier{ops: test.ops}
			timeline, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 50).AssembleForObjectDetails(context.Background(), userRequest())
			require.NoError(t, err)

			if got := summarize(timeline.Entries()); !cmp.Equal(test.expected, got) {
				t.Errorf("timeline differs from expected:\n%s", cmp.Diff(test.expected, got))
			}
		})
	}
}

func TestAssembleForObjectDetails_MergedEditKeepsNetChange(t *testing.T) {
	changes := &mockChangeOpQuerier{ops: []*domain.ChangeOp{
		setOp(1, 1, "alice", "title", "a", "b"),
		setOp(2, 1, "alice", "caller", "", "x"),
		setOp(3, 1, "alice", "title", "b", "c"),
	}}

	timeline, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 50).AssembleForObjectDetails(context.Background(), userRequest())
	require.NoError(t, err)

	edits := timeline.Entries()[0].Edits.Attributes
	require.Len(t, edits, 2)
	assert.Equal(t, domain.AttributeEdit{AttCode: "title", AttLabel: "Title", OldValue: "a", NewValue: "c"}, edits[0])
	assert.Equal(t, "changeop-1", timeline.Entries()[0].ID)
}

func TestAssembleForObjectDetails_HistoryLimit(t *testing.T) {
	ops := []*domain.ChangeOp{
		caseLogOp(1, 1, "bob", "public_log"),
		caseLogOp(2, 2, "bob", "public_log"),
		setOp(3, 3, "alice", "title", "", "a"),
		setOp(4, 4, "alice", "caller", "", "b"),
	}

	t.Run("limit is passed to the query and case log ops count", func(t *testing.T) {
		changes := &mockChangeOpQuerier{ops: ops}
		timeline, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 3).AssembleForObjectDetails(context.Background(), userRequest())
		require.NoError(t, err)

		assert.Equal(t, 3, changes.lastQuery.Limit)
		assert.Equal(t, 1, timeline.Len())
	})

	t.Run("rows beyond the limit are never consumed", func(t *testing.T) {
		changes := &mockChangeOpQuerier{ops: ops, ignoreLimit: true}
		timeline, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 2).AssembleForObjectDetails(context.Background(), userRequest())
		require.NoError(t, err)

		assert.Equal(t, 2, changes.cursor.consumed)
		assert.Equal(t, 0, timeline.Len())
	})
}

func TestAssembleForObjectDetails_Errors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("unknown class", func(t *testing.T) {
		obj := domain.NewObject("Printer", "p1")
		obj.ID = 1
		_, err := newTestAssembler(t, &mockCaseLogReader{}, &mockChangeOpQuerier{}, 50).AssembleForObjectDetails(context.Background(), obj)
		assert.ErrorIs(t, err, domain.ErrUnknownClass)
	})

	t.Run("missing key", func(t *testing.T) {
		obj := domain.NewObject("UserRequest", "unsaved")
		_, err := newTestAssembler(t, &mockCaseLogReader{}, &mockChangeOpQuerier{}, 50).AssembleForObjectDetails(context.Background(), obj)
		assert.Error(t, err)
	})

	t.Run("case log read failure", func(t *testing.T) {
		_, err := newTestAssembler(t, &mockCaseLogReader{err: boom}, &mockChangeOpQuerier{}, 50).AssembleForObjectDetails(context.Background(), userRequest())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("query failure", func(t *testing.T) {
		_, err := newTestAssembler(t, &mockCaseLogReader{}, &mockChangeOpQuerier{err: boom}, 50).AssembleForObjectDetails(context.Background(), userRequest())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cursor failure", func(t *testing.T) {
		changes := &mockChangeOpQuerier{cursorErr: boom}
		_, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 50).AssembleForObjectDetails(context.Background(), userRequest())
		assert.ErrorIs(t, err, boom)
		assert.True(t, changes.cursor.closed)
	})

	t.Run("malformed op", func(t *testing.T) {
		op := setOp(1, 0, "alice", "title", "", "a")
		changes := &mockChangeOpQuerier{ops: []*domain.ChangeOp{op}}
		_, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 50).AssembleForObjectDetails(context.Background(), userRequest())
		assert.ErrorIs(t, err, domain.ErrMalformedChangeOp)
	})
}

func TestAssembleForObjectDetails_DoesNotMutateObject(t *testing.T) {
	obj := userRequest()
	obj.Attributes["title"] = "Printer on fire"
	before := obj.Clone()

	changes := &mockChangeOpQuerier{ops: []*domain.ChangeOp{setOp(1, 1, "alice", "title", "", "Printer on fire")}}
	_, err := newTestAssembler(t, &mockCaseLogReader{}, changes, 50).AssembleForObjectDetails(context.Background(), obj)
	require.NoError(t, err)

	assert.Equal(t, before, obj)
}
