package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andy/casetrail/internal/app"
	"github.com/andy/casetrail/internal/domain"
	"github.com/andy/casetrail/internal/service"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivityService struct {
	calls int
	err   error
}

func (f *fakeActivityService) GetTimeline(ctx context.Context, ref domain.ObjectRef) (*domain.Object, *domain.Timeline, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}

	class := &domain.ClassDef{
		Name: "UserRequest",
		Attributes: []domain.AttributeDef{
			{Code: "title", Label: "Title", Type: domain.AttributeString},
			{Code: "public_log", Label: "Public log", Type: domain.AttributeCaseLog},
			{Code: "private_log", Label: "Private log", Type: domain.AttributeCaseLog},
		},
	}
	obj := domain.NewObject(ref.Class, "Printer jam")
	obj.ID = ref.ID

	date := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	timeline := domain.NewTimeline(ref, class)
	timeline.AddEntry(domain.NewCaseLogEntry(&domain.CaseLogRecord{
		ID: 1, AttCode: "private_log", Message: "Called back", UserLogin: "bob", Date: date,
	}, "Private log"))
	timeline.AddEntry(domain.NewEditsEntry(&domain.ChangeOp{
		ID: 10, ChangeID: 5, OpType: domain.OpSetAttributeScalar, ObjClass: ref.Class, ObjKey: ref.ID,
		AttCode: "title", NewValue: "Printer jam", UserLogin: "alice", Date: date,
	}, "Title"))
	timeline.SetNewEntryForm(&domain.NewEntryForm{Placeholder: "Write...", SubmitLabel: "Send"})

	return obj, timeline, nil
}

type postedMessage struct {
	ref     domain.ObjectRef
	attCode string
	message string
	origin  domain.ChangeOrigin
}

type fakeObjectService struct {
	service.ObjectService
	posted []postedMessage
}

func (f *fakeObjectService) AppendCaseLog(ctx context.Context, ref domain.ObjectRef, attCode, message string, origin domain.ChangeOrigin) (*domain.CaseLogRecord, error) {
	f.posted = append(f.posted, postedMessage{ref: ref, attCode: attCode, message: message, origin: origin})
	return &domain.CaseLogRecord{AttCode: attCode, Message: message}, nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msg to the model and runs the returned command once
func send(t *testing.T, m *ActivityModel, msg tea.Msg) tea.Msg {
	t.Helper()
	_, cmd := m.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func newLoadedActivityModel(t *testing.T) (*ActivityModel, *fakeActivityService, *fakeObjectService) {
	t.Helper()

	activitySvc := &fakeActivityService{}
	objectSvc := &fakeObjectService{}
	a := &app.App{ActivityService: activitySvc, ObjectService: objectSvc}

	m := NewActivityModel(a, domain.ObjectRef{Class: "UserRequest", ID: 7}).(*ActivityModel)
	msg := m.Init()()
	send(t, m, msg)
	require.NotNil(t, m.timeline)

	return m, activitySvc, objectSvc
}

func TestActivityModelLoad(t *testing.T) {
	m, svc, _ := newLoadedActivityModel(t)

	assert.Equal(t, 1, svc.calls)
	assert.False(t, m.loading)

	view := m.View()
	assert.Contains(t, view, "All (2)")
	assert.Contains(t, view, "Public log (0)")
	assert.Contains(t, view, "Private log (1)")
	assert.Contains(t, view, "bob wrote in Private log")
	assert.Contains(t, view, "alice modified Title")
}

func TestActivityModelTabs(t *testing.T) {
	m, _, _ := newLoadedActivityModel(t)

	assert.Len(t, m.visible(), 2)
	assert.Equal(t, "public_log", m.target())

	send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "public_log", m.target())
	assert.Empty(t, m.visible())

	send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "private_log", m.target())
	assert.Len(t, m.visible(), 1)

	// wraps back to everything
	send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, m.currentTab())
	assert.Len(t, m.visible(), 2)
}

func TestActivityModelPost(t *testing.T) {
	m, svc, objects := newLoadedActivityModel(t)

	send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m.Update(runes("n"))
	require.True(t, m.IsCapturingInput())

	// an empty message is not posted
	assert.Nil(t, send(t, m, tea.KeyMsg{Type: tea.KeyEnter}))

	m.input.SetValue("Replaced the drum")
	posted := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.IsType(t, caseLogPostedMsg{}, posted)

	require.Len(t, objects.posted, 1)
	assert.Equal(t, postedMessage{
		ref:     domain.ObjectRef{Class: "UserRequest", ID: 7},
		attCode: "private_log",
		message: "Replaced the drum",
		origin:  domain.OriginTUI,
	}, objects.posted[0])

	reloaded := send(t, m, posted)
	assert.False(t, m.IsCapturingInput())
	assert.Equal(t, "Message added to private_log", m.statusMsg)

	send(t, m, reloaded)
	assert.Equal(t, 2, svc.calls)
}

func TestActivityModelLoadError(t *testing.T) {
	svc := &fakeActivityService{err: errors.New("boom")}
	m := NewActivityModel(&app.App{ActivityService: svc}, domain.ObjectRef{Class: "UserRequest", ID: 7}).(*ActivityModel)

	send(t, m, m.Init()())
	assert.Nil(t, m.timeline)
	assert.Contains(t, m.View(), "boom")

	// without a timeline the composer cannot open
	send(t, m, runes("n"))
	assert.False(t, m.IsCapturingInput())
}

func TestActivityModelPostAfterComposerClosed(t *testing.T) {
	m, svc, objects := newLoadedActivityModel(t)

	m.Update(runes("n"))
	m.input.SetValue("Ordered toner")
	posted := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.IsType(t, caseLogPostedMsg{}, posted)
	require.Len(t, objects.posted, 1)

	send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, m.IsCapturingInput())

	reloaded := send(t, m, posted)
	assert.Equal(t, "Message added to public_log", m.statusMsg)
	require.IsType(t, timelineDataMsg{}, reloaded)

	send(t, m, reloaded)
	assert.Equal(t, 2, svc.calls)
	assert.False(t, m.loading)
}

func TestActivityModelPostFailureKeepsComposer(t *testing.T) {
	m, svc, _ := newLoadedActivityModel(t)

	m.Update(runes("n"))
	assert.Nil(t, send(t, m, caseLogPostedMsg{attCode: "public_log", err: errors.New("disk full")}))

	assert.True(t, m.IsCapturingInput())
	assert.EqualError(t, m.err, "disk full")
	assert.Equal(t, 1, svc.calls)
}
