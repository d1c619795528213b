package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func editsOp(id int64, attCode, oldValue, newValue string) *ChangeOp {
	return &ChangeOp{
		ID:        id,
		ChangeID:  1,
		OpType:    OpSetAttributeScalar,
		ObjClass:  "UserRequest",
		ObjKey:    1,
		AttCode:   attCode,
		OldValue:  oldValue,
		NewValue:  newValue,
		Date:      time.Now(),
		UserLogin: "alice",
	}
}

func TestMerge(t *testing.T) {
	entry := NewEditsEntry(editsOp(1, "title", "a", "b"), "Title")
	require.NoError(t, entry.Merge(NewEditsEntry(editsOp(2, "caller", "", "bob"), "Caller")))
	require.NoError(t, entry.Merge(NewEditsEntry(editsOp(3, "title", "b", "c"), "Title")))

	assert.Equal(t, []AttributeEdit{
		{AttCode: "title", AttLabel: "Title", OldValue: "a", NewValue: "c"},
		{AttCode: "caller", AttLabel: "Caller", OldValue: "", NewValue: "bob"},
	}, entry.Edits.Attributes)
	assert.Equal(t, "changeop-1", entry.ID)
}

func TestMerge_RejectsOtherKinds(t *testing.T) {
	edits := NewEditsEntry(editsOp(1, "title", "a", "b"), "Title")
	transition := NewTransitionEntry(editsOp(2, "status", "new", "assigned"))

	err := edits.Merge(transition)
	assert.True(t, errors.Is(err, ErrNotMergeable))

	err = transition.Merge(edits)
	assert.True(t, errors.Is(err, ErrNotMergeable))
}

func TestTimeline_TabsAndForm(t *testing.T) {
	classes, err := NewClassRegistry(DefaultClasses()...)
	require.NoError(t, err)
	class, err := classes.Get("UserRequest")
	require.NoError(t, err)

	timeline := NewTimeline(ObjectRef{Class: "UserRequest", ID: 1}, class)
	require.True(t, timeline.HasCaseLogTabs())

	for i, login := range []string{"bob", "carol", "bob"} {
		timeline.AddEntry(NewCaseLogEntry(&CaseLogRecord{ID: int64(i + 1), AttCode: "private_log", Message: "m", UserLogin: login}, "Private log"))
	}

	tabs := timeline.CaseLogTabs()
	require.Len(t, tabs, 2)
	assert.Equal(t, 0, tabs[0].MessageCount)
	assert.Equal(t, 3, tabs[1].MessageCount)
	assert.Equal(t, []string{"bob", "carol"}, tabs[1].Authors)

	// returned tabs are copies
	tabs[1].Authors[0] = "mallory"
	assert.Equal(t, "bob", timeline.CaseLogTabs()[1].Authors[0])

	assert.False(t, timeline.HasNewEntryForm())
	timeline.SetNewEntryForm(&NewEntryForm{Targets: []string{"private_log"}})
	assert.Equal(t, "private_log", timeline.NewEntryForm().DefaultTarget)
}

func TestTimeline_WithoutCaseLogs(t *testing.T) {
	classes, err := NewClassRegistry(DefaultClasses()...)
	require.NoError(t, err)
	class, err := classes.Get("Server")
	require.NoError(t, err)

	timeline := NewTimeline(ObjectRef{Class: "Server", ID: 1}, class)
	assert.False(t, timeline.HasCaseLogTabs())
	assert.Empty(t, timeline.CaseLogTabs())
}

func TestClassValidate(t *testing.T) {
	tests := []struct {
		name  string
		class ClassDef
		valid bool
	}{
		{name: "minimal", class: ClassDef{Name: "Team"}, valid: true},
		{name: "no name", class: ClassDef{}},
		{name: "reserved attribute", class: ClassDef{Name: "Team", Attributes: []AttributeDef{{Code: "name", Type: AttributeString}}}},
		{name: "duplicate", class: ClassDef{Name: "Team", Attributes: []AttributeDef{{Code: "a", Type: AttributeString}, {Code: "a", Type: AttributeText}}}},
		{name: "enum without values", class: ClassDef{Name: "Team", Attributes: []AttributeDef{{Code: "a", Type: AttributeEnum}}}},
		{name: "unknown type", class: ClassDef{Name: "Team", Attributes: []AttributeDef{{Code: "a", Type: "blob"}}}},
		{name: "state not declared", class: ClassDef{Name: "Team", StateAttCode: "status"}},
		{
			name: "state not enum",
			class: ClassDef{Name: "Team", StateAttCode: "status", Attributes: []AttributeDef{
				{Code: "status", Type: AttributeString},
			}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.class.Validate()
			if test.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestClassRegistry_OverridesKeepOrder(t *testing.T) {
	override := ClassDef{Name: "UserRequest", Label: "Request"}
	registry, err := NewClassRegistry(append(DefaultClasses(), override)...)
	require.NoError(t, err)

	list := registry.List()
	require.Len(t, list, 3)
	assert.Equal(t, "Request", list[0].Label)

	_, err = registry.Get("Nope")
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestObjectValidate(t *testing.T) {
	registry, err := NewClassRegistry(DefaultClasses()...)
	require.NoError(t, err)
	class, err := registry.Get("Server")
	require.NoError(t, err)

	obj := NewObject("Server", "srv-01")
	obj.Attributes["status"] = "production"
	assert.NoError(t, obj.Validate(class))

	obj.Attributes["status"] = "on fire"
	assert.ErrorIs(t, obj.Validate(class), ErrInvalidObject)

	obj = NewObject("Server", "")
	assert.ErrorIs(t, obj.Validate(class), ErrInvalidObject)

	obj = NewObject("Server", "srv-02")
	obj.Attributes["gpu"] = "none"
	assert.ErrorIs(t, obj.Validate(class), ErrUnknownAttribute)

	assert.Equal(t, "Server::0", obj.String())
}
