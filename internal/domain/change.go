package domain

import (
	"errors"
	"time"
)

// ChangeOrigin records where a change came from
type ChangeOrigin string

const (
	OriginInteractive ChangeOrigin = "interactive"
	OriginCLI         ChangeOrigin = "cli"
	OriginTUI         ChangeOrigin = "tui"
	OriginImport      ChangeOrigin = "csv-import"
)

// Change groups all the ops committed together as one logical update
type Change struct {
	ID        int64
	Date      time.Time
	UserLogin string
	UserName  string
	Origin    ChangeOrigin
}

// NewChange creates a change for the given author. An empty origin means
// the change was made interactively.
func NewChange(userLogin, userName string, origin ChangeOrigin) *Change {
	if origin == "" {
		origin = OriginInteractive
	}
	return &Change{
		Date:      time.Now(),
		UserLogin: userLogin,
		UserName:  userName,
		Origin:    origin,
	}
}

// Validate returns an error if the change is invalid
func (c *Change) Validate() error {
	if c.UserLogin == "" {
		return errors.New("change author is required")
	}
	if c.Date.IsZero() {
		return errors.New("change date is required")
	}
	return nil
}

// OpType is the concrete subtype of a change op
type OpType string

const (
	OpCreate              OpType = "create"
	OpDelete              OpType = "delete"
	OpSetAttributeScalar  OpType = "set_attribute_scalar"
	OpSetAttributeText    OpType = "set_attribute_text"
	OpSetAttributeCaseLog OpType = "set_attribute_caselog"
	OpPlugin              OpType = "plugin"
)

// ChangeOp is one persisted mutation of one object.
// Date, UserLogin, UserName and Origin are denormalized from the owning Change.
type ChangeOp struct {
	ID        int64
	ChangeID  int64
	OpType    OpType
	ObjClass  string
	ObjKey    int64
	AttCode   string
	OldValue  string
	NewValue  string
	Date      time.Time
	UserLogin string
	UserName  string
	Origin    ChangeOrigin
}

// IsCaseLog reports whether the op records a case log mutation
func (op *ChangeOp) IsCaseLog() bool {
	return op.OpType == OpSetAttributeCaseLog
}

// IsAttributeSet reports whether the op records a field value change
func (op *ChangeOp) IsAttributeSet() bool {
	return op.OpType == OpSetAttributeScalar || op.OpType == OpSetAttributeText
}

// ChangeOpQuery scopes a change history lookup
type ChangeOpQuery struct {
	Object ObjectRef
	Limit  int // <= 0 means unlimited
}
