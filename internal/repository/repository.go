package repository

import (
	"context"

	"github.com/andy/casetrail/internal/domain"
)

// ObjectRepository manages business objects and their case logs.
// Every write records its change ops inside the same transaction.
type ObjectRepository interface {
	Create(ctx context.Context, obj *domain.Object, change *domain.Change) error
	GetByID(ctx context.Context, class string, id int64) (*domain.Object, error)
	GetByName(ctx context.Context, class, name string) (*domain.Object, error)
	List(ctx context.Context, class string) ([]*domain.Object, error) // empty class lists all
	// Update persists obj and records ops, which must all target obj
	Update(ctx context.Context, obj *domain.Object, ops []*domain.ChangeOp, change *domain.Change) error
	// Apply runs creates and updates atomically under a single change
	Apply(ctx context.Context, writes []ObjectWrite, change *domain.Change) error
	Delete(ctx context.Context, ref domain.ObjectRef, change *domain.Change) error
	AppendCaseLog(ctx context.Context, rec *domain.CaseLogRecord, change *domain.Change) error
	// GetCaseLog returns the messages of one case log, newest first
	GetCaseLog(ctx context.Context, ref domain.ObjectRef, attCode string) ([]*domain.CaseLogRecord, error)
}

// ChangeOpCursor yields change ops one at a time. It is consumed once and
// must be closed.
type ChangeOpCursor interface {
	Next() bool
	ChangeOp() *domain.ChangeOp
	Err() error
	Close() error
}

// ObjectWrite is one element of a batch: an object without ID is created,
// otherwise it is updated and Ops are recorded.
type ObjectWrite struct {
	Object *domain.Object
	Ops    []*domain.ChangeOp
}

// IsCreate reports whether the write inserts a new object
func (w ObjectWrite) IsCreate() bool {
	return w.Object.ID == 0
}
