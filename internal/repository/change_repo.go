package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andy/casetrail/internal/db"
	"github.com/andy/casetrail/internal/domain"
)

// ChangeRepo reads the change history
type ChangeRepo struct {
	db *db.DB
}

// NewChangeRepo creates a new ChangeRepo
func NewChangeRepo(database *db.DB) *ChangeRepo {
	return &ChangeRepo{db: database}
}

// QueryChangeOps returns a cursor over the ops of one object.
// Ops are ordered by id: a bulk import inserts many changes with the same
// date, and only the id reflects insertion order.
func (r *ChangeRepo) QueryChangeOps(ctx context.Context, q domain.ChangeOpQuery) (ChangeOpCursor, error) {
	if err := q.Object.Validate(); err != nil {
		return nil, fmt.Errorf("invalid change op query: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	query := `
		SELECT o.id, o.change_id, o.op_type, o.obj_class, o.obj_key,
		       COALESCE(o.att_code, ''), COALESCE(o.old_value, ''), COALESCE(o.new_value, ''),
		       c.date, c.user_login, COALESCE(c.user_name, ''), c.origin
		FROM change_ops o
		JOIN changes c ON c.id = o.change_id
		WHERE o.obj_class = ? AND o.obj_key = ?
		ORDER BY o.id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, q.Object.Class, q.Object.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query change ops: %w", err)
	}

	return &sqlChangeOpCursor{rows: rows}, nil
}

// sqlChangeOpCursor scans one row per Next call
type sqlChangeOpCursor struct {
	rows    *sql.Rows
	current *domain.ChangeOp
	err     error
}

func (c *sqlChangeOpCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}

	op := &domain.ChangeOp{}
	var opType, date, origin string

	err := c.rows.Scan(
		&op.ID,
		&op.ChangeID,
		&opType,
		&op.ObjClass,
		&op.ObjKey,
		&op.AttCode,
		&op.OldValue,
		&op.NewValue,
		&date,
		&op.UserLogin,
		&op.UserName,
		&origin,
	)
	if err != nil {
		c.err = fmt.Errorf("failed to scan change op: %w", err)
		return false
	}

	if op.Date, err = parseTime(date); err != nil {
		c.err = fmt.Errorf("failed to parse change date: %w", err)
		return false
	}
	op.OpType = domain.OpType(opType)
	op.Origin = domain.ChangeOrigin(origin)

	c.current = op
	return true
}

func (c *sqlChangeOpCursor) ChangeOp() *domain.ChangeOp {
	return c.current
}

func (c *sqlChangeOpCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return fmt.Errorf("error iterating change ops: %w", err)
	}
	return nil
}

func (c *sqlChangeOpCursor) Close() error {
	return c.rows.Close()
}
