package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andy/casetrail/internal/domain"
)

// timeLayout is the format for storing times in SQLite
const timeLayout = time.RFC3339Nano

// parseTime parses a time string stored with timeLayout
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// formatTime returns the current time formatted with timeLayout
func formatTime() string {
	return time.Now().Format(timeLayout)
}

// insertChange records a change and assigns its ID.
// A change that already has an ID spans several writes and is not inserted again.
func insertChange(ctx context.Context, tx *sql.Tx, change *domain.Change) error {
	if change == nil {
		return errors.New("change is required")
	}
	if change.ID > 0 {
		return nil
	}
	if err := change.Validate(); err != nil {
		return fmt.Errorf("invalid change: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO changes (date, user_login, user_name, origin) VALUES (?, ?, ?, ?)`,
		change.Date.Format(timeLayout),
		change.UserLogin,
		change.UserName,
		string(change.Origin),
	)
	if err != nil {
		return fmt.Errorf("failed to create change: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get change ID: %w", err)
	}
	change.ID = id
	return nil
}

// insertChangeOps records ops under an already inserted change
func insertChangeOps(ctx context.Context, tx *sql.Tx, change *domain.Change, ops ...*domain.ChangeOp) error {
	if len(ops) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO change_ops (change_id, op_type, obj_class, obj_key, att_code, old_value, new_value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		result, err := stmt.ExecContext(ctx,
			change.ID,
			string(op.OpType),
			op.ObjClass,
			op.ObjKey,
			op.AttCode,
			op.OldValue,
			op.NewValue,
		)
		if err != nil {
			return fmt.Errorf("failed to record %s op: %w", op.OpType, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get change op ID: %w", err)
		}

		op.ID = id
		op.ChangeID = change.ID
		op.Date = change.Date
		op.UserLogin = change.UserLogin
		op.UserName = change.UserName
		op.Origin = change.Origin
	}
	return nil
}
