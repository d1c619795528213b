package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/andy/casetrail/internal/db"
	"github.com/andy/casetrail/internal/domain"
)

// ObjectRepo is a SQLite implementation of ObjectRepository
type ObjectRepo struct {
	db *db.DB
}

// NewObjectRepo creates a new ObjectRepo
func NewObjectRepo(database *db.DB) *ObjectRepo {
	return &ObjectRepo{db: database}
}

// Create inserts a new object and records a create op
func (r *ObjectRepo) Create(ctx context.Context, obj *domain.Object, change *domain.Change) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return createInTx(ctx, tx, obj, change)
	})
}

// GetByID retrieves a live object by class and ID
func (r *ObjectRepo) GetByID(ctx context.Context, class string, id int64) (*domain.Object, error) {
	query := `
		SELECT id, class, name, state_hash, created_at, updated_at
		FROM objects
		WHERE class = ? AND id = ? AND is_deleted = 0
	`
	obj, err := r.scanOne(ctx, r.db.QueryRowContext(ctx, query, class, id))
	if err != nil {
		return nil, fmt.Errorf("%s::%d: %w", class, id, err)
	}
	return obj, nil
}

// GetByName retrieves a live object by class and name
func (r *ObjectRepo) GetByName(ctx context.Context, class, name string) (*domain.Object, error) {
	query := `
		SELECT id, class, name, state_hash, created_at, updated_at
		FROM objects
		WHERE class = ? AND name = ? AND is_deleted = 0
		ORDER BY id
		LIMIT 1
	`
	obj, err := r.scanOne(ctx, r.db.QueryRowContext(ctx, query, class, name))
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", class, name, err)
	}
	return obj, nil
}

func (r *ObjectRepo) scanOne(ctx context.Context, row *sql.Row) (*domain.Object, error) {
	obj := &domain.Object{}
	var createdAt, updatedAt string

	err := row.Scan(&obj.ID, &obj.Class, &obj.Name, &obj.StateHash, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	if err := scanObjectTimes(obj, createdAt, updatedAt); err != nil {
		return nil, err
	}

	if obj.Attributes, err = r.loadAttributes(ctx, obj.ID); err != nil {
		return nil, err
	}
	return obj, nil
}

// List retrieves live objects, optionally restricted to one class
func (r *ObjectRepo) List(ctx context.Context, class string) ([]*domain.Object, error) {
	query := `
		SELECT id, class, name, state_hash, created_at, updated_at
		FROM objects
		WHERE is_deleted = 0
	`
	args := make([]interface{}, 0)

	if class != "" {
		query += " AND class = ?"
		args = append(args, class)
	}
	query += " ORDER BY class, name, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	objects := make([]*domain.Object, 0)
	for rows.Next() {
		obj := &domain.Object{}
		var createdAt, updatedAt string
		if err := rows.Scan(&obj.ID, &obj.Class, &obj.Name, &obj.StateHash, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		if err := scanObjectTimes(obj, createdAt, updatedAt); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating objects: %w", err)
	}

	// Attributes are loaded after the cursor is closed; SQLite holds one reader per connection
	rows.Close()
	for _, obj := range objects {
		if obj.Attributes, err = r.loadAttributes(ctx, obj.ID); err != nil {
			return nil, err
		}
	}

	return objects, nil
}

// Update persists the object's name and attributes and records ops
func (r *ObjectRepo) Update(ctx context.Context, obj *domain.Object, ops []*domain.ChangeOp, change *domain.Change) error {
	if err := checkOpTargets(obj, ops); err != nil {
		return err
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return updateInTx(ctx, tx, obj, ops, change)
	})
}

// Apply runs a batch of creates and updates in one transaction under one change
func (r *ObjectRepo) Apply(ctx context.Context, writes []ObjectWrite, change *domain.Change) error {
	for _, w := range writes {
		if !w.IsCreate() {
			if err := checkOpTargets(w.Object, w.Ops); err != nil {
				return err
			}
		}
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, w := range writes {
			var err error
			if w.IsCreate() {
				err = createInTx(ctx, tx, w.Object, change)
			} else {
				err = updateInTx(ctx, tx, w.Object, w.Ops, change)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func checkOpTargets(obj *domain.Object, ops []*domain.ChangeOp) error {
	for _, op := range ops {
		if op.ObjClass != obj.Class || op.ObjKey != obj.ID {
			return fmt.Errorf("change op targets %s::%d, not %s", op.ObjClass, op.ObjKey, obj)
		}
	}
	return nil
}

func createInTx(ctx context.Context, tx *sql.Tx, obj *domain.Object, change *domain.Change) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO objects (class, name, state_hash, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`,
		obj.Class,
		obj.Name,
		obj.StateHash,
		obj.CreatedAt.Format(timeLayout),
		obj.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get object ID: %w", err)
	}
	obj.ID = id

	for code, value := range obj.Attributes {
		if err := writeAttribute(ctx, tx, id, code, value); err != nil {
			return err
		}
	}

	if err := insertChange(ctx, tx, change); err != nil {
		return err
	}
	return insertChangeOps(ctx, tx, change, &domain.ChangeOp{
		OpType:   domain.OpCreate,
		ObjClass: obj.Class,
		ObjKey:   obj.ID,
		NewValue: obj.Name,
	})
}

func updateInTx(ctx context.Context, tx *sql.Tx, obj *domain.Object, ops []*domain.ChangeOp, change *domain.Change) error {
	obj.UpdatedAt = time.Now()

	result, err := tx.ExecContext(ctx, `
		UPDATE objects SET name = ?, state_hash = ?, updated_at = ?
		WHERE id = ? AND class = ? AND is_deleted = 0
	`, obj.Name, obj.StateHash, obj.UpdatedAt.Format(timeLayout), obj.ID, obj.Class)
	if err != nil {
		return fmt.Errorf("failed to update object: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", obj, domain.ErrObjectNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM object_attributes WHERE object_id = ?", obj.ID); err != nil {
		return fmt.Errorf("failed to clear attributes: %w", err)
	}
	for code, value := range obj.Attributes {
		if err := writeAttribute(ctx, tx, obj.ID, code, value); err != nil {
			return err
		}
	}

	if len(ops) == 0 {
		return nil
	}
	if err := insertChange(ctx, tx, change); err != nil {
		return err
	}
	return insertChangeOps(ctx, tx, change, ops...)
}

// Delete soft-deletes an object and records a delete op
func (r *ObjectRepo) Delete(ctx context.Context, ref domain.ObjectRef, change *domain.Change) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var name string
		err := tx.QueryRowContext(ctx,
			"SELECT name FROM objects WHERE id = ? AND class = ? AND is_deleted = 0",
			ref.ID, ref.Class,
		).Scan(&name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%s::%d: %w", ref.Class, ref.ID, domain.ErrObjectNotFound)
			}
			return fmt.Errorf("failed to get object: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE objects SET is_deleted = 1, updated_at = ? WHERE id = ?",
			formatTime(), ref.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete object: %w", err)
		}

		if err := insertChange(ctx, tx, change); err != nil {
			return err
		}
		return insertChangeOps(ctx, tx, change, &domain.ChangeOp{
			OpType:   domain.OpDelete,
			ObjClass: ref.Class,
			ObjKey:   ref.ID,
			OldValue: name,
		})
	})
}

// AppendCaseLog adds a message to a case log and records a case log op
func (r *ObjectRepo) AppendCaseLog(ctx context.Context, rec *domain.CaseLogRecord, change *domain.Change) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid case log entry: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM objects WHERE id = ? AND class = ? AND is_deleted = 0)",
			rec.ObjKey, rec.ObjClass,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check object: %w", err)
		}
		if !exists {
			return fmt.Errorf("%s::%d: %w", rec.ObjClass, rec.ObjKey, domain.ErrObjectNotFound)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO caselog_entries (object_id, att_code, message, user_login, user_name, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rec.ObjKey, rec.AttCode, rec.Message, rec.UserLogin, rec.UserName, rec.Date.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("failed to append case log entry: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get case log entry ID: %w", err)
		}
		rec.ID = id

		if err := insertChange(ctx, tx, change); err != nil {
			return err
		}
		return insertChangeOps(ctx, tx, change, &domain.ChangeOp{
			OpType:   domain.OpSetAttributeCaseLog,
			ObjClass: rec.ObjClass,
			ObjKey:   rec.ObjKey,
			AttCode:  rec.AttCode,
			NewValue: strconv.FormatInt(id, 10),
		})
	})
}

// GetCaseLog returns the messages of one case log, newest first
func (r *ObjectRepo) GetCaseLog(ctx context.Context, ref domain.ObjectRef, attCode string) ([]*domain.CaseLogRecord, error) {
	query := `
		SELECT id, att_code, message, user_login, COALESCE(user_name, ''), created_at
		FROM caselog_entries
		WHERE object_id = ? AND att_code = ?
		ORDER BY id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ref.ID, attCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get case log: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.CaseLogRecord, 0)
	for rows.Next() {
		rec := &domain.CaseLogRecord{ObjClass: ref.Class, ObjKey: ref.ID}
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.AttCode, &rec.Message, &rec.UserLogin, &rec.UserName, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan case log entry: %w", err)
		}
		if rec.Date, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case log: %w", err)
	}

	return records, nil
}

func (r *ObjectRepo) loadAttributes(ctx context.Context, objectID int64) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT att_code, value FROM object_attributes WHERE object_id = ?", objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}
	defer rows.Close()

	attributes := make(map[string]string)
	for rows.Next() {
		var code, value string
		if err := rows.Scan(&code, &value); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attributes[code] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attributes: %w", err)
	}
	return attributes, nil
}

func writeAttribute(ctx context.Context, tx *sql.Tx, objectID int64, code, value string) error {
	if value == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO object_attributes (object_id, att_code, value) VALUES (?, ?, ?)
		ON CONFLICT(object_id, att_code) DO UPDATE SET value = excluded.value
	`, objectID, code, value)
	if err != nil {
		return fmt.Errorf("failed to write attribute %s: %w", code, err)
	}
	return nil
}

func scanObjectTimes(obj *domain.Object, createdAt, updatedAt string) error {
	var err error
	if obj.CreatedAt, err = parseTime(createdAt); err != nil {
		return fmt.Errorf("failed to parse created_at: %w", err)
	}
	if obj.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return nil
}
