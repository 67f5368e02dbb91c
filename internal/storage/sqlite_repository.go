package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/reminderd/internal/model"
)

const sqliteTimeLayout = time.RFC3339Nano

const taskColumns = `id, alarm_id, title, description, priority, repeat_rule, due_at, anchor_at, notified_due, is_completed, is_deleted, deleted_at, created_at`

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers; sqlite would return SQLITE_BUSY otherwise.
	db.SetMaxOpenConns(1)
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in model.Task) (model.Task, error) {
	if err := in.Validate(); err != nil {
		return model.Task{}, err
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = r.now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (alarm_id, title, description, priority, repeat_rule, due_at, anchor_at, is_completed, is_deleted, deleted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.AlarmID, in.Title, in.Description, string(in.Priority), string(in.Repeat), in.DueAt, in.AnchorAt,
		boolInt(in.IsCompleted), boolInt(in.IsDeleted), in.DeletedAt, mustTime(in.CreatedAt),
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task id: %w", err)
	}
	in.ID = id
	return in, nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id int64) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in model.Task) error {
	if err := in.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET alarm_id = ?, title = ?, description = ?, priority = ?, repeat_rule = ?, due_at = ?, anchor_at = ?, is_completed = ?, is_deleted = ?, deleted_at = ?
		WHERE id = ?`,
		in.AlarmID, in.Title, in.Description, string(in.Priority), string(in.Repeat), in.DueAt, in.AnchorAt,
		boolInt(in.IsCompleted), boolInt(in.IsDeleted), in.DeletedAt, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) UpdateCompletion(ctx context.Context, id int64, completed bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET is_completed = ? WHERE id = ?`, boolInt(completed), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// UpdateDueAt moves the task to a new occurrence, dropping any snooze
// anchor.
func (r *SQLiteRepository) UpdateDueAt(ctx context.Context, id int64, dueAt int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET due_at = ?, anchor_at = 0 WHERE id = ?`, dueAt, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// SnoozeUntil pushes the reminder to until. The occurrence being snoozed is
// kept as the anchor so repeats stay on their original schedule.
func (r *SQLiteRepository) SnoozeUntil(ctx context.Context, id int64, until int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET anchor_at = CASE WHEN anchor_at = 0 THEN due_at ELSE anchor_at END, due_at = ?
		WHERE id = ?`, until, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// MarkNotified records that the reminder for dueAt was delivered. It does
// nothing if the task has since moved to another due time.
func (r *SQLiteRepository) MarkNotified(ctx context.Context, id int64, dueAt int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tasks SET notified_due = ? WHERE id = ? AND due_at = ?`, dueAt, id, dueAt)
	return err
}

func (r *SQLiteRepository) SoftDeleteTask(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET is_deleted = 1, deleted_at = ? WHERE id = ?`, at.UnixMilli(), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) RestoreTask(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET is_deleted = 0, deleted_at = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	clauses = append(clauses, "is_deleted = ?")
	args = append(args, boolInt(filter.Deleted))
	if !filter.IncludeCompleted && !filter.Deleted {
		clauses = append(clauses, "is_completed = 0")
	}
	query += " WHERE " + strings.Join(clauses, " AND ")
	if filter.Deleted {
		query += ` ORDER BY deleted_at DESC`
	} else {
		query += ` ORDER BY is_completed ASC, id DESC`
	}
	query += applyPagination(&args, filter.Limit, filter.Offset)
	return r.queryTasks(ctx, query, args...)
}

func (r *SQLiteRepository) ListDueUncompleted(ctx context.Context, now time.Time) ([]model.Task, error) {
	return r.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_completed = 0 AND is_deleted = 0 AND alarm_id != 0 AND due_at > ?
		ORDER BY due_at ASC`, now.UnixMilli())
}

func (r *SQLiteRepository) ListUndelivered(ctx context.Context) ([]model.Task, error) {
	return r.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_completed = 0 AND is_deleted = 0 AND alarm_id != 0 AND due_at > 0 AND due_at != notified_due
		ORDER BY due_at ASC`)
}

func (r *SQLiteRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE is_deleted = 1 AND deleted_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// NextAlarmKey bumps the key counter past every key already stored on a
// task, so keys written by older builds are never handed out again.
func (r *SQLiteRepository) NextAlarmKey(ctx context.Context) (int64, error) {
	var key int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE alarm_keys
		SET next_key = MAX(next_key, (SELECT COALESCE(MAX(alarm_id), 0) FROM tasks) + 1) + 1
		WHERE id = 1
		RETURNING next_key - 1`).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errors.New("storage: alarm key counter missing, run migrations")
		}
		return 0, fmt.Errorf("next alarm key: %w", err)
	}
	return key, nil
}

func (r *SQLiteRepository) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (model.Task, error) {
	var out model.Task
	var priority, repeat, created string
	var completed, deleted int
	if err := s.Scan(&out.ID, &out.AlarmID, &out.Title, &out.Description, &priority, &repeat,
		&out.DueAt, &out.AnchorAt, &out.NotifiedDue, &completed, &deleted, &out.DeletedAt, &created); err != nil {
		return model.Task{}, err
	}
	createdAt, err := time.Parse(sqliteTimeLayout, created)
	if err != nil {
		return model.Task{}, err
	}
	out.Priority = model.Priority(priority)
	out.Repeat = model.Repeat(repeat)
	out.IsCompleted = completed == 1
	out.IsDeleted = deleted == 1
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
