package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/clipflow/pkg/models"
)

const taskColumns = `id, user_id, status, progress, message, output_file, task_details, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateTask inserts a new task into the database.
// If t.ID is empty, a new UUID is generated.
func (db *DB) CreateTask(ctx context.Context, t *models.Task) error {
	if err := db.createTask(ctx, db.DB, t); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}

func (db *DB) createTask(ctx context.Context, exec executor, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	// Stored as text, so keep a single zone for ORDER BY.
	t.CreatedAt = t.CreatedAt.UTC()

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec.ExecContext(ctx, query,
		t.ID, t.UserID, t.Status, t.Progress, t.Message,
		nullString(t.OutputFile), nullString(t.TaskDetails), t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by its ID. It returns nil, nil when no task matches.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return db.getTask(ctx, db.DB, id)
}

func (db *DB) getTask(ctx context.Context, exec executor, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	t, err := scanTask(exec.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// ListTasksByUser returns the user's tasks, newest first. The result is
// never nil.
func (db *DB) ListTasksByUser(ctx context.Context, userID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id ASC`
	return db.queryTasks(ctx, query, userID)
}

// ListTasks returns tasks across all users, optionally filtered by status.
func (db *DB) ListTasks(ctx context.Context, status *models.TaskStatus) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []any{}

	if status != nil {
		query += " AND status = ?"
		args = append(args, *status)
	}

	query += " ORDER BY created_at DESC, id ASC"
	return db.queryTasks(ctx, query, args...)
}

// queryTasks is a helper to execute a query that returns a list of tasks.
func (db *DB) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tasks, nil
}

// UpdateTaskProgress records a status report for a task and returns the
// stored result.
func (db *DB) UpdateTaskProgress(ctx context.Context, id string, u ProgressUpdate) (*models.Task, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := db.getTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	next, err := u.apply(*current, time.Now())
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE tasks
		SET status = ?, progress = ?, message = ?, output_file = ?, completed_at = ?
		WHERE id = ?
	`
	_, err = tx.ExecContext(ctx, query,
		next.Status, next.Progress, next.Message, nullString(next.OutputFile), next.CompletedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	db.triggerChange(ctx)
	return &next, nil
}

// DeleteTask deletes a task by its ID.
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	query := `DELETE FROM tasks WHERE id = ?`
	res, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	db.triggerChange(ctx)
	return nil
}

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	var outputFile, taskDetails sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.UserID, &t.Status, &t.Progress, &t.Message,
		&outputFile, &taskDetails, &t.CreatedAt, &completedAt,
	)
	if err != nil {
		return t, err
	}
	t.OutputFile = outputFile.String
	t.TaskDetails = taskDetails.String
	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
