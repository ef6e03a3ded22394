package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	embedsql "github.com/ldi/clipflow/embed/sql"
	"github.com/ldi/clipflow/pkg/models"
)

// PGStore is a TaskStore backed by PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
}

// IsPostgresDSN reports whether dsn should be opened with OpenPostgres.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PGStore{Pool: pool}, nil
}

func (s *PGStore) Init(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, embedsql.PostgresSchema); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (s *PGStore) Close() error {
	s.Pool.Close()
	return nil
}

func (s *PGStore) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.Pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.UserID, string(t.Status), t.Progress, t.Message,
		optional(t.OutputFile), optional(t.TaskDetails), t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *PGStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return s.getTask(ctx, s.Pool, id)
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PGStore) getTask(ctx context.Context, q pgQuerier, id string) (*models.Task, error) {
	t, err := scanPGTask(q.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

func (s *PGStore) ListTasksByUser(ctx context.Context, userID string) ([]models.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id ASC`, userID)
}

func (s *PGStore) ListTasks(ctx context.Context, status *models.TaskStatus) ([]models.Task, error) {
	if status != nil {
		return s.queryTasks(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY created_at DESC, id ASC`, string(*status))
	}
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id ASC`)
}

func (s *PGStore) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		t, err := scanPGTask(rows)
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

func (s *PGStore) UpdateTaskProgress(ctx context.Context, id string, u ProgressUpdate) (*models.Task, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanPGTask(tx.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	next, err := u.apply(current, time.Now())
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE tasks
		SET status = $1, progress = $2, message = $3, output_file = $4, completed_at = $5
		WHERE id = $6`,
		string(next.Status), next.Progress, next.Message, optional(next.OutputFile), next.CompletedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task progress: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *PGStore) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

func scanPGTask(row pgx.Row) (models.Task, error) {
	var t models.Task
	var status string
	var outputFile, taskDetails *string
	err := row.Scan(
		&t.ID, &t.UserID, &status, &t.Progress, &t.Message,
		&outputFile, &taskDetails, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		return t, err
	}
	t.Status = models.TaskStatus(status)
	if outputFile != nil {
		t.OutputFile = *outputFile
	}
	if taskDetails != nil {
		t.TaskDetails = *taskDetails
	}
	return t, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
