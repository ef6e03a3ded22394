package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ldi/clipflow/pkg/models"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskStore is what the backend server and the MCP tools need from storage.
// Both the SQLite DB and the Postgres store implement it.
type TaskStore interface {
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasksByUser(ctx context.Context, userID string) ([]models.Task, error)
	ListTasks(ctx context.Context, status *models.TaskStatus) ([]models.Task, error)
	UpdateTaskProgress(ctx context.Context, id string, u ProgressUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	Close() error
}

var (
	_ TaskStore = (*DB)(nil)
	_ TaskStore = (*PGStore)(nil)
)

// ProgressUpdate is a status report from the processing side.
type ProgressUpdate struct {
	Status     models.TaskStatus
	Progress   int
	Message    string
	OutputFile string
}

// apply validates u against the current task and returns the updated copy.
func (u ProgressUpdate) apply(current models.Task, now time.Time) (models.Task, error) {
	if err := validateStatusTransition(current.Status, u.Status); err != nil {
		return current, err
	}
	if u.Progress < 0 || u.Progress > 100 {
		return current, fmt.Errorf("progress out of range: %d", u.Progress)
	}
	if u.Status == models.TaskStatusCompleted && u.OutputFile == "" {
		return current, fmt.Errorf("output file required to complete task %s", current.ID)
	}

	next := current
	next.Status = u.Status
	next.Progress = u.Progress
	next.Message = u.Message
	if u.Status == models.TaskStatusCompleted {
		next.OutputFile = u.OutputFile
		next.Progress = 100
	}
	if u.Status.Terminal() && next.CompletedAt == nil {
		ts := now.UTC()
		next.CompletedAt = &ts
	}
	return next, nil
}

func validateStatusTransition(from, to models.TaskStatus) error {
	if !to.Known() {
		return fmt.Errorf("unknown status: %s", to)
	}

	switch from {
	case models.TaskStatusPending:
		if to != models.TaskStatusProcessing && to != models.TaskStatusFailed {
			return fmt.Errorf("invalid transition from %s to %s", from, to)
		}
	case models.TaskStatusProcessing:
		if to == models.TaskStatusPending {
			return fmt.Errorf("invalid transition from %s to %s", from, to)
		}
	case models.TaskStatusCompleted, models.TaskStatusFailed:
		// Terminal statuses are final.
		if to != from {
			return fmt.Errorf("invalid transition from %s to %s", from, to)
		}
	}

	return nil
}
