package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further progress is expected for the status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Known reports whether s is one of the four statuses the backend emits.
func (s TaskStatus) Known() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// Task is a unit of video-processing work tracked by the backend.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Status      TaskStatus `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	OutputFile  string     `json:"output_file,omitempty"`
	TaskDetails string     `json:"task_details,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Downloadable reports whether the task has an artifact worth offering.
func (t Task) Downloadable() bool {
	return t.Status == TaskStatusCompleted && t.OutputFile != ""
}

// UnmarshalJSON accepts any ISO-8601 timestamp for created_at and
// completed_at, not only RFC 3339. Values without a zone offset are read
// as UTC; null and "" leave the field unset.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		CreatedAt   *string `json:"created_at"`
		CompletedAt *string `json:"completed_at"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.CreatedAt = time.Time{}
	if aux.CreatedAt != nil {
		ts, err := ParseTimestamp(*aux.CreatedAt)
		if err != nil {
			return fmt.Errorf("created_at: %w", err)
		}
		t.CreatedAt = ts
	}

	t.CompletedAt = nil
	if aux.CompletedAt != nil {
		ts, err := ParseTimestamp(*aux.CompletedAt)
		if err != nil {
			return fmt.Errorf("completed_at: %w", err)
		}
		if !ts.IsZero() {
			t.CompletedAt = &ts
		}
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 date or date-time. An empty string
// yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
