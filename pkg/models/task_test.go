package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T12:00:00+02:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00.250", time.Date(2024, 5, 1, 10, 0, 0, 250000000, time.UTC)},
		{"2024-05-01T10:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01 10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) failed: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for non-ISO input")
	}
}

func TestTaskUnmarshalJSON(t *testing.T) {
	var task Task
	data := `{"id":"t1","user_id":"u","status":"completed","progress":100,"output_file":"/output/a.mp4","created_at":"2024-05-01T10:00:00","completed_at":"2024-05-01T10:05:00Z"}`
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if task.ID != "t1" || task.Status != TaskStatusCompleted || !task.Downloadable() {
		t.Errorf("unexpected task %+v", task)
	}
	if task.CreatedAt.Hour() != 10 || task.CompletedAt == nil || task.CompletedAt.Minute() != 5 {
		t.Errorf("unexpected timestamps %v %v", task.CreatedAt, task.CompletedAt)
	}

	if err := json.Unmarshal([]byte(`{"id":"t2","created_at":"soon"}`), &task); err == nil {
		t.Error("expected error for malformed created_at")
	}
}
