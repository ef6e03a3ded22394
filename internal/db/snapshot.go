package db

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/clipflow/pkg/models"
)

const snapshotVersion = 1

type snapshotMeta struct {
	RecordType string    `json:"record_type"`
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	TaskCount  int       `json:"task_count"`
}

type snapshotTask struct {
	RecordType string `json:"record_type"`
	models.Task
}

// EnableAutoSnapshot sets up a hook that automatically exports a snapshot
// to the given path after every successful write operation.
func (db *DB) EnableAutoSnapshot(path string) {
	db.SetOnChange(func(ctx context.Context) {
		// Best-effort: a failed export must not fail the write that triggered it.
		_ = db.ExportSnapshot(ctx, path)
	})
}

// ExportSnapshot writes every task as JSONL to path atomically using a
// temporary file. The first line is a meta record.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	tasks, err := db.ListTasks(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to load tasks for snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	w := bufio.NewWriter(tempFile)
	enc := json.NewEncoder(w)

	meta := snapshotMeta{
		RecordType: "meta",
		Version:    snapshotVersion,
		ExportedAt: time.Now().UTC(),
		TaskCount:  len(tasks),
	}
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("failed to write snapshot meta: %w", err)
	}

	// Oldest first so the file diffs append-only as tasks accumulate.
	for i := len(tasks) - 1; i >= 0; i-- {
		if err := enc.Encode(snapshotTask{RecordType: "task", Task: tasks[i]}); err != nil {
			return fmt.Errorf("failed to write snapshot line: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ImportSnapshot reads a JSONL snapshot and upserts its tasks by ID in a
// single transaction.
func (db *DB) ImportSnapshot(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := json.Unmarshal(line, &base); err != nil {
			return fmt.Errorf("failed to unmarshal base record: %w", err)
		}

		switch base.RecordType {
		case "meta":
			var meta snapshotMeta
			if err := json.Unmarshal(line, &meta); err != nil {
				return fmt.Errorf("failed to unmarshal meta: %w", err)
			}
			if meta.Version > snapshotVersion {
				return fmt.Errorf("unsupported snapshot version %d", meta.Version)
			}
		case "task":
			var t models.Task
			if err := json.Unmarshal(line, &t); err != nil {
				return fmt.Errorf("failed to unmarshal task: %w", err)
			}
			if t.ID == "" {
				t.ID = uuid.New().String()
			}
			if t.Status == "" {
				t.Status = models.TaskStatusPending
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO tasks (`+taskColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					user_id = excluded.user_id, status = excluded.status, progress = excluded.progress,
					message = excluded.message, output_file = excluded.output_file,
					task_details = excluded.task_details, created_at = excluded.created_at,
					completed_at = excluded.completed_at`,
				t.ID, t.UserID, t.Status, t.Progress, t.Message,
				nullString(t.OutputFile), nullString(t.TaskDetails), t.CreatedAt.UTC(), t.CompletedAt)
			if err != nil {
				return fmt.Errorf("failed to sync task %s: %w", t.ID, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}
