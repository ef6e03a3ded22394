package db

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ldi/clipflow/pkg/models"
)

func TestExportSnapshot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	first := &models.Task{ID: "t1", UserID: "u", CreatedAt: base, Message: "first"}
	second := &models.Task{ID: "t2", UserID: "u", CreatedAt: base.Add(time.Minute), Message: "second"}
	for _, task := range []*models.Task{first, second} {
		if err := db.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	snapshotPath := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := db.ExportSnapshot(ctx, snapshotPath); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	file, err := os.Open(snapshotPath)
	if err != nil {
		t.Fatalf("Failed to open snapshot: %v", err)
	}
	defer file.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("Invalid JSON line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}

	if len(records) != 3 {
		t.Fatalf("Expected meta + 2 tasks, got %d records", len(records))
	}
	if records[0]["record_type"] != "meta" {
		t.Errorf("Expected meta first, got %v", records[0]["record_type"])
	}
	if records[0]["task_count"] != float64(2) {
		t.Errorf("Expected task_count 2, got %v", records[0]["task_count"])
	}
	if records[1]["id"] != "t1" || records[2]["id"] != "t2" {
		t.Errorf("Expected oldest task first, got %v then %v", records[1]["id"], records[2]["id"])
	}
	if records[1]["record_type"] != "task" {
		t.Errorf("Expected task record, got %v", records[1]["record_type"])
	}
}

func TestSnapshotRoundTripIntoFreshDB(t *testing.T) {
	src := openTestDB(t)
	ctx := context.Background()

	task := &models.Task{UserID: "u", Message: "Queued"}
	if err := src.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := src.UpdateTaskProgress(ctx, task.ID, ProgressUpdate{Status: models.TaskStatusProcessing, Progress: 20}); err != nil {
		t.Fatalf("UpdateTaskProgress failed: %v", err)
	}
	if _, err := src.UpdateTaskProgress(ctx, task.ID, ProgressUpdate{
		Status: models.TaskStatusCompleted, OutputFile: "/output/x.mp4", Message: "Done",
	}); err != nil {
		t.Fatalf("UpdateTaskProgress failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snap.jsonl")
	if err := src.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	dst := openTestDB(t)
	if err := dst.ImportSnapshot(ctx, path); err != nil {
		t.Fatalf("ImportSnapshot failed: %v", err)
	}
	// Importing twice upserts instead of duplicating.
	if err := dst.ImportSnapshot(ctx, path); err != nil {
		t.Fatalf("second ImportSnapshot failed: %v", err)
	}

	tasks, err := dst.ListTasks(ctx, nil)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task after import, got %d", len(tasks))
	}
	got := tasks[0]
	if got.ID != task.ID || got.Status != models.TaskStatusCompleted || got.OutputFile != "/output/x.mp4" {
		t.Errorf("Unexpected imported task: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("Expected completed_at to survive the round trip")
	}
}

func TestImportSnapshotRejectsNewerVersion(t *testing.T) {
	db := openTestDB(t)
	path := filepath.Join(t.TempDir(), "future.jsonl")
	if err := os.WriteFile(path, []byte(`{"record_type":"meta","version":99}`+"\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := db.ImportSnapshot(context.Background(), path); err == nil {
		t.Error("Expected newer snapshot version to be rejected")
	}
}

func TestAutoSnapshot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	snapshotPath := filepath.Join(t.TempDir(), "auto-snapshot.jsonl")
	db.EnableAutoSnapshot(snapshotPath)

	task := &models.Task{UserID: "u"}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := os.Stat(snapshotPath); err != nil {
		t.Fatalf("Snapshot file was not created after CreateTask: %v", err)
	}

	db.SetOnChange(nil)
	if err := os.Remove(snapshotPath); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := db.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := os.Stat(snapshotPath); !os.IsNotExist(err) {
		t.Errorf("Expected no snapshot after the hook was removed")
	}

	db.EnableAutoSnapshot(snapshotPath)
	if err := db.CreateTask(ctx, &models.Task{UserID: "u"}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := os.Stat(snapshotPath); err != nil {
		t.Errorf("Expected snapshot to be recreated after re-enabling: %v", err)
	}
}
