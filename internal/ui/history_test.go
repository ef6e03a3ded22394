package ui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ldi/clipflow/internal/history"
	"github.com/ldi/clipflow/internal/host"
	"github.com/ldi/clipflow/pkg/models"
)

type stubAPI struct {
	mu        sync.Mutex
	tasks     []models.Task
	listErr   error
	deleteErr error
	deleted   []string
}

func (a *stubAPI) ListTasks(ctx context.Context, userID string) ([]models.Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listErr != nil {
		return nil, a.listErr
	}
	return append([]models.Task(nil), a.tasks...), nil
}

func (a *stubAPI) DeleteTask(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.deleteErr != nil {
		return a.deleteErr
	}
	a.deleted = append(a.deleted, id)
	return nil
}

func newTestModel(t *testing.T, api *stubAPI, origin string) (*HistoryModel, *tuiHost) {
	t.Helper()
	h := newTUIHost(host.NewDownloader(t.TempDir(), ""))
	ctrl := history.NewController(api, h, "alice", origin)
	m := NewHistoryModel(context.Background(), ctrl, h.notices)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, h
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func historyTasks() []models.Task {
	created := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	return []models.Task{
		{ID: "t1", UserID: "alice", Status: models.TaskStatusProcessing, Progress: 30, Message: "Cutting", CreatedAt: created},
		{ID: "t2", UserID: "alice", Status: models.TaskStatusCompleted, Progress: 100, Message: "Done", OutputFile: "/output/t2/final.mp4", CreatedAt: created},
	}
}

func TestHistoryModelLoad(t *testing.T) {
	api := &stubAPI{tasks: historyTasks()}
	m, _ := newTestModel(t, api, "http://backend")

	if !strings.Contains(m.View(), "Loading tasks") {
		t.Errorf("expected loading view before the first fetch")
	}

	m.Update(m.load()())

	view := m.View()
	if !strings.Contains(view, "Tasks for alice") {
		t.Errorf("expected ready view, got:\n%s", view)
	}
	if !strings.Contains(view, "Cutting") || !strings.Contains(view, "final.mp4") {
		t.Errorf("expected both tasks rendered")
	}
	if !strings.Contains(view, "Processing") {
		t.Errorf("expected counters rendered")
	}
}

func TestHistoryModelErrorAndRetry(t *testing.T) {
	api := &stubAPI{listErr: errors.New("dial tcp: connection refused")}
	m, _ := newTestModel(t, api, "http://backend")

	m.Update(m.load()())
	view := m.View()
	if !strings.Contains(view, "connection refused") || !strings.Contains(view, "retry") {
		t.Errorf("expected error view with retry hint, got:\n%s", view)
	}

	api.mu.Lock()
	api.listErr = nil
	api.tasks = historyTasks()
	api.mu.Unlock()

	_, cmd := m.Update(key("r"))
	if cmd == nil {
		t.Fatal("expected retry command")
	}
	m.Update(cmd())
	if m.ctrl.State() != history.StateReady {
		t.Errorf("expected ready after retry, got %s", m.ctrl.State())
	}
}

func TestHistoryModelDeleteConfirm(t *testing.T) {
	api := &stubAPI{tasks: historyTasks()}
	m, _ := newTestModel(t, api, "http://backend")
	m.Update(m.load()())

	m.Update(key("d"))
	if m.confirming != "t1" {
		t.Fatalf("expected confirmation for t1, got %q", m.confirming)
	}
	if !strings.Contains(m.View(), history.DeletePrompt) {
		t.Errorf("expected delete prompt in view")
	}

	_, cmd := m.Update(key("n"))
	if cmd != nil || m.confirming != "" {
		t.Errorf("expected 'n' to cancel without a command")
	}
	if len(api.deleted) != 0 {
		t.Errorf("expected no delete after cancel")
	}

	m.Update(key("d"))
	_, cmd = m.Update(key("y"))
	if cmd == nil {
		t.Fatal("expected delete command after 'y'")
	}
	m.Update(cmd())

	if len(api.deleted) != 1 || api.deleted[0] != "t1" {
		t.Errorf("expected t1 deleted on the backend, got %v", api.deleted)
	}
	if got := m.ctrl.Tasks(); len(got) != 1 || got[0].ID != "t2" {
		t.Errorf("expected only t2 left locally, got %v", got)
	}
	if m.notice != "Task deleted" {
		t.Errorf("expected deletion notice, got %q", m.notice)
	}
}

func TestHistoryModelDeleteFailure(t *testing.T) {
	api := &stubAPI{tasks: historyTasks(), deleteErr: errors.New("boom")}
	m, h := newTestModel(t, api, "http://backend")
	m.Update(m.load()())

	m.Update(key("d"))
	_, cmd := m.Update(key("y"))
	m.Update(cmd())

	if len(m.ctrl.Tasks()) != 2 {
		t.Errorf("expected list unchanged after failed delete")
	}

	select {
	case n := <-h.notices:
		m.Update(noticeMsg(n))
	default:
		t.Fatal("expected a failure notice")
	}
	if m.notice != history.DeleteFailedMessage {
		t.Errorf("expected %q, got %q", history.DeleteFailedMessage, m.notice)
	}
}

func TestHistoryModelDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/output/t2/final.mp4" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	api := &stubAPI{tasks: historyTasks()}
	m, h := newTestModel(t, api, srv.URL)
	m.Update(m.load()())

	_, cmd := m.Update(key("s"))
	if cmd != nil {
		t.Errorf("expected no download for a processing task")
	}
	if m.notice != notDoneNotice {
		t.Errorf("expected not-done notice, got %q", m.notice)
	}

	m.Update(key("j"))
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected download command for a completed task")
	}
	msg := cmd().(downloadDoneMsg)
	if msg.err != nil {
		t.Fatalf("download failed: %v", msg.err)
	}

	saved := filepath.Join(h.downloader.Dir, "final.mp4")
	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("expected downloaded file: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("unexpected file contents %q", data)
	}

	n := <-h.notices
	if !strings.HasPrefix(n, "Saved ") {
		t.Errorf("expected saved notice, got %q", n)
	}
}

func TestHistoryModelQuit(t *testing.T) {
	m, _ := newTestModel(t, &stubAPI{}, "http://backend")
	_, cmd := m.Update(key("q"))
	if cmd == nil || !m.quitting {
		t.Error("expected quit on 'q'")
	}
	if m.View() != "" {
		t.Error("expected empty view after quit")
	}
}

func TestTUIHostNotifyDoesNotBlock(t *testing.T) {
	h := newTUIHost(nil)
	for i := 0; i < 100; i++ {
		h.Notify("x")
	}
	if len(h.notices) != cap(h.notices) {
		t.Errorf("expected full notice buffer, got %d", len(h.notices))
	}
	if !h.Confirm(history.DeletePrompt) {
		t.Error("expected Confirm to agree")
	}
}

func TestTUIHostWithoutDownloader(t *testing.T) {
	h := newTUIHost(nil)
	err := h.TriggerDownload(context.Background(), "http://backend/output/a.mp4", "a.mp4")
	if !errors.Is(err, host.ErrNoDownloader) {
		t.Errorf("expected ErrNoDownloader, got %v", err)
	}
}

func TestHistoryModelMouseScroll(t *testing.T) {
	var tasks []models.Task
	created := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		tasks = append(tasks, models.Task{
			ID:        fmt.Sprintf("job-%02d", i),
			UserID:    "alice",
			Status:    models.TaskStatusPending,
			CreatedAt: created,
		})
	}
	m, _ := newTestModel(t, &stubAPI{tasks: tasks}, "http://backend")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 24})
	m.Update(m.load()())

	if !strings.Contains(m.View(), "job-00") {
		t.Fatalf("expected first task visible before scrolling")
	}

	m.Update(tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	if strings.Contains(m.View(), "job-00") {
		t.Error("expected wheel to scroll the first task out of view")
	}
	if m.list.Cursor() != 0 {
		t.Errorf("expected scrolling to leave the cursor alone, got %d", m.list.Cursor())
	}
}
