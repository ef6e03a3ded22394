package components

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/clipflow/internal/history"
	"github.com/ldi/clipflow/pkg/models"
)

func TestStats(t *testing.T) {
	s := NewStats(80)
	s.SetCounts(history.Counts{Total: 7, Completed: 3, Processing: 2, Failed: 1})

	view := s.View()
	for _, want := range []string{"Total", "Completed", "Processing", "Failed", "7", "3", "2", "1"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected stats view to contain %q", want)
		}
	}

	if idx := strings.Index(view, "Total"); idx > strings.Index(view, "Failed") {
		t.Errorf("expected Total box before Failed box")
	}
}

func TestStatsZeroCounts(t *testing.T) {
	view := NewStats(40).View()
	if strings.Count(view, "0") < 4 {
		t.Errorf("expected four zero counters, got:\n%s", view)
	}
}

func TestCategoryColor(t *testing.T) {
	seen := map[lipgloss.Color]history.Category{}
	for _, c := range []history.Category{
		history.CategoryPending,
		history.CategoryProcessing,
		history.CategoryCompleted,
		history.CategoryFailed,
	} {
		color := CategoryColor(c)
		if color == "" {
			t.Errorf("expected a colour for %s", c)
		}
		if other, ok := seen[color]; ok {
			t.Errorf("%s and %s share colour %s", c, other, color)
		}
		seen[color] = c
	}
}

func sampleTasks() []models.Task {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	done := created.Add(time.Hour)
	return []models.Task{
		{ID: "t1", Status: models.TaskStatusCompleted, Progress: 100, Message: "Done", OutputFile: "/output/t1/final.mp4", CreatedAt: created, CompletedAt: &done},
		{ID: "t2", Status: models.TaskStatusProcessing, Progress: 45, Message: "Merging", CreatedAt: created},
		{ID: "t3", Status: "mystery", Message: "Queued", CreatedAt: created},
	}
}

func TestTaskList(t *testing.T) {
	l := NewTaskList(80, 20)
	l.SetSize(80, 20)
	l.SetTasks(sampleTasks())

	view := l.View()
	if !strings.Contains(view, "COMPLETED") {
		t.Errorf("expected completed badge")
	}
	if !strings.Contains(view, "PENDING") {
		t.Errorf("expected unknown status to render as pending")
	}
	if !strings.Contains(view, "final.mp4") {
		t.Errorf("expected download hint with the output file name")
	}
	if strings.Count(view, "[s] download") != 1 {
		t.Errorf("expected exactly one download action, got view:\n%s", view)
	}
	if !strings.Contains(view, "> ") {
		t.Errorf("expected cursor marker")
	}
}

func TestTaskListCursor(t *testing.T) {
	l := NewTaskList(80, 20)
	l.SetSize(80, 20)
	l.SetTasks(sampleTasks())

	l.MoveCursor(1)
	if task, _ := l.Selected(); task.ID != "t2" {
		t.Errorf("expected t2 selected, got %s", task.ID)
	}

	l.MoveCursor(10)
	if l.Cursor() != 2 {
		t.Errorf("expected cursor clamped to 2, got %d", l.Cursor())
	}

	l.SetTasks(sampleTasks()[:1])
	if l.Cursor() != 0 {
		t.Errorf("expected cursor clamped after shrink, got %d", l.Cursor())
	}

	l.SetTasks(nil)
	if _, ok := l.Selected(); ok {
		t.Error("expected no selection on empty list")
	}
	if !strings.Contains(l.View(), "No tasks yet") {
		t.Error("expected empty placeholder")
	}
}

func TestTaskListScrollbar(t *testing.T) {
	l := NewTaskList(60, 4)
	l.SetSize(60, 4)
	l.SetTasks(sampleTasks())

	view := l.View()
	if !strings.Contains(view, "┃") {
		t.Errorf("expected scrollbar handle when content overflows")
	}

	l.MoveCursor(2)
	if !strings.Contains(l.View(), "t3") {
		t.Errorf("expected last task scrolled into view")
	}
}

func TestTaskListMouseWheel(t *testing.T) {
	l := NewTaskList(60, 4)
	l.SetSize(60, 4)
	l.SetTasks(sampleTasks())

	if !strings.Contains(l.View(), "t1") {
		t.Fatalf("expected first task visible")
	}
	l.Update(tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	if strings.Contains(l.View(), "t1 ") {
		t.Errorf("expected wheel down to scroll past the first task")
	}
}

func TestHeader(t *testing.T) {
	view := Header(NavHistory, 60)
	if !strings.Contains(view, Brand) {
		t.Errorf("expected brand in header")
	}
	if !strings.Contains(view, NavHome) || !strings.Contains(view, NavHistory) {
		t.Errorf("expected both nav links in header")
	}
	for _, line := range strings.Split(view, "\n") {
		if w := lipgloss.Width(line); w > 60 {
			t.Errorf("header line exceeds width: %d", w)
		}
	}
}

func TestFooter(t *testing.T) {
	view := Footer("q quit", 60)
	if !strings.Contains(view, "q quit") || !strings.Contains(view, FooterText) {
		t.Errorf("unexpected footer: %s", view)
	}
}
