package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/clipflow/internal/history"
	"github.com/ldi/clipflow/internal/host"
	"github.com/ldi/clipflow/internal/ui/components"
)

var (
	statusLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Padding(1, 2, 0, 2)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Padding(0, 1)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)
)

const (
	historyHelp   = "j/k move • s/enter download • d delete • r reload • q quit"
	notDoneNotice = "Only completed tasks can be downloaded"
)

// tuiHost is the history.Host used inside the bubbletea program. The model
// shows its own y/n modal before asking the controller to delete, so
// Confirm always agrees.
type tuiHost struct {
	notices    chan string
	downloader *host.Downloader
}

func newTUIHost(downloader *host.Downloader) *tuiHost {
	return &tuiHost{
		notices:    make(chan string, 16),
		downloader: downloader,
	}
}

func (h *tuiHost) Confirm(string) bool {
	return true
}

func (h *tuiHost) Notify(message string) {
	select {
	case h.notices <- message:
	default:
	}
}

func (h *tuiHost) TriggerDownload(ctx context.Context, url, suggestedName string) error {
	if h.downloader == nil {
		return host.ErrNoDownloader
	}
	path, err := h.downloader.Fetch(ctx, url, suggestedName)
	if err != nil {
		return err
	}
	h.Notify("Saved " + path)
	return nil
}

type tasksLoadedMsg struct {
	err error
}

type taskDeletedMsg struct {
	id      string
	deleted bool
	err     error
}

type downloadDoneMsg struct {
	id  string
	err error
}

type noticeMsg string

// HistoryModel is the interactive task history.
type HistoryModel struct {
	ctx        context.Context
	ctrl       *history.Controller
	notices    <-chan string
	list       *components.TaskList
	stats      *components.Stats
	width      int
	height     int
	confirming string
	notice     string
	quitting   bool
}

func NewHistoryModel(ctx context.Context, ctrl *history.Controller, notices <-chan string) *HistoryModel {
	return &HistoryModel{
		ctx:     ctx,
		ctrl:    ctrl,
		notices: notices,
		list:    components.NewTaskList(80, 10),
		stats:   components.NewStats(80),
	}
}

func (m *HistoryModel) Init() tea.Cmd {
	return tea.Batch(
		m.load(),
		m.pollNotices(),
	)
}

func (m *HistoryModel) load() tea.Cmd {
	return func() tea.Msg {
		return tasksLoadedMsg{err: m.ctrl.Load(m.ctx)}
	}
}

func (m *HistoryModel) retry() tea.Cmd {
	return func() tea.Msg {
		return tasksLoadedMsg{err: m.ctrl.Retry(m.ctx)}
	}
}

func (m *HistoryModel) deleteTask(id string) tea.Cmd {
	return func() tea.Msg {
		deleted, err := m.ctrl.Delete(m.ctx, id)
		return taskDeletedMsg{id: id, deleted: deleted, err: err}
	}
}

func (m *HistoryModel) download(id string) tea.Cmd {
	return func() tea.Msg {
		return downloadDoneMsg{id: id, err: m.ctrl.DownloadByID(m.ctx, id)}
	}
}

func (m *HistoryModel) pollNotices() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.notices
		if !ok {
			return nil
		}
		return noticeMsg(msg)
	}
}

func (m *HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()

	case tea.MouseMsg:
		if m.confirming == "" && m.ctrl.State() == history.StateReady {
			return m, m.list.Update(msg)
		}

	case tea.KeyMsg:
		if m.confirming != "" {
			return m, m.handleConfirmKey(msg)
		}
		return m, m.handleKey(msg)

	case tasksLoadedMsg:
		m.refresh()

	case taskDeletedMsg:
		if msg.deleted {
			m.notice = "Task deleted"
		}
		m.refresh()

	case downloadDoneMsg:
		if msg.err != nil {
			m.notice = downloadNotice(msg.err)
		}

	case noticeMsg:
		m.notice = string(msg)
		return m, m.pollNotices()
	}

	return m, nil
}

func (m *HistoryModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return tea.Quit
	case "j", "down":
		m.list.MoveCursor(1)
	case "k", "up":
		m.list.MoveCursor(-1)
	case "r":
		if m.ctrl.State() == history.StateLoading {
			return nil
		}
		m.notice = ""
		return m.retry()
	case "d":
		if t, ok := m.list.Selected(); ok && m.ctrl.State() == history.StateReady {
			m.confirming = t.ID
		}
	case "s", "enter":
		t, ok := m.list.Selected()
		if !ok || m.ctrl.State() != history.StateReady {
			return nil
		}
		if !t.Downloadable() {
			m.notice = notDoneNotice
			return nil
		}
		m.notice = "Downloading " + history.DownloadFilename(t.OutputFile) + "..."
		return m.download(t.ID)
	}
	return nil
}

func (m *HistoryModel) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	id := m.confirming
	switch msg.String() {
	case "y", "Y":
		m.confirming = ""
		return m.deleteTask(id)
	case "n", "N", "esc", "q":
		m.confirming = ""
	case "ctrl+c":
		m.quitting = true
		return tea.Quit
	}
	return nil
}

func downloadNotice(err error) string {
	if errors.Is(err, history.ErrNotDownloadable) {
		return notDoneNotice
	}
	return fmt.Sprintf("Download failed: %v", err)
}

func (m *HistoryModel) refresh() {
	m.list.SetTasks(m.ctrl.Tasks())
	m.stats.SetCounts(m.ctrl.Counts())
	m.recalculateLayout()
}

func (m *HistoryModel) recalculateLayout() {
	if m.width == 0 {
		return
	}
	m.stats.Width = m.width

	used := lipgloss.Height(components.Header(components.NavHistory, m.width)) +
		lipgloss.Height(m.stats.View()) +
		lipgloss.Height(components.Footer(historyHelp, m.width)) +
		3 // title, notice line and spacing
	listHeight := m.height - used
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(m.width, listHeight)
}

func (m *HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(components.Header(components.NavHistory, m.width))
	b.WriteString("\n")

	switch m.ctrl.State() {
	case history.StateIdle, history.StateLoading:
		b.WriteString(statusLineStyle.Render("Loading tasks..."))
		b.WriteString("\n")
	case history.StateError:
		b.WriteString(errorStyle.Render(m.ctrl.Err()))
		b.WriteString("\n")
		b.WriteString(statusLineStyle.Render("Press 'r' to retry"))
		b.WriteString("\n")
	case history.StateReady:
		b.WriteString(titleStyle.Render(fmt.Sprintf("Tasks for %s", m.ctrl.UserID())))
		b.WriteString("\n")
		b.WriteString(m.stats.View())
		b.WriteString("\n")
		if m.confirming != "" {
			b.WriteString(modalStyle.Render(history.DeletePrompt + "\n(y)es / (n)o"))
			b.WriteString("\n")
		}
		b.WriteString(m.list.View())
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(components.Footer(historyHelp, m.width))
	return b.String()
}

// RunHistory runs the interactive history against api until the user quits.
func RunHistory(ctx context.Context, api history.API, userID, origin string, downloader *host.Downloader) error {
	h := newTUIHost(downloader)
	ctrl := history.NewController(api, h, userID, origin)

	m := NewHistoryModel(ctx, ctrl, h.notices)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
