package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/clipflow/internal/history"
	"github.com/ldi/clipflow/pkg/models"
)

var (
	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			PaddingLeft(2)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Background(lipgloss.Color("236")).
				PaddingLeft(2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Italic(true)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Padding(1, 2)

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

const (
	timeLayout = "2006-01-02 15:04"
	rowHeight  = 3
)

// TaskList renders the task cards in a scrollable viewport with a cursor.
type TaskList struct {
	viewport viewport.Model
	tasks    []models.Task
	cursor   int
	ready    bool
}

func NewTaskList(width, height int) *TaskList {
	return &TaskList{
		viewport: viewport.New(width, height),
	}
}

func (l *TaskList) SetSize(width, height int) {
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !l.ready {
		l.viewport = viewport.New(vpWidth, height)
		l.ready = true
	} else {
		l.viewport.Width = vpWidth
		l.viewport.Height = height
	}
	l.updateContent()
}

// SetTasks replaces the rendered tasks, keeping the cursor in range.
func (l *TaskList) SetTasks(tasks []models.Task) {
	l.tasks = tasks
	if l.cursor >= len(tasks) {
		l.cursor = len(tasks) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.updateContent()
}

func (l *TaskList) MoveCursor(delta int) {
	if len(l.tasks) == 0 {
		return
	}
	l.cursor += delta
	if l.cursor < 0 {
		l.cursor = 0
	}
	if l.cursor > len(l.tasks)-1 {
		l.cursor = len(l.tasks) - 1
	}
	l.updateContent()
	l.scrollIntoView()
}

func (l *TaskList) Cursor() int {
	return l.cursor
}

// Selected returns the task under the cursor.
func (l *TaskList) Selected() (models.Task, bool) {
	if l.cursor < 0 || l.cursor >= len(l.tasks) {
		return models.Task{}, false
	}
	return l.tasks[l.cursor], true
}

func (l *TaskList) scrollIntoView() {
	top := l.cursor * rowHeight
	bottom := top + rowHeight
	if top < l.viewport.YOffset {
		l.viewport.SetYOffset(top)
	} else if bottom > l.viewport.YOffset+l.viewport.Height {
		l.viewport.SetYOffset(bottom - l.viewport.Height)
	}
}

func (l *TaskList) updateContent() {
	if len(l.tasks) == 0 {
		l.viewport.SetContent(emptyStyle.Render("No tasks yet. Submitted videos will show up here."))
		return
	}

	width := l.viewport.Width
	rows := make([]string, 0, len(l.tasks))
	for i, t := range l.tasks {
		rows = append(rows, renderRow(t, i == l.cursor, width))
	}
	l.viewport.SetContent(strings.Join(rows, "\n"))
}

func renderRow(t models.Task, selected bool, width int) string {
	cat := history.CategoryFor(t.Status)

	marker := "  "
	if selected {
		marker = "> "
	}
	status := Badge(cat, fmt.Sprintf("%-10s", strings.ToUpper(cat.String())))
	title := fmt.Sprintf("%s%s %3d%%  %s", marker, status, t.Progress, t.Message)

	line2 := metaStyle.Render(fmt.Sprintf("    %s · %s", t.ID, t.CreatedAt.Local().Format(timeLayout)))
	if t.Downloadable() {
		line2 += "  " + actionStyle.Render("[s] download "+history.DownloadFilename(t.OutputFile))
	}

	style := rowStyle
	if selected {
		style = selectedRowStyle
	}
	if width > 0 {
		style = style.Copy().Width(width).MaxHeight(rowHeight - 1)
	}
	return style.Render(title+"\n"+line2) + "\n"
}

func (l *TaskList) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.viewport, cmd = l.viewport.Update(msg)
	return cmd
}

func (l *TaskList) View() string {
	if !l.ready {
		return ""
	}

	if l.viewport.TotalLineCount() <= l.viewport.Height {
		return l.viewport.View()
	}

	h := l.viewport.Height
	percent := l.viewport.ScrollPercent()

	handlePos := int(float64(h-1) * percent)

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, l.viewport.View(), sb.String())
}
