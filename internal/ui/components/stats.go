package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/clipflow/internal/history"
)

var (
	categoryColors = map[history.Category]lipgloss.Color{
		history.CategoryPending:    lipgloss.Color("214"),
		history.CategoryProcessing: lipgloss.Color("39"),
		history.CategoryCompleted:  lipgloss.Color("42"),
		history.CategoryFailed:     lipgloss.Color("196"),
	}

	totalColor = lipgloss.Color("252")

	statBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Align(lipgloss.Center)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// CategoryColor is the colour a status bucket renders in.
func CategoryColor(c history.Category) lipgloss.Color {
	return categoryColors[c]
}

// Badge renders a status label in its category colour.
func Badge(c history.Category, label string) string {
	return lipgloss.NewStyle().
		Foreground(CategoryColor(c)).
		Bold(true).
		Render(label)
}

// Stats renders the four aggregate counters as a row of boxes.
type Stats struct {
	Counts history.Counts
	Width  int
}

func NewStats(width int) *Stats {
	return &Stats{Width: width}
}

func (s *Stats) SetCounts(c history.Counts) {
	s.Counts = c
}

func (s *Stats) View() string {
	boxes := []string{
		s.renderBox("Total", s.Counts.Total, totalColor),
		s.renderBox("Completed", s.Counts.Completed, CategoryColor(history.CategoryCompleted)),
		s.renderBox("Processing", s.Counts.Processing, CategoryColor(history.CategoryProcessing)),
		s.renderBox("Failed", s.Counts.Failed, CategoryColor(history.CategoryFailed)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (s *Stats) renderBox(label string, value int, color lipgloss.Color) string {
	// 4 boxes, each with 2 border columns
	boxWidth := s.Width/4 - 2
	if boxWidth < len(label)+2 {
		boxWidth = len(label) + 2
	}

	number := lipgloss.NewStyle().Bold(true).Foreground(color).Render(fmt.Sprintf("%d", value))
	return statBoxStyle.
		BorderForeground(color).
		Width(boxWidth).
		Render(number + "\n" + statLabelStyle.Render(label))
}
