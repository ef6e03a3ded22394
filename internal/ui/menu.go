package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/clipflow/internal/ui/components"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	taglineStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("39")).Bold(true)
	descStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const logo = `
       _ _        __ _
   ___| (_)_ __  / _| | _____      __
  / __| | | '_ \| |_| |/ _ \ \ /\ / /
 | (__| | | |_) |  _| | (_) \ V  V /
  \___|_|_| .__/|_| |_|\___/ \_/\_/
          |_|
`

const tagline = "Merge clips, cut highlights, keep track of every render."

type menuChoice struct {
	name string
	desc string
}

var menuChoices = []menuChoice{
	{"history", "browse, download and delete your tasks"},
	{"list", "print your tasks"},
	{"stats", "print task counters"},
	{"whoami", "show the user id tasks are stored under"},
	{"token", "issue a bearer token for the current user"},
	{"serve", "run the task API backend"},
	{"mcp", "serve task tools over MCP stdio"},
	{"init", "create the local .clipflow directory"},
}

// MenuModel is the landing view shown when clipflow runs without a command.
type MenuModel struct {
	choices  []menuChoice
	cursor   int
	selected string
	quitting bool
	width    int
}

func NewMenuModel() MenuModel {
	return MenuModel{
		choices: menuChoices,
	}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}

		case "enter":
			m.selected = m.choices[m.cursor].name
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(components.Header(components.NavHome, m.width))
	s.WriteString("\n")
	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n")
	s.WriteString(taglineStyle.Render(tagline))
	s.WriteString("\n\n")

	for i, choice := range m.choices {
		line := fmt.Sprintf("%-8s %s", choice.name, descStyle.Render(choice.desc))
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			s.WriteString(itemStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(components.Footer("(use arrow keys or j/k to navigate, enter to select, q to quit)", m.width))
	s.WriteString("\n")

	return s.String()
}

func (m MenuModel) Selected() string {
	return m.selected
}

func RunMenu() (string, error) {
	m := NewMenuModel()
	p := tea.NewProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
