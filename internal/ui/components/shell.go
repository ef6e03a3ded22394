package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	brandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	navStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Underline(true)

	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("240"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)
)

const (
	Brand        = "ClipFlow"
	NavHome      = "Home"
	NavHistory   = "History"
	FooterText   = "ClipFlow · merge and download your videos"
	navSeparator = " · "
)

// Header renders the brand and the navigation links, underlining active.
func Header(active string, width int) string {
	links := make([]string, 0, 2)
	for _, item := range []string{NavHome, NavHistory} {
		if item == active {
			links = append(links, activeNavStyle.Render(item))
		} else {
			links = append(links, navStyle.Render(item))
		}
	}
	nav := strings.Join(links, navStyle.Render(navSeparator))

	brand := brandStyle.Render("▶ " + Brand)
	inner := width - 2
	gap := inner - lipgloss.Width(brand) - lipgloss.Width(nav)
	if gap < 2 {
		gap = 2
	}

	row := brand + strings.Repeat(" ", gap) + nav
	style := headerStyle
	if width > 0 {
		style = style.Copy().Width(width)
	}
	return style.Render(row)
}

func Footer(help string, width int) string {
	text := FooterText
	if help != "" {
		text = help + "\n" + text
	}
	style := footerStyle
	if width > 0 {
		style = style.Copy().Width(width)
	}
	return style.Render(text)
}
