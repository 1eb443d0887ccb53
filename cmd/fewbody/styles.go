package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))
)

func title(s string) {
	fmt.Println(titleStyle.Render(s))
}

func metric(label string, format string, args ...any) {
	fmt.Printf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label)), valueStyle.Render(fmt.Sprintf(format, args...)))
}
