package lcd

import "github.com/charmbracelet/lipgloss"

var (
	colorBezel   = lipgloss.Color("#3A3A3A")
	colorPanel   = lipgloss.Color("#9BBC0F")
	colorPixel   = lipgloss.Color("#0F380F")
	colorSubtext = lipgloss.Color("#777777")

	styleBezel = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorBezel).
			Padding(0, 1)

	styleCell = lipgloss.NewStyle().
			Background(colorPanel).
			Foreground(colorPixel)

	styleCursor = lipgloss.NewStyle().
			Background(colorPixel).
			Foreground(colorPanel)

	styleFooter = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Padding(0, 1)
)
