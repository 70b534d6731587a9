package lcd

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ZentaChain/lcdrelay/pkg/terminal"
)

// DefaultRefresh is how often the emulator redraws the grid
const DefaultRefresh = 50 * time.Millisecond

type tickMsg time.Time

// Model is the bubbletea model for the emulator. The grid is written by
// the terminal UI loop; the model only reads it on each tick.
type Model struct {
	grid    *Grid
	buttons *Buttons
	keys    keyMap
	refresh time.Duration
	status  func() string
}

// NewModel creates an emulator over grid and buttons. status, when not
// nil, supplies a footer line.
func NewModel(grid *Grid, buttons *Buttons, status func() string) Model {
	return Model{
		grid:    grid,
		buttons: buttons,
		keys:    defaultKeyMap(),
		refresh: DefaultRefresh,
		status:  status,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update maps keys to input lines and keeps the refresh ticker running
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		for _, lb := range m.keys.lines() {
			if key.Matches(msg, lb.binding) {
				m.buttons.Press(lb.line)
				break
			}
		}
	case tickMsg:
		return m, m.tick()
	}
	return m, nil
}

// View draws the grid inside the bezel with the cursor cell inverted
func (m Model) View() string {
	rows := m.grid.Snapshot()
	cursorCol, cursorRow := m.grid.Cursor()

	lines := make([]string, 0, terminal.Rows)
	for i, row := range rows {
		lines = append(lines, renderRow(row, i == cursorRow, cursorCol))
	}
	screen := styleBezel.Render(strings.Join(lines, "\n"))

	footer := m.keys.help()
	if m.status != nil {
		footer = m.status() + "  " + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, screen, styleFooter.Render(footer))
}

func renderRow(row string, hasCursor bool, cursorCol int) string {
	cells := []rune(row)
	if !hasCursor || cursorCol < 0 || cursorCol >= len(cells) {
		return styleCell.Render(row)
	}
	return styleCell.Render(string(cells[:cursorCol])) +
		styleCursor.Render(string(cells[cursorCol])) +
		styleCell.Render(string(cells[cursorCol+1:]))
}
