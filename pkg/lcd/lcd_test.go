package lcd

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/lcdrelay/pkg/terminal"
)

func TestGridWriteAt(t *testing.T) {
	g := NewGrid()

	g.WriteAt(0, 0, "MENU")
	g.WriteAt(18, 1, "ABCDE")
	g.WriteAt(-2, 2, "xyHI")
	g.WriteAt(0, 7, "ignored")

	rows := g.Snapshot()
	assert.Equal(t, "MENU                ", rows[0])
	assert.Equal(t, "                  AB", rows[1])
	assert.Equal(t, "HI                  ", rows[2])
	assert.Equal(t, strings.Repeat(" ", terminal.Cols), rows[3])
}

func TestGridClear(t *testing.T) {
	g := NewGrid()
	g.WriteAt(0, 3, "text")
	g.SetCursor(5, 3)

	g.Clear()

	for _, row := range g.Snapshot() {
		assert.Equal(t, strings.Repeat(" ", terminal.Cols), row)
	}
	col, row := g.Cursor()
	assert.Zero(t, col)
	assert.Zero(t, row)
}

func TestGridCursorClamped(t *testing.T) {
	g := NewGrid()

	g.SetCursor(15, 3)
	col, row := g.Cursor()
	assert.Equal(t, 15, col)
	assert.Equal(t, 3, row)

	g.SetCursor(40, -1)
	col, row = g.Cursor()
	assert.Equal(t, terminal.Cols-1, col)
	assert.Zero(t, row)
}

func TestButtonsHold(t *testing.T) {
	now := time.Date(2025, 1, 27, 14, 0, 0, 0, time.UTC)
	b := NewButtons(100 * time.Millisecond)
	b.now = func() time.Time { return now }

	assert.False(t, b.Asserted(terminal.LineUp))

	b.Press(terminal.LineUp)
	assert.True(t, b.Asserted(terminal.LineUp))
	assert.False(t, b.Asserted(terminal.LineDown))

	now = now.Add(99 * time.Millisecond)
	assert.True(t, b.Asserted(terminal.LineUp))

	now = now.Add(time.Millisecond)
	assert.False(t, b.Asserted(terminal.LineUp))

	b.Press(terminal.Line(42))
	assert.False(t, b.Asserted(terminal.Line(42)))
}

func TestButtonsDrivesDebouncer(t *testing.T) {
	b := NewButtons(time.Second)
	d := terminal.NewDebouncer(b, time.Millisecond)

	assert.Empty(t, d.Sample())

	b.Press(terminal.LineSelect)
	edges := d.Sample()
	require.Len(t, edges, 1)
	assert.Equal(t, terminal.Edge{Line: terminal.LineSelect, Pressed: true}, edges[0])
}

func TestModelKeys(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		line terminal.Line
	}{
		{"arrow up", tea.KeyMsg{Type: tea.KeyUp}, terminal.LineUp},
		{"w", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}}, terminal.LineUp},
		{"arrow down", tea.KeyMsg{Type: tea.KeyDown}, terminal.LineDown},
		{"a", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}}, terminal.LineLeft},
		{"arrow right", tea.KeyMsg{Type: tea.KeyRight}, terminal.LineRight},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, terminal.LineSelect},
		{"space", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, terminal.LineSelect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buttons := NewButtons(time.Minute)
			m := NewModel(NewGrid(), buttons, nil)

			_, cmd := m.Update(tt.msg)
			assert.Nil(t, cmd)
			assert.True(t, buttons.Asserted(tt.line))
		})
	}
}

func TestModelQuit(t *testing.T) {
	m := NewModel(NewGrid(), NewButtons(0), nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelTickRearms(t *testing.T) {
	m := NewModel(NewGrid(), NewButtons(0), nil)

	_, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)
}

func TestModelView(t *testing.T) {
	g := NewGrid()
	g.WriteAt(0, 0, "MENU")
	g.WriteAt(0, 1, ">(1) Read Messages")
	g.SetCursor(0, 1)

	m := NewModel(g, NewButtons(0), func() string { return "client #2" })
	view := m.View()

	assert.Contains(t, view, "MENU")
	assert.Contains(t, view, "(1) Read Messages")
	assert.Contains(t, view, "client #2")
	assert.Contains(t, view, "q quit")
}
