// Package lcd emulates the 4x20 character display and the five input lines
// of a terminal in an ordinary TTY.
package lcd

import (
	"sync"

	"github.com/ZentaChain/lcdrelay/pkg/terminal"
)

// Grid is a 4x20 rune matrix with a hardware cursor. It implements
// terminal.Display and is safe for concurrent use.
type Grid struct {
	mu        sync.RWMutex
	cells     [terminal.Rows][terminal.Cols]rune
	cursorCol int
	cursorRow int
}

// NewGrid returns a blank grid with the cursor at the origin
func NewGrid() *Grid {
	g := &Grid{}
	g.Clear()
	return g
}

// WriteAt writes text starting at (col, row). Characters that fall outside
// the grid are dropped.
func (g *Grid) WriteAt(col, row int, text string) {
	if row < 0 || row >= terminal.Rows {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, r := range text {
		if col >= terminal.Cols {
			break
		}
		if col >= 0 {
			g.cells[row][col] = r
		}
		col++
	}
}

// SetCursor moves the cursor, clamped to the grid
func (g *Grid) SetCursor(col, row int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cursorCol = min(max(col, 0), terminal.Cols-1)
	g.cursorRow = min(max(row, 0), terminal.Rows-1)
}

// Clear blanks every cell and homes the cursor
func (g *Grid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for row := range g.cells {
		for col := range g.cells[row] {
			g.cells[row][col] = ' '
		}
	}
	g.cursorCol, g.cursorRow = 0, 0
}

// Snapshot returns the grid contents, one string per row
func (g *Grid) Snapshot() [terminal.Rows]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var rows [terminal.Rows]string
	for row := range g.cells {
		rows[row] = string(g.cells[row][:])
	}
	return rows
}

// Cursor returns the cursor position
func (g *Grid) Cursor() (col, row int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cursorCol, g.cursorRow
}
