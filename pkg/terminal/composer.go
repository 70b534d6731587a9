package terminal

import (
	"slices"
	"strings"
)

// ComposeCells is the size of the compose buffer, two display rows
const ComposeCells = 2 * Cols

// Bottom row targets in the composer
const (
	cancelCol = 0
	sendCol   = 15
)

// Alphabet is the ordered set of characters a compose cell can hold
var Alphabet = []rune(" ABCDEFGHIJKLMNOPQRSTUVWXYZ.!?")

// Composer is a fixed buffer of alphabet indexes with a cell cursor. Row 1
// and 2 address the buffer, row 3 the Cancel and Send targets.
type Composer struct {
	Cells   [ComposeCells]int
	Col     int
	Row     int
	Editing bool
}

// NewComposer returns an empty composer with the cursor on the first cell
func NewComposer() *Composer {
	return &Composer{Row: 1}
}

// Text renders the buffer using Alphabet
func (c *Composer) Text() string {
	var b strings.Builder
	b.Grow(ComposeCells)
	for _, idx := range c.Cells {
		b.WriteRune(Alphabet[idx])
	}
	return b.String()
}

// cellsFromText maps text back to alphabet indexes. It fails if text is not
// exactly ComposeCells runes of Alphabet.
func cellsFromText(text string) ([ComposeCells]int, bool) {
	var cells [ComposeCells]int
	runes := []rune(text)
	if len(runes) != ComposeCells {
		return cells, false
	}
	for i, r := range runes {
		idx := slices.Index(Alphabet, r)
		if idx < 0 {
			return cells, false
		}
		cells[i] = idx
	}
	return cells, true
}

// cell returns the buffer index under the cursor, or -1 on the bottom row
func (c *Composer) cell() int {
	if c.Row == 3 {
		return -1
	}
	return (c.Row-1)*Cols + c.Col
}

// Up moves the cursor up, or increments the current cell while editing
func (c *Composer) Up() {
	if c.Editing {
		i := c.cell()
		c.Cells[i] = (c.Cells[i] + 1) % len(Alphabet)
		return
	}
	switch c.Row {
	case 2:
		c.Row = 1
	case 3:
		c.Row, c.Col = 2, 0
	}
}

// Down moves the cursor down, or decrements the current cell while editing
func (c *Composer) Down() {
	if c.Editing {
		i := c.cell()
		c.Cells[i] = (c.Cells[i] + len(Alphabet) - 1) % len(Alphabet)
		return
	}
	switch c.Row {
	case 1:
		c.Row = 2
	case 2:
		c.Row, c.Col = 3, cancelCol
	}
}

// Left moves the cursor left. Ignored while editing.
func (c *Composer) Left() {
	if c.Editing {
		return
	}
	if c.Row == 3 {
		c.Col = cancelCol
		return
	}
	if c.Col > 0 {
		c.Col--
	}
}

// Right moves the cursor right. Ignored while editing.
func (c *Composer) Right() {
	if c.Editing {
		return
	}
	if c.Row == 3 {
		c.Col = sendCol
		return
	}
	if c.Col < Cols-1 {
		c.Col++
	}
}

// OnCancel reports whether the cursor is on the Cancel target
func (c *Composer) OnCancel() bool {
	return c.Row == 3 && c.Col == cancelCol
}

// OnSend reports whether the cursor is on the Send target
func (c *Composer) OnSend() bool {
	return c.Row == 3 && c.Col == sendCol
}

// Toggle switches between navigating and editing. It has no effect on the
// bottom row.
func (c *Composer) Toggle() {
	if c.Row == 3 {
		return
	}
	c.Editing = !c.Editing
}
