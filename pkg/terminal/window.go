package terminal

// WindowRows is the number of list rows visible at once
const WindowRows = 3

// Window is a 3-row view over a list. Top is the list index shown on the
// first row and Cursor the selected row within the window.
type Window struct {
	Top    int
	Cursor int
}

// Clamp bounds the window against a list of n items. With n == 0 both
// fields are zero.
func (w *Window) Clamp(n int) {
	maxTop := max(n-WindowRows, 0)
	w.Top = min(max(w.Top, 0), maxTop)

	rows := min(n, WindowRows)
	w.Cursor = min(max(w.Cursor, 0), max(rows-1, 0))
}

// Up moves the cursor up, shifting the window when the cursor is on the
// first row.
func (w *Window) Up(n int) {
	w.Clamp(n)
	switch {
	case w.Cursor > 0:
		w.Cursor--
	case w.Top > 0:
		w.Top--
	}
}

// Down moves the cursor down, shifting the window when the cursor is on the
// last row and more items follow.
func (w *Window) Down(n int) {
	w.Clamp(n)
	rows := min(n, WindowRows)
	switch {
	case w.Cursor < rows-1:
		w.Cursor++
	case w.Top+rows < n:
		w.Top++
	}
}

// Selected returns the list index under the cursor, or false for an empty
// list.
func (w *Window) Selected(n int) (int, bool) {
	w.Clamp(n)
	if n == 0 {
		return 0, false
	}
	return w.Top + w.Cursor, true
}
