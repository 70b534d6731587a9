package terminal

// Display geometry
const (
	Rows = 4
	Cols = 20
)

// Display is a 4x20 addressable character display
type Display interface {
	WriteAt(col, row int, text string)
	SetCursor(col, row int)
	Clear()
}

// Line is one of the five input lines
type Line int

const (
	LineUp Line = iota
	LineDown
	LineLeft
	LineRight
	LineSelect

	numLines
)

// String returns the line name
func (l Line) String() string {
	switch l {
	case LineUp:
		return "up"
	case LineDown:
		return "down"
	case LineLeft:
		return "left"
	case LineRight:
		return "right"
	case LineSelect:
		return "select"
	default:
		return "unknown"
	}
}

// InputSource reports whether an input line is currently asserted
type InputSource interface {
	Asserted(l Line) bool
}

// Sender transmits a text message to a peer
type Sender interface {
	Send(text string, receiverID int) error
}
