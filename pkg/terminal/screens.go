package terminal

import (
	"fmt"
	"strings"
)

// screen is one UI state. handle returns the next screen, or the receiver
// itself when the edge did not change state.
type screen interface {
	name() string
	handle(u *UI, l Line) screen
	render(u *UI)
}

// pad truncates or space-pads text to one display row
func pad(text string) string {
	r := []rune(text)
	if len(r) >= Cols {
		return string(r[:Cols])
	}
	return text + strings.Repeat(" ", Cols-len(r))
}

func selectable(label string, selected bool) string {
	if selected {
		return ">" + label
	}
	return label
}

// cursorRow moves a 1-based row cursor within [1, rows]
func cursorRow(row int, l Line, rows int) int {
	switch l {
	case LineUp:
		return max(row-1, 1)
	case LineDown:
		return min(row+1, rows)
	}
	return row
}

// Menu

type menuScreen struct {
	row int
}

func newMenu() *menuScreen { return &menuScreen{row: 1} }

func (s *menuScreen) name() string { return "menu" }

func (s *menuScreen) handle(u *UI, l Line) screen {
	switch l {
	case LineUp, LineDown:
		s.row = cursorRow(s.row, l, 3)
	case LineSelect:
		if s.row == 1 {
			return &inboxScreen{}
		}
		return &peersScreen{}
	}
	return s
}

func (s *menuScreen) render(u *UI) {
	u.row(0, "MENU")
	u.row(1, selectable("(1) Read Messages", s.row == 1))
	u.row(2, selectable("(2) Send Message", s.row == 2))
	u.row(3, selectable("(3) View Clients", s.row == 3))
	u.display.SetCursor(0, s.row)
}

// Inbox

type inboxScreen struct {
	index int
}

func (s *inboxScreen) name() string { return "inbox" }

func (s *inboxScreen) clamp(n int) {
	s.index = min(max(s.index, 0), max(n-1, 0))
}

func (s *inboxScreen) handle(u *UI, l Line) screen {
	n := u.state.InboxLen()
	s.clamp(n)

	switch l {
	case LineLeft:
		return newMenu()
	case LineUp:
		if s.index < n-1 {
			s.index++
		}
	case LineDown:
		if s.index > 0 {
			s.index--
		}
	case LineSelect:
		if n > 0 {
			return &messageOptionsScreen{index: s.index, row: 1}
		}
	}
	return s
}

func (s *inboxScreen) render(u *UI) {
	n := u.state.InboxLen()
	s.clamp(n)

	m, ok := u.state.Message(s.index)
	if !ok {
		u.row(0, "")
		u.row(1, "         NO")
		u.row(2, "      MESSAGES")
		u.row(3, "")
		u.display.SetCursor(0, 0)
		return
	}

	text := []rune(m.Text)
	first, second := text, []rune(nil)
	if len(text) > Cols {
		first, second = text[:Cols], text[Cols:]
	}

	u.row(0, fmt.Sprintf("%03d/%03d FROM: #%d", s.index+1, n, m.SenderID))
	u.row(1, string(first))
	u.row(2, string(second))
	u.row(3, "")
	u.display.SetCursor(0, 0)
}

// Message options

type messageOptionsScreen struct {
	index int
	row   int
}

func (s *messageOptionsScreen) name() string { return "message-options" }

func (s *messageOptionsScreen) handle(u *UI, l Line) screen {
	switch l {
	case LineLeft:
		return newMenu()
	case LineUp, LineDown:
		s.row = cursorRow(s.row, l, 3)
	case LineSelect:
		m, ok := u.state.Message(s.index)
		if !ok {
			return newMenu()
		}
		switch s.row {
		case 1:
			u.state.DeleteMessage(s.index)
			return &inboxScreen{}
		case 2:
			return &quickReplyScreen{peer: m.SenderID}
		case 3:
			return &composeScreen{peer: m.SenderID, c: NewComposer()}
		}
	}
	return s
}

func (s *messageOptionsScreen) render(u *UI) {
	u.row(0, "OPTIONS")
	u.row(1, selectable("(1) Delete", s.row == 1))
	u.row(2, selectable("(2) Quick Reply", s.row == 2))
	u.row(3, selectable("(3) Reply", s.row == 3))
	u.display.SetCursor(0, s.row)
}

// Peers

type peersScreen struct {
	win Window
}

func (s *peersScreen) name() string { return "peers" }

func (s *peersScreen) handle(u *UI, l Line) screen {
	n := u.state.PeerCount()

	switch l {
	case LineLeft:
		return newMenu()
	case LineUp:
		s.win.Up(n)
	case LineDown:
		s.win.Down(n)
	case LineSelect:
		i, ok := s.win.Selected(n)
		if !ok {
			return s
		}
		if peer, ok := u.state.Peer(i); ok {
			return &clientOptionsScreen{peer: peer, row: 1}
		}
	}
	return s
}

func (s *peersScreen) render(u *UI) {
	peers := u.state.Peers()
	s.win.Clamp(len(peers))

	u.row(0, "Clients:")
	u.listRows(s.win, len(peers), func(i int) string {
		return fmt.Sprintf("(%d) client #%d", i+1, peers[i])
	})
}

// Client options

type clientOptionsScreen struct {
	peer int
	row  int
}

func (s *clientOptionsScreen) name() string { return "client-options" }

func (s *clientOptionsScreen) handle(u *UI, l Line) screen {
	switch l {
	case LineUp, LineDown:
		s.row = cursorRow(s.row, l, 2)
	case LineSelect:
		if s.row == 1 {
			return &quickReplyScreen{peer: s.peer}
		}
		return &composeScreen{peer: s.peer, c: NewComposer()}
	}
	return s
}

func (s *clientOptionsScreen) render(u *UI) {
	u.row(0, "OPTIONS")
	u.row(1, selectable("(1) Quick Message", s.row == 1))
	u.row(2, selectable("(2) Message", s.row == 2))
	u.row(3, "")
	u.display.SetCursor(0, s.row)
}

// Quick reply

type quickReplyScreen struct {
	peer int
	win  Window
}

func (s *quickReplyScreen) name() string { return "quick-reply" }

func (s *quickReplyScreen) handle(u *UI, l Line) screen {
	n := len(u.replies)

	switch l {
	case LineUp:
		s.win.Up(n)
	case LineDown:
		s.win.Down(n)
	case LineSelect:
		i, ok := s.win.Selected(n)
		if !ok {
			return s
		}
		u.send(u.replies[i], s.peer)
		return newMenu()
	}
	return s
}

func (s *quickReplyScreen) render(u *UI) {
	s.win.Clamp(len(u.replies))

	u.row(0, "Choose a reply")
	u.listRows(s.win, len(u.replies), func(i int) string {
		return fmt.Sprintf("(%d)%s", i+1, u.replies[i])
	})
}

// Compose

type composeScreen struct {
	peer int
	c    *Composer
}

func (s *composeScreen) name() string { return "compose" }

func (s *composeScreen) handle(u *UI, l Line) screen {
	switch l {
	case LineUp:
		s.c.Up()
	case LineDown:
		s.c.Down()
	case LineLeft:
		s.c.Left()
	case LineRight:
		s.c.Right()
	case LineSelect:
		switch {
		case s.c.OnCancel():
			return newMenu()
		case s.c.OnSend():
			u.send(s.c.Text(), s.peer)
			return newMenu()
		default:
			s.c.Toggle()
		}
	}
	return s
}

func (s *composeScreen) render(u *UI) {
	text := []rune(s.c.Text())
	bottom := []rune(" CANCEL         SEND")
	switch {
	case s.c.OnCancel():
		bottom[cancelCol] = '>'
	case s.c.OnSend():
		bottom[sendCol] = '>'
	}

	u.row(0, "Message: ")
	u.row(1, string(text[:Cols]))
	u.row(2, string(text[Cols:]))
	u.row(3, string(bottom))
	u.display.SetCursor(s.c.Col, s.c.Row)
}
