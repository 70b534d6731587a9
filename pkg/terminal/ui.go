package terminal

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// edgeOrder is the order rising edges are applied within one cycle. The
// first edge that changes screen ends the cycle.
var edgeOrder = []Line{LineLeft, LineUp, LineDown, LineRight, LineSelect}

// Options configures the UI loop
type Options struct {
	Tick         time.Duration
	Settle       time.Duration
	QuickReplies []string
}

// DefaultOptions returns the standard loop timing and reply catalog
func DefaultOptions() Options {
	return Options{
		Tick:         DefaultTick,
		Settle:       DefaultSettle,
		QuickReplies: DefaultQuickReplies(),
	}
}

// UI drives the display from debounced input and the shared state
type UI struct {
	display   Display
	state     *State
	sender    Sender
	debouncer *Debouncer
	replies   []string
	tick      time.Duration
	log       zerolog.Logger

	current screen
}

// NewUI creates a UI starting at the menu
func NewUI(display Display, in InputSource, state *State, sender Sender, opts Options, log zerolog.Logger) *UI {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}

	return &UI{
		display:   display,
		state:     state,
		sender:    sender,
		debouncer: NewDebouncer(in, opts.Settle),
		replies:   opts.QuickReplies,
		tick:      opts.Tick,
		log:       log,
		current:   newMenu(),
	}
}

// Run renders and polls input once per tick until ctx is done
func (u *UI) Run(ctx context.Context) error {
	u.display.Clear()
	u.current.render(u)

	ticker := time.NewTicker(u.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			u.Step()
		}
	}
}

// Step runs one cycle: sample input, apply edges, redraw
func (u *UI) Step() {
	pressed := u.debouncer.Pressed()
	for _, l := range edgeOrder {
		if !pressed[l] {
			continue
		}
		if u.Handle(l) {
			break
		}
	}
	u.current.render(u)
}

// Handle applies one rising edge and reports whether the screen changed
func (u *UI) Handle(l Line) bool {
	next := u.current.handle(u, l)
	if next == u.current {
		return false
	}

	u.log.Debug().Str("from", u.current.name()).Str("to", next.name()).Stringer("line", l).Msg("screen change")
	u.display.Clear()
	u.current = next
	return true
}

// Screen returns the name of the current screen
func (u *UI) Screen() string {
	return u.current.name()
}

func (u *UI) row(r int, text string) {
	u.display.WriteAt(0, r, pad(text))
}

// listRows draws rows 1-3 of a paginated list and places the cursor
func (u *UI) listRows(w Window, n int, label func(i int) string) {
	for r := 0; r < WindowRows; r++ {
		text := "--empty--"
		if i := w.Top + r; i < n {
			text = label(i)
		}
		u.row(r+1, selectable(text, r == w.Cursor))
	}
	u.display.SetCursor(0, w.Cursor+1)
}

func (u *UI) send(text string, peer int) {
	if err := u.sender.Send(text, peer); err != nil {
		u.log.Warn().Err(err).Int("peer", peer).Msg("send failed")
		return
	}
	u.log.Info().Int("peer", peer).Msg("message sent")
}
