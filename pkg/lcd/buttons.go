package lcd

import (
	"sync"
	"time"

	"github.com/ZentaChain/lcdrelay/pkg/terminal"
)

// DefaultHold is how long one key press keeps its line asserted
const DefaultHold = 150 * time.Millisecond

const lineCount = int(terminal.LineSelect) + 1

// Buttons turns key presses into asserted input lines. A terminal only
// sees key-down events, so each press holds its line for a fixed window
// long enough to survive the debouncer's two samples.
type Buttons struct {
	mu    sync.Mutex
	hold  time.Duration
	until [lineCount]time.Time
	now   func() time.Time
}

// NewButtons creates the button bank. A non-positive hold uses DefaultHold.
func NewButtons(hold time.Duration) *Buttons {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Buttons{hold: hold, now: time.Now}
}

// Press asserts l for the hold window. Pressing again extends it.
func (b *Buttons) Press(l terminal.Line) {
	if l < 0 || int(l) >= lineCount {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.until[l] = b.now().Add(b.hold)
}

// Asserted implements terminal.InputSource
func (b *Buttons) Asserted(l terminal.Line) bool {
	if l < 0 || int(l) >= lineCount {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.until[l])
}
