package terminal

import "time"

// DefaultSettle is the interval between the two samples of a line
const DefaultSettle = 10 * time.Millisecond

// Edge is a confirmed change of one line
type Edge struct {
	Line    Line
	Pressed bool
}

// Debouncer confirms line changes by sampling each line twice across a
// settle interval. It keeps one confirmed state per line for the life of
// the UI, so a line held across a screen change does not fire again.
type Debouncer struct {
	in        InputSource
	settle    time.Duration
	sleep     func(time.Duration)
	confirmed [numLines]bool
}

// NewDebouncer creates a debouncer reading from in
func NewDebouncer(in InputSource, settle time.Duration) *Debouncer {
	return &Debouncer{
		in:     in,
		settle: settle,
		sleep:  time.Sleep,
	}
}

// Sample reads every line twice and returns the confirmed edges, in line
// order. A line whose samples disagree is treated as noise.
func (d *Debouncer) Sample() []Edge {
	var first [numLines]bool
	for l := Line(0); l < numLines; l++ {
		first[l] = d.in.Asserted(l)
	}

	d.sleep(d.settle)

	var edges []Edge
	for l := Line(0); l < numLines; l++ {
		second := d.in.Asserted(l)
		if second != first[l] || second == d.confirmed[l] {
			continue
		}
		d.confirmed[l] = second
		edges = append(edges, Edge{Line: l, Pressed: second})
	}
	return edges
}

// Pressed returns the lines with a rising edge this cycle
func (d *Debouncer) Pressed() map[Line]bool {
	pressed := make(map[Line]bool)
	for _, e := range d.Sample() {
		if e.Pressed {
			pressed[e.Line] = true
		}
	}
	return pressed
}

// Confirmed returns the last confirmed state of l
func (d *Debouncer) Confirmed(l Line) bool {
	return d.confirmed[l]
}
