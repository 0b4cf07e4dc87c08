// Package brainlist holds the state of the automaton listing shown beside
// the map: which colony is listed, the scroll position and the marked rows.
//
// A List is the selection's Marker. Marking a row switches the listing to
// that row's colony and scrolls it into view.
package brainlist

import (
	"sort"

	"github.com/daviddao/antmatch_viewer/internal/replay"
	"github.com/daviddao/antmatch_viewer/internal/selection"
)

// Row is one visible line of the listing.
type Row struct {
	State  int
	Text   string
	Marked bool
}

// List is the listing state for one match.
type List struct {
	lines  [2][]string
	marked map[selection.Ref]bool
	color  replay.Color
	offset int
	rows   int
}

// New returns a list of bg's automata showing the red colony.
func New(bg *replay.Background) *List {
	l := &List{
		marked: make(map[selection.Ref]bool),
		rows:   1,
	}
	for _, c := range replay.Colors {
		l.lines[c] = bg.BrainLines(c)
	}
	return l
}

// Mark highlights r and scrolls the listing to show it, switching to r's
// colony if needed.
func (l *List) Mark(r selection.Ref) {
	l.marked[r] = true
	l.ShowColor(r.Color)
	l.reveal(r.State)
}

// Unmark removes r's highlight. The view does not move.
func (l *List) Unmark(r selection.Ref) {
	delete(l.marked, r)
}

// Marked reports whether r is marked.
func (l *List) Marked(r selection.Ref) bool {
	return l.marked[r]
}

// MarkedRefs returns the marked rows in colony, state order.
func (l *List) MarkedRefs() []selection.Ref {
	out := make([]selection.Ref, 0, len(l.marked))
	for r := range l.marked {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Color != out[j].Color {
			return out[i].Color < out[j].Color
		}
		return out[i].State < out[j].State
	})
	return out
}

// Color returns the listed colony.
func (l *List) Color() replay.Color { return l.color }

// Len returns the number of states of the listed colony.
func (l *List) Len() int { return len(l.lines[l.color]) }

// Offset returns the first visible state.
func (l *List) Offset() int { return l.offset }

// Rows returns the number of visible rows.
func (l *List) Rows() int { return l.rows }

// SetRows sets the number of visible rows, at least one.
func (l *List) SetRows(n int) {
	l.rows = max(n, 1)
	l.clamp()
}

// ShowColor lists colony c, scrolled to the top if it was not already shown.
func (l *List) ShowColor(c replay.Color) {
	if l.color != c {
		l.color = c
		l.offset = 0
	}
}

// Scroll moves the listing by delta rows.
func (l *List) Scroll(delta int) {
	l.offset += delta
	l.clamp()
}

// reveal scrolls so that state is visible with some context above it.
func (l *List) reveal(state int) {
	if state < l.offset || state >= l.offset+l.rows {
		l.offset = state - l.rows/3
	}
	l.clamp()
}

func (l *List) clamp() {
	last := l.Len() - l.rows
	l.offset = max(min(l.offset, last), 0)
}

// Visible returns the rows currently in view.
func (l *List) Visible() []Row {
	lines := l.lines[l.color]
	end := min(l.offset+l.rows, len(lines))
	out := make([]Row, 0, max(end-l.offset, 0))
	for i := l.offset; i < end; i++ {
		out = append(out, Row{
			State:  i,
			Text:   lines[i],
			Marked: l.marked[selection.Ref{Color: l.color, State: i}],
		})
	}
	return out
}
