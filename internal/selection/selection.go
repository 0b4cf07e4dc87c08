// Package selection tracks the selected ant by identity and derives which
// automaton row to highlight for it.
//
// The highlight is anchored to the ant's id, not to a cell or a row: every
// time a new frame is committed the selected ant is looked up again and the
// highlight follows its current colony and state. If the ant is gone the
// highlight clears.
package selection

import (
	"fmt"

	"github.com/daviddao/antmatch_viewer/internal/hexgrid"
	"github.com/daviddao/antmatch_viewer/internal/replay"
)

// Ref points at one row of one colony's automaton table.
type Ref struct {
	Color replay.Color
	State int
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Color, r.State)
}

// Marker is implemented by whatever displays the automaton tables. Mark must
// bring the row into view.
type Marker interface {
	Mark(Ref)
	Unmark(Ref)
}

// Model is the selection state. The zero value has nothing selected.
type Model struct {
	selected    int
	hasSelected bool
	highlighted *Ref
	marker      Marker
}

// New returns an empty selection that reports highlight changes to m.
// m may be nil.
func New(m Marker) *Model {
	return &Model{marker: m}
}

// SetMarker replaces the highlight sink. The current highlight, if any, is
// marked on the new sink.
func (s *Model) SetMarker(m Marker) {
	s.marker = m
	if m != nil && s.highlighted != nil {
		m.Mark(*s.highlighted)
	}
}

// Selected returns the selected ant id.
func (s *Model) Selected() (int, bool) {
	return s.selected, s.hasSelected
}

// Highlighted returns the highlighted automaton row.
func (s *Model) Highlighted() (Ref, bool) {
	if s.highlighted == nil {
		return Ref{}, false
	}
	return *s.highlighted, true
}

// SelectAt selects the ant on the cell under screen point (x, y) in frame f.
// An empty cell clears the selection. It returns the selected ant, if any.
func (s *Model) SelectAt(t hexgrid.Transform, f *replay.Frame, x, y float64) (replay.Ant, bool) {
	if f == nil {
		s.Clear()
		return replay.Ant{}, false
	}
	row, col := t.Unapply(x, y)
	a, ok := f.AntAt(replay.Cell{Col: col, Row: row})
	if !ok {
		s.Clear()
		return replay.Ant{}, false
	}
	s.Select(a.ID, f)
	return a, true
}

// Select selects ant id and recomputes the highlight against f.
func (s *Model) Select(id int, f *replay.Frame) {
	s.selected, s.hasSelected = id, true
	s.Recompute(f)
}

// Clear drops the selection and the highlight.
func (s *Model) Clear() {
	s.hasSelected = false
	s.selected = 0
	s.setHighlight(nil)
}

// Recompute refreshes the highlight for a newly committed frame.
func (s *Model) Recompute(f *replay.Frame) {
	if !s.hasSelected || f == nil {
		s.setHighlight(nil)
		return
	}
	a, ok := f.AntByID(s.selected)
	if !ok {
		s.setHighlight(nil)
		return
	}
	s.setHighlight(&Ref{Color: a.Color, State: a.State})
}

// setHighlight unmarks the previous row before marking the new one.
func (s *Model) setHighlight(r *Ref) {
	old := s.highlighted
	if old == nil && r == nil {
		return
	}
	if old != nil && r != nil && *old == *r {
		return
	}
	s.highlighted = r
	if s.marker == nil {
		return
	}
	if old != nil {
		s.marker.Unmark(*old)
	}
	if r != nil {
		s.marker.Mark(*r)
	}
}
